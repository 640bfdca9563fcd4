package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// detectBrowser finds an available Chrome/Chromium binary. preferred wins when it exists.
func detectBrowser(preferred string) (string, error) {
	if preferred != "" {
		if _, err := os.Stat(preferred); err != nil {
			return "", fmt.Errorf("configured browser %q: %w", preferred, err)
		}
		return preferred, nil
	}
	candidates := []string{"chromium-browser", "chromium", "google-chrome", "google-chrome-stable", "headless-shell"}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	if runtime.GOOS == "darwin" {
		macPath := "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"
		if _, err := os.Stat(macPath); err == nil {
			return macPath, nil
		}
	}
	return "", fmt.Errorf("no supported browser found (tried %s)", strings.Join(candidates, ", "))
}

// browserWSURL reads the browser-level websocket endpoint from /json/version.
func browserWSURL(ctx context.Context, client *http.Client, httpBase string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpBase+"/json/version", nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("/json/version: HTTP %d", resp.StatusCode)
	}

	var info struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}
	if info.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("empty webSocketDebuggerUrl")
	}
	return info.WebSocketDebuggerURL, nil
}

// debuggerURL resolves cdpURL to the browser websocket endpoint. A ws(s) URL that
// already names /devtools/browser/ is used as is. Anything else is treated as the
// DevTools HTTP address and asked for /json/version.
func debuggerURL(ctx context.Context, client *http.Client, cdpURL string) (string, error) {
	u, err := url.Parse(cdpURL)
	if err != nil {
		return "", fmt.Errorf("parse CDP url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
		if strings.Contains(u.Path, "/devtools/browser/") {
			return cdpURL, nil
		}
		u.Scheme = "http" + strings.TrimPrefix(u.Scheme, "ws")
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported CDP url scheme %q", u.Scheme)
	}
	u.Path, u.RawQuery = "", ""
	return browserWSURL(ctx, client, u.String())
}

// probeWS dials the debugger websocket and round-trips Browser.getVersion.
func probeWS(ctx context.Context, wsURL string) (string, error) {
	conn, _, _, err := ws.Dial(ctx, wsURL)
	if err != nil {
		return "", fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := wsutil.WriteClientText(conn, []byte(`{"id":1,"method":"Browser.getVersion"}`)); err != nil {
		return "", fmt.Errorf("send: %w", err)
	}
	for {
		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			return "", fmt.Errorf("read: %w", err)
		}
		var msg struct {
			ID     int64 `json:"id"`
			Result struct {
				Product string `json:"product"`
			} `json:"result"`
			Error *struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(data, &msg) != nil || msg.ID != 1 {
			continue
		}
		if msg.Error != nil {
			return "", fmt.Errorf("Browser.getVersion: %s", msg.Error.Message)
		}
		return msg.Result.Product, nil
	}
}

// waitForCDP polls the CDP endpoint until the debugger websocket answers
// Browser.getVersion. Returns the websocket URL and the browser product string.
func waitForCDP(ctx context.Context, cdpURL string, timeout time.Duration) (wsURL, product string, err error) {
	cdpURL = strings.TrimRight(cdpURL, "/")
	deadline := time.After(timeout)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	client := &http.Client{Timeout: time.Second}
	var lastErr error
	for {
		attemptCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		wsURL, err = debuggerURL(attemptCtx, client, cdpURL)
		if err == nil {
			product, err = probeWS(attemptCtx, wsURL)
			if err == nil {
				cancel()
				return wsURL, product, nil
			}
		}
		cancel()
		lastErr = err

		select {
		case <-ctx.Done():
			return "", "", ctx.Err()
		case <-deadline:
			return "", "", fmt.Errorf("CDP did not become ready within %s at %s: %w", timeout, cdpURL, lastErr)
		case <-ticker.C:
		}
	}
}
