package browser

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgnsrekt/ui_capture/internal/config"
)

func TestSessionTabUsableAfterOpen(t *testing.T) {
	f := newFakeBrowser(t)
	var logs bytes.Buffer
	session := NewSession(Options{
		CDPURL:        f.srv.URL,
		ActionTimeout: 2 * time.Second,
		ReadyTimeout:  5 * time.Second,
	}, slog.New(slog.NewTextHandler(&logs, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tab, err := session.Open(ctx)
	if err != nil {
		t.Fatalf("Open() error = %v\nlogs:\n%s", err, logs.String())
	}

	// Commands issued after Open returns must still get their responses.
	if err := tab.SetViewport(ctx, config.Viewport{Name: "mobile", Width: 375, Height: 812}); err != nil {
		t.Fatalf("SetViewport() error = %v", err)
	}
	path := filepath.Join(t.TempDir(), "login-mobile-light.png")
	if err := tab.Screenshot(ctx, path); err != nil {
		t.Fatalf("Screenshot() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("os.ReadFile() error = %v", err)
	}
	if string(data) != fakePNG {
		t.Fatalf("screenshot = %q; want %q", data, fakePNG)
	}

	if err := session.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	for method, want := range map[string]int{
		"Target.createBrowserContext":        1,
		"Emulation.setDeviceMetricsOverride": 1,
		"Page.captureScreenshot":             1,
		"Target.disposeBrowserContext":       1,
	} {
		if got := f.calls(method); got != want {
			t.Fatalf("%s calls = %d; want %d", method, got, want)
		}
	}
}

func TestSessionOpenTwice(t *testing.T) {
	f := newFakeBrowser(t)
	session := NewSession(Options{CDPURL: f.srv.URL, ReadyTimeout: 5 * time.Second}, nil)
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := session.Open(ctx); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := session.Open(ctx); err == nil {
		t.Fatal("second Open() = nil error; want already open")
	}
}

func TestSessionOpenUnreachableRemote(t *testing.T) {
	session := NewSession(Options{CDPURL: "http://127.0.0.1:1", ReadyTimeout: 600 * time.Millisecond}, nil)
	defer session.Close()

	if _, err := session.Open(context.Background()); err == nil {
		t.Fatal("Open() = nil error; want readiness error")
	}
}
