package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Summary is the outcome of a capture run as reported to ntfy.
type Summary struct {
	RunID    string
	BaseURL  string
	Captured []string
	Errors   []string
}

// Message renders the plain-text notification body.
func (s Summary) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "UI capture %s against %s: %d captured, %d errors.", s.RunID, s.BaseURL, len(s.Captured), len(s.Errors))
	if len(s.Errors) > 0 {
		fmt.Fprintf(&b, " Failed: %s.", strings.Join(s.Errors, ", "))
	}
	return b.String()
}

// SendRunSummary posts the run summary to the ntfy endpoint.
func SendRunSummary(ctx context.Context, client *http.Client, endpoint string, s Summary) error {
	return Send(ctx, client, endpoint, s.Message())
}

// Send sends a message to the requested endpoint using HTTP POST.
func Send(ctx context.Context, client *http.Client, endpoint, message string) error {
	if endpoint == "" {
		return fmt.Errorf("ntfy endpoint is required")
	}
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
