package capture

import (
	"context"
	"time"

	"github.com/dgnsrekt/ui_capture/internal/config"
)

// Tab is the single browser page a run drives. internal/browser provides the
// chromedp implementation.
type Tab interface {
	SetViewport(ctx context.Context, vp config.Viewport) error
	// Navigate loads url and blocks until the network is idle or timeout elapses.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	// Screenshot writes a viewport-only PNG to path.
	Screenshot(ctx context.Context, path string) error
}

// Launcher opens the browser, context and tab used for a whole run.
type Launcher interface {
	Open(ctx context.Context) (Tab, error)
	Close() error
}

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
