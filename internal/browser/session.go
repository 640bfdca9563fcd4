package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/ui_capture/internal/capture"
)

// Options controls how the browser is obtained.
type Options struct {
	Headless   bool
	ChromePath string
	// CDPURL attaches to an already running browser instead of launching one.
	CDPURL        string
	ActionTimeout time.Duration
	ReadyTimeout  time.Duration
}

// Session owns one browser, one browser context and one tab for the duration of a run.
type Session struct {
	opts   Options
	logger *slog.Logger

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	tabCancel     context.CancelFunc
}

// NewSession creates a Session. Nothing is started until Open.
func NewSession(opts Options, logger *slog.Logger) *Session {
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 10 * time.Second
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{opts: opts, logger: logger}
}

// Open starts (or attaches to) the browser and returns a fresh tab in its own
// browser context.
func (s *Session) Open(ctx context.Context) (capture.Tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browserCtx != nil {
		return nil, fmt.Errorf("browser session already open")
	}

	var allocCtx context.Context
	if s.opts.CDPURL != "" {
		wsURL, product, err := waitForCDP(ctx, s.opts.CDPURL, s.opts.ReadyTimeout)
		if err != nil {
			return nil, err
		}
		s.logger.Info("attaching to remote browser", "cdp_url", s.opts.CDPURL, "ws_url", wsURL, "product", product)
		allocCtx, s.allocCancel = chromedp.NewRemoteAllocator(context.Background(), wsURL)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.DisableGPU,
			chromedp.WindowSize(1440, 900),
			chromedp.Flag("headless", s.opts.Headless),
		)
		if path, err := detectBrowser(s.opts.ChromePath); err == nil {
			s.logger.Info("detected browser", "path", path)
			allocOpts = append(allocOpts, chromedp.ExecPath(path))
		} else if s.opts.ChromePath != "" {
			return nil, err
		} else {
			s.logger.Debug("browser detection failed, using chromedp lookup", "error", err)
		}
		allocCtx, s.allocCancel = chromedp.NewExecAllocator(context.Background(), allocOpts...)
	}

	s.browserCtx, s.browserCancel = chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			s.logger.Debug("chromedp: " + fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			s.logger.Warn("chromedp: " + fmt.Sprintf(format, args...))
		}),
	)
	if err := attach(ctx, s.browserCtx, s.opts.ReadyTimeout); err != nil {
		s.closeLocked()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx, chromedp.WithNewBrowserContext())
	s.tabCancel = tabCancel
	if err := attach(ctx, tabCtx, s.opts.ReadyTimeout); err != nil {
		s.closeLocked()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	if err := runBounded(ctx, tabCtx, s.opts.ReadyTimeout, page.SetLifecycleEventsEnabled(true)); err != nil {
		s.closeLocked()
		return nil, fmt.Errorf("open tab: %w", err)
	}

	tab := newTab(tabCtx, s.opts.ActionTimeout, s.logger)
	tab.listenConsole()
	s.logger.Info("browser tab ready", "headless", s.opts.Headless, "remote", s.opts.CDPURL != "")
	return tab, nil
}

// Close releases the tab, browser context and browser. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Session) closeLocked() error {
	var err error
	if s.tabCancel != nil {
		s.tabCancel()
		s.tabCancel = nil
	}
	if s.browserCtx != nil {
		if s.opts.CDPURL == "" {
			// Graceful Browser.close for launched processes; remote browsers stay up.
			err = chromedp.Cancel(s.browserCtx)
		}
		s.browserCancel()
		s.browserCtx = nil
		s.browserCancel = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
	if err != nil {
		s.logger.Debug("browser close returned error", "error", err)
	}
	return err
}

// attach performs the first Run on a chromedp context, which allocates the
// browser or attaches the target. chromedp ties the target's event loop to the
// context of that first Run, so it runs on cdpCtx itself and the caller's
// context and timeout only bound the wait. On failure the caller must cancel
// cdpCtx to stop the pending Run.
func attach(caller, cdpCtx context.Context, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(cdpCtx) }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-caller.Done():
		return caller.Err()
	case <-timer.C:
		return fmt.Errorf("timeout %s exceeded attaching to browser", timeout)
	}
}

// runBounded runs actions on a chromedp context, honouring both a timeout and
// the caller's context.
func runBounded(caller, cdpCtx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(cdpCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(caller, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && caller.Err() != nil {
		return caller.Err()
	}
	return err
}
