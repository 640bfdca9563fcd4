package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/ui_capture/internal/capture"
	"github.com/dgnsrekt/ui_capture/internal/config"
)

var _ capture.Tab = (*Tab)(nil)

// Tab drives one chromedp target.
type Tab struct {
	ctx           context.Context
	actionTimeout time.Duration
	logger        *slog.Logger
}

func newTab(ctx context.Context, actionTimeout time.Duration, logger *slog.Logger) *Tab {
	return &Tab{ctx: ctx, actionTimeout: actionTimeout, logger: logger}
}

func (t *Tab) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	return runBounded(ctx, t.ctx, timeout, actions...)
}

func (t *Tab) SetViewport(ctx context.Context, vp config.Viewport) error {
	return t.run(ctx, t.actionTimeout,
		emulation.SetDeviceMetricsOverride(int64(vp.Width), int64(vp.Height), 1, false),
	)
}

// Navigate loads url and waits for the main frame's networkIdle lifecycle event
// of the new document.
func (t *Tab) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	runCtx, cancel := context.WithTimeout(t.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	frameID := cdp.FrameID(chromedp.FromContext(t.ctx).Target.TargetID)
	idle := make(chan struct{})
	var (
		mu     sync.Mutex
		once   sync.Once
		loader cdp.LoaderID
	)
	chromedp.ListenTarget(runCtx, func(ev any) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok || e.FrameID != frameID {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		switch e.Name {
		case "init":
			loader = e.LoaderID
		case "networkIdle":
			if loader != "" && e.LoaderID == loader {
				once.Do(func() { close(idle) })
			}
		}
	})

	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	select {
	case <-idle:
		return nil
	case <-runCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("timeout %s exceeded waiting for network idle", timeout)
	}
}

func (t *Tab) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return t.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// Fill replaces the field's value by typing, so framework input handlers fire.
func (t *Tab) Fill(ctx context.Context, selector, value string) error {
	return t.run(ctx, t.actionTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

func (t *Tab) Click(ctx context.Context, selector string) error {
	return t.run(ctx, t.actionTimeout, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

// Screenshot captures the visible viewport as PNG.
func (t *Tab) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := t.run(ctx, t.actionTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// listenConsole logs console.error calls and uncaught exceptions from the page.
func (t *Tab) listenConsole() {
	chromedp.ListenTarget(t.ctx, func(ev any) {
		switch e := ev.(type) {
		case *cdpruntime.EventConsoleAPICalled:
			if e.Type == cdpruntime.APITypeError {
				t.logger.Warn("browser console error", "message", consoleText(e.Args))
			}
		case *cdpruntime.EventExceptionThrown:
			t.logger.Warn("browser page error", "message", exceptionText(e.ExceptionDetails))
		}
	})
}

func consoleText(args []*cdpruntime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == nil {
			continue
		}
		switch {
		case arg.Description != "":
			parts = append(parts, arg.Description)
		case len(arg.Value) > 0:
			parts = append(parts, strings.Trim(string(arg.Value), `"`))
		}
	}
	return strings.Join(parts, " ")
}

func exceptionText(details *cdpruntime.ExceptionDetails) string {
	if details == nil {
		return ""
	}
	if details.Exception != nil && details.Exception.Description != "" {
		return details.Exception.Description
	}
	return details.Text
}
