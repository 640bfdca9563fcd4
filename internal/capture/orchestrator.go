package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgnsrekt/ui_capture/internal/config"
	"github.com/dgnsrekt/ui_capture/internal/shots"
	"github.com/google/uuid"
)

// Result is the outcome of one run.
type Result struct {
	RunID      string        `json:"run_id"`
	Captured   []string      `json:"captured"`
	Errors     []string      `json:"errors"`
	Entries    []shots.Entry `json:"entries"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Observer receives run progress. Calls are made on the run goroutine and must
// not block.
type Observer interface {
	RunStarted(runID string, startedAt time.Time)
	EntryFinished(runID string, entry shots.Entry)
	RunFinished(res Result)
}

// Orchestrator walks the page x viewport matrix on one tab and records outcomes.
type Orchestrator struct {
	cfg       *config.Config
	out       io.Writer
	logger    *slog.Logger
	scenarios map[string]ErrorScenario
	sleep     sleepFunc
	now       func() time.Time
	observers []Observer
}

// New builds an Orchestrator. Progress lines go to out, structured records to logger.
func New(cfg *config.Config, out io.Writer, logger *slog.Logger) *Orchestrator {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:       cfg,
		out:       out,
		logger:    logger,
		scenarios: defaultScenarios(cfg),
		sleep:     sleepContext,
		now:       time.Now,
	}
}

// AddObserver registers an observer for subsequent runs.
func (o *Orchestrator) AddObserver(obs Observer) {
	o.observers = append(o.observers, obs)
}

// PageFilename is the screenshot name for a page at a viewport.
func PageFilename(name, viewport string) string {
	return fmt.Sprintf("%s-%s-light.png", name, viewport)
}

// ErrorStateFilename is the screenshot name for a page's error state at a viewport.
func ErrorStateFilename(name, viewport string) string {
	return fmt.Sprintf("%s-error-%s-light.png", name, viewport)
}

func (o *Orchestrator) viewport(name string) (config.Viewport, error) {
	vp, ok := o.cfg.Viewports[name]
	if !ok {
		return config.Viewport{}, newError(CodeUnknownViewport, fmt.Sprintf("unknown viewport %q", name), nil)
	}
	return vp, nil
}

func (o *Orchestrator) waitFor(name string) string {
	for _, p := range o.cfg.Pages {
		if p.Name == name {
			return p.WaitFor
		}
	}
	return ""
}

// CaptureScreenshot captures url at a viewport. A false result means the capture
// failed and was logged; a non-nil error means viewportName is not configured.
func (o *Orchestrator) CaptureScreenshot(ctx context.Context, tab Tab, url, name, viewportName string) (bool, error) {
	entry, err := o.capturePage(ctx, tab, url, name, viewportName)
	if err != nil {
		return false, err
	}
	return entry.Status == shots.StatusCaptured, nil
}

func (o *Orchestrator) capturePage(ctx context.Context, tab Tab, url, name, viewportName string) (shots.Entry, error) {
	vp, err := o.viewport(viewportName)
	if err != nil {
		return shots.Entry{}, err
	}
	filename := PageFilename(name, viewportName)
	entry := shots.Entry{Filename: filename, Page: name, Viewport: viewportName, Kind: shots.KindPage, URL: url}

	start := o.now()
	err = o.runPage(ctx, tab, vp, url, name, filename)
	entry.DurationMS = o.now().Sub(start).Milliseconds()
	o.finish(&entry, name+"-"+viewportName, err)
	return entry, nil
}

func (o *Orchestrator) runPage(ctx context.Context, tab Tab, vp config.Viewport, url, name, filename string) error {
	if err := tab.SetViewport(ctx, vp); err != nil {
		return newError(CodeInteraction, "set viewport", err)
	}
	if err := tab.Navigate(ctx, url, o.cfg.NavTimeout); err != nil {
		return newError(CodeNavigation, "navigate "+url, err)
	}
	if err := o.sleep(ctx, o.cfg.SettleDelay); err != nil {
		return err
	}
	if sel := o.waitFor(name); sel != "" {
		if err := tab.WaitVisible(ctx, sel, o.cfg.NavTimeout); err != nil {
			fmt.Fprintf(o.out, "  Warning: Could not find %q - taking screenshot anyway\n", sel)
			o.logger.Warn("readiness selector not found", "page", name, "selector", sel, "error", err)
		}
	}
	if err := tab.Screenshot(ctx, filepath.Join(o.cfg.OutputDir, filename)); err != nil {
		return newError(CodeScreenshot, "screenshot "+filename, err)
	}
	return nil
}

// CaptureErrorState runs the error scenario registered under name and captures the
// result. Unknown names are logged and report false without touching the browser.
func (o *Orchestrator) CaptureErrorState(ctx context.Context, tab Tab, name, viewportName string) (bool, error) {
	entry, err := o.captureErrorState(ctx, tab, name, viewportName)
	if err != nil {
		return false, err
	}
	return entry.Status == shots.StatusCaptured, nil
}

func (o *Orchestrator) captureErrorState(ctx context.Context, tab Tab, name, viewportName string) (shots.Entry, error) {
	vp, err := o.viewport(viewportName)
	if err != nil {
		return shots.Entry{}, err
	}
	filename := ErrorStateFilename(name, viewportName)
	entry := shots.Entry{Filename: filename, Page: name, Viewport: viewportName, Kind: shots.KindErrorState}

	scenario, ok := o.scenarios[name]
	if !ok {
		entry.Status = shots.StatusSkipped
		entry.Error = newError(CodeUnknownScenario, fmt.Sprintf("no error scenario for %q", name), nil).Error()
		fmt.Fprintf(o.out, "  Skipped %s-error-%s: no error scenario defined\n", name, viewportName)
		o.logger.Warn("error scenario not defined", "page", name, "viewport", viewportName)
		return entry, nil
	}
	entry.URL = o.cfg.PageURL(scenario.Path())

	start := o.now()
	err = o.runScenario(ctx, tab, vp, scenario, entry.URL, filename)
	entry.DurationMS = o.now().Sub(start).Milliseconds()
	o.finish(&entry, name+"-error-"+viewportName, err)
	return entry, nil
}

func (o *Orchestrator) runScenario(ctx context.Context, tab Tab, vp config.Viewport, scenario ErrorScenario, url, filename string) error {
	if err := tab.SetViewport(ctx, vp); err != nil {
		return newError(CodeInteraction, "set viewport", err)
	}
	if err := tab.Navigate(ctx, url, o.cfg.NavTimeout); err != nil {
		return newError(CodeNavigation, "navigate "+url, err)
	}
	if err := scenario.Apply(ctx, tab, o.sleep); err != nil {
		return err
	}
	if err := tab.Screenshot(ctx, filepath.Join(o.cfg.OutputDir, filename)); err != nil {
		return newError(CodeScreenshot, "screenshot "+filename, err)
	}
	return nil
}

func (o *Orchestrator) finish(entry *shots.Entry, label string, err error) {
	if err != nil {
		entry.Status = shots.StatusFailed
		entry.Error = err.Error()
		fmt.Fprintf(o.out, "  Error capturing %s: %v\n", label, err)
		o.logger.Warn("capture failed",
			"page", entry.Page,
			"viewport", entry.Viewport,
			"kind", entry.Kind,
			"duration_ms", entry.DurationMS,
			"error", err,
		)
		return
	}
	entry.Status = shots.StatusCaptured
	fmt.Fprintf(o.out, "  Captured: %s\n", entry.Filename)
	o.logger.Info("capture ok",
		"file", entry.Filename,
		"kind", entry.Kind,
		"duration_ms", entry.DurationMS,
	)
}

// Run executes a full capture run: output dir, browser, page matrix, login error
// state, manifest. The browser is closed on every return path.
func (o *Orchestrator) Run(ctx context.Context, launcher Launcher) (Result, error) {
	res := Result{
		RunID:     uuid.New().String(),
		Captured:  []string{},
		Errors:    []string{},
		StartedAt: o.now().UTC(),
	}

	store, err := shots.NewStore(o.cfg.OutputDir)
	if err != nil {
		return res, newError(CodeOutput, "prepare output dir", err)
	}

	o.logger.Info("capture run start", "run_id", res.RunID, "base_url", o.cfg.BaseURL, "output_dir", store.Dir())
	for _, obs := range o.observers {
		obs.RunStarted(res.RunID, res.StartedAt)
	}

	tab, err := launcher.Open(ctx)
	if err != nil {
		if closeErr := launcher.Close(); closeErr != nil {
			o.logger.Debug("browser close after failed open", "error", closeErr)
		}
		return res, newError(CodeBrowserUnavailable, "launch browser", err)
	}
	closed := false
	closeBrowser := func() {
		if closed {
			return
		}
		closed = true
		if err := launcher.Close(); err != nil {
			o.logger.Warn("browser close failed", "error", err)
		}
	}
	defer closeBrowser()

	fmt.Fprintln(o.out, "Capturing Public Pages...")
	fmt.Fprintln(o.out, strings.Repeat("-", 40))

	for _, p := range o.cfg.Pages {
		url := o.cfg.PageURL(p.Path)
		fmt.Fprintf(o.out, "\n%s Page:\n", titleCase(p.Name))
		for _, vpName := range o.cfg.RunViewports {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			entry, err := o.capturePage(ctx, tab, url, p.Name, vpName)
			if err != nil {
				return res, err
			}
			res.Entries = append(res.Entries, entry)
			o.notifyEntry(res.RunID, entry)
			if entry.Status == shots.StatusCaptured {
				res.Captured = append(res.Captured, entry.Filename)
			} else {
				res.Errors = append(res.Errors, entry.Filename)
			}
		}
	}

	fmt.Fprintln(o.out, "\nError States:")
	if err := ctx.Err(); err != nil {
		return res, err
	}
	entry, err := o.captureErrorState(ctx, tab, "login", "desktop")
	if err != nil {
		return res, err
	}
	res.Entries = append(res.Entries, entry)
	o.notifyEntry(res.RunID, entry)
	// Error-state failures stay out of Errors; the report still records them.
	if entry.Status == shots.StatusCaptured {
		res.Captured = append(res.Captured, entry.Filename)
	}

	closeBrowser()
	res.FinishedAt = o.now().UTC()

	fmt.Fprintf(o.out, "\n%s\n", strings.Repeat("=", 40))
	fmt.Fprintf(o.out, "Captured: %d screenshots\n", len(res.Captured))
	fmt.Fprintf(o.out, "Errors: %d\n", len(res.Errors))

	if err := store.WriteManifest(res.Captured, res.Errors); err != nil {
		return res, newError(CodeOutput, "write manifest", err)
	}
	if err := store.WriteReport(shots.Report{
		RunID:      res.RunID,
		BaseURL:    o.cfg.BaseURL,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Captured:   res.Captured,
		Errors:     res.Errors,
		Entries:    res.Entries,
	}); err != nil {
		o.logger.Warn("report write failed", "error", err)
	}

	o.logger.Info("capture run complete",
		"run_id", res.RunID,
		"captured", len(res.Captured),
		"errors", len(res.Errors),
		"duration_ms", res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
	)
	for _, obs := range o.observers {
		obs.RunFinished(res)
	}
	return res, nil
}

func (o *Orchestrator) notifyEntry(runID string, entry shots.Entry) {
	for _, obs := range o.observers {
		obs.EntryFinished(runID, entry)
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
