package controller

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/dgnsrekt/ui_capture/internal/capture"
	"github.com/dgnsrekt/ui_capture/internal/shots"
)

// Runner executes one capture run against a launcher.
type Runner interface {
	Run(ctx context.Context, launcher capture.Launcher) (capture.Result, error)
}

// Service serializes capture runs and exposes their artifacts.
type Service struct {
	runner      Runner
	newLauncher func() capture.Launcher
	store       *shots.Store
	logger      *slog.Logger
	onComplete  func(context.Context, capture.Result)

	mu      sync.Mutex
	running bool
	latest  *capture.Result
}

func NewService(runner Runner, newLauncher func() capture.Launcher, store *shots.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runner: runner, newLauncher: newLauncher, store: store, logger: logger}
}

// OnComplete registers a hook invoked after every successful run.
func (s *Service) OnComplete(fn func(context.Context, capture.Result)) {
	s.onComplete = fn
}

func (s *Service) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return &capture.CodedError{Code: capture.CodeValidation, Message: fieldName + " is required"}
	}
	return nil
}

// StartRun performs a full capture run. Only one run may be active at a time.
func (s *Service) StartRun(ctx context.Context) (capture.Result, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return capture.Result{}, &capture.CodedError{Code: capture.CodeRunInProgress, Message: "a capture run is already in progress"}
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	res, err := s.runner.Run(ctx, s.newLauncher())
	if err != nil {
		s.logger.Warn("capture run failed", "run_id", res.RunID, "error", err)
		return res, err
	}

	s.mu.Lock()
	s.latest = &res
	s.mu.Unlock()

	if s.onComplete != nil {
		s.onComplete(ctx, res)
	}
	return res, nil
}

// LatestRun returns the most recent run of this process, falling back to the
// report left on disk by an earlier run.
func (s *Service) LatestRun(ctx context.Context) (capture.Result, error) {
	s.mu.Lock()
	latest := s.latest
	s.mu.Unlock()
	if latest != nil {
		return *latest, nil
	}

	report, err := s.store.ReadReport()
	if err != nil {
		if errors.Is(err, shots.ErrNotFound) {
			return capture.Result{}, &capture.CodedError{Code: capture.CodeNotFound, Message: "no capture run has completed", Cause: err}
		}
		return capture.Result{}, storeErr(err, shots.ReportFile)
	}
	return capture.Result{
		RunID:      report.RunID,
		Captured:   report.Captured,
		Errors:     report.Errors,
		Entries:    report.Entries,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
	}, nil
}

func (s *Service) Manifest(ctx context.Context) (string, error) {
	data, err := s.store.ReadManifest()
	if err != nil {
		return "", storeErr(err, "manifest")
	}
	return string(data), nil
}

func (s *Service) ListScreenshots(ctx context.Context) ([]shots.ImageInfo, error) {
	images, err := s.store.List()
	if err != nil {
		return nil, storeErr(err, "screenshots")
	}
	return images, nil
}

func (s *Service) ReadScreenshot(ctx context.Context, filename string) ([]byte, error) {
	if err := s.requireNonEmpty(filename, "filename"); err != nil {
		return nil, err
	}
	data, err := s.store.ReadImage(strings.TrimSpace(filename))
	if err != nil {
		return nil, storeErr(err, filename)
	}
	return data, nil
}

func storeErr(err error, what string) error {
	switch {
	case errors.Is(err, shots.ErrNotFound):
		return &capture.CodedError{Code: capture.CodeNotFound, Message: what + " not found", Cause: err}
	case errors.Is(err, shots.ErrInvalidName):
		return &capture.CodedError{Code: capture.CodeValidation, Message: "invalid screenshot name " + what, Cause: err}
	default:
		return &capture.CodedError{Code: capture.CodeOutput, Message: "read " + what, Cause: err}
	}
}
