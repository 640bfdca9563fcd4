package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgnsrekt/ui_capture/internal/browser"
	"github.com/dgnsrekt/ui_capture/internal/capture"
	"github.com/dgnsrekt/ui_capture/internal/config"
	"github.com/dgnsrekt/ui_capture/internal/history"
	"github.com/dgnsrekt/ui_capture/internal/notify"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load capture config", "error", err)
		return 1
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		return 1
	}

	slog.Info("capture config loaded",
		"base_url", cfg.BaseURL,
		"output_dir", cfg.OutputDir,
		"viewports", cfg.RunViewports,
		"nav_timeout_ms", cfg.NavTimeout.Milliseconds(),
		"headless", cfg.Headless,
		"cdp_url", cfg.CDPURL,
		"log_level", cfg.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := browser.NewSession(browser.Options{
		Headless:      cfg.Headless,
		ChromePath:    cfg.ChromePath,
		CDPURL:        cfg.CDPURL,
		ActionTimeout: cfg.NavTimeout,
	}, slog.Default())

	orch := capture.New(cfg, os.Stdout, slog.Default())
	if cfg.HistoryEnabled {
		hw := history.NewWriter(cfg.HistoryDir, 4, 10)
		defer func() {
			if err := hw.Close(); err != nil {
				slog.Warn("history close failed", "error", err)
			}
		}()
		orch.AddObserver(history.NewRecorder(hw, cfg.BaseURL))
	}

	res, err := orch.Run(ctx, session)
	if err != nil {
		slog.Error("capture run failed", "error", err)
		return 1
	}

	if cfg.NTFYURL != "" {
		nctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		summary := notify.Summary{RunID: res.RunID, BaseURL: cfg.BaseURL, Captured: res.Captured, Errors: res.Errors}
		if err := notify.SendRunSummary(nctx, &http.Client{Timeout: 10 * time.Second}, cfg.NTFYURL, summary); err != nil {
			slog.Warn("ntfy notification failed", "error", err)
		}
	}
	return 0
}

// setupLogger writes to stderr and the rotated log file; stdout carries the
// progress report.
func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stderr, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
