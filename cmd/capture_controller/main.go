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

	"github.com/dgnsrekt/ui_capture/internal/api"
	"github.com/dgnsrekt/ui_capture/internal/browser"
	"github.com/dgnsrekt/ui_capture/internal/capture"
	"github.com/dgnsrekt/ui_capture/internal/config"
	"github.com/dgnsrekt/ui_capture/internal/controller"
	"github.com/dgnsrekt/ui_capture/internal/events"
	"github.com/dgnsrekt/ui_capture/internal/history"
	"github.com/dgnsrekt/ui_capture/internal/netutil"
	"github.com/dgnsrekt/ui_capture/internal/notify"
	"github.com/dgnsrekt/ui_capture/internal/shots"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load controller config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	slog.Info("controller config loaded",
		"bind_addr", cfg.BindAddr,
		"base_url", cfg.BaseURL,
		"output_dir", cfg.OutputDir,
		"port_auto_fallback", cfg.PortAutoFallback,
		"port_candidates", cfg.PortCandidates,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	ln, err := netutil.Listen(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to bind controller address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	store, err := shots.NewStore(cfg.OutputDir)
	if err != nil {
		slog.Error("failed to prepare output dir", "output_dir", cfg.OutputDir, "error", err)
		os.Exit(1)
	}

	broker := events.NewBroker()
	runner := capture.New(cfg, io.Discard, slog.Default())
	runner.AddObserver(controller.NewBrokerObserver(broker))
	if cfg.HistoryEnabled {
		hw := history.NewWriter(cfg.HistoryDir, 16, 10)
		defer func() { _ = hw.Close() }()
		runner.AddObserver(history.NewRecorder(hw, cfg.BaseURL))
	}
	newLauncher := func() capture.Launcher {
		return browser.NewSession(browser.Options{
			Headless:      cfg.Headless,
			ChromePath:    cfg.ChromePath,
			CDPURL:        cfg.CDPURL,
			ActionTimeout: cfg.NavTimeout,
		}, slog.Default())
	}
	svc := controller.NewService(runner, newLauncher, store, slog.Default())
	if cfg.NTFYURL != "" {
		client := &http.Client{Timeout: 10 * time.Second}
		svc.OnComplete(func(ctx context.Context, res capture.Result) {
			summary := notify.Summary{RunID: res.RunID, BaseURL: cfg.BaseURL, Captured: res.Captured, Errors: res.Errors}
			if err := notify.SendRunSummary(context.WithoutCancel(ctx), client, cfg.NTFYURL, summary); err != nil {
				slog.Warn("ntfy notification failed", "error", err)
			}
		})
	}

	srv := &http.Server{Handler: api.NewServer(svc, broker)}
	addr := ln.Addr().String()

	go func() {
		slog.Info("controller listening", "addr", addr, "docs", "http://"+addr+"/docs")
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("controller server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("controller shutdown failed", "error", err)
	}
}

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

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
