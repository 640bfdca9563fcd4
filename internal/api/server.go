package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/ui_capture/internal/capture"
	"github.com/dgnsrekt/ui_capture/internal/events"
	"github.com/dgnsrekt/ui_capture/internal/shots"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Service interface {
	StartRun(ctx context.Context) (capture.Result, error)
	LatestRun(ctx context.Context) (capture.Result, error)
	Manifest(ctx context.Context) (string, error)
	ListScreenshots(ctx context.Context) ([]shots.ImageInfo, error)
	ReadScreenshot(ctx context.Context, filename string) ([]byte, error)
}

const eventsPath = "/api/v1/events"

// NewServer builds the controller router. A nil broker disables /api/v1/events.
func NewServer(svc Service, broker *events.Broker) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("UI Capture Controller API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	docs := renderDocs(broker != nil)
	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write(docs); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})

	if broker != nil {
		router.Get(eventsPath, events.SSEHandler(broker, events.DefaultKeepalive))
	}

	registerHealthHandlers(api)
	registerRunHandlers(api, svc)
	registerScreenshotHandlers(api, svc)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *capture.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case capture.CodeValidation, capture.CodeUnknownViewport:
			return huma.Error400BadRequest(coded.Message)
		case capture.CodeNotFound:
			return huma.Error404NotFound(coded.Message)
		case capture.CodeRunInProgress:
			return huma.Error409Conflict(coded.Message)
		case capture.CodeBrowserUnavailable:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return huma.Error504GatewayTimeout(err.Error())
	}
	return huma.Error500InternalServerError(err.Error())
}
