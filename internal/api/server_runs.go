package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/ui_capture/internal/capture"
)

func registerHealthHandlers(api huma.API) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})
}

func registerRunHandlers(api huma.API, svc Service) {
	type runOutput struct {
		RunID string `header:"X-Run-ID"`
		Body  capture.Result
	}
	huma.Register(api, huma.Operation{
		OperationID: "start-run",
		Method:      http.MethodPost,
		Path:        "/api/v1/runs",
		Summary:     "Run a capture",
		Description: "Captures every page at every run viewport plus the login error state, then rewrites manifest.txt. Blocks until the run finishes. Returns 409 while another run is active.",
		Tags:        []string{"Runs"},
	}, func(ctx context.Context, input *struct{}) (*runOutput, error) {
		res, err := svc.StartRun(ctx)
		if err != nil {
			return nil, mapErr(err)
		}
		return &runOutput{RunID: res.RunID, Body: res}, nil
	})

	huma.Register(api, huma.Operation{OperationID: "latest-run", Method: http.MethodGet, Path: "/api/v1/runs/latest", Summary: "Get latest run result", Tags: []string{"Runs"}},
		func(ctx context.Context, input *struct{}) (*runOutput, error) {
			res, err := svc.LatestRun(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &runOutput{RunID: res.RunID, Body: res}, nil
		})

	type manifestOutput struct {
		ContentType string `header:"Content-Type"`
		Body        []byte
	}
	huma.Register(api, huma.Operation{
		OperationID: "get-manifest",
		Method:      http.MethodGet,
		Path:        "/api/v1/manifest",
		Summary:     "Get manifest.txt",
		Tags:        []string{"Runs"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Plain-text manifest of the last run",
				Content: map[string]*huma.MediaType{
					"text/plain": {Schema: &huma.Schema{Type: "string"}},
				},
			},
		},
	}, func(ctx context.Context, input *struct{}) (*manifestOutput, error) {
		text, err := svc.Manifest(ctx)
		if err != nil {
			return nil, mapErr(err)
		}
		return &manifestOutput{ContentType: "text/plain; charset=utf-8", Body: []byte(text)}, nil
	})
}
