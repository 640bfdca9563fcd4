package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/ui_capture/internal/shots"
)

func registerScreenshotHandlers(api huma.API, svc Service) {
	type listScreenshotsOutput struct {
		Body struct {
			Screenshots []shots.ImageInfo `json:"screenshots"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-screenshots", Method: http.MethodGet, Path: "/api/v1/screenshots", Summary: "List screenshots", Tags: []string{"Screenshots"}},
		func(ctx context.Context, input *struct{}) (*listScreenshotsOutput, error) {
			images, err := svc.ListScreenshots(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listScreenshotsOutput{}
			out.Body.Screenshots = images
			if out.Body.Screenshots == nil {
				out.Body.Screenshots = []shots.ImageInfo{}
			}
			return out, nil
		})

	type screenshotInput struct {
		Filename string `path:"filename" doc:"Screenshot filename, e.g. login-desktop-light.png"`
	}
	type screenshotImageOutput struct {
		ContentType string `header:"Content-Type"`
		Body        []byte
	}
	huma.Register(api, huma.Operation{
		OperationID: "get-screenshot",
		Method:      http.MethodGet,
		Path:        "/api/v1/screenshots/{filename}",
		Summary:     "Get screenshot image",
		Tags:        []string{"Screenshots"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Screenshot image",
				Content: map[string]*huma.MediaType{
					"image/png": {
						Schema: &huma.Schema{Type: "string", Format: "binary"},
					},
				},
			},
		},
	}, func(ctx context.Context, input *screenshotInput) (*screenshotImageOutput, error) {
		data, err := svc.ReadScreenshot(ctx, input.Filename)
		if err != nil {
			return nil, mapErr(err)
		}
		return &screenshotImageOutput{ContentType: "image/png", Body: data}, nil
	})
}
