package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/delordemm1/matrimony-api/internal/config"
	appmiddleware "github.com/delordemm1/matrimony-api/internal/middleware"
	"github.com/delordemm1/matrimony-api/internal/modules/account"
	"github.com/delordemm1/matrimony-api/internal/modules/profile"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps are the services the HTTP layer exposes.
type Deps struct {
	Accounts account.Service
	Profiles profile.Service
	Tokens   appmiddleware.AccessVerifier
	// Ready reports whether backing stores are reachable. Optional.
	Ready func(ctx context.Context) error
}

type healthOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// New creates and configures the router with every module's routes.
func New(cfg *config.Config, log *slog.Logger, deps Deps) chi.Router {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(appmiddleware.RequestLogger(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	apiConfig := huma.DefaultConfig("Matrimony API", "1.0.0")
	apiConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	api := humachi.New(router, apiConfig)

	auth := appmiddleware.BearerAuth(deps.Tokens, log)
	account.NewHandler(deps.Accounts, log, cfg, auth).RegisterRoutes(api)
	profile.NewHandler(deps.Profiles, log, auth).RegisterRoutes(api)

	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health Check",
		Description: "Responds with the server's health status.",
		Tags:        []string{"health"},
	}, func(ctx context.Context, _ *struct{}) (*healthOutput, error) {
		if deps.Ready != nil {
			if err := deps.Ready(ctx); err != nil {
				log.ErrorContext(ctx, "health check failed", "error", err)
				return nil, huma.Error503ServiceUnavailable("service unavailable")
			}
		}
		resp := &healthOutput{}
		resp.Body.Status = "ok"
		return resp, nil
	})

	return router
}
