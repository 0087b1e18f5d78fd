package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-shop/meridian/internal/gateway"
	"github.com/meridian-shop/meridian/internal/observability"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger   *slog.Logger
	Config   *Config
	Registry *gateway.Registry
	Handler  *gateway.Handler
	Metrics  *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Registry: params.Registry,
		Metrics:  params.Metrics,
	}) {
		r.Use(mw)
	}
	params.Handler.MountRoutes(r)
	return r
}
