package entitlement

import (
	"net/http"

	"idauth-entitlement/pkg/health"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("entitlement.module",
	fx.Provide(NewService),
)

var ServerModule = fx.Module("entitlement.server",
	Module,
	fx.Provide(
		NewHandler,
		NewRouter,
	),
)

type RouterParams struct {
	fx.In
	Handler *Handler
	Health  health.HealthService
}

// NewRouter assembles the HTTP surface: policy resolution, the event callback
// ingress and the health probes.
func NewRouter(p RouterParams) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", p.Health.Liveness)
	r.GET("/readyz", p.Health.Readiness)

	v1 := r.Group("/v1", ActorMiddleware())
	v1.POST("/policy/resolve", p.Handler.Resolve)
	v1.POST("/events/callback/:topic", p.Handler.EventCallback)

	return r
}
