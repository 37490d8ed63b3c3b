package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"interview-backend/internal/analysis"
	"interview-backend/internal/frames"
	"interview-backend/internal/services/health"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/shared/metrics"
	"interview-backend/internal/shared/server/middleware"
	"interview-backend/internal/shared/server/respond"
)

// RouterDeps carries the wired handlers the router mounts.
type RouterDeps struct {
	Config          config.Config
	Log             *logrus.Entry
	AnalysisHandler *analysis.Handler
	FramesHandler   *frames.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env != "dev" && deps.Config.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(deps.Log),
		middleware.Recovery(deps.Log),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	healthSvc := health.NewService()
	r.GET("/healthz", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, healthSvc.Status())
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	deps.FramesHandler.RegisterRoutes(api)
	deps.AnalysisHandler.RegisterRoutes(api)

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
