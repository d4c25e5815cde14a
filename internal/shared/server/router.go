package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-review-backend/internal/resumes"
	"resume-review-backend/internal/shared/config"
	"resume-review-backend/internal/shared/metrics"
	"resume-review-backend/internal/shared/server/middleware"
	"resume-review-backend/internal/shared/server/respond"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
// Dependencies are built by the caller; the router only wires HTTP.
func NewRouter(cfg config.Config, resumeHandler *resumes.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{
			"ok":      true,
			"metrics": metrics.Snapshot(),
		})
	})

	api.Use(middleware.Owner())
	resumeHandler.RegisterRoutes(api)

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
