package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter builds the gin engine: CORS, per-IP rate limiting, the v1 route
// group behind AuthMiddleware, and the handler's routes.
func NewRouter(handler *Handler, jwtSecret []byte, requestsPerMinute int64, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())
	r.Use(RateLimitMiddleware(requestsPerMinute, logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	handler.RegisterRoutes(v1, AuthMiddleware(jwtSecret))

	return r
}
