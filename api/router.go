package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/prodex/api/handler"
	"github.com/use-agent/prodex/config"
	"github.com/use-agent/prodex/pipeline"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Health endpoint sits outside the API group so monitoring probes always work.
func NewRouter(o *pipeline.Orchestrator, pool handler.PoolStatser, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/health", handler.Health(pool, startTime))

	api := r.Group("/api")
	api.POST("/fetch-product", handler.FetchProduct(o))

	return r
}
