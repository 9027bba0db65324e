package rest

import (
	"net/http"

	"github.com/Meesho/BharatMLStack/modelgateway/handlers/pipeline"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/metrics"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/middleware"
	"github.com/gin-gonic/gin"
)

func NewRouter(appEnv string, flow *pipeline.Flow) *gin.Engine {
	if appEnv == "prod" || appEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.HTTPRecovery(), middleware.HTTPMiddleware())

	router.GET("/health/self", func(c *gin.Context) {
		c.String(http.StatusOK, "true")
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	NewHandler(flow).RegisterRoutes(router)
	return router
}
