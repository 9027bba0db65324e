package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/Meesho/BharatMLStack/modelgateway/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// HTTPMiddleware logs every request and records its latency and count
// tagged with method, route and status.
func HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		responseTime := time.Since(startTime)

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		statusCode := strconv.Itoa(c.Writer.Status())
		requestHeaders, _ := json.Marshal(filterHeaders(c.Request.Header))
		logVariables := []string{
			c.Request.Method + " " + path,
			statusCode,
			responseTime.String(),
			string(requestHeaders),
		}
		if len(c.Errors) > 0 {
			logger.Error(strings.Join(logVariables, " | "), c.Errors.Last().Err)
		} else {
			logger.Debug(strings.Join(logVariables, " | "))
		}
		telemetry(c.Request.Method, path, statusCode, responseTime)
	}
}

// HTTPRecovery turns a panic in a handler into a 500 with the panic message.
func HTTPRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Msgf("Panic occurred: %v\n%s", err, debug.Stack())
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%v", err)})
			}
		}()
		c.Next()
	}
}
