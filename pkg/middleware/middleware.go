package middleware

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Meesho/BharatMLStack/modelgateway/pkg/logger"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/metrics"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/set"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	requestLatencyMetric = "modelgateway.router.api.request.latency"
	requestTotalMetric   = "modelgateway.router.api.request.total"
)

var (
	reqHeadersToLog = set.NewThreadSafeSet()
)

// InitMiddleware sets the request headers that are copied into request logs.
// Header names are matched lower-cased.
func InitMiddleware(headers ...string) {
	reqHeadersToLog.Clear()
	for _, h := range headers {
		reqHeadersToLog.Add(strings.ToLower(h))
	}
}

func WrappedGRPCMiddleware(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler) (resp interface{}, err error) {
	startTime := time.Now()

	md, _ := metadata.FromIncomingContext(ctx)
	method := info.FullMethod
	requestHeaders, _ := json.Marshal(filterHeaders(md))

	resp, err = handler(ctx, req)
	statusCode := codes.OK
	if err != nil {
		statusCode = status.Code(err)
	}
	responseTime := time.Since(startTime)

	logVariables := []string{
		method,
		strconv.Itoa(int(statusCode)),
		responseTime.String(),
		string(requestHeaders),
	}
	if err != nil {
		logger.Error(strings.Join(logVariables, " | "), err)
	} else {
		logger.Debug(strings.Join(logVariables, " | "))
	}
	telemetry("grpc", method, strconv.Itoa(int(statusCode)), responseTime)
	return resp, err
}

func RecoveryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("service", info.FullMethod).
				Interface("request", req).
				Msgf("Recovered in recovery interceptor with err: %v, stack: %s", r, string(debug.Stack()))
			err = status.Errorf(codes.Internal, "Internal server error")
		}
	}()

	return handler(ctx, req)
}

func filterHeaders(headers map[string][]string) map[string][]string {
	filteredHeaders := make(map[string][]string)
	for k, v := range headers {
		if reqHeadersToLog.Contains(strings.ToLower(k)) {
			filteredHeaders[k] = v
		}
	}
	return filteredHeaders
}

func telemetry(method, path, statusCode string, responseTime time.Duration) {
	tags := []string{"method:" + method, "path:" + path, "status:" + statusCode}
	metrics.Timing(requestLatencyMetric, responseTime, tags)
	metrics.Count(requestTotalMetric, 1, tags)
}
