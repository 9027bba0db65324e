// Command dummy-modelserver serves PredictionService by echoing every input
// back as an output of the same name, for running the gateway locally.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Meesho/BharatMLStack/modelgateway/handlers/external/modelserver"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	port := pflag.IntP("port", "p", 8500, "port to listen on")
	latency := pflag.Duration("latency", 0, "delay added before every answer")
	pflag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", *port))
	if err != nil {
		log.Fatal().Err(err).Msg("unable to listen")
	}

	backend := func(ctx context.Context, req *modelserver.PredictRequest) (*modelserver.PredictResponse, error) {
		if *latency > 0 {
			select {
			case <-time.After(*latency):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		log.Info().Str("model", req.ModelSpec.Name).Int("inputs", len(req.Inputs)).Msg("echoing predict request")
		return modelserver.Echo(ctx, req)
	}

	server := grpc.NewServer()
	modelserver.RegisterPredictionServiceServer(server, modelserver.Backend(backend))
	healthpb.RegisterHealthServer(server, health.NewServer())
	reflection.Register(server)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		server.GracefulStop()
	}()

	log.Info().Msgf("dummy model server listening on %s", lis.Addr())
	if err := server.Serve(lis); err != nil {
		log.Fatal().Err(err).Msg("serve failed")
	}
}
