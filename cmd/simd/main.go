package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoSim-25-26J-441/paynet-sim/internal/ledger"
	"github.com/GoSim-25-26J-441/paynet-sim/internal/ledger/ledgerrpc"
	"github.com/GoSim-25-26J-441/paynet-sim/internal/metrics"
	"github.com/GoSim-25-26J-441/paynet-sim/internal/simd"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/logger"
	"google.golang.org/grpc"
)

func main() {
	var grpcAddr string
	var httpAddr string
	var logLevel string
	var outDir string

	flag.StringVar(&grpcAddr, "grpc-addr", ":50051", "gRPC ledger listen address")
	flag.StringVar(&httpAddr, "http-addr", ":8080", "HTTP listen address")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&outDir, "out", "", "directory receiving per-run report artifacts (disabled when empty)")
	flag.Parse()

	log := logger.NewText(logLevel, os.Stdout)
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	registry := metrics.DefaultRegistry()

	store := simd.NewRunStore()
	executor := simd.NewRunExecutor(store)
	executor.SetRegistry(registry)
	executor.SetLogger(log)
	executor.SetOutputRoot(outDir)

	// The shared ledger served over gRPC; runs submitted over HTTP pick
	// their own backend from their config.
	shared := ledger.NewMemory()

	// TODO: Configure gRPC server security (e.g., TLS, authentication, rate limiting)
	// before using this service in a production environment.
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(ledgerrpc.UnaryInterceptor(log, registry)))
	ledgerrpc.NewServer(shared).Register(grpcServer)

	grpcLis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logger.Error("failed to listen for gRPC", "addr", grpcAddr, "error", err)
		stop()
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           simd.NewHTTPServer(store, executor, registry).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start servers.
	go func() {
		logger.Info("gRPC ledger listening", "addr", grpcAddr)
		if err := grpcServer.Serve(grpcLis); err != nil {
			logger.Error("gRPC server error", "error", err)
			stop()
		}
	}()

	go func() {
		logger.Info("HTTP server listening", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	executor.StopAll()
	grpcServer.GracefulStop()

	stats := shared.Stats()
	logger.Info("shutdown complete",
		"ledger_users", stats.Users,
		"ledger_channels", stats.Channels,
		"ledger_transfers", stats.Transfers)
}
