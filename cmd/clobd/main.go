package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tradsys/clob/internal/api"
	clobconfig "github.com/tradsys/clob/internal/config"
	"github.com/tradsys/clob/internal/events"
	"github.com/tradsys/clob/internal/globalstate"
	"github.com/tradsys/clob/internal/host"
	"github.com/tradsys/clob/internal/metrics"
)

const (
	appName    = "clobd"
	appVersion = "v1.0.0"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to configuration directory")
		version    = flag.Bool("version", false, "Show version information")
		health     = flag.Bool("health", false, "Perform health check")
		jwtSecret  = flag.String("jwt-secret", "dev-secret", "HMAC secret for bearer token validation")
	)
	flag.Parse()

	if *version {
		fmt.Printf("%s %s\n", appName, appVersion)
		os.Exit(0)
	}

	if *health {
		performHealthCheck()
		os.Exit(0)
	}

	cfg, err := clobconfig.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := clobconfig.InitLogger(cfg)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	clock := host.NewSlotClock(400 * time.Millisecond)
	global := globalstate.New(common.HexToAddress(cfg.GlobalState.FeeCollector))
	global.TakerFeeInBps = uint16(cfg.GlobalState.TakerFeeBps)
	global.MarketMakerBurn = cfg.GlobalState.MakerBurn

	registry := api.NewRegistry(global, clock, logger, uint16(cfg.TWAP.MaxObservationChangePerUpdateBps))

	var matchingMetrics *metrics.MatchingMetrics
	metricsApp := fx.New(
		fx.Supply(logger, metrics.Port(cfg.Monitoring.PrometheusPort)),
		metrics.Module,
		fx.Populate(&matchingMetrics),
		fx.NopLogger,
	)
	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	if err := metricsApp.Start(startCtx); err != nil {
		log.Fatalf("failed to start metrics module: %v", err)
	}
	cancelStart()

	var publisher *events.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = events.NewPublisher(cfg.NATS.URL, logger)
		if err != nil {
			logger.Warn("fill event publisher disabled: could not connect to NATS", zap.Error(err))
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	tokenService := host.NewBreakingTokenService(host.NewLoggingVaultTransferer(logger), logger)

	handler := api.NewHandler(registry, logger, publisher, matchingMetrics, tokenService)
	router := api.NewRouter(handler, []byte(*jwtSecret), cfg.RateLimit.RequestsPerMinute, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if err := metricsApp.Stop(shutdownCtx); err != nil {
		logger.Error("metrics module forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func performHealthCheck() {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get("http://localhost:8080/healthz")
	if err != nil {
		fmt.Printf("health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		fmt.Println("health check passed")
	} else {
		fmt.Printf("health check failed with status: %d\n", resp.StatusCode)
		os.Exit(1)
	}
}
