package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ringline/signal-server/internal/v1/config"
	"github.com/ringline/signal-server/internal/v1/health"
	"github.com/ringline/signal-server/internal/v1/logging"
	"github.com/ringline/signal-server/internal/v1/middleware"
	"github.com/ringline/signal-server/internal/v1/ratelimit"
	"github.com/ringline/signal-server/internal/v1/room"
	"github.com/ringline/signal-server/internal/v1/transport"
)

func main() {
	// Load .env for local development; a missing file is not an error.
	if err := godotenv.Load(); err != nil {
		// no logger yet, nothing useful to do with this besides continue
	}

	cfg, err := config.ValidateEnv()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.GoEnv != "production"); err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	ctx := context.Background()
	logging.Info(ctx, "starting rendezvous server", zap.String("port", cfg.Port), zap.String("env", cfg.GoEnv))

	router := room.NewRouter(cfg)
	limiter := ratelimit.New(cfg)
	hub := transport.NewHub(router, limiter)

	heartbeatCtx, cancelHeartbeat := context.WithCancel(ctx)
	defer cancelHeartbeat()
	go transport.NewHeartbeat(hub, cfg.HeartbeatInterval).Run(heartbeatCtx)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CorrelationID())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, middleware.HeaderXCorrelationID)
	engine.Use(cors.New(corsCfg))

	healthHandler := health.NewHandler()
	engine.GET("/health", healthHandler.Health)
	engine.NoRoute(healthHandler.Banner)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/ws", hub.ServeWs)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	go func() {
		logging.Info(ctx, "listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error(ctx, "server exited", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(ctx, "forced shutdown", zap.Error(err))
	}
	logging.Info(ctx, "exited")
}
