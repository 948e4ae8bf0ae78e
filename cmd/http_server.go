package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"

	"interviewer/internal/config"
	"interviewer/internal/handler"
	"interviewer/internal/metrics"
)

func newRouter(cfg *config.Config, a *app, logger *zap.Logger) *gin.Engine {
	if !cfg.Logger.Pretty {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), handler.RequestID(), handler.AccessLog(logger), metrics.Middleware())
	if cfg.Tracing.Enabled {
		r.Use(gintrace.Middleware(cfg.Tracing.Service))
	}
	handler.New(a.controller, a.hub, logger).Register(r)
	return r
}

func startHTTP(cfg *config.Config, a *app, logger *zap.Logger) {
	baseCtx, cancelStreams := context.WithCancel(context.Background())
	defer cancelStreams()

	httpServer := &http.Server{
		Addr:        cfg.Server.Addr(),
		Handler:     newRouter(cfg, a, logger),
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}
	// event streams never finish on their own
	httpServer.RegisterOnShutdown(cancelStreams)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	controllerCtx, controllerCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer controllerCancel()

	if err := a.controller.Shutdown(controllerCtx); err != nil {
		logger.Error("Interview controller shutdown error", zap.Error(err))
	}

	logger.Info("HTTP server stopped")
}
