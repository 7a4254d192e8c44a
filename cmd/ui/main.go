package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"startype/config"
	shttp "startype/http"
	"startype/logging"
	"startype/ui"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	backgrounds, err := ui.NewBackgrounds(cfg.UI.Backgrounds, cfg.UI.DefaultBackground, cfg.UI.BackgroundCacheSize)
	if err != nil {
		logger.Fatal("failed to create background cache", zap.Error(err))
	}
	client := ui.NewAPIClient(cfg.UI.APIBaseURL, cfg.UI.Timeout)
	handler, err := ui.NewHandler(client, backgrounds, cfg.UI.SampleDataset, logger)
	if err != nil {
		logger.Fatal("failed to create UI handler", zap.Error(err))
	}

	mux := http.NewServeMux()
	handler.RegisterHandlers(mux)
	chain := shttp.Chain(
		shttp.RecoveryMiddleware(logger),
		shttp.LoggerMiddleware(logger),
		shttp.SecurityHeadersMiddleware,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.UI.Port),
		Handler:      chain(mux),
		ReadTimeout:  cfg.UI.Timeout,
		WriteTimeout: cfg.UI.Timeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting UI server", zap.String("addr", server.Addr), zap.String("api", cfg.UI.APIBaseURL))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("UI server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("UI server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && !filepath.IsAbs(path) {
		if _, err := os.Stat(filepath.Join("..", "..", path)); err == nil {
			path = filepath.Join("..", "..", path)
		}
	}
	return config.Load(path)
}
