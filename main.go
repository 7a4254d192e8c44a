package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"startype/config"
	shttp "startype/http"
	"startype/logging"
	"startype/ml"
	"startype/monitoring"
	"startype/predict"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. Load config
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// 2. Load the pipeline; the service does not start without one
	pipeline, closer, err := openPipeline(cfg.Model, logger)
	if err != nil {
		logger.Fatal("failed to load pipeline", zap.String("path", cfg.Model.Path), zap.Error(err))
	}
	defer closer()

	service, err := predict.NewService(pipeline, logger)
	if err != nil {
		logger.Fatal("pipeline rejected", zap.Error(err))
	}

	// 3. Start HTTP server
	handler := shttp.NewHandler(service, monitoring.NewPredictionMetrics(), logger)
	server := shttp.NewServer(shttp.ServerConfig{
		Port:           cfg.Server.Port,
		Timeout:        cfg.Server.Timeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, handler, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 4. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", zap.String("addr", server.Addr()), zap.Error(err))
		}
	}

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
}

func openPipeline(cfg config.ModelConfig, logger *zap.Logger) (ml.Pipeline, func(), error) {
	if cfg.Watch {
		reloading, err := ml.NewReloadingPipeline(cfg.Path, ml.FeatureNames(), logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("pipeline loaded with hot reload", zap.String("path", cfg.Path), zap.String("version", reloading.Version()))
		return reloading, func() { reloading.Close() }, nil
	}

	pipeline, err := ml.LoadPipeline(cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("pipeline loaded", zap.String("path", cfg.Path), zap.String("version", pipeline.Version()))
	return pipeline, func() {}, nil
}

// loadConfig also looks one directory up so the binaries run from cmd/.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && !filepath.IsAbs(path) {
		if _, err := os.Stat(filepath.Join("..", path)); err == nil {
			path = filepath.Join("..", path)
		}
	}
	return config.Load(path)
}
