// Command facetract-server serves face detection over HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/Tutortoise/facetract/detections"
	"github.com/Tutortoise/facetract/internal/config"
	"github.com/Tutortoise/facetract/internal/log"
	"github.com/Tutortoise/facetract/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	logger, err := log.NewLogger(log.Options{Level: level, File: cfg.LogFile})
	if err != nil {
		logrus.Fatalf("Failed to create logger: %v", err)
	}

	detector, err := detections.Load(cfg.DetectorConfig(), cfg.DetectorOptions()...)
	if err != nil {
		logger.Fatalf("Failed to load detector: %v", err)
	}
	defer detections.DestroyRuntime()

	logger.WithFields(log.Fields{
		"min_size":       cfg.MinSize,
		"factor":         cfg.Factor,
		"thresholds":     cfg.Thresholds,
		"max_concurrent": cfg.MaxConcurrent,
	}).Info("Detector loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.New(cfg, detector, logger).Run(ctx); err != nil {
		logger.Errorf("Server stopped: %v", err)
		detections.DestroyRuntime()
		os.Exit(1)
	}
}
