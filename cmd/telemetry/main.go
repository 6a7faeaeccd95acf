// Package main starts the edge gateway telemetry publisher.
package main

import (
	"context"
	"os"
	"time"

	"github.com/ibs-source/edge-gateway/internal/config"
	"github.com/ibs-source/edge-gateway/internal/lifecycle"
	"github.com/ibs-source/edge-gateway/internal/log"
	"github.com/ibs-source/edge-gateway/internal/metrics"
	"github.com/ibs-source/edge-gateway/internal/mqtt"
	"github.com/ibs-source/edge-gateway/internal/status"
	"github.com/ibs-source/edge-gateway/internal/telemetry"
)

type services struct {
	conn            *mqtt.Client
	trackerDone     chan struct{}
	loop            *telemetry.Loop
	metricsShutdown func(context.Context) error
}

func run() int {
	logger := log.New()
	logger.Info("Starting edge gateway telemetry publisher")

	cfg, err := loadAndLogConfig(logger)
	if err != nil {
		return 1
	}

	ctrl := lifecycle.New(context.Background(), logger)
	defer ctrl.Stop()

	svc, err := initializeServices(ctrl.Context(), cfg, logger)
	if svc != nil {
		defer closeServices(svc, logger)
	}
	if err != nil {
		logger.Error("Failed to initialize services: %v", err)
		return 1
	}

	return runMainLoop(ctrl, svc.loop, cfg, logger)
}

func loadAndLogConfig(logger *log.Logger) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		return nil, err
	}
	logger.SetLevel(cfg.Log.Level)
	cfg.MQTT.ClientID += "-telemetry"

	logger.Info("Configuration loaded successfully")
	logger.Info("MQTT: %s, Client: %s, Output: %s (qos %d)", cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.OutputTopic, cfg.MQTT.QoS)
	logger.Info("Telemetry: Interval=%s, MaxConsecutiveFailures=%d", telemetry.Interval, cfg.Telemetry.MaxConsecutiveFailures)
	return cfg, nil
}

// initializeServices returns the services created so far even on error so the caller can release them
func initializeServices(ctx context.Context, cfg *config.Config, logger *log.Logger) (*services, error) {
	svc := &services{}

	mp, shutdown, err := metrics.InitProvider(ctx, cfg.Metrics, cfg.MQTT.ClientID)
	if err != nil {
		return nil, err
	}
	svc.metricsShutdown = shutdown
	m, err := metrics.New(mp)
	if err != nil {
		return svc, err
	}

	conn, err := mqtt.NewClient(&cfg.MQTT, logger)
	if err != nil {
		return svc, err
	}
	svc.conn = conn

	tracker := status.NewTracker(logger, m)
	svc.trackerDone = make(chan struct{})
	go func() {
		defer close(svc.trackerDone)
		tracker.Run(conn.StatusChanges())
	}()

	if err := conn.Connect(ctx); err != nil {
		return svc, err
	}
	logger.Info("Connected to MQTT broker")

	svc.loop = telemetry.NewLoop(conn, telemetry.NewGenerator(), cfg, logger, m)
	return svc, nil
}

func closeServices(svc *services, logger *log.Logger) {
	if svc.conn != nil {
		if err := svc.conn.Close(); err != nil {
			logger.Error("Error closing MQTT client: %v", err)
		}
		<-svc.trackerDone
	}
	if svc.metricsShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := svc.metricsShutdown(ctx); err != nil {
			logger.Error("Error shutting down metrics: %v", err)
		}
	}
}

func runMainLoop(ctrl *lifecycle.Controller, loop *telemetry.Loop, cfg *config.Config, logger *log.Logger) int {
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctrl.Context())
	}()

	logger.Info("Telemetry loop started")

	select {
	case <-ctrl.Done():
		logger.Info("Shutdown triggered by %s, initiating graceful shutdown", ctrl.Cause())
		return handleGracefulShutdown(done, loop, cfg, logger)

	case err := <-done:
		if err != nil {
			logger.Error("Telemetry loop error: %v", err)
			ctrl.Fire(lifecycle.ReasonFatal)
			return 1
		}
		return 0
	}
}

func handleGracefulShutdown(done <-chan error, loop *telemetry.Loop, cfg *config.Config, logger *log.Logger) int {
	timer := time.NewTimer(cfg.Lifecycle.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-done:
		logger.Info("Graceful shutdown completed")
		logger.Info("Telemetry publisher stopped after %d readings", loop.Published())
		return 0
	case <-timer.C:
		logger.Error("Shutdown timeout exceeded")
		return 1
	}
}

func main() {
	// Keep main minimal to ensure defers in run() execute correctly.
	os.Exit(run())
}
