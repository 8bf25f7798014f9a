package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	httpapi "github.com/home-hub/home-hub/internal/api/http"
	"github.com/home-hub/home-hub/internal/application/notify"
	"github.com/home-hub/home-hub/internal/application/orchestrator"
	"github.com/home-hub/home-hub/internal/application/skills"
	"github.com/home-hub/home-hub/internal/config"
	"github.com/home-hub/home-hub/internal/infrastructure/blob"
	"github.com/home-hub/home-hub/internal/infrastructure/hub"
	"github.com/home-hub/home-hub/internal/infrastructure/jsonstore"
	"github.com/home-hub/home-hub/internal/infrastructure/memory"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// stores
	settings, err := jsonstore.NewSettingsStore(cfg.DataDir, logger)
	if err != nil {
		log.Fatalf("settings store error: %v", err)
	}
	defer settings.Close()

	skillRepo, err := jsonstore.NewSkillRepository(cfg.DataDir, logger)
	if err != nil {
		log.Fatalf("skill store error: %v", err)
	}
	artifacts, err := jsonstore.NewArtifactStore(cfg.DataDir, logger)
	if err != nil {
		log.Fatalf("artifact store error: %v", err)
	}
	uploads, err := blob.NewStore(cfg.DataDir, logger)
	if err != nil {
		log.Fatalf("upload store error: %v", err)
	}

	// infrastructure
	eventHub := hub.NewHub(cfg.HubBuffer, logger)
	agentRepo := memory.NewAgentRepository(eventHub, logger)

	// services
	notifySvc := notify.NewService(eventHub, settings, logger)
	executors := orchestrator.NewExecutors(artifacts, cfg.ExecutorStepDelay)
	orchestratorSvc := orchestrator.NewService(agentRepo, skillRepo, settings, executors, notifySvc, cfg.InterruptGrace, logger)
	skillSvc := skills.NewService(skillRepo, logger)

	// API server
	apiServer := httpapi.NewServer(orchestratorSvc, skillSvc, notifySvc, settings, artifacts, uploads, eventHub, logger)

	httpServer := &http.Server{
		Addr:        cfg.ServerAddr,
		Handler:     apiServer.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// scheduled sweep of terminal agents
	var scheduler *cron.Cron
	if cfg.CleanupSchedule != "" {
		scheduler = cron.New()
		if _, err := scheduler.AddFunc(cfg.CleanupSchedule, func() {
			removed := orchestratorSvc.Cleanup()
			if removed > 0 {
				logger.Info().Int("removed", removed).Msg("scheduled cleanup swept terminal agents")
			}
		}); err != nil {
			log.Fatalf("cleanup schedule error: %v", err)
		}
		scheduler.Start()
	}

	// start server
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	orchestratorSvc.Shutdown(ctxShutdown)
	_ = httpServer.Shutdown(ctxShutdown)
	eventHub.Stop()
}
