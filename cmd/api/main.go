package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"tisops-insights-go/internal/config"
	"tisops-insights-go/internal/logger"
	"tisops-insights-go/internal/metrics"
	"tisops-insights-go/internal/notify"
	"tisops-insights-go/internal/processor"
	"tisops-insights-go/internal/scheduler"
	"tisops-insights-go/internal/server"
	"tisops-insights-go/internal/store"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "tisops-insights-go").Info("starting service")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	metrics.Init()

	st, err := store.InitDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer st.Close()

	if cfg.RegistrySeedPath != "" {
		if _, err := st.SeedFromFile(context.Background(), cfg.RegistrySeedPath); err != nil {
			log.WithError(err).WithField("path", cfg.RegistrySeedPath).Fatal("failed to seed registries")
		}
	}

	svc := processor.NewService(st, cfg.StatusTiers, cfg.Location)

	if spec := strings.TrimSpace(cfg.WeeklyReportSchedule); spec != "" {
		var notifier scheduler.Notifier
		if cfg.SlackConfigured() {
			notifier = notify.NewSlack(cfg.SlackBotToken, cfg.SlackChannelID)
		} else {
			log.Info("slack not configured, weekly summary will only be written to disk")
		}
		sched := scheduler.New(svc, notifier, cfg.ReportOutputDir, cfg.Location)
		if err := sched.Start(spec); err != nil {
			log.WithError(err).Fatal("failed to start scheduler")
		}
		defer sched.Stop()
	}

	if os.Getenv("ENVIRONMENT") != "" && os.Getenv("ENVIRONMENT") != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(svc, st, cfg.MaxUploadMB).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).WithField("timezone", cfg.Timezone).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("stopped")
}
