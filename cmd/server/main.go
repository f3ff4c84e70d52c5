package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"remail/internal/mailbox"
	"remail/internal/platform/config"
	"remail/internal/platform/httpserver"
	"remail/internal/platform/logger"
	"remail/internal/resend/handler"
	"remail/internal/resend/metrics"
	"remail/internal/resend/monitor"
	"remail/internal/resend/notifier"
	"remail/internal/resend/service"
	"remail/internal/resend/store/auditlog"
	"remail/internal/sender"
	"remail/pkg/platform/middleware/auth"
	"remail/pkg/platform/middleware/request"
	"remail/pkg/platform/middleware/requesttime"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	store := auditlog.NewFileStore(cfg.LogFile, log)
	alerts := notifier.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID, log, notifier.WithMetrics(m))
	rateMonitor := monitor.New(store, alerts, cfg.AlertLimit, cfg.AlertWindow,
		monitor.WithLogger(log),
		monitor.WithMetrics(m),
	)
	svc := service.New(
		mailbox.New(cfg.IMAP),
		sender.New(cfg.GmailToken),
		store,
		alerts,
		rateMonitor,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithAlertEveryResend(cfg.AlertEveryResend),
	)

	router := chi.NewRouter()
	router.Use(request.Middleware)
	router.Use(requesttime.Middleware)
	router.Use(auth.Actor(cfg.JWTSigningKey, log))
	handler.New(svc, log).Register(router)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting resend console",
		"addr", cfg.Addr,
		"alert_limit", cfg.AlertLimit,
		"alert_window", cfg.AlertWindow,
		"alert_every_resend", cfg.AlertEveryResend,
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
