package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gatherly/config"
	"gatherly/internal/adapters/auth"
	"gatherly/internal/adapters/email"
	delivery "gatherly/internal/delivery/http"
	"gatherly/internal/delivery/http/controllers"
	"gatherly/internal/delivery/http/middleware"
	"gatherly/internal/domain"
	"gatherly/internal/repository/dualwrite"
	mongostore "gatherly/internal/repository/mongo"
	"gatherly/internal/repository/postgres"
	"gatherly/internal/repository/seed"
	"gatherly/internal/services"
)

// @title Gatherly API
// @version 1.0
// @description Event and calendar management with invitation tracking.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger := config.NewLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Primary store. A missing or unreachable primary is not fatal: reads
	// fall back to the secondary store or the seed dataset, and the process
	// reports itself degraded instead of refusing to start.
	var (
		primaryEvents    domain.EventStore
		primaryCalendars domain.CalendarStore
	)
	mongoClient, err := mongostore.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logger.Warn("primary store unavailable, starting degraded", "err", err)
	} else {
		defer func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mongoClient.Disconnect(disconnectCtx); err != nil {
				logger.Warn("primary store disconnect failed", "err", err)
			}
		}()
		db := mongoClient.Database(cfg.MongoDB)
		if err := mongostore.EnsureEventIndexes(ctx, db); err != nil {
			logger.Warn("failed to ensure event indexes", "err", err)
		}
		if err := mongostore.EnsureCalendarIndexes(ctx, db); err != nil {
			logger.Warn("failed to ensure calendar indexes", "err", err)
		}
		primaryEvents = mongostore.NewEventStore(db)
		primaryCalendars = mongostore.NewCalendarStore(db)
	}

	// Relational store. Unlike the primary it is required: it owns the
	// invitation and subscription tables, their unique constraints, and the
	// counter triggers.
	db, err := postgres.Open(cfg.PostgresURL)
	if err != nil {
		logger.Error("relational store is required", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	secondaryEvents := postgres.NewEventMirrorRepository(db)
	secondaryCalendars := postgres.NewCalendarMirrorRepository(db)
	invitationRepo := postgres.NewInvitationRepository(db)
	subscriptionRepo := postgres.NewSubscriptionRepository(db)

	seeds := seed.New()
	eventRepo := dualwrite.NewEventRepository(primaryEvents, secondaryEvents, seeds, logger)
	calendarRepo := dualwrite.NewCalendarRepository(primaryCalendars, secondaryCalendars, seeds, logger)

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Mailer.Provider,
		FromAddress: cfg.Mailer.FromAddress,
		FromName:    cfg.Mailer.FromName,
		SES: email.SESConfig{
			Region:             cfg.Mailer.SESRegion,
			AccessKeyID:        cfg.Mailer.SESAccessKeyID,
			SecretAccessKey:    cfg.Mailer.SESSecretAccessKey,
			InsecureSkipVerify: cfg.Mailer.SESInsecureTLS,
		},
	}, logger)
	if err != nil {
		logger.Error("failed to create mailer", "err", err)
		os.Exit(1)
	}

	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)
	eventService := services.NewEventService(eventRepo, invitationRepo, cfg.RequestTimeout)
	calendarService := services.NewCalendarService(calendarRepo, subscriptionRepo, cfg.RequestTimeout)
	invitationService := services.NewInvitationService(invitationRepo, eventRepo, emailService, cfg.PublicBaseURL, cfg.RequestTimeout, logger)

	tokens := auth.NewJWT(cfg.JWTSecret)
	requireAuth := middleware.RequireAuth(tokens, logger)

	mux := delivery.NewRouter(
		controllers.NewEventController(logger, eventService),
		controllers.NewCalendarController(logger, calendarService),
		controllers.NewInvitationController(logger, invitationService),
		controllers.NewTrackingController(logger, invitationService, cfg.PublicBaseURL),
		requireAuth,
	)

	handler := middleware.CORS(cfg.AllowedOrigins, middleware.LoggingMiddleware(logger, mux))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr, "env", cfg.Environment)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}
