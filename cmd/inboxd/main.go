// Package main is the entry point for the inbox sync daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/raitha-mitra/inbox-sync/internal/backend"
	"github.com/raitha-mitra/inbox-sync/internal/badge"
	"github.com/raitha-mitra/inbox-sync/internal/config"
	"github.com/raitha-mitra/inbox-sync/internal/events"
	"github.com/raitha-mitra/inbox-sync/internal/handler"
	natsclient "github.com/raitha-mitra/inbox-sync/internal/nats"
	"github.com/raitha-mitra/inbox-sync/internal/notify"
	"github.com/raitha-mitra/inbox-sync/internal/session"
	"github.com/raitha-mitra/inbox-sync/pkg/logger"
	"github.com/raitha-mitra/inbox-sync/pkg/tracing"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	if err := run(cfg, log); err != nil {
		log.Error("inboxd exited with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("inboxd stopped")
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting inboxd",
		zap.String("backend", cfg.BackendURL),
		zap.Bool("logged_in", cfg.LoggedIn),
	)

	// Initialize tracing if enabled
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "inboxd", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	client, err := backend.New(backend.Config{
		BaseURL:            cfg.BackendURL,
		Timeout:            cfg.BackendTimeout,
		SessionCookieName:  cfg.SessionCookieName,
		SessionCookie:      cfg.SessionCookie,
		RateLimit:          cfg.BackendRateLimit,
		BreakerMaxFailures: cfg.BreakerMaxFailures,
		BreakerOpenTimeout: cfg.BreakerOpenTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("create backend client: %w", err)
	}

	bus := events.NewBus()
	notices := notify.NewCenter(cfg.NotificationTTL, bus, log)
	defer notices.Close()

	opts := session.DefaultOptions()
	opts.PollInterval = cfg.InboxPollInterval
	opts.MaxBackoff = cfg.PollMaxBackoff
	opts.ReadRefreshDelay = cfg.ReadRefreshDelay
	opts.SearchDebounce = cfg.SearchDebounce
	opts.SearchMinChars = cfg.SearchMinChars
	opts.ExplicitReadReceipts = cfg.ExplicitReadReceipt
	sess := session.New(client, notices, bus, opts, log)

	badges := badge.New(client, bus, badge.Options{
		UserID:     cfg.UserID,
		LoggedIn:   cfg.LoggedIn,
		Interval:   cfg.BadgePollInterval,
		MaxBackoff: cfg.PollMaxBackoff,
		Title:      cfg.PageTitle,
	}, log)

	g, gctx := errgroup.WithContext(ctx)

	// Connect to NATS when the bridge is enabled
	var natsCheck handler.ConnectionChecker
	if cfg.NATSEnabled {
		nc, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer nc.Close()

		if err := natsclient.EnsureStream(ctx, nc.JetStream()); err != nil {
			return fmt.Errorf("ensure stream: %w", err)
		}
		natsCheck = nc

		bridge := natsclient.NewBridge(nc.JetStream(), bus, cfg.UserID, log)
		g.Go(func() error {
			return bridge.Run(gctx)
		})
	}

	// Initialize handlers
	inboxHandler := handler.NewInboxHandler(sess, badges, notices, log)
	router := handler.NewRouter(handler.RouterConfig{
		JWTSecret:         cfg.JWTSecret,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		CORSOrigins:       cfg.CORSOrigins,
	}, handler.Handlers{
		Health:  handler.NewHealthHandler(natsCheck, client.BreakerOpen),
		Inbox:   inboxHandler,
		Thread:  handler.NewThreadHandler(sess, log),
		Compose: handler.NewComposeHandler(sess, log),
		Badges:  handler.NewBadgeHandler(badges, notices, log),
		Stream:  handler.NewStreamHandler(bus, inboxHandler.Page, log),
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	if err := sess.Start(gctx); err != nil {
		return fmt.Errorf("start inbox poller: %w", err)
	}
	if err := badges.Start(gctx); err != nil {
		return fmt.Errorf("start badge poller: %w", err)
	}

	g.Go(func() error {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		sess.Stop()
		badges.Stop()
		return err
	})

	return g.Wait()
}
