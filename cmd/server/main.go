package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"spotbot/internal/config"
	"spotbot/internal/exchange"
	"spotbot/internal/notify"
	"spotbot/internal/poller"
	"spotbot/internal/server"
	"spotbot/internal/storage"
	"spotbot/internal/trading"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(lvl)

	// Trade storage. The assistant still works without it (dry runs,
	// signal queries), so a missing database is loud but not fatal.
	var db *storage.DB
	var recorder trading.Recorder
	var store server.TradeStore
	db, err = storage.New(storage.ConnectionParams{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Error().Err(err).Msg("database unavailable, trades will not be recorded")
	} else {
		defer db.Close()
		recorder = db
		store = db
	}

	client := exchange.New(exchange.Config{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.APIBaseURL,
		Timeout:   cfg.RequestTimeout,
	})

	trader := trading.New(client, recorder, trading.Options{
		AllowTestOrders: cfg.UseTestOrder,
		DryRun:          cfg.DryRun,
		SpendQuote:      cfg.SpendQuote,
	})

	notifier, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Error().Err(err).Msg("telegram notifier unavailable, alerts disabled")
	}

	var pollerNotifier poller.Notifier
	if notifier != nil {
		pollerNotifier = notifier
	}
	p := poller.New(trader, pollerNotifier, poller.Config{
		Symbol:   cfg.Symbol,
		Interval: cfg.Interval,
		Every:    cfg.PollInterval,
	})
	defer p.Stop()

	srv := server.New(trader, client, p, store, server.Config{
		AdminToken:     cfg.AdminToken,
		AllowedOrigins: cfg.AllowedOrigins,
		Symbol:         cfg.Symbol,
		Interval:       cfg.Interval,
	})

	httpServer := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().
			Str("addr", cfg.AppAddr).
			Str("symbol", cfg.Symbol).
			Bool("dry_run", cfg.DryRun).
			Bool("use_test_order", cfg.UseTestOrder).
			Msg("server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
}
