package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/polycopy/config"
	"github.com/alejandrodnm/polycopy/internal/adapters/journal"
	"github.com/alejandrodnm/polycopy/internal/adapters/notify"
	"github.com/alejandrodnm/polycopy/internal/adapters/polymarket"
	"github.com/alejandrodnm/polycopy/internal/adapters/storage"
	"github.com/alejandrodnm/polycopy/internal/domain"
	"github.com/alejandrodnm/polycopy/internal/follower"
	"github.com/alejandrodnm/polycopy/internal/report"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	if len(cfg.Copier.Wallets) == 0 {
		slog.Error("no wallets configured under copier.wallets")
		os.Exit(1)
	}
	if cfg.Auth.PrivateKey == "" {
		slog.Error("POLYMARKET_PRIVATE_KEY not set")
		os.Exit(1)
	}

	slog.Info("polycopy starting",
		"config", *configPath,
		"wallets", len(cfg.Copier.Wallets),
		"interval", cfg.PollInterval(),
		"strategy", cfg.Strategy.Mode,
		"order_type", cfg.Risk.OrderType,
	)

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase, cfg.API.DataBase)

	auth, err := polymarket.NewAuthClient(client, cfg.Auth.PrivateKey, cfg.Auth.FunderAddress, cfg.Auth.SignatureType)
	if err != nil {
		slog.Error("failed to init signing", "err", err)
		os.Exit(1)
	}
	trader, err := polymarket.NewTradingClient(auth, cfg.API.RPCURL)
	if err != nil {
		slog.Error("failed to init trading client", "err", err)
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	jrnl := journal.NewFileJournal(cfg.Journal.Dir)
	defer jrnl.Close()

	console := notify.NewConsole()
	email := notify.NewEmail(notify.EmailConfig{
		Host:     cfg.Alerts.SMTPServer,
		Port:     cfg.Alerts.SMTPPort,
		User:     cfg.Alerts.SMTPUser,
		Password: cfg.Alerts.SMTPPassword,
		To:       cfg.Alerts.Receiver,
	})

	funds := follower.NewFunds(trader)
	sizer := follower.NewSizer(funds, client, email, follower.SizerConfig{
		MinBalance: cfg.Risk.MinBalanceUSDC,
		OrderType:  domain.OrderType(cfg.Risk.OrderType),
	})
	strat := domain.Strategy{
		Mode:  domain.StrategyMode(cfg.Strategy.Mode),
		Param: cfg.Strategy.Param,
	}

	sup := follower.NewSupervisor(
		client,
		console,
		follower.MonitorConfig{
			PollInterval: cfg.PollInterval(),
			FetchLimit:   cfg.Copier.FetchLimit,
		},
		strat, sizer, funds, trader, jrnl, store,
	)

	reporter := report.NewReporter(store, console, email, cfg.Report.Schedule)
	if err := reporter.Start(); err != nil {
		slog.Error("failed to schedule daily report", "err", err)
		os.Exit(1)
	}
	defer reporter.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go watchReload(ctx, *configPath, sup)

	if err := sup.Run(ctx, cfg.Copier.Wallets); err != nil {
		slog.Error("copier exited with error", "err", err)
		os.Exit(1)
	}

	// FOK nunca deja órdenes en el book; GTC/GTD sí.
	if cfg.Risk.OrderType != string(domain.OrderFOK) {
		cancelResting(trader)
	}

	slog.Info("polycopy stopped cleanly")
}

// watchReload relee la estrategia del YAML en cada SIGHUP y la aplica en
// caliente sin reiniciar los monitores.
func watchReload(ctx context.Context, path string, sup *follower.Supervisor) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := config.Load(path)
			if err != nil {
				slog.Error("reload failed, keeping current strategy", "err", err)
				continue
			}
			strat := domain.Strategy{
				Mode:  domain.StrategyMode(cfg.Strategy.Mode),
				Param: cfg.Strategy.Param,
			}
			sup.UpdateStrategy(strat)
			slog.Info("strategy reloaded", "mode", strat.Mode, "param", strat.Param)
		}
	}
}

// cancelResting limpia las órdenes que pudieran quedar abiertas en el book
// al apagar. Best-effort: en el peor caso expiran solas (GTD) o quedan como
// órdenes pasivas (GTC).
func cancelResting(trader *polymarket.TradingClient) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := trader.CancelAll(ctx); err != nil {
		slog.Warn("failed to cancel resting orders", "err", err)
		return
	}
	slog.Info("resting orders cancelled")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
