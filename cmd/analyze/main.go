package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/polycopy/config"
	"github.com/alejandrodnm/polycopy/internal/adapters/notify"
	"github.com/alejandrodnm/polycopy/internal/adapters/polymarket"
	"github.com/alejandrodnm/polycopy/internal/analyzer"
)

func main() {
	wallet := flag.String("wallet", "", "proxy wallet address to analyze (required)")
	limit := flag.Int("limit", 1000, "max trades to fetch from the tape")
	configPath := flag.String("config", "", "optional path to config file (defaults used if empty)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	flag.Parse()

	if *wallet == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "err", err, "path", *configPath)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase, cfg.API.DataBase)
	cache := polymarket.NewSnapshotCache(client, 0)

	slog.Info("fetching trade tape", "wallet", *wallet, "limit", *limit)
	trades, err := client.FetchWalletTrades(ctx, *wallet, *limit)
	if err != nil {
		slog.Error("failed to fetch trades", "err", err)
		os.Exit(1)
	}
	if len(trades) == 0 {
		slog.Warn("wallet has no trade history", "wallet", *wallet)
		return
	}

	ledger := analyzer.NewLedger(cache)
	result, err := ledger.Reconcile(ctx, trades)
	if err != nil {
		slog.Error("reconciliation failed", "err", err)
		os.Exit(1)
	}

	pnls := make([]float64, 0, len(result.Events))
	for _, ev := range result.Events {
		pnls = append(pnls, ev.PnL)
	}
	report := analyzer.ComputeMetrics(pnls)

	notify.NewConsole().PrintLedger(*wallet, result, report)
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
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
