package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"tgbridge/internal/bot"
	"tgbridge/internal/config"
	"tgbridge/internal/dispatch"
	"tgbridge/internal/fetcher"
	"tgbridge/internal/lifecycle"
	"tgbridge/internal/render"
	"tgbridge/internal/scheduler"
	"tgbridge/internal/settings"
	"tgbridge/internal/storage"
	"tgbridge/internal/telegram"
)

func main() {
	cfgPath := flag.String("config", envOrDefault("TGBRIDGE_CONFIG", "./config.yaml"), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		log.Error("create data directory", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	store, err := storage.NewSQLite(filepath.Join(cfg.DataDir, "bridge.db"))
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	sets, err := settings.Open(filepath.Join(cfg.DataDir, "settings.json"))
	if err != nil {
		log.Error("open settings", "error", err)
		os.Exit(1)
	}

	dial := telegram.NewDial(telegram.Options{
		APIID:   cfg.APIID,
		APIHash: cfg.APIHash,
		Session: func() string { return sets.Get(settings.KeySession) },
	})

	fetch := fetcher.New(dial, cfg.MaxMediaBytes, log)
	lc := lifecycle.New(store, fetch, log)

	b, err := bot.New(cfg.BotToken, store, cfg, sets, fetch, lc, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	sched := scheduler.New(store, dial, fetch, render.New(log), dispatch.New(store, b, log), log)
	sched.SetInterval(cfg.PollIntervalD())
	sched.SetMinSleep(cfg.MinSleepD())
	sched.SetChannelPause(cfg.ChannelPauseD())
	sched.SetBatchLimit(cfg.BatchLimit)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting bridge")

	go sched.Run(ctx)

	b.Run(ctx)

	log.Info("bridge stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
