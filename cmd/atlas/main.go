package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"atlas/internal/config"
	"atlas/internal/feed"
	"atlas/internal/judge"
	"atlas/internal/model"
	"atlas/internal/notify"
	"atlas/internal/pipeline"
	"atlas/internal/quality"
	"atlas/internal/queue"
	"atlas/internal/scheduler"
	"atlas/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	sources, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		log.Error("load sources", "path", cfg.SourcesPath, "error", err)
		os.Exit(1)
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	var notifier notify.Notifier = notify.Discard{}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, log.With("component", "notify"))
		if err != nil {
			log.Error("create notifier", "error", err)
			os.Exit(1)
		}
		notifier = tg
	}

	pipe := pipeline.New(pipeline.Deps{
		Feeds:    feed.New(http.DefaultClient),
		Content:  pipeline.NewHTTPContent(http.DefaultClient),
		Judge:    judge.New(),
		Scorer:   quality.NewScorer(),
		Store:    store,
		Notifier: notifier,
		Queue:    queue.New(cfg.MaxRetries),
		Log:      log.With("component", "pipeline"),
	})

	sched := scheduler.New(cfg.DailyQuota, log.With("component", "scheduler"))
	sched.SetTickInterval(cfg.CheckInterval)
	sched.SetTaskTimeout(cfg.TaskTimeout)

	for _, src := range sources {
		src := src
		runner := pipe.Runner(src, func(freq model.UpdateFrequency) {
			if err := sched.SetAdaptiveInterval(src.Name, freq); err != nil {
				log.Warn("adapt interval", "task", src.Name, "error", err)
			}
		})
		info := map[string]string{
			"kind":     string(src.Kind),
			"feed_url": src.FeedURL,
		}
		if err := sched.AddTask(src.Name, runner, src.Interval(), src.Priority, info); err != nil {
			log.Error("register task", "task", src.Name, "error", err)
			os.Exit(1)
		}
	}

	if err := sched.AddTask("quality-summary", summaryRunner(store, notifier, log),
		24*time.Hour, 100, map[string]string{"kind": "internal"}); err != nil {
		log.Error("register summary task", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting atlas", "sources", len(sources), "daily_quota", cfg.DailyQuota)

	sched.Run(ctx)

	log.Info("atlas stopped")
}

// summaryRunner posts a daily accepted/rejected tally to the notifier.
func summaryRunner(store storage.Storage, notifier notify.Notifier, log *slog.Logger) scheduler.Runner {
	return func(ctx context.Context) error {
		accepted, rejected, err := store.ReportCounts(ctx)
		if err != nil {
			return err
		}
		notifier.Notify(notify.FormatSummary(accepted, rejected))
		log.Info("quality summary", "accepted", accepted, "rejected", rejected)
		return nil
	}
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
