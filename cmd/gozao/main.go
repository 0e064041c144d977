package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gozaobot/gozao/internal/bot"
	"github.com/gozaobot/gozao/internal/config"
	"github.com/gozaobot/gozao/internal/feed"
	"github.com/gozaobot/gozao/internal/llm"
	"github.com/gozaobot/gozao/internal/logger"
	"github.com/gozaobot/gozao/internal/metrics"
	"github.com/gozaobot/gozao/internal/news"
	"github.com/gozaobot/gozao/internal/ratelimit"
	"github.com/gozaobot/gozao/internal/resolver"
	"github.com/gozaobot/gozao/internal/retry"
	"github.com/gozaobot/gozao/internal/scheduler"
	"github.com/gozaobot/gozao/internal/session"
	"github.com/gozaobot/gozao/internal/shortener"
	"github.com/gozaobot/gozao/internal/telegram"
)

// memes the bot hands out when asked without a channel argument.
var memes = []string{
	"https://cdn.gozao.chat/memes/paizao.jpeg",
	"https://cdn.gozao.chat/memes/chorao-skate-board.jpeg",
	"https://cdn.gozao.chat/memes/eahnnnnnn.jpeg",
}

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	sources, err := feed.LoadSources(cfg.FeedsConfigPath)
	if err != nil {
		log.Fatalf("failed to load feed sources: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gatewayOpts := []llm.GatewayOption{}
	if cfg.MaxDailyRequests > 0 {
		gatewayOpts = append(gatewayOpts, llm.WithQuota(ratelimit.New(cfg.MaxDailyRequests, 0)))
	}
	if cfg.OpenAIAPIKey != "" {
		gatewayOpts = append(gatewayOpts, llm.WithOpenAIFallback(cfg.OpenAIAPIKey))
	}
	gateway, err := llm.NewGateway(ctx, cfg.GeminiAPIKey, cfg.Models, gatewayOpts...)
	if err != nil {
		log.Fatalf("failed to create model gateway: %v", err)
	}
	defer gateway.Close()

	var short news.LinkShortener = shortener.Noop{}
	if cfg.ShortenerEnabled {
		short = shortener.New(cfg.ShortenerTTL)
	}

	pipeline := news.New(feed.NewFetcher(), gateway, short, resolver.New(), sources, news.Config{
		Timeout:        cfg.AggregationTimeout,
		MaxAge:         cfg.MaxCandidateAge,
		TrendingFanout: cfg.TrendingFanout,
	})

	client := telegram.NewClient(cfg.BotToken, retry.Config{
		MaxAttempts: cfg.RetryAttempts,
		Delay:       cfg.RetryDelay,
		Backoff:     true,
	})

	broadcaster := scheduler.New(pipeline, bot.TruncatingSender{
		Sender:     client,
		Ceiling:    cfg.MessageCeiling,
		TruncateAt: cfg.TruncateAt,
	}, cfg.BroadcastInterval, cfg.BroadcastItems)

	b := bot.New(bot.Config{
		Prefix:       cfg.CommandPrefix,
		Ceiling:      cfg.MessageCeiling,
		TruncateAt:   cfg.TruncateAt,
		DefaultTopic: cfg.NewsTopicDefault,
		NewsItems:    cfg.NewsItems,
		UrgentItems:  cfg.BroadcastItems,
		Memes:        memes,
	}, session.NewMemoryStore(bot.Persona, session.WithTimeout(cfg.SessionTimeout)), gateway, pipeline, broadcaster, client)

	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		go startMonitoringServer()
	}

	go broadcaster.Run(ctx)

	logger.Info("gozao is up", "models", cfg.Models, "sources", len(sources.Sources))
	client.Poll(ctx, func(u telegram.Update) {
		if u.Message == nil || u.Message.Text == "" {
			return
		}
		channel := strconv.FormatInt(u.Message.Chat.ID, 10)
		user := ""
		if u.Message.From != nil {
			user = u.Message.From.Username
			if user == "" {
				user = strconv.FormatInt(u.Message.From.ID, 10)
			}
		}
		b.HandleMessage(ctx, channel, user, u.Message.Text)
	})
}

func startMonitoringServer() {
	port := os.Getenv("MONITORING_PORT")
	if port == "" {
		port = "8080"
	}

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/metrics", metricsHandler)

	log.Printf("Starting monitoring server on port %s", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Printf("Monitoring server error: %v", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	if !stats["is_healthy"].(bool) {
		status = "error"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response := map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
