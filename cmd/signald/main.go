// cmd/signald is the long-running candlewatch daemon. On a cron schedule it
// pulls new bars from SQLite, runs them through the pattern and momentum
// core, and fans each report out to the event journal, Redis, the WebSocket
// gateway and alert channels.
//
// Usage:
//
//	go run ./cmd/signald --config=config.yaml --env=.env
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"candlewatch/config"
	"candlewatch/internal/bus"
	"candlewatch/internal/gateway"
	"candlewatch/internal/logger"
	"candlewatch/internal/metrics"
	"candlewatch/internal/model"
	"candlewatch/internal/notification"
	"candlewatch/internal/scheduler"
	"candlewatch/internal/session"
	redisstore "candlewatch/internal/store/redis"
	sqlitestore "candlewatch/internal/store/sqlite"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to YAML config (optional)")
	envPath := flag.String("env", ".env", "Path to .env file (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, *envPath)
	if err != nil {
		log.Fatalf("[signald] config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[signald] config: %v", err)
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("[signald] config: %v", err)
	}
	logger.Init("signald", level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[signald] shutting down")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		slog.Error("signald failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus(cfg.Symbol)

	// ── Storage ──
	journal, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.Storage.SQLitePath}, m)
	if err != nil {
		return err
	}
	defer journal.Close()
	health.SetSQLiteOK(true)

	reader, err := sqlitestore.NewReader(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer reader.Close()

	sinks := []model.ReportSink{journal}

	var redisWriter *redisstore.Writer
	if cfg.Storage.RedisAddr != "" {
		health.SetRedisEnabled(true)
		redisWriter, err = redisstore.New(redisstore.WriterConfig{
			Addr:         cfg.Storage.RedisAddr,
			Password:     cfg.Storage.RedisPassword,
			StreamMaxLen: cfg.Storage.StreamMaxLen,
		})
		if err != nil {
			// Redis is optional; /healthz reports degraded until restart.
			slog.Warn("redis unavailable, events will not be streamed", "error", err)
		} else {
			defer redisWriter.Close()
			health.SetRedisConnected(true)
			cb := redisstore.NewCircuitBreaker(5, 30*time.Second)
			sinks = append(sinks, redisstore.NewPublisher(redisWriter, cb, 1000, m))
		}
	}

	// ── Display and alerts ──
	hub := gateway.NewHub(gateway.HubConfig{
		ReplaySize: 500,
		Auth:       gateway.NewAuthenticator(cfg.HTTP.JWTSecret),
	}, m)
	defer hub.Close()
	sinks = append(sinks, hub)

	notifiers := []notification.Notifier{notification.NewLogNotifier()}
	if cfg.Notify.Telegram.BotToken != "" {
		notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID))
	}
	if cfg.Notify.WebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.Notify.WebhookURL))
	}
	sinks = append(sinks, notification.NewSink(cfg.Notify.MinStrength, m, notifiers...))

	// ── HTTP ──
	metricsSrv := metrics.NewServer(cfg.HTTP.MetricsAddr, health, nil)
	metricsSrv.Handle("/api/patterns", recentPatternsHandler(reader, cfg.Symbol))
	metricsSrv.Start()

	gwSrv := &http.Server{
		Addr:              cfg.HTTP.GatewayAddr,
		Handler:           hub.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("[gateway] listening on %s", cfg.HTTP.GatewayAddr)
		if err := gwSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[gateway] server error: %v", err)
		}
	}()

	health.StartLivenessChecker(ctx, redisClientOf(redisWriter), journal.DB(), 15*time.Second)

	// ── Pipeline ──
	sess, err := session.New(cfg.SessionConfig(), m)
	if err != nil {
		return err
	}

	// Sinks outlive the signal so the last reports still reach them; they
	// are cancelled once the drain grace period ends.
	sinkCtx, cancelSinks := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelSinks()

	fo := bus.New(64)
	dispatcher := bus.NewDispatcher(fo, m)
	for _, s := range sinks {
		dispatcher.Attach(sinkCtx, s)
	}
	reports := make(chan model.Report, 16)
	go fo.Run(sinkCtx, reports)

	job := scheduler.NewJob(sess, reader, reports, health, m)
	sched, err := scheduler.New(ctx, cfg.Schedule.RefreshCron, job)
	if err != nil {
		return err
	}
	slog.Info("signald started",
		"symbol", cfg.Symbol,
		"refresh", cfg.Schedule.RefreshCron,
		"sinks", len(sinks),
	)
	sched.RunNow()
	sched.Start()

	<-ctx.Done()

	sched.Stop()
	close(reports)

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), 5*time.Second)
	if err := dispatcher.WaitContext(drainCtx); err != nil {
		log.Printf("[signald] sinks still draining at shutdown: %v", err)
	}
	cancelDrain()
	cancelSinks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	gwSrv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	return nil
}

func redisClientOf(w *redisstore.Writer) *goredis.Client {
	if w == nil {
		return nil
	}
	return w.Client()
}

// recentPatternsHandler serves the journal's newest pattern events as JSON.
// ?limit= caps the count (default 50).
func recentPatternsHandler(reader *sqlitestore.Reader, symbol string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
			limit = v
		}
		recs, err := reader.RecentPatterns(r.Context(), symbol, limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(recs)
	})
}
