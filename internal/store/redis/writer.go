package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"candlewatch/internal/model"
)

const (
	defaultStreamMaxLen = 10000
	defaultLatestTTL    = 30 * time.Minute
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr         string // Redis address, e.g. "localhost:6379"
	Password     string
	DB           int
	StreamMaxLen int64 // approximate XADD trim length
}

// Writer publishes report events to Redis Streams and Pub/Sub.
type Writer struct {
	client *goredis.Client
	maxLen int64
	newID  func() string
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	maxLen := cfg.StreamMaxLen
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Writer{client: client, maxLen: maxLen, newID: uuid.NewString}, nil
}

// Write sends every event in r in a single pipeline: XADD to the symbol's
// stream, PUBLISH on its channel, and SET of the whole report as latest.
func (w *Writer) Write(ctx context.Context, r model.Report) error {
	envs := model.Envelopes(r)
	if len(envs) == 0 {
		return nil
	}

	stream := StreamKey(r.Symbol)
	channel := PubSubChannel(r.Symbol)

	pipe := w.client.Pipeline()
	for i := range envs {
		envs[i].ID = w.newID()
		data := string(envs[i].JSON())
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: stream,
			MaxLen: w.maxLen,
			Approx: true,
			Values: map[string]interface{}{
				"type": string(envs[i].Type),
				"data": data,
			},
		})
		pipe.Publish(ctx, channel, data)
	}
	pipe.Set(ctx, LatestKey(r.Symbol), string(r.JSON()), defaultLatestTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline %s (%d events): %w", r.Symbol, len(envs), err)
	}
	return nil
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
