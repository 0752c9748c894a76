// Package redis publishes finished analysis summaries to Redis: the latest
// summary per symbol under a TTL'd key, and a pub/sub notification for
// live subscribers.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"trading-analysisv1/internal/metrics"
)

const (
	defaultLatestTTL    = 24 * time.Hour
	defaultMaxFailures  = 3
	defaultResetTimeout = 30 * time.Second
)

// LatestKey is the key holding the latest summary for symbol.
func LatestKey(symbol string) string { return "analysis:latest:" + symbol }

// Channel is the pub/sub channel announcing new summaries for symbol.
func Channel(symbol string) string { return "pub:analysis:" + symbol }

// WriterConfig configures the Redis connection.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration // latest-key expiry, 24h when zero
}

// store is the subset of Redis the publisher needs.
type store interface {
	setAndPublish(ctx context.Context, key, channel, payload string, ttl time.Duration) error
	get(ctx context.Context, key string) (string, error)
	close() error
}

// clientStore runs SET and PUBLISH in one pipeline round trip.
type clientStore struct {
	client *goredis.Client
}

func (c clientStore) setAndPublish(ctx context.Context, key, channel, payload string, ttl time.Duration) error {
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, payload, ttl)
	pipe.Publish(ctx, channel, payload)
	_, err := pipe.Exec(ctx)
	return err
}

func (c clientStore) get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

func (c clientStore) close() error { return c.client.Close() }

// Publisher writes summaries through a circuit breaker so an unreachable
// Redis costs one error per reset window instead of one per call.
type Publisher struct {
	store   store
	client  *goredis.Client
	cb      *CircuitBreaker
	ttl     time.Duration
	metrics *metrics.Metrics
	log     *slog.Logger
}

// New connects to Redis, pings it and returns a Publisher.
// m may be nil.
func New(cfg WriterConfig, m *metrics.Metrics) (*Publisher, error) {
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

	p := newPublisher(clientStore{client: client}, cfg.TTL, m)
	p.client = client
	p.log.Info("connected", "addr", cfg.Addr)
	return p, nil
}

func newPublisher(s store, ttl time.Duration, m *metrics.Metrics) *Publisher {
	if ttl <= 0 {
		ttl = defaultLatestTTL
	}
	p := &Publisher{
		store:   s,
		cb:      NewCircuitBreaker(defaultMaxFailures, defaultResetTimeout),
		ttl:     ttl,
		metrics: m,
		log:     slog.With("component", "redis"),
	}
	p.cb.OnStateChange = p.onStateChange
	return p
}

func (p *Publisher) onStateChange(from, to State) {
	p.log.Warn("circuit breaker state change", "from", from.String(), "to", to.String())
	if p.metrics == nil {
		return
	}
	p.metrics.RedisCircuitState.Set(float64(to))
	if to == StateOpen {
		p.metrics.RedisCircuitTrips.Inc()
	}
}

// Client returns the underlying Redis client for health checks.
// Nil when the publisher was built without a live connection.
func (p *Publisher) Client() *goredis.Client { return p.client }

// Publish stores payload as the latest summary for symbol and announces it.
func (p *Publisher) Publish(ctx context.Context, symbol string, payload []byte) error {
	err := p.cb.Execute(ctx, func(ctx context.Context) error {
		return p.store.setAndPublish(ctx, LatestKey(symbol), Channel(symbol), string(payload), p.ttl)
	})
	result := "ok"
	switch {
	case errors.Is(err, ErrCircuitOpen):
		result = "circuit_open"
	case err != nil:
		result = "error"
	}
	if p.metrics != nil {
		p.metrics.PublishTotal.WithLabelValues(result).Inc()
	}
	if err != nil {
		return fmt.Errorf("redis publish %s: %w", symbol, err)
	}
	p.log.Debug("published summary", "symbol", symbol, "bytes", len(payload))
	return nil
}

// Latest returns the last published summary for symbol, or nil if none.
func (p *Publisher) Latest(ctx context.Context, symbol string) ([]byte, error) {
	v, err := p.store.get(ctx, LatestKey(symbol))
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", LatestKey(symbol), err)
	}
	return []byte(v), nil
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.store.close()
}
