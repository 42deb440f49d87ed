package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"

	"github.com/xraph/hold/id"
)

// RedisScheduler keeps expiry triggers in a Redis sorted set scored by due
// time, so they survive process restarts and are shared across instances.
// Each poll claims due members with ZREM; only the instance that removes a
// member resolves it, which keeps delivery single-fire across a fleet. The
// conditioned status transition covers the rest.
type RedisScheduler struct {
	rdb *redis.Client

	key          string
	pollInterval time.Duration
	logger       *slog.Logger
	maxAttempts  uint

	mu      sync.Mutex
	resolve ResolveFunc
	stopped bool

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// RedisOption configures a RedisScheduler.
type RedisOption func(*RedisScheduler)

// WithRedisKeyPrefix sets the sorted-set key prefix.
func WithRedisKeyPrefix(prefix string) RedisOption {
	return func(s *RedisScheduler) {
		s.key = strings.Trim(prefix, ":") + ":expiries"
	}
}

// WithRedisPollInterval sets how often due triggers are polled.
func WithRedisPollInterval(d time.Duration) RedisOption {
	return func(s *RedisScheduler) { s.pollInterval = d }
}

// WithRedisLogger sets the logger.
func WithRedisLogger(logger *slog.Logger) RedisOption {
	return func(s *RedisScheduler) { s.logger = logger }
}

// WithRedisMaxAttempts sets the retry budget for enqueue and resolve calls.
func WithRedisMaxAttempts(n uint) RedisOption {
	return func(s *RedisScheduler) { s.maxAttempts = n }
}

// NewRedis creates a Redis-backed scheduler.
func NewRedis(rdb *redis.Client, opts ...RedisOption) *RedisScheduler {
	s := &RedisScheduler{
		rdb:          rdb,
		key:          "hold:expiries",
		pollInterval: time.Second,
		logger:       slog.Default(),
		maxAttempts:  3,
		stopChan:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the resolve callback and begins polling for due triggers.
func (s *RedisScheduler) Start(ctx context.Context, resolve ResolveFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	s.resolve = resolve

	s.wg.Add(1)
	go s.pollWorker()

	return nil
}

// ScheduleExpiry adds the claim to the sorted set scored by its due time.
func (s *RedisScheduler) ScheduleExpiry(ctx context.Context, claimID id.ClaimID, delay time.Duration) error {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return ErrStopped
	}

	due := time.Now().UTC().Add(delay)
	member := redis.Z{
		Score:  float64(due.UnixMilli()),
		Member: claimID.String(),
	}

	_, err := backoff.Retry(ctx, func() (int64, error) {
		return s.rdb.ZAdd(ctx, s.key, member).Result()
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.maxAttempts),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	return nil
}

func (s *RedisScheduler) pollWorker() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.pollOnce(context.Background())
		}
	}
}

// pollOnce delivers every trigger whose score is at or before now.
func (s *RedisScheduler) pollOnce(ctx context.Context) {
	nowMs := strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)

	members, err := s.rdb.ZRangeByScore(ctx, s.key, &redis.ZRangeBy{
		Min: "-inf",
		Max: nowMs,
	}).Result()
	if err != nil {
		s.logger.Warn("expiry poll failed", "key", s.key, "error", err)
		return
	}

	for _, member := range members {
		// ZREM is the claim step: of all polling instances, only the one
		// that removes the member delivers it.
		removed, err := s.rdb.ZRem(ctx, s.key, member).Result()
		if err != nil {
			s.logger.Warn("expiry dequeue failed", "member", member, "error", err)
			continue
		}
		if removed == 0 {
			continue
		}
		s.deliver(ctx, member)
	}
}

func (s *RedisScheduler) deliver(ctx context.Context, member string) {
	claimID, err := id.ParseClaimID(member)
	if err != nil {
		// Foreign member in the set. Dropping it is correct; it matches no
		// claim the sweep could miss.
		s.logger.Warn("discarding malformed expiry member", "member", member, "error", err)
		return
	}

	s.mu.Lock()
	resolve := s.resolve
	s.mu.Unlock()
	if resolve == nil {
		return
	}

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, resolve(ctx, claimID)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.maxAttempts),
	)
	if err != nil {
		s.logger.Warn("expiry trigger exhausted retries, sweep will resolve the claim",
			"claim_id", claimID.String(),
			"attempts", s.maxAttempts,
			"error", err,
		)
	}
}

// Stop halts polling. Scheduled triggers stay in Redis for the next start.
func (s *RedisScheduler) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()
	return nil
}

var _ Scheduler = (*RedisScheduler)(nil)
