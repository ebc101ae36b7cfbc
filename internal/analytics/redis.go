// Package analytics keeps hourly counters of submission outcomes in Redis.
package analytics

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/djlord-it/quizrelay/internal/domain"
)

// DefaultRetention is how long an hourly bucket is kept.
const DefaultRetention = 7 * 24 * time.Hour

const keyPrefix = "quizrelay"

type RedisSink struct {
	client    *redis.Client
	retention time.Duration
	now       func() time.Time
}

func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client, retention: DefaultRetention, now: time.Now}
}

func (s *RedisSink) WithRetention(d time.Duration) *RedisSink {
	s.retention = d
	return s
}

// Record counts the outcome and every failed attempt in the current hour.
// Errors are logged; analytics never affect delivery.
func (s *RedisSink) Record(ctx context.Context, outcome domain.Outcome) {
	if err := s.write(ctx, outcome); err != nil {
		log.Printf("analytics: submission=%s write failed: %v", outcome.SubmissionID, err)
	}
}

func (s *RedisSink) write(ctx context.Context, outcome domain.Outcome) error {
	now := s.now()

	pipe := s.client.Pipeline()
	key := outcomeKey(outcome.Status(), outcome.Method, now)
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.retention)

	for _, a := range outcome.Attempts {
		if a.Succeeded() {
			continue
		}
		k := failureKey(a.Strategy, now)
		pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, s.retention)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}
	return nil
}

// Hour returns the counters of the hour containing t, keyed by the part of
// the key after the prefix and before the bucket, such as
// "outcome:delivered:fetch" or "failure:iframe".
func (s *RedisSink) Hour(ctx context.Context, t time.Time) (map[string]int64, error) {
	pattern := fmt.Sprintf("%s:*:%s", keyPrefix, bucket(t))

	counts := make(map[string]int64)
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		n, err := s.client.Get(ctx, key).Int64()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}
		counts[label(key)] = n
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return counts, nil
}

func outcomeKey(status domain.SubmissionStatus, method string, t time.Time) string {
	if method == "" {
		method = "none"
	}
	return fmt.Sprintf("%s:outcome:%s:%s:%s", keyPrefix, status, method, bucket(t))
}

func failureKey(strategy string, t time.Time) string {
	return fmt.Sprintf("%s:failure:%s:%s", keyPrefix, strategy, bucket(t))
}

func bucket(t time.Time) string {
	return t.UTC().Format("2006010215")
}

// label strips the prefix and the bucket from key.
func label(key string) string {
	key = strings.TrimPrefix(key, keyPrefix+":")
	if i := strings.LastIndexByte(key, ':'); i >= 0 {
		key = key[:i]
	}
	return key
}
