package analytics

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djlord-it/quizrelay/internal/domain"
)

func TestKeys(t *testing.T) {
	at := time.Date(2024, 1, 15, 17, 42, 0, 0, time.FixedZone("ICT", 7*3600))

	assert.Equal(t, "quizrelay:outcome:delivered:iframe:2024011510", outcomeKey(domain.SubmissionStatusDelivered, "iframe", at))
	assert.Equal(t, "quizrelay:outcome:failed:none:2024011510", outcomeKey(domain.SubmissionStatusFailed, "", at))
	assert.Equal(t, "quizrelay:failure:jsonp:2024011510", failureKey("jsonp", at))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "outcome:delivered:fetch", label("quizrelay:outcome:delivered:fetch:2024011510"))
	assert.Equal(t, "failure:xhr", label("quizrelay:failure:xhr:2024011510"))
}

func TestRedisSink_RecordAndHour(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	fixed := time.Date(2001, 2, 3, 4, 0, 0, 0, time.UTC)
	sink := NewRedisSink(client).WithRetention(time.Minute)
	sink.now = func() time.Time { return fixed }

	id := uuid.New()
	sink.Record(ctx, domain.Success(id, "iframe", "ok", []domain.Attempt{
		{Strategy: "fetch", Error: "fetch: http error status: 500"},
		{Strategy: "xhr", Error: "xhr: network error"},
		{Strategy: "iframe"},
	}))
	sink.Record(ctx, domain.Failure(uuid.New(), errors.New("x"), []domain.Attempt{{Strategy: "fetch", Error: "x"}}))

	counts, err := sink.Hour(ctx, fixed)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, counts["outcome:delivered:iframe"], int64(1))
	assert.GreaterOrEqual(t, counts["failure:fetch"], int64(2))
	assert.GreaterOrEqual(t, counts["outcome:failed:none"], int64(1))
}
