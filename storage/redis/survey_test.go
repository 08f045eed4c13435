package redisstore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiworkshop/slides/core"
	"github.com/aiworkshop/slides/core/survey"
)

// newTestClient connects to REDIS_ADDR; the test is skipped when it is unset.
func newTestClient(t *testing.T) *surveyRepository {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := NewClient(ctx, core.RedisConfig{Addr: addr})
	require.NoError(t, err)

	key := "workshop:test:surveys:" + uuid.NewString()
	t.Cleanup(func() {
		_ = client.Del(ctx, key).Err()
		_ = client.Close()
	})
	return NewSurveyRepository(client, key).(*surveyRepository)
}

func TestSurveyRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestClient(t)

	subs, err := repo.QuerySubmissions(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)

	require.NoError(t, repo.AppendSubmission(ctx, survey.Submission{"id": "1", "rating": float64(4)}))
	require.NoError(t, repo.AppendSubmission(ctx, survey.Submission{"id": "2"}))

	subs, err = repo.QuerySubmissions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []survey.Submission{{"id": "1", "rating": float64(4)}, {"id": "2"}}, subs)
}

func TestSurveyRepository_badItem(t *testing.T) {
	ctx := context.Background()
	repo := newTestClient(t)

	require.NoError(t, repo.client.RPush(ctx, repo.key, "{nope").Err())
	_, err := repo.QuerySubmissions(ctx)
	assert.ErrorContains(t, err, "decoding survey")
}

func TestNewClient_unreachable(t *testing.T) {
	_, err := NewClient(context.Background(), core.RedisConfig{Addr: "127.0.0.1:1"})
	assert.ErrorContains(t, err, "pinging redis")
}
