package redisstore

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/aiworkshop/slides/core"
	"github.com/aiworkshop/slides/core/survey"
)

// NewClient connects to the configured Redis server.
func NewClient(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

// surveyRepository keeps submissions as JSON documents in a Redis list.
type surveyRepository struct {
	client redis.UniversalClient
	key    string
}

var _ survey.Repository = (*surveyRepository)(nil) // interface compliance check

func NewSurveyRepository(client redis.UniversalClient, key string) survey.Repository {
	return &surveyRepository{client: client, key: key}
}

func (repo *surveyRepository) AppendSubmission(ctx context.Context, s survey.Submission) error {
	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encoding survey")
	}
	if err = repo.client.RPush(ctx, repo.key, data).Err(); err != nil {
		return errors.Wrap(err, "pushing survey")
	}
	return nil
}

func (repo *surveyRepository) QuerySubmissions(ctx context.Context) ([]survey.Submission, error) {
	items, err := repo.client.LRange(ctx, repo.key, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "reading surveys")
	}
	subs := make([]survey.Submission, 0, len(items))
	for _, item := range items {
		var s survey.Submission
		if err = json.Unmarshal([]byte(item), &s); err != nil {
			return nil, errors.Wrap(err, "decoding survey")
		}
		subs = append(subs, s)
	}
	return subs, nil
}
