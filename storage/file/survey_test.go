package filestore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiworkshop/slides/core/survey"
)

func TestSurveyRepository(t *testing.T) {
	ctx := context.Background()
	fp := filepath.Join(t.TempDir(), "data", "surveys.json")
	repo := NewSurveyRepository(fp)

	subs, err := repo.QuerySubmissions(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)

	require.NoError(t, repo.AppendSubmission(ctx, survey.Submission{"id": "1", "rating": float64(5)}))
	require.NoError(t, repo.AppendSubmission(ctx, survey.Submission{"id": "2", "comment": "great"}))

	subs, err = repo.QuerySubmissions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []survey.Submission{
		{"id": "1", "rating": float64(5)},
		{"id": "2", "comment": "great"},
	}, subs)

	// a fresh repository reads what the previous one wrote
	subs, err = NewSurveyRepository(fp).QuerySubmissions(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 2)
}

func TestSurveyRepository_emptyFile(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "surveys.json")
	require.NoError(t, os.WriteFile(fp, []byte("\n"), 0o644))

	subs, err := NewSurveyRepository(fp).QuerySubmissions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestSurveyRepository_corruptFile(t *testing.T) {
	ctx := context.Background()
	fp := filepath.Join(t.TempDir(), "surveys.json")
	require.NoError(t, os.WriteFile(fp, []byte("{not json"), 0o644))
	repo := NewSurveyRepository(fp)

	_, err := repo.QuerySubmissions(ctx)
	assert.ErrorContains(t, err, "decoding survey file")

	err = repo.AppendSubmission(ctx, survey.Submission{"id": "1"})
	assert.ErrorContains(t, err, "decoding survey file")
}

func TestSurveyRepository_concurrentAppends(t *testing.T) {
	ctx := context.Background()
	repo := NewSurveyRepository(filepath.Join(t.TempDir(), "surveys.json"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.AppendSubmission(ctx, survey.Submission{"answer": "yes"}))
		}()
	}
	wg.Wait()

	subs, err := repo.QuerySubmissions(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 20)
}

func TestSurveyRepository_canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewSurveyRepository(filepath.Join(t.TempDir(), "surveys.json")).
		AppendSubmission(ctx, survey.Submission{"id": "1"})
	assert.ErrorIs(t, err, context.Canceled)
}
