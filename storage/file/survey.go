package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/aiworkshop/slides/core"
	"github.com/aiworkshop/slides/core/survey"
)

// surveyRepository keeps submissions in a JSON array file.
// Every append rewrites the whole file atomically under a mutex.
type surveyRepository struct {
	path string
	mu   sync.Mutex
}

var _ survey.Repository = (*surveyRepository)(nil) // interface compliance check

func NewSurveyRepository(path string) survey.Repository {
	return &surveyRepository{path: path}
}

func (repo *surveyRepository) read() ([]survey.Submission, error) {
	data, err := os.ReadFile(repo.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []survey.Submission{}, nil
		}
		return nil, errors.Wrap(err, "reading survey file")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []survey.Submission{}, nil
	}

	var subs []survey.Submission
	if err = json.Unmarshal(data, &subs); err != nil {
		return nil, errors.Wrap(err, "decoding survey file")
	}
	return subs, nil
}

func (repo *surveyRepository) AppendSubmission(ctx context.Context, s survey.Submission) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	subs, err := repo.read()
	if err != nil {
		return err
	}
	subs = append(subs, s)

	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding survey file")
	}
	return errors.Wrap(core.WriteFileAtomic(repo.path, append(data, '\n'), 0o644), "writing survey file")
}

func (repo *surveyRepository) QuerySubmissions(_ context.Context) ([]survey.Submission, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.read()
}
