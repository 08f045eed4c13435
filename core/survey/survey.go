// Package survey stores free-form learner survey submissions.
package survey

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/aiworkshop/slides/core"
)

const (
	IDKey          = "id"
	SubmittedAtKey = "submittedAt"
)

var (
	// errors
	ErrEmpty = errors.New("survey data is required")

	nowFunc = time.Now // mockable
)

// Submission is a survey answer set tagged with an id and submission time.
type Submission map[string]interface{}

func (s Submission) ID() string {
	id, _ := s[IDKey].(string)
	return id
}

type (
	Repository interface {
		AppendSubmission(ctx context.Context, s Submission) error
		QuerySubmissions(ctx context.Context) ([]Submission, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Submit stores a copy of payload with a generated id and the submission time.
// Client supplied id and submittedAt keys are overwritten.
func (svc *Service) Submit(ctx context.Context, payload map[string]interface{}) (Submission, error) {
	if len(payload) == 0 {
		return nil, core.NewValidationError(ErrEmpty)
	}

	s := make(Submission, len(payload)+2)
	for k, v := range payload {
		s[k] = v
	}
	s[IDKey] = uuid.New().String()
	s[SubmittedAtKey] = nowFunc().UTC().Format(time.RFC3339)

	if err := svc.repo.AppendSubmission(ctx, s); err != nil {
		return nil, errors.Wrap(err, "saving survey")
	}
	svc.logger.Info("survey submitted", map[string]interface{}{"id": s.ID()})
	return s, nil
}

func (svc *Service) List(ctx context.Context) ([]Submission, error) {
	subs, err := svc.repo.QuerySubmissions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying surveys")
	}
	if subs == nil {
		subs = []Submission{}
	}
	return subs, nil
}
