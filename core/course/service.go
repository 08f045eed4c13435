package course

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/aiworkshop/slides/core"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("course not found")

	// OrderingFields are the columns a course query may be ordered by.
	OrderingFields  = map[string]bool{"title": true, "author": true, "created_at": true, "updated_at": true}
	DefaultOrdering = []core.DBOrdering{{Field: "updated_at", Ascending: false}}

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		// QueryCourses applies AND operation on available QueryFilter fields.
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		// UpsertCourses inserts or replaces courses by id, keeping their timestamps.
		UpsertCourses(ctx context.Context, courses ...Course) error
		DeleteCoursesByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo   Repository
		signer *ShareSigner
		logger core.Logger
	}
)

func NewService(repo Repository, signer *ShareSigner, logger core.Logger) *Service {
	return &Service{repo: repo, signer: signer, logger: logger}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	now := nowFunc().UTC()
	c := Course{
		ID:          uuid.New().String(),
		Title:       nc.Title,
		Description: nc.Description,
		Author:      nc.Author,
		Files:       nc.Files,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if c.Files == nil {
		c.Files = []string{}
	}
	return svc.repo.CreateCourse(ctx, c)
}

// Query returns the courses matching filter. Unknown ordering fields are dropped.
func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	ords := make([]core.DBOrdering, 0, len(ordering))
	for _, o := range ordering {
		if OrderingFields[o.Field] {
			ords = append(ords, o)
		}
	}
	if len(ords) == 0 {
		ords = DefaultOrdering
	}
	return svc.repo.QueryCourses(ctx, filter, ords)
}

func (svc *Service) Get(ctx context.Context, id string) (Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Course{}, ErrNotFound
	}
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, orig Course, uc UpdateCourse) (Course, error) {
	c := orig
	c.Title = uc.Title
	if uc.Description != nil {
		c.Description = *uc.Description
	}
	if uc.Author != nil {
		c.Author = *uc.Author
	}
	if uc.Files != nil {
		c.Files = uc.Files
	}
	c.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateCourse(ctx, c)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return svc.repo.DeleteCoursesByID(ctx, ids...)
}

// Share issues a signed share link for the course and stores it on the course.
func (svc *Service) Share(ctx context.Context, id string) (Course, error) {
	c, err := svc.Get(ctx, id)
	if err != nil {
		return Course{}, err
	}
	token, err := svc.signer.Token(c.ID)
	if err != nil {
		return Course{}, err
	}
	c.ShareURL = svc.signer.URL(token)
	c.UpdatedAt = nowFunc().UTC()
	if c, err = svc.repo.UpdateCourse(ctx, c); err != nil {
		return Course{}, errors.Wrap(err, "saving share url")
	}
	svc.logger.Info("course shared", map[string]interface{}{"course": c.ID})
	return c, nil
}

// ResolveShare returns the course a share token points to.
func (svc *Service) ResolveShare(ctx context.Context, token string) (Course, error) {
	id, err := svc.signer.Verify(strings.TrimSpace(token))
	if err != nil {
		return Course{}, err
	}
	return svc.Get(ctx, id)
}

// Import upserts courses exported from the browser storage.
// Missing ids are generated and missing timestamps are set to now.
// Courses are checked against the same rules as NewCourse; nothing is stored when one fails.
func (svc *Service) Import(ctx context.Context, courses []Course) ([]Course, error) {
	now := nowFunc().UTC()
	var fldErrs []core.FieldError
	imported := make([]Course, 0, len(courses))
	for i, c := range courses {
		c.Title = core.CleanString(c.Title)
		c.Description = strings.TrimSpace(c.Description)
		c.Author = core.CleanString(c.Author)
		c.Files = cleanFiles(c.Files)
		if errs := validateImported(c, "courses["+strconv.Itoa(i)+"]"); len(errs) > 0 {
			fldErrs = append(fldErrs, errs...)
			continue
		}
		if _, err := uuid.Parse(c.ID); err != nil {
			c.ID = uuid.New().String()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = c.CreatedAt
		}
		c.CreatedAt, c.UpdatedAt = c.CreatedAt.UTC(), c.UpdatedAt.UTC()
		if c.Files == nil {
			c.Files = []string{}
		}
		imported = append(imported, c)
	}
	if len(fldErrs) > 0 {
		return nil, core.NewValidationError(errors.New("invalid courses"), fldErrs...)
	}

	if err := svc.repo.UpsertCourses(ctx, imported...); err != nil {
		return nil, errors.Wrap(err, "importing courses")
	}
	svc.logger.Info("courses imported", map[string]interface{}{"count": len(imported)})
	return imported, nil
}

func validateImported(c Course, prefix string) []core.FieldError {
	var errs []core.FieldError
	maxLen := func(field, value string, n int) {
		if utf8.RuneCountInString(value) > n {
			errs = append(errs, core.FieldError{Field: prefix + "." + field, Error: "must be a maximum of " + strconv.Itoa(n) + " characters in length"})
		}
	}
	if c.Title == "" {
		errs = append(errs, core.FieldError{Field: prefix + ".title", Error: "this field is required"})
	}
	maxLen("title", c.Title, 200)
	maxLen("description", c.Description, 5000)
	maxLen("author", c.Author, 200)
	for j, f := range c.Files {
		if !IsSlideFile(f) {
			errs = append(errs, core.FieldError{
				Field: prefix + ".files[" + strconv.Itoa(j) + "]",
				Error: "must be a slide file named like 01-02-title.md",
			})
		}
	}
	return errs
}

// Export returns every course, oldest first, in the browser storage format.
func (svc *Service) Export(ctx context.Context) ([]Course, error) {
	courses, err := svc.repo.QueryCourses(ctx, nil, []core.DBOrdering{{Field: "created_at", Ascending: true}})
	if err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []Course{}
	}
	return courses, nil
}
