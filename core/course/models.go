package course

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aiworkshop/slides/core"
)

// Course is an ordered selection of slides.
type Course struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Author      string    `json:"author" db:"author"`
	Files       []string  `json:"files" db:"-"`
	ShareURL    string    `json:"shareUrl,omitempty" db:"share_url"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string   `json:"title" validate:"required,notblank,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Author      string   `json:"author" validate:"max=200"`
	Files       []string `json:"files" validate:"omitempty,dive,slidename"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = strings.TrimSpace(nc.Description)
	nc.Author = core.CleanString(nc.Author)
	nc.Files = cleanFiles(nc.Files)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// Empty fields keep their current value; Files replaces the list when not nil.
type UpdateCourse struct {
	Title       string   `json:"title" validate:"required,notblank,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=5000"`
	Author      *string  `json:"author" validate:"omitempty,max=200"`
	Files       []string `json:"files" validate:"omitempty,dive,slidename"`
}

func (uc *UpdateCourse) Validate(orig Course, validate *validator.Validate) error {
	if title := core.CleanString(uc.Title); title != "" {
		uc.Title = title
	} else {
		uc.Title = orig.Title
	}
	if uc.Description != nil {
		desc := strings.TrimSpace(*uc.Description)
		uc.Description = &desc
	}
	if uc.Author != nil {
		author := core.CleanString(*uc.Author)
		uc.Author = &author
	}
	if uc.Files != nil {
		uc.Files = cleanFiles(uc.Files)
	}
	return validate.Struct(uc)
}

type QueryFilter struct {
	Search string `query:"search"`
	Author string `query:"author"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Author == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Author = core.CleanString(qf.Author)
}

// Match reports whether c satisfies every set field of the filter.
// Search is a case-insensitive match on one of Title, Description or Author.
func (qf *QueryFilter) Match(c Course) bool {
	if qf == nil {
		return true
	}
	if qf.Author != "" && !strings.EqualFold(c.Author, qf.Author) {
		return false
	}
	if qf.Search != "" {
		s := strings.ToLower(qf.Search)
		return strings.Contains(strings.ToLower(c.Title), s) ||
			strings.Contains(strings.ToLower(c.Description), s) ||
			strings.Contains(strings.ToLower(c.Author), s)
	}
	return true
}

func cleanFiles(files []string) []string {
	if files == nil {
		return nil
	}
	cleaned := make([]string, 0, len(files))
	for _, f := range files {
		cleaned = append(cleaned, strings.TrimSpace(strings.ReplaceAll(f, `\`, "/")))
	}
	return cleaned
}
