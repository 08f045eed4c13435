package course_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiworkshop/slides/core"
	"github.com/aiworkshop/slides/core/course"
	logsvc "github.com/aiworkshop/slides/services/logger"
	inmemdb "github.com/aiworkshop/slides/storage/database/inmem"
	"github.com/aiworkshop/slides/tests"
)

func setup(t *testing.T) (*course.Service, course.Repository) {
	t.Helper()
	conf := testutil.NewConfig(t)
	repo := inmemdb.NewCourseRepository(inmemdb.Open())
	return course.NewService(repo, course.NewShareSigner(conf), logsvc.NewNopLogger()), repo
}

func TestService_CreateGet(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, course.NewCourse{Title: "Intro", Author: "Ada"})
	require.NoError(t, err)
	_, err = uuid.Parse(c.ID)
	assert.NoError(t, err)
	assert.Equal(t, []string{}, c.Files)
	assert.False(t, c.CreatedAt.IsZero())
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)
	assert.Equal(t, time.UTC, c.CreatedAt.Location())

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	for _, id := range []string{"", "lol", uuid.NewString()} {
		_, err = svc.Get(ctx, id)
		assert.Equal(t, course.ErrNotFound, err, id)
		assert.True(t, core.IsNotFound(err))
	}
}

func TestService_Query(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	c1 := testutil.CreateCourse(t, repo, "Beta", "Ada", nil, now.Add(-2*time.Hour))
	c2 := testutil.CreateCourse(t, repo, "Alpha", "Grace", nil, now.Add(-1*time.Hour))
	c3 := testutil.CreateCourse(t, repo, "Gamma", "Ada", nil, now)

	ids := func(courses []course.Course) []string {
		var out []string
		for _, c := range courses {
			out = append(out, c.ID)
		}
		return out
	}

	tests := []struct {
		name     string
		filter   *course.QueryFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "default ordering", want: []string{c3.ID, c2.ID, c1.ID}},
		{name: "unknown ordering falls back", ordering: []core.DBOrdering{{Field: "password"}}, want: []string{c3.ID, c2.ID, c1.ID}},
		{name: "title", ordering: []core.DBOrdering{{Field: "title", Ascending: true}}, want: []string{c2.ID, c1.ID, c3.ID}},
		{
			name:     "author then -created_at",
			ordering: []core.DBOrdering{{Field: "author", Ascending: true}, {Field: "created_at"}},
			want:     []string{c3.ID, c1.ID, c2.ID},
		},
		{name: "author filter", filter: &course.QueryFilter{Author: "ADA"}, want: []string{c3.ID, c1.ID}},
		{name: "search", filter: &course.QueryFilter{Search: "alp"}, want: []string{c2.ID}},
		{name: "no match", filter: &course.QueryFilter{Search: "zzz"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Query(ctx, tt.filter, tt.ordering)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestService_UpdateDelete(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	created := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	orig := testutil.CreateCourse(t, repo, "Intro", "Ada", []string{"01-00.md"}, created)

	desc := "New description"
	c, err := svc.Update(ctx, orig, course.UpdateCourse{Title: "Intro v2", Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Intro v2", c.Title)
	assert.Equal(t, desc, c.Description)
	assert.Equal(t, "Ada", c.Author)
	assert.Equal(t, []string{"01-00.md"}, c.Files)
	assert.Equal(t, created, c.CreatedAt)
	assert.True(t, c.UpdatedAt.After(created))

	other := testutil.CreateCourse(t, repo, "Other", "", nil)
	require.NoError(t, svc.Delete(ctx))
	require.NoError(t, svc.Delete(ctx, c.ID, other.ID, uuid.NewString()))
	courses, err := svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func TestService_Share(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	c := testutil.CreateCourse(t, repo, "Intro", "Ada", nil)

	shared, err := svc.Share(ctx, c.ID)
	require.NoError(t, err)
	assert.Regexp(t, `^http://localhost:5173/share/[\w-]+\.[\w-]+\.[\w-]+$`, shared.ShareURL)

	stored, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.ShareURL, stored.ShareURL)

	token := shared.ShareURL[len("http://localhost:5173/share/"):]
	resolved, err := svc.ResolveShare(ctx, " "+token+" ")
	require.NoError(t, err)
	assert.Equal(t, c.ID, resolved.ID)

	_, err = svc.ResolveShare(ctx, "lol")
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Share(ctx, uuid.NewString())
	assert.Equal(t, course.ErrNotFound, err)

	require.NoError(t, svc.Delete(ctx, c.ID))
	_, err = svc.ResolveShare(ctx, token)
	assert.Equal(t, course.ErrNotFound, err)
}

func TestService_ImportExport(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	old := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	existing := testutil.CreateCourse(t, repo, "Existing", "Ada", nil, old.Add(time.Hour))

	imported, err := svc.Import(ctx, []course.Course{
		{ID: existing.ID, Title: "Replaced", CreatedAt: old.Add(time.Hour)},
		{ID: "local-1", Title: " From browser ", Files: []string{"01-00.md"}, CreatedAt: old},
	})
	require.NoError(t, err)
	require.Len(t, imported, 2)
	assert.Equal(t, existing.ID, imported[0].ID)
	assert.Equal(t, old.Add(time.Hour), imported[0].UpdatedAt, "updatedAt defaults to createdAt")
	assert.Equal(t, []string{}, imported[0].Files)
	assert.NotEqual(t, "local-1", imported[1].ID, "non uuid ids are replaced")
	assert.Equal(t, "From browser", imported[1].Title)

	exported, err := svc.Export(ctx)
	require.NoError(t, err)
	require.Len(t, exported, 2)
	assert.Equal(t, imported[1].ID, exported[0].ID, "oldest first")
	assert.Equal(t, "Replaced", exported[1].Title)

	_, err = svc.Import(ctx, []course.Course{{Title: "ok"}, {Title: "  "}})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []core.FieldError{{Field: "courses[1].title", Error: "this field is required"}}, verr.Fields)

	exported, err = svc.Export(ctx)
	require.NoError(t, err)
	assert.Len(t, exported, 2, "nothing is imported when a course is invalid")
}

func TestService_Import_validation(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Import(ctx, []course.Course{
		{Title: "Fine", Files: []string{"01-00.md", "part2/02-01-agents.md"}},
		{
			Title:  strings.Repeat("x", 201),
			Author: strings.Repeat("a", 201),
			Files:  []string{"../../etc/passwd", "not-a-slide.txt", "/01-00.md"},
		},
	})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []core.FieldError{
		{Field: "courses[1].title", Error: "must be a maximum of 200 characters in length"},
		{Field: "courses[1].author", Error: "must be a maximum of 200 characters in length"},
		{Field: "courses[1].files[0]", Error: "must be a slide file named like 01-02-title.md"},
		{Field: "courses[1].files[1]", Error: "must be a slide file named like 01-02-title.md"},
		{Field: "courses[1].files[2]", Error: "must be a slide file named like 01-02-title.md"},
	}, verr.Fields)

	exported, err := svc.Export(ctx)
	require.NoError(t, err)
	assert.Empty(t, exported)

	// the limit counts characters, not bytes
	imported, err := svc.Import(ctx, []course.Course{{Title: strings.Repeat("é", 200), Files: []string{` 01-00.md `, `part2\02-01.md`}}})
	require.NoError(t, err)
	require.Len(t, imported, 1)
	assert.Equal(t, []string{"01-00.md", "part2/02-01.md"}, imported[0].Files)
}

func TestService_Export_empty(t *testing.T) {
	svc, _ := setup(t)
	courses, err := svc.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []course.Course{}, courses)
}
