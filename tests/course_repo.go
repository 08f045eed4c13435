package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiworkshop/slides/core"
	"github.com/aiworkshop/slides/core/course"
)

// RunCourseRepositoryTests runs the behaviour every course.Repository implementation must share.
// newRepo must return an empty repository.
func RunCourseRepositoryTests(t *testing.T, newRepo func(t *testing.T) course.Repository) {
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("CreateGet", func(t *testing.T) {
		repo := newRepo(t)
		want := CreateCourse(t, repo, "Prompting 101", "Ada", []string{"01-00.md", "01-01-basics.md"}, t0)

		got, err := repo.GetCourseByID(ctx, want.ID)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("GetCourseByID() mismatch (-want +got):\n%s", diff)
		}

		_, err = repo.GetCourseByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, course.ErrNotFound)
	})

	t.Run("CreateGet_noFiles", func(t *testing.T) {
		repo := newRepo(t)
		c := CreateCourse(t, repo, "Empty", "", []string{}, t0)
		got, err := repo.GetCourseByID(ctx, c.ID)
		require.NoError(t, err)
		assert.NotNil(t, got.Files)
		assert.Empty(t, got.Files)
	})

	t.Run("QueryCourses", func(t *testing.T) {
		repo := newRepo(t)
		c1 := CreateCourse(t, repo, "Prompting", "Ada", nil, t0)
		c2 := CreateCourse(t, repo, "Agents", "Grace", nil, t0.Add(time.Hour))
		c3 := CreateCourse(t, repo, "Ethics of AI", "ada", nil, t0.Add(2*time.Hour))

		ids := func(courses []course.Course) []string {
			out := make([]string, 0, len(courses))
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
			{"all by title", nil, []core.DBOrdering{{Field: "title", Ascending: true}}, []string{c2.ID, c3.ID, c1.ID}},
			{"newest first", nil, []core.DBOrdering{{Field: "created_at"}}, []string{c3.ID, c2.ID, c1.ID}},
			{"author ignores case", &course.QueryFilter{Author: "ADA"}, []core.DBOrdering{{Field: "created_at", Ascending: true}}, []string{c1.ID, c3.ID}},
			{"search title", &course.QueryFilter{Search: "agent"}, nil, []string{c2.ID}},
			{"search author", &course.QueryFilter{Search: "grace"}, nil, []string{c2.ID}},
			{"search and author", &course.QueryFilter{Search: "ethics", Author: "ada"}, nil, []string{c3.ID}},
			{"no match", &course.QueryFilter{Search: "quantum"}, nil, []string{}},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				got, err := repo.QueryCourses(ctx, tc.filter, tc.ordering)
				require.NoError(t, err)
				assert.Equal(t, tc.want, ids(got))
			})
		}
	})

	t.Run("UpdateCourse", func(t *testing.T) {
		repo := newRepo(t)
		c := CreateCourse(t, repo, "Prompting", "Ada", []string{"01-00.md"}, t0)

		c.Title = "Prompting II"
		c.Files = []string{"02-00.md", "01-00.md"}
		c.ShareURL = "http://localhost:5173/share/abc"
		c.UpdatedAt = t0.Add(time.Hour)
		got, err := repo.UpdateCourse(ctx, c)
		require.NoError(t, err)
		if diff := cmp.Diff(c, got); diff != "" {
			t.Errorf("UpdateCourse() mismatch (-want +got):\n%s", diff)
		}

		c.ID = uuid.NewString()
		_, err = repo.UpdateCourse(ctx, c)
		assert.ErrorIs(t, err, course.ErrNotFound)
	})

	t.Run("UpsertCourses", func(t *testing.T) {
		repo := newRepo(t)
		existing := CreateCourse(t, repo, "Old title", "Ada", nil, t0)

		existing.Title = "New title"
		fresh := course.Course{
			ID:        uuid.NewString(),
			Title:     "Imported",
			Files:     []string{"03-00.md"},
			CreatedAt: t0.Add(-24 * time.Hour),
			UpdatedAt: t0.Add(-time.Hour),
		}
		require.NoError(t, repo.UpsertCourses(ctx, existing, fresh))
		require.NoError(t, repo.UpsertCourses(ctx))

		got, err := repo.QueryCourses(ctx, nil, []core.DBOrdering{{Field: "created_at", Ascending: true}})
		require.NoError(t, err)
		if diff := cmp.Diff([]course.Course{fresh, existing}, got); diff != "" {
			t.Errorf("UpsertCourses() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("DeleteCoursesByID", func(t *testing.T) {
		repo := newRepo(t)
		c1 := CreateCourse(t, repo, "One", "", nil, t0)
		c2 := CreateCourse(t, repo, "Two", "", nil, t0)
		c3 := CreateCourse(t, repo, "Three", "", nil, t0)

		require.NoError(t, repo.DeleteCoursesByID(ctx, c1.ID, c3.ID, uuid.NewString()))
		require.NoError(t, repo.DeleteCoursesByID(ctx))

		got, err := repo.QueryCourses(ctx, nil, nil)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, c2.ID, got[0].ID)
	})
}
