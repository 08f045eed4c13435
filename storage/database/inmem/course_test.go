package inmemdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiworkshop/slides/core/course"
	testutil "github.com/aiworkshop/slides/tests"
)

func TestCourseRepository(t *testing.T) {
	testutil.RunCourseRepositoryTests(t, func(t *testing.T) course.Repository {
		return NewCourseRepository(Open())
	})
}

func TestCourseRepository_copies(t *testing.T) {
	ctx := context.Background()
	repo := NewCourseRepository(Open())
	c := testutil.CreateCourse(t, repo, "Prompting", "Ada", []string{"01-00.md"})

	c.Files[0] = "changed.md"
	got, err := repo.GetCourseByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"01-00.md"}, got.Files)

	got.Files[0] = "changed.md"
	again, err := repo.GetCourseByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"01-00.md"}, again.Files)
}
