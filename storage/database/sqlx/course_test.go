package sqlxrepos

import (
	"testing"

	"github.com/aiworkshop/slides/core/course"
	testutil "github.com/aiworkshop/slides/tests"
)

func TestCourseRepository(t *testing.T) {
	testutil.RunCourseRepositoryTests(t, func(t *testing.T) course.Repository {
		return NewCourseRepository(testutil.PrepareDB(t))
	})
}

func TestFromRow_badFiles(t *testing.T) {
	_, err := fromRow(courseRow{ID: "abc", Files: "not json"})
	if err == nil {
		t.Fatal("fromRow() expected an error")
	}
}
