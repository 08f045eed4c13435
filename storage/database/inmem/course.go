package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/aiworkshop/slides/core"
	"github.com/aiworkshop/slides/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func clone(c course.Course) course.Course {
	c.Files = append([]string{}, c.Files...)
	return c
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	c = clone(c)
	repo.db.table[c.ID] = &c
	return clone(c), nil
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		if filter.Match(*c) {
			courses = append(courses, clone(*c))
		}
	}
	sort.SliceStable(courses, func(i, j int) bool { return less(courses[i], courses[j], ordering) })
	return courses, nil
}

// less compares two courses on the ordering fields in turn, then by id.
func less(a, b course.Course, ordering []core.DBOrdering) bool {
	for _, ord := range ordering {
		var cmp int
		switch ord.Field {
		case "title":
			cmp = strings.Compare(a.Title, b.Title)
		case "author":
			cmp = strings.Compare(a.Author, b.Author)
		case "created_at":
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		case "updated_at":
			cmp = a.UpdatedAt.Compare(b.UpdatedAt)
		}
		if cmp != 0 {
			return (cmp < 0) == ord.Ascending
		}
	}
	return a.ID < b.ID
}

func (repo *courseRepository) GetCourseByID(_ context.Context, id string) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.table[id]; ok {
		return clone(*c), nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[c.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	c = clone(c)
	c.CreatedAt = orig.CreatedAt
	repo.db.table[c.ID] = &c
	return clone(c), nil
}

func (repo *courseRepository) UpsertCourses(_ context.Context, courses ...course.Course) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, c := range courses {
		c = clone(c)
		repo.db.table[c.ID] = &c
	}
	return nil
}

func (repo *courseRepository) DeleteCoursesByID(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
