package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/aiworkshop/slides/core"
	"github.com/aiworkshop/slides/core/course"
)

const courseColumns = "id, title, description, author, files, share_url, created_at, updated_at"

var courseOrderColumns = map[string]string{
	"title":      "title",
	"author":     "author",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// courseRow is the course table layout; files are stored as a JSON array.
type courseRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Author      string    `db:"author"`
	Files       string    `db:"files"`
	ShareURL    string    `db:"share_url"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func toRow(c course.Course) (courseRow, error) {
	files := c.Files
	if files == nil {
		files = []string{}
	}
	data, err := json.Marshal(files)
	if err != nil {
		return courseRow{}, errors.Wrap(err, "encoding course files")
	}
	return courseRow{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Author:      c.Author,
		Files:       string(data),
		ShareURL:    c.ShareURL,
		CreatedAt:   c.CreatedAt.UTC(),
		UpdatedAt:   c.UpdatedAt.UTC(),
	}, nil
}

func fromRow(r courseRow) (course.Course, error) {
	c := course.Course{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Author:      r.Author,
		ShareURL:    r.ShareURL,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(r.Files), &c.Files); err != nil {
		return course.Course{}, errors.Wrapf(err, "decoding files of course %s", r.ID)
	}
	if c.Files == nil {
		c.Files = []string{}
	}
	return c, nil
}

// trapNoRowsErr maps the "no rows" err to course.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *courseRepository) insert(ctx context.Context, exec sqlx.ExtContext, c course.Course) error {
	row, err := toRow(c)
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, exec,
		`INSERT INTO course (`+courseColumns+`)
		VALUES (:id, :title, :description, :author, :files, :share_url, :created_at, :updated_at)`, row)
	return err
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	if err := repo.insert(ctx, repo.db, c); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return repo.GetCourseByID(ctx, c.ID)
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		// courses with Title, Description or Author matching the search keyword
		if filter.Search != "" {
			val := "%" + strings.ToLower(filter.Search) + "%"
			where = append(where, "(LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(author) LIKE ?)")
			args = append(args, val, val, val)
		}
		if filter.Author != "" {
			where = append(where, "LOWER(author) = ?")
			args = append(args, strings.ToLower(filter.Author))
		}
	}

	q := "SELECT " + courseColumns + " FROM course"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	orderBy := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if col, ok := courseOrderColumns[ord.Field]; ok {
			orderBy = append(orderBy, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	orderBy = append(orderBy, "id ASC")
	q += " ORDER BY " + strings.Join(orderBy, ", ")

	var rows []courseRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		c, err := fromRow(r)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var row courseRow
	q := repo.db.Rebind("SELECT " + courseColumns + " FROM course WHERE id = ?")
	if err := sqlx.GetContext(ctx, repo.db, &row, q, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, "getting course")
	}
	return fromRow(row)
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	row, err := toRow(c)
	if err != nil {
		return course.Course{}, err
	}
	res, err := repo.db.NamedExecContext(ctx,
		`UPDATE course SET title = :title, description = :description, author = :author,
		files = :files, share_url = :share_url, updated_at = :updated_at WHERE id = :id`, row)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.GetCourseByID(ctx, c.ID)
}

func (repo *courseRepository) UpsertCourses(ctx context.Context, courses ...course.Course) error {
	if len(courses) == 0 {
		return nil
	}
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	del := tx.Rebind("DELETE FROM course WHERE id = ?")
	for _, c := range courses {
		if _, err = tx.ExecContext(ctx, del, c.ID); err != nil {
			return errors.Wrapf(err, "replacing course %s", c.ID)
		}
		if err = repo.insert(ctx, tx, c); err != nil {
			return errors.Wrapf(err, "inserting course %s", c.ID)
		}
	}
	return errors.Wrap(tx.Commit(), "committing courses")
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In("DELETE FROM course WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting courses")
	}
	return nil
}
