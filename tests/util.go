package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aiworkshop/slides/core"
	"github.com/aiworkshop/slides/core/course"
	"github.com/aiworkshop/slides/storage/database"
)

// NewConfig returns a test configuration rooted in a temp directory.
func NewConfig(t *testing.T) *core.Config {
	t.Helper()
	return ConfigAt(t.TempDir())
}

// ConfigAt returns a test configuration rooted in dir.
func ConfigAt(dir string) *core.Config {
	return &core.Config{
		Env:              "TEST",
		TestMode:         true,
		AppName:          "AI Workshop",
		Build:            "test",
		SecretKey:        "test-secret",
		FrontendBaseURL:  "http://localhost:5173",
		DefaultFromEmail: "noreply@workshop.test",
		DefaultFromName:  "AI Workshop",
		WorkDir:          dir,
		Server: core.ServerConfig{
			Host:            "127.0.0.1",
			Port:            "0",
			ShutdownTimeout: 5 * time.Second,
		},
		Database: core.DatabaseConfig{Engine: database.EngineSQLite, Name: "data/test.db"},
		Slides:   core.SlidesConfig{Dir: "slides", OutputDir: "public/data", MarpTheme: "default", Paginate: true},
		Survey:   core.SurveyConfig{Backend: "file", File: "data/surveys.json", RedisKey: "workshop:test:surveys"},
		Mail:     core.MailConfig{Backend: "console"},
		Share:    core.ShareConfig{Expiration: time.Hour},
	}
}

// WriteSlides writes files (name -> content) under dir.
func WriteSlides(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		fp := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
			t.Fatalf("WriteSlides() failed: %v", err)
		}
		if err := os.WriteFile(fp, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteSlides() failed: %v", err)
		}
	}
}

// PrepareDB opens a migrated sqlite database in a temp directory.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conf := NewConfig(t)
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db, "up"); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	title, author string,
	files []string,
	createdAt ...time.Time,
) course.Course {
	t.Helper()
	tstamp := time.Now().UTC().Truncate(time.Second)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	c := course.Course{
		ID:        uuid.NewString(),
		Title:     title,
		Author:    author,
		Files:     files,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	c, err := repo.CreateCourse(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}
