package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "config", ".env.test"),
		[]byte("TEST_APPNAME=Workshop Test\nTEST_SLIDES_DIR=content\n"),
		0o644,
	))
	t.Setenv("ENV", "test")
	t.Setenv("TEST_SERVER_PORT", "9999")
	t.Setenv("TEST_SHARE_EXPIRATION", "2h")
	t.Setenv("SMTP_HOST", "smtp.example.com")

	conf := NewConfig()
	assert.Equal(t, "TEST", conf.Env)
	assert.True(t, conf.TestMode)
	assert.Equal(t, "Workshop Test", conf.AppName)
	assert.Equal(t, "content", conf.Slides.Dir)
	assert.Equal(t, "9999", conf.Server.Port)
	assert.Equal(t, 2*time.Hour, conf.Share.Expiration)
	assert.Equal(t, "smtp.example.com", conf.SMTP.Host)
	assert.Equal(t, "587", conf.SMTP.Port)
	assert.Equal(t, "sqlite", conf.Database.Engine)
	assert.Equal(t, dir, conf.WorkDir)
	assert.Equal(t, filepath.Join(dir, "data/workshop.db"), conf.Path(conf.Database.Name))
	assert.Equal(t, "/abs/path", conf.Path("/abs/path"))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	fp := filepath.Join(dir, "nested", "out.json")

	require.NoError(t, WriteFileAtomic(fp, []byte("one"), 0o644))
	require.NoError(t, WriteFileAtomic(fp, []byte("two"), 0o600))

	data, err := os.ReadFile(fp)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	fi, err := os.Stat(fp)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(fp))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestValidationError(t *testing.T) {
	err := NewValidationError(errors.New("invalid course"), FieldError{Field: "title", Error: "this field is required"})
	assert.EqualError(t, err, "invalid course")

	err = NewValidationError(nil, FieldError{Field: "title", Error: "this field is required"})
	assert.EqualError(t, err, "title: this field is required")

	assert.EqualError(t, NewValidationError(nil), "validation failed")

	var vErr *ValidationError
	assert.True(t, errors.As(errors.Wrap(err, "saving"), &vErr))
}

func TestIsNotFound(t *testing.T) {
	nf := NewNotFoundError("course not found")
	assert.True(t, IsNotFound(nf))
	assert.True(t, IsNotFound(errors.Wrap(nf, "getting course")))
	assert.False(t, IsNotFound(errors.New("course not found")))
	assert.False(t, IsNotFound(nil))

	assert.True(t, IsShutdown(NewShutdownError("integrity issue")))
	assert.False(t, IsShutdown(nf))
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Ada", CleanString("  Ada \n"))
	assert.Equal(t, "ada", CleanString(" ADA ", true))
}

func TestDBOrdering(t *testing.T) {
	assert.Equal(t, "title ASC", DBOrdering{Field: "title", Ascending: true}.String())
	assert.Equal(t, "updated_at DESC", DBOrdering{Field: "updated_at"}.String())
}
