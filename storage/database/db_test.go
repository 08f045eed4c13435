package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiworkshop/slides/core"
)

func TestDSN(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		db      core.DatabaseConfig
		want    string
		wantErr error
	}{
		{
			name: "postgres",
			db:   core.DatabaseConfig{Engine: EnginePostgres, Name: "workshop", Host: "db", Port: "5432", User: "app", Password: "s3cr3t", DisableTLS: true},
			want: "postgres://app:s3cr3t@db:5432/workshop?sslmode=disable&timezone=utc",
		},
		{
			name: "postgres tls",
			db:   core.DatabaseConfig{Engine: EnginePostgres, Name: "workshop", Host: "db", Port: "5432", User: "app"},
			want: "postgres://app:@db:5432/workshop?sslmode=require&timezone=utc",
		},
		{
			name: "sqlite in memory",
			db:   core.DatabaseConfig{Engine: EngineSQLite, Name: ":memory:"},
			want: "file::memory:?_pragma=busy_timeout%285000%29&_pragma=journal_mode%28WAL%29",
		},
		{
			name: "sqlite file",
			db:   core.DatabaseConfig{Engine: EngineSQLite, Name: "data/app.db"},
			want: "file:" + filepath.Join(dir, "data/app.db") + "?_pragma=busy_timeout%285000%29&_pragma=journal_mode%28WAL%29",
		},
		{name: "memory", db: core.DatabaseConfig{Engine: EngineMemory}, wantErr: ErrMemoryEngine},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := dsn(&core.Config{WorkDir: dir, Database: tc.db})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := dsn(&core.Config{Database: core.DatabaseConfig{Engine: "oracle"}})
	assert.EqualError(t, err, `unsupported database engine "oracle"`)
}

func TestOpenMigrate(t *testing.T) {
	conf := &core.Config{WorkDir: t.TempDir(), Database: core.DatabaseConfig{Engine: EngineSQLite, Name: "test.db"}}
	db, err := Open(conf)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, "up"))

	var n int
	require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM course"))
	assert.Zero(t, n)

	require.NoError(t, Migrate(ctx, db, "down"))
	err = db.Get(&n, "SELECT COUNT(*) FROM course")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no such table"), err.Error())

	err = Migrate(ctx, db, "sideways")
	assert.EqualError(t, err, `migrating database (sideways): "sideways": no such command`)
}
