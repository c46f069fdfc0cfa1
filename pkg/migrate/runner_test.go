package migrate_test

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ferremas/backoffice/pkg/migrate"
)

func sqliteMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260101000000_create_branches.sql": {Data: []byte(`-- +goose Up
CREATE TABLE branches (id TEXT PRIMARY KEY, name TEXT NOT NULL);

-- +goose Down
DROP TABLE branches;
`)},
		"20260102000000_seed_branch.sql": {Data: []byte(`-- +goose Up
INSERT INTO branches (id, name) VALUES ('b1', 'Casa Matriz');

-- +goose Down
DELETE FROM branches WHERE id = 'b1';
`)},
	}
}

func newSQLiteRunner(t *testing.T) (*migrate.Runner, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "migrate.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	runner, err := migrate.NewRunner(sqlDB, sqliteMigrations(), migrate.Options{Dialect: goose.DialectSQLite3})
	require.NoError(t, err)
	return runner, conn
}

func TestRunnerUpStatusAndMigrateTo(t *testing.T) {
	ctx := context.Background()
	runner, conn := newSQLiteRunner(t)

	require.NoError(t, runner.Up(ctx))
	version, err := runner.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20260102000000), version)

	var count int64
	require.NoError(t, conn.Table("branches").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	rows, err := runner.Status(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.True(t, row.Applied, row.Path)
	}

	require.NoError(t, runner.MigrateTo(ctx, 20260101000000))
	version, err = runner.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20260101000000), version)
	require.NoError(t, conn.Table("branches").Count(&count).Error)
	assert.Zero(t, count)

	require.NoError(t, runner.Down(ctx))
	rows, err = runner.Status(ctx)
	require.NoError(t, err)
	for _, row := range rows {
		assert.False(t, row.Applied, row.Path)
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	require.NoError(t, migrate.ValidateFS(migrate.Embedded()))

	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	for _, path := range onDisk {
		want, err := os.ReadFile(path)
		require.NoError(t, err)
		got, err := fs.ReadFile(migrate.Embedded(), filepath.Base(path))
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got), path)
	}
}

func TestValidateFSRejectsBrokenMigrations(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name": {"create_things.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")}},
		"duplicate version": {
			"20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
			"20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"missing down":         {"20260101000000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")}},
		"down before up":       {"20260101000000_a.sql": {Data: []byte("-- +goose Down\n-- +goose Up\n")}},
		"unbalanced statement": {"20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n")}},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, migrate.ValidateFS(fsys))
		})
	}
}

func TestCreateSQLMigrationSkipsTakenVersions(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	first, err := migrate.CreateSQLMigration(dir, "Add Supplier Table", now)
	require.NoError(t, err)
	assert.Equal(t, "20261018120000_add_supplier_table.sql", filepath.Base(first))

	second, err := migrate.CreateSQLMigration(dir, "add supplier index", now)
	require.NoError(t, err)
	assert.Equal(t, "20261018120001_add_supplier_index.sql", filepath.Base(second))

	require.NoError(t, migrate.ValidateDir(dir))

	_, err = migrate.CreateSQLMigration(dir, "!!!", now)
	require.Error(t, err)
}
