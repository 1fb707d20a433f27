package migrate_test

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/angelmondragon/servicecart/pkg/config"
	"github.com/angelmondragon/servicecart/pkg/db"
	"github.com/angelmondragon/servicecart/pkg/migrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, migrate.Validate())
}

func TestValidateFSRejectsBadFiles(t *testing.T) {
	badName := fstest.MapFS{
		"m/create_things.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	assert.Error(t, migrate.ValidateFS(badName, "m"))

	missingDown := fstest.MapFS{
		"m/20260101000000_things.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
	}
	assert.ErrorContains(t, migrate.ValidateFS(missingDown, "m"), "goose Down")

	duplicate := fstest.MapFS{
		"m/20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"m/20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	assert.ErrorContains(t, migrate.ValidateFS(duplicate, "m"), "duplicate")
}

func TestRunUpAndDownOnSQLite(t *testing.T) {
	ctx := context.Background()
	client, err := db.New(ctx, config.DBConfig{
		Driver: config.DBDriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "migrate.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	sqlDB, err := client.DB().DB()
	require.NoError(t, err)

	require.NoError(t, migrate.Run(ctx, sqlDB, client.Dialect(), "up"))
	assert.True(t, client.DB().Migrator().HasTable("cart_slots"))
	assert.True(t, client.DB().Migrator().HasTable("bookings"))

	require.NoError(t, migrate.MigrateToVersion(ctx, sqlDB, client.Dialect(), "20260301120000"))
	assert.True(t, client.DB().Migrator().HasTable("cart_slots"))
	assert.False(t, client.DB().Migrator().HasTable("bookings"))

	require.NoError(t, migrate.Run(ctx, sqlDB, client.Dialect(), "down"))
	assert.False(t, client.DB().Migrator().HasTable("cart_slots"))
}
