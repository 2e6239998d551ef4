package database

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/slot-booking/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "booking",
		Password: "secret",
		Name:     "slots",
		SSLMode:  "disable",
	})
	assert.Equal(t, "host=db port=5433 user=booking password=secret dbname=slots sslmode=disable", dsn)
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrations, migrationsDir+"/*.sql")
	require.NoError(t, err)
	require.Len(t, files, 3)

	tables := []string{"users", "provider_slots", "slot_events"}
	for i, name := range files {
		body, err := fs.ReadFile(migrations, name)
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up")
		assert.Contains(t, string(body), "-- +goose Down")
		assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS "+tables[i]+" ")
	}
}
