package database

import (
	"testing"

	"eminence/internal/config"
	"eminence/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_SQLiteMigratesSchema(t *testing.T) {
	cfg := &config.Config{
		DBDriver:   config.DriverSQLite,
		SQLitePath: "file:connect_test?mode=memory&cache=shared",
		Env:        "test",
	}

	db, err := Connect(cfg)
	require.NoError(t, err)

	for _, model := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(model))
	}
	assert.True(t, db.Migrator().HasTable("profile_selected_badges"))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	require.NoError(t, sqlDB.Close())
}

func TestDialector_RejectsUnknownDriver(t *testing.T) {
	_, err := Dialector(&config.Config{DBDriver: "mysql"})
	assert.Error(t, err)
}

func TestPersistentModels_IncludesMembershipTables(t *testing.T) {
	var likes, bookmarks bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *models.QuoteLike:
			likes = true
		case *models.QuoteBookmark:
			bookmarks = true
		}
	}
	assert.True(t, likes)
	assert.True(t, bookmarks)
}
