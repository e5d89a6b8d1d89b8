package postgres

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/OCAP2/fieldforge/internal/config"
	"github.com/OCAP2/fieldforge/internal/model"
)

const record = "vortex,altis,10,70,-3,4,8,none,none,100,false,true"

func TestInit_WithInjectedDB(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "pg.db")), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	b := NewWithDB(db, zerolog.Nop())
	require.NoError(t, b.Init())
	assert.True(t, db.Migrator().HasTable(&model.FieldRecord{}))
	assert.False(t, b.Local())

	require.NoError(t, b.Save([]string{record}))
	got, err := b.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{record}, got)

	require.NoError(t, b.Close())
	// injected connection stays usable
	assert.NoError(t, db.Exec("SELECT 1").Error)
}

func TestInit_FallsBackToSqlite(t *testing.T) {
	cfg := config.DBConfig{Host: "127.0.0.1", Port: "1", Username: "u", Password: "p", Database: "d"}
	b := New(cfg, filepath.Join(t.TempDir(), "fallback.db"), zerolog.Nop())

	require.NoError(t, b.Init())
	defer b.Close()
	assert.True(t, b.Local())

	require.NoError(t, b.Save([]string{record}))
	got, err := b.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{record}, got)
}
