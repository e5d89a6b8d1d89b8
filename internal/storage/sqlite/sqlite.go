// Package sqlitestorage implements the storage.Backend interface on a SQLite
// file through the pure-Go glebarez driver. It wraps the GORM backend via
// composition and owns the connection.
package sqlitestorage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/OCAP2/fieldforge/internal/database"
	gormstorage "github.com/OCAP2/fieldforge/internal/storage/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	path string
	log  zerolog.Logger
}

// New creates a SQLite backend for path. An empty path keeps the database in memory.
func New(path string, log zerolog.Logger) *Backend {
	return &Backend{path: path, log: log}
}

// Init opens the database and migrates the schema.
func (b *Backend) Init() error {
	if b.path != "" {
		if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}
	db, err := database.GetSqliteDB(b.path)
	if err != nil {
		return fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	b.Backend = gormstorage.New(db, b.log)
	if err := b.Backend.Init(); err != nil {
		return err
	}
	b.log.Info().Str("path", b.path).Msg("Using SQLite field store")
	return nil
}

// Close closes the connection.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	sqlDB, err := b.DB().DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
