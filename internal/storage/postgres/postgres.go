// Package postgres implements the storage.Backend interface on PostgreSQL.
// When Postgres cannot be reached the store falls back to a local SQLite
// file so fields are never lost.
package postgres

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/OCAP2/fieldforge/internal/config"
	"github.com/OCAP2/fieldforge/internal/database"
	gormstorage "github.com/OCAP2/fieldforge/internal/storage/gorm"
)

// Backend wraps the GORM backend with a managed connection.
type Backend struct {
	*gormstorage.Backend
	cfg      config.DBConfig
	manager  *database.Manager
	injected *gorm.DB
	log      zerolog.Logger
}

// New creates a Postgres backend. fallbackPath is the SQLite file used when
// the server is unavailable.
func New(cfg config.DBConfig, fallbackPath string, log zerolog.Logger) *Backend {
	return &Backend{
		cfg:     cfg,
		manager: database.NewManager(log, fallbackPath),
		log:     log,
	}
}

// NewWithDB creates a backend on an existing connection, skipping Connect.
func NewWithDB(db *gorm.DB, log zerolog.Logger) *Backend {
	return &Backend{injected: db, log: log}
}

// Init connects and runs schema migration.
func (b *Backend) Init() error {
	db := b.injected
	if db == nil {
		if err := b.manager.Connect(b.cfg); err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		db = b.manager.DB
	}

	b.Backend = gormstorage.New(db, b.log)
	return b.Backend.Init()
}

// Local reports whether the store fell back to SQLite.
func (b *Backend) Local() bool {
	return b.manager != nil && b.manager.ShouldSaveLocal
}

// Close releases a managed connection. Injected connections are left open.
func (b *Backend) Close() error {
	if b.manager == nil {
		return nil
	}
	return b.manager.Close()
}
