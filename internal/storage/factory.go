// internal/storage/factory.go
package storage

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/OCAP2/fieldforge/internal/config"
	"github.com/OCAP2/fieldforge/internal/storage/file"
	"github.com/OCAP2/fieldforge/internal/storage/memory"
	"github.com/OCAP2/fieldforge/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/fieldforge/internal/storage/sqlite"
)

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "file", "":
		return file.New(filepath.Join(cfg.Dir, cfg.File.Name)), nil
	case "sqlite":
		return sqlitestorage.New(filepath.Join(cfg.Dir, cfg.SQLite.Name), log), nil
	case "postgres":
		return postgres.New(cfg.DB, filepath.Join(cfg.Dir, cfg.SQLite.Name), log), nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
