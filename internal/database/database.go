package database

import (
	"database/sql"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/OCAP2/fieldforge/internal/config"
	"github.com/OCAP2/fieldforge/internal/model"
)

// Manager handles database connections and operations.
type Manager struct {
	DB              *gorm.DB
	SqlDB           *sql.DB
	IsValid         bool
	ShouldSaveLocal bool
	SqlitePath      string
	Logger          zerolog.Logger
}

// NewManager creates a new database manager. sqlitePath is the fallback
// database used when Postgres is unavailable; empty means in-memory.
func NewManager(log zerolog.Logger, sqlitePath string) *Manager {
	return &Manager{
		SqlitePath: sqlitePath,
		Logger:     log,
	}
}

// Connect establishes a Postgres connection, falling back to SQLite if Postgres fails.
func (m *Manager) Connect(cfg config.DBConfig) error {
	var err error

	m.DB, err = GetPostgresDB(cfg)
	if err == nil {
		m.SqlDB, err = m.DB.DB()
	}
	if err == nil {
		err = m.SqlDB.Ping()
	}
	if err != nil {
		m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
		return m.ConnectSqlite()
	}

	m.SqlDB.SetMaxOpenConns(10)
	m.IsValid = true
	m.Logger.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connected to database")
	return nil
}

// ConnectSqlite opens the SQLite database at SqlitePath.
func (m *Manager) ConnectSqlite() error {
	var err error
	m.ShouldSaveLocal = true
	m.DB, err = GetSqliteDB(m.SqlitePath)
	if err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to get local SQLite DB: %w", err)
	}
	m.SqlDB, err = m.DB.DB()
	if err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if m.SqlitePath == "" {
		m.Logger.Info().Msg("Using local SQLite DB in memory")
	} else {
		m.Logger.Info().Str("path", m.SqlitePath).Msg("Using local SQLite DB")
	}
	m.IsValid = true
	return nil
}

// Setup migrates tables and creates the store info row if it doesn't exist.
func (m *Manager) Setup() error {
	if !m.IsValid {
		return fmt.Errorf("db not valid")
	}
	if err := Setup(m.DB); err != nil {
		m.IsValid = false
		return err
	}
	m.Logger.Info().Str("dialect", m.DB.Dialector.Name()).Msg("Database setup complete")
	return nil
}

// Close releases the underlying connection pool.
func (m *Manager) Close() error {
	if m.SqlDB == nil {
		return nil
	}
	m.IsValid = false
	return m.SqlDB.Close()
}

// GetPostgresDB returns a connection to the Postgres database.
func GetPostgresDB(cfg config.DBConfig) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

// GetSqliteDB returns a connection to a SQLite database.
// If path is empty, uses an in-memory database.
func GetSqliteDB(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// set PRAGMAS
	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA temp_store = MEMORY;",
	}
	if path == "" {
		pragmas[1] = "PRAGMA journal_mode = MEMORY;"
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	return db, nil
}

// Setup migrates the field tables and seeds store info.
func Setup(db *gorm.DB) error {
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	var count int64
	if err := db.Model(&model.StoreInfo{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to read store_infos: %w", err)
	}
	if count == 0 {
		err := db.Create(&model.StoreInfo{
			Plugin:        "fieldforge",
			SchemaVersion: model.SchemaVersion,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to create store_infos entry: %w", err)
		}
	}
	return nil
}
