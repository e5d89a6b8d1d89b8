// Package gormstorage implements the storage.Backend interface on any GORM
// dialect. Each record is stored verbatim together with decoded columns so
// operators can query fields by world, owner or kind.
package gormstorage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/OCAP2/fieldforge/internal/codec"
	"github.com/OCAP2/fieldforge/internal/database"
	"github.com/OCAP2/fieldforge/internal/geo"
	"github.com/OCAP2/fieldforge/internal/model"
	"github.com/OCAP2/fieldforge/pkg/core"
)

const createBatchSize = 500

// Backend stores field records in the field_records table.
type Backend struct {
	db  *gorm.DB
	log zerolog.Logger
	now func() time.Time
}

// New creates a GORM backend on an open connection. The caller owns db.
func New(db *gorm.DB, log zerolog.Logger) *Backend {
	return &Backend{db: db, log: log, now: time.Now}
}

// DB exposes the connection for wrappers.
func (b *Backend) DB() *gorm.DB { return b.db }

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.db == nil {
		return fmt.Errorf("gorm backend has no database")
	}
	return database.Setup(b.db)
}

// Close is a no-op; the connection belongs to the caller.
func (b *Backend) Close() error { return nil }

// Load returns the stored records ordered by their saved registry index.
func (b *Backend) Load() ([]string, error) {
	var rows []model.FieldRecord
	if err := b.db.Order("position asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("reading field records: %w", err)
	}
	records := make([]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.Record)
	}
	return records, nil
}

// Save replaces all rows in one transaction.
func (b *Backend) Save(records []string) error {
	at := b.now()
	rows := make([]model.FieldRecord, 0, len(records))
	for i, rec := range records {
		row, err := toRow(i, rec, at)
		if err != nil {
			b.log.Warn().Err(err).Int("position", i).Msg("Storing record without decoded columns")
		}
		rows = append(rows, row)
	}

	err := b.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.FieldRecord{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, createBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("writing field records: %w", err)
	}
	b.log.Debug().Int("count", len(rows)).Msg("Saved field records")
	return nil
}

// FieldsInWorld returns the stored rows located in world.
func (b *Backend) FieldsInWorld(world string) ([]model.FieldRecord, error) {
	var rows []model.FieldRecord
	err := b.db.Where("world = ?", world).Order("position asc").Find(&rows).Error
	return rows, err
}

// FieldsOwnedBy returns the stored rows created by owner.
func (b *Backend) FieldsOwnedBy(owner uuid.UUID) ([]model.FieldRecord, error) {
	var rows []model.FieldRecord
	err := b.db.Where("owner = ?", owner.String()).Order("position asc").Find(&rows).Error
	return rows, err
}

func toRow(position int, record string, at time.Time) (model.FieldRecord, error) {
	row := model.FieldRecord{
		SavedAt:  at,
		Position: position,
		Record:   record,
	}

	f, err := codec.Decode(record)
	if err != nil {
		return row, err
	}

	row.Kind = f.Kind.String()
	row.World = f.Location.World
	row.Center = geo.PointFromVec3(f.Location.Position)
	row.Strength = f.Strength
	row.Range = f.Range
	row.ExpiresAfter = f.ExpiresAfter
	row.Active = f.Active
	row.Visuals = f.VisualsEnabled
	if f.HasOwner() {
		row.Owner = f.Owner.String()
	}
	if f.Kind == core.KindLinear {
		dir, err := json.Marshal([3]float64{f.Direction.X, f.Direction.Y, f.Direction.Z})
		if err != nil {
			return row, err
		}
		row.Direction = datatypes.JSON(dir)
	}
	return row, nil
}
