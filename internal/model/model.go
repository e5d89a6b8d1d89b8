package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// SchemaVersion is written to StoreInfo on first setup.
const SchemaVersion = 1

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&StoreInfo{},
	&FieldRecord{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// StoreInfo describes the store instance
type StoreInfo struct {
	gorm.Model
	Plugin        string `json:"plugin" gorm:"size:64"`
	SchemaVersion int    `json:"schemaVersion"`
}

func (*StoreInfo) TableName() string {
	return "store_infos"
}

////////////////////////
// FIELD MODELS
////////////////////////

// FieldRecord is one persisted field. Record holds the flattened text the
// store loads from; the remaining columns mirror it for querying.
type FieldRecord struct {
	ID           uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	SavedAt      time.Time      `json:"savedAt" gorm:"index:idx_fieldrecord_saved_at"`
	Position     int            `json:"position" gorm:"index:idx_fieldrecord_position"` // registry index at save time
	Record       string         `json:"record" gorm:"size:512"`
	Kind         string         `json:"kind" gorm:"size:16;index:idx_fieldrecord_kind"`
	World        string         `json:"world" gorm:"size:128;index:idx_fieldrecord_world"`
	Center       geom.Point     `json:"center"`
	Direction    datatypes.JSON `json:"direction"`
	Strength     float64        `json:"strength"`
	Range        float64        `json:"range"`
	Owner        string         `json:"owner" gorm:"size:36;index:idx_fieldrecord_owner"`
	ExpiresAfter uint64         `json:"expiresAfter"`
	Active       bool           `json:"active"`
	Visuals      bool           `json:"visuals"`
}

func (*FieldRecord) TableName() string {
	return "field_records"
}
