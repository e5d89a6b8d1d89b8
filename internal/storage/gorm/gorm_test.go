package gormstorage

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/fieldforge/internal/codec"
	"github.com/OCAP2/fieldforge/internal/database"
	"github.com/OCAP2/fieldforge/internal/geo"
	"github.com/OCAP2/fieldforge/pkg/core"
)

// newTestBackend creates a Backend on a throwaway SQLite database.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.GetSqliteDB(filepath.Join(t.TempDir(), "fields.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	b := New(db, zerolog.Nop())
	require.NoError(t, b.Init())
	return b
}

func testFields(owner uuid.UUID) []core.Field {
	return []core.Field{
		{
			Kind:           core.KindRadial,
			Location:       core.Location{World: "altis", Position: core.Vec3{X: 1, Y: 2, Z: 3}},
			Strength:       10,
			Range:          5,
			Owner:          owner,
			Active:         true,
			VisualsEnabled: true,
		},
		{
			Kind:         core.KindLinear,
			Location:     core.Location{World: "stratis", Position: core.Vec3{X: -4, Y: 64, Z: 0.5}},
			Direction:    core.Vec3{Y: 1},
			Strength:     2,
			Range:        12,
			ExpiresAfter: 200,
		},
	}
}

func TestInit_RequiresDB(t *testing.T) {
	assert.Error(t, New(nil, zerolog.Nop()).Init())
}

func TestLoad_Empty(t *testing.T) {
	b := newTestBackend(t)
	records, err := b.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSaveLoad_PreservesOrder(t *testing.T) {
	b := newTestBackend(t)
	records := codec.EncodeAll(testFields(uuid.New()))

	require.NoError(t, b.Save(records))
	got, err := b.Load()
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestSave_ReplacesPrevious(t *testing.T) {
	b := newTestBackend(t)
	records := codec.EncodeAll(testFields(uuid.Nil))

	require.NoError(t, b.Save(records))
	require.NoError(t, b.Save(records[1:]))

	got, err := b.Load()
	require.NoError(t, err)
	assert.Equal(t, records[1:], got)

	require.NoError(t, b.Save(nil))
	got, err = b.Load()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSave_DecodedColumns(t *testing.T) {
	b := newTestBackend(t)
	owner := uuid.New()
	require.NoError(t, b.Save(codec.EncodeAll(testFields(owner))))

	rows, err := b.FieldsOwnedBy(owner)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "radial", rows[0].Kind)
	assert.Equal(t, "altis", rows[0].World)
	assert.True(t, rows[0].Active)
	center, ok := geo.Vec3FromPoint(rows[0].Center)
	require.True(t, ok)
	assert.Equal(t, core.Vec3{X: 1, Y: 2, Z: 3}, center)

	rows, err = b.FieldsInWorld("stratis")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "linear", rows[0].Kind)
	assert.Equal(t, uint64(200), rows[0].ExpiresAfter)
	assert.Empty(t, rows[0].Owner)

	var dir [3]float64
	require.NoError(t, json.Unmarshal(rows[0].Direction, &dir))
	assert.Equal(t, [3]float64{0, 1, 0}, dir)
}

func TestSave_KeepsUndecodableRecord(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.Save([]string{"not,a,record"}))

	got, err := b.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"not,a,record"}, got)
}
