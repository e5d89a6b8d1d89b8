package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	b := New(filepath.Join(t.TempDir(), "fields.yml"))
	records, err := b.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "fields.yml")
	b := New(path)
	require.NoError(t, b.Init())

	records := []string{
		"radial,altis,0,64,0,10,5,none,none,0,true,true",
		"linear,altis,1,2,3,1,4,0;1;0,00000000-0000-0000-0000-00000000000a,400,false,false",
	}
	require.NoError(t, b.Save(records))

	got, err := b.Load()
	require.NoError(t, err)
	assert.Equal(t, records, got)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "fields:")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file is cleaned up")
}

func TestSave_Empty(t *testing.T) {
	b := New(filepath.Join(t.TempDir(), "fields.yml"))
	require.NoError(t, b.Save(nil))

	got, err := b.Load()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.yml")
	require.NoError(t, os.WriteFile(path, []byte("fields: [unterminated"), 0o644))

	_, err := New(path).Load()
	assert.Error(t, err)
}
