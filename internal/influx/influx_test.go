package influx

import (
	"bufio"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/fieldforge/internal/config"
)

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), filepath.Join(t.TempDir(), "backup.gz"))
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.False(t, m.IsValid)
}

func TestWritePoint_NotConnected(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), "")
	err := m.WritePoint(influxdb2_write.NewPointWithMeasurement("x"))
	assert.Error(t, err)
}

func TestConnect_UnreachableFallsBackToBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.gz")
	m := NewManager(config.InfluxConfig{
		Enabled:  true,
		Protocol: "http",
		Host:     "127.0.0.1",
		Port:     "1",
		Org:      "fieldforge",
		Bucket:   "fieldforge",
	}, zerolog.Nop(), path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.IsValid)

	p := influxdb2_write.NewPoint("field_status",
		map[string]string{"host": "test"},
		map[string]any{"fields": 3},
		time.Unix(0, 42))
	require.NoError(t, m.WritePoint(p))
	require.NoError(t, m.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)

	sc := bufio.NewScanner(zr)
	require.True(t, sc.Scan())
	assert.Equal(t, "field_status,host=test fields=3i 42", sc.Text())
}
