package gridfile

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/storm-energy-impact/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2021, time.February, 13, 0, 0, 0, 0, time.UTC)

func sampleDoc() Document {
	return Document{
		Start:      start,
		Step:       "6h",
		Count:      4,
		Latitudes:  []float64{32, 30},
		Longitudes: []float64{261, 263},
		Variables: map[domain.Variable]domain.Field{
			domain.VarTemperature2m: {Units: "K", Values: []float64{
				270, 271, 272, 273,
				260, 261, 262, 263,
				265, 266, 267, 268,
				275, 276, 277, 278,
			}},
		},
	}
}

func TestDocumentAxis(t *testing.T) {
	times, err := sampleDoc().Axis()
	require.NoError(t, err)
	require.Len(t, times, 4)
	assert.Equal(t, start.Add(18*time.Hour), times[3])

	explicit := Document{Times: []time.Time{start, start.Add(time.Hour)}}
	times, err = explicit.Axis()
	require.NoError(t, err)
	assert.Len(t, times, 2)

	_, err = Document{Step: "soon", Count: 2}.Axis()
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = Document{Step: "1h"}.Axis()
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEncodeDecode(t *testing.T) {
	for _, compress := range []bool{false, true} {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, sampleDoc(), compress))
		if compress {
			assert.Equal(t, gzipMagic, buf.Bytes()[:2])
		}

		doc, err := Decode(&buf)
		require.NoError(t, err)
		g, err := doc.Grid()
		require.NoError(t, err)
		assert.Equal(t, "K", g.Units(domain.VarTemperature2m))
		assert.Equal(t, 278.0, g.Value(domain.VarTemperature2m, 3, 1, 1))
		assert.Equal(t, 261.0, g.Value(domain.VarTemperature2m, 1, 0, 1))
	}
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(strings.NewReader("{not json"))
	require.Error(t, err)

	_, err = Decode(bytes.NewReader([]byte{0x1f, 0x8b, 0x00}))
	require.Error(t, err)
}

func TestWriteLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.json.gz")
	require.NoError(t, Write(path, sampleDoc()))

	g, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, g.Times(), 4)
	assert.Equal(t, []domain.Variable{domain.VarTemperature2m}, g.Variables())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	bad := sampleDoc()
	bad.Count = 5
	path := filepath.Join(t.TempDir(), "short.json")
	require.NoError(t, Write(path, bad))
	_, err = Load(path)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
