// Package gridfile reads and writes gridded reanalysis extracts stored as
// JSON documents, optionally gzip-compressed.
package gridfile

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/couchcryptid/storm-energy-impact/internal/domain"
)

// Document is the on-disk grid layout. The time axis is either listed in
// Times or generated from Start, Step and Count.
type Document struct {
	Times      []time.Time                      `json:"times,omitempty"`
	Start      time.Time                        `json:"start,omitzero"`
	Step       string                           `json:"step,omitempty"`
	Count      int                              `json:"count,omitempty"`
	Latitudes  []float64                        `json:"latitudes"`
	Longitudes []float64                        `json:"longitudes"`
	Variables  map[domain.Variable]domain.Field `json:"variables"`
}

// Axis returns the document's time axis.
func (d Document) Axis() ([]time.Time, error) {
	if len(d.Times) > 0 {
		return d.Times, nil
	}
	step, err := time.ParseDuration(d.Step)
	if err != nil || step <= 0 {
		return nil, fmt.Errorf("%w: grid step %q", domain.ErrInvalidInput, d.Step)
	}
	if d.Count <= 0 {
		return nil, fmt.Errorf("%w: grid count %d", domain.ErrInvalidInput, d.Count)
	}
	times := make([]time.Time, d.Count)
	for i := range times {
		times[i] = d.Start.Add(time.Duration(i) * step)
	}
	return times, nil
}

// Grid validates the document and builds an in-memory grid.
func (d Document) Grid() (*domain.Grid, error) {
	times, err := d.Axis()
	if err != nil {
		return nil, err
	}
	return domain.NewGrid(times, d.Latitudes, d.Longitudes, d.Variables)
}

var gzipMagic = []byte{0x1f, 0x8b}

// Decode reads a document, transparently inflating gzip input.
func Decode(r io.Reader) (Document, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(gzipMagic))

	var src io.Reader = br
	if bytes.Equal(head, gzipMagic) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return Document{}, fmt.Errorf("open gzip stream: %w", err)
		}
		defer zr.Close()
		src = zr
	}

	var doc Document
	if err := json.NewDecoder(src).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode grid document: %w", err)
	}
	return doc, nil
}

// Load reads the grid file at path.
func Load(path string) (*domain.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open grid file: %w", err)
	}
	defer f.Close()

	doc, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	g, err := doc.Grid()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Encode writes doc as JSON, gzip-compressed when compress is set.
func Encode(w io.Writer, doc Document, compress bool) error {
	if !compress {
		return json.NewEncoder(w).Encode(doc)
	}
	zw := gzip.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(doc); err != nil {
		zw.Close()
		return fmt.Errorf("encode grid document: %w", err)
	}
	return zw.Close()
}

// Write stores doc at path, compressing when the name ends in .gz.
func Write(path string, doc Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create grid file: %w", err)
	}
	if err := Encode(f, doc, strings.HasSuffix(path, ".gz")); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
