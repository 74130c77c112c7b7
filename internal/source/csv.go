package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
)

var (
	ErrEmptyFile  = errors.New("empty_file")
	ErrNoDataRows = errors.New("no_data_rows")
)

// Table is a parsed source file. Rows are keyed by the raw header names.
type Table struct {
	Header   []string
	Rows     []map[string]any
	Warnings []string
	Checksum string
	Encoding string
}

// Reader turns a file into a table of rows.
type Reader interface {
	Read(ctx context.Context, path string) (*Table, error)
}

// CSVReader reads comma-separated files.
type CSVReader struct {
	Comma rune
}

func NewCSVReader() *CSVReader {
	return &CSVReader{Comma: ','}
}

var _ Reader = (*CSVReader)(nil)

func (r *CSVReader) Read(ctx context.Context, path string) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	table, err := r.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return table, nil
}

// Parse decodes and parses raw CSV bytes. Ragged rows are padded or
// truncated to the header width and rows that fail to parse are skipped,
// each with a warning.
func (r *CSVReader) Parse(data []byte) (*Table, error) {
	decoded, encoding, err := Decode(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	if r.Comma != 0 {
		reader.Comma = r.Comma
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	table := &Table{
		Header:   header,
		Checksum: checksum(data),
		Encoding: encoding,
	}
	width := len(header)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			table.Warnings = append(table.Warnings, fmt.Sprintf("row %d: parse error: %v", line, err))
			continue
		}
		if isBlank(record) {
			continue
		}

		switch {
		case len(record) < width:
			table.Warnings = append(table.Warnings, fmt.Sprintf("row %d: has %d columns, expected %d; padding", line, len(record), width))
			padded := make([]string, width)
			copy(padded, record)
			record = padded
		case len(record) > width:
			table.Warnings = append(table.Warnings, fmt.Sprintf("row %d: has %d columns, expected %d; truncating", line, len(record), width))
			record = record[:width]
		}

		row := make(map[string]any, width)
		for i, h := range header {
			if _, dup := row[h]; dup {
				continue
			}
			row[h] = record[i]
		}
		table.Rows = append(table.Rows, row)
	}

	if len(table.Rows) == 0 {
		return nil, ErrNoDataRows
	}
	return table, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func checksum(data []byte) string {
	h := blake3.New()
	_, _ = h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
