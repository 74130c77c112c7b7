package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind is the Data Vault table family of a definition.
type Kind string

const (
	KindHub       Kind = "hub"
	KindLink      Kind = "link"
	KindSatellite Kind = "satellite"
)

// Rank orders kinds for loading: hubs before links before satellites.
func (k Kind) Rank() int {
	switch k {
	case KindHub:
		return 0
	case KindLink:
		return 1
	case KindSatellite:
		return 2
	default:
		return 3
	}
}

const (
	ColumnLoadDate = "loaddate"
	ColumnSource   = "source"
)

// NullLiteral is the canonical rendering of a null cell.
const NullLiteral = `\N`

// Row maps canonical column names to cell values. A nil value is null.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IsNull reports whether the row has no usable value for col.
func (r Row) IsNull(col string) bool {
	v, ok := r[col]
	if !ok || v == nil {
		return true
	}
	if s, ok := v.(string); ok && s == "" {
		return true
	}
	return false
}

// Batch is a normalized row set. Columns lists every canonical column in
// header order; only those in present were carried or derived from the source.
type Batch struct {
	Columns  []string
	Rows     []Row
	Warnings []string

	present map[string]struct{}
}

// NewBatch builds a batch over columns where only present columns are marked
// as carried by the source.
func NewBatch(columns []string, present []string, rows []Row) *Batch {
	b := &Batch{
		Columns: append([]string(nil), columns...),
		Rows:    rows,
		present: make(map[string]struct{}, len(present)),
	}
	for _, col := range present {
		b.present[col] = struct{}{}
	}
	return b
}

// Has reports whether col was carried by the source or derived for this batch.
func (b *Batch) Has(col string) bool {
	if b == nil {
		return false
	}
	_, ok := b.present[col]
	return ok
}

// Present returns the present columns sorted by name.
func (b *Batch) Present() []string {
	out := make([]string, 0, len(b.present))
	for col := range b.present {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}

// Absent returns the columns of the batch that are only null placeholders.
func (b *Batch) Absent() []string {
	var out []string
	for _, col := range b.Columns {
		if !b.Has(col) {
			out = append(out, col)
		}
	}
	return out
}

// Copy returns a batch with cloned rows so callers can add derived columns
// without touching the receiver.
func (b *Batch) Copy() *Batch {
	rows := make([]Row, len(b.Rows))
	for i, r := range b.Rows {
		rows[i] = r.Clone()
	}
	out := NewBatch(b.Columns, b.Present(), rows)
	out.Warnings = append([]string(nil), b.Warnings...)
	return out
}

// MarkPresent records col as available, appending it to Columns when new.
func (b *Batch) MarkPresent(col string) {
	if b.present == nil {
		b.present = map[string]struct{}{}
	}
	b.present[col] = struct{}{}
	for _, existing := range b.Columns {
		if existing == col {
			return
		}
	}
	b.Columns = append(b.Columns, col)
}

// Warnf records a non-fatal problem found while shaping the batch.
func (b *Batch) Warnf(format string, args ...any) {
	b.Warnings = append(b.Warnings, fmt.Sprintf(format, args...))
}

// Definition is the static declaration of one target table.
type Definition struct {
	Table string
	Kind  Kind
	// Keys are the business key columns. Hubs and satellites carry one, links two or more.
	Keys         []string
	Attributes   []string
	Relationship string
	HashKey      string
}

// Columns lists every column a record of this definition carries.
func (d Definition) Columns() []string {
	cols := append([]string(nil), d.Keys...)
	if d.Relationship != "" {
		cols = append(cols, d.Relationship)
	}
	if d.HashKey != "" {
		cols = append(cols, d.HashKey)
	}
	cols = append(cols, d.Attributes...)
	return append(cols, ColumnLoadDate, ColumnSource)
}

// ConflictColumns are the columns backing the table's uniqueness constraint.
func (d Definition) ConflictColumns() []string {
	cols := append([]string(nil), d.Keys...)
	if d.Kind == KindSatellite && d.HashKey != "" {
		cols = append(cols, d.HashKey)
	}
	return cols
}

// IsKeyColumn reports whether col is part of the conflict key.
func (d Definition) IsKeyColumn(col string) bool {
	for _, k := range d.ConflictColumns() {
		if k == col {
			return true
		}
	}
	return false
}

// Metadata is attached to every record of one load.
type Metadata struct {
	LoadDate        time.Time
	Source          string
	AppointmentDate time.Time
}

// RecordSet holds the records for one target table produced from one batch.
type RecordSet struct {
	Definition Definition
	Rows       []Row
	// Dropped counts rows excluded because a key value was null.
	Dropped  int
	Warnings []string
}

// Table is the target table name.
func (s RecordSet) Table() string { return s.Definition.Table }

// Kind is the target table's vault kind.
func (s RecordSet) Kind() Kind { return s.Definition.Kind }

// Len is the number of rows to insert.
func (s RecordSet) Len() int { return len(s.Rows) }

// FormatValue renders a cell in its canonical string form.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return NullLiteral
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
