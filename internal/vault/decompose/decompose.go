package decompose

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/vaultload/internal/vault/domain"
	"github.com/smallbiznis/vaultload/internal/vault/keys"
)

const keySeparator = "\x1f"

// Decomposer projects a keyed batch onto hub, link and satellite record sets.
type Decomposer struct {
	defs []domain.Definition
}

func New(defs []domain.Definition) *Decomposer {
	return &Decomposer{defs: defs}
}

// Decompose returns one record set per definition, in definition order.
// The batch rows are read only.
func (d *Decomposer) Decompose(batch *domain.Batch, meta domain.Metadata) []domain.RecordSet {
	sets := make([]domain.RecordSet, 0, len(d.defs))
	for _, def := range d.defs {
		sets = append(sets, project(def, batch, meta))
	}
	return sets
}

func project(def domain.Definition, batch *domain.Batch, meta domain.Metadata) domain.RecordSet {
	set := domain.RecordSet{Definition: def}

	var absent []string
	for _, col := range def.Keys {
		if !batch.Has(col) {
			absent = append(absent, col)
		}
	}
	if len(absent) > 0 {
		set.Warnings = append(set.Warnings, fmt.Sprintf("%s: key columns [%s] absent, record set empty", def.Table, strings.Join(absent, ", ")))
		return set
	}

	loadDate := meta.LoadDate.UTC()
	seen := make(map[string]struct{}, len(batch.Rows))
	for _, row := range batch.Rows {
		if hasNullKey(def, row) {
			set.Dropped++
			continue
		}
		k := dedupeKey(def, row)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		rec := make(domain.Row, len(def.Keys)+len(def.Attributes)+4)
		for _, col := range def.Keys {
			rec[col] = row[col]
		}
		if def.Relationship != "" {
			rec[def.Relationship] = relationshipValue(def.Relationship, row, meta)
		}
		for _, col := range def.Attributes {
			rec[col] = row[col]
		}
		if def.HashKey != "" {
			rec[def.HashKey] = keys.HashKey(row[def.Keys[0]], def.Attributes, row)
		}
		rec[domain.ColumnLoadDate] = loadDate
		rec[domain.ColumnSource] = meta.Source
		set.Rows = append(set.Rows, rec)
	}

	if set.Dropped > 0 {
		set.Warnings = append(set.Warnings, fmt.Sprintf("%s: dropped %d rows with null key", def.Table, set.Dropped))
	}
	return set
}

func relationshipValue(col string, row domain.Row, meta domain.Metadata) any {
	if col == domain.ColumnAppointmentDate {
		if !row.IsNull(col) {
			return row[col]
		}
		return meta.AppointmentDate.UTC()
	}
	return row[col]
}

func hasNullKey(def domain.Definition, row domain.Row) bool {
	for _, col := range def.Keys {
		if row.IsNull(col) {
			return true
		}
	}
	return false
}

func dedupeKey(def domain.Definition, row domain.Row) string {
	parts := make([]string, len(def.Keys))
	for i, col := range def.Keys {
		parts[i] = domain.FormatValue(row[col])
	}
	return strings.Join(parts, keySeparator)
}
