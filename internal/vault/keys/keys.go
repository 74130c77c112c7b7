package keys

import (
	"encoding/hex"
	"strings"

	"github.com/smallbiznis/vaultload/internal/vault/domain"
	"github.com/zeebo/blake3"
)

const locationKeySeparator = "_"

// Derive returns a copy of batch with titleid and locationid filled in when
// the source does not carry them. Keys are ordinals in order of first
// appearance within this batch. A derived key whose source columns are all
// absent yields a KeyDerivationError and stays absent in the returned batch.
func Derive(batch *domain.Batch) (*domain.Batch, []error) {
	out := batch.Copy()
	var errs []error

	if !out.Has(domain.ColumnTitleID) {
		if err := deriveTitles(out); err != nil {
			errs = append(errs, err)
		}
	}
	if !out.Has(domain.ColumnLocationID) {
		if err := deriveLocations(out); err != nil {
			errs = append(errs, err)
		}
	}
	return out, errs
}

func deriveTitles(b *domain.Batch) error {
	if !b.Has(domain.ColumnEmployeeTitle) {
		return &domain.KeyDerivationError{Key: domain.ColumnTitleID, Missing: []string{domain.ColumnEmployeeTitle}}
	}

	ords := newOrdinals()
	for _, row := range b.Rows {
		if row.IsNull(domain.ColumnEmployeeTitle) {
			row[domain.ColumnTitleID] = nil
			continue
		}
		row[domain.ColumnTitleID] = ords.of(domain.FormatValue(row[domain.ColumnEmployeeTitle]))
	}
	b.MarkPresent(domain.ColumnTitleID)
	return nil
}

func deriveLocations(b *domain.Batch) error {
	anyPresent := false
	for _, col := range domain.LocationKeyColumns {
		if b.Has(col) {
			anyPresent = true
			break
		}
	}
	if !anyPresent {
		return &domain.KeyDerivationError{Key: domain.ColumnLocationID, Missing: append([]string(nil), domain.LocationKeyColumns...)}
	}

	ords := newOrdinals()
	for _, row := range b.Rows {
		row[domain.ColumnLocationID] = ords.of(LocationKey(row))
	}
	b.MarkPresent(domain.ColumnLocationID)
	return nil
}

// LocationKey joins the customer-side address fields with nulls as empty strings.
func LocationKey(row domain.Row) string {
	parts := make([]string, len(domain.LocationKeyColumns))
	for i, col := range domain.LocationKeyColumns {
		if row.IsNull(col) {
			continue
		}
		parts[i] = domain.FormatValue(row[col])
	}
	return strings.Join(parts, locationKeySeparator)
}

// HashKey fingerprints a satellite payload: the business key followed by each
// descriptive column in order, nulls rendered as \N.
func HashKey(bk any, columns []string, row domain.Row) string {
	var sb strings.Builder
	sb.WriteString("bk=")
	sb.WriteString(domain.FormatValue(bk))
	for _, col := range columns {
		sb.WriteByte('|')
		sb.WriteString(col)
		sb.WriteByte('=')
		sb.WriteString(domain.FormatValue(row[col]))
	}

	hasher := blake3.New()
	_, _ = hasher.Write([]byte(sb.String()))
	return hex.EncodeToString(hasher.Sum(nil))
}

type ordinals struct {
	next int64
	seen map[string]int64
}

func newOrdinals() *ordinals {
	return &ordinals{seen: map[string]int64{}}
}

func (o *ordinals) of(key string) int64 {
	if id, ok := o.seen[key]; ok {
		return id
	}
	o.next++
	o.seen[key] = o.next
	return o.next
}
