package normalize

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/smallbiznis/vaultload/internal/vault/domain"
	"golang.org/x/text/unicode/norm"
)

// Normalizer canonicalizes column names and pads expected columns the source lacks.
type Normalizer struct {
	expected []string
	required []string
}

func New(expected, required []string) *Normalizer {
	n := &Normalizer{}
	for _, col := range expected {
		if c := CanonicalColumn(col); c != "" {
			n.expected = append(n.expected, c)
		}
	}
	for _, col := range required {
		if c := CanonicalColumn(col); c != "" {
			n.required = append(n.required, c)
		}
	}
	return n
}

// CanonicalColumn folds a header to NFKC, lower case, with all whitespace removed.
func CanonicalColumn(name string) string {
	folded := strings.ToLower(norm.NFKC.String(name))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, folded)
}

// Normalize returns a new batch keyed by canonical column names. rows are
// keyed by the raw header names and are not modified. A nil header is
// collected from the row keys in sorted order.
func (n *Normalizer) Normalize(header []string, rows []map[string]any) (*domain.Batch, error) {
	if header == nil {
		header = collectHeader(rows)
	}

	var warnings []string
	canonical := make([]string, len(header))
	seen := map[string]string{}
	var columns []string
	for i, raw := range header {
		c := CanonicalColumn(raw)
		if c == "" {
			warnings = append(warnings, fmt.Sprintf("ignored empty column header at position %d", i+1))
			continue
		}
		if first, dup := seen[c]; dup {
			warnings = append(warnings, fmt.Sprintf("duplicate column %q folds to %q, keeping %q", raw, c, first))
			continue
		}
		seen[c] = raw
		canonical[i] = c
		columns = append(columns, c)
	}
	present := append([]string(nil), columns...)

	if len(n.expected) > 0 {
		found := false
		for _, col := range n.expected {
			if _, ok := seen[col]; ok {
				found = true
				break
			}
		}
		if !found {
			return nil, &domain.SchemaError{Reason: "source carries none of the expected columns"}
		}
	}

	var missing []string
	for _, col := range n.required {
		if _, ok := seen[col]; ok {
			continue
		}
		if synthesizable(col, seen) {
			continue
		}
		missing = append(missing, col)
	}
	if len(missing) > 0 {
		return nil, &domain.SchemaError{Missing: missing}
	}

	var absent []string
	for _, col := range n.expected {
		if _, ok := seen[col]; !ok {
			absent = append(absent, col)
			seen[col] = ""
		}
	}
	sort.Strings(absent)
	columns = append(columns, absent...)

	out := make([]domain.Row, len(rows))
	for r, src := range rows {
		row := make(domain.Row, len(columns))
		for i, raw := range header {
			if canonical[i] == "" {
				continue
			}
			row[canonical[i]] = cleanValue(src[raw])
		}
		for _, col := range absent {
			row[col] = nil
		}
		out[r] = row
	}

	batch := domain.NewBatch(columns, present, out)
	batch.Warnings = warnings
	return batch, nil
}

func synthesizable(col string, seen map[string]string) bool {
	sources, ok := domain.Derivations[col]
	if !ok {
		return false
	}
	for _, src := range sources {
		if _, ok := seen[src]; ok {
			return true
		}
	}
	return false
}

func cleanValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		t = strings.TrimSpace(t)
		if t == "" {
			return nil
		}
		return t
	default:
		return t
	}
}

func collectHeader(rows []map[string]any) []string {
	seen := map[string]struct{}{}
	var header []string
	for _, r := range rows {
		for k := range r {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			header = append(header, k)
		}
	}
	sort.Strings(header)
	return header
}
