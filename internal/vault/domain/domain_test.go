package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogShape(t *testing.T) {
	defs := Catalog()
	counts := map[Kind]int{}
	tables := map[string]bool{}
	for _, d := range defs {
		counts[d.Kind]++
		assert.False(t, tables[d.Table], "duplicate table %s", d.Table)
		tables[d.Table] = true

		switch d.Kind {
		case KindHub:
			assert.Len(t, d.Keys, 1, d.Table)
			assert.Empty(t, d.HashKey, d.Table)
		case KindLink:
			assert.GreaterOrEqual(t, len(d.Keys), 2, d.Table)
		case KindSatellite:
			assert.Len(t, d.Keys, 1, d.Table)
			assert.NotEmpty(t, d.HashKey, d.Table)
			assert.NotEmpty(t, d.Attributes, d.Table)
		}
	}
	assert.Equal(t, 7, counts[KindHub])
	assert.Equal(t, 8, counts[KindLink])
	assert.Equal(t, 7, counts[KindSatellite])
}

func TestCatalogReturnsCopies(t *testing.T) {
	defs := Catalog()
	defs[0].Keys[0] = "mutated"
	assert.Equal(t, "customerid", Catalog()[0].Keys[0])
}

func TestDefinitionColumns(t *testing.T) {
	link, ok := Lookup("link_employeetitle")
	require.True(t, ok)
	assert.Equal(t, []string{"employeeid", "titleid", "appointmentdate", "loaddate", "source"}, link.Columns())
	assert.Equal(t, []string{"employeeid", "titleid"}, link.ConflictColumns())

	sat, ok := Lookup("sat_invoice")
	require.True(t, ok)
	assert.Equal(t, []string{"invoiceid", "invoice_hashkey", "invoicedate", "loaddate", "source"}, sat.Columns())
	assert.Equal(t, []string{"invoiceid", "invoice_hashkey"}, sat.ConflictColumns())
	assert.True(t, sat.IsKeyColumn("invoice_hashkey"))
	assert.False(t, sat.IsKeyColumn("invoicedate"))
}

func TestExpectedColumnsIncludesDerivationSources(t *testing.T) {
	hub, _ := Lookup("hub_locations")
	cols := ExpectedColumns([]Definition{hub})
	assert.Equal(t, []string{
		"billingpostalcode", "customeraddress", "customercity", "customercountry", "customerstate", "locationid",
	}, cols)
}

func TestKindRank(t *testing.T) {
	assert.Less(t, KindHub.Rank(), KindLink.Rank())
	assert.Less(t, KindLink.Rank(), KindSatellite.Rank())
}

func TestBatchPresence(t *testing.T) {
	b := NewBatch([]string{"a", "b"}, []string{"a"}, []Row{{"a": "1", "b": nil}})
	assert.True(t, b.Has("a"))
	assert.False(t, b.Has("b"))
	assert.Equal(t, []string{"b"}, b.Absent())

	c := b.Copy()
	c.Rows[0]["a"] = "2"
	c.MarkPresent("z")
	assert.Equal(t, "1", b.Rows[0]["a"])
	assert.False(t, b.Has("z"))
	assert.Equal(t, []string{"a", "b", "z"}, c.Columns)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, `\N`, FormatValue(nil))
	assert.Equal(t, "x", FormatValue("x"))
	assert.Equal(t, "42", FormatValue(42))
	assert.Equal(t, "2024-03-05T00:00:00Z", FormatValue(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))
}

func TestErrorsMatchSentinels(t *testing.T) {
	schema := fmt.Errorf("normalize: %w", &SchemaError{Missing: []string{"customerid"}})
	assert.True(t, errors.Is(schema, ErrSchema))
	assert.Contains(t, schema.Error(), "customerid")

	kd := &KeyDerivationError{Key: "titleid", Missing: []string{"employeetitle"}}
	assert.True(t, errors.Is(kd, ErrKeyDerivation))

	cause := errors.New("no such table")
	sw := error(&StoreWriteError{Table: "sat_track", Attempted: 3, Err: cause})
	assert.True(t, errors.Is(sw, ErrStoreWrite))
	assert.True(t, errors.Is(sw, cause))

	var target *StoreWriteError
	require.True(t, errors.As(sw, &target))
	assert.Equal(t, "sat_track", target.Table)
}
