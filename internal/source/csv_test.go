package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBasic(t *testing.T) {
	data := []byte(" CustomerId ,EmployeeTitle\n1,Sales Support Agent\n2,\"IT Staff\"\n")
	table, err := NewCSVReader().Parse(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"CustomerId", "EmployeeTitle"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "IT Staff", table.Rows[1]["EmployeeTitle"])
	assert.Len(t, table.Checksum, 64)
	assert.Equal(t, "utf-8", table.Encoding)
}

func TestParseRaggedRows(t *testing.T) {
	data := []byte("a,b,c\n1,2\n1,2,3,4\n\n,,\n")
	table, err := NewCSVReader().Parse(data)
	require.NoError(t, err)

	require.Len(t, table.Rows, 2)
	assert.Equal(t, "", table.Rows[0]["c"])
	assert.Equal(t, "3", table.Rows[1]["c"])
	assert.Len(t, table.Warnings, 2)
}

func TestParseDuplicateHeaderKeepsFirst(t *testing.T) {
	table, err := NewCSVReader().Parse([]byte("a,a\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, "1", table.Rows[0]["a"])
}

func TestParseEncodings(t *testing.T) {
	bom := append([]byte{0xEF, 0xBB, 0xBF}, []byte("name\nJosé\n")...)
	table, err := NewCSVReader().Parse(bom)
	require.NoError(t, err)
	assert.Equal(t, "utf-8-bom", table.Encoding)
	assert.Equal(t, "José", table.Rows[0]["name"])

	latin1 := []byte("name\nJos\xe9\n")
	table, err = NewCSVReader().Parse(latin1)
	require.NoError(t, err)
	assert.Equal(t, "latin-1", table.Encoding)
	assert.Equal(t, "José", table.Rows[0]["name"])

	utf16 := []byte{0xFF, 0xFE}
	for _, r := range "id\n7\n" {
		utf16 = append(utf16, byte(r), 0x00)
	}
	table, err = NewCSVReader().Parse(utf16)
	require.NoError(t, err)
	assert.Equal(t, "utf-16le", table.Encoding)
	assert.Equal(t, "7", table.Rows[0]["id"])
}

func TestParseEmpty(t *testing.T) {
	_, err := NewCSVReader().Parse(nil)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = NewCSVReader().Parse([]byte("a,b\n"))
	assert.ErrorIs(t, err, ErrNoDataRows)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "20240305.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n1\n"), 0o644))

	table, err := NewCSVReader().Read(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)

	_, err = NewCSVReader().Read(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
