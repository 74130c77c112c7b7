package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgerStub map[string]bool

func (l ledgerStub) IsProcessed(_ context.Context, id string) (bool, error) {
	return l[id], nil
}

func seed(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("a\n1\n"), 0o644))
	}
	return dir
}

func TestResolve(t *testing.T) {
	dir := seed(t, "sales_20240305.csv", "sales_20240306.csv", "notes.txt")
	f := NewFinder(dir, "")

	got, err := f.Resolve("20240305")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sales_20240305.csv"), got)

	got, err = f.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sales_20240306.csv"), got)

	got, err = f.Resolve("/elsewhere/sales_20240306.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sales_20240306.csv"), got)

	_, err = f.Resolve("20230101")
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = f.Resolve("sales.csv")
	assert.ErrorIs(t, err, ErrNoDate)

	_, err = f.Resolve("sales_2024-01-01.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveEmptyDir(t *testing.T) {
	_, err := NewFinder(t.TempDir(), "*.csv").Resolve("")
	assert.ErrorIs(t, err, ErrNoCSVFiles)
}

func TestPending(t *testing.T) {
	dir := seed(t, "b_20240302.csv", "a_20240301.csv", "c_20240303.csv")
	f := NewFinder(dir, "*.csv")

	got, err := f.Pending(context.Background(), ledgerStub{"b_20240302.csv": true})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a_20240301.csv"),
		filepath.Join(dir, "c_20240303.csv"),
	}, got)
}

func TestFileIDAndMatches(t *testing.T) {
	assert.Equal(t, "20240305.csv", FileID("/usr/src/daily_data/20240305.csv"))
	f := NewFinder("", "*.csv")
	assert.True(t, f.Matches("/x/20240305.csv"))
	assert.False(t, f.Matches("/x/20240305.csv.tmp"))
}
