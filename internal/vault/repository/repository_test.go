package repository

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/vaultload/internal/vault/domain"
	"github.com/smallbiznis/vaultload/internal/vault/vaulttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumns(t *testing.T) {
	conn := vaulttest.OpenDB(t)
	hub, _ := domain.Lookup("hub_customers")
	vaulttest.CreateSchema(t, conn, []domain.Definition{hub})

	store := NewStore(conn, 10)
	cols, err := store.Columns(context.Background(), "hub_customers")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"customerid", "loaddate", "source"}, cols)

	cols, err = store.Columns(context.Background(), "hub_missing")
	require.NoError(t, err)
	assert.Empty(t, cols)
}

func TestInsertSkipConflict(t *testing.T) {
	ctx := context.Background()
	conn := vaulttest.OpenDB(t)
	hub, _ := domain.Lookup("hub_customers")
	vaulttest.CreateSchema(t, conn, []domain.Definition{hub})

	store := NewStore(conn, 2)
	now := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	rows := []domain.Row{
		{"customerid": "1", "loaddate": now, "source": "daily_data"},
		{"customerid": "2", "loaddate": now, "source": "daily_data"},
		{"customerid": "3", "loaddate": now, "source": "daily_data"},
	}

	n, err := store.InsertSkipConflict(ctx, "hub_customers", []string{"customerid"}, rows)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	again := append(rows, domain.Row{"customerid": "4", "loaddate": now, "source": "daily_data"})
	n, err = store.InsertSkipConflict(ctx, "hub_customers", []string{"customerid"}, again)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	count, err := store.Count(ctx, "hub_customers")
	require.NoError(t, err)
	assert.EqualValues(t, 4, count)
}

func TestInsertSkipConflictRollsBackSet(t *testing.T) {
	ctx := context.Background()
	conn := vaulttest.OpenDB(t)
	hub, _ := domain.Lookup("hub_tracks")
	vaulttest.CreateSchema(t, conn, []domain.Definition{hub})

	store := NewStore(conn, 1)
	rows := []domain.Row{
		{"trackid": "1", "loaddate": "x", "source": "s"},
		{"trackid": "2", "bogus": "y"},
	}
	_, err := store.InsertSkipConflict(ctx, "hub_tracks", []string{"trackid"}, rows)
	require.Error(t, err)

	count, err := store.Count(ctx, "hub_tracks")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestInsertSkipConflictLeavesRowsUntouched(t *testing.T) {
	ctx := context.Background()
	conn := vaulttest.OpenDB(t)
	hub, _ := domain.Lookup("hub_customers")
	vaulttest.CreateSchema(t, conn, []domain.Definition{hub})

	store := NewStore(conn, 10)
	now := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	rows := []domain.Row{{"customerid": "1", "loaddate": now, "source": "daily_data"}}

	n, err := store.InsertSkipConflict(ctx, "hub_customers", []string{"customerid"}, rows)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, domain.Row{"customerid": "1", "loaddate": now, "source": "daily_data"}, rows[0])

	n, err = store.InsertSkipConflict(ctx, "hub_customers", []string{"customerid"}, rows)
	require.NoError(t, err)
	assert.Zero(t, n)
}
