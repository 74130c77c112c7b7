package correlation

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCorrelationID(t *testing.T) {
	ctx, cid := EnsureCorrelationID(context.Background())
	_, err := ulid.Parse(cid)
	require.NoError(t, err)
	assert.Equal(t, cid, ExtractCorrelationID(ctx))

	ctx2, cid2 := EnsureCorrelationID(ctx)
	assert.Equal(t, cid, cid2)
	assert.Same(t, ctx, ctx2)
}

func TestEnsureCorrelationIDKeepsExisting(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "run-42")
	got, cid := EnsureCorrelationID(ctx)
	assert.Equal(t, "run-42", cid)
	assert.Same(t, ctx, got)
}

func TestContextWithCorrelationIDIgnoresEmpty(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, ContextWithCorrelationID(ctx, ""))
	assert.Empty(t, ExtractCorrelationID(nil))
}
