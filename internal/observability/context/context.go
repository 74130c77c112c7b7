package context

import "context"

type runIDKey struct{}
type fileIDKey struct{}
type tableKey struct{}

// WithRunID stores the pipeline run identifier on the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey{}, runID)
}

func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(runIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithFileID stores the identifier of the file currently being loaded.
func WithFileID(ctx context.Context, fileID string) context.Context {
	if fileID == "" {
		return ctx
	}
	return context.WithValue(ctx, fileIDKey{}, fileID)
}

func FileIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(fileIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithTable stores the target table of the record set being written.
func WithTable(ctx context.Context, table string) context.Context {
	if table == "" {
		return ctx
	}
	return context.WithValue(ctx, tableKey{}, table)
}

func TableFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(tableKey{}).(string); ok {
		return v
	}
	return ""
}
