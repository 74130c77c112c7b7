package loader

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	obscontext "github.com/smallbiznis/vaultload/internal/observability/context"
	obslogger "github.com/smallbiznis/vaultload/internal/observability/logger"
	"github.com/smallbiznis/vaultload/internal/vault/domain"
	"github.com/smallbiznis/vaultload/pkg/db"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var ErrTableNotFound = errors.New("table_not_found")

// Store is the persistence surface the loader writes through.
type Store interface {
	// Columns returns the live column names of table, or none when it does not exist.
	Columns(ctx context.Context, table string) ([]string, error)
	// InsertSkipConflict inserts rows, skipping those that collide on conflict,
	// and returns how many were written.
	InsertSkipConflict(ctx context.Context, table string, conflict []string, rows []domain.Row) (int64, error)
}

// SetResult is the outcome of loading one record set.
type SetResult struct {
	Table     string
	Kind      domain.Kind
	Attempted int
	Inserted  int64
	Skipped   int64
	Warnings  []string
	Err       error
}

// Result groups set outcomes for one file.
type Result struct {
	Succeeded []SetResult
	Failed    []SetResult
}

// OK reports whether every record set was written.
func (r Result) OK() bool { return len(r.Failed) == 0 }

func (r Result) Inserted() int64 {
	var n int64
	for _, s := range r.Succeeded {
		n += s.Inserted
	}
	return n
}

// Err joins the failures of every failed set.
func (r Result) Err() error {
	errs := make([]error, 0, len(r.Failed))
	for _, s := range r.Failed {
		errs = append(errs, s.Err)
	}
	return errors.Join(errs...)
}

type Loader struct {
	store  Store
	log    *zap.Logger
	tracer trace.Tracer
}

func New(store Store, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		store:  store,
		log:    log.Named("vault.loader"),
		tracer: otel.Tracer("vaultload/loader"),
	}
}

// Load writes sets hubs first, then links, then satellites. A failing set is
// recorded and loading continues with the next one.
func (l *Loader) Load(ctx context.Context, sets []domain.RecordSet) Result {
	ordered := append([]domain.RecordSet(nil), sets...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Kind().Rank() < ordered[j].Kind().Rank()
	})

	var result Result
	for _, set := range ordered {
		res := l.loadSet(ctx, set)
		log := obslogger.WithContext(ctx, l.log).With(
			zap.String("table", res.Table),
			zap.String("kind", string(res.Kind)),
			zap.Int("attempted", res.Attempted),
		)
		for _, w := range res.Warnings {
			log.Warn("record set warning", zap.String("warning", w))
		}
		if res.Err != nil {
			log.Error("record set failed", zap.Error(res.Err))
			result.Failed = append(result.Failed, res)
			continue
		}
		log.Info("record set loaded",
			zap.Int64("inserted", res.Inserted),
			zap.Int64("skipped", res.Skipped),
		)
		result.Succeeded = append(result.Succeeded, res)
	}
	return result
}

func (l *Loader) loadSet(ctx context.Context, set domain.RecordSet) (res SetResult) {
	def := set.Definition
	res = SetResult{
		Table:     def.Table,
		Kind:      def.Kind,
		Attempted: len(set.Rows),
		Warnings:  append([]string(nil), set.Warnings...),
	}
	if len(set.Rows) == 0 {
		return res
	}

	ctx = obscontext.WithTable(ctx, def.Table)
	ctx, span := l.tracer.Start(ctx, "vault.load_set", trace.WithAttributes(
		attribute.String("vault.table", def.Table),
		attribute.String("vault.kind", string(def.Kind)),
		attribute.Int("vault.attempted", len(set.Rows)),
	))
	defer func() {
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
		}
		span.SetAttributes(attribute.Int64("vault.inserted", res.Inserted))
		span.End()
	}()

	fail := func(err error) SetResult {
		res.Err = &domain.StoreWriteError{
			Table:     def.Table,
			Attempted: len(set.Rows),
			Reason:    db.ClassifyError(err),
			Err:       err,
		}
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	live, err := l.store.Columns(ctx, def.Table)
	if err != nil {
		return fail(fmt.Errorf("introspect %s: %w", def.Table, err))
	}
	if len(live) == 0 {
		return fail(fmt.Errorf("%s: %w", def.Table, ErrTableNotFound))
	}

	columns, dropped, missingKeys := reconcile(def, live)
	if len(missingKeys) > 0 {
		return fail(fmt.Errorf("%s lacks key columns [%s]", def.Table, strings.Join(missingKeys, ", ")))
	}
	if len(dropped) > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: columns [%s] not in live table, dropped", def.Table, strings.Join(dropped, ", ")))
	}

	rows := set.Rows
	if len(dropped) > 0 {
		rows = project(set.Rows, columns)
	}

	inserted, err := l.store.InsertSkipConflict(ctx, def.Table, def.ConflictColumns(), rows)
	if err != nil {
		return fail(err)
	}
	res.Inserted = inserted
	res.Skipped = int64(len(rows)) - inserted
	if res.Skipped < 0 {
		res.Skipped = 0
	}
	return res
}

// reconcile splits the definition's columns into those the live table holds
// and those it lacks. Lacking a conflict column is fatal.
func reconcile(def domain.Definition, live []string) (keep, dropped, missingKeys []string) {
	liveSet := make(map[string]struct{}, len(live))
	for _, col := range live {
		liveSet[strings.ToLower(col)] = struct{}{}
	}
	for _, col := range def.Columns() {
		if _, ok := liveSet[col]; ok {
			keep = append(keep, col)
			continue
		}
		if def.IsKeyColumn(col) {
			missingKeys = append(missingKeys, col)
			continue
		}
		dropped = append(dropped, col)
	}
	return keep, dropped, missingKeys
}

func project(rows []domain.Row, columns []string) []domain.Row {
	out := make([]domain.Row, len(rows))
	for i, r := range rows {
		p := make(domain.Row, len(columns))
		for _, col := range columns {
			p[col] = r[col]
		}
		out[i] = p
	}
	return out
}
