package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vaultload/internal/clock"
	"github.com/smallbiznis/vaultload/internal/config"
	"github.com/smallbiznis/vaultload/internal/discovery"
	ledgerdomain "github.com/smallbiznis/vaultload/internal/ledger/domain"
	ledgerservice "github.com/smallbiznis/vaultload/internal/ledger/service"
	obscontext "github.com/smallbiznis/vaultload/internal/observability/context"
	obslogger "github.com/smallbiznis/vaultload/internal/observability/logger"
	"github.com/smallbiznis/vaultload/internal/observability/metrics"
	"github.com/smallbiznis/vaultload/internal/source"
	"github.com/smallbiznis/vaultload/internal/vault/decompose"
	"github.com/smallbiznis/vaultload/internal/vault/domain"
	"github.com/smallbiznis/vaultload/internal/vault/keys"
	"github.com/smallbiznis/vaultload/internal/vault/loader"
	"github.com/smallbiznis/vaultload/internal/vault/normalize"
	"github.com/smallbiznis/vaultload/pkg/db"
	"github.com/smallbiznis/vaultload/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrIncompleteLoad = errors.New("incomplete_load")
	ErrInvalidConfig  = errors.New("invalid_pipeline_config")
)

type Params struct {
	fx.In

	Config     config.Config
	Log        *zap.Logger
	Clock      clock.Clock
	GenID      *snowflake.Node
	Ledger     ledgerdomain.Ledger
	Reader     source.Reader
	Normalizer *normalize.Normalizer
	Decomposer *decompose.Decomposer
	Loader     *loader.Loader
	Metrics    *metrics.Metrics    `optional:"true"`
	Locker     ledgerdomain.Locker `optional:"true"`
}

// Pipeline drives source files through the vault load one at a time.
type Pipeline struct {
	log        *zap.Logger
	clock      clock.Clock
	genID      *snowflake.Node
	ledger     ledgerdomain.Ledger
	reader     source.Reader
	normalizer *normalize.Normalizer
	decomposer *decompose.Decomposer
	loader     *loader.Loader
	metrics    *metrics.Metrics
	locker     ledgerdomain.Locker
	lockTTL    time.Duration
	sourceTag  string
	tracer     trace.Tracer
}

func New(p Params) (*Pipeline, error) {
	if p.Log == nil || p.Clock == nil || p.GenID == nil || p.Ledger == nil || p.Reader == nil ||
		p.Normalizer == nil || p.Decomposer == nil || p.Loader == nil {
		return nil, ErrInvalidConfig
	}
	return &Pipeline{
		log:        p.Log.Named("pipeline"),
		clock:      p.Clock,
		genID:      p.GenID,
		ledger:     p.Ledger,
		reader:     p.Reader,
		normalizer: p.Normalizer,
		decomposer: p.Decomposer,
		loader:     p.Loader,
		metrics:    p.Metrics,
		locker:     p.Locker,
		lockTTL:    p.Config.Redis.LockTTL,
		sourceTag:  p.Config.Pipeline.SourceTag,
		tracer:     otel.Tracer("vaultload/pipeline"),
	}, nil
}

// ProcessFile loads one file and records it in the ledger when every record
// set was written. Files already in the ledger are skipped.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (report Report, err error) {
	start := p.clock.Now()
	fileID := discovery.FileID(path)
	runID := p.genID.Generate().String()
	report = Report{FileID: fileID, Path: path, RunID: runID}

	ctx, _ = correlation.EnsureCorrelationID(ctx)
	ctx = obscontext.WithRunID(ctx, runID)
	ctx = obscontext.WithFileID(ctx, fileID)
	ctx, span := p.tracer.Start(ctx, "vault.process_file", trace.WithAttributes(
		attribute.String("vault.file_id", fileID),
	))
	log := obslogger.WithContext(ctx, p.log)

	defer func() {
		report.Duration = p.clock.Now().Sub(start)
		if err != nil {
			report.Outcome = OutcomeFailed
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Error("file failed", zap.Error(err), zap.Duration("duration", report.Duration))
		} else {
			log.Info("file done",
				zap.String("outcome", string(report.Outcome)),
				zap.Int("rows_read", report.RowsRead),
				zap.Int64("inserted", report.Inserted()),
				zap.Duration("duration", report.Duration),
			)
		}
		span.SetAttributes(attribute.String("vault.outcome", string(report.Outcome)))
		span.End()
		p.metrics.ObserveFile(string(report.Outcome), report.Duration, p.clock.Now())
	}()

	done, err := p.ledger.IsProcessed(ctx, fileID)
	if err != nil {
		return report, fmt.Errorf("ledger lookup %s: %w", fileID, err)
	}
	if done {
		report.Outcome = OutcomeSkipped
		log.Info("file already processed")
		return report, nil
	}

	if p.locker != nil {
		key := ledgerservice.LockKey(fileID)
		token, ok, lockErr := p.locker.TryLock(ctx, key, p.lockTTL)
		if lockErr != nil {
			return report, fmt.Errorf("lock %s: %w", fileID, lockErr)
		}
		if !ok {
			report.Outcome = OutcomeLocked
			log.Info("file locked by another run")
			return report, nil
		}
		defer func() {
			if relErr := p.locker.Release(context.WithoutCancel(ctx), key, token); relErr != nil {
				log.Warn("release lock failed", zap.Error(relErr))
			}
		}()

		// Another run may have finished between the lookup and the lock.
		done, err = p.ledger.IsProcessed(ctx, fileID)
		if err != nil {
			return report, fmt.Errorf("ledger lookup %s: %w", fileID, err)
		}
		if done {
			report.Outcome = OutcomeSkipped
			return report, nil
		}
	}

	table, err := p.reader.Read(ctx, path)
	if err != nil {
		return report, err
	}
	report.RowsRead = len(table.Rows)
	report.Warnings = append(report.Warnings, table.Warnings...)
	p.metrics.ObserveRowsRead(len(table.Rows))

	batch, err := p.normalizer.Normalize(table.Header, table.Rows)
	if err != nil {
		return report, fmt.Errorf("normalize %s: %w", fileID, err)
	}
	report.Warnings = append(report.Warnings, batch.Warnings...)

	keyed, keyErrs := keys.Derive(batch)
	for _, kerr := range keyErrs {
		log.Warn("key derivation", zap.Error(kerr))
		report.Warnings = append(report.Warnings, kerr.Error())
	}

	sets := p.decomposer.Decompose(keyed, p.metadata(start))
	dropped := make(map[string]int, len(sets))
	for _, set := range sets {
		dropped[set.Table()] = set.Dropped
	}

	// Set results carry the decomposition warnings plus columns the live
	// schema could not hold.
	result := p.loader.Load(ctx, sets)
	for _, res := range result.Succeeded {
		report.Sets = append(report.Sets, p.setReport(res, dropped))
		report.Warnings = append(report.Warnings, res.Warnings...)
	}
	for _, res := range result.Failed {
		report.Sets = append(report.Sets, p.setReport(res, dropped))
		report.Warnings = append(report.Warnings, res.Warnings...)
	}
	if !result.OK() {
		return report, fmt.Errorf("%w: %s: %d of %d record sets failed: %w",
			ErrIncompleteLoad, fileID, len(result.Failed), len(sets), result.Err())
	}

	entry := ledgerdomain.Entry{
		FileID:      fileID,
		Checksum:    table.Checksum,
		Rows:        int64(report.RowsRead),
		Summary:     report.summary(),
		ProcessedAt: p.clock.Now(),
	}
	if err := p.ledger.MarkProcessed(ctx, entry); err != nil {
		return report, fmt.Errorf("mark %s processed: %w", fileID, err)
	}
	report.Outcome = OutcomeLoaded
	return report, nil
}

// ProcessFiles runs ProcessFile over paths in order. Every file is attempted;
// the returned error joins the failures.
func (p *Pipeline) ProcessFiles(ctx context.Context, paths []string) ([]Report, error) {
	reports := make([]Report, 0, len(paths))
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		report, err := p.ProcessFile(ctx, path)
		reports = append(reports, report)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return reports, errors.Join(errs...)
}

func (p *Pipeline) metadata(now time.Time) domain.Metadata {
	now = now.UTC()
	return domain.Metadata{
		LoadDate:        now,
		Source:          p.sourceTag,
		AppointmentDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
	}
}

func (p *Pipeline) setReport(res loader.SetResult, dropped map[string]int) SetReport {
	sr := SetReport{
		Table:     res.Table,
		Kind:      res.Kind,
		Attempted: res.Attempted,
		Inserted:  res.Inserted,
		Skipped:   res.Skipped,
		Dropped:   dropped[res.Table],
	}
	if res.Err != nil {
		sr.Error = res.Err.Error()
		p.metrics.ObserveSetFailure(res.Table, failureReason(res.Err))
		return sr
	}
	p.metrics.ObserveSet(res.Table, string(res.Kind), res.Inserted, res.Skipped)
	return sr
}

func failureReason(err error) string {
	if errors.Is(err, loader.ErrTableNotFound) {
		return db.ReasonUndefinedTable
	}
	var swe *domain.StoreWriteError
	if errors.As(err, &swe) && swe.Reason != "" {
		return swe.Reason
	}
	return "unknown"
}
