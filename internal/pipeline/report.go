package pipeline

import (
	"time"

	"github.com/smallbiznis/vaultload/internal/observability/metrics"
	"github.com/smallbiznis/vaultload/internal/vault/domain"
)

type Outcome string

const (
	OutcomeLoaded  Outcome = metrics.OutcomeLoaded
	OutcomeSkipped Outcome = metrics.OutcomeSkipped
	OutcomeFailed  Outcome = metrics.OutcomeFailed
	OutcomeLocked  Outcome = metrics.OutcomeLocked
)

// SetReport summarizes one record set of a file.
type SetReport struct {
	Table     string      `json:"table"`
	Kind      domain.Kind `json:"kind"`
	Attempted int         `json:"attempted"`
	Inserted  int64       `json:"inserted"`
	Skipped   int64       `json:"skipped"`
	Dropped   int         `json:"dropped,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// Report is the outcome of processing one source file.
type Report struct {
	FileID   string        `json:"file_id"`
	Path     string        `json:"path"`
	RunID    string        `json:"run_id"`
	Outcome  Outcome       `json:"outcome"`
	RowsRead int           `json:"rows_read"`
	Sets     []SetReport   `json:"sets,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Duration time.Duration `json:"duration"`
}

func (r Report) Inserted() int64 {
	var n int64
	for _, s := range r.Sets {
		n += s.Inserted
	}
	return n
}

func (r Report) FailedSets() int {
	n := 0
	for _, s := range r.Sets {
		if s.Error != "" {
			n++
		}
	}
	return n
}

// summary is stored alongside the ledger entry.
func (r Report) summary() map[string]any {
	tables := make(map[string]any, len(r.Sets))
	for _, s := range r.Sets {
		tables[s.Table] = map[string]any{
			"attempted": s.Attempted,
			"inserted":  s.Inserted,
			"skipped":   s.Skipped,
		}
	}
	return map[string]any{
		"run_id":    r.RunID,
		"rows_read": r.RowsRead,
		"inserted":  r.Inserted(),
		"warnings":  len(r.Warnings),
		"tables":    tables,
	}
}
