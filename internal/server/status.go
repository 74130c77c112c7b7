package server

import (
	"sync"
	"time"

	"github.com/smallbiznis/vaultload/internal/clock"
	"github.com/smallbiznis/vaultload/internal/pipeline"
)

const statusHistory = 50

// Status keeps the most recent file reports of a long-running watch.
type Status struct {
	mu      sync.RWMutex
	started time.Time
	reports []pipeline.Report
}

func NewStatus(c clock.Clock) *Status {
	return &Status{started: c.Now()}
}

func (s *Status) Record(r pipeline.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	if len(s.reports) > statusHistory {
		s.reports = append([]pipeline.Report(nil), s.reports[len(s.reports)-statusHistory:]...)
	}
}

// Recent returns reports newest first.
func (s *Status) Recent() []pipeline.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]pipeline.Report, len(s.reports))
	for i, r := range s.reports {
		out[len(s.reports)-1-i] = r
	}
	return out
}

// Lookup returns the latest report for fileID.
func (s *Status) Lookup(fileID string) (pipeline.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.reports) - 1; i >= 0; i-- {
		if s.reports[i].FileID == fileID {
			return s.reports[i], true
		}
	}
	return pipeline.Report{}, false
}

func (s *Status) Started() time.Time { return s.started }
