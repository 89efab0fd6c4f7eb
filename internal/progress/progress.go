// Package progress defines the optional event sink the pipeline notifies
// at stage boundaries. The pipeline behaves identically whether or not a
// sink is attached; consumers may use events for liveness and UX only,
// never for correctness.
package progress

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Pipeline stage names carried on events.
const (
	StagePlanning     = "planning"
	StageSearch       = "search"
	StageExtract      = "extract"
	StageVerifySearch = "verify_search"
	StageVerifyScore  = "verify_score"
	StageRank         = "rank"
	StageComplete     = "complete"
)

// Counter is a running (current/total) pair.
type Counter struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Event is a single progress notification. Not every micro-step emits;
// consumers must tolerate gaps.
type Event struct {
	Stage    string         `json:"stage"`
	Message  string         `json:"message"`
	Progress *Counter       `json:"progress,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Reporter receives pipeline progress events. Implementations must be
// safe for concurrent use; the pipeline reports from multiple goroutines.
type Reporter interface {
	Report(ev Event)
}

type nopReporter struct{}

func (nopReporter) Report(Event) {}

// Nop returns a reporter that discards everything.
func Nop() Reporter {
	return nopReporter{}
}

// Func adapts a function to the Reporter interface.
type Func func(ev Event)

func (f Func) Report(ev Event) {
	f(ev)
}

// Sampled forwards only every nth event to r (the first event is the
// nth). Used to thin high-frequency substage events.
func Sampled(r Reporter, n int) Reporter {
	if n <= 1 {
		return r
	}
	var count atomic.Int64
	return Func(func(ev Event) {
		if count.Add(1)%int64(n) == 0 {
			r.Report(ev)
		}
	})
}

// Logger returns a reporter that writes events to the global zap logger.
func Logger() Reporter {
	return Func(func(ev Event) {
		fields := []zap.Field{zap.String("stage", ev.Stage)}
		if ev.Progress != nil {
			fields = append(fields,
				zap.Int("current", ev.Progress.Current),
				zap.Int("total", ev.Progress.Total),
			)
		}
		zap.L().Info(ev.Message, fields...)
	})
}
