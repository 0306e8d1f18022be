// Package trace records region fetches for offline analysis.
//
// A Recorder collects one Record per finished fetch from the scheduler's
// observer hook. Traces are written as Parquet or JSONL, chosen by file
// extension, and read back with a Loader.
package trace

import (
	"sync"
	"time"

	"github.com/lehigh-university-libraries/roiviewer/internal/scheduler"
)

// Record is one finished region fetch.
type Record struct {
	Seq       int64   `json:"seq" parquet:"seq" yaml:"seq"`
	TimeMS    int64   `json:"time_ms" parquet:"time_ms" yaml:"time_ms"`
	X         int32   `json:"x" parquet:"x" yaml:"x"`
	Y         int32   `json:"y" parquet:"y" yaml:"y"`
	W         int32   `json:"w" parquet:"w" yaml:"w"`
	H         int32   `json:"h" parquet:"h" yaml:"h"`
	DisplayW  int32   `json:"display_w" parquet:"display_w" yaml:"display_w"`
	DisplayH  int32   `json:"display_h" parquet:"display_h" yaml:"display_h"`
	Outcome   string  `json:"outcome" parquet:"outcome" yaml:"outcome"`
	LatencyMS float64 `json:"latency_ms" parquet:"latency_ms" yaml:"latency_ms"`
	Error     string  `json:"error,omitempty" parquet:"error" yaml:"error,omitempty"`
}

// Time returns the moment the fetch started.
func (r Record) Time() time.Time {
	return time.UnixMilli(r.TimeMS).UTC()
}

// FromEvent converts a scheduler event into a record.
func FromEvent(ev scheduler.Event) Record {
	rec := Record{
		Seq:       int64(ev.Seq),
		TimeMS:    ev.Started.UnixMilli(),
		X:         int32(ev.Request.Region.X),
		Y:         int32(ev.Request.Region.Y),
		W:         int32(ev.Request.Region.W),
		H:         int32(ev.Request.Region.H),
		DisplayW:  int32(ev.Request.Display.W),
		DisplayH:  int32(ev.Request.Display.H),
		Outcome:   ev.Outcome.String(),
		LatencyMS: float64(ev.Latency) / float64(time.Millisecond),
	}
	if ev.Err != nil {
		rec.Error = ev.Err.Error()
	}
	return rec
}

// Recorder accumulates records. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Observe records ev. Its signature matches the scheduler observer hook.
func (r *Recorder) Observe(ev scheduler.Event) {
	rec := FromEvent(ev)
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
}

// Records returns a copy of the records in arrival order.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Summary counts records by outcome.
type Summary struct {
	Total      int     `json:"total" yaml:"total"`
	Applied    int     `json:"applied" yaml:"applied"`
	Stale      int     `json:"stale" yaml:"stale"`
	Failed     int     `json:"failed" yaml:"failed"`
	MeanMS     float64 `json:"mean_latency_ms" yaml:"mean_latency_ms"`
	MaxLatency float64 `json:"max_latency_ms" yaml:"max_latency_ms"`
}

// Summarize counts outcomes and latency over records.
func Summarize(records []Record) Summary {
	var s Summary
	var sum float64
	for _, r := range records {
		s.Total++
		switch r.Outcome {
		case scheduler.OutcomeApplied.String():
			s.Applied++
		case scheduler.OutcomeStale.String():
			s.Stale++
		case scheduler.OutcomeFailed.String():
			s.Failed++
		}
		sum += r.LatencyMS
		if r.LatencyMS > s.MaxLatency {
			s.MaxLatency = r.LatencyMS
		}
	}
	if s.Total > 0 {
		s.MeanMS = sum / float64(s.Total)
	}
	return s
}
