package byok

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hengadev/byok/internal/redact"
)

// Action names a credential-bearing operation for audit purposes.
type Action string

const (
	ActionTested  Action = "tested"
	ActionUsed    Action = "used"
	ActionRotated Action = "rotated"
	ActionDeleted Action = "deleted"
)

// AuditEvent is one append-only audit record. Metadata values are redacted
// before storage; the credential value itself never enters an event.
type AuditEvent struct {
	ID          string            `json:"id"`
	PrincipalID string            `json:"principal_id"`
	Provider    Provider          `json:"provider"`
	Action      Action            `json:"action"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// DefaultMaxEvents bounds the in-memory audit ring when no size is configured.
const DefaultMaxEvents = 1000

// Recorder is the audit and metrics recorder. It keeps a size-bounded,
// oldest-first-evicted event ring plus aggregate operation counters. It is an
// operational log, not a compliance store; it also fans events out to an
// optional external sink, best-effort.
type Recorder struct {
	mu        sync.RWMutex
	events    []AuditEvent
	maxEvents int
	metrics   metricsState
	redactor  *redact.Redactor
	sink      AuditSink
	now       func() time.Time
}

// NewRecorder creates a Recorder holding at most maxEvents events.
func NewRecorder(maxEvents int) *Recorder {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return &Recorder{
		events:    make([]AuditEvent, 0, maxEvents),
		maxEvents: maxEvents,
		metrics:   newMetricsState(),
		redactor:  redact.New(),
		now:       time.Now,
	}
}

// SetSink attaches an external append-only sink. Sink failures are swallowed:
// emission must never block or fail the primary credential operation.
func (r *Recorder) SetSink(sink AuditSink) {
	r.mu.Lock()
	r.sink = sink
	r.mu.Unlock()
}

// SetClock overrides the time source. Test hook.
func (r *Recorder) SetClock(now func() time.Time) {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
}

// Record redacts and appends one event, evicting the oldest when full.
func (r *Recorder) Record(event AuditEvent) {
	r.mu.Lock()
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = r.now()
	}
	event.Metadata = r.redactor.RedactMap(event.Metadata)

	if len(r.events) >= r.maxEvents {
		r.events = r.events[1:]
	}
	r.events = append(r.events, event)
	sink := r.sink
	r.mu.Unlock()

	if sink != nil {
		func() {
			defer func() { _ = recover() }()
			sink.Record(event)
		}()
	}
}

// RecordUsage updates the aggregate counters for one credential use or test.
// errText is redacted before it feeds the error taxonomy.
func (r *Recorder) RecordUsage(source Source, provider Provider, success bool, errText string) {
	errText = r.redactor.Redact(errText)
	r.mu.Lock()
	r.metrics.recordUsage(source, provider, success, errText)
	r.mu.Unlock()
}

// RecordResolution counts one resolution outcome by source.
func (r *Recorder) RecordResolution(source Source, provider Provider) {
	r.mu.Lock()
	r.metrics.recordResolution(source)
	r.mu.Unlock()
}

// Events returns a copy of the retained events, oldest first.
func (r *Recorder) Events() []AuditEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]AuditEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Recent returns the retained events recorded within the trailing window.
func (r *Recorder) Recent(window time.Duration) []AuditEvent {
	cutoff := r.now().Add(-window)
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []AuditEvent
	for _, e := range r.events {
		if !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// Summary returns a point-in-time snapshot of the aggregate counters.
func (r *Recorder) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics.summary()
}

// Redact exposes the recorder's redaction pass for callers that assemble
// user-facing error text.
func (r *Recorder) Redact(s string) string {
	return r.redactor.Redact(s)
}
