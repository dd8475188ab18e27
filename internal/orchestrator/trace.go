package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TraceAction names one kind of event recorded in an execution trace.
type TraceAction string

const (
	TraceActionStarted           TraceAction = "execution_started"
	TraceActionStepDispatch      TraceAction = "step_dispatch"
	TraceActionStepCompleted     TraceAction = "step_completed"
	TraceActionStepFailed        TraceAction = "step_failed"
	TraceActionRetry             TraceAction = "retry"
	TraceActionConditionEval     TraceAction = "condition_eval"
	TraceActionLoopbackTraversed TraceAction = "loopback_traversed"
	TraceActionRollback          TraceAction = "rollback"
	TraceActionCancelled         TraceAction = "cancelled"
	TraceActionFinalized         TraceAction = "finalized"
)

// TraceEntry is a single recorded event in an execution's trace.
type TraceEntry struct {
	Timestamp   time.Time      `json:"ts"`
	Action      TraceAction    `json:"action"`
	ExecutionID string         `json:"executionId,omitempty"`
	StepID      string         `json:"stepId,omitempty"`
	ToolID      string         `json:"toolId,omitempty"`
	Attempt     int            `json:"attempt,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Tracer records an ExecutionTrace. Unlike model.Execution.StepResults,
// which holds one result per step visit carrying only its final attempt
// (and which the Store keeps only as the latest result per step id), a
// trace retains every attempt, for post-hoc debugging of a run.
type Tracer interface {
	Log(entry TraceEntry)
	Close() error
}

// NullTracer discards every entry. It's the Orchestrator's default so
// tracing is opt-in.
type NullTracer struct{}

func (NullTracer) Log(TraceEntry) {}
func (NullTracer) Close() error   { return nil }

var _ Tracer = NullTracer{}

// FileTracer appends one JSON line per entry to a file, matching the
// teacher's JSONL trace format.
type FileTracer struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// NewFileTracer opens (creating if needed) a trace.jsonl file under dir.
func NewFileTracer(dir string) (*FileTracer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating trace directory: %w", err)
	}
	path := filepath.Join(dir, "trace.jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}
	return &FileTracer{file: file, path: path}, nil
}

// Path returns the trace file's path.
func (t *FileTracer) Path() string { return t.path }

func (t *FileTracer) Log(entry TraceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	t.file.Write(append(data, '\n'))
}

func (t *FileTracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Close()
}

var _ Tracer = (*FileTracer)(nil)
