// Package trace implements the per-request QueryTrace/Stage/ModuleTrace
// state machine (§3, §4.10) and the orchestrator's publish-only event
// stream. The Tracer is a write-only sink injected into the orchestrator:
// it holds no reference back to it (design note §9), only to its
// subscribers.
package trace

import (
	"sync"
	"time"

	"github.com/refrain2333/legal-retrieval/internal/telemetry"
)

// Status is a stage or module's position in the pending -> running ->
// (success | error | skipped) state machine (§4.10). Terminal states are
// final; skipped applies only to strategies the Router eliminated before
// Stage 4 ran.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// Stage is one of the five pipeline stages (or one strategy's ModuleTrace
// slot) as recorded in a QueryTrace.
type Stage struct {
	Status           Status         `json:"status"`
	InputData        map[string]any `json:"input_data,omitempty"`
	OutputData       map[string]any `json:"output_data,omitempty"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
	ErrorMessage     string         `json:"error_message,omitempty"`
	DebugInfo        map[string]any `json:"debug_info,omitempty"`

	startedAt time.Time
}

// ModuleTrace is the per-strategy trace slot inside Stage 4's Searches map;
// it shares Stage's shape (§3 says each Stage has the same fields).
type ModuleTrace = Stage

// QueryTrace is the per-request record threaded through the five stages.
// Strategies write only to their own Searches[name] slot, so Stage 4
// requires no cross-strategy synchronization (§5); the mutex here guards
// the Searches map against concurrent key insertion and also serializes
// the Tracer's writes to Stage fields.
type QueryTrace struct {
	RequestID     string    `json:"request_id"`
	OriginalQuery string    `json:"original_query"`
	StartTS       time.Time `json:"start_ts"`

	Classification Stage             `json:"classification"`
	Extraction     Stage             `json:"extraction"`
	Routing        Stage             `json:"routing"`
	Searches       map[string]*Stage `json:"searches"`
	Fusion         Stage             `json:"fusion"`

	mu sync.Mutex
}

// NewQueryTrace creates a fresh, all-pending trace for one request.
func NewQueryTrace(requestID, originalQuery string) *QueryTrace {
	return &QueryTrace{
		RequestID:     requestID,
		OriginalQuery: originalQuery,
		StartTS:       time.Now(),
		Classification: Stage{Status: StatusPending},
		Extraction:     Stage{Status: StatusPending},
		Routing:        Stage{Status: StatusPending},
		Searches:       make(map[string]*Stage),
		Fusion:         Stage{Status: StatusPending},
	}
}

// initModule registers a module slot (used by Routing so "extra or missing
// module traces" never occurs per the §3 invariant: a QueryTrace contains
// exactly the strategies the Router selected).
func (qt *QueryTrace) initModule(name string, status Status) {
	qt.mu.Lock()
	defer qt.mu.Unlock()
	qt.Searches[name] = &Stage{Status: status}
}

// module returns a strategy's trace slot, or nil if never registered.
func (qt *QueryTrace) module(name string) *Stage {
	qt.mu.Lock()
	defer qt.mu.Unlock()
	return qt.Searches[name]
}

// Event is the union of message types the orchestrator publishes (§4.10).
// Type discriminates which fields are populated; unused fields are left at
// their zero value.
type Event struct {
	Type string `json:"type"`
	At   time.Time `json:"at"`

	StageNumber      int    `json:"stage_number,omitempty"`
	StageName        string `json:"stage_name,omitempty"`
	ModuleName       string `json:"module_name,omitempty"`
	Status           string `json:"status,omitempty"`
	ProcessingTimeMs int64  `json:"processing_time_ms,omitempty"`
	ResultsCount     int    `json:"results_count,omitempty"`
	ErrorMessage     string `json:"error_message,omitempty"`
	TotalTimeMs      int64  `json:"total_time_ms,omitempty"`
	Summary          string `json:"final_result_summary,omitempty"`
}

// Event type names, matching §4.10's message list exactly.
const (
	EventStageStarted     = "stage_started"
	EventStageCompleted   = "stage_completed"
	EventModuleStarted    = "module_started"
	EventModuleCompleted  = "module_completed"
	EventSearchCompleted  = "search_completed"
)

// subscriberBuffer is the default per-subscriber channel capacity (§5).
const subscriberBuffer = 256

// historySize bounds the Tracer's own recent-event ring. Subscribe does not
// replay this history: a new subscriber receives only events published after
// it attaches.
const historySize = 256

type subscriber struct {
	ch chan Event
}

// Tracer is a write-only event sink the orchestrator owns: it never reads
// back from the pipeline (design note §9, avoiding an Orchestrator<->Tracer
// cycle). Delivery is best-effort and non-blocking: a full subscriber
// buffer drops its oldest event rather than blocking the request.
type Tracer struct {
	mu      sync.RWMutex
	subs    map[int]*subscriber
	nextID  int
	history *telemetry.CircularBuffer[Event]
}

// NewTracer creates a Tracer with a bounded recent-event history.
func NewTracer() *Tracer {
	return &Tracer{
		subs:    make(map[int]*subscriber),
		history: telemetry.NewCircularBuffer[Event](historySize),
	}
}

// Subscribe attaches a new observer and returns its event channel plus an
// unsubscribe func. The channel is closed by unsubscribe, never by Publish.
func (t *Tracer) Subscribe() (<-chan Event, func()) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	sub := &subscriber{ch: make(chan Event, subscriberBuffer)}
	t.subs[id] = sub
	t.mu.Unlock()

	unsubscribe := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if s, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, unsubscribe
}

// publish fans an event out to every subscriber, non-blocking, and records
// it in the recent-event history.
func (t *Tracer) publish(e Event) {
	e.At = time.Now()
	t.history.Add(e)

	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, sub := range t.subs {
		select {
		case sub.ch <- e:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- e:
			default:
			}
		}
	}
}

// StageStarted transitions a stage to running and emits stage_started.
func (t *Tracer) StageStarted(qt *QueryTrace, stageNumber int, stageName string) {
	stage := qt.stagePtr(stageName)
	qt.mu.Lock()
	stage.Status = StatusRunning
	stage.startedAt = time.Now()
	qt.mu.Unlock()

	t.publish(Event{Type: EventStageStarted, StageNumber: stageNumber, StageName: stageName})
}

// StageCompleted transitions a stage to its terminal status and emits
// stage_completed.
func (t *Tracer) StageCompleted(qt *QueryTrace, stageNumber int, stageName string, status Status, output map[string]any, errMsg string) {
	stage := qt.stagePtr(stageName)
	qt.mu.Lock()
	elapsed := time.Since(stage.startedAt)
	stage.Status = status
	stage.OutputData = output
	stage.ErrorMessage = errMsg
	stage.ProcessingTimeMs = elapsed.Milliseconds()
	qt.mu.Unlock()

	t.publish(Event{
		Type: EventStageCompleted, StageNumber: stageNumber, StageName: stageName,
		Status: string(status), ProcessingTimeMs: elapsed.Milliseconds(),
	})
}

// ModuleStarted registers and starts a strategy's trace slot.
func (t *Tracer) ModuleStarted(qt *QueryTrace, moduleName string) {
	qt.initModule(moduleName, StatusRunning)
	mod := qt.module(moduleName)
	qt.mu.Lock()
	mod.startedAt = time.Now()
	qt.mu.Unlock()

	t.publish(Event{Type: EventModuleStarted, ModuleName: moduleName})
}

// ModuleSkipped registers a strategy slot the Router eliminated before
// Stage 4 ran; it never transitions to running.
func (t *Tracer) ModuleSkipped(qt *QueryTrace, moduleName string) {
	qt.initModule(moduleName, StatusSkipped)
}

// ModuleCompleted finalizes a strategy's trace slot and emits
// module_completed.
func (t *Tracer) ModuleCompleted(qt *QueryTrace, moduleName string, status Status, resultsCount int, errMsg string) {
	mod := qt.module(moduleName)
	if mod == nil {
		return
	}
	qt.mu.Lock()
	elapsed := time.Since(mod.startedAt)
	mod.Status = status
	mod.ErrorMessage = errMsg
	mod.ProcessingTimeMs = elapsed.Milliseconds()
	qt.mu.Unlock()

	t.publish(Event{
		Type: EventModuleCompleted, ModuleName: moduleName, Status: string(status),
		ProcessingTimeMs: elapsed.Milliseconds(), ResultsCount: resultsCount, ErrorMessage: errMsg,
	})
}

// SearchCompleted emits the terminal search_completed event for a request.
func (t *Tracer) SearchCompleted(totalTimeMs int64, summary string) {
	t.publish(Event{Type: EventSearchCompleted, TotalTimeMs: totalTimeMs, Summary: summary})
}

// stagePtr returns the addressable Stage field for the classification,
// extraction, routing or fusion stage; Searches slots go through
// initModule/module instead, since Searches is a map of pointers, not a
// named field.
func (qt *QueryTrace) stagePtr(stageName string) *Stage {
	switch stageName {
	case "classification":
		return &qt.Classification
	case "extraction":
		return &qt.Extraction
	case "routing":
		return &qt.Routing
	case "fusion":
		return &qt.Fusion
	default:
		return &Stage{}
	}
}
