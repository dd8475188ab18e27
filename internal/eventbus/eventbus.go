// Package eventbus implements the EventBus external interface (spec.md
// §6): the orchestrator's publish side and a subscriber's stream, keyed by
// agent and execution id, with per-key ordering preserved.
package eventbus

import "time"

// Kind names one of the four event topics the Orchestrator publishes.
type Kind string

const (
	ExecutionStarted   Kind = "execution:started"
	ExecutionCompleted Kind = "execution:completed"
	ExecutionFailed    Kind = "execution:failed"
	StepUpdate         Kind = "step:update"
)

// Event is one published notification. Topic is derived as
// "agent:<agentId>:<kind>" per spec.md §6; it's computed by Topic() rather
// than stored redundantly.
type Event struct {
	Kind        Kind
	AgentID     string
	ExecutionID string
	StepID      string
	Status      string
	Attempts    int
	Output      any
	Error       string
	Timestamp   time.Time
}

// Topic returns the event's routing key: "agent:<agentId>:<kind>".
func (e Event) Topic() string {
	return "agent:" + e.AgentID + ":" + string(e.Kind)
}

// EventBus is the publish/subscribe contract the Orchestrator depends on.
// Implementations must preserve, for a fixed (AgentID, ExecutionID) pair,
// the order events were published in.
type EventBus interface {
	Publish(event Event)
	// Subscribe returns a channel of events matching agentID and,
	// optionally, executionID (empty means every execution for that
	// agent). unsubscribe releases the subscription and closes the
	// channel; it is safe to call more than once.
	Subscribe(agentID, executionID string) (events <-chan Event, unsubscribe func())
}
