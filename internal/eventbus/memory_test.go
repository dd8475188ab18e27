package eventbus

import (
	"testing"
	"time"
)

func TestSubscribeReceivesMatchingEvents(t *testing.T) {
	bus := NewInMemory()
	events, unsubscribe := bus.Subscribe("agent-1", "")
	defer unsubscribe()

	bus.Publish(Event{Kind: ExecutionStarted, AgentID: "agent-1", ExecutionID: "exec-1"})
	bus.Publish(Event{Kind: ExecutionStarted, AgentID: "agent-2", ExecutionID: "exec-2"})

	select {
	case got := <-events:
		if got.AgentID != "agent-1" {
			t.Errorf("AgentID = %q, want %q", got.AgentID, "agent-1")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	select {
	case got := <-events:
		t.Fatalf("unexpected second event for unrelated agent: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeFiltersByExecutionID(t *testing.T) {
	bus := NewInMemory()
	events, unsubscribe := bus.Subscribe("agent-1", "exec-1")
	defer unsubscribe()

	bus.Publish(Event{Kind: StepUpdate, AgentID: "agent-1", ExecutionID: "exec-2"})
	bus.Publish(Event{Kind: StepUpdate, AgentID: "agent-1", ExecutionID: "exec-1", StepID: "s1"})

	select {
	case got := <-events:
		if got.ExecutionID != "exec-1" || got.StepID != "s1" {
			t.Errorf("got %+v, want exec-1/s1", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestEventsArriveInPublishOrder(t *testing.T) {
	bus := NewInMemory()
	events, unsubscribe := bus.Subscribe("agent-1", "exec-1")
	defer unsubscribe()

	kinds := []Kind{ExecutionStarted, StepUpdate, StepUpdate, ExecutionCompleted}
	for _, k := range kinds {
		bus.Publish(Event{Kind: k, AgentID: "agent-1", ExecutionID: "exec-1"})
	}

	for i, want := range kinds {
		select {
		case got := <-events:
			if got.Kind != want {
				t.Errorf("event[%d].Kind = %q, want %q", i, got.Kind, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewInMemory()
	events, unsubscribe := bus.Subscribe("agent-1", "")
	unsubscribe()

	select {
	case _, ok := <-events:
		if ok {
			t.Error("expected channel to be closed after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestTopicFormatting(t *testing.T) {
	e := Event{Kind: StepUpdate, AgentID: "a1"}
	want := "agent:a1:step:update"
	if got := e.Topic(); got != want {
		t.Errorf("Topic() = %q, want %q", got, want)
	}
}
