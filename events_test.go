package feather2d

import (
	"iter"
	"testing"

	"github.com/akmonengine/feather2d/actor"
	"github.com/go-gl/mathgl/mgl64"
)

type eventCapture struct {
	events []Event
}

func (ec *eventCapture) capture(event Event) {
	ec.events = append(ec.events, event)
}

func (ec *eventCapture) reset() {
	ec.events = ec.events[:0]
}

func (ec *eventCapture) count() int {
	return len(ec.events)
}

func (ec *eventCapture) hasEventType(eventType EventType) bool {
	for _, e := range ec.events {
		if e.Type() == eventType {
			return true
		}
	}
	return false
}

// bodySeq iterates bodies the way World.Bodies does
func bodySeq(bodies ...*actor.RigidBody) iter.Seq2[BodyID, *actor.RigidBody] {
	return func(yield func(BodyID, *actor.RigidBody) bool) {
		for i, body := range bodies {
			if !yield(BodyID{index: int32(i), generation: 1}, body) {
				return
			}
		}
	}
}

func TestEvents_Subscribe(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}

	events.Subscribe(CONTACT_BEGIN, capture.capture)
	events.Subscribe(CONTACT_BEGIN, capture.capture)

	if len(events.listeners[CONTACT_BEGIN]) != 2 {
		t.Errorf("Expected 2 listeners for CONTACT_BEGIN, got %d", len(events.listeners[CONTACT_BEGIN]))
	}
	if len(events.listeners[CONTACT_END]) != 0 {
		t.Errorf("Expected no listener for CONTACT_END, got %d", len(events.listeners[CONTACT_END]))
	}
}

func TestEvents_FlushDispatchesByType(t *testing.T) {
	events := NewEvents()
	begins := &eventCapture{}
	ends := &eventCapture{}
	events.Subscribe(CONTACT_BEGIN, begins.capture)
	events.Subscribe(CONTACT_END, ends.capture)

	bodyA := createTestCircle(mgl64.Vec2{0, 0}, 1)
	bodyB := createTestCircle(mgl64.Vec2{1, 0}, 1)
	events.emit(ContactBeginEvent{BodyA: bodyA, BodyB: bodyB})
	events.emit(ContactBeginEvent{BodyA: bodyB, BodyB: bodyA})
	events.emit(PostSolveEvent{BodyA: bodyA, BodyB: bodyB})

	if begins.count() != 0 {
		t.Errorf("events dispatched before flush")
	}

	events.flush()

	if begins.count() != 2 || !begins.hasEventType(CONTACT_BEGIN) {
		t.Errorf("Expected 2 CONTACT_BEGIN events, got %d", begins.count())
	}
	if ends.count() != 0 {
		t.Errorf("Expected no CONTACT_END event, got %d", ends.count())
	}
	if len(events.buffer) != 0 {
		t.Errorf("buffer not cleared after flush: %d events", len(events.buffer))
	}

	begins.reset()
	events.flush()
	if begins.count() != 0 {
		t.Errorf("events sent twice")
	}
}

func TestEvents_ProcessSleepEvents(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	events.Subscribe(ON_SLEEP, capture.capture)
	events.Subscribe(ON_WAKE, capture.capture)

	body := createTestCircle(mgl64.Vec2{0, 0}, 1)
	events.track(body)

	tests := []struct {
		name     string
		sleeping bool
		expected []EventType
	}{
		{"still awake", false, nil},
		{"falls asleep", true, []EventType{ON_SLEEP}},
		{"keeps sleeping", true, nil},
		{"wakes up", false, []EventType{ON_WAKE}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capture.reset()
			body.IsSleeping = tt.sleeping

			events.processSleepEvents(bodySeq(body))
			events.flush()

			if capture.count() != len(tt.expected) {
				t.Fatalf("Expected %d events, got %d", len(tt.expected), capture.count())
			}
			for i, eventType := range tt.expected {
				if capture.events[i].Type() != eventType {
					t.Errorf("event %d type = %v, want %v", i, capture.events[i].Type(), eventType)
				}
			}
		})
	}
}

func TestEvents_UntrackedBodyIsRecordedSilently(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	events.Subscribe(ON_SLEEP, capture.capture)

	body := createTestCircle(mgl64.Vec2{0, 0}, 1)
	body.IsSleeping = true

	events.processSleepEvents(bodySeq(body))
	events.flush()
	if capture.count() != 0 {
		t.Errorf("first sighting of a body produced %d events", capture.count())
	}

	events.forget(body)
	if _, exists := events.sleepStates[body]; exists {
		t.Errorf("forgotten body still tracked")
	}
}
