package feather2d

import (
	"iter"

	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/constraint"
)

const (
	CONTACT_BEGIN EventType = iota
	CONTACT_END
	POST_SOLVE
	ON_SLEEP
	ON_WAKE
)

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// ContactBeginEvent is sent when two shapes start touching
type ContactBeginEvent struct {
	Contact ContactID
	BodyA   *actor.RigidBody
	BodyB   *actor.RigidBody
}

func (e ContactBeginEvent) Type() EventType { return CONTACT_BEGIN }

// ContactEndEvent is sent when two shapes stop touching, or when a touching contact
// is destroyed
type ContactEndEvent struct {
	Contact ContactID
	BodyA   *actor.RigidBody
	BodyB   *actor.RigidBody
}

func (e ContactEndEvent) Type() EventType { return CONTACT_END }

// PostSolveEvent reports the impulses applied to a contact during the last step
type PostSolveEvent struct {
	Contact ContactID
	BodyA   *actor.RigidBody
	BodyB   *actor.RigidBody

	NormalImpulses  [constraint.MaxManifoldPoints]float64
	TangentImpulses [constraint.MaxManifoldPoints]float64
	PointCount      int
}

func (e PostSolveEvent) Type() EventType { return POST_SOLVE }

// Sleep/Wake events
type SleepEvent struct {
	Body *actor.RigidBody
}

func (e SleepEvent) Type() EventType { return ON_SLEEP }

type WakeEvent struct {
	Body *actor.RigidBody
}

func (e WakeEvent) Type() EventType { return ON_WAKE }

// EventListener - callback for events
type EventListener func(event Event)

// Events buffers what happened during a step and dispatches it once the step is over
type Events struct {
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	sleepStates map[*actor.RigidBody]bool
}

func NewEvents() Events {
	return Events{
		listeners:   make(map[EventType][]EventListener),
		buffer:      make([]Event, 0, 256),
		sleepStates: make(map[*actor.RigidBody]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

func (e *Events) emit(event Event) {
	e.buffer = append(e.buffer, event)
}

// track starts following the sleep state of a body
func (e *Events) track(body *actor.RigidBody) {
	e.sleepStates[body] = body.IsSleeping
}

func (e *Events) forget(body *actor.RigidBody) {
	delete(e.sleepStates, body)
}

// processSleepEvents compares the sleep state of every body with the one seen at the
// previous step
func (e *Events) processSleepEvents(bodies iter.Seq2[BodyID, *actor.RigidBody]) {
	for _, body := range bodies {
		wasSleeping, exists := e.sleepStates[body]
		if !exists {
			e.sleepStates[body] = body.IsSleeping
			continue
		}

		if !wasSleeping && body.IsSleeping {
			e.emit(SleepEvent{Body: body})
			e.sleepStates[body] = true
		} else if wasSleeping && !body.IsSleeping {
			e.emit(WakeEvent{Body: body})
			e.sleepStates[body] = false
		}
	}
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	for _, event := range e.buffer {
		for _, listener := range e.listeners[event.Type()] {
			listener(event)
		}
	}
	clear(e.buffer)
	e.buffer = e.buffer[:0]
}
