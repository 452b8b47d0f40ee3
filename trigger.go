package tendon

import (
	"sort"

	"github.com/akmonengine/tendon/actor"
)

const (
	TRIGGER_ENTER EventType = iota
	COLLISION_ENTER
	TRIGGER_STAY
	COLLISION_STAY
	TRIGGER_EXIT
	COLLISION_EXIT
	ON_SLEEP
	ON_WAKE
)

type pairKey struct {
	colliderA ColliderHandle
	colliderB ColliderHandle
}

// makePairKey creates a normalized pair key with consistent ordering
func makePairKey(a, b ColliderHandle) pairKey {
	if b.Index < a.Index {
		a, b = b, a
	}
	return pairKey{colliderA: a, colliderB: b}
}

type pairState struct {
	sensor       bool
	bodyA, bodyB *actor.RigidBody
}

// resting reports whether neither body of the pair can move: both are
// asleep or static. A resting pair is neither reported nor exited.
func (s pairState) resting() bool {
	return idle(s.bodyA) && idle(s.bodyB)
}

func idle(body *actor.RigidBody) bool {
	return body.IsSleeping || body.BodyType == actor.BodyTypeStatic
}

// sortedPairs returns the keys of pairs by collider index.
func sortedPairs(pairs map[pairKey]pairState) []pairKey {
	keys := make([]pairKey, 0, len(pairs))
	for pair := range pairs {
		keys = append(keys, pair)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.colliderA.Index != b.colliderA.Index {
			return a.colliderA.Index < b.colliderA.Index
		}
		return a.colliderB.Index < b.colliderB.Index
	})
	return keys
}

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// Trigger events
type TriggerEnterEvent struct {
	ColliderA ColliderHandle
	ColliderB ColliderHandle
}

func (e TriggerEnterEvent) Type() EventType { return TRIGGER_ENTER }

type TriggerStayEvent struct {
	ColliderA ColliderHandle
	ColliderB ColliderHandle
}

func (e TriggerStayEvent) Type() EventType { return TRIGGER_STAY }

type TriggerExitEvent struct {
	ColliderA ColliderHandle
	ColliderB ColliderHandle
}

func (e TriggerExitEvent) Type() EventType { return TRIGGER_EXIT }

// Collision events
type CollisionEnterEvent struct {
	ColliderA ColliderHandle
	ColliderB ColliderHandle
}

func (e CollisionEnterEvent) Type() EventType { return COLLISION_ENTER }

type CollisionStayEvent struct {
	ColliderA ColliderHandle
	ColliderB ColliderHandle
}

func (e CollisionStayEvent) Type() EventType { return COLLISION_STAY }

type CollisionExitEvent struct {
	ColliderA ColliderHandle
	ColliderB ColliderHandle
}

func (e CollisionExitEvent) Type() EventType { return COLLISION_EXIT }

// Sleep/Wake events
type SleepEvent struct {
	Part BodyPart
}

func (e SleepEvent) Type() EventType { return ON_SLEEP }

type WakeEvent struct {
	Part BodyPart
}

func (e WakeEvent) Type() EventType { return ON_WAKE }

// EventListener - callback for events
type EventListener func(event Event)

// Events manager
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	// Collision tracking for Enter/Stay/Exit detection
	previousActivePairs map[pairKey]pairState
	currentActivePairs  map[pairKey]pairState

	sleepStates map[BodyPart]bool
}

func NewEvents() Events {
	return Events{
		listeners:           make(map[EventType][]EventListener),
		buffer:              make([]Event, 0, 256),
		previousActivePairs: make(map[pairKey]pairState),
		currentActivePairs:  make(map[pairKey]pairState),
		sleepStates:         make(map[BodyPart]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// recordCollisions is called during substeps to record the touching pairs.
// Contacts involving a sensor are dropped from the returned slice.
func (e *Events) recordCollisions(contacts []Contact) []Contact {
	n := 0
	for _, c := range contacts {
		pair := makePairKey(c.ColliderA.handle, c.ColliderB.handle)
		sensor := c.ColliderA.Sensor || c.ColliderB.Sensor
		e.currentActivePairs[pair] = pairState{
			sensor: sensor,
			bodyA:  c.ColliderA.body,
			bodyB:  c.ColliderB.body,
		}

		if !sensor {
			contacts[n] = c
			n++
		}
	}

	return contacts[:n]
}

// processCollisionEvents compares current and previous pairs to detect Enter/Stay/Exit
// Should be called after all substeps
func (e *Events) processCollisionEvents() {
	// Detect Enter and Stay events
	for _, pair := range sortedPairs(e.currentActivePairs) {
		state := e.currentActivePairs[pair]
		// Skip resting pairs, to avoid spamming events
		if state.resting() {
			continue
		}

		if _, ok := e.previousActivePairs[pair]; ok {
			// Pair was active before and still is, Stay
			if state.sensor {
				e.buffer = append(e.buffer, TriggerStayEvent{ColliderA: pair.colliderA, ColliderB: pair.colliderB})
			} else {
				e.buffer = append(e.buffer, CollisionStayEvent{ColliderA: pair.colliderA, ColliderB: pair.colliderB})
			}
		} else {
			// New pair, Enter
			if state.sensor {
				e.buffer = append(e.buffer, TriggerEnterEvent{ColliderA: pair.colliderA, ColliderB: pair.colliderB})
			} else {
				e.buffer = append(e.buffer, CollisionEnterEvent{ColliderA: pair.colliderA, ColliderB: pair.colliderB})
			}
		}
	}

	// Detect Exit events
	for _, pair := range sortedPairs(e.previousActivePairs) {
		if _, ok := e.currentActivePairs[pair]; ok {
			continue
		}
		state := e.previousActivePairs[pair]
		// the broad phase skips sleeping pairs: they still touch
		if state.resting() {
			e.currentActivePairs[pair] = state
			continue
		}
		// Pair was active but is no longer, Exit
		if state.sensor {
			e.buffer = append(e.buffer, TriggerExitEvent{ColliderA: pair.colliderA, ColliderB: pair.colliderB})
		} else {
			e.buffer = append(e.buffer, CollisionExitEvent{ColliderA: pair.colliderA, ColliderB: pair.colliderB})
		}
	}

	// Swap for next frame and clear current
	e.previousActivePairs, e.currentActivePairs = e.currentActivePairs, e.previousActivePairs
	clear(e.currentActivePairs)
}

func (e *Events) processSleepEvents(parts []BodyPart, bodies []*actor.RigidBody) {
	for i, part := range parts {
		body := bodies[i]
		trackedState, exists := e.sleepStates[part]
		if !exists {
			e.sleepStates[part] = body.IsSleeping
			continue
		}

		if !trackedState && body.IsSleeping {
			e.buffer = append(e.buffer, SleepEvent{Part: part})
			e.sleepStates[part] = true
		} else if trackedState && !body.IsSleeping {
			e.buffer = append(e.buffer, WakeEvent{Part: part})
			e.sleepStates[part] = false
		}
	}
}

// forgetCollider drops the tracked pairs of a removed collider, so no exit
// event refers to it.
func (e *Events) forgetCollider(h ColliderHandle) {
	for pair := range e.previousActivePairs {
		if pair.colliderA == h || pair.colliderB == h {
			delete(e.previousActivePairs, pair)
		}
	}
}

func (e *Events) forgetPart(part BodyPart) {
	delete(e.sleepStates, part)
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	e.processCollisionEvents()

	for _, event := range e.buffer {
		if listeners, ok := e.listeners[event.Type()]; ok {
			for _, listener := range listeners {
				listener(event)
			}
		}
	}
	e.buffer = e.buffer[:0]
}
