package plank

const (
	BEGIN_CONTACT EventType = iota
	END_CONTACT
	SENSOR_BEGIN
	SENSOR_END
	ON_SLEEP
	ON_WAKE
	OUT_OF_BOUNDS
)

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// Contact events. The fixtures are copied out of the contact, which may be
// destroyed by the time the event is flushed.
type BeginContactEvent struct {
	FixtureA *Fixture
	FixtureB *Fixture
}

func (e BeginContactEvent) Type() EventType { return BEGIN_CONTACT }

type EndContactEvent struct {
	FixtureA *Fixture
	FixtureB *Fixture
}

func (e EndContactEvent) Type() EventType { return END_CONTACT }

// Sensor events
type SensorBeginEvent struct {
	Sensor *Fixture
	Other  *Fixture
}

func (e SensorBeginEvent) Type() EventType { return SENSOR_BEGIN }

type SensorEndEvent struct {
	Sensor *Fixture
	Other  *Fixture
}

func (e SensorEndEvent) Type() EventType { return SENSOR_END }

// Sleep/Wake events
type SleepEvent struct {
	Body *Body
}

func (e SleepEvent) Type() EventType { return ON_SLEEP }

type WakeEvent struct {
	Body *Body
}

func (e WakeEvent) Type() EventType { return ON_WAKE }

// OutOfBoundsEvent is sent for bodies whose AABB left the world bounds.
type OutOfBoundsEvent struct {
	Body *Body
}

func (e OutOfBoundsEvent) Type() EventType { return OUT_OF_BOUNDS }

// EventListener - callback for events
type EventListener func(event Event)

// Events buffers what happens during a step and sends it to the listeners
// once the step is over, when the world is unlocked again.
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	sleepStates map[*Body]bool
}

func NewEvents() Events {
	return Events{
		listeners:   make(map[EventType][]EventListener),
		buffer:      make([]Event, 0, 256),
		sleepStates: make(map[*Body]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

func (e *Events) hasListeners() bool {
	return len(e.listeners) > 0
}

func (e *Events) emitBegin(c *Contact) {
	if !e.hasListeners() {
		return
	}

	switch {
	case c.fixtureA.isSensor:
		e.buffer = append(e.buffer, SensorBeginEvent{Sensor: c.fixtureA, Other: c.fixtureB})
	case c.fixtureB.isSensor:
		e.buffer = append(e.buffer, SensorBeginEvent{Sensor: c.fixtureB, Other: c.fixtureA})
	default:
		e.buffer = append(e.buffer, BeginContactEvent{FixtureA: c.fixtureA, FixtureB: c.fixtureB})
	}
}

func (e *Events) emitEnd(c *Contact) {
	if !e.hasListeners() {
		return
	}

	switch {
	case c.fixtureA.isSensor:
		e.buffer = append(e.buffer, SensorEndEvent{Sensor: c.fixtureA, Other: c.fixtureB})
	case c.fixtureB.isSensor:
		e.buffer = append(e.buffer, SensorEndEvent{Sensor: c.fixtureB, Other: c.fixtureA})
	default:
		e.buffer = append(e.buffer, EndContactEvent{FixtureA: c.fixtureA, FixtureB: c.fixtureB})
	}
}

func (e *Events) emitOutOfBounds(body *Body) {
	if !e.hasListeners() {
		return
	}
	e.buffer = append(e.buffer, OutOfBoundsEvent{Body: body})
}

// processSleepEvents compares the awake flag of each body with the state seen
// at the previous step. A body is not reported on its first step.
func (e *Events) processSleepEvents(bodies []*Body) {
	if !e.hasListeners() {
		return
	}

	for _, body := range bodies {
		if body.bodyType == StaticBody {
			continue
		}

		sleeping := !body.IsAwake()
		trackedState, exists := e.sleepStates[body]
		if !exists {
			e.sleepStates[body] = sleeping
			continue
		}

		if !trackedState && sleeping {
			e.buffer = append(e.buffer, SleepEvent{Body: body})
			e.sleepStates[body] = true
		} else if trackedState && !sleeping {
			e.buffer = append(e.buffer, WakeEvent{Body: body})
			e.sleepStates[body] = false
		}
	}
}

func (e *Events) forget(body *Body) {
	delete(e.sleepStates, body)
}

// flush sends all buffered events and clears the buffer. Listeners may emit
// new events by mutating the world: those are sent at the next flush.
func (e *Events) flush() {
	buffer := e.buffer
	e.buffer = make([]Event, 0, cap(buffer))

	for _, event := range buffer {
		if listeners, ok := e.listeners[event.Type()]; ok {
			for _, listener := range listeners {
				listener(event)
			}
		}
	}
}
