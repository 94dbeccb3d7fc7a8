// Package input defines the platform-neutral events the viewer consumes.
// The window host translates native events into these.
package input

// EventType identifies an input event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventPointerMove
	EventPointerDown
	EventPointerUp
	EventWheel
)

// Key is a host-independent key code. Only keys the viewer binds are named.
type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeyF12
	KeyR
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
)

// Pointer buttons, numbered like SDL and the orbit controls.
const (
	ButtonLeft   uint8 = 1
	ButtonMiddle uint8 = 2
	ButtonRight  uint8 = 3
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    Key
	Width  int
	Height int
	X      int
	Y      int
	Button uint8
	Wheel  float32 // Positive scrolls away from the user
}

// Queue collects events for one frame.
type Queue struct {
	events []Event
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{events: make([]Event, 0, 16)}
}

// Push appends an event.
func (q *Queue) Push(e Event) {
	q.events = append(q.events, e)
}

// Drain returns the queued events and empties the queue. The returned
// slice is only valid until the next Push.
func (q *Queue) Drain() []Event {
	ev := q.events
	q.events = q.events[:0]
	return ev
}

// Quit reports whether any event asks the application to close.
func Quit(events []Event) bool {
	for _, e := range events {
		if e.Type == EventQuit || (e.Type == EventKeyDown && e.Key == KeyEscape) {
			return true
		}
	}
	return false
}

// KeyPressed checks if a specific key was pressed in events.
func KeyPressed(events []Event, key Key) bool {
	for _, e := range events {
		if e.Type == EventKeyDown && e.Key == key {
			return true
		}
	}
	return false
}
