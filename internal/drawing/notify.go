package drawing

import (
	"log/slog"
	"slices"

	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
)

// Event names a drawing notification.
type Event string

const (
	EventReady            Event = "ready"
	EventDoodleAdded      Event = "doodleAdded"
	EventDoodleDeleted    Event = "doodleDeleted"
	EventDoodleSelected   Event = "doodleSelected"
	EventDoodleDeselected Event = "doodleDeselected"
	EventParameterChanged Event = "parameterChanged"
	EventZoomIn           Event = "drawingZoomIn"
	EventZoomOut          Event = "drawingZoomOut"
)

// Notification is delivered synchronously to every listener. Doodle is nil for
// drawing-level events; Parameter, Old and New are set for parameter changes.
type Notification struct {
	Event     Event
	Doodle    *doodle.Doodle
	Parameter string
	Old       any
	New       any
}

// Listener receives notifications.
type Listener func(Notification)

type subscription struct {
	id int
	fn Listener
}

// notifier calls listeners in registration order. Subscriptions made or cancelled while a
// dispatch is running take effect when the outermost dispatch ends.
type notifier struct {
	logger      *slog.Logger
	listeners   []subscription
	nextID      int
	dispatching int
	pending     []func()
}

// Subscribe registers a listener and returns a function that removes it.
func (d *Drawing) Subscribe(fn Listener) (unsubscribe func()) {
	n := &d.notifier
	n.nextID++
	id := n.nextID

	n.whenIdle(func() {
		n.listeners = append(n.listeners, subscription{id: id, fn: fn})
	})

	return func() {
		n.whenIdle(func() {
			for i, s := range n.listeners {
				if s.id == id {
					n.listeners = slices.Delete(n.listeners, i, i+1)
					return
				}
			}
		})
	}
}

func (n *notifier) whenIdle(change func()) {
	if n.dispatching > 0 {
		n.pending = append(n.pending, change)
		return
	}
	change()
}

func (d *Drawing) emit(note Notification) {
	n := &d.notifier
	n.dispatching++
	for _, s := range n.listeners {
		n.call(s.fn, note)
	}
	n.dispatching--

	if n.dispatching == 0 && len(n.pending) > 0 {
		pending := n.pending
		n.pending = nil
		for _, change := range pending {
			change()
		}
	}
}

func (n *notifier) call(fn Listener, note Notification) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("notification listener panicked", "event", note.Event, "panic", r)
		}
	}()
	fn(note)
}
