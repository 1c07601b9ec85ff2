package events

import (
	"log"

	"hostmesh/internal/model"
)

// EventType is the kind of state transition a HostEvent reports.
type EventType string

const (
	HostAdded   EventType = "HOST_ADDED"
	HostMoved   EventType = "HOST_MOVED"
	HostUpdated EventType = "HOST_UPDATED"
	HostRemoved EventType = "HOST_REMOVED"
)

// HostEvent is delivered to every registered Listener on a local state
// transition. PrevLocation is only set for HostMoved.
type HostEvent struct {
	Type         EventType
	Host         model.Host
	PrevLocation *model.ConnectPoint
}

// Listener receives host events. Implementations must not block for
// long; the dispatcher calls listeners synchronously from the goroutine
// that produced the transition.
type Listener interface {
	HostEvent(ev HostEvent)
}

// ListenerFunc adapts a plain function to a Listener.
type ListenerFunc func(ev HostEvent)

func (f ListenerFunc) HostEvent(ev HostEvent) { f(ev) }

// Dispatcher fans a HostEvent out to every registered Listener.
type Dispatcher struct {
	listeners []Listener
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// AddListener registers l to receive future events. It takes no lock,
// so it is not safe to call concurrently with Dispatch.
func (d *Dispatcher) AddListener(l Listener) {
	d.listeners = append(d.listeners, l)
}

// Dispatch delivers ev to every registered listener, recovering and
// logging a panic from any one of them so it cannot affect the others
// or the caller.
func (d *Dispatcher) Dispatch(ev HostEvent) {
	for _, l := range d.listeners {
		d.invoke(l, ev)
	}
}

func (d *Dispatcher) invoke(l Listener, ev HostEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[events] listener panic on %s for host %s: %v", ev.Type, ev.Host.Id, r)
		}
	}()
	l.HostEvent(ev)
}
