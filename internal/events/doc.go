// Package events defines the HostEvent delegate notification and a
// Dispatcher that fans a single event out to every registered listener,
// recovering from a listener panic so one bad delegate cannot take down
// the caller that produced the event.
package events
