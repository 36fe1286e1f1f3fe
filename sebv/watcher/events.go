package watcher

import (
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventWrite
	EventRemove
	EventRename
	EventChmod
)

func (t EventType) String() string {
	switch t {
	case EventCreate:
		return "create"
	case EventWrite:
		return "write"
	case EventRemove:
		return "remove"
	case EventRename:
		return "rename"
	default:
		return "chmod"
	}
}

// Event is a change below the watched installation.
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// convertEvent maps an fsnotify event, returning false for unknown ops.
func convertEvent(event fsnotify.Event, now time.Time) (Event, bool) {
	var eventType EventType

	switch {
	case event.Has(fsnotify.Create):
		eventType = EventCreate
	case event.Has(fsnotify.Write):
		eventType = EventWrite
	case event.Has(fsnotify.Remove):
		eventType = EventRemove
	case event.Has(fsnotify.Rename):
		eventType = EventRename
	case event.Has(fsnotify.Chmod):
		eventType = EventChmod
	default:
		return Event{}, false
	}

	return Event{Type: eventType, Path: event.Name, Timestamp: now}, true
}
