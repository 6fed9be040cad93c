// Package comms provides the task activity bus. The task store publishes an
// event for every mutation; the server relays them to dashboards.
package comms

import (
	"context"
	"time"
)

// EventType identifies the kind of task activity.
type EventType string

const (
	TypeTaskCreated   EventType = "task.created"
	TypeTaskUpdated   EventType = "task.updated"
	TypeTaskAssigned  EventType = "task.assigned"
	TypeTaskCompleted EventType = "task.completed"
	TypeTaskDeleted   EventType = "task.deleted"
)

// Event describes one change to the task collection.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TaskID    string    `json:"task_id"`
	CaseID    string    `json:"case_id"`
	ActorID   string    `json:"actor_id,omitempty"` // who caused the change, if known
	Status    string    `json:"status,omitempty"`   // task status after the change
	Timestamp time.Time `json:"timestamp"`
}

// Handler processes an event.
type Handler func(ctx context.Context, ev *Event) error

// Bus fans task events out to subscribers and keeps recent history.
type Bus interface {
	// Publish delivers ev to subscribers of its case and to wildcard
	// subscribers.
	Publish(ctx context.Context, ev *Event) error

	// Subscribe registers a handler for events on caseID. An empty caseID
	// receives every event. Returns an unsubscribe function.
	Subscribe(caseID string, handler Handler) (unsubscribe func())

	// History returns recent events for caseID (all cases if empty).
	History(caseID string, limit int) ([]*Event, error)
}
