// Package task defines the case task model, its lifecycle state machine and
// the snapshot-persisted task store.
package task

import (
	"time"

	"github.com/GoCodeAlone/docket/lawcase"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Priority orders tasks on dashboards.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// Role is the closed set of actor roles.
type Role string

const (
	RoleAttorney    Role = "attorney"
	RoleCaseManager Role = "caseManager"
	RoleAdmin       Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAttorney, RoleCaseManager, RoleAdmin:
		return true
	default:
		return false
	}
}

// Assignable reports whether tasks may be assigned to actors with role r.
// Admins see everything but never own work.
func (r Role) Assignable() bool {
	return r == RoleAttorney || r == RoleCaseManager
}

// Assignee identifies who a task is assigned to.
type Assignee struct {
	ActorID string `json:"actor_id"`
	Name    string `json:"name"`
	Role    Role   `json:"role"`
}

// Task is a unit of work tied to exactly one case.
type Task struct {
	ID          string        `json:"id"`
	CaseID      string        `json:"case_id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Stage       lawcase.Stage `json:"stage,omitempty"`
	Status      Status        `json:"status"`
	Priority    Priority      `json:"priority"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
	IsStandard  bool          `json:"is_standard"`
	TemplateID  string        `json:"template_id,omitempty"` // set when generated from a template
	AssignedTo  *Assignee     `json:"assigned_to,omitempty"`
	AssignedBy  string        `json:"assigned_by,omitempty"`
	AssignedAt  *time.Time    `json:"assigned_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	CompletedBy string        `json:"completed_by,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// IsAssignedTo reports whether the task is assigned to actorID.
func (t *Task) IsAssignedTo(actorID string) bool {
	return t.AssignedTo != nil && t.AssignedTo.ActorID == actorID
}

// clone returns a deep copy so callers never alias store state.
func (t Task) clone() Task {
	out := t
	out.DueDate = copyTime(t.DueDate)
	out.AssignedAt = copyTime(t.AssignedAt)
	out.CompletedAt = copyTime(t.CompletedAt)
	if t.AssignedTo != nil {
		a := *t.AssignedTo
		out.AssignedTo = &a
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// IsOverdue reports whether t is past due while still pending. Overdue is a
// view computed at read time and is never stored as a status.
func IsOverdue(t Task, now time.Time) bool {
	return t.Status == StatusPending && t.DueDate != nil && t.DueDate.Before(now)
}

// View is the read model handed to dashboards.
type View struct {
	Task
	Overdue bool `json:"overdue"`
}

// Views decorates tasks with their derived overdue flag.
func Views(tasks []Task, now time.Time) []View {
	out := make([]View, len(tasks))
	for i, t := range tasks {
		out[i] = View{Task: t, Overdue: IsOverdue(t, now)}
	}
	return out
}

// Filter controls which tasks are returned by List.
type Filter struct {
	CaseID     string        `json:"case_id,omitempty"`
	Status     *Status       `json:"status,omitempty"`
	AssignedTo string        `json:"assigned_to,omitempty"`
	Stage      lawcase.Stage `json:"stage,omitempty"`
	TemplateID string        `json:"template_id,omitempty"`
}

func (f Filter) match(t *Task) bool {
	if f.CaseID != "" && t.CaseID != f.CaseID {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.AssignedTo != "" && !t.IsAssignedTo(f.AssignedTo) {
		return false
	}
	if f.Stage != "" && t.Stage != f.Stage {
		return false
	}
	if f.TemplateID != "" && t.TemplateID != f.TemplateID {
		return false
	}
	return true
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Stage       *lawcase.Stage `json:"stage,omitempty"`
	Status      *Status        `json:"status,omitempty"`
	Priority    *Priority      `json:"priority,omitempty"`
	DueDate     *time.Time     `json:"due_date,omitempty"`
	ClearDue    bool           `json:"clear_due_date,omitempty"`
	ActorID     string         `json:"-"`
}
