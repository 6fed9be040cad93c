// Package policy decides which tasks an actor may see and act on.
//
// Single-case views are filtered by ownership: an actor sees tasks assigned
// to them plus unassigned standard tasks whose blueprint belongs to their
// role. Aggregate views (no case) are never filtered, so organisation-wide
// dashboards reflect all progress. Admins bypass filtering entirely.
package policy

import (
	"github.com/GoCodeAlone/docket/catalog"
	"github.com/GoCodeAlone/docket/lawcase"
	"github.com/GoCodeAlone/docket/task"
)

// Actor is the identity a request is evaluated for.
type Actor struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Role task.Role `json:"role"`
}

// Table maps role -> stage -> titles the role owns by default.
type Table map[task.Role]map[lawcase.Stage]map[string]bool

// FromCatalog builds the capability table from the active templates.
func FromCatalog(c *catalog.Catalog) Table {
	t := Table{}
	for _, tpl := range c.Templates() {
		if !tpl.IsActive {
			continue
		}
		for _, b := range tpl.Blueprints {
			t.Allow(b.AssignedToRole, tpl.Stage, b.Title)
		}
	}
	return t
}

// Allow grants role the unassigned task titled title in stage.
func (t Table) Allow(role task.Role, stage lawcase.Stage, title string) {
	stages, ok := t[role]
	if !ok {
		stages = map[lawcase.Stage]map[string]bool{}
		t[role] = stages
	}
	titles, ok := stages[stage]
	if !ok {
		titles = map[string]bool{}
		stages[stage] = titles
	}
	titles[title] = true
}

// Permits reports whether role owns the title in stage.
func (t Table) Permits(role task.Role, stage lawcase.Stage, title string) bool {
	return t[role][stage][title]
}

// CanAct reports whether actor may see and mutate tk in a single-case view.
func (t Table) CanAct(actor Actor, tk task.Task) bool {
	if actor.Role == task.RoleAdmin {
		return true
	}
	if !actor.Role.Valid() {
		return false
	}
	if tk.AssignedTo != nil {
		return tk.AssignedTo.ActorID == actor.ID
	}
	return t.Permits(actor.Role, tk.Stage, tk.Title)
}

// VisibleTasks returns the tasks actor may see. With an empty caseID every
// task is returned unfiltered; otherwise only the case's tasks that pass
// CanAct. Input order is preserved.
func (t Table) VisibleTasks(all []task.Task, caseID string, actor Actor) []task.Task {
	out := make([]task.Task, 0, len(all))
	if caseID == "" {
		return append(out, all...)
	}
	for _, tk := range all {
		if tk.CaseID != caseID {
			continue
		}
		if t.CanAct(actor, tk) {
			out = append(out, tk)
		}
	}
	return out
}
