package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/GoCodeAlone/docket/catalog"
	"github.com/GoCodeAlone/docket/comms"
	"github.com/GoCodeAlone/docket/deadline"
	"github.com/GoCodeAlone/docket/lawcase"
	"github.com/GoCodeAlone/docket/matrix"
	"github.com/GoCodeAlone/docket/policy"
	"github.com/GoCodeAlone/docket/task"
)

// ErrForbidden is returned when an actor may not act on a task.
var ErrForbidden = errors.New("forbidden")

// Service is the actor-aware entry point over the task engine.
type Service struct {
	store   *task.Store
	catalog *catalog.Catalog
	cases   lawcase.Source
	policy  policy.Table
	gen     *Generator
	columns []string
	logger  *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithColumns overrides the matrix columns.
func WithColumns(cols []string) ServiceOption {
	return func(s *Service) {
		if len(cols) > 0 {
			s.columns = append([]string(nil), cols...)
		}
	}
}

// WithPolicy replaces the capability table built from the catalog.
func WithPolicy(t policy.Table) ServiceOption { return func(s *Service) { s.policy = t } }

// WithServiceLogger sets the logger.
func WithServiceLogger(l *slog.Logger) ServiceOption { return func(s *Service) { s.logger = l } }

// NewService wires the engine together. The capability table is derived from
// the catalog's active templates at construction.
func NewService(store *task.Store, cat *catalog.Catalog, cases lawcase.Source, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		catalog: cat,
		cases:   cases,
		columns: matrix.DefaultColumns,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.policy == nil {
		s.policy = policy.FromCatalog(cat)
	}
	s.gen = NewGenerator(cat, store, s.logger)
	return s
}

// Catalog returns the template catalog.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// Tasks returns the tasks actor may see. An empty caseID is the aggregate
// view and is not filtered.
func (s *Service) Tasks(caseID string, actor policy.Actor) []task.View {
	return s.Search(task.Filter{CaseID: caseID}, actor)
}

// Search is Tasks with additional store filters. Visibility is decided by
// filter.CaseID alone.
func (s *Service) Search(filter task.Filter, actor policy.Actor) []task.View {
	all := s.store.List(filter)
	return task.Views(s.policy.VisibleTasks(all, filter.CaseID, actor), s.store.Now())
}

// Task returns one task if actor may see it.
func (s *Service) Task(id string, actor policy.Actor) (task.View, error) {
	t, err := s.store.Get(id)
	if err != nil {
		return task.View{}, err
	}
	if !s.policy.CanAct(actor, t) {
		return task.View{}, fmt.Errorf("task %s: %w", id, ErrForbidden)
	}
	return task.View{Task: t, Overdue: task.IsOverdue(t, s.store.Now())}, nil
}

// EventVisible reports whether actor may see ev in a single-case activity
// view. The event is judged by its task's current state; events for tasks
// that no longer exist are shown to admins only.
func (s *Service) EventVisible(actor policy.Actor, ev *comms.Event) bool {
	if actor.Role == task.RoleAdmin {
		return true
	}
	t, err := s.store.Get(ev.TaskID)
	if err != nil {
		return false
	}
	return s.policy.CanAct(actor, t)
}

// Activity returns up to limit of the most recent events actor may see, in
// chronological order. As with Tasks, an empty caseID is the aggregate feed
// and is not filtered. A limit of zero or less returns everything.
func (s *Service) Activity(history []*comms.Event, caseID string, actor policy.Actor, limit int) []*comms.Event {
	out := make([]*comms.Event, 0, len(history))
	for _, ev := range history {
		if caseID != "" && (ev.CaseID != caseID || !s.EventVisible(actor, ev)) {
			continue
		}
		out = append(out, ev)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Create adds an ad hoc task to a case. When a case source is configured the
// case must exist. Assignment and completion bookkeeping is always recorded
// as the calling actor at the store's clock.
func (s *Service) Create(ctx context.Context, actor policy.Actor, t task.Task) (task.Task, error) {
	if !actor.Role.Valid() {
		return task.Task{}, fmt.Errorf("role %q: %w", actor.Role, ErrForbidden)
	}
	if s.cases != nil && t.CaseID != "" {
		if _, err := s.cases.GetCase(ctx, t.CaseID); err != nil {
			return task.Task{}, err
		}
	}
	t.IsStandard = false
	t.TemplateID = ""
	t.AssignedAt, t.AssignedBy = nil, ""
	t.CompletedAt, t.CompletedBy = nil, ""
	if t.AssignedTo != nil {
		t.AssignedBy = actor.ID
	}
	if t.Status == task.StatusCompleted {
		t.CompletedBy = actor.ID
	}
	return s.store.Create(ctx, t)
}

// Update patches a task the actor may act on.
func (s *Service) Update(ctx context.Context, actor policy.Actor, id string, p task.Patch) (task.Task, error) {
	p.ActorID = actor.ID
	return s.guarded(ctx, actor, id, func(tx *task.Tx) (task.Task, error) {
		return tx.Update(id, p)
	})
}

// Delete removes a task the actor may act on.
func (s *Service) Delete(ctx context.Context, actor policy.Actor, id string) error {
	_, err := s.guarded(ctx, actor, id, func(tx *task.Tx) (task.Task, error) {
		return task.Task{}, tx.Delete(id)
	})
	return err
}

// Assign hands a task to assignee on behalf of actor.
func (s *Service) Assign(ctx context.Context, actor policy.Actor, id string, assignee task.Assignee) (task.Task, error) {
	return s.guarded(ctx, actor, id, func(tx *task.Tx) (task.Task, error) {
		return tx.Assign(id, assignee, actor.ID)
	})
}

// Complete marks a task completed by actor.
func (s *Service) Complete(ctx context.Context, actor policy.Actor, id string) (task.Task, error) {
	return s.guarded(ctx, actor, id, func(tx *task.Tx) (task.Task, error) {
		return tx.Complete(id, actor.ID)
	})
}

// Cycle advances a task to its next checklist status.
func (s *Service) Cycle(ctx context.Context, actor policy.Actor, id string) (task.Task, error) {
	return s.guarded(ctx, actor, id, func(tx *task.Tx) (task.Task, error) {
		return tx.Cycle(id, actor.ID)
	})
}

// guarded checks CanAct and applies fn in the same mutation so the check
// and the write see the same task.
func (s *Service) guarded(ctx context.Context, actor policy.Actor, id string, fn func(tx *task.Tx) (task.Task, error)) (task.Task, error) {
	var out task.Task
	err := s.store.Mutate(ctx, func(tx *task.Tx) error {
		cur, err := tx.Get(id)
		if err != nil {
			return err
		}
		if !s.policy.CanAct(actor, cur) {
			return fmt.Errorf("task %s: %w", id, ErrForbidden)
		}
		out, err = fn(tx)
		return err
	})
	if errors.Is(err, ErrForbidden) {
		s.logger.Warn("task write denied",
			slog.String("task_id", id),
			slog.String("actor_id", actor.ID),
			slog.String("role", string(actor.Role)))
	}
	return out, err
}

// Generate creates the stage checklist for a case. An empty stage uses the
// case's current stage. The case's attorney receives attorney-role tasks.
func (s *Service) Generate(ctx context.Context, actor policy.Actor, caseID string, stage lawcase.Stage) ([]task.Task, error) {
	if !actor.Role.Valid() {
		return nil, fmt.Errorf("role %q: %w", actor.Role, ErrForbidden)
	}
	var attorney *task.Assignee
	if s.cases != nil {
		c, err := s.cases.GetCase(ctx, caseID)
		if err != nil {
			return nil, err
		}
		if stage == "" {
			stage = c.Stage
		}
		if c.Attorney != nil && c.Attorney.ID != "" {
			attorney = &task.Assignee{ActorID: c.Attorney.ID, Name: c.Attorney.Name, Role: task.RoleAttorney}
		}
	}
	if stage == "" {
		return nil, fmt.Errorf("%w: stage is required", task.ErrValidation)
	}
	return s.gen.GenerateTasksForCase(ctx, caseID, stage, attorney)
}

func (s *Service) listCases(ctx context.Context) ([]lawcase.Case, error) {
	if s.cases == nil {
		return nil, nil
	}
	cs, err := s.cases.ListCases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return cs, nil
}

// SOLAlerts classifies statute-of-limitations deadlines as of now.
func (s *Service) SOLAlerts(ctx context.Context) ([]deadline.Entry, error) {
	cs, err := s.listCases(ctx)
	if err != nil {
		return nil, err
	}
	return deadline.ClassifySOL(cs, s.store.Now()), nil
}

// AnteLitemAlerts classifies ante-litem notice deadlines as of now.
func (s *Service) AnteLitemAlerts(ctx context.Context) ([]deadline.Entry, error) {
	cs, err := s.listCases(ctx)
	if err != nil {
		return nil, err
	}
	return deadline.ClassifyAnteLitem(cs, s.store.Now()), nil
}

// Matrix builds the firm-wide checklist grid. Aggregate views are unfiltered.
func (s *Service) Matrix(ctx context.Context) (matrix.Matrix, error) {
	cs, err := s.listCases(ctx)
	if err != nil {
		return matrix.Matrix{}, err
	}
	return matrix.Build(cs, s.store.All(), s.columns, s.store.Now()), nil
}
