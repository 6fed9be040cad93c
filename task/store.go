package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GoCodeAlone/docket/comms"
)

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// Publisher receives an event for every committed mutation.
type Publisher interface {
	Publish(ctx context.Context, ev *comms.Event) error
}

// Store is the single source of truth for task instances. Every committed
// mutation writes a full snapshot through the Repository; a failed write is
// logged and the in-memory state is kept. Across processes the last save wins.
type Store struct {
	mu       sync.Mutex
	repo     Repository
	tasks    []Task
	now      Clock
	newID    func() string
	logger   *slog.Logger
	pub      Publisher
	defaults []Task

	// unreadable is set when Open could not decode the stored snapshot. The
	// payload is handed to the repository's Preserver before the first save.
	unreadable bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(c Clock) Option { return func(s *Store) { s.now = c } }

// WithLogger sets the logger used for persistence warnings.
func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.logger = l } }

// WithPublisher attaches an event publisher, typically a comms.Bus.
func WithPublisher(p Publisher) Option { return func(s *Store) { s.pub = p } }

// WithDefaults sets the task set used when the snapshot cannot be read.
func WithDefaults(tasks []Task) Option { return func(s *Store) { s.defaults = tasks } }

// WithIDGenerator overrides UUID generation.
func WithIDGenerator(fn func() string) Option { return func(s *Store) { s.newID = fn } }

// Open loads the persisted snapshot from repo and returns a ready Store.
// A missing snapshot starts empty; an unreadable one falls back to the
// default task set and is set aside before anything overwrites it. Open
// never fails.
func Open(ctx context.Context, repo Repository, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}

	loaded, err := repo.Load(ctx)
	switch {
	case errors.Is(err, ErrNoSnapshot):
		s.logger.Info("no task snapshot found, starting empty")
		loaded = nil
	case err != nil:
		s.logger.Warn("task snapshot unreadable, using defaults",
			slog.Any("err", &PersistenceError{Op: "load", Err: err}),
			slog.Int("defaults", len(s.defaults)))
		loaded = s.defaults
		s.unreadable = true
	}

	for _, t := range loaded {
		if t.ID == "" || t.CaseID == "" {
			s.logger.Warn("dropping task without id or case", slog.String("id", t.ID), slog.String("title", t.Title))
			continue
		}
		s.tasks = append(s.tasks, t.clone())
	}
	return s
}

// Now returns the store's current time.
func (s *Store) Now() time.Time { return s.now() }

// Get retrieves a task by ID.
func (s *Store) Get(id string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.tasks, id)
	if i < 0 {
		return Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return s.tasks[i].clone(), nil
}

// All returns every task in insertion order.
func (s *Store) All() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.tasks)
}

// List returns tasks matching filter, ordered by case then creation time.
func (s *Store) List(filter Filter) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listTasks(s.tasks, filter)
}

// Create persists a new task with a fresh ID and timestamps.
func (s *Store) Create(ctx context.Context, t Task) (Task, error) {
	var out Task
	err := s.Mutate(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.Create(t)
		return err
	})
	return out, err
}

// Update merges p into the task and refreshes UpdatedAt.
func (s *Store) Update(ctx context.Context, id string, p Patch) (Task, error) {
	var out Task
	err := s.Mutate(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.Update(id, p)
		return err
	})
	return out, err
}

// Delete removes a task permanently.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.Mutate(ctx, func(tx *Tx) error { return tx.Delete(id) })
}

// Assign sets the assignee; a pending task moves to in_progress.
func (s *Store) Assign(ctx context.Context, id string, a Assignee, assignedBy string) (Task, error) {
	var out Task
	err := s.Mutate(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.Assign(id, a, assignedBy)
		return err
	})
	return out, err
}

// Complete marks the task completed by actorID.
func (s *Store) Complete(ctx context.Context, id, actorID string) (Task, error) {
	var out Task
	err := s.Mutate(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.Complete(id, actorID)
		return err
	})
	return out, err
}

// Cycle advances the task to the next checklist status.
func (s *Store) Cycle(ctx context.Context, id, actorID string) (Task, error) {
	var out Task
	err := s.Mutate(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.Cycle(id, actorID)
		return err
	})
	return out, err
}

// Mutate runs fn against a working copy of the collection. If fn returns
// nil the copy is committed, one snapshot is written and the collected
// events are published; otherwise nothing changes.
func (s *Store) Mutate(ctx context.Context, fn func(tx *Tx) error) error {
	events, err := s.commit(ctx, fn)
	if err != nil {
		return err
	}
	s.publish(ctx, events)
	return nil
}

func (s *Store) commit(ctx context.Context, fn func(tx *Tx) error) ([]comms.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{tasks: cloneAll(s.tasks), now: s.now, newID: s.newID}
	if err := fn(tx); err != nil {
		return nil, err
	}
	if !tx.dirty {
		return nil, nil
	}
	s.tasks = tx.tasks
	s.persist(ctx)
	return tx.events, nil
}

// persist writes the snapshot. Called with s.mu held. While an unreadable
// snapshot has not been preserved nothing is written.
func (s *Store) persist(ctx context.Context) {
	if s.unreadable {
		if err := s.preserve(ctx); err != nil {
			s.logger.Warn("unreadable task snapshot not preserved, continuing in memory",
				slog.Any("err", &PersistenceError{Op: "preserve", Err: err}),
				slog.Int("tasks", len(s.tasks)))
			return
		}
		s.unreadable = false
	}
	if err := s.repo.SaveAll(ctx, cloneAll(s.tasks)); err != nil {
		s.logger.Warn("task snapshot not saved, continuing in memory",
			slog.Any("err", &PersistenceError{Op: "save", Err: err}),
			slog.Int("tasks", len(s.tasks)))
	}
}

func (s *Store) preserve(ctx context.Context) error {
	p, ok := s.repo.(Preserver)
	if !ok {
		return errors.New("repository cannot preserve snapshots")
	}
	if err := p.Preserve(ctx); err != nil {
		return err
	}
	s.logger.Warn("unreadable task snapshot set aside")
	return nil
}

func (s *Store) publish(ctx context.Context, events []comms.Event) {
	if s.pub == nil {
		return
	}
	for i := range events {
		ev := events[i]
		if err := s.pub.Publish(ctx, &ev); err != nil {
			s.logger.Warn("publish task event", slog.String("type", string(ev.Type)), slog.Any("err", err))
		}
	}
}

// Tx is a working copy of the collection inside Store.Mutate.
type Tx struct {
	tasks  []Task
	events []comms.Event
	dirty  bool
	now    Clock
	newID  func() string
}

// Now returns the store clock's current time.
func (tx *Tx) Now() time.Time { return tx.now() }

// Get retrieves a task by ID from the working copy.
func (tx *Tx) Get(id string) (Task, error) {
	i := indexOf(tx.tasks, id)
	if i < 0 {
		return Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return tx.tasks[i].clone(), nil
}

// List returns tasks in the working copy matching filter.
func (tx *Tx) List(filter Filter) []Task {
	return listTasks(tx.tasks, filter)
}

// Create adds t with a fresh ID. Status defaults to pending and priority to
// medium.
func (tx *Tx) Create(t Task) (Task, error) {
	t = t.clone()
	if strings.TrimSpace(t.CaseID) == "" {
		return Task{}, fmt.Errorf("%w: case id is required", ErrValidation)
	}
	if strings.TrimSpace(t.Title) == "" {
		return Task{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if !t.Status.Valid() {
		return Task{}, fmt.Errorf("%w: unknown status %q", ErrValidation, t.Status)
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if !t.Priority.Valid() {
		return Task{}, fmt.Errorf("%w: unknown priority %q", ErrValidation, t.Priority)
	}
	if t.Stage != "" && !t.Stage.Valid() {
		return Task{}, fmt.Errorf("%w: unknown stage %q", ErrValidation, t.Stage)
	}
	if t.AssignedTo != nil {
		if err := validateAssignee(*t.AssignedTo); err != nil {
			return Task{}, err
		}
	}

	now := tx.now()
	t.ID = tx.newID()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == StatusCompleted && t.CompletedAt == nil {
		t.CompletedAt = &now
	}
	if t.Status != StatusCompleted {
		t.CompletedAt = nil
		t.CompletedBy = ""
	}
	if t.AssignedTo != nil && t.AssignedAt == nil {
		t.AssignedAt = &now
	}

	tx.tasks = append(tx.tasks, t)
	tx.record(comms.TypeTaskCreated, t, t.AssignedBy)
	return t.clone(), nil
}

// Update merges p into the task.
func (tx *Tx) Update(id string, p Patch) (Task, error) {
	i := indexOf(tx.tasks, id)
	if i < 0 {
		return Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	t := tx.tasks[i].clone()

	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return Task{}, fmt.Errorf("%w: title is required", ErrValidation)
		}
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Stage != nil {
		if !p.Stage.Valid() {
			return Task{}, fmt.Errorf("%w: unknown stage %q", ErrValidation, *p.Stage)
		}
		t.Stage = *p.Stage
	}
	if p.Priority != nil {
		if !p.Priority.Valid() {
			return Task{}, fmt.Errorf("%w: unknown priority %q", ErrValidation, *p.Priority)
		}
		t.Priority = *p.Priority
	}
	if p.ClearDue {
		t.DueDate = nil
	} else if p.DueDate != nil {
		t.DueDate = copyTime(p.DueDate)
	}
	if p.Status != nil {
		if err := t.transition(*p.Status, p.ActorID, tx.now); err != nil {
			return Task{}, err
		}
	}

	t.UpdatedAt = tx.now()
	tx.tasks[i] = t
	typ := comms.TypeTaskUpdated
	if p.Status != nil && *p.Status == StatusCompleted {
		typ = comms.TypeTaskCompleted
	}
	tx.record(typ, t, p.ActorID)
	return t.clone(), nil
}

// Delete removes the task.
func (tx *Tx) Delete(id string) error {
	i := indexOf(tx.tasks, id)
	if i < 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	t := tx.tasks[i]
	tx.tasks = append(tx.tasks[:i], tx.tasks[i+1:]...)
	tx.record(comms.TypeTaskDeleted, t, "")
	return nil
}

// Assign sets the assignee and starts pending work. Cancelled tasks cannot
// be reassigned.
func (tx *Tx) Assign(id string, a Assignee, assignedBy string) (Task, error) {
	if err := validateAssignee(a); err != nil {
		return Task{}, err
	}
	i := indexOf(tx.tasks, id)
	if i < 0 {
		return Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	t := tx.tasks[i].clone()
	if t.Status.IsTerminal() {
		return Task{}, fmt.Errorf("%w: task %s is %s", ErrInvalidTransition, id, t.Status)
	}
	now := tx.now()
	t.AssignedTo = &a
	t.AssignedBy = assignedBy
	t.AssignedAt = &now
	if t.Status == StatusPending {
		if err := t.transition(StatusInProgress, assignedBy, tx.now); err != nil {
			return Task{}, err
		}
	}
	t.UpdatedAt = now
	tx.tasks[i] = t
	tx.record(comms.TypeTaskAssigned, t, assignedBy)
	return t.clone(), nil
}

// Complete marks the task completed. A pending task passes through
// in_progress first; an already completed task is left as is.
func (tx *Tx) Complete(id, actorID string) (Task, error) {
	i := indexOf(tx.tasks, id)
	if i < 0 {
		return Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	t := tx.tasks[i].clone()
	if t.Status == StatusCompleted {
		return t, nil
	}
	if t.Status == StatusPending {
		if err := t.transition(StatusInProgress, actorID, tx.now); err != nil {
			return Task{}, err
		}
	}
	if err := t.transition(StatusCompleted, actorID, tx.now); err != nil {
		return Task{}, err
	}
	t.UpdatedAt = tx.now()
	tx.tasks[i] = t
	tx.record(comms.TypeTaskCompleted, t, actorID)
	return t.clone(), nil
}

// Cycle moves the task to its next checklist status.
func (tx *Tx) Cycle(id, actorID string) (Task, error) {
	i := indexOf(tx.tasks, id)
	if i < 0 {
		return Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	next, ok := tx.tasks[i].Status.Next()
	if !ok {
		return Task{}, fmt.Errorf("%w: task %s is %s", ErrInvalidTransition, id, tx.tasks[i].Status)
	}
	return tx.Update(id, Patch{Status: &next, ActorID: actorID})
}

func (tx *Tx) record(typ comms.EventType, t Task, actorID string) {
	tx.dirty = true
	tx.events = append(tx.events, comms.Event{
		Type:      typ,
		TaskID:    t.ID,
		CaseID:    t.CaseID,
		ActorID:   actorID,
		Status:    string(t.Status),
		Timestamp: tx.now(),
	})
}

func validateAssignee(a Assignee) error {
	if strings.TrimSpace(a.ActorID) == "" {
		return fmt.Errorf("%w: assignee actor id is required", ErrValidation)
	}
	if !a.Role.Assignable() {
		return fmt.Errorf("%w: role %q cannot be assigned tasks", ErrValidation, a.Role)
	}
	return nil
}

func indexOf(tasks []Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.clone()
	}
	return out
}

func listTasks(tasks []Task, filter Filter) []Task {
	var out []Task
	for i := range tasks {
		if filter.match(&tasks[i]) {
			out = append(out, tasks[i].clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CaseID != out[j].CaseID {
			return out[i].CaseID < out[j].CaseID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
