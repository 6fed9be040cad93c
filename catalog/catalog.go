// Package catalog holds the task templates that generation instantiates
// when a case enters a stage.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/GoCodeAlone/docket/lawcase"
	"github.com/GoCodeAlone/docket/task"
)

var (
	ErrInvalidTemplate   = errors.New("invalid template")
	ErrTemplateNotFound  = errors.New("template not found")
	ErrNoActiveTemplate  = errors.New("no active template for stage")
	ErrAmbiguousTemplate = errors.New("multiple active templates for stage")
)

// ValidationError describes why a template was rejected at registration.
type ValidationError struct {
	Kind       error
	TemplateID string
	Msg        string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.TemplateID == "" {
		return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
	}
	return fmt.Sprintf("%s %q: %s", e.Kind.Error(), e.TemplateID, e.Msg)
}

func (e *ValidationError) Unwrap() error { return e.Kind }

func invalidf(id, format string, args ...any) error {
	return &ValidationError{Kind: ErrInvalidTemplate, TemplateID: id, Msg: fmt.Sprintf(format, args...)}
}

// Blueprint describes one standard task within a template.
type Blueprint struct {
	Title          string        `json:"title" yaml:"title"`
	Description    string        `json:"description,omitempty" yaml:"description"`
	Priority       task.Priority `json:"priority" yaml:"priority"`
	EstimatedDays  *int          `json:"estimated_days,omitempty" yaml:"estimated_days"` // nil: no due date
	AssignedToRole task.Role     `json:"assigned_to_role" yaml:"assigned_to_role"`
}

// Template is the ordered set of blueprints for one stage.
type Template struct {
	ID         string        `json:"id" yaml:"id"`
	Name       string        `json:"name" yaml:"name"`
	Stage      lawcase.Stage `json:"stage" yaml:"stage"`
	Blueprints []Blueprint   `json:"blueprints" yaml:"blueprints"`
	IsActive   bool          `json:"is_active" yaml:"is_active"`
}

func (t Template) clone() Template {
	out := t
	out.Blueprints = make([]Blueprint, len(t.Blueprints))
	for i, b := range t.Blueprints {
		if b.EstimatedDays != nil {
			d := *b.EstimatedDays
			b.EstimatedDays = &d
		}
		out.Blueprints[i] = b
	}
	return out
}

// Catalog is the registry of templates. It is safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{templates: make(map[string]Template)}
}

// Register validates t and adds it. A rejected template leaves the catalog
// unchanged.
func (c *Catalog) Register(t Template) error {
	if err := validate(t); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.templates[t.ID]; exists {
		return invalidf(t.ID, "duplicate template id")
	}
	if t.IsActive {
		for _, other := range c.templates {
			if other.IsActive && other.Stage == t.Stage {
				return invalidf(t.ID, "stage %s already has active template %q", t.Stage, other.ID)
			}
		}
	}
	c.templates[t.ID] = t.clone()
	return nil
}

func validate(t Template) error {
	if strings.TrimSpace(t.ID) == "" {
		return invalidf("", "id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return invalidf(t.ID, "name is required")
	}
	if t.Stage == "" {
		return invalidf(t.ID, "stage is required")
	}
	if !t.Stage.Valid() {
		return invalidf(t.ID, "unknown stage %q", t.Stage)
	}
	if len(t.Blueprints) == 0 {
		return invalidf(t.ID, "at least one blueprint is required")
	}
	seen := make(map[string]bool, len(t.Blueprints))
	for i, b := range t.Blueprints {
		if strings.TrimSpace(b.Title) == "" {
			return invalidf(t.ID, "blueprint %d: title is required", i)
		}
		if seen[b.Title] {
			return invalidf(t.ID, "blueprint %d: duplicate title %q", i, b.Title)
		}
		seen[b.Title] = true
		if !b.Priority.Valid() {
			return invalidf(t.ID, "blueprint %q: unknown priority %q", b.Title, b.Priority)
		}
		if !b.AssignedToRole.Assignable() {
			return invalidf(t.ID, "blueprint %q: role %q cannot own tasks", b.Title, b.AssignedToRole)
		}
		if b.EstimatedDays != nil && *b.EstimatedDays < 0 {
			return invalidf(t.ID, "blueprint %q: negative estimated days", b.Title)
		}
	}
	return nil
}

// TemplateForStage returns the single active template for stage. Zero or
// several active templates is a data-integrity error.
func (c *Catalog) TemplateForStage(stage lawcase.Stage) (Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var found []Template
	for _, t := range c.templates {
		if t.IsActive && t.Stage == stage {
			found = append(found, t)
		}
	}
	switch len(found) {
	case 0:
		return Template{}, fmt.Errorf("%w: %s", ErrNoActiveTemplate, stage)
	case 1:
		return found[0].clone(), nil
	default:
		ids := make([]string, len(found))
		for i, t := range found {
			ids[i] = t.ID
		}
		sort.Strings(ids)
		return Template{}, fmt.Errorf("%w: %s (%s)", ErrAmbiguousTemplate, stage, strings.Join(ids, ", "))
	}
}

// Get returns the template with the given id.
func (c *Catalog) Get(id string) (Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.templates[id]
	if !ok {
		return Template{}, fmt.Errorf("template %s: %w", id, ErrTemplateNotFound)
	}
	return t.clone(), nil
}

// Templates returns all templates, active or not, ordered by stage then id.
func (c *Catalog) Templates() []Template {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Template, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, t.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i].Stage.Index(), out[j].Stage.Index()
		if si != sj {
			return si < sj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Deactivate retires a template. It stays in the catalog as history so a
// new version can be registered for the same stage.
func (c *Catalog) Deactivate(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.templates[id]
	if !ok {
		return fmt.Errorf("template %s: %w", id, ErrTemplateNotFound)
	}
	t.IsActive = false
	c.templates[id] = t
	return nil
}
