// Package engine ties the task store, template catalog, visibility policy and
// case source together into the operations the server exposes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/GoCodeAlone/docket/catalog"
	"github.com/GoCodeAlone/docket/lawcase"
	"github.com/GoCodeAlone/docket/task"
)

// SystemActor is recorded as AssignedBy for assignments made at generation.
const SystemActor = "system"

// ErrAlreadyGenerated is returned when a case already has tasks from the
// stage's active template.
var ErrAlreadyGenerated = errors.New("stage tasks already generated")

// Generator instantiates a stage template into concrete tasks for a case.
type Generator struct {
	catalog *catalog.Catalog
	store   *task.Store
	logger  *slog.Logger
}

// NewGenerator creates a Generator. A nil logger uses slog.Default().
func NewGenerator(c *catalog.Catalog, s *task.Store, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{catalog: c, store: s, logger: logger}
}

// GenerateTasksForCase creates one task per blueprint of the active template
// for stage. Attorney-role blueprints are assigned to attorney when given;
// assignment at generation leaves the task pending. All tasks are created in
// a single store mutation.
func (g *Generator) GenerateTasksForCase(ctx context.Context, caseID string, stage lawcase.Stage, attorney *task.Assignee) ([]task.Task, error) {
	if strings.TrimSpace(caseID) == "" {
		return nil, fmt.Errorf("%w: case id is required", task.ErrValidation)
	}
	tpl, err := g.catalog.TemplateForStage(stage)
	if err != nil {
		return nil, err
	}

	var lead *task.Assignee
	if attorney != nil && attorney.ActorID != "" {
		a := *attorney
		a.Role = task.RoleAttorney
		lead = &a
	}

	var created []task.Task
	err = g.store.Mutate(ctx, func(tx *task.Tx) error {
		if existing := tx.List(task.Filter{CaseID: caseID, TemplateID: tpl.ID}); len(existing) > 0 {
			return fmt.Errorf("case %s template %s: %w", caseID, tpl.ID, ErrAlreadyGenerated)
		}
		now := tx.Now()
		for _, b := range tpl.Blueprints {
			t := task.Task{
				CaseID:      caseID,
				Title:       b.Title,
				Description: b.Description,
				Stage:       tpl.Stage,
				Status:      task.StatusPending,
				Priority:    b.Priority,
				IsStandard:  true,
				TemplateID:  tpl.ID,
			}
			if b.EstimatedDays != nil {
				due := now.AddDate(0, 0, *b.EstimatedDays)
				t.DueDate = &due
			}
			if b.AssignedToRole == task.RoleAttorney && lead != nil {
				a := *lead
				t.AssignedTo = &a
				t.AssignedBy = SystemActor
				t.AssignedAt = &now
			}
			out, err := tx.Create(t)
			if err != nil {
				return fmt.Errorf("blueprint %q: %w", b.Title, err)
			}
			created = append(created, out)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.logger.Info("generated stage tasks",
		slog.String("case_id", caseID),
		slog.String("stage", string(tpl.Stage)),
		slog.String("template_id", tpl.ID),
		slog.Int("count", len(created)))
	return created, nil
}
