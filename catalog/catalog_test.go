package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/GoCodeAlone/docket/lawcase"
	"github.com/GoCodeAlone/docket/task"
)

func validTemplate(id string, stage lawcase.Stage) Template {
	return Template{
		ID:       id,
		Name:     "Test " + id,
		Stage:    stage,
		IsActive: true,
		Blueprints: []Blueprint{
			{Title: "First", Priority: task.PriorityHigh, EstimatedDays: days(3), AssignedToRole: task.RoleAttorney},
			{Title: "Second", Priority: task.PriorityLow, AssignedToRole: task.RoleCaseManager},
		},
	}
}

func TestDefault_CoversEveryOpenStage(t *testing.T) {
	c := Default()
	for _, stage := range lawcase.AllStages() {
		tpl, err := c.TemplateForStage(stage)
		if stage == lawcase.StageClosed {
			if !errors.Is(err, ErrNoActiveTemplate) {
				t.Errorf("closed: err = %v, want ErrNoActiveTemplate", err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", stage, err)
			continue
		}
		if tpl.Stage != stage || !tpl.IsActive || len(tpl.Blueprints) == 0 {
			t.Errorf("%s: unexpected template %+v", stage, tpl)
		}
	}
}

func TestRegister_Validation(t *testing.T) {
	mutate := func(fn func(*Template)) Template {
		tpl := validTemplate("t", lawcase.StageIntake)
		fn(&tpl)
		return tpl
	}
	tests := map[string]Template{
		"missing id":        mutate(func(t *Template) { t.ID = "" }),
		"missing name":      mutate(func(t *Template) { t.Name = " " }),
		"missing stage":     mutate(func(t *Template) { t.Stage = "" }),
		"unknown stage":     mutate(func(t *Template) { t.Stage = "discovery" }),
		"no blueprints":     mutate(func(t *Template) { t.Blueprints = nil }),
		"empty title":       mutate(func(t *Template) { t.Blueprints[0].Title = "" }),
		"duplicate title":   mutate(func(t *Template) { t.Blueprints[1].Title = "First" }),
		"bad priority":      mutate(func(t *Template) { t.Blueprints[0].Priority = "p1" }),
		"admin role":        mutate(func(t *Template) { t.Blueprints[0].AssignedToRole = task.RoleAdmin }),
		"negative estimate": mutate(func(t *Template) { t.Blueprints[0].EstimatedDays = days(-1) }),
	}
	for name, tpl := range tests {
		t.Run(name, func(t *testing.T) {
			c := New()
			err := c.Register(tpl)
			if !errors.Is(err, ErrInvalidTemplate) {
				t.Fatalf("err = %v, want ErrInvalidTemplate", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err %T is not *ValidationError", err)
			}
			if len(c.Templates()) != 0 {
				t.Error("rejected template was stored")
			}
		})
	}
}

func TestRegister_DuplicateActivePerStage(t *testing.T) {
	c := New()
	if err := c.Register(validTemplate("a", lawcase.StageIntake)); err != nil {
		t.Fatalf("Register a: %v", err)
	}
	if err := c.Register(validTemplate("b", lawcase.StageIntake)); !errors.Is(err, ErrInvalidTemplate) {
		t.Fatalf("second active intake err = %v, want ErrInvalidTemplate", err)
	}

	// An inactive historical version may coexist.
	old := validTemplate("a-v0", lawcase.StageIntake)
	old.IsActive = false
	if err := c.Register(old); err != nil {
		t.Fatalf("Register inactive: %v", err)
	}

	if err := c.Register(validTemplate("a", lawcase.StageOpening)); !errors.Is(err, ErrInvalidTemplate) {
		t.Errorf("duplicate id err = %v, want ErrInvalidTemplate", err)
	}

	got, err := c.TemplateForStage(lawcase.StageIntake)
	if err != nil {
		t.Fatalf("TemplateForStage: %v", err)
	}
	if got.ID != "a" {
		t.Errorf("active template = %q, want a", got.ID)
	}
}

func TestDeactivate_AllowsReplacement(t *testing.T) {
	c := New()
	c.Register(validTemplate("v1", lawcase.StageTreating))
	if err := c.Deactivate("v1"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if _, err := c.TemplateForStage(lawcase.StageTreating); !errors.Is(err, ErrNoActiveTemplate) {
		t.Errorf("after deactivate err = %v, want ErrNoActiveTemplate", err)
	}
	if err := c.Register(validTemplate("v2", lawcase.StageTreating)); err != nil {
		t.Fatalf("Register v2: %v", err)
	}
	if len(c.Templates()) != 2 {
		t.Errorf("Templates() len = %d, want 2", len(c.Templates()))
	}
	if err := c.Deactivate("nope"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Deactivate(nope) err = %v, want ErrTemplateNotFound", err)
	}
}

func TestTemplateForStage_Ambiguous(t *testing.T) {
	// Registration prevents this; simulate a corrupted catalog directly.
	c := New()
	c.templates["x"] = validTemplate("x", lawcase.StageProbate)
	c.templates["y"] = validTemplate("y", lawcase.StageProbate)
	if _, err := c.TemplateForStage(lawcase.StageProbate); !errors.Is(err, ErrAmbiguousTemplate) {
		t.Errorf("err = %v, want ErrAmbiguousTemplate", err)
	}
}

func TestCatalog_ReturnsCopies(t *testing.T) {
	c := New()
	c.Register(validTemplate("a", lawcase.StageIntake))

	got, _ := c.Get("a")
	got.Blueprints[0].Title = "Changed"
	*got.Blueprints[0].EstimatedDays = 99

	again, _ := c.Get("a")
	if again.Blueprints[0].Title != "First" || *again.Blueprints[0].EstimatedDays != 3 {
		t.Errorf("catalog state aliased: %+v", again.Blueprints[0])
	}
}

func TestTemplates_Ordered(t *testing.T) {
	tpls := Default().Templates()
	for i := 1; i < len(tpls); i++ {
		if tpls[i-1].Stage.Index() > tpls[i].Stage.Index() {
			t.Fatalf("templates out of stage order at %d: %s after %s", i, tpls[i].Stage, tpls[i-1].Stage)
		}
	}
}

const sampleYAML = `
templates:
  - id: custom-intake
    name: Custom Intake
    stage: intake
    is_active: true
    blueprints:
      - title: Welcome Call
        priority: high
        estimated_days: 1
        assigned_to_role: caseManager
      - title: Engagement Letter
        priority: urgent
        assigned_to_role: attorney
  - id: custom-intake-old
    name: Custom Intake (2024)
    stage: intake
    is_active: false
    blueprints:
      - title: Welcome Call
        priority: medium
        assigned_to_role: caseManager
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	tpl, err := c.TemplateForStage(lawcase.StageIntake)
	if err != nil {
		t.Fatalf("TemplateForStage: %v", err)
	}
	if tpl.ID != "custom-intake" || len(tpl.Blueprints) != 2 {
		t.Fatalf("template = %+v", tpl)
	}
	if d := tpl.Blueprints[0].EstimatedDays; d == nil || *d != 1 {
		t.Errorf("EstimatedDays = %v, want 1", d)
	}
	if tpl.Blueprints[1].EstimatedDays != nil {
		t.Errorf("EstimatedDays = %v, want nil", *tpl.Blueprints[1].EstimatedDays)
	}
	if tpl.Blueprints[1].AssignedToRole != task.RoleAttorney {
		t.Errorf("role = %q", tpl.Blueprints[1].AssignedToRole)
	}
}

func TestParse_RejectsInvalid(t *testing.T) {
	bad := `
templates:
  - id: a
    name: A
    stage: intake
    is_active: true
    blueprints:
      - {title: X, priority: high, assigned_to_role: attorney}
  - id: b
    name: B
    stage: intake
    is_active: true
    blueprints:
      - {title: Y, priority: high, assigned_to_role: attorney}
`
	if _, err := Parse([]byte(bad)); !errors.Is(err, ErrInvalidTemplate) {
		t.Errorf("err = %v, want ErrInvalidTemplate", err)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
