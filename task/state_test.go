package task

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusInProgress, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, true},
		{StatusInProgress, StatusPending, false},
		{StatusCompleted, StatusPending, true},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusInProgress, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusInProgress, false},
		{StatusCancelled, StatusCancelled, true},
		{StatusPending, StatusPending, true},
		{Status("overdue"), Status("overdue"), false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStatus_Next(t *testing.T) {
	s := StatusPending
	for i := 0; i < 6; i++ {
		next, ok := s.Next()
		if !ok {
			t.Fatalf("Next(%s) not ok", s)
		}
		s = next
	}
	if s != StatusPending {
		t.Errorf("after 6 steps status = %s, want pending", s)
	}
	if _, ok := StatusCancelled.Next(); ok {
		t.Error("cancelled should have no successor")
	}
	if !StatusCancelled.IsTerminal() || StatusCompleted.IsTerminal() {
		t.Error("only cancelled is terminal")
	}
}

func TestIsOverdue(t *testing.T) {
	now := baseTime
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"pending past due", Task{Status: StatusPending, DueDate: &past}, true},
		{"pending future due", Task{Status: StatusPending, DueDate: &future}, false},
		{"pending no due", Task{Status: StatusPending}, false},
		{"in progress past due", Task{Status: StatusInProgress, DueDate: &past}, false},
		{"completed past due", Task{Status: StatusCompleted, DueDate: &past}, false},
	}
	for _, tt := range tests {
		if got := IsOverdue(tt.task, now); got != tt.want {
			t.Errorf("%s: IsOverdue = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRole(t *testing.T) {
	if !RoleAttorney.Assignable() || !RoleCaseManager.Assignable() || RoleAdmin.Assignable() {
		t.Error("unexpected Assignable results")
	}
	if Role("paralegal").Valid() {
		t.Error("unknown role reported valid")
	}
}
