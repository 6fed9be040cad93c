// Package lawcase defines the read-only case records consumed by the task
// workflow and deadline engine.
package lawcase

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a case id does not resolve.
var ErrNotFound = errors.New("case not found")

// Stage is one phase in a case's lifecycle.
type Stage string

const (
	StageIntake      Stage = "intake"
	StageOpening     Stage = "opening"
	StageTreating    Stage = "treating"
	StageDemandPrep  Stage = "demandPrep"
	StageNegotiation Stage = "negotiation"
	StageSettlement  Stage = "settlement"
	StageResolution  Stage = "resolution"
	StageProbate     Stage = "probate"
	StageClosed      Stage = "closed"
)

var stageOrder = []Stage{
	StageIntake,
	StageOpening,
	StageTreating,
	StageDemandPrep,
	StageNegotiation,
	StageSettlement,
	StageResolution,
	StageProbate,
	StageClosed,
}

// AllStages returns every stage in lifecycle order.
func AllStages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// Index returns the lifecycle position of s, or -1 for an unknown stage.
func (s Stage) Index() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Attorney identifies the attorney responsible for a case.
type Attorney struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TollingEvent records a period during which the limitations clock was paused.
type TollingEvent struct {
	Reason string     `json:"reason"`
	Start  time.Time  `json:"start"`
	End    *time.Time `json:"end,omitempty"`
}

// StatuteOfLimitations holds the filing deadline for a claim.
type StatuteOfLimitations struct {
	SOLDate        *time.Time     `json:"sol_date,omitempty"`
	SOLType        string         `json:"sol_type,omitempty"`
	SOLState       string         `json:"sol_state,omitempty"`
	SOLStatus      string         `json:"sol_status,omitempty"`
	SOLWarningDays int            `json:"sol_warning_days,omitempty"`
	SOLBasis       string         `json:"sol_basis,omitempty"`
	TollingEvents  []TollingEvent `json:"tolling_events,omitempty"`
}

// Case is a matter as supplied by the case-management backend. The engine
// never mutates it.
type Case struct {
	ID                   string                `json:"id"`
	Name                 string                `json:"name,omitempty"`
	ClientID             string                `json:"client_id,omitempty"`
	Stage                Stage                 `json:"stage"`
	DateOfLoss           *time.Time            `json:"date_of_loss,omitempty"`
	AnteLitemRequired    bool                  `json:"ante_litem_required"`
	AnteLitemAgency      string                `json:"ante_litem_agency,omitempty"`
	AnteLitemDeadline    *time.Time            `json:"ante_litem_deadline,omitempty"`
	StatuteOfLimitations *StatuteOfLimitations `json:"statute_of_limitations,omitempty"`
	Attorney             *Attorney             `json:"attorney,omitempty"`
}

// Open reports whether the case is still active.
func (c Case) Open() bool { return c.Stage != StageClosed }

// SOLDate returns the statute of limitations date, if any.
func (c Case) SOLDate() (time.Time, bool) {
	if c.StatuteOfLimitations == nil || c.StatuteOfLimitations.SOLDate == nil {
		return time.Time{}, false
	}
	return *c.StatuteOfLimitations.SOLDate, true
}
