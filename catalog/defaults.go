package catalog

import (
	"github.com/GoCodeAlone/docket/lawcase"
	"github.com/GoCodeAlone/docket/task"
)

func days(n int) *int { return &n }

const (
	attorney    = task.RoleAttorney
	caseManager = task.RoleCaseManager
)

// DefaultTemplates is the built-in personal-injury workflow: one active
// template per stage from intake through probate. Closed cases generate
// nothing.
func DefaultTemplates() []Template {
	return []Template{
		{
			ID: "pi-intake-v1", Name: "Intake", Stage: lawcase.StageIntake, IsActive: true,
			Blueprints: []Blueprint{
				{Title: "Client Intake Interview", Priority: task.PriorityHigh, EstimatedDays: days(1), AssignedToRole: caseManager,
					Description: "Record incident facts, injuries, providers and insurance details."},
				{Title: "Conflict Check", Priority: task.PriorityHigh, EstimatedDays: days(1), AssignedToRole: attorney},
				{Title: "Sign Retainer Agreement", Priority: task.PriorityUrgent, EstimatedDays: days(2), AssignedToRole: attorney},
				{Title: "Calculate Statute of Limitations", Priority: task.PriorityUrgent, EstimatedDays: days(2), AssignedToRole: attorney,
					Description: "Confirm SOL type, state and date; note any tolling."},
				{Title: "Verify Insurance Coverage", Priority: task.PriorityHigh, EstimatedDays: days(5), AssignedToRole: caseManager},
				{Title: "Collect Accident Report", Priority: task.PriorityMedium, EstimatedDays: days(7), AssignedToRole: caseManager},
			},
		},
		{
			ID: "pi-opening-v1", Name: "Case Opening", Stage: lawcase.StageOpening, IsActive: true,
			Blueprints: []Blueprint{
				{Title: "Send Letter of Representation", Priority: task.PriorityHigh, EstimatedDays: days(3), AssignedToRole: caseManager},
				{Title: "Determine Ante Litem Requirement", Priority: task.PriorityUrgent, EstimatedDays: days(3), AssignedToRole: attorney,
					Description: "Identify government defendants and the notice deadline."},
				{Title: "Send Preservation Letter", Priority: task.PriorityHigh, EstimatedDays: days(5), AssignedToRole: attorney},
				{Title: "Open Property Damage Claim", Priority: task.PriorityMedium, EstimatedDays: days(7), AssignedToRole: caseManager},
				{Title: "Request Photos and Witness Info", Priority: task.PriorityMedium, EstimatedDays: days(10), AssignedToRole: caseManager},
			},
		},
		{
			ID: "pi-treating-v1", Name: "Treatment", Stage: lawcase.StageTreating, IsActive: true,
			Blueprints: []Blueprint{
				{Title: "Track Medical Providers", Priority: task.PriorityMedium, AssignedToRole: caseManager},
				{Title: "Request Medical Records", Priority: task.PriorityMedium, EstimatedDays: days(14), AssignedToRole: caseManager},
				{Title: "Request Medical Bills", Priority: task.PriorityMedium, EstimatedDays: days(14), AssignedToRole: caseManager},
				{Title: "Monthly Client Check-in", Priority: task.PriorityLow, EstimatedDays: days(30), AssignedToRole: caseManager},
				{Title: "Confirm Treatment Complete", Priority: task.PriorityMedium, AssignedToRole: attorney},
			},
		},
		{
			ID: "pi-demand-v1", Name: "Demand Preparation", Stage: lawcase.StageDemandPrep, IsActive: true,
			Blueprints: []Blueprint{
				{Title: "Review Medical Records", Priority: task.PriorityHigh, EstimatedDays: days(10), AssignedToRole: attorney},
				{Title: "Request Lien Amounts", Priority: task.PriorityMedium, EstimatedDays: days(10), AssignedToRole: caseManager},
				{Title: "Draft Demand Letter", Priority: task.PriorityHigh, EstimatedDays: days(14), AssignedToRole: attorney},
				{Title: "Client Approval of Demand", Priority: task.PriorityHigh, EstimatedDays: days(17), AssignedToRole: attorney},
				{Title: "Send Demand Letter", Priority: task.PriorityUrgent, EstimatedDays: days(19), AssignedToRole: caseManager},
			},
		},
		{
			ID: "pi-negotiation-v1", Name: "Negotiation", Stage: lawcase.StageNegotiation, IsActive: true,
			Blueprints: []Blueprint{
				{Title: "Log Initial Offer", Priority: task.PriorityMedium, EstimatedDays: days(30), AssignedToRole: caseManager},
				{Title: "Counteroffer Strategy Review", Priority: task.PriorityHigh, EstimatedDays: days(35), AssignedToRole: attorney},
				{Title: "Client Settlement Authority", Priority: task.PriorityHigh, EstimatedDays: days(37), AssignedToRole: attorney},
				{Title: "Evaluate Litigation", Priority: task.PriorityHigh, EstimatedDays: days(45), AssignedToRole: attorney,
					Description: "Decide whether to file suit before the statute of limitations."},
			},
		},
		{
			ID: "pi-settlement-v1", Name: "Settlement", Stage: lawcase.StageSettlement, IsActive: true,
			Blueprints: []Blueprint{
				{Title: "Obtain Release Signature", Priority: task.PriorityUrgent, EstimatedDays: days(7), AssignedToRole: attorney},
				{Title: "Draft Settlement Statement", Priority: task.PriorityHigh, EstimatedDays: days(5), AssignedToRole: caseManager},
				{Title: "Deposit Settlement Check", Priority: task.PriorityUrgent, EstimatedDays: days(3), AssignedToRole: caseManager},
				{Title: "Resolve Medical Liens", Priority: task.PriorityHigh, EstimatedDays: days(30), AssignedToRole: caseManager},
			},
		},
		{
			ID: "pi-resolution-v1", Name: "Resolution", Stage: lawcase.StageResolution, IsActive: true,
			Blueprints: []Blueprint{
				{Title: "Disburse Client Funds", Priority: task.PriorityUrgent, EstimatedDays: days(5), AssignedToRole: attorney},
				{Title: "Close Out Lien Payments", Priority: task.PriorityHigh, EstimatedDays: days(10), AssignedToRole: caseManager},
				{Title: "Send Closing Letter", Priority: task.PriorityMedium, EstimatedDays: days(7), AssignedToRole: caseManager},
			},
		},
		{
			ID: "pi-probate-v1", Name: "Probate", Stage: lawcase.StageProbate, IsActive: true,
			Blueprints: []Blueprint{
				{Title: "Confirm Estate Opened", Priority: task.PriorityHigh, EstimatedDays: days(14), AssignedToRole: attorney},
				{Title: "Notify Heirs", Priority: task.PriorityMedium, EstimatedDays: days(14), AssignedToRole: caseManager},
				{Title: "Obtain Letters of Administration", Priority: task.PriorityHigh, EstimatedDays: days(30), AssignedToRole: attorney},
				{Title: "Court Approval of Settlement", Priority: task.PriorityUrgent, EstimatedDays: days(45), AssignedToRole: attorney},
			},
		},
	}
}

// Default returns a catalog loaded with DefaultTemplates.
func Default() *Catalog {
	c := New()
	for _, t := range DefaultTemplates() {
		if err := c.Register(t); err != nil {
			panic("catalog: invalid built-in template: " + err.Error())
		}
	}
	return c
}
