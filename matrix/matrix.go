// Package matrix joins cases and tasks into the firm-wide checklist grid:
// one row per case, one column per standard task title.
package matrix

import (
	"time"

	"github.com/GoCodeAlone/docket/lawcase"
	"github.com/GoCodeAlone/docket/task"
)

// DefaultColumns are the checklist titles shown when none are configured.
var DefaultColumns = []string{
	"Sign Retainer Agreement",
	"Send Letter of Representation",
	"Send Preservation Letter",
	"Request Medical Records",
	"Request Medical Bills",
	"Draft Demand Letter",
	"Send Demand Letter",
	"Obtain Release Signature",
	"Disburse Client Funds",
}

// Stats counts a row's cells by status. Total is always the number of
// columns, so a missing cell still counts.
type Stats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	Pending    int `json:"pending"`
	Cancelled  int `json:"cancelled"`
	Overdue    int `json:"overdue"`
}

// Percent returns the completed share of Total, 0..100.
func (s Stats) Percent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total) * 100
}

func (s *Stats) add(o Stats) {
	s.Total += o.Total
	s.Completed += o.Completed
	s.InProgress += o.InProgress
	s.Pending += o.Pending
	s.Cancelled += o.Cancelled
	s.Overdue += o.Overdue
}

// Row is one case and its cells keyed by column title. A nil cell means the
// case has no task with that title yet.
type Row struct {
	Case  lawcase.Case          `json:"case"`
	Tasks map[string]*task.Task `json:"tasks"`
	Stats Stats                 `json:"stats"`
}

// Matrix is the joined grid. Rows keep the order of the input cases.
type Matrix struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`

	index map[string]int
}

// Build joins cases and tasks. The first task on a case whose title equals a
// column fills that cell; later duplicates are ignored. A pending task past
// its due date counts as overdue rather than pending.
func Build(cases []lawcase.Case, tasks []task.Task, columns []string, now time.Time) Matrix {
	if columns == nil {
		columns = DefaultColumns
	}
	wanted := make(map[string]bool, len(columns))
	for _, col := range columns {
		wanted[col] = true
	}

	byCase := make(map[string]map[string]*task.Task)
	for i := range tasks {
		tk := tasks[i]
		if !wanted[tk.Title] {
			continue
		}
		cells, ok := byCase[tk.CaseID]
		if !ok {
			cells = make(map[string]*task.Task)
			byCase[tk.CaseID] = cells
		}
		if _, seen := cells[tk.Title]; !seen {
			cells[tk.Title] = &tk
		}
	}

	m := Matrix{
		Columns: append([]string(nil), columns...),
		Rows:    make([]Row, 0, len(cases)),
		index:   make(map[string]int, len(cases)),
	}
	for _, c := range cases {
		found := byCase[c.ID]
		row := Row{Case: c, Tasks: make(map[string]*task.Task, len(columns))}
		for _, col := range columns {
			tk := found[col]
			row.Tasks[col] = tk
			row.Stats.count(tk, now)
		}
		m.index[c.ID] = len(m.Rows)
		m.Rows = append(m.Rows, row)
	}
	return m
}

func (s *Stats) count(tk *task.Task, now time.Time) {
	s.Total++
	if tk == nil {
		s.Pending++
		return
	}
	switch tk.Status {
	case task.StatusCompleted:
		s.Completed++
	case task.StatusInProgress:
		s.InProgress++
	case task.StatusCancelled:
		s.Cancelled++
	default:
		if task.IsOverdue(*tk, now) {
			s.Overdue++
		} else {
			s.Pending++
		}
	}
}

// Row returns the row for caseID.
func (m Matrix) Row(caseID string) (Row, bool) {
	i, ok := m.index[caseID]
	if !ok {
		return Row{}, false
	}
	return m.Rows[i], true
}

// CaseIDs returns the row ids in input order.
func (m Matrix) CaseIDs() []string {
	ids := make([]string, len(m.Rows))
	for i, r := range m.Rows {
		ids[i] = r.Case.ID
	}
	return ids
}

// Totals sums the stats of every row.
func (m Matrix) Totals() Stats {
	var s Stats
	for _, r := range m.Rows {
		s.add(r.Stats)
	}
	return s
}
