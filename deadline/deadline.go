// Package deadline classifies statute-of-limitations and ante-litem
// deadlines into urgency tiers. Everything here is a pure function of the
// case list and the current date; results are never cached.
package deadline

import (
	"sort"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/GoCodeAlone/docket/lawcase"
)

// Kind distinguishes the two deadline types. They are never merged.
type Kind string

const (
	KindSOL       Kind = "statute_of_limitations"
	KindAnteLitem Kind = "ante_litem"
)

// Tier is an urgency bucket.
type Tier string

const (
	TierOverdue Tier = "overdue"
	TierUrgent  Tier = "urgent"
	TierWarning Tier = "warning"
	TierMonitor Tier = "monitor"
)

// Tiers lists every tier from most to least urgent.
var Tiers = []Tier{TierOverdue, TierUrgent, TierWarning, TierMonitor}

// Label returns the display form of the tier, e.g. "Overdue".
func (t Tier) Label() string {
	// Casers are stateful; build one per call.
	return cases.Title(language.English).String(string(t))
}

// Tier boundaries in days.
const (
	SOLUrgentDays  = 30
	SOLWarningDays = 90
	SOLHorizonDays = 180

	AnteLitemCriticalDays = 7
	AnteLitemUrgentDays   = 30
	AnteLitemHorizonDays  = 90
)

// Entry is one case surfaced by a classifier.
type Entry struct {
	Case          lawcase.Case `json:"case"`
	Kind          Kind         `json:"kind"`
	Deadline      time.Time    `json:"deadline"`
	DaysRemaining int          `json:"days_remaining"`
	Tier          Tier         `json:"tier"`
	Window        int          `json:"window"` // the boundary, in days, the entry falls within
	Label         string       `json:"label"`
}

const secondsPerDay = 24 * 60 * 60

// DaysBetween returns the number of calendar days from today to deadline.
// Each date is read in its own location, so a deadline stored as midnight UTC
// keeps its calendar date. Negative when the deadline has passed.
func DaysBetween(today, deadline time.Time) int {
	ty, tm, td := today.Date()
	dy, dm, dd := deadline.Date()
	from := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	to := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	return int((to.Unix() - from.Unix()) / secondsPerDay)
}

// ClassifySOL surfaces open cases whose statute of limitations falls between
// today and SOLHorizonDays from now, soonest first.
func ClassifySOL(cs []lawcase.Case, today time.Time) []Entry {
	var out []Entry
	for _, c := range cs {
		if !c.Open() {
			continue
		}
		solDate, ok := c.SOLDate()
		if !ok {
			continue
		}
		days := DaysBetween(today, solDate)
		if days < 0 || days > SOLHorizonDays {
			continue
		}
		tier, window := solTier(days)
		out = append(out, newEntry(c, KindSOL, solDate, days, tier, window))
	}
	sortEntries(out)
	return out
}

func solTier(days int) (Tier, int) {
	switch {
	case days <= SOLUrgentDays:
		return TierUrgent, SOLUrgentDays
	case days <= SOLWarningDays:
		return TierWarning, SOLWarningDays
	default:
		return TierMonitor, SOLHorizonDays
	}
}

// ClassifyAnteLitem surfaces open cases that require ante-litem notice and
// whose deadline is within AnteLitemHorizonDays, including deadlines that
// have already passed. Soonest first.
func ClassifyAnteLitem(cs []lawcase.Case, today time.Time) []Entry {
	var out []Entry
	for _, c := range cs {
		if !c.Open() || !c.AnteLitemRequired || c.AnteLitemDeadline == nil {
			continue
		}
		days := DaysBetween(today, *c.AnteLitemDeadline)
		if days > AnteLitemHorizonDays {
			continue
		}
		tier, window := anteLitemTier(days)
		out = append(out, newEntry(c, KindAnteLitem, *c.AnteLitemDeadline, days, tier, window))
	}
	sortEntries(out)
	return out
}

func anteLitemTier(days int) (Tier, int) {
	switch {
	case days <= 0:
		return TierOverdue, 0
	case days <= AnteLitemCriticalDays:
		return TierUrgent, AnteLitemCriticalDays
	case days <= AnteLitemUrgentDays:
		return TierUrgent, AnteLitemUrgentDays
	default:
		return TierMonitor, AnteLitemHorizonDays
	}
}

func newEntry(c lawcase.Case, kind Kind, at time.Time, days int, tier Tier, window int) Entry {
	return Entry{
		Case:          c,
		Kind:          kind,
		Deadline:      at,
		DaysRemaining: days,
		Tier:          tier,
		Window:        window,
		Label:         tier.Label(),
	}
}

// sortEntries orders by days remaining, then case id for determinism.
// Consumers rely on this order.
func sortEntries(es []Entry) {
	sort.SliceStable(es, func(i, j int) bool {
		if es[i].DaysRemaining != es[j].DaysRemaining {
			return es[i].DaysRemaining < es[j].DaysRemaining
		}
		return es[i].Case.ID < es[j].Case.ID
	})
}

// Buckets groups entries by tier, keeping their order within each tier.
func Buckets(es []Entry) map[Tier][]Entry {
	out := make(map[Tier][]Entry)
	for _, e := range es {
		out[e.Tier] = append(out[e.Tier], e)
	}
	return out
}

// Summary counts entries per tier.
type Summary struct {
	Total   int `json:"total"`
	Overdue int `json:"overdue"`
	Urgent  int `json:"urgent"`
	Warning int `json:"warning"`
	Monitor int `json:"monitor"`
}

// Summarize counts entries per tier.
func Summarize(es []Entry) Summary {
	s := Summary{Total: len(es)}
	for _, e := range es {
		switch e.Tier {
		case TierOverdue:
			s.Overdue++
		case TierUrgent:
			s.Urgent++
		case TierWarning:
			s.Warning++
		case TierMonitor:
			s.Monitor++
		}
	}
	return s
}
