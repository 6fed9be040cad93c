package deadline

import (
	"testing"
	"time"

	"github.com/GoCodeAlone/docket/lawcase"
)

var today = time.Date(2026, 6, 1, 14, 30, 0, 0, time.UTC)

func at(days int) *time.Time {
	d := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
	return &d
}

func solCase(id string, days int) lawcase.Case {
	return lawcase.Case{
		ID:                   id,
		Stage:                lawcase.StageTreating,
		StatuteOfLimitations: &lawcase.StatuteOfLimitations{SOLDate: at(days), SOLType: "personal injury", SOLState: "GA"},
	}
}

func anteCase(id string, days int) lawcase.Case {
	return lawcase.Case{
		ID:                id,
		Stage:             lawcase.StageOpening,
		AnteLitemRequired: true,
		AnteLitemAgency:   "City of Atlanta",
		AnteLitemDeadline: at(days),
	}
}

func TestDaysBetween(t *testing.T) {
	if got := DaysBetween(today, *at(0)); got != 0 {
		t.Errorf("same day = %d, want 0", got)
	}
	if got := DaysBetween(today, *at(-1)); got != -1 {
		t.Errorf("yesterday = %d, want -1", got)
	}
	if got := DaysBetween(today, *at(180)); got != 180 {
		t.Errorf("+180 = %d, want 180", got)
	}

	// A deadline stored as midnight UTC keeps its calendar date for an
	// office in a negative-offset zone.
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	localToday := time.Date(2026, 6, 1, 8, 0, 0, 0, ny)
	if got := DaysBetween(localToday, *at(30)); got != 30 {
		t.Errorf("NY +30 = %d, want 30", got)
	}
}

func TestClassifySOL_Boundaries(t *testing.T) {
	tests := []struct {
		days     int
		included bool
		tier     Tier
	}{
		{-1, false, ""},
		{0, true, TierUrgent},
		{30, true, TierUrgent},
		{31, true, TierWarning},
		{90, true, TierWarning},
		{91, true, TierMonitor},
		{180, true, TierMonitor},
		{181, false, ""},
	}
	for _, tt := range tests {
		got := ClassifySOL([]lawcase.Case{solCase("c", tt.days)}, today)
		if !tt.included {
			if len(got) != 0 {
				t.Errorf("days %d: included with tier %s, want excluded", tt.days, got[0].Tier)
			}
			continue
		}
		if len(got) != 1 {
			t.Errorf("days %d: excluded, want tier %s", tt.days, tt.tier)
			continue
		}
		if got[0].Tier != tt.tier {
			t.Errorf("days %d: tier = %s, want %s", tt.days, got[0].Tier, tt.tier)
		}
		if got[0].DaysRemaining != tt.days {
			t.Errorf("days %d: DaysRemaining = %d", tt.days, got[0].DaysRemaining)
		}
		if got[0].Kind != KindSOL {
			t.Errorf("days %d: kind = %s", tt.days, got[0].Kind)
		}
	}
}

func TestClassifySOL_SortedAndFiltered(t *testing.T) {
	closed := solCase("closed", 5)
	closed.Stage = lawcase.StageClosed
	noSOL := lawcase.Case{ID: "none", Stage: lawcase.StageIntake}
	noDate := lawcase.Case{ID: "nodate", Stage: lawcase.StageIntake, StatuteOfLimitations: &lawcase.StatuteOfLimitations{SOLType: "wrongful death"}}

	in := []lawcase.Case{solCase("c", 120), solCase("a", 10), closed, noSOL, solCase("b", 45), noDate, solCase("a2", 10)}
	got := ClassifySOL(in, today)

	want := []string{"a", "a2", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].Case.ID != id {
			t.Errorf("entry %d = %s, want %s", i, got[i].Case.ID, id)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].DaysRemaining > got[i].DaysRemaining {
			t.Fatal("entries not sorted ascending")
		}
	}
}

func TestClassifyAnteLitem(t *testing.T) {
	tests := []struct {
		days     int
		included bool
		tier     Tier
		window   int
	}{
		{-30, true, TierOverdue, 0},
		{-1, true, TierOverdue, 0},
		{0, true, TierOverdue, 0},
		{1, true, TierUrgent, 7},
		{7, true, TierUrgent, 7},
		{8, true, TierUrgent, 30},
		{30, true, TierUrgent, 30},
		{31, true, TierMonitor, 90},
		{90, true, TierMonitor, 90},
		{91, false, "", 0},
	}
	for _, tt := range tests {
		got := ClassifyAnteLitem([]lawcase.Case{anteCase("c", tt.days)}, today)
		if !tt.included {
			if len(got) != 0 {
				t.Errorf("days %d: included, want excluded", tt.days)
			}
			continue
		}
		if len(got) != 1 {
			t.Errorf("days %d: excluded, want %s", tt.days, tt.tier)
			continue
		}
		if got[0].Tier != tt.tier || got[0].Window != tt.window {
			t.Errorf("days %d: tier/window = %s/%d, want %s/%d", tt.days, got[0].Tier, got[0].Window, tt.tier, tt.window)
		}
	}
}

func TestClassifyAnteLitem_YesterdayIsOverdue(t *testing.T) {
	got := ClassifyAnteLitem([]lawcase.Case{anteCase("late", -1)}, today)
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
	if got[0].Label != "Overdue" {
		t.Errorf("Label = %q, want Overdue", got[0].Label)
	}
	if got[0].DaysRemaining > 0 {
		t.Errorf("DaysRemaining = %d, want <= 0", got[0].DaysRemaining)
	}
}

func TestDaysBetween_BeyondDurationRange(t *testing.T) {
	// 0001-01-01 to 2026-06-01 is more than time.Duration can hold.
	if got := DaysBetween(today, time.Time{}); got != -739767 {
		t.Errorf("zero deadline = %d, want -739767", got)
	}
	if got := DaysBetween(time.Time{}, time.Unix(0, 0).UTC()); got != 719162 {
		t.Errorf("year 1 to epoch = %d, want 719162", got)
	}

	c := anteCase("unset", 0)
	c.AnteLitemDeadline = &time.Time{}
	got := ClassifyAnteLitem([]lawcase.Case{c}, today)
	if len(got) != 1 || got[0].DaysRemaining != -739767 || got[0].Tier != TierOverdue {
		t.Errorf("entries = %+v", got)
	}
}

func TestClassifyAnteLitem_Filters(t *testing.T) {
	notRequired := anteCase("nr", 5)
	notRequired.AnteLitemRequired = false
	noDeadline := anteCase("nd", 5)
	noDeadline.AnteLitemDeadline = nil
	closed := anteCase("closed", 5)
	closed.Stage = lawcase.StageClosed

	got := ClassifyAnteLitem([]lawcase.Case{notRequired, noDeadline, closed, anteCase("ok", 5)}, today)
	if len(got) != 1 || got[0].Case.ID != "ok" {
		t.Errorf("got %+v, want only ok", got)
	}
}

func TestClassifiersAreIndependent(t *testing.T) {
	c := solCase("both", 20)
	c.AnteLitemRequired = true
	c.AnteLitemDeadline = at(3)

	sol := ClassifySOL([]lawcase.Case{c}, today)
	ante := ClassifyAnteLitem([]lawcase.Case{c}, today)
	if len(sol) != 1 || sol[0].Kind != KindSOL || sol[0].DaysRemaining != 20 {
		t.Errorf("sol = %+v", sol)
	}
	if len(ante) != 1 || ante[0].Kind != KindAnteLitem || ante[0].DaysRemaining != 3 {
		t.Errorf("ante = %+v", ante)
	}
}

func TestBucketsAndSummary(t *testing.T) {
	es := ClassifyAnteLitem([]lawcase.Case{
		anteCase("a", -2), anteCase("b", 3), anteCase("c", 20), anteCase("d", 60), anteCase("e", 0),
	}, today)

	b := Buckets(es)
	if len(b[TierOverdue]) != 2 || b[TierOverdue][0].Case.ID != "a" {
		t.Errorf("overdue bucket = %+v", b[TierOverdue])
	}
	if len(b[TierUrgent]) != 2 || len(b[TierMonitor]) != 1 || len(b[TierWarning]) != 0 {
		t.Errorf("bucket sizes: urgent=%d monitor=%d warning=%d", len(b[TierUrgent]), len(b[TierMonitor]), len(b[TierWarning]))
	}

	s := Summarize(es)
	want := Summary{Total: 5, Overdue: 2, Urgent: 2, Monitor: 1}
	if s != want {
		t.Errorf("Summary = %+v, want %+v", s, want)
	}
}

func TestTier_Label(t *testing.T) {
	want := map[Tier]string{TierOverdue: "Overdue", TierUrgent: "Urgent", TierWarning: "Warning", TierMonitor: "Monitor"}
	for tier, label := range want {
		if got := tier.Label(); got != label {
			t.Errorf("%s.Label() = %q, want %q", tier, got, label)
		}
	}
}
