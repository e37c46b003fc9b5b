package schedule

import (
	"errors"
	"testing"

	"finflow/internal/core"
)

var allFrequencies = []core.Frequency{core.Daily, core.Weekly, core.Monthly, core.Quarterly, core.Yearly}

func TestNextOccurrence(t *testing.T) {
	d := core.MustParseDate

	tests := []struct {
		name  string
		start string
		freq  core.Frequency
		ref   string
		want  string
	}{
		{"start in future returned unchanged", "2024-05-10", core.Monthly, "2024-03-01", "2024-05-10"},
		{"start equal to ref moves one period", "2024-03-01", core.Daily, "2024-03-01", "2024-03-02"},
		{"daily", "2024-01-01", core.Daily, "2024-03-01", "2024-03-02"},
		{"weekly same weekday", "2024-01-01", core.Weekly, "2024-01-15", "2024-01-22"},
		{"weekly between occurrences", "2024-01-01", core.Weekly, "2024-01-17", "2024-01-22"},
		{"monthly clamps into leap february", "2024-01-31", core.Monthly, "2024-02-01", "2024-02-29"},
		{"monthly restores anchor in march", "2024-01-31", core.Monthly, "2024-03-01", "2024-03-31"},
		{"monthly clamps into common february", "2023-01-31", core.Monthly, "2023-02-15", "2023-02-28"},
		{"monthly ref on occurrence", "2024-01-15", core.Monthly, "2024-04-15", "2024-05-15"},
		{"quarterly", "2024-01-31", core.Quarterly, "2024-02-10", "2024-04-30"},
		{"quarterly across year", "2023-11-30", core.Quarterly, "2024-01-01", "2024-02-29"},
		{"yearly leap day", "2024-02-29", core.Yearly, "2024-03-01", "2025-02-28"},
		{"yearly back to leap day", "2024-02-29", core.Yearly, "2027-06-01", "2028-02-29"},
		{"long ago start", "1990-06-15", core.Daily, "2024-06-15", "2024-06-16"},
		{"daily start centuries ago", "0001-01-02", core.Daily, "2024-03-10", "2024-03-11"},
		{"weekly start centuries ago", "1600-01-01", core.Weekly, "2024-03-10", "2024-03-16"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrence(d(tt.start), tt.freq, d(tt.ref))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(d(tt.want)) {
				t.Errorf("NextOccurrence() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNextOccurrence_InvalidFrequency(t *testing.T) {
	_, err := NextOccurrence(core.NewDate(2024, 1, 1), "hourly", core.NewDate(2024, 2, 1))
	if !errors.Is(err, core.ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
}

func TestNextOccurrence_AlwaysAfterRef(t *testing.T) {
	starts := []core.Date{
		core.NewDate(2023, 1, 31), core.NewDate(2024, 2, 29), core.NewDate(2023, 8, 30),
		core.NewDate(2024, 12, 31), core.NewDate(2024, 6, 1),
	}
	for _, freq := range allFrequencies {
		for _, start := range starts {
			ref := start.AddDays(-40)
			for i := 0; i < 800; i += 3 {
				r := ref.AddDays(i)
				got, err := NextOccurrence(start, freq, r)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if start.After(r) {
					if !got.Equal(start) {
						t.Fatalf("%s %s ref %s: future start must be returned, got %s", freq, start, r, got)
					}
					continue
				}
				if !got.After(r) {
					t.Fatalf("%s %s ref %s: got %s, not after ref", freq, start, r, got)
				}
			}
		}
	}
}

func TestNextOccurrence_IsEarliest(t *testing.T) {
	// compare the closed form against naive stepping of the rule
	for _, freq := range allFrequencies {
		rule := Rule{Start: core.NewDate(2023, 1, 31), Frequency: freq}
		for i := 0; i < 500; i += 7 {
			ref := rule.Start.AddDays(i)
			want := rule.Start
			for !want.After(ref) {
				var err error
				if want, err = rule.Advance(want); err != nil {
					t.Fatal(err)
				}
			}
			got, err := rule.Next(ref)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(want) {
				t.Fatalf("%s ref %s: got %s, want %s", freq, ref, got, want)
			}
		}
	}
}

func TestRuleAdvance_ReproducesNextOccurrence(t *testing.T) {
	starts := []core.Date{core.NewDate(2024, 1, 31), core.NewDate(2023, 5, 30), core.NewDate(2024, 2, 29), core.NewDate(2024, 3, 12)}
	for _, freq := range allFrequencies {
		for _, start := range starts {
			rule := Rule{Start: start, Frequency: freq}
			current := start
			for i := 0; i < 30; i++ {
				advanced, err := rule.Advance(current)
				if err != nil {
					t.Fatal(err)
				}
				projected, err := rule.Next(current)
				if err != nil {
					t.Fatal(err)
				}
				if !advanced.Equal(projected) {
					t.Fatalf("%s from %s step %d: Advance=%s Next=%s", freq, start, i, advanced, projected)
				}
				current = advanced
			}
		}
	}
}

func TestRuleAdvance_LeapYearScenario(t *testing.T) {
	rule := Rule{Start: core.NewDate(2024, 1, 31), Frequency: core.Monthly}
	want := []string{"2024-02-29", "2024-03-31", "2024-04-30", "2024-05-31"}
	current := rule.Start
	for _, w := range want {
		var err error
		if current, err = rule.Advance(current); err != nil {
			t.Fatal(err)
		}
		if current.String() != w {
			t.Fatalf("got %s, want %s", current, w)
		}
	}
}

func TestRuleAdvance_KeepsManualDay(t *testing.T) {
	rule := Rule{Start: core.NewDate(2024, 1, 31), Frequency: core.Monthly}
	got, err := rule.Advance(core.NewDate(2024, 3, 5))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(core.NewDate(2024, 4, 5)) {
		t.Fatalf("snoozed day should be kept, got %s", got)
	}
}

func TestAdvanceOnce(t *testing.T) {
	tests := []struct {
		current string
		freq    core.Frequency
		want    string
	}{
		{"2024-03-05", core.Daily, "2024-03-06"},
		{"2024-12-29", core.Weekly, "2025-01-05"},
		{"2024-01-31", core.Monthly, "2024-02-29"},
		{"2024-02-29", core.Monthly, "2024-03-29"},
		{"2024-11-30", core.Quarterly, "2025-02-28"},
		{"2024-02-29", core.Yearly, "2025-02-28"},
	}
	for _, tt := range tests {
		t.Run(string(tt.freq)+" "+tt.current, func(t *testing.T) {
			got, err := AdvanceOnce(core.MustParseDate(tt.current), tt.freq)
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != tt.want {
				t.Errorf("AdvanceOnce() = %s, want %s", got, tt.want)
			}
		})
	}
	if _, err := AdvanceOnce(core.NewDate(2024, 1, 1), "sometimes"); !errors.Is(err, core.ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
}

func TestOccurrences(t *testing.T) {
	rule := Rule{Start: core.NewDate(2024, 1, 31), Frequency: core.Monthly}
	got, err := Occurrences(rule, core.NewDate(2024, 1, 31), core.NewDate(2024, 5, 30))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Fatalf("index %d: got %s, want %s", i, got[i], want[i])
		}
	}

	if _, err := Occurrences(rule, core.NewDate(2024, 5, 1), core.NewDate(2024, 4, 1)); !errors.Is(err, core.ErrDateOrdering) {
		t.Fatalf("expected ErrDateOrdering, got %v", err)
	}

	daily := Rule{Start: core.NewDate(2000, 1, 1), Frequency: core.Daily}
	many, err := Occurrences(daily, core.NewDate(2000, 1, 1), core.NewDate(2010, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(many) != maxOccurrences {
		t.Fatalf("expected occurrences to be capped at %d, got %d", maxOccurrences, len(many))
	}
}
