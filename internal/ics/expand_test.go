package ics

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"coursecal/internal/model"
)

func periods() []model.Period {
	return []model.Period{
		{Index: 1, Start: model.Clock{Hour: 8}, End: model.Clock{Hour: 8, Minute: 45}},
		{Index: 2, Start: model.Clock{Hour: 8, Minute: 50}, End: model.Clock{Hour: 9, Minute: 35}},
		{Index: 3, Start: model.Clock{Hour: 9, Minute: 50}, End: model.Clock{Hour: 10, Minute: 35}},
		{Index: 4, Start: model.Clock{Hour: 10, Minute: 40}, End: model.Clock{Hour: 11, Minute: 25}},
	}
}

func mustCourse(t *testing.T, name, room, teachers, weeks string, sessions ...model.Session) model.RawCourse {
	t.Helper()
	f, err := model.ParseWeekFlags(weeks)
	if err != nil {
		t.Fatal(err)
	}
	return model.RawCourse{Name: name, Classroom: room, Teachers: teachers, Weeks: f, Sessions: sessions}
}

var anchor = time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)

func TestExpand_AlgorithmsScenario(t *testing.T) {
	alg := mustCourse(t, "Algorithms", "B101", "Li", "001111000000000000",
		model.Session{Weekday: model.Monday, Periods: []int{1, 2}})

	events, err := Expand(anchor, periods(), []model.RawCourse{alg})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("events = %d, want 4", len(events))
	}

	wantDates := []string{"20240916", "20240923", "20240930", "20241007"}
	for i, ev := range events {
		if got := ev.Date.Format(dateLayout); got != wantDates[i] {
			t.Errorf("event %d date = %s, want %s", i, got, wantDates[i])
		}
		if ev.Week != i+3 || ev.Weekday != model.Monday {
			t.Errorf("event %d week/day = %d/%s", i, ev.Week, ev.Weekday)
		}
		if ev.Start.Compact() != "0800" || ev.End.Compact() != "0935" {
			t.Errorf("event %d clocks = %s-%s", i, ev.Start, ev.End)
		}
		if ev.Title != "Algorithms" || ev.Location != "B101" || ev.Description != "Li" {
			t.Errorf("event %d fields = %+v", i, ev)
		}
	}
	if events[0].UID != "20240916-0800-0935-10-4-3" {
		t.Errorf("UID = %q", events[0].UID)
	}
}

func TestExpand_Count(t *testing.T) {
	courses := []model.RawCourse{
		mustCourse(t, "A", "R", "T", "001111000111100000",
			model.Session{Weekday: model.Monday, Periods: []int{1, 2}},
			model.Session{Weekday: model.Thursday, Periods: []int{3}}),
		mustCourse(t, "B", "R", "T", "111111111111111111",
			model.Session{Weekday: model.Sunday, Periods: []int{4}}),
		mustCourse(t, "C", "R", "T", "000000000000000000",
			model.Session{Weekday: model.Friday, Periods: []int{1}}),
	}
	events, err := Expand(anchor, periods(), courses)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}

	want := 0
	for _, c := range courses {
		want += len(c.Weeks.Weeks()) * len(c.Sessions)
	}
	if len(events) != want || want != 8*2+18 {
		t.Fatalf("events = %d, want %d", len(events), want)
	}

	seen := make(map[string]bool)
	for _, ev := range events {
		if seen[ev.UID] {
			t.Errorf("duplicate UID %s", ev.UID)
		}
		seen[ev.UID] = true
	}

	last := events[len(events)-1]
	if last.Weekday != model.Sunday || last.Date.Format(dateLayout) != "20250105" {
		t.Errorf("week 18 Sunday = %s (%s)", last.Date.Format(dateLayout), last.Weekday)
	}
}

func TestExpand_OrderedByWeekThenWeekday(t *testing.T) {
	c := mustCourse(t, "A", "R", "T", "110000000000000000",
		model.Session{Weekday: model.Tuesday, Periods: []int{1}},
		model.Session{Weekday: model.Friday, Periods: []int{2}})
	events, err := Expand(anchor, periods(), []model.RawCourse{c})
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, ev := range events {
		got = append(got, ev.Date.Format(dateLayout))
	}
	want := []string{"20240903", "20240906", "20240910", "20240913"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("dates = %v, want %v", got, want)
	}
}

func TestExpand_Idempotent(t *testing.T) {
	courses := []model.RawCourse{
		mustCourse(t, "Algorithms", "B101", "Li", "001111000000000000",
			model.Session{Weekday: model.Monday, Periods: []int{1, 2}}),
		mustCourse(t, "Physics", "D101", "Chen, Wang", "111100001111000000",
			model.Session{Weekday: model.Wednesday, Periods: []int{3, 4}},
			model.Session{Weekday: model.Friday, Periods: []int{1}}),
	}

	first, err := Expand(anchor, periods(), courses)
	if err != nil {
		t.Fatalf("first Expand: %v", err)
	}
	second, err := Expand(anchor, periods(), courses)
	if err != nil {
		t.Fatalf("second Expand: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Expand is not repeatable:\nfirst  %+v\nsecond %+v", first, second)
	}
	if len(first) != 4+8*2 {
		t.Errorf("events = %d, want 20", len(first))
	}
}

func TestExpand_AnchorNormalizedToMonday(t *testing.T) {
	c := mustCourse(t, "A", "R", "T", "100000000000000000",
		model.Session{Weekday: model.Monday, Periods: []int{1}})
	wednesday := time.Date(2024, 9, 4, 15, 30, 0, 0, time.Local)
	events, err := Expand(wednesday, periods(), []model.RawCourse{c})
	if err != nil {
		t.Fatal(err)
	}
	if events[0].Date.Format(dateLayout) != "20240902" {
		t.Fatalf("date = %s, want 20240902", events[0].Date.Format(dateLayout))
	}
}

func TestMondayOf(t *testing.T) {
	tests := map[time.Time]string{
		time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC):  "20240902",
		time.Date(2024, 9, 8, 23, 0, 0, 0, time.UTC): "20240902",
		time.Date(2024, 9, 9, 1, 0, 0, 0, time.UTC):  "20240909",
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC):  "20241230",
	}
	for in, want := range tests {
		if got := MondayOf(in).Format(dateLayout); got != want {
			t.Errorf("MondayOf(%s) = %s, want %s", in.Format(time.DateOnly), got, want)
		}
	}
}

func TestExpand_Errors(t *testing.T) {
	c := mustCourse(t, "A", "R", "T", "100000000000000000",
		model.Session{Weekday: model.Monday, Periods: []int{5}})

	if _, err := Expand(time.Time{}, periods(), nil); !errors.Is(err, model.ErrMissingAnchorDate) {
		t.Errorf("zero anchor: err = %v", err)
	}
	if _, err := Expand(anchor, periods(), []model.RawCourse{c}); !errors.Is(err, model.ErrOutOfRangeReference) {
		t.Errorf("period 5: err = %v", err)
	}
}

func TestExpand_EmptyCourses(t *testing.T) {
	events, err := Expand(anchor, periods(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Fatalf("events = %d, want 0", len(events))
	}
}
