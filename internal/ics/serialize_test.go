package ics

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"coursecal/internal/model"
)

func algorithmsEvents(t *testing.T) []model.CalendarEvent {
	t.Helper()
	alg := mustCourse(t, "Algorithms", "B101", "Li", "001111000000000000",
		model.Session{Weekday: model.Monday, Periods: []int{1, 2}})
	events, err := Expand(anchor, periods(), []model.RawCourse{alg})
	if err != nil {
		t.Fatal(err)
	}
	return events
}

func TestSerialize_Layout(t *testing.T) {
	out := Serialize(algorithmsEvents(t)[:1], "Fall 2024")

	if !strings.Contains(out, "\r\n") {
		t.Fatal("lines must end with CRLF")
	}
	got := strings.Split(strings.TrimSuffix(strings.ReplaceAll(out, "\r\n", "\n"), "\n"), "\n")
	want := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"X-WR-CALNAME:Fall 2024",
		"X-WR-TIMEZONE:Asia/Shanghai",
		"BEGIN:VEVENT",
		"UID:20240916-0800-0935-10-4-3",
		"DTSTART:20240916T080000",
		"DTEND:20240916T093500",
		"SUMMARY:Algorithms",
		"LOCATION:B101",
		"DESCRIPTION:Li",
		"SEQUENCE:0",
		"END:VEVENT",
		"END:VCALENDAR",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("document lines:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestSerialize_Empty(t *testing.T) {
	out := SerializeIn(nil, "Empty", "Europe/Berlin")
	if strings.Contains(out, "BEGIN:VEVENT") {
		t.Fatal("empty export must not contain events")
	}
	if !strings.Contains(out, "X-WR-TIMEZONE:Europe/Berlin\r\n") {
		t.Fatalf("timezone label missing:\n%s", out)
	}
	if !strings.HasSuffix(out, "END:VCALENDAR\r\n") {
		t.Fatalf("document not terminated:\n%s", out)
	}
}

func TestSerialize_Idempotent(t *testing.T) {
	events := algorithmsEvents(t)
	a := Serialize(events, "x")
	b := Serialize(events, "x")
	if a != b {
		t.Fatal("serialization is not deterministic")
	}
	if n := strings.Count(a, "BEGIN:VEVENT"); n != 4 {
		t.Fatalf("VEVENT count = %d, want 4", n)
	}
}

func TestWriteTo_MatchesSerialize(t *testing.T) {
	events := algorithmsEvents(t)
	var buf bytes.Buffer
	if err := WriteTo(&buf, events, "x", DefaultTimezone); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if buf.String() != Serialize(events, "x") {
		t.Fatal("WriteTo and Serialize disagree")
	}
}

func TestParseExport_RoundTrip(t *testing.T) {
	events := algorithmsEvents(t)
	events[1].Description = "Li; Zhou, Wu"

	exp, err := ParseExport([]byte(SerializeIn(events, "课表", "Asia/Shanghai")))
	if err != nil {
		t.Fatalf("ParseExport: %v", err)
	}
	if exp.Name != "课表" || exp.Timezone != "Asia/Shanghai" {
		t.Errorf("header = %q/%q", exp.Name, exp.Timezone)
	}
	if len(exp.Events) != len(events) {
		t.Fatalf("events = %d, want %d", len(exp.Events), len(events))
	}
	for i, got := range exp.Events {
		want := events[i]
		if !got.StartAt().Equal(want.StartAt()) || !got.EndAt().Equal(want.EndAt()) {
			t.Errorf("event %d times = %s..%s, want %s..%s", i, got.StartAt(), got.EndAt(), want.StartAt(), want.EndAt())
		}
		if got.UID != want.UID || got.Week != want.Week || got.Weekday != want.Weekday {
			t.Errorf("event %d identity = %s/%d/%s", i, got.UID, got.Week, got.Weekday)
		}
		if got.Title != want.Title || got.Location != want.Location || got.Description != want.Description {
			t.Errorf("event %d text = %q/%q/%q", i, got.Title, got.Location, got.Description)
		}
	}
}

func TestParseExport_Errors(t *testing.T) {
	if _, err := ParseExport(nil); err == nil {
		t.Error("empty body should fail")
	}
	noUID := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nBEGIN:VEVENT\r\nDTSTART:20240916T080000\r\nDTEND:20240916T093500\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	if _, err := ParseExport([]byte(noUID)); err == nil {
		t.Error("event without UID should fail")
	}
	badStart := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nBEGIN:VEVENT\r\nUID:x-1\r\nDTSTART:2024-09-16\r\nDTEND:20240916T093500\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	if _, err := ParseExport([]byte(badStart)); err == nil {
		t.Error("malformed DTSTART should fail")
	}
}
