package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "coursecal/internal/log"
	"coursecal/internal/model"
)

// Export is a calendar document read back from its serialized form.
type Export struct {
	Name     string
	Timezone string
	Events   []model.CalendarEvent
}

// ParseExport reads a document produced by Serialize. The week number of
// each event is recovered from the last UID field when present.
func ParseExport(body []byte) (*Export, error) {
	if len(body) == 0 {
		return nil, errors.New("empty calendar body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	out := &Export{}
	for _, p := range cal.CalendarProperties {
		switch p.IANAToken {
		case string(ical.PropertyXWRCalName):
			out.Name = p.Value
		case string(ical.PropertyXWRTimezone):
			out.Timezone = p.Value
		}
	}

	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(ve)
		if perr != nil {
			return nil, perr
		}
		out.Events = append(out.Events, ev)
	}

	appLog.Debug("calendar parse completed", "name", out.Name, "event_count", len(out.Events))
	return out, nil
}

func parseVEvent(ve *ical.VEvent) (model.CalendarEvent, error) {
	var ev model.CalendarEvent

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return ev, errors.New("vevent: missing UID")
	}
	ev.UID = uid.Value

	start, err := floatingTime(ve, ical.ComponentPropertyDtStart)
	if err != nil {
		return ev, fmt.Errorf("vevent %s: %w", ev.UID, err)
	}
	end, err := floatingTime(ve, ical.ComponentPropertyDtEnd)
	if err != nil {
		return ev, fmt.Errorf("vevent %s: %w", ev.UID, err)
	}

	ev.Date = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	ev.Start = model.Clock{Hour: start.Hour(), Minute: start.Minute()}
	ev.End = model.Clock{Hour: end.Hour(), Minute: end.Minute()}
	ev.Weekday = model.Weekday((int(start.Weekday())+6)%7 + 1)

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		ev.Location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.Description = p.Value
	}

	if i := strings.LastIndexByte(ev.UID, '-'); i >= 0 {
		if w, err := strconv.Atoi(ev.UID[i+1:]); err == nil {
			ev.Week = w
		}
	}
	return ev, nil
}

// floatingTime reads a DATE-TIME property without zone information.
// A trailing Z or a TZID parameter is accepted but the wall clock is kept.
func floatingTime(ve *ical.VEvent, prop ical.ComponentProperty) (time.Time, error) {
	p := ve.GetProperty(prop)
	if p == nil {
		return time.Time{}, fmt.Errorf("missing %s", prop)
	}
	v := strings.TrimSuffix(strings.TrimSpace(p.Value), "Z")
	t, err := time.ParseInLocation(dateTimeLayout, v, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s %q: %w", prop, p.Value, err)
	}
	return t, nil
}
