package ics

import (
	"io"

	ical "github.com/arran4/golang-ical"

	"coursecal/internal/model"
)

const (
	// DefaultTimezone is the X-WR-TIMEZONE label of exported calendars.
	DefaultTimezone = "Asia/Shanghai"
	// ContentType is the MIME type of a serialized calendar.
	ContentType = "text/calendar; charset=utf-8"
	// Filename is the suggested download name.
	Filename = "course_table.ics"

	dateLayout     = "20060102"
	dateTimeLayout = "20060102T150405"
)

// Calendar builds the iCalendar document for events. Calendar properties
// are VERSION, X-WR-CALNAME and X-WR-TIMEZONE; each VEVENT carries UID,
// DTSTART, DTEND, SUMMARY, LOCATION, DESCRIPTION and SEQUENCE in that order.
// Times are floating local times with no TZID.
func Calendar(events []model.CalendarEvent, calendarName, timezone string) *ical.Calendar {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	cal := &ical.Calendar{}
	cal.SetVersion("2.0")
	cal.SetXWRCalName(calendarName)
	cal.SetXWRTimezone(timezone)

	for _, e := range events {
		ve := cal.AddEvent(e.UID)
		ve.SetProperty(ical.ComponentPropertyDtStart, e.StartAt().Format(dateTimeLayout))
		ve.SetProperty(ical.ComponentPropertyDtEnd, e.EndAt().Format(dateTimeLayout))
		ve.SetProperty(ical.ComponentPropertySummary, e.Title)
		ve.SetProperty(ical.ComponentPropertyLocation, e.Location)
		ve.SetProperty(ical.ComponentPropertyDescription, e.Description)
		ve.SetProperty(ical.ComponentPropertySequence, "0")
	}
	return cal
}

// Serialize renders events as one iCalendar document labelled with
// DefaultTimezone.
func Serialize(events []model.CalendarEvent, calendarName string) string {
	return SerializeIn(events, calendarName, DefaultTimezone)
}

// SerializeIn is Serialize with an explicit X-WR-TIMEZONE label.
func SerializeIn(events []model.CalendarEvent, calendarName, timezone string) string {
	return Calendar(events, calendarName, timezone).Serialize(ical.WithNewLineWindows)
}

// WriteTo streams the document to w.
func WriteTo(w io.Writer, events []model.CalendarEvent, calendarName, timezone string) error {
	return Calendar(events, calendarName, timezone).SerializeTo(w, ical.WithNewLineWindows)
}
