package ics

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/teambition/rrule-go"

	"coursecal/internal/model"
)

// MondayOf returns midnight of the Monday of the week containing t, as a
// floating date (time.UTC is only a neutral carrier; no zone conversion).
func MondayOf(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return d.AddDate(0, 0, -offset)
}

// Expand turns every (course, active week, weekday) of the schedule into
// one dated CalendarEvent. anchor is any day of week 1; it is normalized to
// that week's Monday.
//
// Events are ordered by course, then week, then weekday. The start clock is
// the start of the session's first period and the end clock the end of its
// last period.
func Expand(anchor time.Time, periods []model.Period, courses []model.RawCourse) ([]model.CalendarEvent, error) {
	if anchor.IsZero() {
		return nil, model.ErrMissingAnchorDate
	}
	monday := MondayOf(anchor)

	out := make([]model.CalendarEvent, 0)
	for _, c := range courses {
		weeks := c.Weeks.Weeks()
		if len(weeks) == 0 {
			continue
		}
		if err := model.CheckSessions(c, len(periods)); err != nil {
			return nil, err
		}

		dates := make([][]time.Time, len(c.Sessions))
		for i, s := range c.Sessions {
			d, err := weeklyDates(monday.AddDate(0, 0, s.Weekday.Column()))
			if err != nil {
				return nil, fmt.Errorf("expand %q on %s: %w", c.Name, s.Weekday, err)
			}
			dates[i] = d
		}

		for _, w := range weeks {
			for i, s := range c.Sessions {
				first := periods[s.Periods[0]-1]
				last := periods[s.Periods[len(s.Periods)-1]-1]
				out = append(out, newEvent(c, w, s.Weekday, dates[i][w-1], first.Start, last.End))
			}
		}
	}
	return out, nil
}

// weeklyDates lists the term's dates for one weekday: index w-1 is week w.
func weeklyDates(first time.Time) ([]time.Time, error) {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.WEEKLY,
		Dtstart: first,
		Count:   model.WeeksPerTerm,
	})
	if err != nil {
		return nil, err
	}
	dates := r.All()
	if len(dates) != model.WeeksPerTerm {
		return nil, fmt.Errorf("weekly rule yielded %d dates, want %d", len(dates), model.WeeksPerTerm)
	}
	return dates, nil
}

func newEvent(c model.RawCourse, week int, day model.Weekday, date time.Time, start, end model.Clock) model.CalendarEvent {
	return model.CalendarEvent{
		Date:        date,
		Start:       start,
		End:         end,
		Week:        week,
		Weekday:     day,
		Title:       c.Name,
		Location:    c.Classroom,
		Description: c.Teachers,
		UID:         eventUID(date, start, end, c, week),
	}
}

// eventUID is unique per course occurrence within one export. Name and
// classroom contribute only their character counts.
func eventUID(date time.Time, start, end model.Clock, c model.RawCourse, week int) string {
	return fmt.Sprintf("%s-%s-%s-%d-%d-%d",
		date.Format(dateLayout),
		start.Compact(),
		end.Compact(),
		utf8.RuneCountInString(c.Name),
		utf8.RuneCountInString(c.Classroom),
		week,
	)
}
