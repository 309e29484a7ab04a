package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DaysPerWeek is the fixed number of weekday columns in a timetable grid.
const DaysPerWeek = 7

// WeeksPerTerm is the length of the week-flag sequence of every course.
const WeeksPerTerm = 18

// Weekday numbers days 1 (Monday) through 7 (Sunday).
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

// Column returns the zero-based grid column for d.
func (d Weekday) Column() int {
	return int(d) - 1
}

func (d Weekday) String() string {
	switch d {
	case Monday:
		return "Monday"
	case Tuesday:
		return "Tuesday"
	case Wednesday:
		return "Wednesday"
	case Thursday:
		return "Thursday"
	case Friday:
		return "Friday"
	case Saturday:
		return "Saturday"
	case Sunday:
		return "Sunday"
	default:
		return "Weekday(" + strconv.Itoa(int(d)) + ")"
	}
}

// Clock is a local wall-clock time of day without any zone attached.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "H:M" forms such as "8:00" or "08:45".
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Clock{}, fmt.Errorf("clock %q: missing ':'", s)
	}
	h, err := strconv.Atoi(strings.TrimSpace(hh))
	if err != nil {
		return Clock{}, fmt.Errorf("clock %q: %w", s, err)
	}
	m, err := strconv.Atoi(strings.TrimSpace(mm))
	if err != nil {
		return Clock{}, fmt.Errorf("clock %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("clock %q: out of range", s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

// String renders the clock as zero-padded "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Compact renders the clock as zero-padded "HHMM".
func (c Clock) Compact() string {
	return fmt.Sprintf("%02d%02d", c.Hour, c.Minute)
}

// On returns the instant at clock c on the calendar day of date, in date's location.
func (c Clock) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour, c.Minute, 0, 0, date.Location())
}

// Period is one numbered teaching slot shared by every course of a semester.
type Period struct {
	Index int
	Label string
	Start Clock
	End   Clock
}

// Session lists the periods a course occupies on one weekday.
type Session struct {
	Weekday Weekday
	Periods []int
}

// RawCourse is one course section as delivered by the data source.
type RawCourse struct {
	Name      string
	Classroom string
	Teachers  string
	Weeks     WeekFlags
	// Sessions are sorted by weekday, at most one per weekday.
	Sessions []Session
}

// Code returns the course code embedded in parentheses at the end of the
// name, e.g. "Algorithms(CS2001)" yields "CS2001". Empty if none.
func (c RawCourse) Code() string {
	name := strings.TrimSpace(c.Name)
	for _, pair := range [][2]string{{"(", ")"}, {"（", "）"}} {
		if !strings.HasSuffix(name, pair[1]) {
			continue
		}
		open := strings.LastIndex(name, pair[0])
		if open < 0 {
			continue
		}
		return strings.TrimSpace(name[open+len(pair[0]) : len(name)-len(pair[1])])
	}
	return ""
}

// Dataset is one semester's immutable snapshot of periods and courses.
type Dataset struct {
	Periods []Period
	Courses []RawCourse
}

// Validate checks every session against the period list and weekday bounds.
func (d *Dataset) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: dataset is nil", ErrMalformedDataset)
	}
	for _, c := range d.Courses {
		if err := CheckSessions(c, len(d.Periods)); err != nil {
			return err
		}
	}
	return nil
}

// CheckSessions reports the first session of c that references a weekday
// outside 1..7 or a period outside 1..periodCount.
func CheckSessions(c RawCourse, periodCount int) error {
	for _, s := range c.Sessions {
		if !s.Weekday.Valid() {
			return fmt.Errorf("%w: course %q weekday %d", ErrOutOfRangeReference, c.Name, s.Weekday)
		}
		if len(s.Periods) == 0 {
			return fmt.Errorf("%w: course %q has no periods on %s", ErrMalformedDataset, c.Name, s.Weekday)
		}
		for _, p := range s.Periods {
			if p < 1 || p > periodCount {
				return fmt.Errorf("%w: course %q period %d on %s (have %d periods)",
					ErrOutOfRangeReference, c.Name, p, s.Weekday, periodCount)
			}
		}
	}
	return nil
}

// WeekSegment is one maximal run of active weeks of a grid cell, together
// with the room and teachers valid for that run.
type WeekSegment struct {
	MinWeek int
	MaxWeek int
	Course  string
	// CourseCode is RawCourse.Code of the course, empty if the name has none.
	CourseCode string
	Classroom  string
	Teachers   string
}

// Overlaps reports whether the week ranges of s and o intersect.
func (s WeekSegment) Overlaps(o WeekSegment) bool {
	return s.MinWeek <= o.MaxWeek && o.MinWeek <= s.MaxWeek
}

// GridCell is one (period, weekday) cell. The zero value is an empty cell.
type GridCell struct {
	// IdentityKey is only used for equality checks when merging rows.
	IdentityKey string
	CourseName  string
	Segments    []WeekSegment
}

func (c GridCell) Empty() bool {
	return len(c.Segments) == 0
}

// Grid is a period-by-weekday timetable. Rows[i] belongs to Periods[i].
type Grid struct {
	Periods []Period
	Rows    [][DaysPerWeek]GridCell
}

// Cell returns the cell at the zero-based row for the given weekday.
func (g *Grid) Cell(row int, day Weekday) (GridCell, error) {
	if g == nil || row < 0 || row >= len(g.Rows) {
		return GridCell{}, fmt.Errorf("%w: row %d", ErrOutOfRange, row)
	}
	if !day.Valid() {
		return GridCell{}, fmt.Errorf("%w: weekday %d", ErrOutOfRange, day)
	}
	return g.Rows[row][day.Column()], nil
}

// CalendarEvent is one concrete dated occurrence of a course session.
type CalendarEvent struct {
	// Date is midnight of the occurrence day; only its calendar fields matter.
	Date        time.Time
	Start       Clock
	End         Clock
	Week        int
	Weekday     Weekday
	Title       string
	Location    string
	Description string
	UID         string
}

func (e CalendarEvent) StartAt() time.Time {
	return e.Start.On(e.Date)
}

func (e CalendarEvent) EndAt() time.Time {
	return e.End.On(e.Date)
}
