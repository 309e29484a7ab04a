// Package timetable turns a semester's raw course list into a
// period-by-weekday grid and resolves vertical cell merges for rendering.
package timetable

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"coursecal/internal/model"
)

// slotEntry is a segment together with the session it came from. The
// session's period list takes part in the identity key so that two
// back-to-back sessions of one course on the same day stay separate cells.
type slotEntry struct {
	seg     model.WeekSegment
	session string
}

// Build lays out courses on a grid with one row per period and one column
// per weekday. Every maximal run of active weeks of a course becomes one
// WeekSegment in each cell the course occupies.
//
// Segments in a cell are sorted by MinWeek. Repeated entries of one course
// are joined into a single segment. A segment whose weeks overlap another
// course or section in the same cell fails with model.ErrSlotConflict; a
// session that points outside the period list or weekday range fails with
// model.ErrOutOfRangeReference. Courses without active weeks are skipped.
func Build(periods []model.Period, courses []model.RawCourse) (*model.Grid, error) {
	acc := make([][model.DaysPerWeek][]slotEntry, len(periods))

	for _, c := range courses {
		runs := c.Weeks.Runs()
		if len(runs) == 0 {
			continue
		}
		if err := model.CheckSessions(c, len(periods)); err != nil {
			return nil, err
		}
		for _, s := range c.Sessions {
			session := sessionKey(s.Periods)
			for _, run := range runs {
				seg := model.WeekSegment{
					MinWeek:   run.Min,
					MaxWeek:   run.Max,
					Course:     c.Name,
					CourseCode: c.Code(),
					Classroom:  c.Classroom,
					Teachers:   c.Teachers,
				}
				for _, p := range s.Periods {
					cell := &acc[p-1][s.Weekday.Column()]
					next, err := place(*cell, slotEntry{seg: seg, session: session}, p, s.Weekday)
					if err != nil {
						return nil, err
					}
					*cell = next
				}
			}
		}
	}

	return freeze(periods, acc), nil
}

// place adds e to a cell. Entries of the same course, room, teachers and
// session whose weeks overlap or touch e are folded into it, so a course
// delivered twice by the source does not conflict with itself.
func place(cell []slotEntry, e slotEntry, period int, day model.Weekday) ([]slotEntry, error) {
	kept := make([]slotEntry, 0, len(cell)+1)
	for _, x := range cell {
		if x.sameSource(e) && x.seg.MinWeek <= e.seg.MaxWeek+1 && e.seg.MinWeek <= x.seg.MaxWeek+1 {
			e.seg.MinWeek = min(e.seg.MinWeek, x.seg.MinWeek)
			e.seg.MaxWeek = max(e.seg.MaxWeek, x.seg.MaxWeek)
			continue
		}
		kept = append(kept, x)
	}
	if err := checkOverlap(kept, e.seg, period, day); err != nil {
		return nil, err
	}
	return append(kept, e), nil
}

func (e slotEntry) sameSource(o slotEntry) bool {
	return e.session == o.session &&
		e.seg.Course == o.seg.Course &&
		e.seg.Classroom == o.seg.Classroom &&
		e.seg.Teachers == o.seg.Teachers
}

func checkOverlap(existing []slotEntry, seg model.WeekSegment, period int, day model.Weekday) error {
	for _, e := range existing {
		if e.seg.Overlaps(seg) {
			return fmt.Errorf("%w: %s period %d: %q weeks %d-%d overlaps %q weeks %d-%d",
				model.ErrSlotConflict, day, period,
				seg.Course, seg.MinWeek, seg.MaxWeek,
				e.seg.Course, e.seg.MinWeek, e.seg.MaxWeek)
		}
	}
	return nil
}

// freeze converts the accumulator into the returned Grid.
func freeze(periods []model.Period, acc [][model.DaysPerWeek][]slotEntry) *model.Grid {
	g := &model.Grid{
		Periods: append([]model.Period(nil), periods...),
		Rows:    make([][model.DaysPerWeek]model.GridCell, len(periods)),
	}
	for r := range acc {
		for col, entries := range acc[r] {
			if len(entries) == 0 {
				continue
			}
			sort.SliceStable(entries, func(i, j int) bool {
				return entries[i].seg.MinWeek < entries[j].seg.MinWeek
			})
			segs := make([]model.WeekSegment, len(entries))
			for i, e := range entries {
				segs[i] = e.seg
			}
			g.Rows[r][col] = model.GridCell{
				IdentityKey: identityKey(model.Weekday(col+1), entries),
				CourseName:  segs[0].Course,
				Segments:    segs,
			}
		}
	}
	return g
}

// identityKey composes weekday, course, room, teachers, session periods and
// week range of every segment. Two cells compare equal only if they show
// exactly the same content for the same session.
func identityKey(day model.Weekday, entries []slotEntry) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(int(day)))
	for _, e := range entries {
		b.WriteString("\x1e")
		b.WriteString(e.seg.Course)
		b.WriteByte('\x1f')
		b.WriteString(e.seg.Classroom)
		b.WriteByte('\x1f')
		b.WriteString(e.seg.Teachers)
		b.WriteByte('\x1f')
		b.WriteString(e.session)
		b.WriteByte('\x1f')
		b.WriteString(strconv.Itoa(e.seg.MinWeek))
		b.WriteByte('-')
		b.WriteString(strconv.Itoa(e.seg.MaxWeek))
	}
	return b.String()
}

func sessionKey(periods []int) string {
	parts := make([]string, len(periods))
	for i, p := range periods {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}
