package model

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// WeekFlags marks the weeks of term a course meets. Index w-1 holds week w.
type WeekFlags [WeeksPerTerm]bool

// WeekRange is an inclusive, 1-based range of weeks.
type WeekRange struct {
	Min int
	Max int
}

// ParseWeekFlags parses an 18 character string of '0' and '1'.
func ParseWeekFlags(s string) (WeekFlags, error) {
	var f WeekFlags
	if n := utf8.RuneCountInString(s); n != WeeksPerTerm {
		return f, fmt.Errorf("%w: want %d characters, got %d", ErrInvalidWeekFlags, WeeksPerTerm, n)
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '1':
			f[i] = true
		case '0':
		default:
			return f, fmt.Errorf("%w: unexpected %q at position %d", ErrInvalidWeekFlags, s[i], i+1)
		}
	}
	return f, nil
}

// Weeks enumerates the active weeks in ascending order.
func (f WeekFlags) Weeks() []int {
	var out []int
	for i, on := range f {
		if on {
			out = append(out, i+1)
		}
	}
	return out
}

// Runs returns every maximal run of consecutive active weeks, ascending.
func (f WeekFlags) Runs() []WeekRange {
	var runs []WeekRange
	start := 0
	for i := 0; i <= WeeksPerTerm; i++ {
		on := i < WeeksPerTerm && f[i]
		switch {
		case on && start == 0:
			start = i + 1
		case !on && start != 0:
			runs = append(runs, WeekRange{Min: start, Max: i})
			start = 0
		}
	}
	return runs
}

func (f WeekFlags) String() string {
	var b strings.Builder
	b.Grow(WeeksPerTerm)
	for _, on := range f {
		if on {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}
