package timetable

import (
	"errors"
	"testing"

	"coursecal/internal/model"
)

func TestComputeSpan_Column(t *testing.T) {
	courses := []model.RawCourse{
		course(t, "Algorithms", "B101", "Li", "001111000000000000", on(model.Monday, 1, 2)),
		// Same course again right after: a separate session, not merged with rows 1-2.
		course(t, "Algorithms", "B101", "Li", "001111000000000000", on(model.Monday, 3, 4)),
		course(t, "Chemistry", "E1", "Sun", "111111110000000000", on(model.Monday, 6)),
	}
	g, err := Build(testPeriods(7), courses)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := []int{2, 0, 2, 0, 1, 1, 1}
	for row, w := range want {
		s, err := ComputeSpan(g, model.Monday, row)
		if err != nil {
			t.Fatalf("ComputeSpan(row %d): %v", row, err)
		}
		if s.RowSpan != w {
			t.Errorf("row %d RowSpan = %d, want %d", row, s.RowSpan, w)
		}
	}
}

func TestComputeSpan_SameNameDifferentSection(t *testing.T) {
	// Two sections share a display name but not a room: never merged.
	courses := []model.RawCourse{
		course(t, "English", "F1", "Ma", "111100000000000000", on(model.Tuesday, 1)),
		course(t, "English", "F2", "Ma", "111100000000000000", on(model.Tuesday, 2)),
	}
	g, err := Build(testPeriods(2), courses)
	if err != nil {
		t.Fatal(err)
	}
	for row := 0; row < 2; row++ {
		s, _ := ComputeSpan(g, model.Tuesday, row)
		if s.RowSpan != 1 {
			t.Errorf("row %d RowSpan = %d, want 1", row, s.RowSpan)
		}
	}
}

func TestComputeSpan_OutOfRange(t *testing.T) {
	g, _ := Build(testPeriods(3), nil)
	for _, row := range []int{-1, 3} {
		if _, err := ComputeSpan(g, model.Monday, row); !errors.Is(err, model.ErrOutOfRange) {
			t.Errorf("row %d: err = %v, want ErrOutOfRange", row, err)
		}
	}
	if _, err := ComputeSpan(g, 8, 0); !errors.Is(err, model.ErrOutOfRange) {
		t.Errorf("weekday 8: err = %v", err)
	}
	if _, err := Spans(nil); !errors.Is(err, model.ErrOutOfRange) {
		t.Errorf("nil grid: err = %v", err)
	}
}

func TestSpans_SumToPeriodCount(t *testing.T) {
	courses := []model.RawCourse{
		course(t, "A", "R1", "T1", "001111000111100000", on(model.Monday, 1, 2, 3), on(model.Wednesday, 5, 6)),
		course(t, "B", "R2", "T2", "110000000000000000", on(model.Monday, 4, 5), on(model.Sunday, 1)),
		course(t, "C", "R3", "T3", "000000000000000011", on(model.Wednesday, 1, 2)),
	}
	const n = 8
	g, err := Build(testPeriods(n), courses)
	if err != nil {
		t.Fatal(err)
	}
	spans, err := Spans(g)
	if err != nil {
		t.Fatalf("Spans: %v", err)
	}

	for day := model.Monday; day <= model.Sunday; day++ {
		col := day.Column()
		sum := 0
		prevKey := ""
		for row := 0; row < n; row++ {
			s := spans[row][col]
			if s.RowSpan == 0 {
				continue
			}
			sum += s.RowSpan
			key := g.Rows[row][col].IdentityKey
			if key != "" && key == prevKey {
				t.Errorf("%s row %d: adjacent start rows share a key", day, row)
			}
			prevKey = key
		}
		if sum != n {
			t.Errorf("%s: spans sum to %d, want %d", day, sum, n)
		}
	}
}
