package timetable

import (
	"fmt"

	"coursecal/internal/model"
)

// Span tells a renderer how many rows a cell covers. RowSpan 0 means the
// cell is covered by a merged cell above it and must not be emitted.
type Span struct {
	RowSpan int `json:"row_span"`
}

// ComputeSpan resolves the vertical merge of the cell at row (zero-based)
// in the weekday column. Rows are merged while they share an IdentityKey.
// Empty cells are never merged.
func ComputeSpan(g *model.Grid, day model.Weekday, row int) (Span, error) {
	cur, err := g.Cell(row, day)
	if err != nil {
		return Span{}, err
	}
	if cur.Empty() {
		return Span{RowSpan: 1}, nil
	}

	col := day.Column()
	if row > 0 {
		above := g.Rows[row-1][col]
		if !above.Empty() && above.IdentityKey == cur.IdentityKey {
			return Span{RowSpan: 0}, nil
		}
	}

	n := 1
	for r := row + 1; r < len(g.Rows); r++ {
		next := g.Rows[r][col]
		if next.Empty() || next.IdentityKey != cur.IdentityKey {
			break
		}
		n++
	}
	return Span{RowSpan: n}, nil
}

// Spans resolves every cell of g. The result is indexed [row][weekday-1].
func Spans(g *model.Grid) ([][model.DaysPerWeek]Span, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil grid", model.ErrOutOfRange)
	}
	out := make([][model.DaysPerWeek]Span, len(g.Rows))
	for row := range g.Rows {
		for day := model.Monday; day <= model.Sunday; day++ {
			s, err := ComputeSpan(g, day, row)
			if err != nil {
				return nil, err
			}
			out[row][day.Column()] = s
		}
	}
	return out, nil
}
