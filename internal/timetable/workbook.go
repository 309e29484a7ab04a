package timetable

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"coursecal/internal/model"
)

// SheetName is the worksheet written by Workbook.
const SheetName = "Timetable"

// CellText renders the content of a grid cell the way the web view shows
// it: one block per segment with course, weeks, room and teachers.
func CellText(c model.GridCell) string {
	if c.Empty() {
		return ""
	}
	blocks := make([]string, 0, len(c.Segments))
	for _, s := range c.Segments {
		lines := []string{s.Course, weekLabel(s)}
		if s.Classroom != "" {
			lines = append(lines, s.Classroom)
		}
		if s.Teachers != "" {
			lines = append(lines, s.Teachers)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

func weekLabel(s model.WeekSegment) string {
	if s.MinWeek == s.MaxWeek {
		return fmt.Sprintf("week %d", s.MinWeek)
	}
	return fmt.Sprintf("weeks %d-%d", s.MinWeek, s.MaxWeek)
}

// Workbook renders g as a single-sheet .xlsx. Column A holds the period
// number and time range, columns B..H hold Monday..Sunday. Cells merged by
// ComputeSpan become merged ranges in the sheet.
func Workbook(g *model.Grid, title string) (*bytes.Buffer, error) {
	spans, err := Spans(g)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}
	bodyStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, err
	}

	lastCol := colName(model.DaysPerWeek)
	_ = f.SetColWidth(SheetName, "A", "A", 14)
	_ = f.SetColWidth(SheetName, "B", lastCol, 22)

	// Row 1: title, row 2: weekday header, data from row 3.
	if err := f.SetCellValue(SheetName, "A1", title); err != nil {
		return nil, err
	}
	if err := f.MergeCell(SheetName, "A1", cell(lastCol, 1)); err != nil {
		return nil, err
	}
	_ = f.SetCellValue(SheetName, "A2", "Time")
	for day := model.Monday; day <= model.Sunday; day++ {
		_ = f.SetCellValue(SheetName, cell(colName(day.Column()+1), 2), day.String())
	}
	_ = f.SetCellStyle(SheetName, "A1", cell(lastCol, 2), headerStyle)

	const firstRow = 3
	for r, p := range g.Periods {
		row := firstRow + r
		_ = f.SetCellValue(SheetName, cell("A", row), fmt.Sprintf("No.%d\n%s-%s", p.Index, p.Start, p.End))
		for day := model.Monday; day <= model.Sunday; day++ {
			span := spans[r][day.Column()].RowSpan
			if span == 0 {
				continue
			}
			col := colName(day.Column() + 1)
			if err := f.SetCellValue(SheetName, cell(col, row), CellText(g.Rows[r][day.Column()])); err != nil {
				return nil, err
			}
			if span > 1 {
				if err := f.MergeCell(SheetName, cell(col, row), cell(col, row+span-1)); err != nil {
					return nil, err
				}
			}
		}
	}
	if len(g.Periods) > 0 {
		_ = f.SetCellStyle(SheetName, cell("A", firstRow), cell(lastCol, firstRow+len(g.Periods)-1), bodyStyle)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
