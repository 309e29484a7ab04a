package timetable

import (
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"coursecal/internal/model"
)

func TestWorkbook_MergesSpans(t *testing.T) {
	courses := []model.RawCourse{
		course(t, "Algorithms", "B101", "Li", "001111000000000000", on(model.Monday, 1, 2)),
		course(t, "Chemistry", "E1", "Sun", "001111000111100000", on(model.Tuesday, 3)),
	}
	g, err := Build(testPeriods(3), courses)
	if err != nil {
		t.Fatal(err)
	}

	buf, err := Workbook(g, "2024 Fall")
	if err != nil {
		t.Fatalf("Workbook: %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	title, _ := f.GetCellValue(SheetName, "A1")
	if title != "2024 Fall" {
		t.Errorf("title = %q", title)
	}
	if head, _ := f.GetCellValue(SheetName, "B2"); head != "Monday" {
		t.Errorf("B2 = %q", head)
	}

	merges, err := f.GetMergeCells(SheetName)
	if err != nil {
		t.Fatalf("GetMergeCells: %v", err)
	}
	found := false
	for _, m := range merges {
		if m.GetStartAxis() == "B3" && m.GetEndAxis() == "B4" {
			found = true
		}
	}
	if !found {
		t.Errorf("Monday periods 1-2 not merged; merges: %v", merges)
	}

	alg, _ := f.GetCellValue(SheetName, "B3")
	if !strings.Contains(alg, "Algorithms") || !strings.Contains(alg, "weeks 3-6") {
		t.Errorf("B3 = %q", alg)
	}
	chem, _ := f.GetCellValue(SheetName, "C5")
	if !strings.Contains(chem, "weeks 3-6") || !strings.Contains(chem, "weeks 10-13") {
		t.Errorf("C5 = %q", chem)
	}
}

func TestCellText(t *testing.T) {
	if CellText(model.GridCell{}) != "" {
		t.Fatal("empty cell should render empty")
	}
	c := model.GridCell{Segments: []model.WeekSegment{{MinWeek: 7, MaxWeek: 7, Course: "Lab"}}}
	if got := CellText(c); got != "Lab\nweek 7" {
		t.Errorf("CellText = %q", got)
	}
}
