package dataset

import (
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"coursecal/internal/model"
)

func loadFixture(t *testing.T) []byte {
	t.Helper()
	body, err := os.ReadFile("testdata/course_table.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return body
}

func TestDecode_Envelope(t *testing.T) {
	ds, err := DecodeBytes(loadFixture(t))
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}

	if len(ds.Periods) != 4 {
		t.Fatalf("periods = %d, want 4", len(ds.Periods))
	}
	p2 := ds.Periods[1]
	if p2.Index != 2 || p2.Start.String() != "08:50" || p2.End.String() != "09:35" {
		t.Errorf("period 2 = %+v", p2)
	}
	if ds.Periods[3].Start.String() != "10:40" {
		t.Errorf("object-row period 4 = %+v", ds.Periods[3])
	}

	if len(ds.Courses) != 2 {
		t.Fatalf("courses = %d, want 2", len(ds.Courses))
	}
	alg := ds.Courses[0]
	if alg.Code() != "CS2001" || alg.Weeks.String() != "001111000000000000" {
		t.Errorf("algorithms = %+v", alg)
	}

	la := ds.Courses[1]
	wantSessions := []model.Session{
		{Weekday: model.Monday, Periods: []int{4}},
		{Weekday: model.Wednesday, Periods: []int{3, 4}},
	}
	if !reflect.DeepEqual(la.Sessions, wantSessions) {
		t.Errorf("sessions = %+v, want %+v", la.Sessions, wantSessions)
	}
}

func TestDecode_BareObject(t *testing.T) {
	body := `{"periods": [["08:00-08:45"]], "courses": []}`
	ds, err := Decode(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(ds.Periods) != 1 || len(ds.Courses) != 0 {
		t.Errorf("unexpected dataset: %+v", ds)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"not json", `<html>`, model.ErrMalformedDataset},
		{"missing periods", `{"courses": []}`, model.ErrMalformedDataset},
		{"missing courses", `{"periods": []}`, model.ErrMalformedDataset},
		{"backend failure", `{"isSuccess": false, "message": "Session expired"}`, model.ErrMalformedDataset},
		{"bad period label", `{"periods": [["08:00"]], "courses": []}`, model.ErrMalformedDataset},
		{"missing label position", `{"periods": [["08:00-08:45"], ["08:50-09:35"]], "courses": []}`, model.ErrMalformedDataset},
		{"short weeks", `{"periods": [["08:00-08:45"]], "courses": [
			{"name": "A", "weeks": "0011", "times": {"1": "1"}}]}`, model.ErrInvalidWeekFlags},
		{"bad weekday", `{"periods": [["08:00-08:45"]], "courses": [
			{"name": "A", "weeks": "001111000000000000", "times": {"8": "1"}}]}`, model.ErrOutOfRangeReference},
		{"bad weekday key", `{"periods": [["08:00-08:45"]], "courses": [
			{"name": "A", "weeks": "001111000000000000", "times": {"mon": "1"}}]}`, model.ErrMalformedDataset},
		{"period out of range", `{"periods": [["08:00-08:45"]], "courses": [
			{"name": "A", "weeks": "001111000000000000", "times": {"1": "1,2"}}]}`, model.ErrOutOfRangeReference},
		{"empty period list", `{"periods": [["08:00-08:45"]], "courses": [
			{"name": "A", "weeks": "001111000000000000", "times": {"1": " , "}}]}`, model.ErrMalformedDataset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBytes([]byte(tt.body))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPeriodList_NumberAndDuplicates(t *testing.T) {
	got, err := periodList([]byte(`3`))
	if err != nil || !reflect.DeepEqual(got, []int{3}) {
		t.Fatalf("number: %v %v", got, err)
	}
	got, err = periodList([]byte(`"2,1,2"`))
	if err != nil || !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("duplicates: %v %v", got, err)
	}
}
