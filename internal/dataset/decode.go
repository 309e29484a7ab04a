package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"coursecal/internal/model"
)

// rawDataset mirrors the JSON shape served by the course-table backend.
// Pointer fields distinguish a missing key from an empty value.
type rawDataset struct {
	Periods *[]json.RawMessage `json:"periods"`
	Courses *[]rawCourse       `json:"courses"`
}

type rawCourse struct {
	Name      string                     `json:"name"`
	Classroom string                     `json:"classroom"`
	Teachers  string                     `json:"teachers"`
	Weeks     string                     `json:"weeks"`
	Times     map[string]json.RawMessage `json:"times"`
}

// envelope is the {"isSuccess": ..., "message": ...} wrapper the backend
// puts around every response.
type envelope struct {
	IsSuccess *bool           `json:"isSuccess"`
	Message   json.RawMessage `json:"message"`
}

// Decode reads one semester dataset from r. Both the bare
// {"periods", "courses"} object and the backend's response envelope are
// accepted. The result is validated before it is returned.
func Decode(r io.Reader) (*model.Dataset, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", model.ErrMalformedDataset, err)
	}
	return DecodeBytes(body)
}

// DecodeBytes is Decode for an in-memory body.
func DecodeBytes(body []byte) (*model.Dataset, error) {
	body, err := unwrapEnvelope(bytes.TrimSpace(body))
	if err != nil {
		return nil, err
	}

	var raw rawDataset
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedDataset, err)
	}
	if raw.Periods == nil {
		return nil, fmt.Errorf("%w: missing \"periods\"", model.ErrMalformedDataset)
	}
	if raw.Courses == nil {
		return nil, fmt.Errorf("%w: missing \"courses\"", model.ErrMalformedDataset)
	}

	periods, err := decodePeriods(*raw.Periods)
	if err != nil {
		return nil, err
	}

	courses := make([]model.RawCourse, 0, len(*raw.Courses))
	for i, rc := range *raw.Courses {
		c, err := decodeCourse(rc)
		if err != nil {
			return nil, fmt.Errorf("course %d (%q): %w", i+1, rc.Name, err)
		}
		courses = append(courses, c)
	}

	ds := &model.Dataset{Periods: periods, Courses: courses}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

func unwrapEnvelope(body []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.IsSuccess == nil {
		// Not an envelope; let the caller report syntax errors.
		return body, nil
	}
	if !*env.IsSuccess {
		var msg string
		_ = json.Unmarshal(env.Message, &msg)
		if msg == "" {
			msg = string(env.Message)
		}
		return nil, fmt.Errorf("%w: backend reported failure: %s", model.ErrMalformedDataset, msg)
	}
	if len(env.Message) == 0 {
		return nil, fmt.Errorf("%w: empty envelope message", model.ErrMalformedDataset)
	}
	return env.Message, nil
}

// decodePeriods applies the periods[i-1][i-1] convention: row i carries the
// label of period i at position i-1. Rows may be arrays or index-keyed objects.
func decodePeriods(rows []json.RawMessage) ([]model.Period, error) {
	periods := make([]model.Period, 0, len(rows))
	for i, row := range rows {
		idx := i + 1
		label, err := periodLabel(row, i)
		if err != nil {
			return nil, fmt.Errorf("%w: period %d: %v", model.ErrMalformedDataset, idx, err)
		}
		p, err := ParsePeriod(idx, label)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, nil
}

func periodLabel(row json.RawMessage, pos int) (string, error) {
	var list []*string
	if err := json.Unmarshal(row, &list); err == nil {
		if pos >= len(list) || list[pos] == nil {
			return "", fmt.Errorf("no label at position %d", pos)
		}
		return *list[pos], nil
	}
	var obj map[string]string
	if err := json.Unmarshal(row, &obj); err == nil {
		label, ok := obj[strconv.Itoa(pos)]
		if !ok {
			return "", fmt.Errorf("no label at key %d", pos)
		}
		return label, nil
	}
	return "", errors.New("row is neither a list nor an object")
}

// ParsePeriod parses a "HH:MM-HH:MM" label into a Period.
func ParsePeriod(index int, label string) (model.Period, error) {
	from, to, ok := strings.Cut(label, "-")
	if !ok {
		return model.Period{}, fmt.Errorf("%w: period %d label %q: want HH:MM-HH:MM", model.ErrMalformedDataset, index, label)
	}
	start, err := model.ParseClock(from)
	if err != nil {
		return model.Period{}, fmt.Errorf("%w: period %d: %v", model.ErrMalformedDataset, index, err)
	}
	end, err := model.ParseClock(to)
	if err != nil {
		return model.Period{}, fmt.Errorf("%w: period %d: %v", model.ErrMalformedDataset, index, err)
	}
	return model.Period{Index: index, Label: strings.TrimSpace(label), Start: start, End: end}, nil
}

func decodeCourse(rc rawCourse) (model.RawCourse, error) {
	weeks, err := model.ParseWeekFlags(rc.Weeks)
	if err != nil {
		return model.RawCourse{}, err
	}

	sessions := make([]model.Session, 0, len(rc.Times))
	for key, val := range rc.Times {
		day, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return model.RawCourse{}, fmt.Errorf("%w: weekday key %q", model.ErrMalformedDataset, key)
		}
		wd := model.Weekday(day)
		if !wd.Valid() {
			return model.RawCourse{}, fmt.Errorf("%w: weekday %d", model.ErrOutOfRangeReference, day)
		}
		list, err := periodList(val)
		if err != nil {
			return model.RawCourse{}, fmt.Errorf("%w: weekday %d: %v", model.ErrMalformedDataset, day, err)
		}
		sessions = append(sessions, model.Session{Weekday: wd, Periods: list})
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Weekday < sessions[j].Weekday })

	return model.RawCourse{
		Name:      rc.Name,
		Classroom: rc.Classroom,
		Teachers:  rc.Teachers,
		Weeks:     weeks,
		Sessions:  sessions,
	}, nil
}

// periodList accepts "1,2,3" or a bare number and returns the ascending,
// de-duplicated period indices.
func periodList(val json.RawMessage) ([]int, error) {
	var text string
	if err := json.Unmarshal(val, &text); err != nil {
		var n int
		if err := json.Unmarshal(val, &n); err != nil {
			return nil, fmt.Errorf("periods %s: want a string like \"1,2\"", string(val))
		}
		return []int{n}, nil
	}

	seen := make(map[int]bool)
	out := make([]int, 0, 4)
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("period %q: %v", part, err)
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, errors.New("empty period list")
	}
	sort.Ints(out)
	return out, nil
}
