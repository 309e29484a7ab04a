package web

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"coursecal/internal/config"
	"coursecal/internal/ics"
	appLog "coursecal/internal/log"
	"coursecal/internal/model"
	"coursecal/internal/share"
	"coursecal/internal/timetable"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// semesterDTO is the JSON view of a configured semester.
type semesterDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Source       string `json:"source"`
	AnchorMonday string `json:"anchor_monday,omitempty"`
}

type periodDTO struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type segmentDTO struct {
	MinWeek    int    `json:"min_week"`
	MaxWeek    int    `json:"max_week"`
	Course     string `json:"course"`
	CourseCode string `json:"course_code,omitempty"`
	Classroom  string `json:"classroom"`
	Teachers   string `json:"teachers"`
}

type cellDTO struct {
	Weekday    string       `json:"weekday"`
	CourseName string       `json:"course_name,omitempty"`
	RowSpan    int          `json:"row_span"`
	Segments   []segmentDTO `json:"segments"`
}

// timetableResponse is the JSON response shape for /api/timetable.
// Rows[i] belongs to Periods[i]; cells with row_span 0 are covered by the
// cell above.
type timetableResponse struct {
	Semester string      `json:"semester"`
	Name     string      `json:"name"`
	Periods  []periodDTO `json:"periods"`
	Rows     [][]cellDTO `json:"rows"`
}

// shareResponse is returned when a calendar share is created.
type shareResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	QRURL     string    `json:"qr_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleSemesters(w http.ResponseWriter, _ *http.Request) {
	out := make([]semesterDTO, 0, len(s.cfg.Semesters))
	for _, sem := range s.cfg.Semesters {
		src := "url"
		if sem.Path != "" {
			src = "path"
		}
		out = append(out, semesterDTO{
			ID:           sem.ID,
			Name:         sem.Name,
			Source:       src,
			AnchorMonday: sem.AnchorMonday,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// grid loads the requested semester and builds its timetable grid.
func (s *Server) grid(r *http.Request) (config.SemesterConfig, *model.Grid, error) {
	sem, err := s.semester(r)
	if err != nil {
		return sem, nil, err
	}
	ds, err := s.dataset(r.Context(), sem)
	if err != nil {
		return sem, nil, err
	}
	g, err := timetable.Build(ds.Periods, ds.Courses)
	if err != nil {
		return sem, nil, err
	}
	return sem, g, nil
}

// handleTimetable returns the merged grid of one semester.
//
// GET /api/timetable?semester=<id>
func (s *Server) handleTimetable(w http.ResponseWriter, r *http.Request) {
	sem, g, err := s.grid(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	spans, err := timetable.Spans(g)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := timetableResponse{
		Semester: sem.ID,
		Name:     sem.Name,
		Periods:  make([]periodDTO, 0, len(g.Periods)),
		Rows:     make([][]cellDTO, 0, len(g.Rows)),
	}
	for _, p := range g.Periods {
		resp.Periods = append(resp.Periods, periodDTO{
			Index: p.Index,
			Label: p.Label,
			Start: p.Start.String(),
			End:   p.End.String(),
		})
	}
	for i, row := range g.Rows {
		cells := make([]cellDTO, 0, model.DaysPerWeek)
		for col, c := range row {
			segs := make([]segmentDTO, 0, len(c.Segments))
			for _, seg := range c.Segments {
				segs = append(segs, segmentDTO(seg))
			}
			cells = append(cells, cellDTO{
				Weekday:    model.Weekday(col + 1).String(),
				CourseName: c.CourseName,
				RowSpan:    spans[i][col].RowSpan,
				Segments:   segs,
			})
		}
		resp.Rows = append(resp.Rows, cells)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleWorkbook serves the grid as an .xlsx download.
//
// GET /api/timetable.xlsx?semester=<id>
func (s *Server) handleWorkbook(w http.ResponseWriter, r *http.Request) {
	sem, g, err := s.grid(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	buf, err := timetable.Workbook(g, sem.Name)
	if err != nil {
		appLog.Error("workbook render failed", err, "semester", sem.ID)
		writeError(w, http.StatusInternalServerError, "failed to render workbook")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sem.ID+".xlsx"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// calendarDocument expands the requested semester into a serialized
// calendar.
//
// Query parameters:
//   - semester: semester ID, default the first configured one
//   - anchor:   week-1 date (YYYY-MM-DD), default the semester's anchor_monday
//   - name:     X-WR-CALNAME, default calendar_name from config
func (s *Server) calendarDocument(r *http.Request) ([]byte, int, error) {
	sem, err := s.semester(r)
	if err != nil {
		return nil, 0, err
	}
	q := r.URL.Query()

	anchor, err := resolveAnchor(q.Get("anchor"), sem)
	if err != nil {
		return nil, 0, err
	}
	name := q.Get("name")
	if name == "" {
		name = s.cfg.CalendarName
	}

	ds, err := s.dataset(r.Context(), sem)
	if err != nil {
		return nil, 0, err
	}
	events, err := ics.Expand(anchor, ds.Periods, ds.Courses)
	if err != nil {
		return nil, 0, err
	}

	var buf bytes.Buffer
	if err := ics.WriteTo(&buf, events, name, s.cfg.Timezone); err != nil {
		return nil, 0, err
	}
	appLog.Info("calendar exported",
		"semester", sem.ID,
		"anchor", anchor.Format(config.AnchorLayout),
		"event_count", len(events),
		"bytes", buf.Len(),
	)
	return buf.Bytes(), len(events), nil
}

// resolveAnchor prefers the query value over the configured anchor. A
// missing anchor is reported as model.ErrMissingAnchorDate.
func resolveAnchor(raw string, sem config.SemesterConfig) (time.Time, error) {
	if raw != "" {
		t, err := time.ParseInLocation(config.AnchorLayout, raw, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w %q: want YYYY-MM-DD", errBadAnchor, raw)
		}
		return t, nil
	}
	t, ok, err := sem.Anchor()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", errBadAnchor, err)
	}
	if !ok {
		return time.Time{}, fmt.Errorf("%w: pass ?anchor=YYYY-MM-DD or set anchor_monday", model.ErrMissingAnchorDate)
	}
	return t, nil
}

// handleCalendar serves the semester's calendar as an .ics download.
//
// GET /api/calendar.ics?semester=&anchor=&name=
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	body, _, err := s.calendarDocument(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeCalendar(w, body)
}

func writeCalendar(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", ics.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+ics.Filename)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleShareCreate stores the calendar under a short-lived ID so it can be
// opened on another device, e.g. by scanning the QR code.
//
// POST /api/calendar/share?semester=&anchor=&name=
func (s *Server) handleShareCreate(w http.ResponseWriter, r *http.Request) {
	body, count, err := s.calendarDocument(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	e := s.shares.Put(body, ics.ContentType, ics.Filename)
	appLog.Info("calendar shared", "id", e.ID, "event_count", count, "expires_at", e.ExpiresAt.Format(time.RFC3339))

	shareURL := s.shareURL(e.ID)
	writeJSON(w, http.StatusCreated, shareResponse{
		ID:        e.ID,
		URL:       shareURL,
		QRURL:     shareURL + "/qr.png",
		ExpiresAt: e.ExpiresAt,
	})
}

// handleShareGet serves a shared calendar until it expires.
//
// GET /share/{id}
func (s *Server) handleShareGet(w http.ResponseWriter, r *http.Request) {
	e, err := s.shares.Get(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeCalendar(w, e.Body)
}

// handleShareQR renders the share URL as a PNG QR code.
//
// GET /share/{id}/qr.png?size=256
func (s *Server) handleShareQR(w http.ResponseWriter, r *http.Request) {
	e, err := s.shares.Get(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	size := parseIntDefault(r.URL.Query().Get("size"), share.DefaultQRSize)
	if size < 64 || size > 1024 {
		size = share.DefaultQRSize
	}

	png, err := share.QRCode(s.shareURL(e.ID), size)
	if err != nil {
		appLog.Error("qr render failed", err, "id", e.ID)
		writeError(w, http.StatusInternalServerError, "failed to render QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) shareURL(id string) string {
	base, err := url.JoinPath(s.cfg.PublicURL, "share", id)
	if err != nil {
		return s.cfg.PublicURL + "/share/" + id
	}
	return base
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
