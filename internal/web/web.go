package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"coursecal/internal/config"
	"coursecal/internal/dataset"
	appLog "coursecal/internal/log"
	"coursecal/internal/model"
	"coursecal/internal/share"
)

// snapshotTTL bounds how long a decoded dataset is served before the
// source is consulted again.
const snapshotTTL = 5 * time.Minute

var (
	errUnknownSemester = errors.New("unknown semester")
	errBadAnchor       = errors.New("invalid anchor date")
)

// Server provides the HTTP API for timetables, calendar exports and shares.
type Server struct {
	cfg     *config.Config
	fetcher *dataset.Fetcher
	shares  *share.Store
	mux     *http.ServeMux
	now     func() time.Time

	// Decoded datasets per semester ID. Snapshots are never mutated.
	snapMu    sync.RWMutex
	snapshots map[string]*snapshot
}

type snapshot struct {
	ds       *model.Dataset
	loadedAt time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, fetcher *dataset.Fetcher, shares *share.Store) *Server {
	s := &Server{
		cfg:       cfg,
		fetcher:   fetcher,
		shares:    shares,
		mux:       http.NewServeMux(),
		now:       time.Now,
		snapshots: make(map[string]*snapshot),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health and /share/ with
// HTTP Basic Auth. Share links are opened on other devices without
// credentials; their random IDs act as the capability.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || strings.HasPrefix(r.URL.Path, "/share/") {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="coursecal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/semesters", s.handleSemesters)
	s.mux.HandleFunc("GET /api/timetable", s.handleTimetable)
	s.mux.HandleFunc("GET /api/timetable.xlsx", s.handleWorkbook)
	s.mux.HandleFunc("GET /api/calendar.ics", s.handleCalendar)
	s.mux.HandleFunc("POST /api/calendar/share", s.handleShareCreate)
	s.mux.HandleFunc("GET /share/{id}", s.handleShareGet)
	s.mux.HandleFunc("GET /share/{id}/qr.png", s.handleShareQR)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Refresh reloads every configured semester and replaces the cached
// snapshots. A semester that fails keeps its previous snapshot.
func (s *Server) Refresh(ctx context.Context) error {
	var errs []error
	for _, sem := range s.cfg.Semesters {
		if _, err := s.load(ctx, sem); err != nil {
			appLog.Error("dataset refresh failed", err, "semester", sem.ID)
			errs = append(errs, fmt.Errorf("semester %s: %w", sem.ID, err))
		}
	}
	return errors.Join(errs...)
}

// dataset returns the cached snapshot for sem, loading it when missing
// or older than snapshotTTL.
func (s *Server) dataset(ctx context.Context, sem config.SemesterConfig) (*model.Dataset, error) {
	s.snapMu.RLock()
	snap := s.snapshots[sem.ID]
	s.snapMu.RUnlock()
	if snap != nil && s.now().Sub(snap.loadedAt) < snapshotTTL {
		return snap.ds, nil
	}
	return s.load(ctx, sem)
}

func (s *Server) load(ctx context.Context, sem config.SemesterConfig) (*model.Dataset, error) {
	ds, err := s.fetcher.Load(ctx, dataset.Source{ID: sem.ID, Path: sem.Path, URL: sem.URL})
	if err != nil {
		return nil, err
	}

	s.snapMu.Lock()
	s.snapshots[sem.ID] = &snapshot{ds: ds, loadedAt: s.now()}
	s.snapMu.Unlock()
	return ds, nil
}

// semester resolves the ?semester= query parameter.
func (s *Server) semester(r *http.Request) (config.SemesterConfig, error) {
	id := r.URL.Query().Get("semester")
	sem, ok := s.cfg.Semester(id)
	if !ok {
		return config.SemesterConfig{}, fmt.Errorf("%w: %q", errUnknownSemester, id)
	}
	return sem, nil
}

// statusFor maps an error to its HTTP status. Dataset errors are the
// client's data and yield 422; anything unclassified came from the source.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errUnknownSemester), errors.Is(err, share.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadAnchor), errors.Is(err, model.ErrMissingAnchorDate):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrMalformedDataset),
		errors.Is(err, model.ErrInvalidWeekFlags),
		errors.Is(err, model.ErrOutOfRangeReference),
		errors.Is(err, model.ErrSlotConflict),
		errors.Is(err, model.ErrOutOfRange):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		appLog.Error("request failed", err, "path", r.URL.Path, "status", status)
	} else {
		appLog.Warn("request rejected", "path", r.URL.Path, "status", status, "error", err.Error())
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
