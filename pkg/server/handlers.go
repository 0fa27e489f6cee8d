package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gridpulse/gridpulse/pkg/coordinator"
	"github.com/gridpulse/gridpulse/pkg/log"
	"github.com/gridpulse/gridpulse/pkg/sources"
	"github.com/gridpulse/gridpulse/pkg/types"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

type snapshotResponse struct {
	Updated  time.Time       `json:"updated"`
	Snapshot *types.Snapshot `json:"snapshot"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, updated := s.coordinator.Snapshot()
	if snap == nil {
		writeJSONError(w, "no snapshot available yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, snapshotResponse{Updated: updated, Snapshot: snap})
}

type valueResponse struct {
	Path    string    `json:"path"`
	Value   any       `json:"value"`
	Updated time.Time `json:"updated"`
}

func (s *Server) handleValue(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSONError(w, "path is required", http.StatusBadRequest)
		return
	}

	snap, updated := s.coordinator.Snapshot()
	if snap == nil {
		writeJSONError(w, "no snapshot available yet", http.StatusServiceUnavailable)
		return
	}

	value, err := snap.Lookup(path)
	switch {
	case errors.Is(err, types.ErrUnknownPath):
		writeJSONError(w, "unknown path", http.StatusNotFound)
		return
	case errors.Is(err, types.ErrUnavailable):
		writeJSONError(w, "value unavailable", http.StatusServiceUnavailable)
		return
	case err != nil:
		log.Ctx(r.Context()).ErrorContext(r.Context(), "lookup failed",
			slog.String("path", path),
			slog.Any("error", err),
		)
		writeJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, valueResponse{Path: path, Value: value, Updated: updated})
}

type categoryStatus struct {
	Category        types.Category `json:"category"`
	RefreshInterval string         `json:"refresh_interval"`
	LastRefreshed   *time.Time     `json:"last_refreshed,omitempty"`
}

type categoriesResponse struct {
	Categories []categoryStatus `json:"categories"`
	Paths      []string         `json:"paths"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	status := s.coordinator.ScheduleStatus()
	out := make([]categoryStatus, 0, len(types.AllCategories))
	for _, cat := range types.AllCategories {
		cs := categoryStatus{
			Category:        cat,
			RefreshInterval: coordinator.Interval(cat).String(),
		}
		if last, ok := status[cat]; ok {
			cs.LastRefreshed = &last
		}
		out = append(out, cs)
	}
	writeJSON(w, categoriesResponse{Categories: out, Paths: types.Paths()})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.coordinator.Refresh(ctx, time.Now().UTC()); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "forced refresh failed", slog.Any("error", err))
		var authErr *sources.InvalidAuthError
		if errors.As(err, &authErr) {
			writeJSONError(w, "upstream rejected credentials", http.StatusBadGateway)
			return
		}
		writeJSONError(w, "refresh failed", http.StatusInternalServerError)
		return
	}

	_, updated := s.coordinator.Snapshot()
	writeJSON(w, struct {
		Updated time.Time `json:"updated"`
	}{Updated: updated})
}
