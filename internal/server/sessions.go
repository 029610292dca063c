package server

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

type sessionDetail struct {
	*store.Session
	Counts map[gesture.Kind]int `json:"counts"`
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.config.Store.Sessions().List(r.Context())
	if err != nil {
		log.Printf("list sessions: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, err := s.config.Store.Sessions().GetByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		log.Printf("get session %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}

	counts, err := s.config.Store.Events().CountByKind(r.Context(), id)
	if err != nil {
		log.Printf("count events for %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to count events")
		return
	}
	writeJSON(w, http.StatusOK, sessionDetail{Session: sess, Counts: counts})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.config.Store.Sessions().Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		log.Printf("delete session %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.config.Store.Sessions().GetByID(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}

	kind := gesture.Kind(r.URL.Query().Get("kind"))
	events, err := s.config.Store.Events().ListBySession(r.Context(), id, kind)
	if err != nil {
		log.Printf("list events for %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []store.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
