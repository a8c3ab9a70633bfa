package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/reseauechanges/annuaire/internal/server/models"
	"github.com/reseauechanges/annuaire/internal/server/normalize"
)

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.opContext(r)
	defer cancel()

	all, err := s.repo.ListAll(ctx)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}

	s.metrics.EntriesListed.Set(float64(len(all)))
	s.writeJSON(w, http.StatusOK, map[string]any{"entries": all})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}

	var raw map[string]any
	if err := s.decodeBody(r, &raw); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx, cancel := s.opContext(r)
	defer cancel()

	created, err := s.repo.Create(ctx, normalize.Entry(raw))
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "missing id")
		return
	}

	var patch models.Patch
	if err := s.decodeBody(r, &patch); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx, cancel := s.opContext(r)
	defer cancel()

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "missing id")
		return
	}

	ctx, cancel := s.opContext(r)
	defer cancel()

	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	if !removed {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "removed": true})
}

// handleOverwrite accepts either {"entries": [...]} or a bare array, the
// two export formats operators have on hand.
func (s *Server) handleOverwrite(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}

	var body json.RawMessage
	if err := s.decodeBody(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var raws []map[string]any
	if err := json.Unmarshal(body, &raws); err != nil {
		var wrapped struct {
			Entries []map[string]any `json:"entries"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil || wrapped.Entries == nil {
			s.writeError(w, http.StatusBadRequest, "expected an entries array")
			return
		}
		raws = wrapped.Entries
	}

	ctx, cancel := s.opContext(r)
	defer cancel()

	count, err := s.repo.OverwriteAll(ctx, raws)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "replaced": count})
}

func (s *Server) decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	return dec.Decode(v)
}
