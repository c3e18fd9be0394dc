package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/view"
)

type categoryRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type categoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, owner string) {
	us, err := s.sessions.get(r.Context(), owner)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	cats := us.ctrl.State().Categories
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryResponse{ID: c.ID, Name: c.Name, Kind: string(c.Kind)})
	}
	respondJSON(w, http.StatusOK, out)
}

// handleCategoryOptions answers the scoped choice list for the entry form.
// The optional current param keeps an out-of-band stored value visible.
func (s *Server) handleCategoryOptions(w http.ResponseWriter, r *http.Request, owner string) {
	us, err := s.sessions.get(r.Context(), owner)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	q := r.URL.Query()
	t := core.NormalizeType(q.Get("type"))
	current := strings.TrimSpace(q.Get("current"))

	opts := view.CategoryOptions(us.ctrl.State().Categories, t, current)
	respondJSON(w, http.StatusOK, opts)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, owner string) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	us, err := s.sessions.get(r.Context(), owner)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	cat, err := us.ctrl.AddCategory(r.Context(), sanitizeInput(req.Name), req.Kind)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Category created",
		log.FieldOwner, owner, log.FieldCategory, cat.Name, log.FieldKind, string(cat.Kind))
	respondJSON(w, http.StatusCreated, categoryResponse{ID: cat.ID, Name: cat.Name, Kind: string(cat.Kind)})
}

func (s *Server) handleChangeCategoryKind(w http.ResponseWriter, r *http.Request, owner string) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing category id")
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	us, err := s.sessions.get(r.Context(), owner)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err := us.ctrl.ChangeCategoryKind(r.Context(), id, req.Kind); err != nil {
		respondDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Category kind changed",
		log.FieldOwner, owner, log.FieldRecordID, id, log.FieldKind, req.Kind)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, owner string) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing category id")
		return
	}

	us, err := s.sessions.get(r.Context(), owner)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err := us.ctrl.DeleteCategory(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Category deleted",
		log.FieldOwner, owner, log.FieldRecordID, id, log.FieldOperation, log.OpDelete)
	w.WriteHeader(http.StatusNoContent)
}
