package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/session"
	"fintrack/internal/view"
)

type transactionRequest struct {
	Date        string `json:"date"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

type filtersRequest struct {
	Month      string `json:"month"`
	Type       string `json:"type"`
	SearchText string `json:"q"`
}

// handleListTransactions answers with the projected view model. Query params
// narrow the result for this request only; the session criteria drive the
// live stream and apply when no params are given.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, owner string) {
	us, err := s.sessions.get(r.Context(), owner)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	st := us.ctrl.State()
	if criteria, ok := parseCriteria(r); ok {
		st.Criteria = criteria
	}
	model := view.Project(st)

	key := viewCacheKey(owner, st.Criteria)
	if model.FeedError == "" {
		s.viewCache.Set(key, model)
	} else if cached, ok := s.viewCache.Get(key); ok {
		// Serve the last good snapshot when the live feed is broken, keeping
		// the error visible so the client knows the data may be stale.
		cached.FeedError = model.FeedError
		respondJSON(w, http.StatusOK, cached)
		return
	}

	respondJSON(w, http.StatusOK, model)
}

func viewCacheKey(owner string, c core.FilterCriteria) string {
	return owner + "|" + c.Month + "|" + c.Type + "|" + c.SearchText
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, owner string) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	us, err := s.sessions.get(r.Context(), owner)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err := us.ctrl.SubmitForm(r.Context(), "", formInput(req)); err != nil {
		respondDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Transaction created",
		log.FieldOwner, owner, log.FieldOperation, log.OpCreate)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, owner string) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing transaction id")
		return
	}

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	us, err := s.sessions.get(r.Context(), owner)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	us.ctrl.StartEdit(id)
	if err := us.ctrl.SubmitForm(r.Context(), id, formInput(req)); err != nil {
		respondDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Transaction updated",
		log.FieldOwner, owner, log.FieldRecordID, id, log.FieldOperation, log.OpUpdate)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, owner string) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing transaction id")
		return
	}

	us, err := s.sessions.get(r.Context(), owner)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err := us.ctrl.DeleteTransaction(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Transaction deleted",
		log.FieldOwner, owner, log.FieldRecordID, id, log.FieldOperation, log.OpDelete)
	w.WriteHeader(http.StatusNoContent)
}

// handleSetFilters replaces the session filter criteria, which also pushes a
// fresh model to every stream watcher.
func (s *Server) handleSetFilters(w http.ResponseWriter, r *http.Request, owner string) {
	var req filtersRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	us, err := s.sessions.get(r.Context(), owner)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	us.ctrl.SetCriteria(core.FilterCriteria{
		Month:      sanitizeInput(req.Month),
		Type:       sanitizeInput(req.Type),
		SearchText: req.SearchText,
	})
	w.WriteHeader(http.StatusNoContent)
}

func formInput(req transactionRequest) session.FormInput {
	return session.FormInput{
		Date:        sanitizeInput(req.Date),
		Type:        sanitizeInput(req.Type),
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
		Amount:      sanitizeInput(req.Amount),
	}
}
