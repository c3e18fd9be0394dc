package http

import (
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/log"
	"fintrack/internal/prefs"
)

type prefValue struct {
	Value string `json:"value"`
}

func (s *Server) handleGetPref(w http.ResponseWriter, r *http.Request, owner string) {
	key := r.PathValue("key")
	v, ok, err := s.prefs.Get(owner, key)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "preference not set")
		return
	}
	respondJSON(w, http.StatusOK, prefValue{Value: v})
}

func (s *Server) handleSetPref(w http.ResponseWriter, r *http.Request, owner string) {
	key := r.PathValue("key")
	if key == prefs.KeyPINHash {
		// The PIN hash is only writable through the lock endpoints.
		respondError(w, http.StatusForbidden, "reserved preference key")
		return
	}

	var req prefValue
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.prefs.Set(owner, key, req.Value); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeletePref(w http.ResponseWriter, r *http.Request, owner string) {
	key := r.PathValue("key")
	if err := s.prefs.Delete(owner, key); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pinRequest struct {
	PIN string `json:"pin"`
}

// handleSetPIN stores the lock PIN hash for the current owner. The lock is a
// convenience shield, not an account credential.
func (s *Server) handleSetPIN(w http.ResponseWriter, r *http.Request, owner string) {
	var req pinRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPIN(req.PIN)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := s.prefs.Set(owner, prefs.KeyPINHash, hash); err != nil {
		respondDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "PIN lock enabled", log.FieldOwner, owner)
	w.WriteHeader(http.StatusNoContent)
}

type pinVerifyResponse struct {
	Valid bool `json:"valid"`
}

func (s *Server) handleVerifyPIN(w http.ResponseWriter, r *http.Request, owner string) {
	var req pinRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	stored, ok, err := s.prefs.Get(owner, prefs.KeyPINHash)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "no PIN configured")
		return
	}

	respondJSON(w, http.StatusOK, pinVerifyResponse{Valid: auth.VerifyPIN(req.PIN, stored)})
}

func (s *Server) handleClearPIN(w http.ResponseWriter, r *http.Request, owner string) {
	if err := s.prefs.Delete(owner, prefs.KeyPINHash); err != nil {
		respondDomainError(w, err)
		return
	}
	s.logger.InfoContext(r.Context(), "PIN lock cleared", log.FieldOwner, owner)
	w.WriteHeader(http.StatusNoContent)
}
