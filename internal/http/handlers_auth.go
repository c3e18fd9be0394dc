package http

import (
	"errors"
	"net/http"
	"strings"

	"fintrack/internal/auth"
	"fintrack/internal/log"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Token  string `json:"token,omitempty"`
}

// resolveOwner extracts the request owner. With a JWT manager configured a
// valid bearer token is required; without one everything runs anonymously.
func (s *Server) resolveOwner(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))

	if s.jwt == nil {
		return auth.AnonymousUserID, nil
	}
	if header == "" {
		return "", auth.ErrInvalidToken
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", auth.ErrInvalidToken
	}
	claims, err := s.jwt.ValidateToken(strings.TrimSpace(token))
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if s.users == nil {
		respondError(w, http.StatusNotImplemented, "user accounts are not available on this backend")
		return
	}

	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := auth.Register(r.Context(), s.users, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			respondDomainError(w, err)
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.InfoContext(r.Context(), "User registered", log.FieldOwner, u.ID)
	respondJSON(w, http.StatusCreated, s.authResponseFor(u))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.users == nil {
		respondError(w, http.StatusNotImplemented, "user accounts are not available on this backend")
		return
	}

	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := auth.Login(r.Context(), s.users, req.Email, req.Password)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "User logged in", log.FieldOwner, u.ID)
	respondJSON(w, http.StatusOK, s.authResponseFor(u))
}

func (s *Server) authResponseFor(u auth.User) authResponse {
	resp := authResponse{UserID: u.ID, Email: u.Email}
	if s.jwt != nil {
		if token, err := s.jwt.GenerateToken(u.ID, u.Email); err == nil {
			resp.Token = token
		}
	}
	return resp
}
