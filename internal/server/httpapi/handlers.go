package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/dtodo/internal/common"
	"github.com/dmitrijs2005/dtodo/internal/server/models"
	"github.com/dmitrijs2005/dtodo/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type identityRequest struct {
	IdentityKey    string `json:"identity_key"`
	ChallengeToken string `json:"challenge_token,omitempty"`
	Signature      string `json:"signature,omitempty"`
}

type userResponse struct {
	UserID       int64     `json:"user_id"`
	IdentityKey  string    `json:"identity_key"`
	CreatedAt    time.Time `json:"created_at"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type addTaskRequest struct {
	IdentityKey string `json:"identity_key,omitempty"`
	Text        string `json:"text"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(dst)
}

// writeServiceError maps service errors onto HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidIdentity):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrRefreshTokenExpired):
		writeError(w, http.StatusUnauthorized, "refresh token expired")
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrPersistenceUnavailable):
		s.logger.Error(r.Context(), "storage unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	case errors.Is(err, common.ErrExportDisabled):
		writeError(w, http.StatusPreconditionFailed, err.Error())
	default:
		s.logger.Error(r.Context(), "internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// scopedKey resolves the identity a task request acts for. An explicit key
// must match the bearer token.
func (s *Server) scopedKey(w http.ResponseWriter, r *http.Request, requested string) (string, bool) {
	tokenKey := identityFromContext(r.Context())
	if requested == "" {
		return tokenKey, true
	}

	key, err := s.users.Scheme().Normalize(requested)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	if key != tokenKey {
		writeError(w, http.StatusForbidden, "identity does not match access token")
		return "", false
	}
	return key, true
}

func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	var in identityRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ch, err := s.users.Challenge(r.Context(), in.IdentityKey)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": ch.Token, "message": ch.Message})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in identityRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var proof *services.WalletProof
	if in.ChallengeToken != "" || in.Signature != "" {
		proof = &services.WalletProof{ChallengeToken: in.ChallengeToken, Signature: in.Signature}
	}

	user, err := s.users.Register(r.Context(), in.IdentityKey, proof)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	tokens, err := s.users.IssueTokens(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		UserID:       user.ID,
		IdentityKey:  user.IdentityKey,
		CreatedAt:    user.CreatedAt,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeJSON(w, r, &in); err != nil || in.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	tokens, err := s.users.RefreshToken(r.Context(), in.RefreshToken)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenPairResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	key, ok := s.scopedKey(w, r, r.URL.Query().Get("identity_key"))
	if !ok {
		return
	}

	tasks, err := s.tasks.List(r.Context(), key)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var in addTaskRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	key, ok := s.scopedKey(w, r, in.IdentityKey)
	if !ok {
		return
	}

	task, err := s.tasks.Add(r.Context(), key, in.Text)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	key, ok := s.scopedKey(w, r, r.URL.Query().Get("identity_key"))
	if !ok {
		return
	}

	if err := s.tasks.Complete(r.Context(), key, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	key, ok := s.scopedKey(w, r, r.URL.Query().Get("identity_key"))
	if !ok {
		return
	}

	exp, err := s.exports.Export(r.Context(), key)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"url":        exp.URL,
		"object_key": exp.ObjectKey,
		"count":      exp.Count,
		"expires_at": exp.ExpiresAt,
	})
}
