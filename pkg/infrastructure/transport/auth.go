package transport

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"woodstore/pkg/domain/model"
)

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type signUpResponse struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Verified bool      `json:"verified"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := h.services.Auth.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, signUpResponse{
		ID:       user.ID,
		Email:    user.Email,
		Verified: user.Status == model.Active,
	})
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	session, err := h.services.Auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	h.setSessionCookie(w, session)
	writeJSON(w, http.StatusOK, signInResponse{Token: session.Token, ExpiresAt: session.ExpiresAt})
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Auth.SignOut(r.Context(), sessionToken(r)); err != nil {
		writeError(w, err)
		return
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identity(r)
	if err == nil && identity == nil {
		err = model.ErrAuthRequired
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Auth.Verify(r.Context(), r.URL.Query().Get("token")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}
