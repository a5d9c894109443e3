package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-account-api/internal/application/session"
	"github.com/go-account-api/internal/domain"
	"github.com/go-account-api/internal/pkg/validate"
	"github.com/go-account-api/internal/transport/http/middleware"
)

// SessionHandler handles login, logout, refresh and current-session lookup.
// On login it both returns the access token in the body and sets it as an
// HttpOnly cookie, so browser and API clients share one endpoint.
type SessionHandler struct {
	svc        session.Service
	cookieName string
	cookieTTL  time.Duration
	secure     bool
}

func NewSessionHandler(svc session.Service, cookieName string, cookieTTL time.Duration, secure bool) *SessionHandler {
	return &SessionHandler{svc: svc, cookieName: cookieName, cookieTTL: cookieTTL, secure: secure}
}

func (h *SessionHandler) setAuthCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.setAuthCookie(w, result.AccessToken, h.cookieTTL)
	writeJSON(w, http.StatusOK, AuthEnvelope{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		Session:      result.Session,
		User:         toPrivateUser(result.User),
	})
}

func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.setAuthCookie(w, result.AccessToken, h.cookieTTL)
	writeJSON(w, http.StatusOK, AuthEnvelope{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}

func (h *SessionHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sess, err := h.svc.Get(r.Context(), claims.SessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var u *PrivateUser
	if sess.User != nil {
		u = toPrivateUser(sess.User)
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{Session: sess, User: u})
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Logout(r.Context(), claims.SessionID); err != nil {
		writeServiceError(w, err)
		return
	}
	// Expire the auth cookie as well.
	h.setAuthCookie(w, "", -time.Second)
	w.WriteHeader(http.StatusNoContent)
}
