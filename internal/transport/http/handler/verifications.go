package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-account-api/internal/application/verification"
	"github.com/go-account-api/internal/domain"
	"github.com/go-account-api/internal/pkg/validate"
	"github.com/go-account-api/internal/transport/http/middleware"
)

// VerificationHandler serves the two-phase verification endpoints: request a
// token for a channel, then confirm the token to obtain a secret.
type VerificationHandler struct {
	svc verification.Service
}

func NewVerificationHandler(svc verification.Service) *VerificationHandler {
	return &VerificationHandler{svc: svc}
}

func (h *VerificationHandler) Request(w http.ResponseWriter, r *http.Request) {
	var in verification.RequestInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The same endpoint serves anonymous and authenticated callers; the record
	// remembers which origin it was created with.
	var requester *domain.User
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		requester = &domain.User{UserID: claims.UserID, Role: claims.Role}
	}

	v, err := h.svc.Request(r.Context(), in, requester)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, VerificationEnvelope{Verification: v.VerificationID})
}

// confirmRequest takes the token as a json.Number so clients may send it as
// either a JSON number or a digit string.
type confirmRequest struct {
	Verification string      `json:"verification" validate:"required"`
	Token        json.Number `json:"token" validate:"required,len=6,numeric"`
}

func (h *VerificationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	secret, err := h.svc.Confirm(r.Context(), req.Verification, req.Token.String())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SecretEnvelope{Secret: secret})
}
