package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-account-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuthEnvelope wraps login/refresh responses.
type AuthEnvelope struct {
	AccessToken  string          `json:"access_token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	Session      *domain.Session `json:"session,omitempty"`
	User         *PrivateUser    `json:"user,omitempty"`
}

// SessionEnvelope wraps current-session responses.
type SessionEnvelope struct {
	Session *domain.Session `json:"session,omitempty"`
	User    *PrivateUser    `json:"user,omitempty"`
}

// VerificationEnvelope returns the id of a freshly created verification record.
type VerificationEnvelope struct {
	Verification string `json:"verification"`
}

// SecretEnvelope returns the secret of a confirmed verification record.
type SecretEnvelope struct {
	Secret string `json:"secret"`
}

// PaginatedUsersEnvelope wraps cursor-paginated user list responses.
type PaginatedUsersEnvelope struct {
	Data   []PrivateUser `json:"data"`
	Cursor string        `json:"cursor,omitempty"`
}

// PublicUser is the projection any authenticated caller may see of another
// account. Contact details stay private.
type PublicUser struct {
	UserID     string    `json:"id"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	DateJoined time.Time `json:"date_joined"`
}

// PrivateUser is the owner's (and admin's) projection of an account.
type PrivateUser struct {
	UserID         string     `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	Phone          *string    `json:"phone_number"`
	Role           string     `json:"role"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	AddressStreet1 *string    `json:"address_street_1"`
	AddressStreet2 *string    `json:"address_street_2"`
	AddressZipCode *string    `json:"address_zip_code"`
	AddressTown    *string    `json:"address_town"`
	AddressCountry *string    `json:"address_country"`
	LastLogin      *time.Time `json:"last_login"`
	DateJoined     time.Time  `json:"date_joined"`
}

func toPublicUser(u *domain.User) *PublicUser {
	return &PublicUser{
		UserID:     u.UserID,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		DateJoined: u.CreatedAt,
	}
}

func toPrivateUser(u *domain.User) *PrivateUser {
	return &PrivateUser{
		UserID:         u.UserID,
		Username:       u.Username,
		Email:          u.Email,
		Phone:          u.Phone,
		Role:           u.Role,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		AddressStreet1: u.AddressStreet1,
		AddressStreet2: u.AddressStreet2,
		AddressZipCode: u.AddressZipCode,
		AddressTown:    u.AddressTown,
		AddressCountry: u.AddressCountry,
		LastLogin:      u.LastLogin,
		DateJoined:     u.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// writeServiceError maps domain sentinel errors to HTTP status codes. Internal
// failures are masked; the wrapped detail stays server-side.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
