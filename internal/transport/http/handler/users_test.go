package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-account-api/internal/domain"
	jwtinfra "github.com/go-account-api/internal/infrastructure/jwt"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockUserSvc struct{ mock.Mock }

func (m *mockUserSvc) Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserSvc) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	return m.Called(ctx, req).Error(0)
}
func (m *mockUserSvc) ChangeEmail(ctx context.Context, userID, secret string) (*domain.User, error) {
	args := m.Called(ctx, userID, secret)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserSvc) ChangePhone(ctx context.Context, userID, secret string) (*domain.User, error) {
	args := m.Called(ctx, userID, secret)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserSvc) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	return m.Called(ctx, userID, oldPassword, newPassword).Error(0)
}
func (m *mockUserSvc) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserSvc) Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, userID, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserSvc) List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error) {
	args := m.Called(ctx, limit, cursor)
	users, _ := args.Get(0).([]domain.User)
	return users, args.String(1), args.Error(2)
}
func (m *mockUserSvc) Delete(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}
func (m *mockUserSvc) TouchActivity(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// withChiID injects a chi URL param "id" into the request context.
func withChiID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

const testSecret = "2b1f8a66-6f35-4a3c-9d48-1f2f0e3f4a5b"

// --- Signup ---

func TestSignup_InvalidBody(t *testing.T) {
	h := NewUserHandler(&mockUserSvc{})
	r := httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewBufferString("not-json"))
	rr := httptest.NewRecorder()
	h.Signup(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSignup_ValidationFailure(t *testing.T) {
	h := NewUserHandler(&mockUserSvc{})
	body, _ := json.Marshal(domain.SignupRequest{Username: "alice"}) // missing rest
	r := httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Signup(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSignup_InvalidSecret_Forbidden(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Signup", mock.Anything, mock.Anything).Return(nil, domain.ErrForbidden)
	h := NewUserHandler(svc)
	body, _ := json.Marshal(domain.SignupRequest{
		Username: "alice", Password: "password123",
		FirstName: "Alice", LastName: "Doe", Secret: testSecret,
	})
	r := httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Signup(rr, r)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestSignup_HappyPath(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Signup", mock.Anything, mock.Anything).Return(&domain.User{
		UserID: "u1", Username: "alice", Email: "alice@b.com",
	}, nil)
	h := NewUserHandler(svc)
	body, _ := json.Marshal(domain.SignupRequest{
		Username: "alice", Password: "password123",
		FirstName: "Alice", LastName: "Doe", Secret: testSecret,
	})
	r := httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Signup(rr, r)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	svc.AssertExpectations(t)
}

// --- ResetPassword ---

func TestResetPassword_Forbidden(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("ResetPassword", mock.Anything, mock.Anything).Return(domain.ErrForbidden)
	h := NewUserHandler(svc)
	body, _ := json.Marshal(domain.ResetPasswordRequest{Password: "newpassword1", Secret: testSecret})
	r := httptest.NewRequest(http.MethodPost, "/v1/password-reset", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ResetPassword(rr, r)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestResetPassword_HappyPath(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("ResetPassword", mock.Anything, mock.Anything).Return(nil)
	h := NewUserHandler(svc)
	body, _ := json.Marshal(domain.ResetPasswordRequest{Password: "newpassword1", Secret: testSecret})
	r := httptest.NewRequest(http.MethodPost, "/v1/password-reset", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ResetPassword(rr, r)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	svc.AssertExpectations(t)
}

// --- Me ---

func TestMe_MissingClaims(t *testing.T) {
	h := NewUserHandler(&mockUserSvc{})
	r := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
	rr := httptest.NewRecorder()
	h.Me(rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMe_ReturnsPrivateProjection(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Get", mock.Anything, "u1").Return(&domain.User{
		UserID: "u1", Username: "alice", Email: "alice@b.com",
	}, nil)
	h := NewUserHandler(svc)
	r := withClaims(httptest.NewRequest(http.MethodGet, "/v1/users/me", nil),
		&jwtinfra.Claims{UserID: "u1", Role: domain.RoleUser})
	rr := httptest.NewRecorder()
	h.Me(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp PrivateUser
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "alice@b.com", resp.Email)
}

// --- ChangeEmail ---

func TestChangeEmail_HappyPath(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("ChangeEmail", mock.Anything, "u1", testSecret).Return(&domain.User{
		UserID: "u1", Email: "new@b.com",
	}, nil)
	h := NewUserHandler(svc)
	body, _ := json.Marshal(domain.ChangeContactRequest{Secret: testSecret})
	r := withClaims(httptest.NewRequest(http.MethodPost, "/v1/users/me/email", bytes.NewReader(body)),
		&jwtinfra.Claims{UserID: "u1", Role: domain.RoleUser})
	rr := httptest.NewRecorder()
	h.ChangeEmail(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp PrivateUser
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "new@b.com", resp.Email)
	svc.AssertExpectations(t)
}

func TestChangePhone_SecretConflict(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("ChangePhone", mock.Anything, "u1", testSecret).Return(nil, domain.ErrConflict)
	h := NewUserHandler(svc)
	body, _ := json.Marshal(domain.ChangeContactRequest{Secret: testSecret})
	r := withClaims(httptest.NewRequest(http.MethodPost, "/v1/users/me/phone", bytes.NewReader(body)),
		&jwtinfra.Claims{UserID: "u1", Role: domain.RoleUser})
	rr := httptest.NewRecorder()
	h.ChangePhone(rr, r)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

// --- Get (public projection) ---

func TestGetUser_PublicProjection_HidesContactDetails(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Get", mock.Anything, "u2").Return(&domain.User{
		UserID: "u2", Username: "bob", Email: "bob@b.com",
	}, nil)
	h := NewUserHandler(svc)
	r := withChiID(httptest.NewRequest(http.MethodGet, "/v1/users/u2", nil), "u2")
	rr := httptest.NewRecorder()
	h.Get(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	_, hasEmail := resp["email"]
	assert.False(t, hasEmail, "public projection must not expose email")
}

func TestGetUser_NotFound(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Get", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)
	h := NewUserHandler(svc)
	r := withChiID(httptest.NewRequest(http.MethodGet, "/v1/users/ghost", nil), "ghost")
	rr := httptest.NewRecorder()
	h.Get(rr, r)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// --- List / Delete ---

func TestListUsers_ForwardsCursor(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("List", mock.Anything, 10, "abc").Return([]domain.User{{UserID: "u1"}}, "next", nil)
	h := NewUserHandler(svc)
	r := httptest.NewRequest(http.MethodGet, "/v1/users?limit=10&cursor=abc", nil)
	rr := httptest.NewRecorder()
	h.List(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp PaginatedUsersEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, "next", resp.Cursor)
	svc.AssertExpectations(t)
}

func TestDeleteUser_HappyPath(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Delete", mock.Anything, "u2").Return(nil)
	h := NewUserHandler(svc)
	r := withChiID(httptest.NewRequest(http.MethodDelete, "/v1/users/u2", nil), "u2")
	rr := httptest.NewRecorder()
	h.Delete(rr, r)
	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}
