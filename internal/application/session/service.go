package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-account-api/internal/domain"
	"github.com/go-account-api/internal/pkg/id"
	pkgtoken "github.com/go-account-api/internal/pkg/token"
	"github.com/go-account-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

// LoginResult is what a successful login hands back to the transport layer:
// the signed access token, the refresh token and the authenticated user.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Session      *domain.Session
	User         *domain.User
}

type Service interface {
	// Login authenticates by username or email plus password.
	Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error)
	// Refresh rotates the refresh token and issues a fresh access token.
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	// Logout disables the session; its refresh token stops working.
	Logout(ctx context.Context, sessionID string) error
}

type sessionStore interface {
	Put(ctx context.Context, sess *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Update(ctx context.Context, sessionID string, updates map[string]interface{}) error
	GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, refreshToken string, expiresAt int64) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type tokenSigner interface {
	Sign(userID, role, sessionID string) (string, error)
}

type service struct {
	repo       sessionStore
	users      userStore
	signer     tokenSigner
	refreshDur time.Duration
}

type ServiceDeps struct {
	SessionRepo sessionStore
	UserRepo    userStore
	Signer      tokenSigner
	RefreshDur  time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:       deps.SessionRepo,
		users:      deps.UserRepo,
		signer:     deps.Signer,
		refreshDur: deps.RefreshDur,
	}
}

const invalidCredentials = "invalid credentials"

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error) {
	if s.signer == nil {
		return nil, errors.New("token signer not configured")
	}
	u, err := s.lookup(ctx, req.Username)
	if err != nil {
		// Same message whether the account is missing or the password is
		// wrong; bcrypt against a dummy hash would be overkill here since
		// the lookup already dominates timing.
		return nil, fmt.Errorf("%s: %w", invalidCredentials, domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%s: %w", invalidCredentials, domain.ErrUnauthorized)
	}

	now := time.Now().UTC()
	refresh, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	sess := &domain.Session{
		SessionID:        id.New(),
		UserID:           u.UserID,
		Enable:           true,
		RefreshToken:     refresh,
		RefreshExpiresAt: now.Add(s.refreshDur).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Put(ctx, sess); err != nil {
		return nil, err
	}

	access, err := s.signer.Sign(u.UserID, u.Role, sess.SessionID)
	if err != nil {
		return nil, err
	}

	stamp := now.Format(time.RFC3339)
	if err := s.users.Update(ctx, u.UserID, map[string]interface{}{
		"last_login":    stamp,
		"last_activity": stamp,
	}); err != nil {
		return nil, err
	}
	u.LastLogin = &now
	u.LastActivity = now

	sess.User = u
	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		Session:      sess,
		User:         u,
	}, nil
}

// lookup resolves the login identifier. An identifier that parses as an
// email address is matched against the email index, anything else against
// the username index.
func (s *service) lookup(ctx context.Context, identifier string) (*domain.User, error) {
	if validate.Var(identifier, "email") == nil {
		return s.users.GetByEmail(ctx, identifier)
	}
	return s.users.GetByUsername(ctx, identifier)
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if s.signer == nil {
		return nil, errors.New("token signer not configured")
	}
	sess, err := s.repo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if sess.RefreshExpiresAt <= now.Unix() {
		return nil, fmt.Errorf("refresh token expired: %w", domain.ErrUnauthorized)
	}
	u, err := s.users.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	next, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	expiresAt := now.Add(s.refreshDur).Unix()
	if err := s.repo.RotateRefreshToken(ctx, sess.SessionID, next, expiresAt); err != nil {
		return nil, err
	}
	sess.RefreshToken = next
	sess.RefreshExpiresAt = expiresAt

	access, err := s.signer.Sign(u.UserID, u.Role, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return &LoginResult{
		AccessToken:  access,
		RefreshToken: next,
		Session:      sess,
		User:         u,
	}, nil
}

func (s *service) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return sess, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	return s.repo.Update(ctx, sessionID, map[string]interface{}{"enable": false})
}
