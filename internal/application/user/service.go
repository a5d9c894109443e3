package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-account-api/internal/application/verification"
	"github.com/go-account-api/internal/domain"
	"github.com/go-account-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldUsername       = "username"
	fieldEmail          = "email"
	fieldPhone          = "phone"
	fieldFirstName      = "first_name"
	fieldLastName       = "last_name"
	fieldAddressStreet1 = "address_street_1"
	fieldAddressStreet2 = "address_street_2"
	fieldAddressZipCode = "address_zip_code"
	fieldAddressTown    = "address_town"
	fieldAddressCountry = "address_country"
	fieldPasswordHash   = "password_hash"
	fieldLastActivity   = "last_activity"
)

type Service interface {
	// Signup creates an account from a consumed email-verification secret.
	// The new account's email is the verified channel value.
	Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, error)
	// ResetPassword sets a new password on whichever account the consumed
	// record's channel points at.
	ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error
	// ChangeEmail and ChangePhone consume a secret bound to the calling user.
	ChangeEmail(ctx context.Context, userID, secret string) (*domain.User, error)
	ChangePhone(ctx context.Context, userID, secret string) (*domain.User, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error)
	List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error)
	Delete(ctx context.Context, userID string) error
	// TouchActivity refreshes last_activity; called on every authenticated request.
	TouchActivity(ctx context.Context, userID string) error
}

type userStore interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, userID string) error
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
}

type sessionStore interface {
	SoftDeleteByUser(ctx context.Context, userID string) error
}

// secretConsumer is the slice of the verification engine identity operations
// depend on: validate, then consume exactly once.
type secretConsumer interface {
	ValidateSecret(ctx context.Context, secret string, requester *domain.User, kind domain.ChannelKind, expectAuthenticated bool) (*domain.Verification, error)
	Consume(ctx context.Context, v *domain.Verification) error
}

type service struct {
	repo          userStore
	sessionRepo   sessionStore
	verifications secretConsumer
}

type ServiceDeps struct {
	UserRepo        userStore
	SessionRepo     sessionStore
	VerificationSvc secretConsumer
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:          deps.UserRepo,
		sessionRepo:   deps.SessionRepo,
		verifications: deps.VerificationSvc,
	}
}

var _ secretConsumer = verification.Service(nil)

func (s *service) Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, error) {
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("username already taken: %w", domain.ErrConflict)
	}
	v, err := s.verifications.ValidateSecret(ctx, req.Secret, nil, domain.ChannelEmail, false)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Username:     req.Username,
		Email:        v.Value,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         domain.RoleUser,
		Enable:       true,
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	if err := s.verifications.Consume(ctx, v); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	v, err := s.verifications.ValidateSecret(ctx, req.Secret, nil, domain.ChannelAny, false)
	if err != nil {
		return err
	}
	u, err := s.userByChannel(ctx, v)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.Update(ctx, u.UserID, map[string]interface{}{fieldPasswordHash: string(hash)}); err != nil {
		return err
	}
	return s.verifications.Consume(ctx, v)
}

// userByChannel resolves the account a record's channel points at. A record
// whose channel matches no user signals a data-integrity bug, not user error.
func (s *service) userByChannel(ctx context.Context, v *domain.Verification) (*domain.User, error) {
	var (
		u   *domain.User
		err error
	)
	switch v.Kind {
	case domain.ChannelEmail:
		u, err = s.repo.GetByEmail(ctx, v.Value)
	case domain.ChannelPhone:
		u, err = s.repo.GetByPhone(ctx, v.Value)
	case domain.ChannelUsername:
		u, err = s.repo.GetByUsername(ctx, v.Value)
	default:
		return nil, fmt.Errorf("verification %s has unknown channel kind %q: %w", v.VerificationID, v.Kind, domain.ErrInvariant)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("verification %s matches no user: %w", v.VerificationID, domain.ErrInvariant)
		}
		return nil, err
	}
	return u, nil
}

func (s *service) ChangeEmail(ctx context.Context, userID, secret string) (*domain.User, error) {
	return s.changeContact(ctx, userID, secret, domain.ChannelEmail, fieldEmail)
}

func (s *service) ChangePhone(ctx context.Context, userID, secret string) (*domain.User, error) {
	return s.changeContact(ctx, userID, secret, domain.ChannelPhone, fieldPhone)
}

func (s *service) changeContact(ctx context.Context, userID, secret string, kind domain.ChannelKind, field string) (*domain.User, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	v, err := s.verifications.ValidateSecret(ctx, secret, u, kind, true)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, userID, map[string]interface{}{field: v.Value}); err != nil {
		return nil, err
	}
	if err := s.verifications.Consume(ctx, v); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

func (s *service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)); err != nil {
		return fmt.Errorf("password incorrect: %w", domain.ErrForbidden)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, userID, map[string]interface{}{fieldPasswordHash: string(hash)})
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	updates := map[string]interface{}{}
	if req.Username != nil {
		if other, err := s.repo.GetByUsername(ctx, *req.Username); err == nil && other.UserID != userID {
			return nil, fmt.Errorf("username already taken: %w", domain.ErrConflict)
		}
		updates[fieldUsername] = *req.Username
	}
	if req.FirstName != nil {
		updates[fieldFirstName] = *req.FirstName
	}
	if req.LastName != nil {
		updates[fieldLastName] = *req.LastName
	}
	if req.AddressStreet1 != nil {
		updates[fieldAddressStreet1] = *req.AddressStreet1
	}
	if req.AddressStreet2 != nil {
		updates[fieldAddressStreet2] = *req.AddressStreet2
	}
	if req.AddressZipCode != nil {
		updates[fieldAddressZipCode] = *req.AddressZipCode
	}
	if req.AddressTown != nil {
		updates[fieldAddressTown] = *req.AddressTown
	}
	if req.AddressCountry != nil {
		updates[fieldAddressCountry] = *req.AddressCountry
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, userID)
	}
	if err := s.repo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

func (s *service) List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.ScanPage(ctx, int32(limit), cursor)
}

func (s *service) Delete(ctx context.Context, userID string) error {
	if err := s.repo.SoftDelete(ctx, userID); err != nil {
		return err
	}
	return s.sessionRepo.SoftDeleteByUser(ctx, userID)
}

func (s *service) TouchActivity(ctx context.Context, userID string) error {
	return s.repo.Update(ctx, userID, map[string]interface{}{fieldLastActivity: time.Now().UTC().Format(time.RFC3339)})
}
