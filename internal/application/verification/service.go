package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-account-api/internal/domain"
	"github.com/go-account-api/internal/pkg/id"
	pkgtoken "github.com/go-account-api/internal/pkg/token"
)

// uniformForbidden is returned for every confirm failure past the id lookup.
// One message for token mismatch and already-confirmed alike, so a caller
// cannot tell which sub-check rejected them.
const uniformForbidden = "the combination of verification and token is not correct"

// invalidSecret covers every ValidateSecret rejection except uniqueness
// conflicts, for the same reason.
const invalidSecret = "invalid secret"

// RequestInput carries exactly one verification channel. Which one is set
// decides the channel kind of the created record.
type RequestInput struct {
	Email       *string `json:"email" validate:"omitempty,email"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,e164"`
	Username    *string `json:"username" validate:"omitempty,min=1,max=150"`
}

// Channel folds the input into the domain sum type. Returns ErrBadRequest
// unless exactly one field is set.
func (in RequestInput) Channel() (domain.Channel, error) {
	var ch domain.Channel
	n := 0
	if in.Email != nil {
		ch = domain.Channel{Kind: domain.ChannelEmail, Value: *in.Email}
		n++
	}
	if in.PhoneNumber != nil {
		ch = domain.Channel{Kind: domain.ChannelPhone, Value: *in.PhoneNumber}
		n++
	}
	if in.Username != nil {
		ch = domain.Channel{Kind: domain.ChannelUsername, Value: *in.Username}
		n++
	}
	switch n {
	case 0:
		return domain.Channel{}, fmt.Errorf("one of email, phone_number or username is required: %w", domain.ErrBadRequest)
	case 1:
		return ch, nil
	default:
		return domain.Channel{}, fmt.Errorf("only one of email, phone_number or username may be set: %w", domain.ErrBadRequest)
	}
}

type Service interface {
	// Request creates a pending verification record and sends its token
	// out-of-band. requester is nil for anonymous callers.
	Request(ctx context.Context, in RequestInput, requester *domain.User) (*domain.Verification, error)
	// Confirm upgrades a pending record to a consumable secret.
	Confirm(ctx context.Context, verificationID, token string) (string, error)
	// ValidateSecret runs the shared precondition of every secret-consuming
	// identity operation. kind == domain.ChannelAny accepts whichever channel
	// the record carries. The caller consumes the returned record after
	// applying its mutation.
	ValidateSecret(ctx context.Context, secret string, requester *domain.User, kind domain.ChannelKind, expectAuthenticated bool) (*domain.Verification, error)
	// Consume deletes a validated record. At most one caller succeeds.
	Consume(ctx context.Context, v *domain.Verification) error
}

type verificationStore interface {
	Put(ctx context.Context, v *domain.Verification) error
	Get(ctx context.Context, verificationID string) (*domain.Verification, error)
	GetBySecret(ctx context.Context, secret string) (*domain.Verification, error)
	SetSecret(ctx context.Context, verificationID, secret string) error
	DeleteConsumed(ctx context.Context, verificationID, secret string) error
	DeleteByChannel(ctx context.Context, ch domain.Channel) error
	DeleteExpired(ctx context.Context, now int64) error
}

type userLookup interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type service struct {
	repo     verificationStore
	users    userLookup
	notifier Notifier
	now      func() time.Time
	randSrc  io.Reader
}

type ServiceDeps struct {
	VerificationRepo verificationStore
	UserRepo         userLookup
	Notifier         Notifier
	// Now and RandSource are injectable for tests; both default to the real thing.
	Now        func() time.Time
	RandSource io.Reader
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		repo:     deps.VerificationRepo,
		users:    deps.UserRepo,
		notifier: deps.Notifier,
		now:      deps.Now,
		randSrc:  deps.RandSource,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.randSrc == nil {
		s.randSrc = rand.Reader
	}
	return s
}

// clearOutdated removes expired records. It runs synchronously at the start
// of every verification-touching operation so that stale records never
// participate in matching. Sweep failures are surfaced: matching against a
// store that may still hold expired records would break the validity window.
func (s *service) clearOutdated(ctx context.Context) error {
	return s.repo.DeleteExpired(ctx, s.now().UTC().Unix())
}

func (s *service) Request(ctx context.Context, in RequestInput, requester *domain.User) (*domain.Verification, error) {
	ch, err := in.Channel()
	if err != nil {
		return nil, err
	}
	if err := s.clearOutdated(ctx); err != nil {
		return nil, err
	}
	// Latest request wins: prior pending records for this channel+value are
	// dropped so "submit again to restart" always holds.
	if err := s.repo.DeleteByChannel(ctx, ch); err != nil {
		return nil, err
	}

	code, err := pkgtoken.NewVerificationCode(s.randSrc, domain.TokenLength)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	v := &domain.Verification{
		VerificationID: id.New(),
		Channel:        ch,
		Token:          code,
		CreatedAt:      now.Unix(),
		ExpiresAt:      now.Add(domain.VerificationValidity).Unix(),
	}
	if requester != nil {
		v.UserID = requester.UserID
	}
	if err := s.repo.Put(ctx, v); err != nil {
		return nil, err
	}
	if err := s.notifier.Send(ctx, ch, code); err != nil {
		return nil, fmt.Errorf("deliver verification token: %w", err)
	}
	return v, nil
}

func (s *service) Confirm(ctx context.Context, verificationID, token string) (string, error) {
	if err := s.clearOutdated(ctx); err != nil {
		return "", err
	}
	v, err := s.repo.Get(ctx, verificationID)
	if err != nil {
		return "", err
	}
	// An expired record that outlived the sweep counts as purged.
	if v.Expired(s.now().UTC().Unix()) {
		return "", fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	if v.Token != token || v.Confirmed() {
		return "", fmt.Errorf("%s: %w", uniformForbidden, domain.ErrForbidden)
	}
	secret := pkgtoken.NewSecret()
	if err := s.repo.SetSecret(ctx, v.VerificationID, secret); err != nil {
		// A concurrent confirm won the conditional write.
		if errors.Is(err, domain.ErrConflict) {
			return "", fmt.Errorf("%s: %w", uniformForbidden, domain.ErrForbidden)
		}
		return "", err
	}
	return secret, nil
}

func (s *service) ValidateSecret(ctx context.Context, secret string, requester *domain.User, kind domain.ChannelKind, expectAuthenticated bool) (*domain.Verification, error) {
	if err := s.clearOutdated(ctx); err != nil {
		return nil, err
	}
	v, err := s.repo.GetBySecret(ctx, secret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", invalidSecret, domain.ErrForbidden)
	}
	if v.Expired(s.now().UTC().Unix()) {
		return nil, fmt.Errorf("%s: %w", invalidSecret, domain.ErrForbidden)
	}
	if kind != domain.ChannelAny && v.Kind != kind {
		return nil, fmt.Errorf("%s: %w", invalidSecret, domain.ErrForbidden)
	}
	if v.Authenticated() != expectAuthenticated {
		return nil, fmt.Errorf("%s: %w", invalidSecret, domain.ErrForbidden)
	}
	if expectAuthenticated {
		// A secret is bound to the user who requested it; no other logged-in
		// identity may redeem it.
		if requester == nil || v.UserID != requester.UserID {
			return nil, fmt.Errorf("%s: %w", invalidSecret, domain.ErrForbidden)
		}
	}
	// Re-check target uniqueness at consumption time, not just at request
	// time. Skipped for channel-agnostic flows (password reset), where the
	// value is expected to belong to an existing account.
	if kind != domain.ChannelAny {
		switch v.Kind {
		case domain.ChannelEmail:
			if _, err := s.users.GetByEmail(ctx, v.Value); err == nil {
				return nil, fmt.Errorf("email address already in use: %w", domain.ErrConflict)
			}
		case domain.ChannelPhone:
			if _, err := s.users.GetByPhone(ctx, v.Value); err == nil {
				return nil, fmt.Errorf("phone number already in use: %w", domain.ErrConflict)
			}
		}
	}
	return v, nil
}

func (s *service) Consume(ctx context.Context, v *domain.Verification) error {
	return s.repo.DeleteConsumed(ctx, v.VerificationID, v.Secret)
}
