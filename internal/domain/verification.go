package domain

import (
	"fmt"
	"time"
)

const (
	// TokenLength is the fixed width of the out-of-band confirmation code.
	TokenLength = 6
	// VerificationValidity is how long a verification record stays live.
	// Older records are swept before any read that depends on freshness.
	VerificationValidity = 10 * time.Minute
)

// ChannelKind identifies the contact/identifier type a verification targets.
type ChannelKind string

const (
	ChannelEmail    ChannelKind = "email"
	ChannelPhone    ChannelKind = "phone"
	ChannelUsername ChannelKind = "username"
)

// ChannelAny is passed to ValidateSecret by operations that accept whichever
// single channel the record carries (password reset).
const ChannelAny ChannelKind = ""

// Channel is the tagged union of the three verification targets. Exactly one
// kind/value pair exists per record, which replaces the multi-nullable-column
// shape with a type the compiler can dispatch on.
type Channel struct {
	Kind  ChannelKind `json:"kind" dynamodbav:"channel_kind"`
	Value string      `json:"value" dynamodbav:"channel_value"`
}

func (c Channel) String() string {
	return fmt.Sprintf("%s:%s", c.Kind, c.Value)
}

// Verification tracks one channel-proof attempt.
// PK: verification_id. GSIs: secret-index, channel_value-index.
// A record with Secret set is confirmed; confirmation is one-way. The record
// is deleted on consumption or swept after VerificationValidity.
type Verification struct {
	VerificationID string `json:"id" dynamodbav:"verification_id"`
	Channel
	// UserID is set only when the requester was authenticated. It separates
	// "prove I own this new contact" flows from anonymous signup/reset flows.
	UserID    string `json:"user_id,omitempty" dynamodbav:"user_id"`
	Token     string `json:"-" dynamodbav:"token"`
	Secret    string `json:"-" dynamodbav:"secret,omitempty"`
	CreatedAt int64  `json:"created" dynamodbav:"created_at"`
	// ExpiresAt = CreatedAt + VerificationValidity. Doubles as the DynamoDB
	// TTL attribute; the lazy sweep remains the authoritative expiry check.
	ExpiresAt int64 `json:"-" dynamodbav:"expires_at"`
}

// Confirmed reports whether the token was already confirmed and the record
// upgraded to a consumable secret.
func (v *Verification) Confirmed() bool {
	return v.Secret != ""
}

// Expired reports whether the record is past its validity window at the
// given unix time.
func (v *Verification) Expired(now int64) bool {
	return v.ExpiresAt <= now
}

// Authenticated reports whether the record was requested by a logged-in user.
func (v *Verification) Authenticated() bool {
	return v.UserID != ""
}
