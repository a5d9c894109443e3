package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	UserID         string     `json:"id" dynamodbav:"user_id"`
	Username       string     `json:"username" dynamodbav:"username"`
	Email          string     `json:"email" dynamodbav:"email"`
	// phone keys a sparse GSI; a nil phone must marshal to an absent
	// attribute, never a NULL one.
	Phone          *string    `json:"phone_number" dynamodbav:"phone,omitempty"`
	PasswordHash   string     `json:"-" dynamodbav:"password_hash"`
	Role           string     `json:"role" dynamodbav:"role"`
	FirstName      string     `json:"first_name" dynamodbav:"first_name"`
	LastName       string     `json:"last_name" dynamodbav:"last_name"`
	AddressStreet1 *string    `json:"address_street_1" dynamodbav:"address_street_1"`
	AddressStreet2 *string    `json:"address_street_2" dynamodbav:"address_street_2"`
	AddressZipCode *string    `json:"address_zip_code" dynamodbav:"address_zip_code"`
	AddressTown    *string    `json:"address_town" dynamodbav:"address_town"`
	AddressCountry *string    `json:"address_country" dynamodbav:"address_country"`
	Enable         bool       `json:"enable" dynamodbav:"enable"`
	LastLogin      *time.Time `json:"last_login" dynamodbav:"last_login"`
	LastActivity   time.Time  `json:"last_activity" dynamodbav:"last_activity"`
	CreatedAt      time.Time  `json:"date_joined" dynamodbav:"created_at"`
	UpdatedAt      time.Time  `json:"-" dynamodbav:"updated_at"`
}

// SignupRequest creates an account. The email is not part of the payload:
// it comes from the verification record referenced by Secret.
type SignupRequest struct {
	Username  string `json:"username" validate:"required,min=1,max=150"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Secret    string `json:"secret" validate:"required,uuid4"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
	Secret   string `json:"secret" validate:"required,uuid4"`
}

type ChangeContactRequest struct {
	Secret string `json:"secret" validate:"required,uuid4"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

// UpdateUserRequest is the PATCH /users/me payload. Email, phone and password
// are immutable through this path; they change only via their dedicated
// secret-consuming operations.
type UpdateUserRequest struct {
	Username       *string `json:"username" validate:"omitempty,min=1,max=150"`
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	AddressStreet1 *string `json:"address_street_1"`
	AddressStreet2 *string `json:"address_street_2"`
	AddressZipCode *string `json:"address_zip_code"`
	AddressTown    *string `json:"address_town"`
	AddressCountry *string `json:"address_country"`
}
