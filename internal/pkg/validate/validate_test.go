package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStruct_ReportsFailedFields(t *testing.T) {
	type payload struct {
		Email string `validate:"required,email"`
		Phone string `validate:"omitempty,e164"`
	}
	err := Struct(payload{Email: "not-an-email", Phone: "12345"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email")
	assert.Contains(t, err.Error(), "Phone")

	require.NoError(t, Struct(payload{Email: "a@b.com", Phone: "+34600111222"}))
}

func TestVar_SingleValueChecks(t *testing.T) {
	assert.NoError(t, Var("a@b.com", "email"))
	assert.Error(t, Var("alice", "email"))
	assert.Error(t, Var("alice@", "email"))
	assert.NoError(t, Var("+34600111222", "e164"))
	assert.Error(t, Var("600111222", "e164"))
}
