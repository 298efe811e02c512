package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contact struct {
	Name  string  `binding:"required"`
	Email *string `binding:"omitempty,contact_email"`
	Phone *string `binding:"omitempty,phone"`
}

func strPtr(s string) *string { return &s }

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("jane.doe+pos@example.co"))
	assert.False(t, IsEmail("not-an-email"))
	assert.False(t, IsEmail("a@b"))
}

func TestIsPhone(t *testing.T) {
	assert.True(t, IsPhone("+14155550123"))
	assert.True(t, IsPhone("123456789"))
	assert.False(t, IsPhone("12x45"))
	assert.False(t, IsPhone("12345"))
}

func TestStructUsesCustomTags(t *testing.T) {
	require.NoError(t, Struct(contact{Name: "Ann"}))
	require.NoError(t, Struct(contact{Name: "Ann", Email: strPtr("ann@example.com"), Phone: strPtr("+15551234567")}))

	err := Struct(contact{Name: "Ann", Email: strPtr("not-an-email")})
	require.Error(t, err)
	assert.Equal(t, "email must be a valid email address", Message(err))

	err = Struct(contact{Name: "Ann", Phone: strPtr("12x45")})
	require.Error(t, err)
	assert.Contains(t, Message(err), "phone must be 9 to 15 digits")

	require.NoError(t, Struct(contact{Name: "Ann", Email: strPtr(""), Phone: strPtr("  ")}))

	err = Struct(contact{})
	require.Error(t, err)
	assert.Equal(t, "name is required", Message(err))
}

func TestRegisterGinValidators(t *testing.T) {
	assert.NoError(t, RegisterGinValidators())
}
