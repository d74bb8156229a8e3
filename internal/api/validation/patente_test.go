package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupForm struct {
	Patente string `validate:"required,patente"`
}

func newTestValidator(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	RegisterLookupValidators(v)
	return v
}

func TestPatenteValidatorAcceptsBothLayouts(t *testing.T) {
	v := newTestValidator(t)

	require.NoError(t, v.Struct(lookupForm{Patente: "ABC123"}))
	require.NoError(t, v.Struct(lookupForm{Patente: "AB123CD"}))
}

func TestPatenteValidatorRejectsMalformedPlates(t *testing.T) {
	v := newTestValidator(t)

	cases := []string{
		"",
		"abc123",
		"AB-123-CD",
		"AB 123 CD",
		"ABCD123",
		"AB123C",
		"1B123CD",
	}
	for _, plate := range cases {
		assert.Error(t, v.Struct(lookupForm{Patente: plate}), "plate %q should be rejected", plate)
	}
}
