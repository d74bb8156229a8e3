package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsLegacyPlate(t *testing.T) {
	assert.True(t, IsLegacyPlate("ABC123"))
	assert.True(t, IsLegacyPlate("ZZZ999"))

	assert.False(t, IsLegacyPlate("AB123CD"), "current layout is not legacy")
	assert.False(t, IsLegacyPlate("abc123"), "lowercase is not admitted")
	assert.False(t, IsLegacyPlate("ABC12"))
	assert.False(t, IsLegacyPlate("ABC1234"))
	assert.False(t, IsLegacyPlate(""))
}

func TestIsCurrentPlate(t *testing.T) {
	assert.True(t, IsCurrentPlate("AB123CD"))
	assert.True(t, IsCurrentPlate("ZZ999ZZ"))

	assert.False(t, IsCurrentPlate("ABC123"), "legacy layout is not current")
	assert.False(t, IsCurrentPlate("ab123cd"))
	assert.False(t, IsCurrentPlate("AB123C"))
	assert.False(t, IsCurrentPlate("A1123CD"))
	assert.False(t, IsCurrentPlate(""))
}

func TestIsValidPlate(t *testing.T) {
	assert.True(t, IsValidPlate("ABC123"))
	assert.True(t, IsValidPlate("AB123CD"))

	assert.False(t, IsValidPlate("AB 123 CD"), "separators are not admitted")
	assert.False(t, IsValidPlate("123ABC"))
	assert.False(t, IsValidPlate("AB123CDE"))
}
