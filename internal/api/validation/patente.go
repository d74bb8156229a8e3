package validation

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Plate layouts accepted at the HTTP boundary: the legacy AAA999 layout and
// the current AA999AA layout. Adapters downstream rely on this gate and only
// re-check their own narrower restrictions.
var (
	LegacyPlatePattern  = regexp.MustCompile(`^[A-Z]{3}[0-9]{3}$`)
	CurrentPlatePattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{3}[A-Z]{2}$`)
)

// ValidatePatente validates that the plate matches one of the accepted layouts
func ValidatePatente(fl validator.FieldLevel) bool {
	patente := fl.Field().String()
	return LegacyPlatePattern.MatchString(patente) || CurrentPlatePattern.MatchString(patente)
}

// RegisterLookupValidators registers all lookup-related custom validators
func RegisterLookupValidators(v *validator.Validate) {
	v.RegisterValidation("patente", ValidatePatente)
}
