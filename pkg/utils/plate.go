package utils

import "regexp"

// Argentine license plate layouts. The HTTP boundary only admits these two,
// already uppercased; adapters may further restrict (some portals never
// migrated past the legacy layout).
var (
	legacyPlateRe  = regexp.MustCompile(`^[A-Z]{3}[0-9]{3}$`)
	currentPlateRe = regexp.MustCompile(`^[A-Z]{2}[0-9]{3}[A-Z]{2}$`)
)

// IsLegacyPlate reports whether s is a fixed 6-character legacy plate (AAA123).
func IsLegacyPlate(s string) bool {
	return legacyPlateRe.MatchString(s)
}

// IsCurrentPlate reports whether s is a 7-character Mercosur plate (AA123CD).
func IsCurrentPlate(s string) bool {
	return currentPlateRe.MatchString(s)
}

// IsValidPlate reports whether s matches either accepted plate layout.
func IsValidPlate(s string) bool {
	return IsLegacyPlate(s) || IsCurrentPlate(s)
}
