// Package normalize holds the parsing policy shared by every source adapter.
// Field mapping is adapter-specific, but monetary, status, and optional-text
// parsing must behave identically no matter which adapter produced the raw
// item.
package normalize

import (
	"strconv"
	"strings"

	"multascan/pkg/models"
)

// Amount parses monetary text into a value. Every character that is not a
// digit, dot, or comma is stripped; a remaining comma is taken as the
// decimal separator (dots then being thousand separators). Unparsable
// input yields nil, never zero.
func Amount(raw string) *float64 {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if cleaned == "" {
		return nil
	}

	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &value
}

// Status maps status text to the paid/unpaid enum. Any text containing a
// case-insensitive "pag" substring counts as paid; everything else,
// including an absent status field, defaults to pending.
func Status(raw string) models.RecordStatus {
	if strings.Contains(strings.ToLower(raw), "pag") {
		return models.StatusPagada
	}
	return models.StatusPendiente
}

// Text trims raw and maps empty values to nil, never to an empty string
func Text(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
