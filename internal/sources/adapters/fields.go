package adapters

import (
	"multascan/internal/sources/normalize"
)

// Upstream JSON schemas drift, so adapters probe an ordered list of field
// names and take the first hit. The key orders are per-adapter; the probing
// itself is shared.

// firstString returns the first non-empty string value among keys
func firstString(item map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := item[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// amountField returns the first parseable monetary value among keys.
// Numeric JSON values are taken as-is; strings go through the shared
// monetary parsing policy.
func amountField(item map[string]interface{}, keys ...string) *float64 {
	for _, key := range keys {
		v, ok := item[key]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			value := t
			return &value
		case string:
			if parsed := normalize.Amount(t); parsed != nil {
				return parsed
			}
		}
	}
	return nil
}
