package models

import "time"

// LookupRequest represents the request payload for a violation lookup
type LookupRequest struct {
	Patente string         `json:"patente" validate:"required,patente"`
	Source  string         `json:"source,omitempty"`
	Options *LookupOptions `json:"options,omitempty"`
}

// LookupOptions provides additional configuration for lookup requests
type LookupOptions struct {
	Timeout time.Duration `json:"timeout,omitempty"` // overrides the worker pool timeout
}
