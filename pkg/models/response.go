package models

import "time"

// LookupResponse represents the response from a violation lookup
type LookupResponse struct {
	Success        bool              `json:"success"`
	Identifier     string            `json:"identifier"`
	SourceID       string            `json:"source_id"`
	Jurisdiction   string            `json:"jurisdiction,omitempty"`
	Records        []ViolationRecord `json:"records"`
	ProcessingTime time.Duration     `json:"processing_time"`
	RequestID      string            `json:"request_id"`
}

// SourceInfo describes one registered source adapter
type SourceInfo struct {
	ID           string `json:"id"`
	Jurisdiction string `json:"jurisdiction"`
	Default      bool   `json:"default,omitempty"`
}

// SourcesResponse lists the registered source adapters
type SourcesResponse struct {
	Sources []SourceInfo `json:"sources"`
	Count   int          `json:"count"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    time.Duration     `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	SourceID  string    `json:"source_id,omitempty"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}
