package models

import (
	"time"
)

// IngestionError records a source run that failed as a whole.
type IngestionError struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`     // adapter key, e.g. "techcrunch"
	ErrorType  string     `json:"error_type"` // e.g. "fetch_failed", "no_valid_items"
	URL        string     `json:"url"`        // endpoint that was being ingested
	ErrorMsg   string     `json:"error_msg"`
	Metadata   string     `json:"metadata"` // Additional JSON metadata
	CreatedAt  time.Time  `json:"created_at"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// IngestionErrorType categorizes run-level failures.
type IngestionErrorType string

const (
	ErrorTypeFetchFailed    IngestionErrorType = "fetch_failed"
	ErrorTypeTimeout        IngestionErrorType = "timeout"
	ErrorTypeSourceNotFound IngestionErrorType = "source_not_found"
	ErrorTypeNoValidItems   IngestionErrorType = "no_valid_items"
	ErrorTypePersistFailed  IngestionErrorType = "persist_failed"
)
