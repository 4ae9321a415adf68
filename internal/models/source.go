package models

import (
	"fmt"
	"time"
)

// SourceConfig is the persisted identity of one upstream source.
// It is registered once and treated as read-only during an ingestion run.
type SourceConfig struct {
	ID                    string     `json:"id"`
	Name                  string     `json:"name"`
	Type                  SourceType `json:"type"`
	EndpointURL           string     `json:"endpoint_url"`
	FetchFrequencyMinutes int        `json:"fetch_freq_min"`
}

// SourceType categorizes how a source is retrieved.
type SourceType string

const (
	SourceTypeRSS       SourceType = "rss"
	SourceTypeAtom      SourceType = "atom"
	SourceTypeAPI       SourceType = "api"
	SourceTypeWebScrape SourceType = "web_scrape"
)

// Valid reports whether t is one of the known source types.
func (t SourceType) Valid() bool {
	switch t {
	case SourceTypeRSS, SourceTypeAtom, SourceTypeAPI, SourceTypeWebScrape:
		return true
	}
	return false
}

// FetchInterval returns the polling interval for the source.
// Sources without a configured frequency are polled hourly.
func (s SourceConfig) FetchInterval() time.Duration {
	if s.FetchFrequencyMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(s.FetchFrequencyMinutes) * time.Minute
}

// Schedule returns a cron spec that polls the source at its fetch interval.
func (s SourceConfig) Schedule() string {
	return fmt.Sprintf("@every %s", s.FetchInterval())
}
