package models

import "time"

// FeedSource is one configured feed within a family.
type FeedSource struct {
	Name    string `json:"name"`
	FeedURL string `json:"feed_url"`
	// Categories are merged into the categories of every record from this
	// source.
	Categories []string `json:"categories"`
}

// SourceStatus is the outcome of the most recent ingestion of one source.
type SourceStatus struct {
	Family      string    `json:"family"`
	Source      string    `json:"source"`
	FeedURL     string    `json:"feed_url"`
	LastFetchAt time.Time `json:"last_fetch_at"`
	LastFetchOK bool      `json:"last_fetch_ok"`
	LastError   string    `json:"last_error,omitempty"`
	ItemsSaved  int       `json:"items_saved"`
}
