package models

import "time"

// Kind identifies which feed family produced a record.
type Kind string

const (
	KindUpdate   Kind = "update"
	KindBlogPost Kind = "blog"
	KindVideo    Kind = "video"
)

// Valid reports whether k is one of the known record kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindUpdate, KindBlogPost, KindVideo:
		return true
	}
	return false
}

// Record is the normalized, persisted form of one feed entry. ID is stable
// across repeated ingestion of the same entry and is the upsert key.
type Record struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
	Source      string    `json:"source"`
	Kind        Kind      `json:"kind"`
	Author      string    `json:"author"`
	Categories  []string  `json:"categories"`
}

// HasCategory reports whether the record is tagged with category.
func (r Record) HasCategory(category string) bool {
	for _, c := range r.Categories {
		if c == category {
			return true
		}
	}
	return false
}
