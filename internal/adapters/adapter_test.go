package adapters

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/hoanghai1803/pulse/internal/feeds"
	"github.com/hoanghai1803/pulse/internal/models"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestUpdates_GeneralCategoryScenario(t *testing.T) {
	src := models.FeedSource{Name: "Azure Updates"}
	entries := []feeds.RawEntry{
		{Title: "One", Link: "https://example.com/1", Categories: []string{"Compute"}},
		{Title: "Two", Link: "https://example.com/2", Categories: []string{"Storage", "AI"}},
		{Title: "Three", Link: "https://example.com/3"},
	}

	a := NewUpdates(DefaultConfig())
	var records []models.Record
	for _, e := range entries {
		if rec, ok := a.Adapt(e, src, testNow, Options{}); ok {
			records = append(records, rec)
		}
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if want := []string{"General"}; !slices.Equal(records[2].Categories, want) {
		t.Errorf("Categories = %v, want %v", records[2].Categories, want)
	}
	if want := []string{"Storage", "AI"}; !slices.Equal(records[1].Categories, want) {
		t.Errorf("Categories = %v, want %v", records[1].Categories, want)
	}
	for _, r := range records {
		if r.Kind != models.KindUpdate {
			t.Errorf("Kind = %q, want %q", r.Kind, models.KindUpdate)
		}
	}
}

func TestUpdates_MergesSourceDefaults(t *testing.T) {
	src := models.FeedSource{Name: "Azure Updates", Categories: []string{"Azure", "Compute", "Updates"}}
	entry := feeds.RawEntry{
		Title:      "Flex",
		Link:       "https://example.com/flex",
		Categories: []string{"Compute", "Serverless", "Compute", " "},
	}

	rec, ok := NewUpdates(DefaultConfig()).Adapt(entry, src, testNow, Options{})
	if !ok {
		t.Fatal("expected record")
	}
	want := []string{"Compute", "Serverless", "Azure", "Updates"}
	if !slices.Equal(rec.Categories, want) {
		t.Errorf("Categories = %v, want %v", rec.Categories, want)
	}
}

func TestAdapt_FieldMapping(t *testing.T) {
	entry := feeds.RawEntry{
		Title:       "<![CDATA[Announcing <b>Aspire</b>]]>",
		Link:        "https://devblogs.example.com/aspire",
		Description: "",
		Content:     "<p>Full &amp; detailed</p>",
		Published:   "Tue, 14 May 2024 17:00:00 GMT",
		Identifier:  "post-42",
		Author:      "fallback@example.com",
		Creator:     "Jane Doe",
	}
	src := models.FeedSource{Name: ".NET Blog", Categories: []string{"dotnet"}}

	rec, ok := NewBlogs(DefaultConfig()).Adapt(entry, src, testNow, Options{})
	if !ok {
		t.Fatal("expected record")
	}

	if rec.ID != "post-42" {
		t.Errorf("ID = %q, want %q", rec.ID, "post-42")
	}
	if rec.Title != "Announcing Aspire" {
		t.Errorf("Title = %q", rec.Title)
	}
	if rec.Description != "Full & detailed" {
		t.Errorf("Description = %q, want content fallback", rec.Description)
	}
	if rec.Author != "Jane Doe" {
		t.Errorf("Author = %q, want creator", rec.Author)
	}
	if rec.Source != ".NET Blog" {
		t.Errorf("Source = %q", rec.Source)
	}
	if rec.Kind != models.KindBlogPost {
		t.Errorf("Kind = %q", rec.Kind)
	}
	wantTime := time.Date(2024, 5, 14, 17, 0, 0, 0, time.UTC)
	if !rec.PublishedAt.Equal(wantTime) || rec.PublishedAt.Location() != time.UTC {
		t.Errorf("PublishedAt = %v, want %v", rec.PublishedAt, wantTime)
	}
	if want := []string{"dotnet"}; !slices.Equal(rec.Categories, want) {
		t.Errorf("Categories = %v, want %v", rec.Categories, want)
	}
}

func TestBlogs_AuthorFallback(t *testing.T) {
	entry := feeds.RawEntry{Title: "t", Link: "https://example.com", Author: "Team"}
	rec, ok := NewBlogs(DefaultConfig()).Adapt(entry, models.FeedSource{}, testNow, Options{})
	if !ok {
		t.Fatal("expected record")
	}
	if rec.Author != "Team" {
		t.Errorf("Author = %q, want %q", rec.Author, "Team")
	}
	if rec.Categories == nil {
		t.Error("Categories must not be nil")
	}
}

func TestAdapt_DiscardRule(t *testing.T) {
	tests := []struct {
		name  string
		entry feeds.RawEntry
	}{
		{name: "empty title", entry: feeds.RawEntry{Link: "https://example.com/a"}},
		{name: "markup-only title", entry: feeds.RawEntry{Title: "<b> </b>", Link: "https://example.com/a"}},
		{name: "empty link", entry: feeds.RawEntry{Title: "No link"}},
	}

	adapters := map[string]Adapter{
		"updates": NewUpdates(DefaultConfig()),
		"blogs":   NewBlogs(DefaultConfig()),
		"videos":  NewVideos(DefaultConfig()),
	}

	for _, tt := range tests {
		for name, a := range adapters {
			t.Run(tt.name+"/"+name, func(t *testing.T) {
				if _, ok := a.Adapt(tt.entry, models.FeedSource{}, testNow, Options{}); ok {
					t.Error("expected entry to be discarded")
				}
			})
		}
	}
}

func TestAdapt_IDPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		entry feeds.RawEntry
		want  string
	}{
		{
			name:  "identifier first",
			entry: feeds.RawEntry{Title: "t", Link: "https://example.com/l", Identifier: "guid-1", VideoID: "v1"},
			want:  "guid-1",
		},
		{
			name:  "link second",
			entry: feeds.RawEntry{Title: "t", Link: "https://example.com/l", VideoID: "v1"},
			want:  "https://example.com/l",
		},
		{
			name:  "video id last",
			entry: feeds.RawEntry{Title: "t", VideoID: "v1"},
			want:  "video-v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := NewVideos(DefaultConfig()).Adapt(tt.entry, models.FeedSource{}, testNow, Options{})
			if !ok {
				t.Fatal("expected record")
			}
			if rec.ID != tt.want {
				t.Errorf("ID = %q, want %q", rec.ID, tt.want)
			}
		})
	}
}

func TestAdapt_DescriptionTruncated(t *testing.T) {
	long := strings.Repeat("é", 600)
	entry := feeds.RawEntry{Title: "t", Link: "https://example.com", Description: long}

	rec, ok := NewUpdates(DefaultConfig()).Adapt(entry, models.FeedSource{}, testNow, Options{})
	if !ok {
		t.Fatal("expected record")
	}
	if got := len([]rune(rec.Description)); got != DefaultDescriptionLength {
		t.Errorf("description length = %d runes, want %d", got, DefaultDescriptionLength)
	}
}

func TestAdapt_PublishedAt(t *testing.T) {
	tests := []struct {
		name      string
		published string
		updated   string
		want      time.Time
	}{
		{
			name:      "rfc3339 with offset",
			published: "2025-05-19T16:00:00+02:00",
			want:      time.Date(2025, 5, 19, 14, 0, 0, 0, time.UTC),
		},
		{
			name:    "falls back to updated",
			updated: "2025-05-20T10:00:00Z",
			want:    time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC),
		},
		{
			name:      "unparseable published falls back to updated",
			published: "not a date",
			updated:   "2025-05-20T10:00:00Z",
			want:      time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "missing uses now",
			want: testNow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := feeds.RawEntry{Title: "t", Link: "https://example.com", Published: tt.published, Updated: tt.updated}
			rec, ok := NewBlogs(DefaultConfig()).Adapt(entry, models.FeedSource{}, testNow, Options{})
			if !ok {
				t.Fatal("expected record")
			}
			if !rec.PublishedAt.Equal(tt.want) {
				t.Errorf("PublishedAt = %v, want %v", rec.PublishedAt, tt.want)
			}
		})
	}
}

func TestVideos_RecencyScenario(t *testing.T) {
	published := testNow.Add(-400 * 24 * time.Hour).Format(time.RFC3339)
	entry := feeds.RawEntry{
		Title:     "Old keynote",
		VideoID:   "abc123",
		Published: published,
	}
	a := NewVideos(DefaultConfig())

	if _, ok := a.Adapt(entry, models.FeedSource{}, testNow, Options{}); ok {
		t.Error("400-day-old video should be discarded by the one-year default")
	}
	if _, ok := a.Adapt(entry, models.FeedSource{}, testNow, Options{DaysBack: 450}); !ok {
		t.Error("400-day-old video should be retained with DaysBack 450")
	}
}

func TestVideos_Defaults(t *testing.T) {
	entry := feeds.RawEntry{
		Title:      "Build 2025 Keynote",
		Link:       "https://www.youtube.com/shorts/abc123",
		Identifier: "yt:video:abc123",
		VideoID:    "abc123",
	}
	src := models.FeedSource{Name: "Microsoft Build", Categories: []string{"Build", "Azure", "Build"}}

	rec, ok := NewVideos(DefaultConfig()).Adapt(entry, src, testNow, Options{})
	if !ok {
		t.Fatal("expected record")
	}
	if rec.Link != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("Link = %q", rec.Link)
	}
	if rec.Author != "Microsoft" {
		t.Errorf("Author = %q, want publisher default", rec.Author)
	}
	if rec.ID != "yt:video:abc123" {
		t.Errorf("ID = %q", rec.ID)
	}
	if want := []string{"Build", "Azure"}; !slices.Equal(rec.Categories, want) {
		t.Errorf("Categories = %v, want %v", rec.Categories, want)
	}
}

func TestDaysBack_AppliesToEveryVariant(t *testing.T) {
	entry := feeds.RawEntry{
		Title:     "t",
		Link:      "https://example.com",
		Published: testNow.Add(-10 * 24 * time.Hour).Format(time.RFC3339),
	}

	for _, kind := range []models.Kind{models.KindUpdate, models.KindBlogPost, models.KindVideo} {
		a := ForKind(kind, DefaultConfig())
		if _, ok := a.Adapt(entry, models.FeedSource{}, testNow, Options{DaysBack: 7}); ok {
			t.Errorf("%s: entry older than DaysBack should be discarded", kind)
		}
		if _, ok := a.Adapt(entry, models.FeedSource{}, testNow, Options{}); !ok {
			t.Errorf("%s: entry should be kept without DaysBack", kind)
		}
	}
}

func TestForKind_Unknown(t *testing.T) {
	if a := ForKind(models.Kind("podcast"), DefaultConfig()); a != nil {
		t.Errorf("expected nil adapter, got %T", a)
	}
}
