package storage

import (
	"context"
	"fmt"

	"github.com/hoanghai1803/pulse/internal/models"
)

type sourceStatusRow struct {
	Family      string `db:"family"`
	Source      string `db:"source"`
	FeedURL     string `db:"feed_url"`
	LastFetchAt string `db:"last_fetch_at"`
	LastFetchOK int    `db:"last_fetch_ok"`
	LastError   string `db:"last_error"`
	ItemsSaved  int    `db:"items_saved"`
}

// RecordFetch implements Store.
func (s *SQLiteStore) RecordFetch(ctx context.Context, status models.SourceStatus) error {
	okInt := 0
	if status.LastFetchOK {
		okInt = 1
	}

	row := sourceStatusRow{
		Family:      status.Family,
		Source:      status.Source,
		FeedURL:     status.FeedURL,
		LastFetchAt: formatTime(status.LastFetchAt),
		LastFetchOK: okInt,
		LastError:   status.LastError,
		ItemsSaved:  status.ItemsSaved,
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO source_status (family, source, feed_url, last_fetch_at, last_fetch_ok, last_error, items_saved)
		VALUES (:family, :source, :feed_url, :last_fetch_at, :last_fetch_ok, :last_error, :items_saved)
		ON CONFLICT(family, source) DO UPDATE SET
			feed_url      = excluded.feed_url,
			last_fetch_at = excluded.last_fetch_at,
			last_fetch_ok = excluded.last_fetch_ok,
			last_error    = excluded.last_error,
			items_saved   = excluded.items_saved`, row)
	if err != nil {
		return fmt.Errorf("recording fetch of %s/%s: %w", status.Family, status.Source, err)
	}
	return nil
}

// SourceStatuses implements Store.
func (s *SQLiteStore) SourceStatuses(ctx context.Context) ([]models.SourceStatus, error) {
	var rows []sourceStatusRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT family, source, feed_url, last_fetch_at, last_fetch_ok, last_error, items_saved
		 FROM source_status ORDER BY family, source`); err != nil {
		return nil, fmt.Errorf("querying source status: %w", err)
	}

	// Return empty slice instead of nil for consistent JSON serialization.
	statuses := make([]models.SourceStatus, 0, len(rows))
	for _, row := range rows {
		statuses = append(statuses, models.SourceStatus{
			Family:      row.Family,
			Source:      row.Source,
			FeedURL:     row.FeedURL,
			LastFetchAt: parseTime(row.LastFetchAt),
			LastFetchOK: row.LastFetchOK == 1,
			LastError:   row.LastError,
			ItemsSaved:  row.ItemsSaved,
		})
	}
	return statuses, nil
}
