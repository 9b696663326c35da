package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"

	"github.com/hoanghai1803/pulse/internal/models"
)

// recordRow is the records table shape. Categories live in record_categories.
type recordRow struct {
	ID          string `db:"id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Link        string `db:"link"`
	PublishedAt string `db:"published_at"`
	Source      string `db:"source"`
	Kind        string `db:"kind"`
	Author      string `db:"author"`
	UpdatedAt   string `db:"updated_at"`
}

func (r recordRow) toModel() models.Record {
	return models.Record{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Link:        r.Link,
		PublishedAt: parseTime(r.PublishedAt),
		Source:      r.Source,
		Kind:        models.Kind(r.Kind),
		Author:      r.Author,
		Categories:  []string{},
	}
}

const upsertRecordSQL = `
	INSERT INTO records (id, title, description, link, published_at, source, kind, author, updated_at)
	VALUES (:id, :title, :description, :link, :published_at, :source, :kind, :author, :updated_at)
	ON CONFLICT(id) DO UPDATE SET
		title        = excluded.title,
		description  = excluded.description,
		link         = excluded.link,
		published_at = excluded.published_at,
		source       = excluded.source,
		kind         = excluded.kind,
		author       = excluded.author,
		updated_at   = excluded.updated_at`

// Upsert implements Store. The record row and its categories are replaced in
// one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, rec models.Record) (models.Record, error) {
	if err := validateRecord(rec); err != nil {
		return models.Record{}, err
	}
	rec = normalizeRecord(rec)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Record{}, fmt.Errorf("%w: beginning transaction: %w", ErrStoreWrite, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	row := recordRow{
		ID:          rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		Link:        rec.Link,
		PublishedAt: formatTime(rec.PublishedAt),
		Source:      rec.Source,
		Kind:        string(rec.Kind),
		Author:      rec.Author,
		UpdatedAt:   formatTime(s.now()),
	}
	if _, err := tx.NamedExecContext(ctx, upsertRecordSQL, row); err != nil {
		return models.Record{}, fmt.Errorf("%w: upserting record %q: %w", ErrStoreWrite, rec.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM record_categories WHERE record_id = ?`, rec.ID); err != nil {
		return models.Record{}, fmt.Errorf("%w: clearing categories of %q: %w", ErrStoreWrite, rec.ID, err)
	}
	for i, category := range rec.Categories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO record_categories (record_id, category, position) VALUES (?, ?, ?)`,
			rec.ID, category, i,
		); err != nil {
			return models.Record{}, fmt.Errorf("%w: tagging %q with %q: %w", ErrStoreWrite, rec.ID, category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Record{}, fmt.Errorf("%w: committing record %q: %w", ErrStoreWrite, rec.ID, err)
	}
	return rec, nil
}

func selectRecords() sq.SelectBuilder {
	return sq.Select(
		"r.id AS id",
		"r.title AS title",
		"r.description AS description",
		"r.link AS link",
		"r.published_at AS published_at",
		"r.source AS source",
		"r.kind AS kind",
		"r.author AS author",
		"r.updated_at AS updated_at",
	).From("records r")
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (models.Record, error) {
	query, args, err := selectRecords().Where(sq.Eq{"r.id": id}).ToSql()
	if err != nil {
		return models.Record{}, fmt.Errorf("building record query: %w", err)
	}

	var row recordRow
	err = s.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, ErrNotFound
	}
	if err != nil {
		return models.Record{}, fmt.Errorf("getting record %q: %w", id, err)
	}

	records := []models.Record{row.toModel()}
	if err := s.loadCategories(ctx, records); err != nil {
		return models.Record{}, err
	}
	return records[0], nil
}

// Query implements Store.
func (s *SQLiteStore) Query(ctx context.Context, q Query, maxItems int) ([]models.Record, error) {
	b := selectRecords()
	if q.Category != "" {
		b = b.Join("record_categories c ON c.record_id = r.id").
			Where(sq.Eq{"c.category": q.Category})
	}
	b = b.OrderBy("r.published_at DESC", "r.id")
	if maxItems > 0 {
		b = b.Limit(uint64(maxItems))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building record query: %w", err)
	}

	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}

	records := make([]models.Record, len(rows))
	for i, row := range rows {
		records[i] = row.toModel()
	}
	if err := s.loadCategories(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

// Categories implements Store.
func (s *SQLiteStore) Categories(ctx context.Context, maxItems int) ([]string, error) {
	b := sq.Select("category").Distinct().From("record_categories").OrderBy("category")
	if maxItems > 0 {
		b = b.Limit(uint64(maxItems))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building categories query: %w", err)
	}

	categories := []string{}
	if err := s.db.SelectContext(ctx, &categories, query, args...); err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	return categories, nil
}

// IsFirstRun implements Store.
func (s *SQLiteStore) IsFirstRun(ctx context.Context) bool {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM records)`); err != nil {
		slog.Warn("checking for existing records", "error", err)
		return false
	}
	return !exists
}

// loadCategories attaches categories to records in their stored order. It
// runs as a second query so the record listing stays a simple SELECT.
func (s *SQLiteStore) loadCategories(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}

	query, args, err := sq.Select("record_id", "category").
		From("record_categories").
		Where(sq.Eq{"record_id": ids}).
		OrderBy("record_id", "position").
		ToSql()
	if err != nil {
		return fmt.Errorf("building categories query: %w", err)
	}

	var rows []struct {
		RecordID string `db:"record_id"`
		Category string `db:"category"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return fmt.Errorf("loading categories for records: %w", err)
	}

	byRecord := make(map[string][]string, len(records))
	for _, row := range rows {
		byRecord[row.RecordID] = append(byRecord[row.RecordID], row.Category)
	}
	for i := range records {
		if cats, ok := byRecord[records[i].ID]; ok {
			records[i].Categories = cats
		}
	}
	return nil
}
