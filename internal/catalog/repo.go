package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"shelfhub/pkg/models"
)

// Column lists per table. Books carry both the page-oriented and the
// audio-oriented columns; the other two tables carry one side each.
const (
	bookCols      = `id, book_name, book_cover, synopsis, category_id, category_name, tags, view_count, is_saved, page_count, pdf_file, duration, audio_file, created_by, created_at`
	ebookCols     = `id, book_name, book_cover, synopsis, category_id, category_name, tags, view_count, is_saved, page_count, pdf_file, created_by, created_at`
	audioBookCols = `id, book_name, book_cover, synopsis, category_id, category_name, tags, view_count, is_saved, duration, audio_file, created_by, created_at`
)

func tableFor(kind models.ContentKind) string {
	switch kind {
	case models.KindBook:
		return "books"
	case models.KindEbook:
		return "ebooks"
	case models.KindAudioBook:
		return "audiobooks"
	}
	return ""
}

func colsFor(kind models.ContentKind) string {
	switch kind {
	case models.KindBook:
		return bookCols
	case models.KindEbook:
		return ebookCols
	case models.KindAudioBook:
		return audioBookCols
	}
	return ""
}

func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func decodeTags(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw.String), &tags); err != nil {
		return []string{}
	}
	return tags
}

func scanItem(kind models.ContentKind, s interface{ Scan(...any) error }) (*models.ContentItem, error) {
	item := &models.ContentItem{Kind: kind}
	var tags sql.NullString
	var cover, createdBy sql.NullString

	var dest []any
	switch kind {
	case models.KindBook:
		item.IsBook = true
		var pdf, audio sql.NullString
		dest = []any{&item.ID, &item.BookName, &cover, &item.Synopsis, &item.CategoryID, &item.CategoryName,
			&tags, &item.ViewCount, &item.IsSaved, &item.PageCount, &pdf, &item.Duration, &audio, &createdBy, &item.CreatedAt}
		if err := s.Scan(dest...); err != nil {
			return nil, err
		}
		item.PDFFile = pdf.String
		item.AudioFile = audio.String
	case models.KindEbook:
		item.IsEbook = true
		var pdf sql.NullString
		dest = []any{&item.ID, &item.BookName, &cover, &item.Synopsis, &item.CategoryID, &item.CategoryName,
			&tags, &item.ViewCount, &item.IsSaved, &item.PageCount, &pdf, &createdBy, &item.CreatedAt}
		if err := s.Scan(dest...); err != nil {
			return nil, err
		}
		item.PDFFile = pdf.String
	case models.KindAudioBook:
		item.IsAudioBook = true
		var audio sql.NullString
		dest = []any{&item.ID, &item.BookName, &cover, &item.Synopsis, &item.CategoryID, &item.CategoryName,
			&tags, &item.ViewCount, &item.IsSaved, &item.Duration, &audio, &createdBy, &item.CreatedAt}
		if err := s.Scan(dest...); err != nil {
			return nil, err
		}
		item.AudioFile = audio.String
	default:
		return nil, fmt.Errorf("unknown content kind %q", kind)
	}

	item.BookCover = cover.String
	item.CreatedBy = createdBy.String
	item.Tags = decodeTags(tags)
	return item, nil
}

func queryItems(ctx context.Context, db *sql.DB, kind models.ContentKind, where string, args []any, tail string) ([]*models.ContentItem, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE %s`, colsFor(kind), tableFor(kind), where)
	if tail != "" {
		q += " " + tail
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.ContentItem
	for rows.Next() {
		item, err := scanItem(kind, rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func countItems(ctx context.Context, db *sql.DB, kind models.ContentKind, where string, args []any) (int, error) {
	var n int
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, tableFor(kind), where)
	err := db.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}

func getByRef(ctx context.Context, db *sql.DB, ref models.ContentRef) (*models.ContentItem, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, colsFor(ref.Kind), tableFor(ref.Kind))
	return scanItem(ref.Kind, db.QueryRowContext(ctx, q, ref.ID))
}

// incrementViewCount is a single atomic UPDATE so concurrent readers never
// lose increments.
func incrementViewCount(ctx context.Context, db *sql.DB, ref models.ContentRef) error {
	q := fmt.Sprintf(`UPDATE %s SET view_count = view_count + 1 WHERE id = ?`, tableFor(ref.Kind))
	_, err := db.ExecContext(ctx, q, ref.ID)
	return err
}

// tagMatchClause builds an OR chain matching any of the given tags against
// the JSON-encoded tags column.
func tagMatchClause(tags []string) (string, []any) {
	if len(tags) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(tags))
	args := make([]any, 0, len(tags))
	for _, t := range tags {
		clauses = append(clauses, "tags LIKE ?")
		args = append(args, `%"`+t+`"%`)
	}
	return "(" + strings.Join(clauses, " OR ") + ")", args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
