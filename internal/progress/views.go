package progress

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"shelfhub/pkg/models"
)

const progressCols = `user_id, content_id, content_type, content_model, progress, current_page, total_pages, current_time_sec, total_duration, is_completed, bookmarked, started_at, last_read_at, last_listen_at, updated_at`

func scanProgress(s interface{ Scan(...any) error }) (*models.UserProgress, error) {
	var p models.UserProgress
	var lastRead, lastListen sql.NullTime
	err := s.Scan(&p.UserID, &p.ContentID, &p.ContentType, &p.ContentModel,
		&p.Progress, &p.CurrentPage, &p.TotalPages, &p.CurrentTime, &p.TotalDuration,
		&p.IsCompleted, &p.Bookmarked, &p.StartedAt, &lastRead, &lastListen, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastRead.Valid {
		p.LastReadAt = &lastRead.Time
	}
	if lastListen.Valid {
		p.LastListenAt = &lastListen.Time
	}
	return &p, nil
}

func (t *Tracker) queryProgress(ctx context.Context, where string, tail string, args ...any) ([]*models.UserProgress, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT `+progressCols+` FROM user_progress WHERE `+where+` `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.UserProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ContinueItem pairs a progress record with the content it refers to, for
// the continue-reading / continue-listening shelves.
type ContinueItem struct {
	Progress *models.UserProgress `json:"progress"`
	Content  *models.ContentItem  `json:"content,omitempty"`
}

type ContinueItems struct {
	ContinueReading   []*ContinueItem `json:"continueReading"`
	ContinueListening []*ContinueItem `json:"continueListening"`
}

// ContentLookup resolves a tagged content reference; the catalog service
// satisfies it.
type ContentLookup interface {
	GetByRef(ctx context.Context, ref models.ContentRef) (*models.ContentItem, error)
}

// GetContinueItems returns the two shelves independently. A hybrid book with
// both axes incomplete legitimately appears on both.
func (t *Tracker) GetContinueItems(ctx context.Context, userID string, limit int, lookup ContentLookup) (*ContinueItems, error) {
	if limit <= 0 {
		limit = 10
	}

	reading, err := t.queryProgress(ctx,
		`user_id = ? AND content_type IN ('ebook','book') AND is_completed = 0`,
		`ORDER BY last_read_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}

	listening, err := t.queryProgress(ctx,
		`user_id = ? AND content_type IN ('audiobook','book') AND is_completed = 0`,
		`ORDER BY last_listen_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}

	return &ContinueItems{
		ContinueReading:   t.enrich(ctx, reading, lookup),
		ContinueListening: t.enrich(ctx, listening, lookup),
	}, nil
}

func (t *Tracker) enrich(ctx context.Context, records []*models.UserProgress, lookup ContentLookup) []*ContinueItem {
	items := make([]*ContinueItem, 0, len(records))
	for _, p := range records {
		item := &ContinueItem{Progress: p}
		if lookup != nil {
			ref := models.ContentRef{Kind: p.ContentType, ID: p.ContentID}
			if content, err := lookup.GetByRef(ctx, ref); err == nil {
				item.Content = content
			}
		}
		items = append(items, item)
	}
	return items
}

type ProgressPage struct {
	Records    []*ContinueItem   `json:"records"`
	Pagination models.Pagination `json:"pagination"`
}

// GetHistory returns the user's records for one content type, newest
// activity first on the axis that matters for that type.
func (t *Tracker) GetHistory(ctx context.Context, userID string, contentType models.ContentKind, page, limit int, lookup ContentLookup) (*ProgressPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	sortCol := "last_read_at"
	if contentType == models.KindAudioBook {
		sortCol = "last_listen_at"
	}

	records, err := t.queryProgress(ctx,
		`user_id = ? AND content_type = ?`,
		`ORDER BY `+sortCol+` DESC LIMIT ? OFFSET ?`,
		userID, string(contentType), limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	var total int
	if err := t.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_progress WHERE user_id = ? AND content_type = ?`,
		userID, string(contentType)).Scan(&total); err != nil {
		return nil, err
	}

	return &ProgressPage{
		Records:    t.enrich(ctx, records, lookup),
		Pagination: paginate(total, page, limit),
	}, nil
}

func (t *Tracker) GetBookmarks(ctx context.Context, userID string, page, limit int, lookup ContentLookup) (*ProgressPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	records, err := t.queryProgress(ctx,
		`user_id = ? AND bookmarked = 1`,
		`ORDER BY updated_at DESC LIMIT ? OFFSET ?`,
		userID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	var total int
	if err := t.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_progress WHERE user_id = ? AND bookmarked = 1`,
		userID).Scan(&total); err != nil {
		return nil, err
	}

	return &ProgressPage{
		Records:    t.enrich(ctx, records, lookup),
		Pagination: paginate(total, page, limit),
	}, nil
}

func paginate(total, page, limit int) models.Pagination {
	totalPages := (total + limit - 1) / limit
	return models.Pagination{
		Total:           total,
		Page:            page,
		Limit:           limit,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}

type DailyActivity struct {
	Date         string `json:"date"`
	Ebooks       int    `json:"ebooks"`
	PagesRead    int    `json:"pagesRead"`
	Reading      int    `json:"reading"` // estimated minutes
	Audiobooks   int    `json:"audiobooks"`
	Listening    int    `json:"listening"` // minutes
	TimeListened int    `json:"timeListened"`
}

type ActivityStats struct {
	Period string `json:"period"`
	Totals struct {
		EbooksRead         int `json:"ebooksRead"`
		PagesRead          int `json:"pagesRead"`
		AudiobooksListened int `json:"audiobooksListened"`
		TimeListened       int `json:"timeListened"`
		ReadingMinutes     int `json:"readingMinutes"`
		ListeningMinutes   int `json:"listeningMinutes"`
	} `json:"totals"`
	DailyBreakdown []*DailyActivity `json:"dailyBreakdown"`
}

// GetActivityStats buckets the user's progress records by day over the last
// week or month and sums each axis.
func (t *Tracker) GetActivityStats(ctx context.Context, userID, period string) (*ActivityStats, error) {
	now := time.Now().UTC()
	var start time.Time
	switch period {
	case "month":
		start = now.AddDate(0, -1, 0)
	default:
		period = "week"
		start = now.AddDate(0, 0, -7)
	}

	stats := &ActivityStats{Period: period}
	daily := map[string]*DailyActivity{}
	day := func(date string) *DailyActivity {
		if d, ok := daily[date]; ok {
			return d
		}
		d := &DailyActivity{Date: date}
		daily[date] = d
		return d
	}

	rows, err := t.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m-%d', last_read_at) AS day, COUNT(*), COALESCE(SUM(current_page), 0)
		FROM user_progress
		WHERE user_id = ? AND content_type IN ('ebook','book') AND last_read_at BETWEEN ? AND ?
		GROUP BY day ORDER BY day`, userID, start, now)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var date string
		var count, pages int
		if err := rows.Scan(&date, &count, &pages); err != nil {
			rows.Close()
			return nil, err
		}
		d := day(date)
		d.Ebooks = count
		d.PagesRead = pages
		d.Reading = pages * 2 // rough estimate, ~2 min per page
		stats.Totals.EbooksRead += count
		stats.Totals.PagesRead += pages
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = t.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m-%d', last_listen_at) AS day, COUNT(*), COALESCE(SUM(current_time_sec), 0)
		FROM user_progress
		WHERE user_id = ? AND content_type IN ('audiobook','book') AND last_listen_at BETWEEN ? AND ?
		GROUP BY day ORDER BY day`, userID, start, now)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var date string
		var count int
		var seconds float64
		if err := rows.Scan(&date, &count, &seconds); err != nil {
			rows.Close()
			return nil, err
		}
		d := day(date)
		d.Audiobooks = count
		d.TimeListened = int(seconds)
		d.Listening = int(seconds) / 60
		stats.Totals.AudiobooksListened += count
		stats.Totals.TimeListened += int(seconds)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.Totals.ReadingMinutes = stats.Totals.PagesRead * 2
	stats.Totals.ListeningMinutes = stats.Totals.TimeListened / 60

	stats.DailyBreakdown = make([]*DailyActivity, 0, len(daily))
	for _, d := range daily {
		stats.DailyBreakdown = append(stats.DailyBreakdown, d)
	}
	sort.Slice(stats.DailyBreakdown, func(i, j int) bool {
		return stats.DailyBreakdown[i].Date < stats.DailyBreakdown[j].Date
	})
	return stats, nil
}
