package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"shelfhub/pkg/apperr"
	"shelfhub/pkg/models"
)

// Tracker upserts per-user per-content progress and derives the continue /
// history / bookmark views. Successful updates are pushed onto events
// (non-blocking, dropped when full) for the live feed.
type Tracker struct {
	db     *sql.DB
	logger *zap.Logger
	events chan<- models.ProgressEvent
}

func NewTracker(db *sql.DB, logger *zap.Logger, events chan<- models.ProgressEvent) *Tracker {
	return &Tracker{db: db, logger: logger, events: events}
}

// Patch lists the independently-optional progress fields; nil means
// unchanged, never reset-to-default.
type Patch struct {
	Progress      *float64 `json:"progress"`
	CurrentPage   *int     `json:"currentPage"`
	TotalPages    *int     `json:"totalPages"`
	CurrentTime   *float64 `json:"currentTime"`
	TotalDuration *float64 `json:"totalDuration"`
	IsCompleted   *bool    `json:"isCompleted"`
	Bookmarked    *bool    `json:"bookmarked"`
}

func (p Patch) empty() bool {
	return p.Progress == nil && p.CurrentPage == nil && p.TotalPages == nil &&
		p.CurrentTime == nil && p.TotalDuration == nil && p.IsCompleted == nil && p.Bookmarked == nil
}

func (p Patch) touchesReading() bool   { return p.CurrentPage != nil || p.TotalPages != nil }
func (p Patch) touchesListening() bool { return p.CurrentTime != nil || p.TotalDuration != nil }

// UpdateProgress creates the record on first update and applies a partial
// update on subsequent ones. Axis timestamps move independently: for hybrid
// books a page field touches only lastReadAt and a time field only
// lastListenAt.
func (t *Tracker) UpdateProgress(ctx context.Context, userID string, ref models.ContentRef, patch Patch) (*models.UserProgress, error) {
	if !ref.Kind.Valid() {
		return nil, apperr.BadRequest("invalid contentType. Allowed: ebook, audiobook, book")
	}
	if patch.empty() {
		return nil, apperr.BadRequest("no progress fields provided to update")
	}

	now := time.Now().UTC()

	// First update for this (user, content) pair creates the row, stamping
	// the resolved content model and the start time.
	if _, err := t.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_progress (user_id, content_id, content_type, content_model, started_at, updated_at)
		VALUES (?,?,?,?,?,?)`,
		userID, ref.ID, string(ref.Kind), ref.Kind.Model(), now, now); err != nil {
		return nil, fmt.Errorf("ensure progress row: %w", err)
	}

	sets := []string{"updated_at = ?"}
	args := []any{now}
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if patch.Progress != nil {
		set("progress", *patch.Progress)
	}
	if patch.CurrentPage != nil {
		set("current_page", *patch.CurrentPage)
	}
	if patch.TotalPages != nil {
		set("total_pages", *patch.TotalPages)
	}
	if patch.CurrentTime != nil {
		set("current_time_sec", *patch.CurrentTime)
	}
	if patch.TotalDuration != nil {
		set("total_duration", *patch.TotalDuration)
	}
	if patch.IsCompleted != nil {
		set("is_completed", *patch.IsCompleted)
	}
	if patch.Bookmarked != nil {
		set("bookmarked", *patch.Bookmarked)
	}

	switch ref.Kind {
	case models.KindBook:
		if patch.touchesReading() {
			set("last_read_at", now)
		}
		if patch.touchesListening() {
			set("last_listen_at", now)
		}
	case models.KindEbook:
		set("last_read_at", now)
	case models.KindAudioBook:
		set("last_listen_at", now)
	}

	q := `UPDATE user_progress SET ` + strings.Join(sets, ", ") +
		` WHERE user_id = ? AND content_id = ? AND content_type = ?`
	args = append(args, userID, ref.ID, string(ref.Kind))
	if _, err := t.db.ExecContext(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("update progress: %w", err)
	}

	// Daily activity is best-effort bookkeeping; a failure never fails the
	// progress update itself.
	if err := t.bumpDailyActivity(ctx, userID, ref.Kind, patch, now); err != nil {
		t.logger.Warn("daily activity update failed", zap.String("user_id", userID), zap.Error(err))
	}

	updated, err := t.GetContentProgress(ctx, userID, ref)
	if err != nil {
		return nil, err
	}

	t.publish(models.ProgressEvent{
		UserID:      userID,
		ContentID:   ref.ID,
		ContentType: ref.Kind,
		Progress:    updated.Progress,
		Timestamp:   now.Unix(),
	})
	return updated, nil
}

func (t *Tracker) publish(evt models.ProgressEvent) {
	if t.events == nil {
		return
	}
	select {
	case t.events <- evt:
	default:
		t.logger.Warn("progress event channel full, drop event")
	}
}

func (t *Tracker) bumpDailyActivity(ctx context.Context, userID string, kind models.ContentKind, patch Patch, now time.Time) error {
	day := now.Format("2006-01-02")
	if _, err := t.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_activity (user_id, date) VALUES (?,?)`, userID, day); err != nil {
		return err
	}

	switch kind {
	case models.KindEbook, models.KindBook:
		pages := 0
		if patch.CurrentPage != nil && *patch.CurrentPage > 0 {
			pages = 1
		}
		_, err := t.db.ExecContext(ctx, `
			UPDATE user_activity
			SET pages_read = pages_read + ?, reading_minutes = reading_minutes + 1, ebooks_read = 1
			WHERE user_id = ? AND date = ?`, pages, userID, day)
		return err
	case models.KindAudioBook:
		listened := 0
		if patch.CurrentTime != nil && *patch.CurrentTime > 0 {
			listened = 30
		}
		_, err := t.db.ExecContext(ctx, `
			UPDATE user_activity
			SET time_listened = time_listened + ?, listening_minutes = listening_minutes + 1, audiobooks_listened = 1
			WHERE user_id = ? AND date = ?`, listened, userID, day)
		return err
	}
	return nil
}

func (t *Tracker) GetContentProgress(ctx context.Context, userID string, ref models.ContentRef) (*models.UserProgress, error) {
	row := t.db.QueryRowContext(ctx, `
		SELECT `+progressCols+` FROM user_progress
		WHERE user_id = ? AND content_id = ? AND content_type = ?`,
		userID, ref.ID, string(ref.Kind))

	p, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("progress not found")
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ToggleBookmark flips the bookmark flag on an existing progress record.
// Starting to read or listen first is a precondition.
func (t *Tracker) ToggleBookmark(ctx context.Context, userID string, ref models.ContentRef) (*models.UserProgress, error) {
	existing, err := t.GetContentProgress(ctx, userID, ref)
	if err != nil {
		if apperr.StatusOf(err) == 404 {
			return nil, apperr.NotFound("progress not found. Start reading/listening first.")
		}
		return nil, err
	}

	_, err = t.db.ExecContext(ctx, `
		UPDATE user_progress SET bookmarked = ?, updated_at = ?
		WHERE user_id = ? AND content_id = ? AND content_type = ?`,
		!existing.Bookmarked, time.Now().UTC(), userID, ref.ID, string(ref.Kind))
	if err != nil {
		return nil, fmt.Errorf("toggle bookmark: %w", err)
	}
	return t.GetContentProgress(ctx, userID, ref)
}
