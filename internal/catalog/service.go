package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shelfhub/pkg/apperr"
	"shelfhub/pkg/models"
	"shelfhub/pkg/timeutil"
)

// FileDeleter is the slice of the upload coordinator the catalog needs:
// removing superseded or cascaded files. Deletion is best-effort and never
// rolls back the database mutation.
type FileDeleter interface {
	DeleteFile(ctx context.Context, fileKey string) error
}

type Actor struct {
	ID   string
	Role string
}

func (a Actor) isAdmin() bool {
	return a.Role == models.RoleAdmin || a.Role == models.RoleSuperAdmin
}

// Service owns the three content collections and the cross-collection
// aggregation views. rng drives feed shuffling and is injected so tests can
// seed it.
type Service struct {
	db     *sql.DB
	files  FileDeleter
	logger *zap.Logger
	rng    *rand.Rand
}

func NewService(db *sql.DB, files FileDeleter, logger *zap.Logger, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{db: db, files: files, logger: logger, rng: rng}
}

// ContentInput is the create payload shared by the three kinds; fields not
// applicable to a kind are ignored. Duration accepts a number of seconds or
// a clock string and is normalized before it is stored.
type ContentInput struct {
	BookName   string   `json:"bookName"`
	BookCover  string   `json:"bookCover"`
	Synopsis   string   `json:"synopsis"`
	CategoryID string   `json:"category"`
	Tags       []string `json:"tags"`
	PageCount  int      `json:"pageCount"`
	PDFFile    string   `json:"pdfFile"`
	Duration   any      `json:"duration"`
	AudioFile  string   `json:"audioFile"`
}

// ContentPatch lists the independently-optional fields of an update; nil
// means unchanged.
type ContentPatch struct {
	BookName   *string   `json:"bookName"`
	BookCover  *string   `json:"bookCover"`
	Synopsis   *string   `json:"synopsis"`
	CategoryID *string   `json:"category"`
	Tags       *[]string `json:"tags"`
	PageCount  *int      `json:"pageCount"`
	PDFFile    *string   `json:"pdfFile"`
	Duration   any       `json:"duration"`
	AudioFile  *string   `json:"audioFile"`
}

func (s *Service) CreateContent(ctx context.Context, kind models.ContentKind, in ContentInput, actor Actor) (*models.ContentItem, error) {
	if !actor.isAdmin() {
		return nil, apperr.Forbidden("only admins or super admins can create content")
	}
	if !kind.Valid() {
		return nil, apperr.BadRequest("invalid content kind")
	}
	if in.BookName == "" || in.CategoryID == "" {
		return nil, apperr.BadRequest("bookName and category are required")
	}

	category, err := s.GetCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	duration := timeutil.ParseDurationSeconds(in.Duration)

	switch kind {
	case models.KindBook:
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO books (id, book_name, book_cover, synopsis, category_id, category_name, tags, page_count, pdf_file, duration, audio_file, created_by, created_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			id, in.BookName, in.BookCover, in.Synopsis, category.ID, category.Name, encodeTags(in.Tags),
			in.PageCount, in.PDFFile, duration, in.AudioFile, actor.ID, now)
	case models.KindEbook:
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO ebooks (id, book_name, book_cover, synopsis, category_id, category_name, tags, page_count, pdf_file, created_by, created_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			id, in.BookName, in.BookCover, in.Synopsis, category.ID, category.Name, encodeTags(in.Tags),
			in.PageCount, in.PDFFile, actor.ID, now)
	case models.KindAudioBook:
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO audiobooks (id, book_name, book_cover, synopsis, category_id, category_name, tags, duration, audio_file, created_by, created_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			id, in.BookName, in.BookCover, in.Synopsis, category.ID, category.Name, encodeTags(in.Tags),
			duration, in.AudioFile, actor.ID, now)
	}
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", kind, err)
	}

	return s.GetByRef(ctx, models.ContentRef{Kind: kind, ID: id})
}

func (s *Service) GetByRef(ctx context.Context, ref models.ContentRef) (*models.ContentItem, error) {
	if !ref.Kind.Valid() {
		return nil, apperr.BadRequest("invalid content kind")
	}
	item, err := getByRef(ctx, s.db, ref)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("content not found")
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// FindByID probes the three collections for an id whose kind is unknown.
// Callers that know the kind should carry a ContentRef instead.
func (s *Service) FindByID(ctx context.Context, id string) (*models.ContentItem, error) {
	for _, kind := range []models.ContentKind{models.KindBook, models.KindAudioBook, models.KindEbook} {
		item, err := getByRef(ctx, s.db, models.ContentRef{Kind: kind, ID: id})
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}
	return nil, apperr.NotFound("content not found")
}

func (s *Service) UpdateContent(ctx context.Context, ref models.ContentRef, patch ContentPatch, actor Actor) (*models.ContentItem, error) {
	if !actor.isAdmin() {
		return nil, apperr.Forbidden("only admins or super admins can update content")
	}

	existing, err := s.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if patch.BookName != nil {
		set("book_name", *patch.BookName)
	}
	if patch.Synopsis != nil {
		set("synopsis", *patch.Synopsis)
	}
	if patch.Tags != nil {
		set("tags", encodeTags(*patch.Tags))
	}
	if patch.CategoryID != nil {
		category, err := s.GetCategory(ctx, *patch.CategoryID)
		if err != nil {
			return nil, err
		}
		set("category_id", category.ID)
		set("category_name", category.Name)
	}

	// Replaced file references trigger best-effort deletion of the old
	// objects after the row is updated.
	var supersededKeys []string
	if patch.BookCover != nil {
		set("book_cover", *patch.BookCover)
		if existing.BookCover != "" && existing.BookCover != *patch.BookCover {
			supersededKeys = append(supersededKeys, existing.BookCover)
		}
	}
	if ref.Kind != models.KindAudioBook {
		if patch.PageCount != nil {
			set("page_count", *patch.PageCount)
		}
		if patch.PDFFile != nil {
			set("pdf_file", *patch.PDFFile)
			if existing.PDFFile != "" && existing.PDFFile != *patch.PDFFile {
				supersededKeys = append(supersededKeys, existing.PDFFile)
			}
		}
	}
	if ref.Kind != models.KindEbook {
		if patch.Duration != nil {
			set("duration", timeutil.ParseDurationSeconds(patch.Duration))
		}
		if patch.AudioFile != nil {
			set("audio_file", *patch.AudioFile)
			if existing.AudioFile != "" && existing.AudioFile != *patch.AudioFile {
				supersededKeys = append(supersededKeys, existing.AudioFile)
			}
		}
	}

	if len(sets) == 0 {
		return existing, nil
	}

	q := fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, tableFor(ref.Kind), joinSets(sets))
	args = append(args, ref.ID)
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("update %s: %w", ref.Kind, err)
	}

	s.deleteFiles(ctx, supersededKeys)
	return s.GetByRef(ctx, ref)
}

func (s *Service) DeleteContent(ctx context.Context, ref models.ContentRef, actor Actor) error {
	if !actor.isAdmin() {
		return apperr.Forbidden("only admins or super admins can delete content")
	}

	existing, err := s.GetByRef(ctx, ref)
	if err != nil {
		return err
	}

	q := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, tableFor(ref.Kind))
	if _, err := s.db.ExecContext(ctx, q, ref.ID); err != nil {
		return fmt.Errorf("delete %s: %w", ref.Kind, err)
	}

	s.deleteFiles(ctx, []string{existing.BookCover, existing.PDFFile, existing.AudioFile})
	return nil
}

func (s *Service) IncrementViewCount(ctx context.Context, ref models.ContentRef) error {
	if !ref.Kind.Valid() {
		return apperr.BadRequest("invalid content kind")
	}
	return incrementViewCount(ctx, s.db, ref)
}

// ToggleSaved flips the saved flag and returns the updated item.
func (s *Service) ToggleSaved(ctx context.Context, ref models.ContentRef) (*models.ContentItem, error) {
	if _, err := s.GetByRef(ctx, ref); err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`UPDATE %s SET is_saved = 1 - is_saved WHERE id = ?`, tableFor(ref.Kind))
	if _, err := s.db.ExecContext(ctx, q, ref.ID); err != nil {
		return nil, fmt.Errorf("toggle saved: %w", err)
	}
	return s.GetByRef(ctx, ref)
}

func (s *Service) SavedContent(ctx context.Context) ([]*models.ContentItem, error) {
	var all []*models.ContentItem
	for _, kind := range allKinds {
		items, err := queryItems(ctx, s.db, kind, "is_saved = 1", nil, "ORDER BY created_at DESC")
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	sortByCreatedAtDesc(all)
	return all, nil
}

func (s *Service) deleteFiles(ctx context.Context, keys []string) {
	if s.files == nil {
		return
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		// Best-effort: failure is logged inside the coordinator and the
		// mutation stands.
		_ = s.files.DeleteFile(ctx, key)
	}
}

func joinSets(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += ", " + s
	}
	return out
}
