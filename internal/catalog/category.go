package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"shelfhub/pkg/apperr"
	"shelfhub/pkg/models"
)

func (s *Service) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var c models.Category
	var image sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, image, created_at FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &image, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("category not found")
	}
	if err != nil {
		return nil, err
	}
	c.Image = image.String
	return &c, nil
}

func (s *Service) CreateCategory(ctx context.Context, name, image string, actor Actor) (*models.Category, error) {
	if !actor.isAdmin() {
		return nil, apperr.Forbidden("only admins or super admins can create categories")
	}
	if name == "" {
		return nil, apperr.BadRequest("category name is required")
	}
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, image) VALUES (?,?,?)`, id, name, image); err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	return s.GetCategory(ctx, id)
}

// CategoriesWithCounts lists every category with per-kind content counts,
// counting the three collections concurrently per category.
func (s *Service) CategoriesWithCounts(ctx context.Context) ([]*models.CategoryWithCounts, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, image, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*models.CategoryWithCounts
	for rows.Next() {
		var c models.CategoryWithCounts
		var image sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &image, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Image = image.String
		categories = append(categories, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range categories {
		c := c
		g.Go(func() error {
			where, args := "category_id = ?", []any{c.ID}
			audio, err := countItems(gctx, s.db, models.KindAudioBook, where, args)
			if err != nil {
				return err
			}
			ebook, err := countItems(gctx, s.db, models.KindEbook, where, args)
			if err != nil {
				return err
			}
			book, err := countItems(gctx, s.db, models.KindBook, where, args)
			if err != nil {
				return err
			}
			c.AudioBookCount = audio
			c.EbookCount = ebook
			c.BookCount = book
			c.TotalBooks = audio + ebook + book
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if categories == nil {
		categories = []*models.CategoryWithCounts{}
	}
	return categories, nil
}

type CategoryContent struct {
	Category *models.Category `json:"category"`
	Page     *ContentPage     `json:"books"`
}

// CategoryContent lists a category's content across the selected kinds with
// merged pagination. The category must exist.
func (s *Service) CategoryContent(ctx context.Context, categoryID, typ string, page, limit int) (*CategoryContent, error) {
	category, err := s.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	contentPage, err := s.ListContent(ctx, Filter{CategoryID: categoryID, Type: typ}, page, limit)
	if err != nil {
		return nil, err
	}

	return &CategoryContent{Category: category, Page: contentPage}, nil
}
