package catalog

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"shelfhub/pkg/models"
)

var allKinds = []models.ContentKind{models.KindAudioBook, models.KindEbook, models.KindBook}

// Filter narrows a cross-collection listing. All predicates are ANDed.
type Filter struct {
	Search       string // case-insensitive substring on book_name
	CategoryName string // case-insensitive exact match
	CategoryID   string
	Type         string // "", "all", "book", "ebook", "audiobook"/"audio"
}

func (f Filter) kinds() []models.ContentKind {
	switch f.Type {
	case "", "all":
		return allKinds
	case "audio", "audiobook":
		return []models.ContentKind{models.KindAudioBook}
	case "ebook":
		return []models.ContentKind{models.KindEbook}
	case "book":
		return []models.ContentKind{models.KindBook}
	}
	return nil
}

func (f Filter) where() (string, []any) {
	where := "1=1"
	var args []any
	if f.Search != "" {
		where += " AND book_name LIKE ?"
		args = append(args, "%"+f.Search+"%")
	}
	if f.CategoryName != "" {
		where += " AND LOWER(category_name) = LOWER(?)"
		args = append(args, f.CategoryName)
	}
	if f.CategoryID != "" {
		where += " AND category_id = ?"
		args = append(args, f.CategoryID)
	}
	return where, args
}

type ContentPage struct {
	Items      []*models.ContentItem `json:"items"`
	Pagination models.Pagination     `json:"pagination"`
}

// ListContent queries each selected collection concurrently, merges the
// results into one globally sorted sequence and paginates over the merged
// set. Page boundaries may split items contributed by different collections;
// that is the point of merged pagination.
func (s *Service) ListContent(ctx context.Context, filter Filter, page, limit int) (*ContentPage, error) {
	kinds := filter.kinds()
	if kinds == nil {
		kinds = allKinds
	}
	where, args := filter.where()

	perKind := make([][]*models.ContentItem, len(kinds))
	counts := make([]int, len(kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		i, kind := i, kind
		g.Go(func() error {
			items, err := queryItems(gctx, s.db, kind, where, args, "ORDER BY created_at DESC")
			if err != nil {
				return err
			}
			count, err := countItems(gctx, s.db, kind, where, args)
			if err != nil {
				return err
			}
			perKind[i] = items
			counts[i] = count
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []*models.ContentItem
	pagination := models.Pagination{}
	for i, kind := range kinds {
		merged = append(merged, perKind[i]...)
		switch kind {
		case models.KindBook:
			pagination.TotalBooks = counts[i]
		case models.KindEbook:
			pagination.TotalEbooks = counts[i]
		case models.KindAudioBook:
			pagination.TotalAudioBooks = counts[i]
		}
	}

	// Per-collection order does not interleave correctly once merged, so
	// the concatenation is re-sorted globally.
	sortByCreatedAtDesc(merged)

	total := len(merged)
	pagination.Total = total
	pagination.Page = 1
	pagination.TotalPages = 1

	if page > 0 && limit > 0 {
		skip := (page - 1) * limit
		pagination.Page = page
		pagination.Limit = limit
		pagination.TotalPages = (total + limit - 1) / limit
		pagination.HasNextPage = page < pagination.TotalPages
		pagination.HasPreviousPage = page > 1

		merged = slicePage(merged, skip, limit)
	} else {
		pagination.Limit = total
	}

	if merged == nil {
		merged = []*models.ContentItem{}
	}
	return &ContentPage{Items: merged, Pagination: pagination}, nil
}

// sortByCreatedAtDesc orders newest first, with id descending as an explicit
// deterministic tie-break for equal timestamps.
func sortByCreatedAtDesc(items []*models.ContentItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
}

func slicePage[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return nil
	}
	end := skip + limit
	if end > len(items) {
		end = len(items)
	}
	return items[skip:end]
}
