package catalog

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shelfhub/pkg/apperr"
	"shelfhub/pkg/database"
	"shelfhub/pkg/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return NewService(db, nil, zap.NewNop(), rand.New(rand.NewSource(1)))
}

func seedCategory(t *testing.T, s *Service, id, name string) {
	t.Helper()
	_, err := s.db.Exec(`INSERT INTO categories (id, name) VALUES (?,?)`, id, name)
	require.NoError(t, err)
}

type seedItem struct {
	kind      models.ContentKind
	id        string
	name      string
	catID     string
	catName   string
	tags      []string
	viewCount int
	createdAt time.Time
}

func seedContent(t *testing.T, s *Service, items ...seedItem) {
	t.Helper()
	for _, it := range items {
		var err error
		switch it.kind {
		case models.KindBook:
			_, err = s.db.Exec(`
				INSERT INTO books (id, book_name, synopsis, category_id, category_name, tags, view_count, created_at)
				VALUES (?,?,?,?,?,?,?,?)`,
				it.id, it.name, "", it.catID, it.catName, encodeTags(it.tags), it.viewCount, it.createdAt)
		case models.KindEbook:
			_, err = s.db.Exec(`
				INSERT INTO ebooks (id, book_name, synopsis, category_id, category_name, tags, view_count, created_at)
				VALUES (?,?,?,?,?,?,?,?)`,
				it.id, it.name, "", it.catID, it.catName, encodeTags(it.tags), it.viewCount, it.createdAt)
		case models.KindAudioBook:
			_, err = s.db.Exec(`
				INSERT INTO audiobooks (id, book_name, synopsis, category_id, category_name, tags, view_count, created_at)
				VALUES (?,?,?,?,?,?,?,?)`,
				it.id, it.name, "", it.catID, it.catName, encodeTags(it.tags), it.viewCount, it.createdAt)
		}
		require.NoError(t, err)
	}
}

// seedInterleaved creates four items per kind whose timestamps interleave
// across the three tables, so only a global re-sort produces the right order.
func seedInterleaved(t *testing.T, s *Service) []string {
	t.Helper()
	seedCategory(t, s, "cat-1", "Fantasy")

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	kinds := []models.ContentKind{models.KindBook, models.KindEbook, models.KindAudioBook}
	prefix := map[models.ContentKind]string{
		models.KindBook: "b", models.KindEbook: "e", models.KindAudioBook: "a",
	}

	var newestFirst []string
	for i := 0; i < 12; i++ {
		kind := kinds[i%3]
		id := fmt.Sprintf("%s%d", prefix[kind], i/3+1)
		seedContent(t, s, seedItem{
			kind: kind, id: id, name: "Item " + id,
			catID: "cat-1", catName: "Fantasy",
			createdAt: base.Add(time.Duration(i) * time.Minute),
		})
		newestFirst = append([]string{id}, newestFirst...)
	}
	return newestFirst
}

func itemIDs(items []*models.ContentItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func TestListContent_MergesAndSortsAcrossKinds(t *testing.T) {
	s := newTestService(t)
	want := seedInterleaved(t, s)

	page, err := s.ListContent(context.Background(), Filter{}, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, want, itemIDs(page.Items))
	assert.Equal(t, 12, page.Pagination.Total)
	assert.Equal(t, 4, page.Pagination.TotalBooks)
	assert.Equal(t, 4, page.Pagination.TotalEbooks)
	assert.Equal(t, 4, page.Pagination.TotalAudioBooks)
}

func TestListContent_PaginatesOverMergedSet(t *testing.T) {
	s := newTestService(t)
	want := seedInterleaved(t, s)

	page, err := s.ListContent(context.Background(), Filter{}, 2, 5)
	require.NoError(t, err)

	assert.Equal(t, want[5:10], itemIDs(page.Items))
	assert.Equal(t, 12, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.Page)
	assert.Equal(t, 5, page.Pagination.Limit)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasNextPage)
	assert.True(t, page.Pagination.HasPreviousPage)
}

func TestListContent_PageBeyondEnd(t *testing.T) {
	s := newTestService(t)
	seedInterleaved(t, s)

	page, err := s.ListContent(context.Background(), Filter{}, 4, 5)
	require.NoError(t, err)

	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items, "items must serialize as [] rather than null")
	assert.False(t, page.Pagination.HasNextPage)
}

func TestListContent_EqualTimestampTieBreak(t *testing.T) {
	s := newTestService(t)
	seedCategory(t, s, "cat-1", "Fantasy")

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seedContent(t, s,
		seedItem{kind: models.KindBook, id: "id-a", name: "A", catID: "cat-1", catName: "Fantasy", createdAt: ts},
		seedItem{kind: models.KindEbook, id: "id-z", name: "Z", catID: "cat-1", catName: "Fantasy", createdAt: ts},
		seedItem{kind: models.KindAudioBook, id: "id-m", name: "M", catID: "cat-1", catName: "Fantasy", createdAt: ts},
	)

	page, err := s.ListContent(context.Background(), Filter{}, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"id-z", "id-m", "id-a"}, itemIDs(page.Items),
		"equal timestamps break ties on id descending")
}

func TestListContent_Filters(t *testing.T) {
	s := newTestService(t)
	seedCategory(t, s, "cat-1", "Fantasy")
	seedCategory(t, s, "cat-2", "History")

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seedContent(t, s,
		seedItem{kind: models.KindBook, id: "b1", name: "The Dragon Keep", catID: "cat-1", catName: "Fantasy", createdAt: base},
		seedItem{kind: models.KindEbook, id: "e1", name: "Dragon Tales", catID: "cat-1", catName: "Fantasy", createdAt: base.Add(time.Minute)},
		seedItem{kind: models.KindAudioBook, id: "a1", name: "Rome Rising", catID: "cat-2", catName: "History", createdAt: base.Add(2 * time.Minute)},
	)

	t.Run("search substring", func(t *testing.T) {
		page, err := s.ListContent(context.Background(), Filter{Search: "Dragon"}, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"e1", "b1"}, itemIDs(page.Items))
	})

	t.Run("category name is case-insensitive", func(t *testing.T) {
		page, err := s.ListContent(context.Background(), Filter{CategoryName: "history"}, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"a1"}, itemIDs(page.Items))
	})

	t.Run("category id", func(t *testing.T) {
		page, err := s.ListContent(context.Background(), Filter{CategoryID: "cat-1"}, 0, 0)
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
	})

	t.Run("single kind", func(t *testing.T) {
		page, err := s.ListContent(context.Background(), Filter{Type: "audio"}, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"a1"}, itemIDs(page.Items))
		assert.Equal(t, 1, page.Pagination.TotalAudioBooks)
		assert.Equal(t, 0, page.Pagination.TotalBooks)
	})
}

func TestCategoriesWithCounts(t *testing.T) {
	s := newTestService(t)
	seedCategory(t, s, "cat-1", "Fantasy")
	seedCategory(t, s, "cat-2", "History")

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seedContent(t, s,
		seedItem{kind: models.KindBook, id: "b1", name: "B1", catID: "cat-1", catName: "Fantasy", createdAt: base},
		seedItem{kind: models.KindEbook, id: "e1", name: "E1", catID: "cat-1", catName: "Fantasy", createdAt: base},
		seedItem{kind: models.KindEbook, id: "e2", name: "E2", catID: "cat-1", catName: "Fantasy", createdAt: base},
		seedItem{kind: models.KindAudioBook, id: "a1", name: "A1", catID: "cat-2", catName: "History", createdAt: base},
	)

	categories, err := s.CategoriesWithCounts(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)

	fantasy := categories[0] // ordered by name
	assert.Equal(t, "Fantasy", fantasy.Name)
	assert.Equal(t, 1, fantasy.BookCount)
	assert.Equal(t, 2, fantasy.EbookCount)
	assert.Equal(t, 0, fantasy.AudioBookCount)
	assert.Equal(t, 3, fantasy.TotalBooks)

	history := categories[1]
	assert.Equal(t, 1, history.AudioBookCount)
	assert.Equal(t, 1, history.TotalBooks)
}

func TestCategoryContent_UnknownCategory(t *testing.T) {
	s := newTestService(t)

	_, err := s.CategoryContent(context.Background(), "missing", "all", 0, 0)
	require.Error(t, err)
	assert.Equal(t, 404, apperr.StatusOf(err))
}

func TestHomePage_GenericFeeds(t *testing.T) {
	s := newTestService(t)
	seedCategory(t, s, "cat-1", "Fantasy")

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seedContent(t, s,
		seedItem{kind: models.KindBook, id: "b1", name: "B1", catID: "cat-1", catName: "Fantasy", viewCount: 500, createdAt: base},
		seedItem{kind: models.KindEbook, id: "e1", name: "E1", catID: "cat-1", catName: "Fantasy", viewCount: 3, tags: []string{"recommended"}, createdAt: base.Add(time.Minute)},
		seedItem{kind: models.KindAudioBook, id: "a1", name: "A1", catID: "cat-1", catName: "Fantasy", viewCount: 50, createdAt: base.Add(2 * time.Minute)},
	)

	home, err := s.HomePage(context.Background(), "")
	require.NoError(t, err)

	assert.NotNil(t, home.ForYou)
	assert.Empty(t, home.ForYou, "no user means no personalized feed")

	// b1 qualifies on view count, e1 on the recommended tag; a1 on neither.
	assert.ElementsMatch(t, []string{"b1", "e1"}, itemIDs(home.Recommended))

	assert.Equal(t, []string{"a1", "e1", "b1"}, itemIDs(home.NewReleases))
	assert.Equal(t, "b1", home.Trending[0].ID, "trending leads with the highest view count")
}

func TestHomePage_ForYouFromHistory(t *testing.T) {
	s := newTestService(t)
	seedCategory(t, s, "cat-1", "Fantasy")
	seedCategory(t, s, "cat-2", "History")

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seedContent(t, s,
		seedItem{kind: models.KindEbook, id: "read-1", name: "Read Already", catID: "cat-1", catName: "Fantasy", createdAt: base},
		seedItem{kind: models.KindEbook, id: "similar-1", name: "Similar", catID: "cat-1", catName: "Fantasy", createdAt: base},
		seedItem{kind: models.KindBook, id: "similar-2", name: "Also Similar", catID: "cat-1", catName: "Fantasy", createdAt: base},
		seedItem{kind: models.KindAudioBook, id: "unrelated", name: "Unrelated", catID: "cat-2", catName: "History", createdAt: base},
	)

	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO user_progress (user_id, content_id, content_type, content_model, current_page, started_at, last_read_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		"user-1", "read-1", "ebook", "Ebook", 12, now, now, now)
	require.NoError(t, err)

	home, err := s.HomePage(context.Background(), "user-1")
	require.NoError(t, err)

	ids := itemIDs(home.ForYou)
	assert.ElementsMatch(t, []string{"similar-1", "similar-2"}, ids)
	assert.NotContains(t, ids, "read-1", "already-seen content is excluded")
	assert.NotContains(t, ids, "unrelated")
}
