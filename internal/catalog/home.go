package catalog

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"shelfhub/pkg/models"
)

const (
	feedPerKindLimit = 5
	feedMergedLimit  = 10
	forYouPerKind    = 10
	forYouLimit      = 10
	historyWindow    = 20
)

type HomePage struct {
	ForYou      []*models.ContentItem `json:"forYou"`
	Recommended []*models.ContentItem `json:"recommended"`
	NewReleases []*models.ContentItem `json:"newReleases"`
	Trending    []*models.ContentItem `json:"trending"`
}

// HomePage assembles the four home feeds. The three generic feeds query
// every collection concurrently, capped per kind before merging; forYou is
// personalized from the user's recent progress and is empty when userID is
// empty or the user has no history.
func (s *Service) HomePage(ctx context.Context, userID string) (*HomePage, error) {
	var forYou []*models.ContentItem
	recommended := make([][]*models.ContentItem, len(allKinds))
	newest := make([][]*models.ContentItem, len(allKinds))
	trending := make([][]*models.ContentItem, len(allKinds))

	g, gctx := errgroup.WithContext(ctx)

	if userID != "" {
		g.Go(func() error {
			items, err := s.personalizedFeed(gctx, userID)
			if err != nil {
				// Personalization is best-effort; the caller falls back
				// to the generic recommended feed.
				s.logger.Warn("personalized feed failed")
				return nil
			}
			forYou = items
			return nil
		})
	}

	for i, kind := range allKinds {
		i, kind := i, kind
		g.Go(func() error {
			items, err := queryItems(gctx, s.db, kind,
				`(tags LIKE ? OR view_count > 100)`, []any{`%"recommended"%`},
				"ORDER BY view_count DESC LIMIT 5")
			if err != nil {
				return err
			}
			recommended[i] = items
			return nil
		})
		g.Go(func() error {
			items, err := queryItems(gctx, s.db, kind, "1=1", nil, "ORDER BY created_at DESC LIMIT 5")
			if err != nil {
				return err
			}
			newest[i] = items
			return nil
		})
		g.Go(func() error {
			items, err := queryItems(gctx, s.db, kind, "1=1", nil, "ORDER BY view_count DESC LIMIT 5")
			if err != nil {
				return err
			}
			trending[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	newReleases := flatten(newest)
	sortByCreatedAtDesc(newReleases)

	trendingMerged := flatten(trending)
	sort.SliceStable(trendingMerged, func(i, j int) bool {
		return trendingMerged[i].ViewCount > trendingMerged[j].ViewCount
	})

	if forYou == nil {
		forYou = []*models.ContentItem{}
	}
	return &HomePage{
		ForYou:      forYou,
		Recommended: s.shuffled(flatten(recommended), feedMergedLimit),
		NewReleases: slicePage(newReleases, 0, feedMergedLimit),
		Trending:    slicePage(trendingMerged, 0, feedMergedLimit),
	}, nil
}

// personalizedFeed derives interests from the user's 20 most recent progress
// records: the categories and tags touched, excluding content already seen,
// sampled down to 10.
func (s *Service) personalizedFeed(ctx context.Context, userID string) ([]*models.ContentItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT content_id, content_type FROM user_progress
		WHERE user_id = ?
		ORDER BY last_read_at DESC, last_listen_at DESC
		LIMIT ?`, userID, historyWindow)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []models.ContentRef
	for rows.Next() {
		var ref models.ContentRef
		if err := rows.Scan(&ref.ID, &ref.Kind); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	categorySet := map[string]struct{}{}
	tagSet := map[string]struct{}{}
	seen := map[string]struct{}{}
	for _, ref := range refs {
		seen[ref.ID] = struct{}{}
		item, err := getByRef(ctx, s.db, ref)
		if err != nil {
			continue
		}
		if item.CategoryID != "" {
			categorySet[item.CategoryID] = struct{}{}
		}
		for _, t := range item.Tags {
			tagSet[t] = struct{}{}
		}
	}

	if len(categorySet) == 0 && len(tagSet) == 0 {
		return []*models.ContentItem{}, nil
	}

	where, args := interestClause(categorySet, tagSet, seen)

	var combined []*models.ContentItem
	for _, kind := range allKinds {
		items, err := queryItems(ctx, s.db, kind, where, args, "LIMIT 10")
		if err != nil {
			return nil, err
		}
		combined = append(combined, items...)
	}

	return s.shuffled(combined, forYouLimit), nil
}

func interestClause(categories, tags, seen map[string]struct{}) (string, []any) {
	var args []any

	match := "0=1"
	if len(categories) > 0 {
		match += " OR category_id IN (" + placeholders(len(categories)) + ")"
		for c := range categories {
			args = append(args, c)
		}
	}
	if clause, tagArgs := tagMatchClause(keys(tags)); clause != "" {
		match += " OR " + clause
		args = append(args, tagArgs...)
	}

	where := "(" + match + ")"
	if len(seen) > 0 {
		where += " AND id NOT IN (" + placeholders(len(seen)) + ")"
		for id := range seen {
			args = append(args, id)
		}
	}
	return where, args
}

func (s *Service) shuffled(items []*models.ContentItem, limit int) []*models.ContentItem {
	s.rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
	out := slicePage(items, 0, limit)
	if out == nil {
		out = []*models.ContentItem{}
	}
	return out
}

func flatten(groups [][]*models.ContentItem) []*models.ContentItem {
	var out []*models.ContentItem
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
