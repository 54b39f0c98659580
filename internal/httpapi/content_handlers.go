package httpapi

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shelfhub/internal/auth"
	"shelfhub/internal/catalog"
	"shelfhub/pkg/models"
)

var kindRoutes = []struct {
	path string
	kind models.ContentKind
}{
	{"books", models.KindBook},
	{"ebooks", models.KindEbook},
	{"audiobooks", models.KindAudioBook},
}

func (s *Server) actor(c *gin.Context) catalog.Actor {
	return catalog.Actor{
		ID:   c.GetString(auth.CtxUserIDKey),
		Role: c.GetString(auth.CtxRoleKey),
	}
}

// refFromQuery builds a tagged content reference from kind+id query params.
// kind may be omitted, in which case handlers fall back to probing.
func refFromQuery(c *gin.Context) (models.ContentRef, bool) {
	ref := models.ContentRef{
		Kind: models.ContentKind(c.Query("kind")),
		ID:   c.Query("id"),
	}
	return ref, ref.Kind.Valid() && ref.ID != ""
}

func (s *Server) handleListContent(kind models.ContentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := catalog.Filter{
			Search:       c.Query("search"),
			CategoryName: c.Query("categoryName"),
			CategoryID:   c.Query("categoryId"),
			Type:         string(kind),
		}
		page := parseIntQuery(c, "page", 0)
		limit := parseIntQuery(c, "limit", 0)

		result, err := s.catalog.ListContent(c.Request.Context(), filter, page, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, result)
	}
}

func (s *Server) handleGetContentByID(kind models.ContentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := models.ContentRef{Kind: kind, ID: c.Param("id")}
		item, err := s.catalog.GetByRef(c.Request.Context(), ref)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := s.catalog.IncrementViewCount(c.Request.Context(), ref); err != nil {
			s.logger.Warn("increment view count failed", zap.String("id", ref.ID), zap.Error(err))
		}
		respondOK(c, item)
	}
}

func (s *Server) handleCreateContent(kind models.ContentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in catalog.ContentInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "invalid json")
			return
		}
		item, err := s.catalog.CreateContent(c.Request.Context(), kind, in, s.actor(c))
		if err != nil {
			respondError(c, err)
			return
		}
		respondCreated(c, item)
	}
}

func (s *Server) handleUpdateContent(kind models.ContentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch catalog.ContentPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			badRequest(c, "invalid json")
			return
		}
		ref := models.ContentRef{Kind: kind, ID: c.Param("id")}
		item, err := s.catalog.UpdateContent(c.Request.Context(), ref, patch, s.actor(c))
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, item)
	}
}

func (s *Server) handleDeleteContent(kind models.ContentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := models.ContentRef{Kind: kind, ID: c.Param("id")}
		if err := s.catalog.DeleteContent(c.Request.Context(), ref, s.actor(c)); err != nil {
			respondError(c, err)
			return
		}
		respondMessage(c, "content deleted", nil)
	}
}

func (s *Server) handleGetContent(c *gin.Context) {
	ctx := c.Request.Context()

	if ref, ok := refFromQuery(c); ok {
		item, err := s.catalog.GetByRef(ctx, ref)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, item)
		return
	}

	id := c.Query("id")
	if id == "" {
		badRequest(c, "id is required")
		return
	}
	item, err := s.catalog.FindByID(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, item)
}

func (s *Server) handleToggleSaved(c *gin.Context) {
	ctx := c.Request.Context()

	ref, ok := refFromQuery(c)
	if !ok {
		id := c.Query("id")
		if id == "" {
			badRequest(c, "id is required")
			return
		}
		item, err := s.catalog.FindByID(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		ref = item.Ref()
	}

	item, err := s.catalog.ToggleSaved(ctx, ref)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, item)
}

func (s *Server) handleSavedContent(c *gin.Context) {
	items, err := s.catalog.SavedContent(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, items)
}

func (s *Server) handleCategories(c *gin.Context) {
	categories, err := s.catalog.CategoriesWithCounts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, categories)
}

func (s *Server) handleCreateCategory(c *gin.Context) {
	var req struct {
		Name  string `json:"name"`
		Image string `json:"image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	category, err := s.catalog.CreateCategory(c.Request.Context(), req.Name, req.Image, s.actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, category)
}

func (s *Server) handleCategoryContent(c *gin.Context) {
	categoryID := c.Query("categoryId")
	if categoryID == "" {
		badRequest(c, "categoryId is required")
		return
	}

	result, err := s.catalog.CategoryContent(c.Request.Context(),
		categoryID,
		c.DefaultQuery("type", "all"),
		parseIntQuery(c, "page", 0),
		parseIntQuery(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

func (s *Server) handleHomePage(c *gin.Context) {
	userID := c.GetString(auth.CtxUserIDKey)
	if userID == "" {
		userID = c.Query("userId")
	}

	home, err := s.catalog.HomePage(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, home)
}
