package httpapi

import (
	"github.com/gin-gonic/gin"

	"shelfhub/internal/auth"
	"shelfhub/internal/progress"
	"shelfhub/pkg/models"
)

func (s *Server) handleUpdateProgress(c *gin.Context) {
	var req struct {
		ContentID   string `json:"contentId"`
		ContentType string `json:"contentType"`
		progress.Patch
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ContentID == "" {
		badRequest(c, "contentId and contentType are required")
		return
	}

	userID := c.GetString(auth.CtxUserIDKey)
	ref := models.ContentRef{Kind: models.ContentKind(req.ContentType), ID: req.ContentID}

	updated, err := s.tracker.UpdateProgress(c.Request.Context(), userID, ref, req.Patch)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, updated)
}

func (s *Server) handleGetProgress(c *gin.Context) {
	ref, ok := refFromQuery(c)
	if !ok {
		badRequest(c, "kind and id are required")
		return
	}
	userID := c.GetString(auth.CtxUserIDKey)

	p, err := s.tracker.GetContentProgress(c.Request.Context(), userID, ref)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, p)
}

func (s *Server) handleContinueItems(c *gin.Context) {
	userID := c.GetString(auth.CtxUserIDKey)
	limit := parseIntQuery(c, "limit", 10)

	items, err := s.tracker.GetContinueItems(c.Request.Context(), userID, limit, s.catalog)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, items)
}

func (s *Server) handleHistory(c *gin.Context) {
	contentType := models.ContentKind(c.Query("contentType"))
	if !contentType.Valid() {
		badRequest(c, "contentType must be one of ebook, audiobook, book")
		return
	}
	userID := c.GetString(auth.CtxUserIDKey)

	page, err := s.tracker.GetHistory(c.Request.Context(), userID, contentType,
		parseIntQuery(c, "page", 1), parseIntQuery(c, "limit", 20), s.catalog)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, page)
}

func (s *Server) handleBookmarks(c *gin.Context) {
	userID := c.GetString(auth.CtxUserIDKey)

	page, err := s.tracker.GetBookmarks(c.Request.Context(), userID,
		parseIntQuery(c, "page", 1), parseIntQuery(c, "limit", 20), s.catalog)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, page)
}

func (s *Server) handleActivityStats(c *gin.Context) {
	userID := c.GetString(auth.CtxUserIDKey)

	stats, err := s.tracker.GetActivityStats(c.Request.Context(), userID, c.DefaultQuery("period", "week"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, stats)
}

func (s *Server) handleToggleBookmark(c *gin.Context) {
	ref, ok := refFromQuery(c)
	if !ok {
		badRequest(c, "kind and id are required")
		return
	}
	userID := c.GetString(auth.CtxUserIDKey)

	p, err := s.tracker.ToggleBookmark(c.Request.Context(), userID, ref)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, p)
}
