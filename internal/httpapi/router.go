package httpapi

import (
	"database/sql"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shelfhub/internal/auth"
	"shelfhub/internal/catalog"
	"shelfhub/internal/live"
	"shelfhub/internal/progress"
	"shelfhub/internal/storage"
)

// Server bundles the injected collaborators for the HTTP handlers.
type Server struct {
	db        *sql.DB
	catalog   *catalog.Service
	tracker   *progress.Tracker
	uploads   *storage.Coordinator
	hub       *live.Hub
	jwtSecret []byte
	logger    *zap.Logger
}

func NewServer(db *sql.DB, cat *catalog.Service, tracker *progress.Tracker, uploads *storage.Coordinator, hub *live.Hub, jwtSecret []byte, logger *zap.Logger) *Server {
	return &Server{
		db:        db,
		catalog:   cat,
		tracker:   tracker,
		uploads:   uploads,
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	r.POST("/auth/register", s.handleRegister)
	r.POST("/auth/login", s.handleLogin)

	r.GET("/ws", live.HandleWebSocket(s.hub))

	api := r.Group("/api")

	// Public reads. /home picks up the user when a token is present so the
	// personalized feed can be built.
	api.GET("/home", s.optionalJWT(), s.handleHomePage)
	api.GET("/categories", s.handleCategories)
	api.GET("/categories/books", s.handleCategoryContent)
	api.GET("/content", s.handleGetContent)
	api.GET("/content/saved", s.handleSavedContent)

	for _, route := range kindRoutes {
		api.GET("/"+route.path, s.handleListContent(route.kind))
		api.GET("/"+route.path+"/:id", s.handleGetContentByID(route.kind))
	}

	authed := api.Group("")
	authed.Use(auth.RequireJWT(s.jwtSecret))

	authed.POST("/content/save", s.handleToggleSaved)

	authed.POST("/progress", s.handleUpdateProgress)
	authed.GET("/progress", s.handleGetProgress)
	authed.GET("/progress/continue", s.handleContinueItems)
	authed.GET("/progress/history", s.handleHistory)
	authed.GET("/progress/bookmarks", s.handleBookmarks)
	authed.GET("/progress/stats", s.handleActivityStats)
	authed.POST("/progress/bookmark", s.handleToggleBookmark)

	admin := api.Group("")
	admin.Use(auth.RequireJWT(s.jwtSecret), auth.RequireAdmin())

	admin.POST("/upload/generate-upload-url", s.handleGenerateUploadURL)
	admin.POST("/upload/generate-multipart-upload", s.handleGenerateMultipartUpload)
	admin.POST("/upload/complete-multipart-upload", s.handleCompleteMultipartUpload)

	admin.POST("/categories", s.handleCreateCategory)
	for _, route := range kindRoutes {
		admin.POST("/"+route.path, s.handleCreateContent(route.kind))
		admin.PUT("/"+route.path+"/:id", s.handleUpdateContent(route.kind))
		admin.DELETE("/"+route.path+"/:id", s.handleDeleteContent(route.kind))
	}

	return r
}

// optionalJWT populates the user context when a valid bearer token is
// present but never rejects the request.
func (s *Server) optionalJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if len(h) > 7 && h[:7] == "Bearer " {
			if claims, err := auth.ParseJWT(s.jwtSecret, h[7:]); err == nil {
				c.Set(auth.CtxUserIDKey, claims.UserID)
				c.Set(auth.CtxUsernameKey, claims.Username)
				c.Set(auth.CtxRoleKey, claims.Role)
			}
		}
		c.Next()
	}
}

func parseIntQuery(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
