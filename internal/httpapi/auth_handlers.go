package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shelfhub/internal/auth"
	"shelfhub/internal/user"
)

func (s *Server) handleRegister(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		badRequest(c, "username/password required")
		return
	}

	if err := user.CreateUser(s.db, uuid.NewString(), req.Username, req.Password, ""); err != nil {
		badRequest(c, "could not create user")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}

	u, err := user.VerifyLogin(s.db, req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid credentials"})
		return
	}

	token, err := auth.SignJWT(s.jwtSecret, u.ID, u.Username, u.Role, 24*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "sign token failed"})
		return
	}

	respondOK(c, gin.H{"token": token})
}
