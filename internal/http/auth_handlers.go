package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"expense-api/internal/repository"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "Name, email and password are required", nil)
		return
	}

	user, err := h.cfg.Users.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.failService(c, err, "Error registering user")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "data": userToResponse(user)})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "Email and password are required", nil)
		return
	}

	user, err := h.cfg.Users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.failService(c, err, "Error logging in")
		return
	}

	token, _, err := h.cfg.Tokens.Issue(user)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "Error logging in", err)
		return
	}

	h.setTokenCookie(c, token, int(h.cfg.Tokens.TTL()/time.Second))
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "data": userToResponse(user), "token": token})
}

func (h *Handler) logout(c *gin.Context) {
	claims := claimsFrom(c)
	if err := h.cfg.Revoker.Revoke(c.Request.Context(), claims.TokenID(), claims.Expiry()); err != nil {
		h.fail(c, http.StatusInternalServerError, "Error logging out", err)
		return
	}

	h.setTokenCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *Handler) me(c *gin.Context) {
	claims := claimsFrom(c)
	user, err := h.cfg.Users.GetByID(c.Request.Context(), claims.UserID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.fail(c, http.StatusNotFound, "User not found", nil)
			return
		}
		h.fail(c, http.StatusInternalServerError, "Server error", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      userToResponse(user),
		"expiresAt": claims.Expiry().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) setTokenCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.CookieName, value, maxAge, "/", "", h.cfg.SecureCookie, true)
}
