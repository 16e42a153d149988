package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"expense-api/internal/auth"
)

const claimsKey = "claims"

// authenticate reads the session token from the cookie, falling back to a
// bearer header, and attaches the verified claims to the request.
func (h *Handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(h.cfg.CookieName)
		if err != nil || raw == "" {
			raw = bearerToken(c.GetHeader("Authorization"))
		}
		if raw == "" {
			h.fail(c, http.StatusUnauthorized, "Access denied. Please log in first.", nil)
			return
		}

		claims, err := h.cfg.Tokens.Parse(raw)
		if err != nil {
			h.fail(c, http.StatusForbidden, "Invalid token. Authentication failed.", nil)
			return
		}

		revoked, err := h.cfg.Revoker.IsRevoked(c.Request.Context(), claims.TokenID())
		if err != nil {
			h.fail(c, http.StatusInternalServerError, "Server error", err)
			return
		}
		if revoked {
			h.fail(c, http.StatusForbidden, "Invalid token. Authentication failed.", nil)
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

func authorizeAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := auth.RequireAdmin(claimsFrom(c))
		switch {
		case errors.Is(err, auth.ErrUnauthenticated):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Access denied. Please log in first."})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Access denied. Admins only."})
			return
		}
		c.Next()
	}
}

func claimsFrom(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}
		if claims := claimsFrom(c); claims != nil {
			fields["user_id"] = claims.UserID()
		}
		entry := h.log.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request handled")
		}
	}
}
