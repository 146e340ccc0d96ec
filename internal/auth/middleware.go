package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const CtxUserKey = "auth_user"

// ProtectedPrefixes are the paths Gate refuses without a valid session.
// Everything else passes through untouched apart from header scrubbing.
var ProtectedPrefixes = []string{
	"/api/favorites",
	"/api/reviews",
}

// Gate is the edge filter. It strips client-supplied identity headers from
// every request and, for protected prefixes, resolves the session and
// forwards the identity in X-User-Id and X-User-Email.
func Gate(s *Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Header.Del(HeaderUserID)
		c.Request.Header.Del(HeaderUserEmail)

		if !isProtected(c.Request.URL.Path) {
			c.Next()
			return
		}

		req := FromHTTP(c.Request)
		if bearerToken(req.Header("Authorization")) == "" && req.Cookie(s.cookieName()) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		u, ok := s.Resolve(c.Request.Context(), req)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Request.Header.Set(HeaderUserID, u.ID)
		c.Request.Header.Set(HeaderUserEmail, u.Email)
		c.Next()
	}
}

func isProtected(path string) bool {
	for _, p := range ProtectedPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// RequireUser resolves the caller again and stores it on the context.
func RequireUser(s *Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := s.Resolve(c.Request.Context(), FromHTTP(c.Request))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(CtxUserKey, u)
		c.Next()
	}
}

// CurrentUser returns the user stored by RequireUser, or nil.
func CurrentUser(c *gin.Context) *User {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*User)
	return u
}
