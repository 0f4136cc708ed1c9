package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/daksh-api/internal/models"
	"github.com/noah-isme/daksh-api/internal/service"
	appErrors "github.com/noah-isme/daksh-api/pkg/errors"
	"github.com/noah-isme/daksh-api/pkg/response"
)

// Gin context keys.
const (
	ContextAdminKey   = "currentAdmin"
	ContextSessionKey = "studentSession"
)

// AdminJWT protects admin routes. The token comes from the Authorization
// bearer header or, for browsers, the admin session cookie.
func AdminJWT(adminAuth *service.AdminAuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := adminToken(c)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		claims, err := adminAuth.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextAdminKey, claims)
		c.Next()
	}
}

func adminToken(c *gin.Context) (string, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
		}
		return parts[1], nil
	}
	if cookie, err := c.Cookie(CookieAdminSession); err == nil && cookie != "" {
		return cookie, nil
	}
	return "", appErrors.ErrUnauthorized
}

// CurrentAdmin returns the admin claims set by AdminJWT.
func CurrentAdmin(c *gin.Context) *models.AdminClaims {
	if v, ok := c.Get(ContextAdminKey); ok {
		if claims, ok := v.(*models.AdminClaims); ok {
			return claims
		}
	}
	return nil
}

// StudentSession attaches the verified session claims when the session cookie
// is valid. It never blocks; handlers decide what an absent session means.
func StudentSession(sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(CookieSession); err == nil && token != "" {
			if claims, err := sessions.ParseSession(c.Request.Context(), token); err == nil {
				c.Set(ContextSessionKey, claims)
			}
		}
		c.Next()
	}
}

// RequireStudentSession rejects requests without a verified session.
func RequireStudentSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentSession(c) == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "student session required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentSession returns the claims set by StudentSession.
func CurrentSession(c *gin.Context) *models.SessionClaims {
	if v, ok := c.Get(ContextSessionKey); ok {
		if claims, ok := v.(*models.SessionClaims); ok {
			return claims
		}
	}
	return nil
}
