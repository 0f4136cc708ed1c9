package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/daksh-api/internal/models"
)

// Cookie names. The session and pending cookies are signed tokens; the rest
// are readable hints kept for clients that inspect them.
const (
	CookieSession       = "daksh_session"
	CookiePending       = "daksh_pending"
	CookieAdminSession  = "daksh_admin_session"
	CookieOnboarded     = "onboarded"
	CookieLoginComplete = "loginCompleted"
	CookieStudentData   = "studentData"
	CookieRedirectCount = "redirectCount"
)

// CookieConfig controls cookie attributes.
type CookieConfig struct {
	Secure bool
	Domain string
}

// SetCookie writes a root-path, SameSite=Lax cookie living for maxAge.
func (cfg CookieConfig) SetCookie(c *gin.Context, name, value string, maxAge time.Duration, httpOnly bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, int(maxAge.Seconds()), "/", cfg.Domain, cfg.Secure, httpOnly)
}

// ClearCookie expires a cookie.
func (cfg CookieConfig) ClearCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", cfg.Domain, cfg.Secure, false)
}

// WriteStudentSession stores the session token and its mirror hints.
func (cfg CookieConfig) WriteStudentSession(c *gin.Context, token string, student *models.SessionStudent, onboarded bool, ttl time.Duration) {
	cfg.SetCookie(c, CookieSession, token, ttl, true)
	cfg.SetCookie(c, CookieLoginComplete, "true", ttl, false)
	if onboarded {
		cfg.SetCookie(c, CookieOnboarded, "true", ttl, false)
	} else {
		cfg.ClearCookie(c, CookieOnboarded)
	}
	if student != nil {
		identity, err := json.Marshal(models.StudentIdentity{
			ID:       student.ID,
			SchoolID: student.SchoolID,
			ClassID:  student.ClassID,
			Name:     student.Name,
		})
		if err == nil {
			cfg.SetCookie(c, CookieStudentData, string(identity), ttl, false)
		}
	}
	cfg.ClearCookie(c, CookiePending)
}

// ClearStudentSession removes every student cookie, pending selection included.
func (cfg CookieConfig) ClearStudentSession(c *gin.Context) {
	for _, name := range []string{CookieSession, CookiePending, CookieOnboarded, CookieLoginComplete, CookieStudentData, CookieRedirectCount} {
		cfg.ClearCookie(c, name)
	}
}

// readIdentity decodes the studentData hint cookie.
func readIdentity(c *gin.Context) *models.StudentRef {
	raw, err := c.Cookie(CookieStudentData)
	if err != nil || raw == "" {
		return nil
	}
	var identity models.StudentIdentity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		return nil
	}
	for _, part := range []string{identity.SchoolID, identity.ClassID, identity.ID} {
		if !pathSegment(part) {
			return nil
		}
	}
	return &models.StudentRef{SchoolID: identity.SchoolID, ClassID: identity.ClassID, StudentID: identity.ID}
}

// pathSegment reports whether s can stand alone as one URL path segment.
func pathSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, "/\\?#")
}
