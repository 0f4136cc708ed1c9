package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/daksh-api/internal/service"
)

const (
	// HeaderRedirectCount carries the number of consecutive gate redirects.
	HeaderRedirectCount = "X-Redirect-Count"

	dashboardPrefix    = "/dashboard"
	dashboardLoginPath = "/dashboard/login"
	redirectCountTTL   = 30 * time.Second
)

// GateConfig tunes the page gate.
type GateConfig struct {
	MaxRedirects int
	Cookies      CookieConfig
}

// Gate decides page redirects before the page is served. Student pages are
// routed by service.Decide; the dashboard area requires an admin token.
func Gate(sessions *service.SessionService, adminAuth *service.AdminAuthService, metrics *service.MetricsService, cfg GateConfig, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = 3
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if path == dashboardPrefix || strings.HasPrefix(path, dashboardPrefix+"/") {
			gateDashboard(c, adminAuth, path)
			return
		}

		count := redirectCount(c)
		if count > cfg.MaxRedirects {
			logger.Warn("redirect limit exceeded, serving page",
				zap.String("path", path), zap.Int("redirects", count))
			metrics.RecordRedirectLoop()
			cfg.Cookies.ClearCookie(c, CookieRedirectCount)
			c.Next()
			return
		}

		view := sessionView(c, sessions, cfg.Cookies)
		decision := service.Decide(path, view)
		if decision.Allow {
			if count > 0 {
				cfg.Cookies.ClearCookie(c, CookieRedirectCount)
			}
			c.Next()
			return
		}

		next := strconv.Itoa(count + 1)
		c.Header(HeaderRedirectCount, next)
		cfg.Cookies.SetCookie(c, CookieRedirectCount, next, redirectCountTTL, false)
		metrics.RecordGateRedirect(view.State, decision.Reason)
		c.Redirect(http.StatusTemporaryRedirect, decision.Redirect)
		c.Abort()
	}
}

func gateDashboard(c *gin.Context, adminAuth *service.AdminAuthService, path string) {
	authenticated := false
	if token, err := adminToken(c); err == nil {
		if claims, err := adminAuth.ValidateToken(token); err == nil {
			c.Set(ContextAdminKey, claims)
			authenticated = true
		}
	}
	switch {
	case path == dashboardLoginPath && authenticated:
		c.Redirect(http.StatusTemporaryRedirect, dashboardPrefix)
		c.Abort()
	case path != dashboardLoginPath && !authenticated:
		c.Redirect(http.StatusTemporaryRedirect, dashboardLoginPath)
		c.Abort()
	default:
		c.Next()
	}
}

// sessionView reads the signed session first. Without one, the mirror
// cookies are trusted for routing only.
func sessionView(c *gin.Context, sessions *service.SessionService, cookies CookieConfig) service.SessionView {
	if token, err := c.Cookie(CookieSession); err == nil && token != "" {
		claims, err := sessions.ParseSession(c.Request.Context(), token)
		if err == nil {
			c.Set(ContextSessionKey, claims)
			if claims.Onboarded {
				if v, _ := c.Cookie(CookieOnboarded); v != "true" {
					cookies.SetCookie(c, CookieOnboarded, "true", sessions.TTL(), false)
				}
			}
			return service.ViewFromClaims(claims)
		}
		cookies.ClearCookie(c, CookieSession)
	}

	onboarded, _ := c.Cookie(CookieOnboarded)
	loginCompleted, _ := c.Cookie(CookieLoginComplete)
	view := service.SessionView{State: service.StateAnonymous}
	switch {
	case onboarded == "true":
		view.State = service.StateOnboarded
	case loginCompleted == "true":
		view.State = service.StatePendingOnboarding
	default:
		return view
	}
	view.Identity = readIdentity(c)
	return view
}

func redirectCount(c *gin.Context) int {
	raw := c.GetHeader(HeaderRedirectCount)
	if raw == "" {
		raw, _ = c.Cookie(CookieRedirectCount)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
