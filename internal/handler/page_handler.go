package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/daksh-api/internal/middleware"
	"github.com/noah-isme/daksh-api/internal/service"
	appErrors "github.com/noah-isme/daksh-api/pkg/errors"
	"github.com/noah-isme/daksh-api/pkg/response"
)

// PageHandler serves page requests that passed the gate. With a static
// directory configured it serves the built frontend, otherwise a JSON
// descriptor of the page.
type PageHandler struct {
	staticDir string
	apiPrefix string
}

// NewPageHandler constructs the handler.
func NewPageHandler(staticDir, apiPrefix string) *PageHandler {
	return &PageHandler{staticDir: staticDir, apiPrefix: apiPrefix}
}

// PageDescriptor describes the page a client should render.
type PageDescriptor struct {
	Path  string `json:"path"`
	Page  string `json:"page"`
	State string `json:"state"`
}

// Serve is registered as the router's NoRoute handler behind the gate.
func (h *PageHandler) Serve(c *gin.Context) {
	path := c.Request.URL.Path
	if h.apiPrefix != "" && strings.HasPrefix(path, h.apiPrefix) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		response.Error(c, appErrors.New("METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed, "method not allowed"))
		return
	}

	if h.staticDir != "" {
		if asset, ok := h.asset(path); ok {
			c.File(asset)
			return
		}
		c.File(filepath.Join(h.staticDir, "index.html"))
		return
	}

	view := service.ViewFromClaims(middleware.CurrentSession(c))
	response.JSON(c, http.StatusOK, PageDescriptor{Path: path, Page: pageName(path), State: string(view.State)})
}

// asset resolves a request path to a regular file inside the static directory.
func (h *PageHandler) asset(path string) (string, bool) {
	if path == "/" {
		return "", false
	}
	cleaned := filepath.Join(h.staticDir, filepath.FromSlash(filepath.Clean("/"+path)))
	root := filepath.Clean(h.staticDir)
	if cleaned != root && !strings.HasPrefix(cleaned, root+string(filepath.Separator)) {
		return "", false
	}
	info, err := os.Stat(cleaned)
	if err != nil || info.IsDir() {
		return "", false
	}
	return cleaned, true
}

func pageName(path string) string {
	switch {
	case path == "/":
		return "home"
	case strings.HasPrefix(path, service.PathQuestions):
		return "questions"
	case path == service.PathLogin:
		return "login"
	case strings.HasPrefix(path, service.PathOnboarding):
		return "onboarding"
	case strings.HasPrefix(path, service.PathDaksh):
		return "daksh"
	case path == "/dashboard/login":
		return "dashboard-login"
	case strings.HasPrefix(path, "/dashboard"):
		return "dashboard"
	}
	return "unknown"
}
