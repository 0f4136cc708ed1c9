package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/daksh-api/internal/middleware"
	"github.com/noah-isme/daksh-api/internal/models"
	appErrors "github.com/noah-isme/daksh-api/pkg/errors"
	"github.com/noah-isme/daksh-api/pkg/response"
)

type adminAuthenticator interface {
	Login(ctx context.Context, req models.AdminLoginRequest) (*models.AdminLoginResponse, error)
	TokenTTL() time.Duration
}

// AdminAuthHandler wires admin login endpoints.
type AdminAuthHandler struct {
	service adminAuthenticator
	cookies middleware.CookieConfig
}

// NewAdminAuthHandler creates a new handler.
func NewAdminAuthHandler(svc adminAuthenticator, cookies middleware.CookieConfig) *AdminAuthHandler {
	return &AdminAuthHandler{service: svc, cookies: cookies}
}

// Login godoc
// @Summary Authenticate admin
// @Description Authenticate the super admin and set the admin session cookie
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body models.AdminLoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /admin/login [post]
func (h *AdminAuthHandler) Login(c *gin.Context) {
	var req models.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.cookies.SetCookie(c, middleware.CookieAdminSession, res.AccessToken, h.service.TokenTTL(), true)
	response.JSON(c, http.StatusOK, res)
}

// Logout godoc
// @Summary Clear the admin session
// @Tags Admin
// @Success 204
// @Router /admin/logout [post]
func (h *AdminAuthHandler) Logout(c *gin.Context) {
	h.cookies.ClearCookie(c, middleware.CookieAdminSession)
	response.NoContent(c)
}

// Me godoc
// @Summary Current admin
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /admin/me [get]
func (h *AdminAuthHandler) Me(c *gin.Context) {
	claims := middleware.CurrentAdmin(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, models.AdminInfo{ID: claims.AdminID, Name: claims.Name, Email: claims.Email, Role: claims.Role})
}

func adminActor(c *gin.Context) string {
	if claims := middleware.CurrentAdmin(c); claims != nil {
		return claims.Email
	}
	return ""
}
