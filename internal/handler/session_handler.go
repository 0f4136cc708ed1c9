package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/daksh-api/internal/middleware"
	"github.com/noah-isme/daksh-api/internal/models"
	"github.com/noah-isme/daksh-api/internal/service"
	appErrors "github.com/noah-isme/daksh-api/pkg/errors"
	"github.com/noah-isme/daksh-api/pkg/response"
)

type sessionManager interface {
	TTL() time.Duration
	PendingTTL() time.Duration
	Login(ctx context.Context, req models.StudentLoginRequest, meta service.RequestMeta) (*models.LoginResult, error)
	LoginWithQR(ctx context.Context, req models.QRLoginRequest, meta service.RequestMeta) (*models.LoginResult, error)
	SelectStudent(ctx context.Context, pendingToken string, index int, meta service.RequestMeta) (*models.LoginResult, error)
	Logout(ctx context.Context, claims *models.SessionClaims, meta service.RequestMeta)
	CompleteOnboarding(ctx context.Context, claims *models.SessionClaims, prefs models.Preferences) (*models.SessionStudent, string, error)
	GetStudentData(ctx context.Context, claims *models.SessionClaims, ref models.StudentRef) (*models.SessionStudent, error)
	State(ctx context.Context, claims *models.SessionClaims) (*models.SessionState, error)
}

// SessionHandler exposes the student session lifecycle.
type SessionHandler struct {
	sessions sessionManager
	cookies  middleware.CookieConfig
	logger   *zap.Logger
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(sessions sessionManager, cookies middleware.CookieConfig, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{sessions: sessions, cookies: cookies, logger: logger}
}

// State godoc
// @Summary Current student session
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /session [get]
func (h *SessionHandler) State(c *gin.Context) {
	state, err := h.sessions.State(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state)
}

// Login godoc
// @Summary Student username/password login
// @Description Several students may share credentials. In that case the candidates are returned and one must be chosen via /session/select.
// @Tags Session
// @Accept json
// @Produce json
// @Param payload body models.StudentLoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /session/login [post]
func (h *SessionHandler) Login(c *gin.Context) {
	var req models.StudentLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "username and password are required"))
		return
	}
	h.sanitize(c)
	result, err := h.sessions.Login(c.Request.Context(), req, requestMeta(c))
	h.respondLogin(c, result, err)
}

// LoginQR godoc
// @Summary Student QR login
// @Tags Session
// @Accept json
// @Produce json
// @Param payload body models.QRLoginRequest true "Scanned QR text"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /session/login/qr [post]
func (h *SessionHandler) LoginQR(c *gin.Context) {
	var req models.QRLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrMalformedInput.Code, http.StatusBadRequest, "invalid QR code format"))
		return
	}
	h.sanitize(c)
	result, err := h.sessions.LoginWithQR(c.Request.Context(), req, requestMeta(c))
	h.respondLogin(c, result, err)
}

// Select godoc
// @Summary Choose one student of a multi-match login
// @Tags Session
// @Accept json
// @Produce json
// @Param payload body models.SelectStudentRequest true "Candidate index"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /session/select [post]
func (h *SessionHandler) Select(c *gin.Context) {
	var req models.SelectStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Index == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "index is required"))
		return
	}
	pending, err := c.Cookie(middleware.CookiePending)
	if err != nil || pending == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "no pending student selection"))
		return
	}
	result, err := h.sessions.SelectStudent(c.Request.Context(), pending, *req.Index, requestMeta(c))
	h.respondLogin(c, result, err)
}

// Logout godoc
// @Summary End the student session
// @Description With updateUI=false only storage is cleared and 204 is returned.
// @Tags Session
// @Produce json
// @Param updateUI query bool false "Report the logged-out state"
// @Success 200 {object} response.Envelope
// @Success 204
// @Router /session/logout [post]
func (h *SessionHandler) Logout(c *gin.Context) {
	h.sessions.Logout(c.Request.Context(), middleware.CurrentSession(c), requestMeta(c))
	h.cookies.ClearStudentSession(c)
	if c.Query("updateUI") == "false" {
		response.NoContent(c)
		return
	}
	response.JSON(c, http.StatusOK, models.SessionState{State: string(service.StateAnonymous)})
}

// CompleteOnboarding godoc
// @Summary Save questionnaire answers and finish onboarding
// @Tags Session
// @Accept json
// @Produce json
// @Param payload body models.Preferences true "Answers"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /session/onboarding [post]
func (h *SessionHandler) CompleteOnboarding(c *gin.Context) {
	var prefs models.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid preferences payload"))
		return
	}
	claims := middleware.CurrentSession(c)
	student, token, err := h.sessions.CompleteOnboarding(c.Request.Context(), claims, prefs)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.cookies.WriteStudentSession(c, token, student, true, h.sessions.TTL())
	response.JSON(c, http.StatusOK, models.SessionState{
		State:              string(service.StateOnboarded),
		IsAuthenticated:    true,
		OnboardingComplete: true,
		Student:            student,
	})
}

// Student godoc
// @Summary Student data visible to the session
// @Tags Session
// @Produce json
// @Param schoolId path string true "School ID"
// @Param classId path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /session/students/{schoolId}/{classId}/{studentId} [get]
func (h *SessionHandler) Student(c *gin.Context) {
	claims := middleware.CurrentSession(c)
	if claims == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "student session required"))
		return
	}
	student, err := h.sessions.GetStudentData(c.Request.Context(), claims, refFromParams(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if student == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "student not found"))
		return
	}
	response.JSON(c, http.StatusOK, student)
}

// Route godoc
// @Summary Evaluate a page navigation against the session
// @Tags Session
// @Produce json
// @Param path query string true "Page path"
// @Success 200 {object} response.Envelope
// @Router /session/route [get]
func (h *SessionHandler) Route(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "path is required"))
		return
	}
	view := service.ViewFromClaims(middleware.CurrentSession(c))
	decision := service.Decide(path, view)
	response.JSON(c, http.StatusOK, models.RouteDecision{
		Path:     path,
		Allow:    decision.Allow,
		Redirect: decision.Redirect,
		State:    string(view.State),
		Reason:   decision.Reason,
	})
}

// sanitize drops any previous session before a new login attempt.
func (h *SessionHandler) sanitize(c *gin.Context) {
	if claims := middleware.CurrentSession(c); claims != nil {
		h.sessions.Logout(c.Request.Context(), claims, requestMeta(c))
		h.logger.Debug("cleared previous session before login", zap.String("session_id", claims.SessionID))
	}
	h.cookies.ClearStudentSession(c)
}

func (h *SessionHandler) respondLogin(c *gin.Context, result *models.LoginResult, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	switch {
	case result.MultipleMatches:
		h.cookies.SetCookie(c, middleware.CookiePending, result.PendingToken, h.sessions.PendingTTL(), true)
	case result.Student != nil:
		h.cookies.WriteStudentSession(c, result.Token, result.Student, result.Student.Onboarded(), h.sessions.TTL())
	}
	response.JSON(c, http.StatusOK, result)
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}
