package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/daksh-api/internal/models"
	appErrors "github.com/noah-isme/daksh-api/pkg/errors"
)

// Login methods reported to metrics and the audit trail.
const (
	LoginMethodPassword = "password"
	LoginMethodQR       = "qr"
	LoginMethodSelect   = "select"
)

// SessionConfig tunes student session and pending selection tokens.
type SessionConfig struct {
	Secret     string
	Issuer     string
	TTL        time.Duration
	PendingTTL time.Duration
}

// RequestMeta describes the caller for audit records.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// SessionService owns student login, onboarding completion and session state.
// The signed session token is the only authoritative record of a session.
type SessionService struct {
	auth     *StudentAuthService
	students *StudentService
	schools  schoolRepository
	classes  classRepository
	cache    StudentCache
	audit    *AuditService
	metrics  *MetricsService
	logger   *zap.Logger
	config   SessionConfig
	now      func() time.Time
}

// NewSessionService constructs the session service.
func NewSessionService(auth *StudentAuthService, students *StudentService, schools schoolRepository, classes classRepository,
	cache StudentCache, audit *AuditService, metrics *MetricsService, logger *zap.Logger, config SessionConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewMemoryStudentCache(0)
	}
	if config.TTL <= 0 {
		config.TTL = 30 * 24 * time.Hour
	}
	if config.PendingTTL <= 0 {
		config.PendingTTL = 10 * time.Minute
	}
	return &SessionService{
		auth:     auth,
		students: students,
		schools:  schools,
		classes:  classes,
		cache:    cache,
		audit:    audit,
		metrics:  metrics,
		logger:   logger,
		config:   config,
		now:      time.Now,
	}
}

// TTL is the lifetime of session tokens and their cookies.
func (s *SessionService) TTL() time.Duration { return s.config.TTL }

// PendingTTL is the lifetime of a pending multi-match selection.
func (s *SessionService) PendingTTL() time.Duration { return s.config.PendingTTL }

// Login authenticates username and password.
func (s *SessionService) Login(ctx context.Context, req models.StudentLoginRequest, meta RequestMeta) (*models.LoginResult, error) {
	matches, err := s.auth.Authenticate(ctx, req.Username, req.Password)
	return s.completeLogin(ctx, LoginMethodPassword, matches, err, meta)
}

// LoginWithQR authenticates the credentials embedded in a scanned QR code.
func (s *SessionService) LoginWithQR(ctx context.Context, req models.QRLoginRequest, meta RequestMeta) (*models.LoginResult, error) {
	matches, err := s.auth.AuthenticateQR(ctx, req.Payload)
	return s.completeLogin(ctx, LoginMethodQR, matches, err, meta)
}

func (s *SessionService) completeLogin(ctx context.Context, method string, matches []*models.SessionStudent, err error, meta RequestMeta) (*models.LoginResult, error) {
	if err != nil {
		s.metrics.RecordLogin(method, "failure")
		return nil, err
	}

	if len(matches) > 1 {
		pending, err := s.issuePending(matches)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue selection token")
		}
		s.metrics.RecordLogin(method, "multiple")
		s.logger.Info("student login matched several records", zap.String("method", method), zap.Int("matches", len(matches)))
		return &models.LoginResult{Success: true, MultipleMatches: true, Students: matches, PendingToken: pending}, nil
	}

	result, err := s.startSession(ctx, matches[0], method, meta)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLogin(method, "success")
	return result, nil
}

// SelectStudent resolves a pending multi-match login by candidate index.
func (s *SessionService) SelectStudent(ctx context.Context, pendingToken string, index int, meta RequestMeta) (*models.LoginResult, error) {
	pending, err := s.ParsePending(pendingToken)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(pending.Candidates) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("selection index must be between 0 and %d", len(pending.Candidates)-1))
	}
	student, err := s.loadEnriched(ctx, pending.Candidates[index])
	if err != nil {
		return nil, err
	}
	result, err := s.startSession(ctx, student, LoginMethodSelect, meta)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLogin(LoginMethodSelect, "success")
	return result, nil
}

func (s *SessionService) startSession(ctx context.Context, student *models.SessionStudent, method string, meta RequestMeta) (*models.LoginResult, error) {
	sessionID := uuid.NewString()
	state := Transition(StateAnonymous, EventLogin, student.Onboarded())
	token, err := s.issueSession(sessionID, student, state == StateOnboarded)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue session token")
	}
	s.cache.Set(ctx, sessionID, student)

	entry := auditEntry(models.AuditActionStudentLogin, "session", student.ID, sessionID, map[string]interface{}{
		"method": method, "schoolId": student.SchoolID, "classId": student.ClassID,
	})
	entry.IPAddress = meta.IP
	entry.UserAgent = meta.UserAgent
	s.audit.Record(ctx, entry)

	return &models.LoginResult{Success: true, Student: student, Token: token}, nil
}

// Logout drops every cached record of the session and revokes its id until
// the token expires. Cookie removal is the transport's job.
func (s *SessionService) Logout(ctx context.Context, claims *models.SessionClaims, meta RequestMeta) {
	if claims == nil {
		return
	}
	until := s.now().Add(s.config.TTL)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	s.cache.Revoke(ctx, claims.SessionID, until)
	entry := auditEntry(models.AuditActionStudentLogout, "session", claims.StudentID, claims.SessionID, nil)
	entry.IPAddress = meta.IP
	entry.UserAgent = meta.UserAgent
	s.audit.Record(ctx, entry)
}

// CompleteOnboarding stores the questionnaire answers and returns the
// refreshed student with a re-issued token marked onboarded.
func (s *SessionService) CompleteOnboarding(ctx context.Context, claims *models.SessionClaims, prefs models.Preferences) (*models.SessionStudent, string, error) {
	if claims == nil || !claims.LoginCompleted || s.cache.Revoked(ctx, claims.SessionID) {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "no student session")
	}
	if claims.Onboarded {
		return nil, "", appErrors.Clone(appErrors.ErrConflict, "onboarding already completed")
	}
	current, err := s.students.Get(ctx, claims.Ref())
	if err != nil {
		return nil, "", err
	}
	if current.Onboarded() {
		return nil, "", appErrors.Clone(appErrors.ErrConflict, "onboarding already completed")
	}
	updated, err := s.students.UpdatePreferences(ctx, claims.Ref(), prefs)
	if err != nil {
		return nil, "", err
	}
	student, err := s.enrichWithPlacement(ctx, claims.SchoolID, claims.ClassID, *updated)
	if err != nil {
		return nil, "", err
	}

	state := Transition(ViewFromClaims(claims).State, EventCompleteOnboarding, true)
	token, err := s.issueSession(claims.SessionID, student, state == StateOnboarded)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue session token")
	}
	s.cache.Set(ctx, claims.SessionID, student)
	s.audit.Record(ctx, auditEntry(models.AuditActionOnboardingComplete, "student", claims.StudentID, claims.StudentID, map[string]interface{}{
		"goal": prefs.Goal, "level": prefs.Level,
	}))
	return student, token, nil
}

// GetStudentData resolves a student for the current session: the session
// cache first, then the session's own identity, then a store point read.
// It returns nil without a live session, for other students, and when nothing is found.
func (s *SessionService) GetStudentData(ctx context.Context, claims *models.SessionClaims, ref models.StudentRef) (*models.SessionStudent, error) {
	if claims == nil || !claims.LoginCompleted || s.cache.Revoked(ctx, claims.SessionID) {
		return nil, nil
	}
	if student, ok := s.cache.Get(ctx, claims.SessionID, ref); ok {
		return student, nil
	}
	if ref != claims.Ref() {
		return nil, nil
	}
	student, err := s.loadEnriched(ctx, ref)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrNotFound.Code {
			return nil, nil
		}
		return nil, err
	}
	s.cache.Set(ctx, claims.SessionID, student)
	return student, nil
}

// State reports the session as clients see it.
func (s *SessionService) State(ctx context.Context, claims *models.SessionClaims) (*models.SessionState, error) {
	view := ViewFromClaims(claims)
	state := &models.SessionState{State: string(view.State)}
	if view.State == StateAnonymous {
		return state, nil
	}
	state.IsAuthenticated = true
	state.OnboardingComplete = view.State == StateOnboarded
	if !state.OnboardingComplete {
		state.OnboardingStep = models.OnboardingStepQuestions
	}
	student, err := s.GetStudentData(ctx, claims, claims.Ref())
	if err != nil {
		return nil, err
	}
	state.Student = student
	return state, nil
}

// ParseSession verifies a session token and rejects logged-out sessions.
func (s *SessionService) ParseSession(ctx context.Context, token string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}
	if err := s.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.SessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session token claims")
	}
	if s.cache.Revoked(ctx, claims.SessionID) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session has ended")
	}
	return claims, nil
}

// ParsePending verifies a pending selection token.
func (s *SessionService) ParsePending(token string) (*models.PendingClaims, error) {
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no pending student selection")
	}
	claims := &models.PendingClaims{}
	if err := s.parse(token, claims); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "pending student selection expired")
	}
	return claims, nil
}

func (s *SessionService) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithIssuer(s.config.Issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid session token")
	}
	if !token.Valid {
		return appErrors.Clone(appErrors.ErrUnauthorized, "invalid session token")
	}
	return nil
}

func (s *SessionService) issueSession(sessionID string, student *models.SessionStudent, onboarded bool) (string, error) {
	issuedAt := s.now().UTC()
	claims := &models.SessionClaims{
		SessionID:      sessionID,
		StudentID:      student.ID,
		SchoolID:       student.SchoolID,
		ClassID:        student.ClassID,
		Name:           student.Name,
		LoginCompleted: true,
		Onboarded:      onboarded,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   student.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
}

func (s *SessionService) issuePending(matches []*models.SessionStudent) (string, error) {
	issuedAt := s.now().UTC()
	claims := &models.PendingClaims{
		Candidates: make([]models.StudentRef, len(matches)),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.PendingTTL)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}
	for i, m := range matches {
		claims.Candidates[i] = m.Ref()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
}

func (s *SessionService) loadEnriched(ctx context.Context, ref models.StudentRef) (*models.SessionStudent, error) {
	student, err := s.students.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.enrichWithPlacement(ctx, ref.SchoolID, ref.ClassID, *student)
}

func (s *SessionService) enrichWithPlacement(ctx context.Context, schoolID, classID string, student models.Student) (*models.SessionStudent, error) {
	school, err := s.schools.FindByID(ctx, schoolID)
	if err != nil {
		return nil, storeError(err, "school not found", "failed to load school")
	}
	class, err := s.classes.FindByID(ctx, schoolID, classID)
	if err != nil {
		return nil, storeError(err, "class not found", "failed to load class")
	}
	return enrich(student, *school, *class), nil
}
