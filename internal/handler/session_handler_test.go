package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/daksh-api/internal/middleware"
	"github.com/noah-isme/daksh-api/internal/models"
	"github.com/noah-isme/daksh-api/internal/repository"
	"github.com/noah-isme/daksh-api/internal/service"
)

type testEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

type sessionServer struct {
	router *gin.Engine
	store  *repository.MemoryStore
	school *models.School
	class  *models.Class
}

func newSessionServer(t *testing.T) *sessionServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	store := repository.NewMemoryStore()
	school := &models.School{Name: "Green Valley", SchoolID: "GV01", CreatedAt: time.Now()}
	require.NoError(t, store.Schools().Create(ctx, school))
	class := &models.Class{Name: "5A", NumberOfStudents: 10, StartingRollNumber: "1", EndingRollNumber: "10", CreatedAt: time.Now()}
	require.NoError(t, store.Classes().Create(ctx, school.ID, class))

	questionnaire := service.NewQuestionnaireService(nil)
	students := service.NewStudentService(store.Classes(), store.Students(), questionnaire, nil, nil, nil, nil)
	auth := service.NewStudentAuthService(store.Schools(), store.Classes(), store.Students(), nil)
	sessions := service.NewSessionService(auth, students, store.Schools(), store.Classes(), service.NewMemoryStudentCache(time.Hour),
		nil, service.NewMetricsService(), nil, service.SessionConfig{Secret: "handler-secret", Issuer: "daksh-test", TTL: time.Hour, PendingTTL: time.Minute})

	h := NewSessionHandler(sessions, middleware.CookieConfig{}, nil)
	router := gin.New()
	group := router.Group("/api/v1/session", middleware.StudentSession(sessions))
	group.GET("", h.State)
	group.POST("/login", h.Login)
	group.POST("/login/qr", h.LoginQR)
	group.POST("/select", h.Select)
	group.POST("/logout", h.Logout)
	group.POST("/onboarding", h.CompleteOnboarding)
	group.GET("/students/:schoolId/:classId/:studentId", h.Student)
	group.GET("/route", h.Route)

	return &sessionServer{router: router, store: store, school: school, class: class}
}

func (s *sessionServer) addStudent(t *testing.T, classID, name, username, password string) *models.Student {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	student := &models.Student{Name: name, RollNumber: "1", Username: username, PasswordHash: string(hash), CreatedAt: time.Now()}
	require.NoError(t, s.store.Students().Create(context.Background(), s.school.ID, classID, student))
	return student
}

func (s *sessionServer) do(t *testing.T, method, path string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// jar keeps the last value written for every cookie name, dropping expired ones.
func jar(prev []*http.Cookie, rec *httptest.ResponseRecorder) []*http.Cookie {
	byName := map[string]*http.Cookie{}
	order := []string{}
	for _, c := range prev {
		if _, ok := byName[c.Name]; !ok {
			order = append(order, c.Name)
		}
		byName[c.Name] = c
	}
	for _, c := range rec.Result().Cookies() {
		if _, ok := byName[c.Name]; !ok {
			order = append(order, c.Name)
		}
		byName[c.Name] = c
	}
	out := []*http.Cookie{}
	for _, name := range order {
		c := byName[name]
		if c.MaxAge < 0 || c.Value == "" {
			continue
		}
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}

func cookieValue(cookies []*http.Cookie, name string) string {
	for _, c := range cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

var validPrefs = models.Preferences{Discover: "iq", Improvement: "memory", Level: "basics", Goal: "casual"}

func TestSessionLoginSingleMatchSetsCookies(t *testing.T) {
	s := newSessionServer(t)
	s.addStudent(t, s.class.ID, "Asha", "ash1", "pw123456")

	rec := s.do(t, http.MethodPost, "/api/v1/session/login", models.StudentLoginRequest{Username: "ash1", Password: "pw123456"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.LoginResult
	decodeData(t, rec, &result)
	assert.True(t, result.Success)
	assert.False(t, result.MultipleMatches)

	cookies := jar(nil, rec)
	assert.NotEmpty(t, cookieValue(cookies, middleware.CookieSession))
	assert.Equal(t, "true", cookieValue(cookies, middleware.CookieLoginComplete))
	assert.Empty(t, cookieValue(cookies, middleware.CookieOnboarded))
	assert.Empty(t, cookieValue(cookies, middleware.CookiePending))
}

func TestSessionLoginWrongPassword(t *testing.T) {
	s := newSessionServer(t)
	s.addStudent(t, s.class.ID, "Asha", "ash1", "pw123456")

	rec := s.do(t, http.MethodPost, "/api/v1/session/login", models.StudentLoginRequest{Username: "ash1", Password: "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionLoginMissingFields(t *testing.T) {
	s := newSessionServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/session/login", map[string]string{"username": "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionMultipleMatchesThenSelect(t *testing.T) {
	s := newSessionServer(t)
	other := &models.Class{Name: "5B", NumberOfStudents: 10, StartingRollNumber: "1", EndingRollNumber: "10", CreatedAt: time.Now().Add(time.Minute)}
	require.NoError(t, s.store.Classes().Create(context.Background(), s.school.ID, other))
	s.addStudent(t, s.class.ID, "Asha", "dup", "samepass")
	s.addStudent(t, other.ID, "Ashok", "dup", "samepass")

	rec := s.do(t, http.MethodPost, "/api/v1/session/login", models.StudentLoginRequest{Username: "dup", Password: "samepass"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result models.LoginResult
	decodeData(t, rec, &result)
	assert.True(t, result.MultipleMatches)
	assert.Len(t, result.Students, 2)

	cookies := jar(nil, rec)
	require.NotEmpty(t, cookieValue(cookies, middleware.CookiePending))
	assert.Empty(t, cookieValue(cookies, middleware.CookieSession))

	index := 1
	rec = s.do(t, http.MethodPost, "/api/v1/session/select", models.SelectStudentRequest{Index: &index}, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	var selected models.LoginResult
	decodeData(t, rec, &selected)
	require.NotNil(t, selected.Student)
	assert.False(t, selected.MultipleMatches)
	assert.Equal(t, "Ashok", selected.Student.Name)

	cookies = jar(cookies, rec)
	assert.NotEmpty(t, cookieValue(cookies, middleware.CookieSession))
	assert.Empty(t, cookieValue(cookies, middleware.CookiePending))
}

func TestSessionSelectWithoutPending(t *testing.T) {
	s := newSessionServer(t)
	index := 0
	rec := s.do(t, http.MethodPost, "/api/v1/session/select", models.SelectStudentRequest{Index: &index}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionCompleteOnboardingSetsOnboardedCookie(t *testing.T) {
	s := newSessionServer(t)
	student := s.addStudent(t, s.class.ID, "Asha", "ash1", "pw123456")

	rec := s.do(t, http.MethodPost, "/api/v1/session/login", models.StudentLoginRequest{Username: "ash1", Password: "pw123456"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := jar(nil, rec)

	rec = s.do(t, http.MethodPost, "/api/v1/session/onboarding", validPrefs, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	var state models.SessionState
	decodeData(t, rec, &state)
	assert.True(t, state.OnboardingComplete)
	assert.Equal(t, string(service.StateOnboarded), state.State)

	cookies = jar(cookies, rec)
	assert.Equal(t, "true", cookieValue(cookies, middleware.CookieOnboarded))

	rec = s.do(t, http.MethodGet, "/api/v1/session", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &state)
	assert.True(t, state.IsAuthenticated)
	assert.True(t, state.OnboardingComplete)
	require.NotNil(t, state.Student)
	assert.Equal(t, student.ID, state.Student.ID)
	require.NotNil(t, state.Student.Preferences)
	assert.Equal(t, "casual", state.Student.Preferences.Goal)
}

func TestSessionCompleteOnboardingRequiresSession(t *testing.T) {
	s := newSessionServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/session/onboarding", validPrefs, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionLogoutClearsCookies(t *testing.T) {
	s := newSessionServer(t)
	student := s.addStudent(t, s.class.ID, "Asha", "ash1", "pw123456")

	rec := s.do(t, http.MethodPost, "/api/v1/session/login", models.StudentLoginRequest{Username: "ash1", Password: "pw123456"}, nil)
	cookies := jar(nil, rec)
	studentPath := "/api/v1/session/students/" + s.school.ID + "/" + s.class.ID + "/" + student.ID

	rec = s.do(t, http.MethodGet, studentPath, nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	loggedIn := cookies
	rec = s.do(t, http.MethodPost, "/api/v1/session/logout", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	var state models.SessionState
	decodeData(t, rec, &state)
	assert.False(t, state.IsAuthenticated)

	cookies = jar(cookies, rec)
	assert.Empty(t, cookies)

	rec = s.do(t, http.MethodGet, studentPath, nil, cookies)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, studentPath, nil, loggedIn)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/v1/session", nil, loggedIn)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &state)
	assert.False(t, state.IsAuthenticated)
}

func TestSessionCompleteOnboardingTwiceConflicts(t *testing.T) {
	s := newSessionServer(t)
	s.addStudent(t, s.class.ID, "Asha", "ash1", "pw123456")

	rec := s.do(t, http.MethodPost, "/api/v1/session/login", models.StudentLoginRequest{Username: "ash1", Password: "pw123456"}, nil)
	cookies := jar(nil, rec)
	rec = s.do(t, http.MethodPost, "/api/v1/session/onboarding", validPrefs, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies = jar(cookies, rec)

	again := validPrefs
	again.Goal = "breeze"
	rec = s.do(t, http.MethodPost, "/api/v1/session/onboarding", again, cookies)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSessionLogoutWithoutUIUpdate(t *testing.T) {
	s := newSessionServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/session/logout?updateUI=false", nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSessionStudentOtherIsNotFound(t *testing.T) {
	s := newSessionServer(t)
	s.addStudent(t, s.class.ID, "Asha", "ash1", "pw123456")
	other := s.addStudent(t, s.class.ID, "Bina", "bin2", "pw654321")

	rec := s.do(t, http.MethodPost, "/api/v1/session/login", models.StudentLoginRequest{Username: "ash1", Password: "pw123456"}, nil)
	cookies := jar(nil, rec)

	rec = s.do(t, http.MethodGet, "/api/v1/session/students/"+s.school.ID+"/"+s.class.ID+"/"+other.ID, nil, cookies)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionRoute(t *testing.T) {
	s := newSessionServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/session/route?path=/daksh", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var decision models.RouteDecision
	decodeData(t, rec, &decision)
	assert.False(t, decision.Allow)
	assert.Equal(t, service.PathOnboarding, decision.Redirect)
	assert.Equal(t, string(service.StateAnonymous), decision.State)

	rec = s.do(t, http.MethodGet, "/api/v1/session/route", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
