package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/daksh-api/internal/models"
)

func TestAdminJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, admin := newTestServices()
	resp, err := admin.Login(context.Background(), models.AdminLoginRequest{Email: "admin@daksh.test", Password: "pw"})
	require.NoError(t, err)

	router := gin.New()
	router.GET("/secure", AdminJWT(admin), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentAdmin(c).Email)
	})

	cases := []struct {
		name   string
		setup  func(*http.Request)
		status int
	}{
		{"missing", func(*http.Request) {}, http.StatusUnauthorized},
		{"bad scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+resp.AccessToken) }, http.StatusOK},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieAdminSession, Value: resp.AccessToken}) }, http.StatusOK},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			tc.setup(req)
			router.ServeHTTP(recorder, req)
			assert.Equal(t, tc.status, recorder.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "admin@daksh.test", recorder.Body.String())
			}
		})
	}
}

func TestStudentSessionMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions, _ := newTestServices()

	router := gin.New()
	router.Use(StudentSession(sessions))
	router.GET("/me", RequireStudentSession(), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentSession(c).StudentID)
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieSession, Value: signSession(t, false)})
	router.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "st1", recorder.Body.String())
}
