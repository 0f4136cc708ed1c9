package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/daksh-api/internal/models"
	"github.com/noah-isme/daksh-api/internal/repository"
	appErrors "github.com/noah-isme/daksh-api/pkg/errors"
)

type sessionFixture struct {
	store   *repository.MemoryStore
	svc     *SessionService
	cache   *MemoryStudentCache
	schoolA *models.School
	classA  *models.Class
	classB  *models.Class
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()

	school := &models.School{Name: "Green Valley", SchoolID: "GV01", CreatedAt: time.Now()}
	require.NoError(t, store.Schools().Create(ctx, school))
	classA := &models.Class{Name: "5A", NumberOfStudents: 10, StartingRollNumber: "1", EndingRollNumber: "10", CreatedAt: time.Now()}
	require.NoError(t, store.Classes().Create(ctx, school.ID, classA))
	classB := &models.Class{Name: "5B", NumberOfStudents: 10, StartingRollNumber: "1", EndingRollNumber: "10", CreatedAt: time.Now().Add(time.Minute)}
	require.NoError(t, store.Classes().Create(ctx, school.ID, classB))

	cache := NewMemoryStudentCache(time.Hour)
	questionnaire := NewQuestionnaireService(nil)
	students := NewStudentService(store.Classes(), store.Students(), questionnaire, nil, nil, nil, nil)
	auth := NewStudentAuthService(store.Schools(), store.Classes(), store.Students(), nil)
	svc := NewSessionService(auth, students, store.Schools(), store.Classes(), cache, nil, NewMetricsService(), nil, SessionConfig{
		Secret: "test-secret", Issuer: "daksh-test", TTL: time.Hour, PendingTTL: time.Minute,
	})
	return &sessionFixture{store: store, svc: svc, cache: cache, schoolA: school, classA: classA, classB: classB}
}

func (f *sessionFixture) addStudent(t *testing.T, classID, name, username, password string) *models.Student {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	student := &models.Student{Name: name, RollNumber: "1", Username: username, PasswordHash: string(hash), QRCode: "data:image/png;base64,AAAA", CreatedAt: time.Now()}
	require.NoError(t, f.store.Students().Create(context.Background(), f.schoolA.ID, classID, student))
	return student
}

func TestLoginSingleMatch(t *testing.T) {
	f := newSessionFixture(t)
	f.addStudent(t, f.classA.ID, "Asha", "ash1", "pw123456")

	result, err := f.svc.Login(context.Background(), models.StudentLoginRequest{Username: "ash1", Password: "pw123456"}, RequestMeta{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.MultipleMatches)
	require.NotNil(t, result.Student)
	assert.Equal(t, "Green Valley", result.Student.SchoolName)
	assert.Equal(t, "5A", result.Student.ClassName)
	assert.Empty(t, result.Student.QRCode)
	assert.Empty(t, result.Student.PasswordHash)
	require.NotEmpty(t, result.Token)

	claims, err := f.svc.ParseSession(context.Background(), result.Token)
	require.NoError(t, err)
	assert.True(t, claims.LoginCompleted)
	assert.False(t, claims.Onboarded)
	assert.Equal(t, result.Student.ID, claims.StudentID)
}

func TestLoginMultipleMatchesThenSelect(t *testing.T) {
	f := newSessionFixture(t)
	f.addStudent(t, f.classA.ID, "Asha", "dup1", "samepass")
	second := f.addStudent(t, f.classB.ID, "Ashok", "dup1", "samepass")

	result, err := f.svc.Login(context.Background(), models.StudentLoginRequest{Username: "dup1", Password: "samepass"}, RequestMeta{})
	require.NoError(t, err)
	assert.True(t, result.MultipleMatches)
	require.Len(t, result.Students, 2)
	assert.Empty(t, result.Token)
	require.NotEmpty(t, result.PendingToken)

	index := 0
	for i, s := range result.Students {
		if s.ID == second.ID {
			index = i
		}
	}
	selected, err := f.svc.SelectStudent(context.Background(), result.PendingToken, index, RequestMeta{})
	require.NoError(t, err)
	require.NotNil(t, selected.Student)
	assert.Equal(t, second.ID, selected.Student.ID)
	assert.Equal(t, "5B", selected.Student.ClassName)
	assert.NotEmpty(t, selected.Token)

	_, err = f.svc.SelectStudent(context.Background(), result.PendingToken, 5, RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.SelectStudent(context.Background(), "", 0, RequestMeta{})
	assert.Error(t, err)
}

func TestLoginFailures(t *testing.T) {
	f := newSessionFixture(t)
	f.addStudent(t, f.classA.ID, "Asha", "ash1", "pw123456")

	_, err := f.svc.Login(context.Background(), models.StudentLoginRequest{Username: "ash1", Password: "nope"}, RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = f.svc.LoginWithQR(context.Background(), models.QRLoginRequest{Payload: "not json"}, RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMalformedInput.Code, appErrors.FromError(err).Code)

	result, err := f.svc.LoginWithQR(context.Background(), models.QRLoginRequest{Payload: `{"username":"ash1","password":"pw123456"}`}, RequestMeta{})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestCompleteOnboardingMarksSession(t *testing.T) {
	f := newSessionFixture(t)
	f.addStudent(t, f.classA.ID, "Asha", "ash1", "pw123456")
	ctx := context.Background()

	login, err := f.svc.Login(ctx, models.StudentLoginRequest{Username: "ash1", Password: "pw123456"}, RequestMeta{})
	require.NoError(t, err)
	claims, err := f.svc.ParseSession(context.Background(), login.Token)
	require.NoError(t, err)

	state, err := f.svc.State(ctx, claims)
	require.NoError(t, err)
	assert.False(t, state.OnboardingComplete)
	assert.Equal(t, models.OnboardingStepQuestions, state.OnboardingStep)

	student, token, err := f.svc.CompleteOnboarding(ctx, claims, validPreferences())
	require.NoError(t, err)
	assert.True(t, student.Onboarded())

	refreshed, err := f.svc.ParseSession(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, refreshed.Onboarded)
	assert.Equal(t, claims.SessionID, refreshed.SessionID)

	state, err = f.svc.State(ctx, refreshed)
	require.NoError(t, err)
	assert.True(t, state.IsAuthenticated)
	assert.True(t, state.OnboardingComplete)
	assert.Equal(t, string(StateOnboarded), state.State)
	require.NotNil(t, state.Student)
	assert.NotNil(t, state.Student.Preferences)

	again, err := f.svc.Login(ctx, models.StudentLoginRequest{Username: "ash1", Password: "pw123456"}, RequestMeta{})
	require.NoError(t, err)
	againClaims, err := f.svc.ParseSession(context.Background(), again.Token)
	require.NoError(t, err)
	assert.True(t, againClaims.Onboarded)
}

func TestCompleteOnboardingRejectsBadInput(t *testing.T) {
	f := newSessionFixture(t)
	_, _, err := f.svc.CompleteOnboarding(context.Background(), nil, validPreferences())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	f.addStudent(t, f.classA.ID, "Asha", "ash1", "pw123456")
	login, err := f.svc.Login(context.Background(), models.StudentLoginRequest{Username: "ash1", Password: "pw123456"}, RequestMeta{})
	require.NoError(t, err)
	claims, err := f.svc.ParseSession(context.Background(), login.Token)
	require.NoError(t, err)

	bad := validPreferences()
	bad.Discover = "unknown"
	_, _, err = f.svc.CompleteOnboarding(context.Background(), claims, bad)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGetStudentDataTiers(t *testing.T) {
	f := newSessionFixture(t)
	other := f.addStudent(t, f.classB.ID, "Ravi", "rav1", "pw999999")
	f.addStudent(t, f.classA.ID, "Asha", "ash1", "pw123456")
	ctx := context.Background()

	login, err := f.svc.Login(ctx, models.StudentLoginRequest{Username: "ash1", Password: "pw123456"}, RequestMeta{})
	require.NoError(t, err)
	claims, err := f.svc.ParseSession(context.Background(), login.Token)
	require.NoError(t, err)

	cached, ok := f.cache.Get(ctx, claims.SessionID, claims.Ref())
	require.True(t, ok)
	assert.Equal(t, "Asha", cached.Name)

	f.cache.Invalidate(ctx, claims.SessionID)
	fromStore, err := f.svc.GetStudentData(ctx, claims, claims.Ref())
	require.NoError(t, err)
	require.NotNil(t, fromStore)
	assert.Equal(t, "5A", fromStore.ClassName)
	_, ok = f.cache.Get(ctx, claims.SessionID, claims.Ref())
	assert.True(t, ok)

	foreign, err := f.svc.GetStudentData(ctx, claims, models.StudentRef{SchoolID: f.schoolA.ID, ClassID: f.classB.ID, StudentID: other.ID})
	require.NoError(t, err)
	assert.Nil(t, foreign)

	none, err := f.svc.GetStudentData(ctx, nil, claims.Ref())
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestLogoutClearsCachedStudent(t *testing.T) {
	f := newSessionFixture(t)
	f.addStudent(t, f.classA.ID, "Asha", "ash1", "pw123456")
	ctx := context.Background()

	login, err := f.svc.Login(ctx, models.StudentLoginRequest{Username: "ash1", Password: "pw123456"}, RequestMeta{})
	require.NoError(t, err)
	claims, err := f.svc.ParseSession(context.Background(), login.Token)
	require.NoError(t, err)

	f.svc.Logout(ctx, claims, RequestMeta{})

	_, ok := f.cache.Get(ctx, claims.SessionID, claims.Ref())
	assert.False(t, ok)
	assert.True(t, f.cache.Revoked(ctx, claims.SessionID))

	student, err := f.svc.GetStudentData(ctx, claims, claims.Ref())
	require.NoError(t, err)
	assert.Nil(t, student)

	_, err = f.svc.ParseSession(context.Background(), login.Token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	_, _, err = f.svc.CompleteOnboarding(ctx, claims, validPreferences())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	state, err := f.svc.State(ctx, nil)
	require.NoError(t, err)
	assert.False(t, state.IsAuthenticated)
	assert.Equal(t, string(StateAnonymous), state.State)
}

func TestLogoutLeavesOtherSessionsAlive(t *testing.T) {
	f := newSessionFixture(t)
	f.addStudent(t, f.classA.ID, "Asha", "ash1", "pw123456")
	ctx := context.Background()

	first, err := f.svc.Login(ctx, models.StudentLoginRequest{Username: "ash1", Password: "pw123456"}, RequestMeta{})
	require.NoError(t, err)
	second, err := f.svc.Login(ctx, models.StudentLoginRequest{Username: "ash1", Password: "pw123456"}, RequestMeta{})
	require.NoError(t, err)

	firstClaims, err := f.svc.ParseSession(ctx, first.Token)
	require.NoError(t, err)
	f.svc.Logout(ctx, firstClaims, RequestMeta{})

	secondClaims, err := f.svc.ParseSession(ctx, second.Token)
	require.NoError(t, err)
	student, err := f.svc.GetStudentData(ctx, secondClaims, secondClaims.Ref())
	require.NoError(t, err)
	require.NotNil(t, student)
	assert.Equal(t, "Asha", student.Name)
}

func TestCompleteOnboardingOnlyOnce(t *testing.T) {
	f := newSessionFixture(t)
	f.addStudent(t, f.classA.ID, "Asha", "ash1", "pw123456")
	ctx := context.Background()

	login, err := f.svc.Login(ctx, models.StudentLoginRequest{Username: "ash1", Password: "pw123456"}, RequestMeta{})
	require.NoError(t, err)
	claims, err := f.svc.ParseSession(ctx, login.Token)
	require.NoError(t, err)

	first := validPreferences()
	_, token, err := f.svc.CompleteOnboarding(ctx, claims, first)
	require.NoError(t, err)

	changed := validPreferences()
	changed.Goal = "regular"

	onboarded, err := f.svc.ParseSession(ctx, token)
	require.NoError(t, err)
	_, _, err = f.svc.CompleteOnboarding(ctx, onboarded, changed)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	// the original token still says pending; the stored answers decide
	_, _, err = f.svc.CompleteOnboarding(ctx, claims, changed)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	stored, err := f.store.Students().FindByID(ctx, claims.Ref())
	require.NoError(t, err)
	assert.Equal(t, first.Goal, stored.Preferences.Goal)
}

func TestParseSessionRejectsForeignTokens(t *testing.T) {
	f := newSessionFixture(t)
	_, err := f.svc.ParseSession(context.Background(), "garbage")
	assert.Error(t, err)

	other := NewSessionService(nil, nil, nil, nil, nil, nil, nil, nil, SessionConfig{Secret: "other", Issuer: "daksh-test"})
	token, err := other.issueSession("sid", &models.SessionStudent{Student: models.Student{ID: "x"}}, false)
	require.NoError(t, err)
	_, err = f.svc.ParseSession(context.Background(), token)
	assert.Error(t, err)
}
