package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/daksh-api/internal/models"
)

func seedMemoryStore(t *testing.T) (*MemoryStore, string, string) {
	t.Helper()
	ctx := context.Background()
	store := NewMemoryStore()

	school := &models.School{Name: "Green Valley", SchoolID: "GV01", CreatedAt: time.Now()}
	require.NoError(t, store.Schools().Create(ctx, school))
	class := &models.Class{Name: "5A", NumberOfStudents: 3, StartingRollNumber: "1", EndingRollNumber: "3"}
	require.NoError(t, store.Classes().Create(ctx, school.ID, class))
	return store, school.ID, class.ID
}

func TestMemoryStoreSchoolsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Schools().Create(ctx, &models.School{Name: "old", CreatedAt: base}))
	require.NoError(t, store.Schools().Create(ctx, &models.School{Name: "new", CreatedAt: base.Add(time.Hour)}))

	schools, err := store.Schools().List(ctx)
	require.NoError(t, err)
	require.Len(t, schools, 2)
	assert.Equal(t, "new", schools[0].Name)
	assert.Equal(t, "old", schools[1].Name)
}

func TestMemoryStoreMissingParents(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.Classes().Create(ctx, "nope", &models.Class{Name: "x"})
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	err = store.Students().Create(ctx, "nope", "nope", &models.Student{Name: "x"})
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = store.Schools().FindByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestMemoryStoreStudentQueries(t *testing.T) {
	ctx := context.Background()
	store, schoolID, classID := seedMemoryStore(t)
	students := store.Students()

	require.NoError(t, students.Create(ctx, schoolID, classID, &models.Student{Name: "Asha", Username: "ash1xxyy"}))
	require.NoError(t, students.Create(ctx, schoolID, classID, &models.Student{Name: "Ravi", Username: "rav2xxyy"}))

	matches, err := students.FindByUsername(ctx, schoolID, classID, "ash1xxyy")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Asha", matches[0].Name)

	all, err := students.ListByClass(ctx, schoolID, classID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := students.FindByUsername(ctx, schoolID, "other", "ash1xxyy")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStoreUpdatePreferences(t *testing.T) {
	ctx := context.Background()
	store, schoolID, classID := seedMemoryStore(t)
	student := &models.Student{Name: "Asha"}
	require.NoError(t, store.Students().Create(ctx, schoolID, classID, student))
	ref := models.StudentRef{SchoolID: schoolID, ClassID: classID, StudentID: student.ID}

	prefs := models.Preferences{Discover: "iq", Improvement: "memory", Level: "basics", Goal: "casual", Subjects: []string{"science"}}
	now := time.Now()
	require.NoError(t, store.Students().UpdatePreferences(ctx, ref, prefs, now))

	got, err := store.Students().FindByID(ctx, ref)
	require.NoError(t, err)
	require.True(t, got.Onboarded())
	assert.Equal(t, "iq", got.Preferences.Discover)

	got.Preferences.Subjects[0] = "mutated"
	again, err := store.Students().FindByID(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "science", again.Preferences.Subjects[0])

	err = store.Students().UpdatePreferences(ctx, models.StudentRef{SchoolID: schoolID, ClassID: classID, StudentID: "nope"}, prefs, now)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}
