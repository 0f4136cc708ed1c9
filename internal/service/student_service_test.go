package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/daksh-api/internal/models"
	"github.com/noah-isme/daksh-api/internal/repository"
	appErrors "github.com/noah-isme/daksh-api/pkg/errors"
	"github.com/noah-isme/daksh-api/pkg/qr"
)

func newStudentFixture(t *testing.T) (*StudentService, *repository.MemoryStore, string, string) {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	school := &models.School{Name: "Green Valley", SchoolID: "GV01"}
	require.NoError(t, store.Schools().Create(ctx, school))
	class := &models.Class{Name: "5 A", NumberOfStudents: 3, StartingRollNumber: "1", EndingRollNumber: "3"}
	require.NoError(t, store.Classes().Create(ctx, school.ID, class))
	svc := NewStudentService(store.Classes(), store.Students(), nil, qr.NewGenerator(128), nil, nil, nil)
	return svc, store, school.ID, class.ID
}

func TestStudentServiceCreateGeneratesCredentials(t *testing.T) {
	svc, store, schoolID, classID := newStudentFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, schoolID, classID, CreateStudentRequest{Name: "Asha Rao", RollNumber: "2"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, GenerateUsername("Asha Rao", "2", classID, schoolID), created.Username)
	assert.Len(t, created.Password, 8)
	assert.True(t, strings.HasPrefix(created.QRCode, "data:image/png;base64,"))

	stored, err := store.Students().FindByID(ctx, models.StudentRef{SchoolID: schoolID, ClassID: classID, StudentID: created.ID})
	require.NoError(t, err)
	assert.Empty(t, stored.Password)
	assert.Empty(t, stored.QRCode)
	assert.NotEqual(t, created.Password, stored.PasswordHash)
	assert.True(t, VerifyPassword(*stored, created.Password))
}

func TestStudentServiceRollNumberRules(t *testing.T) {
	svc, _, schoolID, classID := newStudentFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, schoolID, classID, CreateStudentRequest{Name: "A", RollNumber: "9"}, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(ctx, schoolID, classID, CreateStudentRequest{Name: "A", RollNumber: "1"}, "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, schoolID, classID, CreateStudentRequest{Name: "B", RollNumber: "1"}, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(ctx, schoolID, "missing", CreateStudentRequest{Name: "B", RollNumber: "1"}, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdatePreferences(t *testing.T) {
	svc, _, schoolID, classID := newStudentFixture(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, schoolID, classID, CreateStudentRequest{Name: "Asha", RollNumber: "3"}, "")
	require.NoError(t, err)

	ref := models.StudentRef{SchoolID: schoolID, ClassID: classID, StudentID: created.ID}
	updated, err := svc.UpdatePreferences(ctx, ref, validPreferences())
	require.NoError(t, err)
	assert.True(t, updated.Onboarded())

	_, err = svc.UpdatePreferences(ctx, models.StudentRef{SchoolID: schoolID, ClassID: classID, StudentID: "nope"}, validPreferences())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceExportCredentials(t *testing.T) {
	svc, _, schoolID, classID := newStudentFixture(t)
	ctx := context.Background()

	_, err := svc.ExportCredentials(ctx, schoolID, classID, "csv")
	require.Error(t, err)

	_, err = svc.Create(ctx, schoolID, classID, CreateStudentRequest{Name: "Asha", RollNumber: "1"}, "")
	require.NoError(t, err)

	csvFile, err := svc.ExportCredentials(ctx, schoolID, classID, "")
	require.NoError(t, err)
	assert.Equal(t, "credentials-5-a.csv", csvFile.Filename)
	assert.Contains(t, string(csvFile.Body), "Name,Roll Number,Username")
	assert.Contains(t, string(csvFile.Body), "Asha,1,")

	pdfFile, err := svc.ExportCredentials(ctx, schoolID, classID, "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdfFile.ContentType)
	assert.True(t, bytes.HasPrefix(pdfFile.Body, []byte("%PDF")))

	_, err = svc.ExportCredentials(ctx, schoolID, classID, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceCredentialCards(t *testing.T) {
	svc, _, _, _ := newStudentFixture(t)
	legacyQR, err := qr.NewGenerator(128).DataURI("old1xxyy", "Legacy12")
	require.NoError(t, err)

	cards := svc.credentialCards([]models.Student{
		{ID: "a", Name: "Asha", RollNumber: "1", Username: "ash1xxyy", PasswordHash: "$2a$10$hash"},
		{ID: "b", Name: "Old", RollNumber: "2", Username: "old1xxyy", Password: "Legacy12", QRCode: legacyQR},
		{ID: "c", Name: "Broken", RollNumber: "3", Username: "bro3xxyy", Password: "Legacy34", QRCode: "not-a-data-uri"},
	})
	require.Len(t, cards, 3)

	assert.Equal(t, "ash1xxyy", cards[0].Username)
	assert.Empty(t, cards[0].Password)
	assert.Empty(t, cards[0].QRPNG)

	assert.Equal(t, "Legacy12", cards[1].Password)
	assert.True(t, bytes.HasPrefix(cards[1].QRPNG, []byte{0x89, 'P', 'N', 'G'}))

	assert.Equal(t, "Legacy34", cards[2].Password)
	assert.Empty(t, cards[2].QRPNG)
}
