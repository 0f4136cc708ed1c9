package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/daksh-api/internal/models"
	appErrors "github.com/noah-isme/daksh-api/pkg/errors"
	"github.com/noah-isme/daksh-api/pkg/qr"
)

// StudentAuthService verifies student credentials across every school and class.
type StudentAuthService struct {
	schools  schoolRepository
	classes  classRepository
	students studentRepository
	logger   *zap.Logger
}

// NewStudentAuthService constructs the student authentication service.
func NewStudentAuthService(schools schoolRepository, classes classRepository, students studentRepository, logger *zap.Logger) *StudentAuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentAuthService{schools: schools, classes: classes, students: students, logger: logger}
}

// Authenticate returns every student whose username and password match, each
// enriched with its school and class. No match is an authentication failure.
func (s *StudentAuthService) Authenticate(ctx context.Context, username, password string) ([]*models.SessionStudent, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "username and password are required")
	}

	schools, err := s.schools.List(ctx)
	if err != nil {
		s.logger.Error("auth scan: list schools failed", zap.Error(err))
		return nil, storeError(err, "school not found", "failed to authenticate")
	}

	matches := make([]*models.SessionStudent, 0, 1)
	for _, school := range schools {
		classes, err := s.classes.ListBySchool(ctx, school.ID)
		if err != nil {
			s.logger.Error("auth scan: list classes failed", zap.String("school_id", school.ID), zap.Error(err))
			return nil, storeError(err, "school not found", "failed to authenticate")
		}
		for _, class := range classes {
			candidates, err := s.students.FindByUsername(ctx, school.ID, class.ID, username)
			if err != nil {
				s.logger.Error("auth scan: query students failed", zap.String("class_id", class.ID), zap.Error(err))
				return nil, storeError(err, "class not found", "failed to authenticate")
			}
			for _, candidate := range candidates {
				if !VerifyPassword(candidate, password) {
					continue
				}
				matches = append(matches, enrich(candidate, school, class))
			}
		}
	}

	if len(matches) == 0 {
		return nil, appErrors.ErrInvalidCredentials
	}
	return matches, nil
}

// AuthenticateQR parses a scanned QR payload and authenticates its credentials.
func (s *StudentAuthService) AuthenticateQR(ctx context.Context, raw string) ([]*models.SessionStudent, error) {
	payload, err := qr.ParsePayload(raw)
	if err != nil {
		return nil, err
	}
	return s.Authenticate(ctx, payload.Username, payload.Password)
}

// enrich attaches placement to a student and strips credential material.
func enrich(student models.Student, school models.School, class models.Class) *models.SessionStudent {
	student.PasswordHash = ""
	student.Password = ""
	student.QRCode = ""
	return &models.SessionStudent{
		Student:    student,
		SchoolID:   school.ID,
		SchoolName: school.Name,
		ClassID:    class.ID,
		ClassName:  class.Name,
	}
}
