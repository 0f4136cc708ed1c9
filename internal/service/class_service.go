package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/daksh-api/internal/models"
	appErrors "github.com/noah-isme/daksh-api/pkg/errors"
)

type classRepository interface {
	Create(ctx context.Context, schoolID string, class *models.Class) error
	ListBySchool(ctx context.Context, schoolID string) ([]models.Class, error)
	FindByID(ctx context.Context, schoolID, classID string) (*models.Class, error)
}

type classStudentLister interface {
	ListByClass(ctx context.Context, schoolID, classID string) ([]models.Student, error)
}

// CreateClassRequest holds payload for creating a class.
type CreateClassRequest struct {
	Name               string `json:"name" validate:"required"`
	NumberOfStudents   int    `json:"numberOfStudents" validate:"required,min=1,max=500"`
	StartingRollNumber string `json:"startingRollNumber" validate:"required"`
}

// ClassService handles class use-cases.
type ClassService struct {
	schools   schoolRepository
	repo      classRepository
	students  classStudentLister
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewClassService constructs the class service.
func NewClassService(schools schoolRepository, repo classRepository, students classStudentLister, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{schools: schools, repo: repo, students: students, audit: audit, validator: validate, logger: logger, now: time.Now}
}

// Create adds a class to a school and derives its ending roll number.
func (s *ClassService) Create(ctx context.Context, schoolID string, req CreateClassRequest, actor string) (*models.Class, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.StartingRollNumber = strings.TrimSpace(req.StartingRollNumber)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	rolls, err := GenerateRollNumbers(req.StartingRollNumber, req.NumberOfStudents)
	if err != nil {
		return nil, err
	}
	if _, err := s.schools.FindByID(ctx, schoolID); err != nil {
		return nil, storeError(err, "school not found", "failed to load school")
	}

	now := s.now().UTC()
	class := &models.Class{
		Name:               req.Name,
		NumberOfStudents:   req.NumberOfStudents,
		StartingRollNumber: req.StartingRollNumber,
		EndingRollNumber:   rolls[len(rolls)-1],
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Create(ctx, schoolID, class); err != nil {
		s.logger.Error("create class failed", zap.String("school_id", schoolID), zap.Error(err))
		return nil, storeError(err, "school not found", "failed to create class")
	}
	s.audit.Record(ctx, auditEntry(models.AuditActionClassCreate, "class", actor, class.ID, map[string]interface{}{"schoolId": schoolID, "name": class.Name}))
	return class, nil
}

// List returns the classes of a school.
func (s *ClassService) List(ctx context.Context, schoolID string) ([]models.Class, error) {
	classes, err := s.repo.ListBySchool(ctx, schoolID)
	if err != nil {
		s.logger.Error("list classes failed", zap.String("school_id", schoolID), zap.Error(err))
		return nil, storeError(err, "school not found", "failed to list classes")
	}
	return classes, nil
}

// Get returns one class.
func (s *ClassService) Get(ctx context.Context, schoolID, classID string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, schoolID, classID)
	if err != nil {
		return nil, storeError(err, "class not found", "failed to load class")
	}
	return class, nil
}

// AvailableRollNumbers returns the class range minus roll numbers already taken.
func (s *ClassService) AvailableRollNumbers(ctx context.Context, schoolID, classID string) ([]string, error) {
	class, err := s.Get(ctx, schoolID, classID)
	if err != nil {
		return nil, err
	}
	students, err := s.students.ListByClass(ctx, schoolID, classID)
	if err != nil {
		return nil, storeError(err, "class not found", "failed to list students")
	}
	return availableRollNumbers(class, students)
}

func availableRollNumbers(class *models.Class, students []models.Student) ([]string, error) {
	rolls, err := GenerateRollNumbers(class.StartingRollNumber, class.NumberOfStudents)
	if err != nil {
		return nil, err
	}
	used := make(map[string]struct{}, len(students))
	for _, st := range students {
		used[st.RollNumber] = struct{}{}
	}
	available := make([]string, 0, len(rolls))
	for _, roll := range rolls {
		if _, taken := used[roll]; !taken {
			available = append(available, roll)
		}
	}
	return available, nil
}
