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

type schoolRepository interface {
	Create(ctx context.Context, school *models.School) error
	List(ctx context.Context) ([]models.School, error)
	FindByID(ctx context.Context, id string) (*models.School, error)
}

// CreateSchoolRequest holds payload for registering a school.
type CreateSchoolRequest struct {
	SchoolID string `json:"schoolId" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
}

// SchoolService handles school use-cases.
type SchoolService struct {
	repo      schoolRepository
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSchoolService constructs the school service.
func NewSchoolService(repo schoolRepository, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *SchoolService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchoolService{repo: repo, audit: audit, validator: validate, logger: logger, now: time.Now}
}

// Create registers a new school.
func (s *SchoolService) Create(ctx context.Context, req CreateSchoolRequest, actor string) (*models.School, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.SchoolID = strings.TrimSpace(req.SchoolID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school payload")
	}
	now := s.now().UTC()
	school := &models.School{
		SchoolID:  req.SchoolID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, school); err != nil {
		s.logger.Error("create school failed", zap.String("school_id", req.SchoolID), zap.Error(err))
		return nil, storeError(err, "school not found", "failed to create school")
	}
	s.audit.Record(ctx, auditEntry(models.AuditActionSchoolCreate, "school", actor, school.ID, map[string]interface{}{"name": school.Name, "schoolId": school.SchoolID}))
	return school, nil
}

// List returns schools newest first.
func (s *SchoolService) List(ctx context.Context) ([]models.School, error) {
	schools, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("list schools failed", zap.Error(err))
		return nil, storeError(err, "school not found", "failed to list schools")
	}
	return schools, nil
}

// Search matches term case-insensitively against name, document id and schoolId.
// An empty term returns every school.
func (s *SchoolService) Search(ctx context.Context, term string) ([]models.School, error) {
	schools, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return schools, nil
	}
	matches := make([]models.School, 0, len(schools))
	for _, school := range schools {
		if strings.Contains(strings.ToLower(school.Name), needle) ||
			strings.Contains(strings.ToLower(school.ID), needle) ||
			strings.Contains(strings.ToLower(school.SchoolID), needle) {
			matches = append(matches, school)
		}
	}
	return matches, nil
}

// Get returns a school by document id.
func (s *SchoolService) Get(ctx context.Context, id string) (*models.School, error) {
	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "school not found", "failed to load school")
	}
	return school, nil
}
