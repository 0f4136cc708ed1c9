package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/daksh-api/internal/models"
	appErrors "github.com/noah-isme/daksh-api/pkg/errors"
	"github.com/noah-isme/daksh-api/pkg/export"
	"github.com/noah-isme/daksh-api/pkg/qr"
)

type studentRepository interface {
	Create(ctx context.Context, schoolID, classID string, student *models.Student) error
	ListByClass(ctx context.Context, schoolID, classID string) ([]models.Student, error)
	FindByUsername(ctx context.Context, schoolID, classID, username string) ([]models.Student, error)
	FindByID(ctx context.Context, ref models.StudentRef) (*models.Student, error)
	UpdatePreferences(ctx context.Context, ref models.StudentRef, prefs models.Preferences, updatedAt time.Time) error
}

// Export formats supported by ExportCredentials.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// CreateStudentRequest holds payload for adding a student to a class.
type CreateStudentRequest struct {
	Name       string `json:"name" validate:"required"`
	RollNumber string `json:"rollNumber" validate:"required"`
}

// ExportFile is a rendered credential export.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// StudentService handles student use-cases.
type StudentService struct {
	classes       classRepository
	repo          studentRepository
	questionnaire *QuestionnaireService
	qr            *qr.Generator
	csv           *export.CSVExporter
	pdf           *export.PDFExporter
	audit         *AuditService
	validator     *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(classes classRepository, repo studentRepository, questionnaire *QuestionnaireService, generator *qr.Generator, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if questionnaire == nil {
		questionnaire = NewQuestionnaireService(validate)
	}
	if generator == nil {
		generator = qr.NewGenerator(0)
	}
	return &StudentService{
		classes:       classes,
		repo:          repo,
		questionnaire: questionnaire,
		qr:            generator,
		csv:           export.NewCSVExporter(),
		pdf:           export.NewPDFExporter(),
		audit:         audit,
		validator:     validate,
		logger:        logger,
		now:           time.Now,
	}
}

// Create adds a student with generated credentials. The plaintext password and
// the login QR code that embeds it are only returned here; the store keeps a
// bcrypt hash.
func (s *StudentService) Create(ctx context.Context, schoolID, classID string, req CreateStudentRequest, actor string) (*models.CreatedStudent, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.RollNumber = strings.TrimSpace(req.RollNumber)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	class, err := s.classes.FindByID(ctx, schoolID, classID)
	if err != nil {
		return nil, storeError(err, "class not found", "failed to load class")
	}
	if err := s.checkRollNumber(ctx, schoolID, classID, class, req.RollNumber); err != nil {
		return nil, err
	}

	password, err := GeneratePassword()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate password")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	username := GenerateUsername(req.Name, req.RollNumber, classID, schoolID)
	qrCode, err := s.qr.DataURI(username, password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate qr code")
	}

	now := s.now().UTC()
	student := &models.Student{
		Name:         req.Name,
		RollNumber:   req.RollNumber,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, schoolID, classID, student); err != nil {
		s.logger.Error("create student failed", zap.String("school_id", schoolID), zap.String("class_id", classID), zap.Error(err))
		return nil, storeError(err, "class not found", "failed to create student")
	}
	s.audit.Record(ctx, auditEntry(models.AuditActionStudentCreate, "student", actor, student.ID, map[string]interface{}{
		"schoolId": schoolID, "classId": classID, "username": username,
	}))
	created := &models.CreatedStudent{Student: *student, Password: password}
	created.QRCode = qrCode
	return created, nil
}

func (s *StudentService) checkRollNumber(ctx context.Context, schoolID, classID string, class *models.Class, roll string) error {
	rolls, err := GenerateRollNumbers(class.StartingRollNumber, class.NumberOfStudents)
	if err != nil {
		return err
	}
	inRange := false
	for _, r := range rolls {
		if r == roll {
			inRange = true
			break
		}
	}
	if !inRange {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("roll number %s is outside %s-%s", roll, class.StartingRollNumber, class.EndingRollNumber))
	}
	existing, err := s.repo.ListByClass(ctx, schoolID, classID)
	if err != nil {
		return storeError(err, "class not found", "failed to list students")
	}
	for _, st := range existing {
		if st.RollNumber == roll {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("roll number %s is already assigned", roll))
		}
	}
	return nil
}

// List returns the students of a class.
func (s *StudentService) List(ctx context.Context, schoolID, classID string) ([]models.Student, error) {
	students, err := s.repo.ListByClass(ctx, schoolID, classID)
	if err != nil {
		s.logger.Error("list students failed", zap.String("class_id", classID), zap.Error(err))
		return nil, storeError(err, "class not found", "failed to list students")
	}
	return students, nil
}

// Get returns one student.
func (s *StudentService) Get(ctx context.Context, ref models.StudentRef) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, ref)
	if err != nil {
		return nil, storeError(err, "student not found", "failed to load student")
	}
	return student, nil
}

// UpdatePreferences validates and stores questionnaire answers, returning the refreshed student.
func (s *StudentService) UpdatePreferences(ctx context.Context, ref models.StudentRef, prefs models.Preferences) (*models.Student, error) {
	if err := s.questionnaire.ValidatePreferences(prefs); err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePreferences(ctx, ref, prefs, s.now().UTC()); err != nil {
		s.logger.Error("update preferences failed", zap.String("student_id", ref.StudentID), zap.Error(err))
		return nil, storeError(err, "student not found", "failed to save preferences")
	}
	return s.Get(ctx, ref)
}

// ExportCredentials renders the class roster as a CSV sheet or PDF login cards.
func (s *StudentService) ExportCredentials(ctx context.Context, schoolID, classID, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	class, err := s.classes.FindByID(ctx, schoolID, classID)
	if err != nil {
		return nil, storeError(err, "class not found", "failed to load class")
	}
	students, err := s.List(ctx, schoolID, classID)
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class has no students")
	}

	base := fmt.Sprintf("credentials-%s", slug(class.Name))
	if format == ExportFormatCSV {
		dataset := export.Dataset{Columns: credentialColumns}
		for _, st := range students {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"name": st.Name, "rollNumber": st.RollNumber, "username": st.Username,
			})
		}
		body, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{Filename: base + ".csv", ContentType: "text/csv", Body: body}, nil
	}

	body, err := s.pdf.RenderCards(s.credentialCards(students), "Class "+class.Name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return &ExportFile{Filename: base + ".pdf", ContentType: "application/pdf", Body: body}, nil
}

// credentialCards builds one card per student. Hashed records carry no
// recoverable password, so their cards only name the account; legacy
// plaintext records still print the password and their stored QR code.
func (s *StudentService) credentialCards(students []models.Student) []export.CredentialCard {
	cards := make([]export.CredentialCard, 0, len(students))
	for _, st := range students {
		card := export.CredentialCard{Name: st.Name, RollNumber: st.RollNumber, Username: st.Username}
		if st.PasswordHash == "" && st.Password != "" {
			card.Password = st.Password
			if png, err := qr.DecodeDataURI(st.QRCode); err == nil {
				card.QRPNG = png
			} else if st.QRCode != "" {
				s.logger.Warn("student qr code unreadable", zap.String("student_id", st.ID), zap.Error(err))
			}
		}
		cards = append(cards, card)
	}
	return cards
}

var credentialColumns = []export.Column{
	{Key: "name", Label: "Name"},
	{Key: "rollNumber", Label: "Roll Number"},
	{Key: "username", Label: "Username"},
}

func slug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "class"
	}
	return b.String()
}
