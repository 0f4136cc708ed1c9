package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/daksh-api/internal/models"
)

// MemoryStore keeps the school hierarchy in process. It backs STORE_DRIVER=memory and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	schools  map[string]models.School
	classes  map[string]map[string]models.Class
	students map[string]map[string]map[string]models.Student
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		schools:  make(map[string]models.School),
		classes:  make(map[string]map[string]models.Class),
		students: make(map[string]map[string]map[string]models.Student),
	}
}

// Schools returns a school repository view over the store.
func (s *MemoryStore) Schools() *MemorySchoolRepository { return &MemorySchoolRepository{s} }

// Classes returns a class repository view over the store.
func (s *MemoryStore) Classes() *MemoryClassRepository { return &MemoryClassRepository{s} }

// Students returns a student repository view over the store.
func (s *MemoryStore) Students() *MemoryStudentRepository { return &MemoryStudentRepository{s} }

// MemorySchoolRepository is the in-memory SchoolStore.
type MemorySchoolRepository struct{ store *MemoryStore }

// Create stores a school under a generated ID.
func (r *MemorySchoolRepository) Create(ctx context.Context, school *models.School) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	school.ID = uuid.NewString()
	r.store.schools[school.ID] = *school
	return nil
}

// List returns schools newest first.
func (r *MemorySchoolRepository) List(ctx context.Context) ([]models.School, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	schools := make([]models.School, 0, len(r.store.schools))
	for _, school := range r.store.schools {
		schools = append(schools, school)
	}
	sort.SliceStable(schools, func(i, j int) bool {
		return schools[i].CreatedAt.After(schools[j].CreatedAt)
	})
	return schools, nil
}

// FindByID returns one school or ErrDocumentNotFound.
func (r *MemorySchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	school, ok := r.store.schools[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return &school, nil
}

// MemoryClassRepository is the in-memory ClassStore.
type MemoryClassRepository struct{ store *MemoryStore }

// Create adds a class to an existing school.
func (r *MemoryClassRepository) Create(ctx context.Context, schoolID string, class *models.Class) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.schools[schoolID]; !ok {
		return ErrDocumentNotFound
	}
	class.ID = uuid.NewString()
	if r.store.classes[schoolID] == nil {
		r.store.classes[schoolID] = make(map[string]models.Class)
	}
	r.store.classes[schoolID][class.ID] = *class
	return nil
}

// ListBySchool returns a school's classes oldest first.
func (r *MemoryClassRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.Class, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	classes := make([]models.Class, 0, len(r.store.classes[schoolID]))
	for _, class := range r.store.classes[schoolID] {
		classes = append(classes, class)
	}
	sort.SliceStable(classes, func(i, j int) bool {
		return classes[i].CreatedAt.Before(classes[j].CreatedAt)
	})
	return classes, nil
}

// FindByID returns one class or ErrDocumentNotFound.
func (r *MemoryClassRepository) FindByID(ctx context.Context, schoolID, classID string) (*models.Class, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	class, ok := r.store.classes[schoolID][classID]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return &class, nil
}

// MemoryStudentRepository is the in-memory StudentStore.
type MemoryStudentRepository struct{ store *MemoryStore }

// Create adds a student to an existing class.
func (r *MemoryStudentRepository) Create(ctx context.Context, schoolID, classID string, student *models.Student) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.classes[schoolID][classID]; !ok {
		return ErrDocumentNotFound
	}
	student.ID = uuid.NewString()
	if r.store.students[schoolID] == nil {
		r.store.students[schoolID] = make(map[string]map[string]models.Student)
	}
	if r.store.students[schoolID][classID] == nil {
		r.store.students[schoolID][classID] = make(map[string]models.Student)
	}
	r.store.students[schoolID][classID][student.ID] = *student
	return nil
}

// ListByClass returns every student of a class oldest first.
func (r *MemoryStudentRepository) ListByClass(ctx context.Context, schoolID, classID string) ([]models.Student, error) {
	return r.filter(schoolID, classID, func(models.Student) bool { return true }), nil
}

// FindByUsername returns the students of one class carrying the username.
func (r *MemoryStudentRepository) FindByUsername(ctx context.Context, schoolID, classID, username string) ([]models.Student, error) {
	return r.filter(schoolID, classID, func(s models.Student) bool { return s.Username == username }), nil
}

// FindByID returns a copy of one student or ErrDocumentNotFound.
func (r *MemoryStudentRepository) FindByID(ctx context.Context, ref models.StudentRef) (*models.Student, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	student, ok := r.store.students[ref.SchoolID][ref.ClassID][ref.StudentID]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return cloneStudent(student), nil
}

// UpdatePreferences sets the questionnaire answers on an existing student.
func (r *MemoryStudentRepository) UpdatePreferences(ctx context.Context, ref models.StudentRef, prefs models.Preferences, updatedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	student, ok := r.store.students[ref.SchoolID][ref.ClassID][ref.StudentID]
	if !ok {
		return ErrDocumentNotFound
	}
	prefs.Subjects = append([]string(nil), prefs.Subjects...)
	student.Preferences = &prefs
	student.UpdatedAt = updatedAt
	r.store.students[ref.SchoolID][ref.ClassID][ref.StudentID] = student
	return nil
}

func (r *MemoryStudentRepository) filter(schoolID, classID string, keep func(models.Student) bool) []models.Student {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	students := make([]models.Student, 0)
	for _, student := range r.store.students[schoolID][classID] {
		if keep(student) {
			students = append(students, *cloneStudent(student))
		}
	}
	sort.SliceStable(students, func(i, j int) bool {
		return students[i].CreatedAt.Before(students[j].CreatedAt)
	})
	return students
}

// cloneStudent copies the preferences so callers cannot mutate stored state.
func cloneStudent(s models.Student) *models.Student {
	if s.Preferences != nil {
		prefs := *s.Preferences
		prefs.Subjects = append([]string(nil), prefs.Subjects...)
		s.Preferences = &prefs
	}
	return &s
}
