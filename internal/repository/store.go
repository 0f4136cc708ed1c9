package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/noah-isme/daksh-api/internal/models"
)

// SchoolStore persists root-level school documents.
type SchoolStore interface {
	Create(ctx context.Context, school *models.School) error
	List(ctx context.Context) ([]models.School, error)
	FindByID(ctx context.Context, id string) (*models.School, error)
}

// ClassStore persists classes nested under a school.
type ClassStore interface {
	Create(ctx context.Context, schoolID string, class *models.Class) error
	ListBySchool(ctx context.Context, schoolID string) ([]models.Class, error)
	FindByID(ctx context.Context, schoolID, classID string) (*models.Class, error)
}

// StudentStore persists students nested under a class.
type StudentStore interface {
	Create(ctx context.Context, schoolID, classID string, student *models.Student) error
	ListByClass(ctx context.Context, schoolID, classID string) ([]models.Student, error)
	FindByUsername(ctx context.Context, schoolID, classID, username string) ([]models.Student, error)
	FindByID(ctx context.Context, ref models.StudentRef) (*models.Student, error)
	UpdatePreferences(ctx context.Context, ref models.StudentRef, prefs models.Preferences, updatedAt time.Time) error
}

// Stores groups the document store backends.
type Stores struct {
	Schools  SchoolStore
	Classes  ClassStore
	Students StudentStore
}

var (
	_ SchoolStore  = (*SchoolRepository)(nil)
	_ ClassStore   = (*ClassRepository)(nil)
	_ StudentStore = (*StudentRepository)(nil)
	_ SchoolStore  = (*MemorySchoolRepository)(nil)
	_ ClassStore   = (*MemoryClassRepository)(nil)
	_ StudentStore = (*MemoryStudentRepository)(nil)
)

// NewFirestoreStores wires the Firestore repositories to one client.
func NewFirestoreStores(client *firestore.Client, observer QueryObserver) Stores {
	return Stores{
		Schools:  NewSchoolRepository(client, observer),
		Classes:  NewClassRepository(client, observer),
		Students: NewStudentRepository(client, observer),
	}
}

// Stores exposes the in-memory views as a Stores bundle.
func (m *MemoryStore) Stores() Stores {
	return Stores{Schools: m.Schools(), Classes: m.Classes(), Students: m.Students()}
}
