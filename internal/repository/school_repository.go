package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/noah-isme/daksh-api/internal/models"
)

// SchoolRepository persists schools in the root schools collection.
type SchoolRepository struct {
	firestoreBase
}

// NewSchoolRepository creates a Firestore-backed school repository.
func NewSchoolRepository(client *firestore.Client, observer QueryObserver) *SchoolRepository {
	return &SchoolRepository{firestoreBase{client: client, observer: observer}}
}

// Create appends a school document and fills its generated ID.
func (r *SchoolRepository) Create(ctx context.Context, school *models.School) error {
	defer r.observe("schools.create", time.Now())
	ref, _, err := r.schools().Add(ctx, school)
	if err != nil {
		return fmt.Errorf("add school: %w", err)
	}
	school.ID = ref.ID
	return nil
}

// List returns schools newest first.
func (r *SchoolRepository) List(ctx context.Context) ([]models.School, error) {
	defer r.observe("schools.list", time.Now())
	schools := make([]models.School, 0)
	err := eachDoc(r.schools().OrderBy("createdAt", firestore.Desc).Documents(ctx), func(snap *firestore.DocumentSnapshot) error {
		var school models.School
		if err := snap.DataTo(&school); err != nil {
			return fmt.Errorf("decode school %s: %w", snap.Ref.ID, err)
		}
		school.ID = snap.Ref.ID
		schools = append(schools, school)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	return schools, nil
}

// FindByID performs a point read of a school.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	defer r.observe("schools.get", time.Now())
	var school models.School
	if err := getDoc(ctx, r.schools().Doc(id), &school); err != nil {
		return nil, err
	}
	school.ID = id
	return &school, nil
}
