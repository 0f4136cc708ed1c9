package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/noah-isme/daksh-api/internal/models"
)

// ClassRepository persists classes under schools/{schoolId}/classes.
type ClassRepository struct {
	firestoreBase
}

// NewClassRepository creates a Firestore-backed class repository.
func NewClassRepository(client *firestore.Client, observer QueryObserver) *ClassRepository {
	return &ClassRepository{firestoreBase{client: client, observer: observer}}
}

// Create appends a class to the school's subcollection.
func (r *ClassRepository) Create(ctx context.Context, schoolID string, class *models.Class) error {
	defer r.observe("classes.create", time.Now())
	ref, _, err := r.classes(schoolID).Add(ctx, class)
	if err != nil {
		return fmt.Errorf("add class: %w", err)
	}
	class.ID = ref.ID
	return nil
}

// ListBySchool scans every class of a school.
func (r *ClassRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.Class, error) {
	defer r.observe("classes.list", time.Now())
	classes := make([]models.Class, 0)
	err := eachDoc(r.classes(schoolID).Documents(ctx), func(snap *firestore.DocumentSnapshot) error {
		var class models.Class
		if err := snap.DataTo(&class); err != nil {
			return fmt.Errorf("decode class %s: %w", snap.Ref.ID, err)
		}
		class.ID = snap.Ref.ID
		classes = append(classes, class)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindByID performs a point read of a class.
func (r *ClassRepository) FindByID(ctx context.Context, schoolID, classID string) (*models.Class, error) {
	defer r.observe("classes.get", time.Now())
	var class models.Class
	if err := getDoc(ctx, r.classes(schoolID).Doc(classID), &class); err != nil {
		return nil, err
	}
	class.ID = classID
	return &class, nil
}
