package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/noah-isme/daksh-api/internal/models"
)

// StudentRepository persists students under .../classes/{classId}/students.
type StudentRepository struct {
	firestoreBase
}

// NewStudentRepository creates a Firestore-backed student repository.
func NewStudentRepository(client *firestore.Client, observer QueryObserver) *StudentRepository {
	return &StudentRepository{firestoreBase{client: client, observer: observer}}
}

// Create appends a student to the class subcollection.
func (r *StudentRepository) Create(ctx context.Context, schoolID, classID string, student *models.Student) error {
	defer r.observe("students.create", time.Now())
	ref, _, err := r.students(schoolID, classID).Add(ctx, student)
	if err != nil {
		return fmt.Errorf("add student: %w", err)
	}
	student.ID = ref.ID
	return nil
}

// ListByClass scans every student of a class.
func (r *StudentRepository) ListByClass(ctx context.Context, schoolID, classID string) ([]models.Student, error) {
	defer r.observe("students.list", time.Now())
	return r.collect(r.students(schoolID, classID).Documents(ctx))
}

// FindByUsername queries one class for students carrying the username.
func (r *StudentRepository) FindByUsername(ctx context.Context, schoolID, classID, username string) ([]models.Student, error) {
	defer r.observe("students.by_username", time.Now())
	return r.collect(r.students(schoolID, classID).Where("username", "==", username).Documents(ctx))
}

// FindByID performs a point read of a student.
func (r *StudentRepository) FindByID(ctx context.Context, ref models.StudentRef) (*models.Student, error) {
	defer r.observe("students.get", time.Now())
	var student models.Student
	if err := getDoc(ctx, r.students(ref.SchoolID, ref.ClassID).Doc(ref.StudentID), &student); err != nil {
		return nil, err
	}
	student.ID = ref.StudentID
	return &student, nil
}

// UpdatePreferences sets the questionnaire answers on an existing student.
func (r *StudentRepository) UpdatePreferences(ctx context.Context, ref models.StudentRef, prefs models.Preferences, updatedAt time.Time) error {
	defer r.observe("students.update_preferences", time.Now())
	_, err := r.students(ref.SchoolID, ref.ClassID).Doc(ref.StudentID).Update(ctx, []firestore.Update{
		{Path: "preferences", Value: prefs},
		{Path: "updatedAt", Value: updatedAt},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrDocumentNotFound
		}
		return fmt.Errorf("update student preferences: %w", err)
	}
	return nil
}

func (r *StudentRepository) collect(iter *firestore.DocumentIterator) ([]models.Student, error) {
	students := make([]models.Student, 0)
	err := eachDoc(iter, func(snap *firestore.DocumentSnapshot) error {
		var student models.Student
		if err := snap.DataTo(&student); err != nil {
			return fmt.Errorf("decode student %s: %w", snap.Ref.ID, err)
		}
		student.ID = snap.Ref.ID
		students = append(students, student)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan students: %w", err)
	}
	return students, nil
}
