package repository

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	schoolsCollection  = "schools"
	classesCollection  = "classes"
	studentsCollection = "students"
)

// ErrDocumentNotFound is returned by point reads that miss.
var ErrDocumentNotFound = errors.New("document not found")

// QueryObserver receives timing for every store round trip.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

type firestoreBase struct {
	client   *firestore.Client
	observer QueryObserver
}

func (b firestoreBase) observe(label string, start time.Time) {
	if b.observer != nil {
		b.observer.ObserveDBQuery(label, time.Since(start))
	}
}

func (b firestoreBase) schools() *firestore.CollectionRef {
	return b.client.Collection(schoolsCollection)
}

func (b firestoreBase) classes(schoolID string) *firestore.CollectionRef {
	return b.schools().Doc(schoolID).Collection(classesCollection)
}

func (b firestoreBase) students(schoolID, classID string) *firestore.CollectionRef {
	return b.classes(schoolID).Doc(classID).Collection(studentsCollection)
}

// getDoc performs a point read and decodes it into dest.
func getDoc(ctx context.Context, ref *firestore.DocumentRef, dest interface{}) error {
	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrDocumentNotFound
		}
		return err
	}
	if !snap.Exists() {
		return ErrDocumentNotFound
	}
	return snap.DataTo(dest)
}

// eachDoc drains a document iterator, calling fn per snapshot.
func eachDoc(iter *firestore.DocumentIterator, fn func(*firestore.DocumentSnapshot) error) error {
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(snap); err != nil {
			return err
		}
	}
}
