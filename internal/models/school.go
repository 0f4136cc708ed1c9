package models

import "time"

// School is a root-level document in the schools collection.
type School struct {
	ID        string    `firestore:"-" json:"id"`
	SchoolID  string    `firestore:"schoolId" json:"schoolId"`
	Name      string    `firestore:"name" json:"name"`
	Email     string    `firestore:"email" json:"email"`
	Phone     string    `firestore:"phone" json:"phone"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt" json:"updatedAt"`
}
