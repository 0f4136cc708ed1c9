package models

import "time"

// Class is owned by exactly one school (schools/{schoolId}/classes).
type Class struct {
	ID                 string    `firestore:"-" json:"id"`
	Name               string    `firestore:"name" json:"name"`
	NumberOfStudents   int       `firestore:"numberOfStudents" json:"numberOfStudents"`
	StartingRollNumber string    `firestore:"startingRollNumber" json:"startingRollNumber"`
	EndingRollNumber   string    `firestore:"endingRollNumber" json:"endingRollNumber"`
	CreatedAt          time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time `firestore:"updatedAt" json:"updatedAt"`
}
