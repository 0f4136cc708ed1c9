package models

import "time"

// Student is owned by exactly one class (.../classes/{classId}/students).
// Password and QRCode are only populated for records written before hashing
// was introduced; new records keep PasswordHash alone.
type Student struct {
	ID           string       `firestore:"-" json:"id"`
	Name         string       `firestore:"name" json:"name"`
	RollNumber   string       `firestore:"rollNumber" json:"rollNumber"`
	Username     string       `firestore:"username" json:"username"`
	PasswordHash string       `firestore:"passwordHash,omitempty" json:"-"`
	Password     string       `firestore:"password,omitempty" json:"-"`
	QRCode       string       `firestore:"qrCode,omitempty" json:"qrCode,omitempty"`
	Preferences  *Preferences `firestore:"preferences,omitempty" json:"preferences,omitempty"`
	CreatedAt    time.Time    `firestore:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time    `firestore:"updatedAt" json:"updatedAt"`
}

// Onboarded reports whether the questionnaire has been completed.
func (s *Student) Onboarded() bool {
	return s != nil && s.Preferences != nil
}

// SessionStudent is a student enriched with its owning school and class,
// as produced by the authentication scan and carried in sessions.
type SessionStudent struct {
	Student
	SchoolID   string `json:"schoolId"`
	SchoolName string `json:"schoolName,omitempty"`
	ClassID    string `json:"classId"`
	ClassName  string `json:"className,omitempty"`
}

// StudentRef addresses a student document in the nested hierarchy.
type StudentRef struct {
	SchoolID  string `json:"schoolId"`
	ClassID   string `json:"classId"`
	StudentID string `json:"studentId"`
}

// Ref returns the document address of the student.
func (s *SessionStudent) Ref() StudentRef {
	return StudentRef{SchoolID: s.SchoolID, ClassID: s.ClassID, StudentID: s.ID}
}

// CreatedStudent is returned once on creation and carries the generated
// plaintext password and its login QR code.
type CreatedStudent struct {
	Student
	Password string `json:"password"`
}
