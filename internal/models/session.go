package models

import "github.com/golang-jwt/jwt/v5"

// OnboardingStepQuestions is the only persisted intermediate step.
const OnboardingStepQuestions = "questions"

// SessionClaims is the single authoritative student session, carried in a signed cookie.
type SessionClaims struct {
	SessionID      string `json:"sid"`
	StudentID      string `json:"student_id"`
	SchoolID       string `json:"school_id"`
	ClassID        string `json:"class_id"`
	Name           string `json:"name"`
	LoginCompleted bool   `json:"login_completed"`
	Onboarded      bool   `json:"onboarded"`
	jwt.RegisteredClaims
}

// Ref returns the document address of the session's student.
func (c *SessionClaims) Ref() StudentRef {
	return StudentRef{SchoolID: c.SchoolID, ClassID: c.ClassID, StudentID: c.StudentID}
}

// PendingClaims holds the candidates of a multi-match login until one is selected.
type PendingClaims struct {
	Candidates []StudentRef `json:"candidates"`
	jwt.RegisteredClaims
}

// StudentIdentity is the minimal identity mirrored into the studentData cookie.
type StudentIdentity struct {
	ID       string `json:"id"`
	SchoolID string `json:"schoolId"`
	ClassID  string `json:"classId"`
	Name     string `json:"name"`
}

// LoginResult is the outcome of a login, QR login, or selection.
type LoginResult struct {
	Success         bool              `json:"success"`
	Student         *SessionStudent   `json:"student,omitempty"`
	MultipleMatches bool              `json:"multipleMatches"`
	Students        []*SessionStudent `json:"students,omitempty"`
	Error           string            `json:"error,omitempty"`

	// Token and PendingToken are written to cookies by the transport layer.
	Token        string `json:"-"`
	PendingToken string `json:"-"`
}

// SessionState is the client-facing view of the current session.
type SessionState struct {
	State              string          `json:"state"`
	IsAuthenticated    bool            `json:"isAuthenticated"`
	OnboardingComplete bool            `json:"onboardingComplete"`
	OnboardingStep     string          `json:"onboardingStep,omitempty"`
	Student            *SessionStudent `json:"student,omitempty"`
	Loading            bool            `json:"loading"`
}

// RouteDecision is the outcome of evaluating a navigation against the session.
type RouteDecision struct {
	Path     string `json:"path"`
	Allow    bool   `json:"allow"`
	Redirect string `json:"redirect,omitempty"`
	State    string `json:"state"`
	Reason   string `json:"reason,omitempty"`
	Loading  bool   `json:"loading"`
}
