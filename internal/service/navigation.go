package service

import (
	"strings"

	"github.com/noah-isme/daksh-api/internal/models"
)

// NavState is the student's position in the onboarding flow.
type NavState string

const (
	StateAnonymous         NavState = "anonymous"
	StatePendingOnboarding NavState = "pending_onboarding"
	StateOnboarded         NavState = "onboarded"
)

// NavEvent moves a session between states.
type NavEvent string

const (
	EventLogin              NavEvent = "login"
	EventSelectStudent      NavEvent = "select_student"
	EventCompleteOnboarding NavEvent = "complete_onboarding"
	EventLogout             NavEvent = "logout"
)

// Page paths the flow routes between.
const (
	PathRoot       = "/"
	PathOnboarding = "/onboarding"
	PathLogin      = "/onboarding/login"
	PathQuestions  = "/onboarding/questions"
	PathDaksh      = "/daksh"
)

// Transition applies event to state. hasPreferences reports whether the
// authenticated student already completed the questionnaire.
func Transition(state NavState, event NavEvent, hasPreferences bool) NavState {
	switch event {
	case EventLogin, EventSelectStudent:
		if hasPreferences {
			return StateOnboarded
		}
		return StatePendingOnboarding
	case EventCompleteOnboarding:
		if state == StatePendingOnboarding {
			return StateOnboarded
		}
		return state
	case EventLogout:
		return StateAnonymous
	}
	return state
}

// SessionView is what routing needs to know about a request's session.
type SessionView struct {
	State    NavState
	Identity *models.StudentRef
}

// ViewFromClaims derives the routing view from a verified session token.
func ViewFromClaims(claims *models.SessionClaims) SessionView {
	if claims == nil || !claims.LoginCompleted {
		return SessionView{State: StateAnonymous}
	}
	ref := claims.Ref()
	view := SessionView{State: StatePendingOnboarding, Identity: &ref}
	if claims.Onboarded {
		view.State = StateOnboarded
	}
	return view
}

// Decision is the outcome of routing a page path.
type Decision struct {
	Allow    bool   `json:"allow"`
	Redirect string `json:"redirect,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func allow() Decision { return Decision{Allow: true} }

func redirect(to, reason string) Decision {
	return Decision{Redirect: to, Reason: reason}
}

// PersonalizedPath joins base with the student's address.
func PersonalizedPath(base string, ref models.StudentRef) string {
	return base + "/" + ref.SchoolID + "/" + ref.ClassID + "/" + ref.StudentID
}

// Decide routes a page path for the given session. It is pure, and following
// any redirect it returns never leads back to the original path.
func Decide(path string, view SessionView) Decision {
	path = normalizePath(path)
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")

	switch {
	case path == PathRoot:
		return decideRoot(view)
	case segments[0] == "daksh":
		return decideDaksh(segments[1:], view)
	case path == PathOnboarding:
		if view.State == StateOnboarded {
			return redirect(view.dakshPath(), "already onboarded")
		}
		return allow()
	case path == PathLogin:
		switch view.State {
		case StateOnboarded:
			return redirect(view.dakshPath(), "already onboarded")
		case StatePendingOnboarding:
			return redirect(view.questionsPath(), "already logged in")
		}
		return allow()
	case segments[0] == "onboarding" && len(segments) > 1 && segments[1] == "questions":
		return decideQuestions(segments[2:], view)
	}
	return allow()
}

func decideRoot(view SessionView) Decision {
	switch view.State {
	case StateOnboarded:
		return redirect(PathDaksh, "onboarded")
	case StatePendingOnboarding:
		return redirect(PathQuestions, "onboarding incomplete")
	}
	return redirect(PathOnboarding, "not logged in")
}

func decideDaksh(rest []string, view SessionView) Decision {
	switch view.State {
	case StateAnonymous:
		return redirect(PathOnboarding, "not logged in")
	case StatePendingOnboarding:
		return redirect(view.questionsPath(), "onboarding incomplete")
	}
	target, personalized := refFromSegments(rest)
	if view.Identity == nil {
		return allow()
	}
	if !personalized {
		if len(rest) == 0 {
			return redirect(PersonalizedPath(PathDaksh, *view.Identity), "personalize")
		}
		return allow()
	}
	if target != *view.Identity {
		return redirect(PersonalizedPath(PathDaksh, *view.Identity), "identity mismatch")
	}
	return allow()
}

func decideQuestions(rest []string, view SessionView) Decision {
	target, personalized := refFromSegments(rest)
	switch view.State {
	case StateAnonymous:
		return redirect(PathLogin, "not logged in")
	case StateOnboarded:
		if view.Identity == nil && personalized {
			return redirect(PersonalizedPath(PathDaksh, target), "already onboarded")
		}
		return redirect(view.dakshPath(), "already onboarded")
	}
	if personalized && view.Identity != nil && target != *view.Identity {
		return redirect(PersonalizedPath(PathQuestions, *view.Identity), "identity mismatch")
	}
	return allow()
}

func (v SessionView) dakshPath() string {
	if v.Identity == nil {
		return PathDaksh
	}
	return PersonalizedPath(PathDaksh, *v.Identity)
}

func (v SessionView) questionsPath() string {
	if v.Identity == nil {
		return PathQuestions
	}
	return PersonalizedPath(PathQuestions, *v.Identity)
}

// refFromSegments reads {schoolId}/{classId}/{studentId} from the start of rest.
func refFromSegments(rest []string) (models.StudentRef, bool) {
	if len(rest) < 3 || rest[0] == "" || rest[1] == "" || rest[2] == "" {
		return models.StudentRef{}, false
	}
	return models.StudentRef{SchoolID: rest[0], ClassID: rest[1], StudentID: rest[2]}, true
}

func normalizePath(path string) string {
	if path == "" {
		return PathRoot
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
