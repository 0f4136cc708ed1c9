package models

// Preferences are the onboarding questionnaire answers; their presence marks onboarding complete.
type Preferences struct {
	Discover    string   `firestore:"discover" json:"discover" validate:"required"`
	Improvement string   `firestore:"improvement" json:"improvement" validate:"required"`
	Level       string   `firestore:"level" json:"level" validate:"required"`
	Goal        string   `firestore:"goal" json:"goal" validate:"required"`
	Subjects    []string `firestore:"subjects,omitempty" json:"subjects,omitempty"`
}

// QuestionOption is a selectable answer.
type QuestionOption struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Sublabel string `json:"sublabel,omitempty"`
}

// Question is one step of the onboarding questionnaire. Answer names the Preferences field it fills.
type Question struct {
	Title    string           `json:"title"`
	Subtitle string           `json:"subtitle,omitempty"`
	Answer   string           `json:"answer"`
	Options  []QuestionOption `json:"options"`
}

// Questionnaire is the full onboarding catalogue.
type Questionnaire struct {
	Questions []Question       `json:"questions"`
	Subjects  []QuestionOption `json:"subjects"`
}
