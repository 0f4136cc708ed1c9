package service

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/daksh-api/internal/models"
	appErrors "github.com/noah-isme/daksh-api/pkg/errors"
)

var onboardingQuestions = []models.Question{
	{
		Title:  "What would you like to discover about yourself?",
		Answer: "discover",
		Options: []models.QuestionOption{
			{ID: "iq", Label: "IQ score"},
			{ID: "archetype", Label: "Archetype"},
			{ID: "adhd", Label: "ADHD type"},
			{ID: "procrastination", Label: "Procrastination type"},
			{ID: "personality", Label: "Personality type"},
			{ID: "anxiety", Label: "Anxiety Level"},
			{ID: "trauma", Label: "Trauma, fear and response type"},
			{ID: "brain", Label: "Dominant brain part"},
		},
	},
	{
		Title:    "Choose improvement areas",
		Subtitle: "This will help to make your training plan more relevant.",
		Answer:   "improvement",
		Options: []models.QuestionOption{
			{ID: "memory", Label: "Memory"},
			{ID: "attention", Label: "Attention"},
			{ID: "maths", Label: "Mental maths"},
			{ID: "problem", Label: "Problem solving"},
		},
	},
	{
		Title:    "What's your Level",
		Subtitle: "Choose your current level, We will suggest the best lesson for you",
		Answer:   "level",
		Options: []models.QuestionOption{
			{ID: "starting", Label: "I'm just Starting"},
			{ID: "basics", Label: "I know the basics"},
			{ID: "lot", Label: "I know a lot!"},
			{ID: "samurai", Label: "I'm Samurai"},
		},
	},
	{
		Title:  "Choose a goal",
		Answer: "goal",
		Options: []models.QuestionOption{
			{ID: "breeze", Label: "Breeze", Sublabel: "Less than 1hr"},
			{ID: "casual", Label: "Casual", Sublabel: "1hr"},
			{ID: "regular", Label: "Regular", Sublabel: "2hrs"},
			{ID: "focused", Label: "Focused", Sublabel: "4hrs"},
			{ID: "intense", Label: "Intense", Sublabel: "More than 4hrs"},
		},
	},
}

var optionalSubjects = []models.QuestionOption{
	{ID: "history", Label: "History"},
	{ID: "science", Label: "Science"},
	{ID: "geography", Label: "Geography"},
	{ID: "civics", Label: "Civics"},
	{ID: "maths", Label: "Maths"},
	{ID: "social", Label: "Social Studies"},
	{ID: "sanskrit", Label: "Sanskrit"},
	{ID: "hindi", Label: "Hindi"},
	{ID: "english", Label: "English"},
}

// QuestionnaireService serves the onboarding catalogue and checks answers against it.
type QuestionnaireService struct {
	validator *validator.Validate
	allowed   map[string]map[string]struct{}
	subjects  map[string]struct{}
}

// NewQuestionnaireService constructs the questionnaire service.
func NewQuestionnaireService(validate *validator.Validate) *QuestionnaireService {
	if validate == nil {
		validate = validator.New()
	}
	allowed := make(map[string]map[string]struct{}, len(onboardingQuestions))
	for _, q := range onboardingQuestions {
		ids := make(map[string]struct{}, len(q.Options))
		for _, opt := range q.Options {
			ids[opt.ID] = struct{}{}
		}
		allowed[q.Answer] = ids
	}
	subjects := make(map[string]struct{}, len(optionalSubjects))
	for _, s := range optionalSubjects {
		subjects[s.ID] = struct{}{}
	}
	return &QuestionnaireService{validator: validate, allowed: allowed, subjects: subjects}
}

// Catalogue returns a copy of the questions and subject options.
func (s *QuestionnaireService) Catalogue() models.Questionnaire {
	questions := make([]models.Question, len(onboardingQuestions))
	for i, q := range onboardingQuestions {
		q.Options = append([]models.QuestionOption(nil), q.Options...)
		questions[i] = q
	}
	return models.Questionnaire{
		Questions: questions,
		Subjects:  append([]models.QuestionOption(nil), optionalSubjects...),
	}
}

// ValidatePreferences requires every answer and rejects unknown option ids.
func (s *QuestionnaireService) ValidatePreferences(prefs models.Preferences) error {
	if err := s.validator.Struct(prefs); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "all onboarding questions must be answered")
	}
	answers := map[string]string{
		"discover":    prefs.Discover,
		"improvement": prefs.Improvement,
		"level":       prefs.Level,
		"goal":        prefs.Goal,
	}
	for field, value := range answers {
		if _, ok := s.allowed[field][value]; !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown %s option %q", field, value))
		}
	}
	for _, subject := range prefs.Subjects {
		if _, ok := s.subjects[subject]; !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown subject %q", subject))
		}
	}
	return nil
}
