package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/daksh-api/internal/models"
	"github.com/noah-isme/daksh-api/pkg/response"
)

type questionnaireCatalogue interface {
	Catalogue() models.Questionnaire
}

// QuestionnaireHandler serves the onboarding questionnaire.
type QuestionnaireHandler struct {
	questionnaire questionnaireCatalogue
}

// NewQuestionnaireHandler constructs the handler.
func NewQuestionnaireHandler(questionnaire questionnaireCatalogue) *QuestionnaireHandler {
	return &QuestionnaireHandler{questionnaire: questionnaire}
}

// Questions godoc
// @Summary Onboarding questions and subjects
// @Tags Onboarding
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /onboarding/questions [get]
func (h *QuestionnaireHandler) Questions(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.questionnaire.Catalogue())
}
