package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/daksh-api/internal/models"
	"github.com/noah-isme/daksh-api/internal/service"
	appErrors "github.com/noah-isme/daksh-api/pkg/errors"
	"github.com/noah-isme/daksh-api/pkg/response"
)

type schoolService interface {
	Create(ctx context.Context, req service.CreateSchoolRequest, actor string) (*models.School, error)
	List(ctx context.Context) ([]models.School, error)
	Search(ctx context.Context, term string) ([]models.School, error)
	Get(ctx context.Context, id string) (*models.School, error)
}

// SchoolHandler manages school endpoints.
type SchoolHandler struct {
	schools schoolService
}

// NewSchoolHandler constructs the handler.
func NewSchoolHandler(schools schoolService) *SchoolHandler {
	return &SchoolHandler{schools: schools}
}

// Create godoc
// @Summary Create school
// @Tags Schools
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateSchoolRequest true "School payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schools [post]
func (h *SchoolHandler) Create(c *gin.Context) {
	var req service.CreateSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	school, err := h.schools.Create(c.Request.Context(), req, adminActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, school)
}

// List godoc
// @Summary List schools, newest first
// @Tags Schools
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /schools [get]
func (h *SchoolHandler) List(c *gin.Context) {
	schools, err := h.schools.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, schools, len(schools))
}

// Search godoc
// @Summary Search schools by name or id
// @Tags Schools
// @Produce json
// @Security BearerAuth
// @Param q query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /schools/search [get]
func (h *SchoolHandler) Search(c *gin.Context) {
	schools, err := h.schools.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, schools, len(schools))
}

// Get godoc
// @Summary Get school
// @Tags Schools
// @Produce json
// @Security BearerAuth
// @Param schoolId path string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schools/{schoolId} [get]
func (h *SchoolHandler) Get(c *gin.Context) {
	school, err := h.schools.Get(c.Request.Context(), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, school)
}
