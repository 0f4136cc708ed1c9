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

type classService interface {
	Create(ctx context.Context, schoolID string, req service.CreateClassRequest, actor string) (*models.Class, error)
	List(ctx context.Context, schoolID string) ([]models.Class, error)
	Get(ctx context.Context, schoolID, classID string) (*models.Class, error)
	AvailableRollNumbers(ctx context.Context, schoolID, classID string) ([]string, error)
}

// ClassHandler manages class endpoints.
type ClassHandler struct {
	classes classService
}

// NewClassHandler constructs the handler.
func NewClassHandler(classes classService) *ClassHandler {
	return &ClassHandler{classes: classes}
}

// Create godoc
// @Summary Create class in a school
// @Tags Classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param schoolId path string true "School ID"
// @Param payload body service.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /schools/{schoolId}/classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	var req service.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	class, err := h.classes.Create(c.Request.Context(), c.Param("schoolId"), req, adminActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// List godoc
// @Summary List classes of a school
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param schoolId path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	classes, err := h.classes.List(c.Request.Context(), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, classes, len(classes))
}

// Get godoc
// @Summary Get class
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param schoolId path string true "School ID"
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/classes/{classId} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	class, err := h.classes.Get(c.Request.Context(), c.Param("schoolId"), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class)
}

// RollNumbers godoc
// @Summary Roll numbers not yet assigned in a class
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param schoolId path string true "School ID"
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/classes/{classId}/roll-numbers [get]
func (h *ClassHandler) RollNumbers(c *gin.Context) {
	rolls, err := h.classes.AvailableRollNumbers(c.Request.Context(), c.Param("schoolId"), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, rolls, len(rolls))
}
