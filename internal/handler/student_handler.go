package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/daksh-api/internal/models"
	"github.com/noah-isme/daksh-api/internal/service"
	appErrors "github.com/noah-isme/daksh-api/pkg/errors"
	"github.com/noah-isme/daksh-api/pkg/response"
)

type studentService interface {
	Create(ctx context.Context, schoolID, classID string, req service.CreateStudentRequest, actor string) (*models.CreatedStudent, error)
	List(ctx context.Context, schoolID, classID string) ([]models.Student, error)
	Get(ctx context.Context, ref models.StudentRef) (*models.Student, error)
	ExportCredentials(ctx context.Context, schoolID, classID, format string) (*service.ExportFile, error)
}

// StudentHandler manages student endpoints for admins.
type StudentHandler struct {
	students studentService
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(students studentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// Create godoc
// @Summary Add a student with generated credentials
// @Description The generated password is only returned by this call.
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param schoolId path string true "School ID"
// @Param classId path string true "Class ID"
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schools/{schoolId}/classes/{classId}/students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.Create(c.Request.Context(), c.Param("schoolId"), c.Param("classId"), req, adminActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// List godoc
// @Summary List students of a class
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param schoolId path string true "School ID"
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/classes/{classId}/students [get]
func (h *StudentHandler) List(c *gin.Context) {
	students, err := h.students.List(c.Request.Context(), c.Param("schoolId"), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, students, len(students))
}

// Get godoc
// @Summary Get student
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param schoolId path string true "School ID"
// @Param classId path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/classes/{classId}/students/{studentId} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), refFromParams(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}

// ExportCredentials godoc
// @Summary Download class credentials
// @Tags Students
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param schoolId path string true "School ID"
// @Param classId path string true "Class ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /schools/{schoolId}/classes/{classId}/credentials [get]
func (h *StudentHandler) ExportCredentials(c *gin.Context) {
	file, err := h.students.ExportCredentials(c.Request.Context(), c.Param("schoolId"), c.Param("classId"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Body)
}

func refFromParams(c *gin.Context) models.StudentRef {
	return models.StudentRef{SchoolID: c.Param("schoolId"), ClassID: c.Param("classId"), StudentID: c.Param("studentId")}
}
