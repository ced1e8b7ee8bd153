package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-sync-api/internal/models"
	"github.com/noah-isme/classroom-sync-api/internal/service"
	appErrors "github.com/noah-isme/classroom-sync-api/pkg/errors"
	"github.com/noah-isme/classroom-sync-api/pkg/response"
)

type enrollmentService interface {
	AddStudent(ctx context.Context, classID string, req service.AddStudentRequest) (*service.AddStudentResult, error)
	EnrollExisting(ctx context.Context, classID, studentID string) (*service.AddStudentResult, error)
	RemoveStudent(ctx context.Context, classID, studentID string) error
	UpdateEnrollment(ctx context.Context, classID, studentID string, req service.UpdateEnrollmentRequest) (*models.EnrolledStudent, error)
	AddManualGrade(ctx context.Context, classID, studentID string, req service.ManualGradeRequest) (*models.EnrolledStudent, error)
}

type rosterImporter interface {
	Import(ctx context.Context, classID string, file io.Reader) (*service.RosterImportReport, error)
}

// EnrollmentHandler exposes roster membership endpoints.
type EnrollmentHandler struct {
	service  enrollmentService
	importer rosterImporter
}

// NewEnrollmentHandler constructs an enrollment handler.
func NewEnrollmentHandler(svc enrollmentService, importer rosterImporter) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc, importer: importer}
}

// AddStudent godoc
// @Summary Add a student to a class and its siblings
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.AddStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Partial propagation; meta carries completed/total"
// @Router /classes/{id}/students [post]
func (h *EnrollmentHandler) AddStudent(c *gin.Context) {
	var req service.AddStudentRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.AddStudent(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		failWith(c, err, result)
		return
	}
	response.Created(c, result)
}

// ImportRoster godoc
// @Summary Add students from an xlsx roster
// @Tags Enrollments
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Class ID"
// @Param file formData file true "Roster spreadsheet"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/students/import [post]
func (h *EnrollmentHandler) ImportRoster(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "roster file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "roster file is unreadable"))
		return
	}
	defer file.Close()

	report, err := h.importer.Import(c.Request.Context(), c.Param("id"), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// EnrollSiblings godoc
// @Summary Enroll an existing student into the class and any sibling still missing them
// @Tags Enrollments
// @Produce json
// @Param id path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/students/{studentId}/enroll-siblings [post]
func (h *EnrollmentHandler) EnrollSiblings(c *gin.Context) {
	result, err := h.service.EnrollExisting(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		failWith(c, err, result)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Update godoc
// @Summary Edit notes or participation of one enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Param payload body service.UpdateEnrollmentRequest true "Enrollment fields"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/students/{studentId} [put]
func (h *EnrollmentHandler) Update(c *gin.Context) {
	var req service.UpdateEnrollmentRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.service.UpdateEnrollment(c.Request.Context(), c.Param("id"), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}

// AddGrade godoc
// @Summary Add a manual grade to one enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Param payload body service.ManualGradeRequest true "Grade"
// @Success 201 {object} response.Envelope
// @Router /classes/{id}/students/{studentId}/grades [post]
func (h *EnrollmentHandler) AddGrade(c *gin.Context) {
	var req service.ManualGradeRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.service.AddManualGrade(c.Request.Context(), c.Param("id"), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Remove godoc
// @Summary Remove a student from this class only
// @Tags Enrollments
// @Param id path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 204
// @Router /classes/{id}/students/{studentId} [delete]
func (h *EnrollmentHandler) Remove(c *gin.Context) {
	if err := h.service.RemoveStudent(c.Request.Context(), c.Param("id"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
