package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-sync-api/internal/models"
	"github.com/noah-isme/classroom-sync-api/internal/service"
	"github.com/noah-isme/classroom-sync-api/pkg/response"
)

type assessmentService interface {
	Create(ctx context.Context, classID string, req service.CreateAssessmentRequest) (*models.ClassAssessment, error)
	Grade(ctx context.Context, classID, assessmentID string, req service.GradeAssessmentRequest) (*models.ClassRoom, error)
	Delete(ctx context.Context, classID, assessmentID string) (*service.DeleteAssessmentResult, error)
}

// AssessmentHandler exposes the class assessment lifecycle.
type AssessmentHandler struct {
	service assessmentService
}

// NewAssessmentHandler constructs an assessment handler.
func NewAssessmentHandler(svc assessmentService) *AssessmentHandler {
	return &AssessmentHandler{service: svc}
}

// Create godoc
// @Summary Create a class-wide assessment
// @Tags Assessments
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.CreateAssessmentRequest true "Assessment"
// @Success 201 {object} response.Envelope
// @Router /classes/{id}/assessments [post]
func (h *AssessmentHandler) Create(c *gin.Context) {
	var req service.CreateAssessmentRequest
	if !bindJSON(c, &req) {
		return
	}
	assessment, err := h.service.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assessment)
}

// Grade godoc
// @Summary Record scores for an assessment
// @Description Scores may be numbers or strings; blank or non-numeric values leave the student ungraded.
// @Tags Assessments
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param assessmentId path string true "Assessment ID"
// @Param payload body service.GradeAssessmentRequest true "Scores by student ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Partial propagation; meta carries completed/total"
// @Router /classes/{id}/assessments/{assessmentId}/scores [put]
func (h *AssessmentHandler) Grade(c *gin.Context) {
	var req service.GradeAssessmentRequest
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.service.Grade(c.Request.Context(), c.Param("id"), c.Param("assessmentId"), req)
	if err != nil {
		failWith(c, err, class)
		return
	}
	response.JSON(c, http.StatusOK, class)
}

// Delete godoc
// @Summary Delete an assessment and strip its grades
// @Description Safe to repeat; a retry finishes an interrupted cleanup.
// @Tags Assessments
// @Produce json
// @Param id path string true "Class ID"
// @Param assessmentId path string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Partial propagation; meta carries completed/total"
// @Router /classes/{id}/assessments/{assessmentId} [delete]
func (h *AssessmentHandler) Delete(c *gin.Context) {
	result, err := h.service.Delete(c.Request.Context(), c.Param("id"), c.Param("assessmentId"))
	if err != nil {
		failWith(c, err, result)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
