package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-sync-api/internal/middleware"
)

// Handlers groups the API handlers mounted by RegisterRoutes.
type Handlers struct {
	Classes     *ClassHandler
	Enrollments *EnrollmentHandler
	Assessments *AssessmentHandler
	Resources   *ResourceHandler
	Metrics     *MetricsHandler
}

// RegisterRoutes mounts the operational endpoints at the root and the API
// under prefix. Every API route acts on behalf of the X-Owner-ID header.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix, middleware.Owner())

	classes := api.Group("/classes")
	classes.GET("", h.Classes.List)
	classes.POST("", h.Classes.Create)
	classes.GET("/:id", h.Classes.Get)
	classes.PUT("/:id", h.Classes.Update)
	classes.DELETE("/:id", h.Classes.Delete)
	classes.GET("/:id/siblings", h.Classes.Siblings)
	classes.POST("/:id/announcements", h.Classes.PostAnnouncement)
	classes.GET("/:id/drift", h.Classes.RosterDrift)
	classes.GET("/:id/report", h.Classes.Report)

	classes.POST("/:id/students", h.Enrollments.AddStudent)
	classes.POST("/:id/students/import", h.Enrollments.ImportRoster)
	classes.POST("/:id/students/:studentId/enroll-siblings", h.Enrollments.EnrollSiblings)
	classes.PUT("/:id/students/:studentId", h.Enrollments.Update)
	classes.POST("/:id/students/:studentId/grades", h.Enrollments.AddGrade)
	classes.DELETE("/:id/students/:studentId", h.Enrollments.Remove)

	classes.POST("/:id/assessments", h.Assessments.Create)
	classes.PUT("/:id/assessments/:assessmentId/scores", h.Assessments.Grade)
	classes.DELETE("/:id/assessments/:assessmentId", h.Assessments.Delete)

	classes.GET("/:id/resources", h.Resources.ListForClass)
	classes.GET("/:id/events", h.Resources.Events)
	api.POST("/resources", h.Resources.Create)
}
