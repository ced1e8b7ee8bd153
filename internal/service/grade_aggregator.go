package service

import (
	"math"
	"time"

	"github.com/noah-isme/classroom-sync-api/internal/models"
)

// StudentAverage is the rounded mean percentage over the student's grades,
// or 0 when there are none. Grades without a positive max score are ignored.
func StudentAverage(student models.EnrolledStudent) int {
	return roundedMean(percentages(student.Grades))
}

// ClassAverage pools every grade of every student in the class and returns
// the rounded mean percentage. It deliberately does not average the
// per-student averages: students with more grades weigh more.
func ClassAverage(class models.ClassRoom) int {
	var pooled []float64
	for _, student := range class.Students {
		pooled = append(pooled, percentages(student.Grades)...)
	}
	return roundedMean(pooled)
}

// BuildClassReport assembles the averages of a class into a report.
func BuildClassReport(class models.ClassRoom, now time.Time) models.ClassGradeReport {
	report := models.ClassGradeReport{
		ClassID:      class.ID,
		ClassAverage: ClassAverage(class),
		Students:     make([]models.StudentAverageRow, 0, len(class.Students)),
		GeneratedAt:  now,
	}
	for _, student := range class.Students {
		report.GradeCount += len(student.Grades)
		report.Students = append(report.Students, models.StudentAverageRow{
			StudentID:   student.ID,
			StudentName: student.Name,
			GradeCount:  len(student.Grades),
			Average:     StudentAverage(student),
		})
	}
	return report
}

func percentages(grades models.StudentGrades) []float64 {
	out := make([]float64, 0, len(grades))
	for _, grade := range grades {
		if pct, ok := grade.Percentage(); ok {
			out = append(out, pct)
		}
	}
	return out
}

func roundedMean(values []float64) int {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return int(math.Round(sum / float64(len(values))))
}
