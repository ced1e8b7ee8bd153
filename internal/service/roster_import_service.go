package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/classroom-sync-api/pkg/errors"
)

const defaultImportMaxRows = 200

var importDateLayouts = []string{"2006-01-02", "02/01/2006", "01-02-06"}

type studentAdder interface {
	AddStudent(ctx context.Context, classID string, req AddStudentRequest) (*AddStudentResult, error)
}

// RosterImportRow is the outcome of one spreadsheet row.
type RosterImportRow struct {
	Row       int    `json:"row"`
	Name      string `json:"name"`
	StudentID string `json:"student_id,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// RosterImportReport summarises a spreadsheet import.
type RosterImportReport struct {
	ClassID  string            `json:"class_id"`
	Imported int               `json:"imported"`
	Skipped  int               `json:"skipped"`
	Failed   int               `json:"failed"`
	Rows     []RosterImportRow `json:"rows"`
}

// Row statuses.
const (
	ImportRowImported = "imported"
	ImportRowPartial  = "partial"
	ImportRowSkipped  = "skipped"
	ImportRowFailed   = "failed"
)

// RosterImportService adds students to a class from an xlsx roster. The first
// sheet is read; its first row is a header naming the columns.
type RosterImportService struct {
	students studentAdder
	maxRows  int
	logger   *zap.Logger
}

// NewRosterImportService constructs RosterImportService.
func NewRosterImportService(students studentAdder, maxRows int, logger *zap.Logger) *RosterImportService {
	if maxRows <= 0 {
		maxRows = defaultImportMaxRows
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterImportService{students: students, maxRows: maxRows, logger: logger}
}

// Import adds one student per data row. Rows are processed in order and a
// failing row does not stop the rest.
func (s *RosterImportService) Import(ctx context.Context, classID string, file io.Reader) (*RosterImportReport, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to open roster file")
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("close roster file", zap.Error(err))
		}
	}()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "roster file has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read roster sheet")
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "roster sheet is empty")
	}
	columns := rosterColumns(rows[0])
	if _, ok := columns["name"]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "roster header must contain a name column")
	}
	data := rows[1:]
	if len(data) > s.maxRows {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("roster has %d rows, limit is %d", len(data), s.maxRows))
	}

	report := &RosterImportReport{ClassID: classID, Rows: make([]RosterImportRow, 0, len(data))}
	for i, row := range data {
		line := RosterImportRow{Row: i + 2, Name: strings.TrimSpace(cell(row, columns, "name"))}
		if line.Name == "" {
			line.Status = ImportRowSkipped
			report.Skipped++
			report.Rows = append(report.Rows, line)
			continue
		}

		req, err := rosterRequest(row, columns, line.Name)
		if err == nil {
			var result *AddStudentResult
			result, err = s.students.AddStudent(ctx, classID, req)
			if result != nil {
				line.StudentID = result.Profile.ID
			}
		}

		var partial *appErrors.PartialError
		switch {
		case err == nil:
			line.Status = ImportRowImported
			report.Imported++
		case errors.As(err, &partial):
			line.Status = ImportRowPartial
			line.Error = err.Error()
			report.Imported++
		default:
			line.Status = ImportRowFailed
			line.Error = err.Error()
			report.Failed++
			var typed *appErrors.Error
			if errors.As(err, &typed) && typed.Code == appErrors.ErrNotFound.Code {
				return nil, err
			}
		}
		report.Rows = append(report.Rows, line)
	}
	s.logger.Info("roster imported",
		zap.String("class_id", classID),
		zap.Int("imported", report.Imported),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func rosterColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, title := range header {
		key := strings.ToLower(strings.TrimSpace(title))
		key = strings.ReplaceAll(key, " ", "_")
		if _, seen := columns[key]; !seen && key != "" {
			columns[key] = i
		}
	}
	return columns
}

func cell(row []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func rosterRequest(row []string, columns map[string]int, name string) (AddStudentRequest, error) {
	req := AddStudentRequest{
		Name:          name,
		LearningStyle: cell(row, columns, "learning_style"),
		ParentContact: cell(row, columns, "parent_contact"),
	}
	if code := cell(row, columns, "registration_code"); code != "" {
		req.RegistrationCode = &code
	}
	if raw := cell(row, columns, "date_of_birth"); raw != "" {
		dob, err := parseImportDate(raw)
		if err != nil {
			return req, err
		}
		req.DateOfBirth = &dob
	}
	return req, nil
}

func parseImportDate(raw string) (time.Time, error) {
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid date_of_birth %q", raw))
}
