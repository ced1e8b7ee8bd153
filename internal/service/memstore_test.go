package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/lib/pq"

	"github.com/noah-isme/classroom-sync-api/internal/models"
)

var uniqueViolation = &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}

// memDB is a single-row-write store shared by the in-memory repositories.
type memDB struct {
	mu          sync.Mutex
	seq         int
	classOrder  []string
	classes     map[string]models.ClassRoom
	profiles    map[string]models.StudentProfile
	enrollments []models.Enrollment
}

func newMemDB() *memDB {
	return &memDB{classes: map[string]models.ClassRoom{}, profiles: map[string]models.StudentProfile{}}
}

func (db *memDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func (db *memDB) enrollment(classID, studentID string) (*models.Enrollment, bool) {
	for i := range db.enrollments {
		if db.enrollments[i].ClassID == classID && db.enrollments[i].StudentID == studentID {
			return &db.enrollments[i], true
		}
	}
	return nil, false
}

// gradesOf returns a copy of the stored grades, for assertions.
func (db *memDB) gradesOf(classID, studentID string) models.StudentGrades {
	db.mu.Lock()
	defer db.mu.Unlock()
	e, ok := db.enrollment(classID, studentID)
	if !ok {
		return nil
	}
	return e.Grades.Clone()
}

func (db *memDB) enrollmentsFor(studentID string) []models.Enrollment {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.Enrollment
	for _, e := range db.enrollments {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	return out
}

type memClassRepo struct {
	db        *memDB
	updateErr error
	deleteErr error
	updates   int
}

func (r *memClassRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.ClassRoom, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.ClassRoom
	for _, id := range r.db.classOrder {
		if c := r.db.classes[id]; c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memClassRepo) FindByID(ctx context.Context, id string) (*models.ClassRoom, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c.Assessments = append(models.ClassAssessments{}, c.Assessments...)
	c.Announcements = append(models.Announcements{}, c.Announcements...)
	return &c, nil
}

func (r *memClassRepo) Create(ctx context.Context, class *models.ClassRoom) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if class.ID == "" {
		class.ID = r.db.nextID("class")
	}
	stored := *class
	stored.Students = nil
	r.db.classes[class.ID] = stored
	r.db.classOrder = append(r.db.classOrder, class.ID)
	return nil
}

func (r *memClassRepo) Update(ctx context.Context, id string, update models.ClassUpdate) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	c, ok := r.db.classes[id]
	if !ok {
		return sql.ErrNoRows
	}
	r.updates++
	c.Name = update.Name
	c.GradeLevel = update.GradeLevel
	c.Subject = update.Subject
	c.Color = update.Color
	c.Announcements = append(models.Announcements{}, update.Announcements...)
	c.Assessments = append(models.ClassAssessments{}, update.Assessments...)
	r.db.classes[id] = c
	return nil
}

func (r *memClassRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.db.classes[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.db.classes, id)
	for i, cid := range r.db.classOrder {
		if cid == id {
			r.db.classOrder = append(r.db.classOrder[:i], r.db.classOrder[i+1:]...)
			break
		}
	}
	return nil
}

type memEnrollmentRepo struct {
	db         *memDB
	failCreate map[string]error // by class id
	failUpdate map[string]error // by student id
	creates    int
	updates    int
}

func (r *memEnrollmentRepo) ListByClassIDs(ctx context.Context, classIDs []string) ([]models.EnrolledStudent, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	wanted := map[string]bool{}
	for _, id := range classIDs {
		wanted[id] = true
	}
	var out []models.EnrolledStudent
	for _, e := range r.db.enrollments {
		if !wanted[e.ClassID] {
			continue
		}
		out = append(out, models.EnrolledStudent{
			StudentProfile: r.db.profiles[e.StudentID],
			EnrollmentID:   e.ID,
			ClassID:        e.ClassID,
			BehaviorNotes:  e.BehaviorNotes,
			Participation:  e.Participation,
			Grades:         e.Grades.Clone(),
		})
	}
	return out, nil
}

func (r *memEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.failCreate[enrollment.ClassID]; err != nil {
		return err
	}
	if _, exists := r.db.enrollment(enrollment.ClassID, enrollment.StudentID); exists {
		return uniqueViolation
	}
	r.creates++
	if enrollment.ID == "" {
		enrollment.ID = r.db.nextID("enrollment")
	}
	r.db.enrollments = append(r.db.enrollments, *enrollment)
	return nil
}

func (r *memEnrollmentRepo) Update(ctx context.Context, classID, studentID string, update models.EnrollmentUpdate) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.failUpdate[studentID]; err != nil {
		return err
	}
	e, ok := r.db.enrollment(classID, studentID)
	if !ok {
		return sql.ErrNoRows
	}
	r.updates++
	if update.BehaviorNotes != nil {
		e.BehaviorNotes = *update.BehaviorNotes
	}
	if update.Participation != nil {
		e.Participation = *update.Participation
	}
	if update.Grades != nil {
		e.Grades = update.Grades.Clone()
	}
	return nil
}

func (r *memEnrollmentRepo) Delete(ctx context.Context, classID, studentID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i, e := range r.db.enrollments {
		if e.ClassID == classID && e.StudentID == studentID {
			r.db.enrollments = append(r.db.enrollments[:i], r.db.enrollments[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type memStudentRepo struct {
	db         *memDB
	createErrs []error
	creates    int
	codes      []string
}

func (r *memStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.profiles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (r *memStudentRepo) Create(ctx context.Context, profile *models.StudentProfile) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.creates++
	if profile.RegistrationCode != nil {
		r.codes = append(r.codes, *profile.RegistrationCode)
	}
	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if profile.ID == "" {
		profile.ID = r.db.nextID("student")
	}
	r.db.profiles[profile.ID] = *profile
	return nil
}

type rosterFixture struct {
	db          *memDB
	classRepo   *memClassRepo
	enrollRepo  *memEnrollmentRepo
	studentRepo *memStudentRepo
	metrics     *MetricsService
	classes     *ClassService
	enrollment  *EnrollmentService
	assessments *AssessmentService
}

func newRosterFixture(calendar eventScheduler) *rosterFixture {
	db := newMemDB()
	f := &rosterFixture{
		db:          db,
		classRepo:   &memClassRepo{db: db},
		enrollRepo:  &memEnrollmentRepo{db: db, failCreate: map[string]error{}, failUpdate: map[string]error{}},
		studentRepo: &memStudentRepo{db: db},
		metrics:     NewMetricsService(),
	}
	f.classes = NewClassService(f.classRepo, f.enrollRepo, nil, 0, nil, nil)
	f.enrollment = NewEnrollmentService(f.classRepo, f.enrollRepo, f.studentRepo, nil, f.metrics, "ST", nil, nil)
	f.assessments = NewAssessmentService(f.classRepo, f.enrollRepo, calendar, nil, f.metrics, AssessmentServiceConfig{Concurrency: 4, CalendarSync: true}, nil, nil)
	return f
}

func (f *rosterFixture) mustClass(name, subject string) *models.ClassRoom {
	class, err := f.classes.Create(context.Background(), "owner-1", CreateClassRequest{Name: name, GradeLevel: "Grade 2", Subject: &subject})
	if err != nil {
		panic(err)
	}
	return class
}

func (f *rosterFixture) mustStudent(classID, name string) models.StudentProfile {
	result, err := f.enrollment.AddStudent(context.Background(), classID, AddStudentRequest{Name: name})
	if err != nil {
		panic(err)
	}
	return result.Profile
}
