package progress

import (
	"context"
	"time"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/classroom"
)

type Repository interface {
	CreateTimeEntry(ctx context.Context, te TimeEntry) (TimeEntry, error)
	QueryStudentTimeEntries(ctx context.Context, studentID int, classroomID *int) ([]TimeEntry, error)
	SumStudentHours(ctx context.Context, studentID, classroomID int) (float64, error)
	// QueryProfessorOverview returns one row per distinct student enrolled in
	// any of the professor's classrooms. A student enrolled in several of them
	// appears once, attributed to their earliest enrollment (lowest classroom
	// id on equal timestamps).
	QueryProfessorOverview(ctx context.Context, professorID int) ([]Row, error)
}

type Service struct {
	repo    Repository
	clsRepo classroom.Repository
}

func NewService(repo Repository, clsRepo classroom.Repository) *Service {
	return &Service{
		repo:    repo,
		clsRepo: clsRepo,
	}
}

// LogTime records hours for an enrolled student and refreshes the stored
// progress marker on their enrollment.
func (s *Service) LogTime(ctx context.Context, studentID int, nte NewTimeEntry) (TimeEntry, error) {
	if _, err := s.clsRepo.GetEnrollment(ctx, studentID, nte.ClassroomID); err != nil {
		if err == classroom.ErrNotEnrolled {
			return TimeEntry{}, core.NewValidationError(err, core.FieldError{Field: "classroom_id", Error: err.Error()})
		}
		return TimeEntry{}, err
	}

	now := time.Now().UTC()
	te := TimeEntry{
		StudentID:   studentID,
		ClassroomID: nte.ClassroomID,
		Hours:       nte.Hours,
		Description: nullString(nte.Description),
		EntryDate:   now,
		CreatedAt:   now,
	}
	if nte.EntryDate != nil {
		te.EntryDate = nte.EntryDate.UTC()
	}
	te, err := s.repo.CreateTimeEntry(ctx, te)
	if err != nil {
		return TimeEntry{}, err
	}

	// keep the enrollment marker in sync with the derived snapshot
	snap, err := s.Snapshot(ctx, studentID, nte.ClassroomID)
	if err != nil {
		return TimeEntry{}, err
	}
	if err = s.clsRepo.UpdateEnrollmentStatus(ctx, studentID, nte.ClassroomID, snap.ProgressPercentage); err != nil {
		return TimeEntry{}, err
	}
	return te, nil
}

// QueryEntries returns a student's time entries, optionally filtered by classroom.
func (s *Service) QueryEntries(ctx context.Context, studentID int, classroomID *int) ([]TimeEntry, error) {
	return s.repo.QueryStudentTimeEntries(ctx, studentID, classroomID)
}

// Snapshot derives a student's current progress in a classroom.
// classroom.ErrNotEnrolled is returned when no enrollment exists.
func (s *Service) Snapshot(ctx context.Context, studentID, classroomID int) (Snapshot, error) {
	if _, err := s.clsRepo.GetEnrollment(ctx, studentID, classroomID); err != nil {
		return Snapshot{}, err
	}
	cls, err := s.clsRepo.GetClassroom(ctx, classroomID)
	if err != nil {
		return Snapshot{}, err
	}
	completed, err := s.repo.SumStudentHours(ctx, studentID, classroomID)
	if err != nil {
		return Snapshot{}, err
	}

	required := cls.OJTHours
	if required <= 0 {
		required = classroom.DefaultOJTHours
	}
	return Snapshot{
		ID:                 studentID,
		ClassroomID:        classroomID,
		CompletedHours:     completed,
		RequiredHours:      required,
		ProgressPercentage: percentage(completed, required),
	}, nil
}

// Overview builds the professor dashboard. Students without any time entries
// are zero-substituted and reported in Degraded rather than failing the
// whole aggregation.
func (s *Service) Overview(ctx context.Context, professorID int) (Overview, error) {
	rows, err := s.repo.QueryProfessorOverview(ctx, professorID)
	if err != nil {
		return Overview{}, err
	}

	ov := Overview{
		Students: make([]StudentOverview, 0, len(rows)),
		Degraded: make([]int, 0),
	}
	for _, row := range rows {
		required := row.OJTHours
		if required <= 0 {
			required = classroom.DefaultOJTHours
		}
		completed := row.CompletedHours.Float64
		if !row.CompletedHours.Valid {
			completed = 0
			ov.Degraded = append(ov.Degraded, row.Student.ID)
		}
		ov.Students = append(ov.Students, StudentOverview{
			ID:             row.Student.ID,
			Name:           row.Student.DisplayName(),
			Email:          row.Student.Email,
			Classroom:      row.ClassroomName,
			Progress:       percentage(completed, required),
			CompletedHours: completed,
			RequiredHours:  required,
		})
	}
	return ov, nil
}

// percentage rounds down and caps at 100 so over-logged hours never
// overflow the scale.
func percentage(completed float64, required int) int {
	pct := int(completed / float64(required) * 100)
	if pct > 100 {
		pct = 100
	}
	return pct
}
