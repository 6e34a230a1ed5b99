package classroom

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mafunzo/core"
)

func fieldError(field string, err error) error {
	return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
}

var (
	// errors
	ErrNotFound    = errors.New("classroom not found")
	ErrNotEnrolled = errors.New("student is not enrolled in this classroom")

	errAlreadyEnrolled = errors.New("student is already enrolled in this classroom")
	errInactive        = errors.New("classroom is not active")
)

type (
	Repository interface {
		CreateClassroom(ctx context.Context, c Classroom) (Classroom, error)
		QueryOwnedClassrooms(ctx context.Context, professorID int) ([]Classroom, error)
		GetClassroom(ctx context.Context, id int) (Classroom, error)
		GetOwnedClassroom(ctx context.Context, professorID, id int) (Classroom, error)
		UpdateClassroom(ctx context.Context, c Classroom) (Classroom, error)
		// DeleteClassroomCascade removes the classroom's enrollments, time
		// entries, reports, tasks and meetings (in that order) and finally the
		// classroom row itself, all inside one transaction.
		DeleteClassroomCascade(ctx context.Context, id int) error

		QueryEnrolledStudents(ctx context.Context, classroomID int) ([]EnrolledStudent, error)
		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, studentID, classroomID int) (Enrollment, error)
		UpdateEnrollmentStatus(ctx context.Context, studentID, classroomID, status int) error
		QueryStudentClassrooms(ctx context.Context, studentID int) ([]Classroom, error)

		CreateTask(ctx context.Context, t Task) (Task, error)
		QueryClassroomTasks(ctx context.Context, classroomID int) ([]Task, error)
		CreateMeeting(ctx context.Context, m Meeting) (Meeting, error)
		QueryClassroomMeetings(ctx context.Context, classroomID int) ([]Meeting, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, professorID int, nc NewClassroom) (Classroom, error) {
	now := time.Now().UTC()
	c := Classroom{
		Name:        nc.Name,
		Description: null.NewString(nc.Description, nc.Description != ""),
		ProfessorID: professorID,
		OJTHours:    nc.OJTHours,
		StartDate:   nullTimePtr(nc.StartDate),
		EndDate:     nullTimePtr(nc.EndDate),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if c.OJTHours == 0 {
		c.OJTHours = DefaultOJTHours
	}
	if nc.IsActive != nil {
		c.IsActive = *nc.IsActive
	}
	return svc.repo.CreateClassroom(ctx, c)
}

func (svc *Service) QueryOwned(ctx context.Context, professorID int) ([]Classroom, error) {
	return svc.repo.QueryOwnedClassrooms(ctx, professorID)
}

func (svc *Service) GetOwned(ctx context.Context, professorID, id int) (Classroom, error) {
	return svc.repo.GetOwnedClassroom(ctx, professorID, id)
}

// GetDetail returns an owned classroom joined with its enrolled students;
// each student row carries the stored enrollment progress marker.
func (svc *Service) GetDetail(ctx context.Context, professorID, id int) (Detail, error) {
	c, err := svc.repo.GetOwnedClassroom(ctx, professorID, id)
	if err != nil {
		return Detail{}, err
	}
	students, err := svc.repo.QueryEnrolledStudents(ctx, id)
	if err != nil {
		return Detail{}, pkgerrors.Wrap(err, "querying enrolled students")
	}
	if students == nil {
		students = []EnrolledStudent{}
	}
	return Detail{Classroom: c, Students: students}, nil
}

func (svc *Service) Update(ctx context.Context, professorID, id int, uc UpdateClassroom) (Classroom, error) {
	c, err := svc.repo.GetOwnedClassroom(ctx, professorID, id)
	if err != nil {
		return Classroom{}, err
	}
	return svc.repo.UpdateClassroom(ctx, uc.apply(c))
}

// Delete cascades over all dependent record kinds atomically; either every
// dependent row and the classroom row go, or nothing does.
func (svc *Service) Delete(ctx context.Context, professorID, id int) error {
	if _, err := svc.repo.GetOwnedClassroom(ctx, professorID, id); err != nil {
		return err
	}
	return svc.repo.DeleteClassroomCascade(ctx, id)
}

// Join enrolls a student into an active classroom. Duplicate joins and
// unknown/inactive classrooms surface as field errors.
func (svc *Service) Join(ctx context.Context, studentID, classroomID int) (Enrollment, error) {
	c, err := svc.repo.GetClassroom(ctx, classroomID)
	if err != nil {
		if pkgerrors.Cause(err) == ErrNotFound {
			return Enrollment{}, fieldError("classroom_id", ErrNotFound)
		}
		return Enrollment{}, pkgerrors.Wrap(err, "finding classroom")
	}
	if !c.IsActive {
		return Enrollment{}, fieldError("classroom_id", errInactive)
	}
	if _, err = svc.repo.GetEnrollment(ctx, studentID, classroomID); err == nil {
		return Enrollment{}, fieldError("classroom_id", errAlreadyEnrolled)
	} else if pkgerrors.Cause(err) != ErrNotEnrolled {
		return Enrollment{}, pkgerrors.Wrap(err, "checking enrollment")
	}
	return svc.repo.CreateEnrollment(ctx, Enrollment{
		StudentID:   studentID,
		ClassroomID: classroomID,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) QueryEnrolled(ctx context.Context, studentID int) ([]Classroom, error) {
	return svc.repo.QueryStudentClassrooms(ctx, studentID)
}

// EnsureEnrolled fails with ErrNotEnrolled when the student has no
// enrollment in the classroom.
func (svc *Service) EnsureEnrolled(ctx context.Context, studentID, classroomID int) error {
	_, err := svc.repo.GetEnrollment(ctx, studentID, classroomID)
	return err
}

func (svc *Service) AddTask(ctx context.Context, professorID, classroomID int, nt NewTask) (Task, error) {
	if _, err := svc.repo.GetOwnedClassroom(ctx, professorID, classroomID); err != nil {
		return Task{}, err
	}
	return svc.repo.CreateTask(ctx, Task{
		ClassroomID: classroomID,
		Title:       nt.Title,
		Description: null.NewString(nt.Description, nt.Description != ""),
		DueDate:     nullTimePtr(nt.DueDate),
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) QueryTasks(ctx context.Context, professorID, classroomID int) ([]Task, error) {
	if _, err := svc.repo.GetOwnedClassroom(ctx, professorID, classroomID); err != nil {
		return nil, err
	}
	return svc.repo.QueryClassroomTasks(ctx, classroomID)
}

func (svc *Service) AddMeeting(ctx context.Context, professorID, classroomID int, nm NewMeeting) (Meeting, error) {
	if _, err := svc.repo.GetOwnedClassroom(ctx, professorID, classroomID); err != nil {
		return Meeting{}, err
	}
	return svc.repo.CreateMeeting(ctx, Meeting{
		ClassroomID: classroomID,
		Title:       nm.Title,
		ScheduledAt: nm.ScheduledAt.UTC(),
		Location:    null.NewString(nm.Location, nm.Location != ""),
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) QueryMeetings(ctx context.Context, professorID, classroomID int) ([]Meeting, error) {
	if _, err := svc.repo.GetOwnedClassroom(ctx, professorID, classroomID); err != nil {
		return nil, err
	}
	return svc.repo.QueryClassroomMeetings(ctx, classroomID)
}
