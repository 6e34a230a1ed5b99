package report

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/classroom"
	"github.com/trezcool/mafunzo/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("report not found")
	ErrNotOwner = errors.New("you cannot review reports for classrooms you don't own")
)

type (
	Repository interface {
		CreateReport(ctx context.Context, r Report) (Report, error)
		GetReport(ctx context.Context, id int) (Report, error)
		QueryClassroomReports(ctx context.Context, classroomID int, ordering []core.DBOrdering) ([]Row, error)
		QueryProfessorReports(ctx context.Context, professorID int, ordering []core.DBOrdering) ([]Row, error)
		QueryStudentReports(ctx context.Context, studentID int) ([]Report, error)
		UpdateReportReview(ctx context.Context, id int, status string, feedback null.String, updatedAt time.Time) (Report, error)
	}

	Service struct {
		repo    Repository
		clsRepo classroom.Repository
		usrRepo user.Repository
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, clsRepo classroom.Repository, usrRepo user.Repository, mailSvc core.EmailService) *Service {
	return &Service{
		repo:    repo,
		clsRepo: clsRepo,
		usrRepo: usrRepo,
		mailSvc: mailSvc,
	}
}

// Submit files a new pending report for an enrolled student.
func (svc *Service) Submit(ctx context.Context, studentID int, nr NewReport) (Report, error) {
	if _, err := svc.clsRepo.GetEnrollment(ctx, studentID, nr.ClassroomID); err != nil {
		if pkgerrors.Cause(err) == classroom.ErrNotEnrolled {
			return Report{}, core.NewValidationError(err, core.FieldError{Field: "classroom_id", Error: classroom.ErrNotEnrolled.Error()})
		}
		return Report{}, pkgerrors.Wrap(err, "checking enrollment")
	}

	now := time.Now().UTC()
	r := Report{
		ClassroomID:   nr.ClassroomID,
		StudentID:     studentID,
		Title:         nr.Title,
		Description:   null.NewString(nr.Description, nr.Description != ""),
		Type:          nr.Type,
		Status:        StatusPending,
		SubmissionURL: null.NewString(nr.SubmissionURL, nr.SubmissionURL != ""),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if r.Type == "" {
		r.Type = TypeDaily
	}
	if nr.DueDate != nil {
		r.DueDate = null.TimeFrom(nr.DueDate.UTC())
	}
	return svc.repo.CreateReport(ctx, r)
}

// QueryForProfessor lists reports across the professor's classrooms, or for
// one owned classroom when classroomID is given. A professor owning zero
// classrooms gets an empty list, not an error.
func (svc *Service) QueryForProfessor(ctx context.Context, professorID int, classroomID *int, ordering []core.DBOrdering) ([]DTO, error) {
	var rows []Row
	var err error

	if classroomID != nil {
		if _, err = svc.clsRepo.GetOwnedClassroom(ctx, professorID, *classroomID); err != nil {
			return nil, err
		}
		rows, err = svc.repo.QueryClassroomReports(ctx, *classroomID, ordering)
	} else {
		var owned []classroom.Classroom
		if owned, err = svc.clsRepo.QueryOwnedClassrooms(ctx, professorID); err != nil {
			return nil, pkgerrors.Wrap(err, "querying owned classrooms")
		}
		if len(owned) == 0 {
			return []DTO{}, nil
		}
		rows, err = svc.repo.QueryProfessorReports(ctx, professorID, ordering)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying reports")
	}

	dtos := make([]DTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, row.DTO())
	}
	return dtos, nil
}

func (svc *Service) QueryForStudent(ctx context.Context, studentID int) ([]Report, error) {
	reports, err := svc.repo.QueryStudentReports(ctx, studentID)
	if reports == nil {
		reports = []Report{}
	}
	return reports, err
}

// Review transitions a report's status and overwrites any previous decision
// (idempotent). The report's classroom must be owned by the caller.
func (svc *Service) Review(ctx context.Context, professorID int, rv Review) (Report, error) {
	r, err := svc.repo.GetReport(ctx, rv.ReportID)
	if err != nil {
		return Report{}, err
	}

	c, err := svc.clsRepo.GetClassroom(ctx, r.ClassroomID)
	if err != nil {
		return Report{}, pkgerrors.Wrap(err, "finding report's classroom")
	}
	if c.ProfessorID != professorID {
		return Report{}, ErrNotOwner
	}

	feedback := null.NewString(rv.Feedback, rv.Feedback != "")
	r, err = svc.repo.UpdateReportReview(ctx, r.ID, rv.Status, feedback, time.Now().UTC())
	if err != nil {
		return Report{}, pkgerrors.Wrap(err, "updating report")
	}

	svc.notifyStudent(ctx, r, c)
	return r, nil
}

// notifyStudent emails the submitter about the decision; delivery failures
// never fail the review itself.
func (svc *Service) notifyStudent(ctx context.Context, r Report, c classroom.Classroom) {
	student, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: r.StudentID})
	if err != nil || student.Email == "" {
		return
	}

	body := fmt.Sprintf("Hi %s,\n\nYour report %q for %s has been %s.", student.DisplayName(), r.Title, c.Name, r.Status)
	if r.Feedback.Valid && r.Feedback.String != "" {
		body += fmt.Sprintf("\n\nFeedback: %s", r.Feedback.String)
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:          []mail.Address{{Name: student.DisplayName(), Address: student.Email}},
		Subject:     fmt.Sprintf("Report %s", r.Status),
		TextContent: body,
	})
}
