package report

import (
	"fmt"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/user"
)

// Report types & statuses
const (
	TypeDaily  = "daily"
	TypeWeekly = "weekly"

	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type Report struct {
	ID            int         `json:"id" db:"id"`
	ClassroomID   int         `json:"classroom_id" db:"classroom_id"`
	StudentID     int         `json:"student_id" db:"student_id"`
	Title         string      `json:"title" db:"title"`
	Description   null.String `json:"description" db:"description"`
	Type          string      `json:"type" db:"type"`
	Status        string      `json:"status" db:"status"`
	SubmissionURL null.String `json:"submission_url" db:"submission_url"`
	Feedback      null.String `json:"feedback" db:"feedback"`
	DueDate       null.Time   `json:"due_date" db:"due_date"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

// StudentSummary is the student block embedded in a report DTO.
type StudentSummary struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DTO is the client-facing report shape.
type DTO struct {
	ID            int             `json:"id"`
	Title         string          `json:"title"`
	Description   null.String     `json:"description"`
	Type          string          `json:"type"`
	StudentID     int             `json:"studentId"`
	ClassroomID   int             `json:"classroomId"`
	Status        string          `json:"status"`
	SubmissionURL null.String     `json:"submissionUrl"`
	Feedback      null.String     `json:"feedback"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	DueDate       null.Time       `json:"dueDate"`
	Student       *StudentSummary `json:"student,omitempty"`
	SubmittedBy   string          `json:"submittedBy"`
}

// Row is a report joined with its submitting student.
type Row struct {
	Report
	Student user.User
}

// DTO reshapes a row; missing bits fall back to presentable defaults and the
// submitter name follows the display-name derivation.
func (r Row) DTO() DTO {
	d := DTO{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Type:          r.Type,
		StudentID:     r.StudentID,
		ClassroomID:   r.ClassroomID,
		Status:        r.Status,
		SubmissionURL: r.SubmissionURL,
		Feedback:      r.Feedback,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		DueDate:       r.DueDate,
	}
	if d.Title == "" {
		d.Title = "Untitled Report"
	}
	if d.Type == "" {
		d.Type = TypeDaily
	}
	if d.Status == "" {
		d.Status = StatusPending
	}
	if r.Student.ID != 0 {
		d.Student = &StudentSummary{
			ID:    r.Student.ID,
			Name:  r.Student.DisplayName(),
			Email: r.Student.Email,
		}
		d.SubmittedBy = r.Student.DisplayName()
	} else {
		d.SubmittedBy = fmt.Sprintf("Student %d", r.StudentID)
	}
	return d
}

// NewReport contains information needed to submit a new Report.
type NewReport struct {
	ClassroomID   int        `json:"classroom_id" validate:"required,gt=0"`
	Title         string     `json:"title" validate:"required"`
	Description   string     `json:"description"`
	Type          string     `json:"type" validate:"omitempty,oneof=daily weekly"`
	SubmissionURL string     `json:"submission_url" validate:"omitempty,url"`
	DueDate       *time.Time `json:"due_date"`
}

func (nr *NewReport) Validate(validate *validator.Validate) error {
	nr.Title = core.CleanString(nr.Title)
	nr.Description = core.CleanString(nr.Description)
	nr.Type = core.CleanString(nr.Type, true /* lower */)
	nr.SubmissionURL = core.CleanString(nr.SubmissionURL)
	return validate.Struct(nr)
}

// Review is the professor's decision on a report; only the two terminal
// statuses are accepted.
type Review struct {
	ReportID int    `json:"reportId" validate:"required,gt=0"`
	Status   string `json:"status" validate:"required,oneof=approved rejected"`
	Feedback string `json:"feedback"`
}

func (rv *Review) Validate(validate *validator.Validate) error {
	rv.Status = core.CleanString(rv.Status, true /* lower */)
	rv.Feedback = core.CleanString(rv.Feedback)
	return validate.Struct(rv)
}

// InitValidators registers report-specific validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterCustomTranslation(validate, translator, "url", "must be a valid URL", true)
}
