package classroom

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mafunzo/core"
)

// DefaultOJTHours is the required-hours fallback for classrooms created or
// updated without an explicit value.
const DefaultOJTHours = 600

type Classroom struct {
	ID          int         `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Description null.String `json:"description" db:"description"`
	ProfessorID int         `json:"professor_id" db:"professor_id"`
	OJTHours    int         `json:"ojt_hours" db:"ojt_hours"`
	StartDate   null.Time   `json:"start_date" db:"start_date"`
	EndDate     null.Time   `json:"end_date" db:"end_date"`
	IsActive    bool        `json:"is_active" db:"is_active"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

// Enrollment links a student to a classroom. Status is the stored progress
// marker (a percentage), refreshed as hours accrue.
type Enrollment struct {
	StudentID   int       `json:"student_id" db:"student_id"`
	ClassroomID int       `json:"classroom_id" db:"classroom_id"`
	Status      int       `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

// EnrolledStudent is the student row embedded in a classroom detail.
type EnrolledStudent struct {
	ID       int    `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Email    string `json:"email" db:"email"`
	Progress int    `json:"progress" db:"progress"`
}

// Detail is a classroom joined with its enrolled students.
type Detail struct {
	Classroom
	Students []EnrolledStudent `json:"students"`
}

type Task struct {
	ID          int         `json:"id" db:"id"`
	ClassroomID int         `json:"classroom_id" db:"classroom_id"`
	Title       string      `json:"title" db:"title"`
	Description null.String `json:"description" db:"description"`
	DueDate     null.Time   `json:"due_date" db:"due_date"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"` // UTC
}

type Meeting struct {
	ID          int         `json:"id" db:"id"`
	ClassroomID int         `json:"classroom_id" db:"classroom_id"`
	Title       string      `json:"title" db:"title"`
	ScheduledAt time.Time   `json:"scheduled_at" db:"scheduled_at"`
	Location    null.String `json:"location" db:"location"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"` // UTC
}

// NewClassroom contains information needed to create a new Classroom.
type NewClassroom struct {
	Name        string     `json:"name" validate:"required"`
	Description string     `json:"description"`
	OJTHours    int        `json:"ojt_hours" validate:"omitempty,gt=0"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	IsActive    *bool      `json:"is_active"`
}

func (nc *NewClassroom) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// UpdateClassroom defines what information may be provided to modify an
// existing Classroom. Unset optional fields fall back to the stored
// defaults (last-write-wins; there is no concurrency token).
type UpdateClassroom struct {
	Name        string     `json:"name" validate:"required"`
	Description string     `json:"description"`
	OJTHours    int        `json:"ojt_hours" validate:"omitempty,gt=0"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	IsActive    *bool      `json:"is_active"`
}

func (uc *UpdateClassroom) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	uc.Description = core.CleanString(uc.Description)
	return validate.Struct(uc)
}

// apply replaces the classroom's mutable fields; optional fields left
// unset revert to defaults rather than keeping the stored value.
func (uc *UpdateClassroom) apply(c Classroom) Classroom {
	c.Name = uc.Name
	c.Description = null.NewString(uc.Description, uc.Description != "")
	c.StartDate = nullTimePtr(uc.StartDate)
	c.EndDate = nullTimePtr(uc.EndDate)
	if uc.OJTHours > 0 {
		c.OJTHours = uc.OJTHours
	} else {
		c.OJTHours = DefaultOJTHours
	}
	if uc.IsActive != nil {
		c.IsActive = *uc.IsActive
	} else {
		c.IsActive = true
	}
	c.UpdatedAt = time.Now().UTC()
	return c
}

type NewTask struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	return validate.Struct(nt)
}

type NewMeeting struct {
	Title       string     `json:"title" validate:"required"`
	ScheduledAt *time.Time `json:"scheduled_at" validate:"required"`
	Location    string     `json:"location"`
}

func (nm *NewMeeting) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Location = core.CleanString(nm.Location)
	return validate.Struct(nm)
}

func nullTimePtr(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}
