package progress

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/user"
)

// Snapshot is the derived progress of one student in one classroom. It is
// recomputed on demand and never stored as a durable aggregate.
type Snapshot struct {
	ID                 int     `json:"id"` // student id
	ClassroomID        int     `json:"classroomId"`
	CompletedHours     float64 `json:"completedHours"`
	RequiredHours      int     `json:"requiredHours"`
	ProgressPercentage int     `json:"progressPercentage"`
}

// TimeEntry is one logged block of OJT hours.
type TimeEntry struct {
	ID          int         `json:"id" db:"id"`
	StudentID   int         `json:"student_id" db:"student_id"`
	ClassroomID int         `json:"classroom_id" db:"classroom_id"`
	Hours       float64     `json:"hours" db:"hours"`
	Description null.String `json:"description" db:"description"`
	EntryDate   time.Time   `json:"entry_date" db:"entry_date"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"` // UTC
}

// NewTimeEntry contains information needed to log hours.
type NewTimeEntry struct {
	ClassroomID int        `json:"classroom_id" validate:"required,gt=0"`
	Hours       float64    `json:"hours" validate:"required,gt=0,lte=24"`
	Description string     `json:"description"`
	EntryDate   *time.Time `json:"entry_date"`
}

func (nte *NewTimeEntry) Validate(validate *validator.Validate) error {
	nte.Description = core.CleanString(nte.Description)
	return validate.Struct(nte)
}

// StudentOverview is one row of the professor dashboard: one distinct
// student with their progress in the classroom that won the tie-break.
type StudentOverview struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Classroom      string  `json:"classroom"`
	Progress       int     `json:"progress"`
	CompletedHours float64 `json:"completedHours"`
	RequiredHours  int     `json:"requiredHours"`
}

// Overview is the aggregated dashboard result. Degraded lists the ids of
// students whose progress could not be derived (no time entries at all) and
// were zero-substituted, so callers can tell "unknown" from "genuinely zero".
type Overview struct {
	Students []StudentOverview `json:"students"`
	Degraded []int             `json:"degraded"`
}

func nullString(s string) null.String {
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}

// Row is one pre-deduplicated overview row as produced by the storage
// layer: the student joined with their tie-break-winning classroom and the
// summed hours (invalid when the student has no time entries).
type Row struct {
	Student        user.User
	ClassroomID    int
	ClassroomName  string
	OJTHours       int
	CompletedHours null.Float64
}
