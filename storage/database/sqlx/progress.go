package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mafunzo/core/progress"
)

type progressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *sql.DB) *progressRepository {
	return &progressRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *progressRepository) CreateTimeEntry(ctx context.Context, te progress.TimeEntry) (progress.TimeEntry, error) {
	q := `
INSERT INTO time_entries (student_id, classroom_id, hours, description, entry_date, created_at)
VALUES (:student_id, :classroom_id, :hours, :description, :entry_date, :created_at)
RETURNING id`
	rows, err := repo.db.NamedQueryContext(ctx, q, te)
	if err != nil {
		return progress.TimeEntry{}, errors.Wrap(err, "creating time entry")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(&te.ID); err != nil {
			return progress.TimeEntry{}, errors.Wrap(err, "creating time entry")
		}
	}
	return te, errors.Wrap(rows.Err(), "creating time entry")
}

func (repo *progressRepository) QueryStudentTimeEntries(ctx context.Context, studentID int, classroomID *int) ([]progress.TimeEntry, error) {
	entries := make([]progress.TimeEntry, 0)
	q := `SELECT * FROM time_entries WHERE student_id = $1`
	args := []interface{}{studentID}
	if classroomID != nil {
		q += ` AND classroom_id = $2`
		args = append(args, *classroomID)
	}
	q += ` ORDER BY entry_date DESC, id DESC`
	if err := repo.db.SelectContext(ctx, &entries, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying time entries")
	}
	return entries, nil
}

func (repo *progressRepository) SumStudentHours(ctx context.Context, studentID, classroomID int) (float64, error) {
	var total float64
	q := `SELECT COALESCE(SUM(hours), 0) FROM time_entries WHERE student_id = $1 AND classroom_id = $2`
	if err := repo.db.GetContext(ctx, &total, q, studentID, classroomID); err != nil {
		return 0, errors.Wrap(err, "summing student hours")
	}
	return total, nil
}

// QueryProfessorOverview returns one row per distinct student across all of
// the professor's classrooms. DISTINCT ON with the created_at/id ordering
// attributes a multi-enrolled student to their earliest enrollment. The
// summed-hours join stays NULL for students without any time entries, which
// the progress service surfaces as degraded.
func (repo *progressRepository) QueryProfessorOverview(ctx context.Context, professorID int) ([]progress.Row, error) {
	var rows []struct {
		StudentID      int             `db:"student_id"`
		FirstName      sql.NullString  `db:"first_name"`
		LastName       sql.NullString  `db:"last_name"`
		Username       string          `db:"username"`
		Email          string          `db:"email"`
		ClassroomID    int             `db:"classroom_id"`
		ClassroomName  string          `db:"classroom_name"`
		OJTHours       int             `db:"ojt_hours"`
		CompletedHours sql.NullFloat64 `db:"completed_hours"`
	}
	q := `
SELECT DISTINCT ON (u.id)
    u.id AS student_id, u.first_name, u.last_name, u.username, u.email,
    c.id AS classroom_id, c.name AS classroom_name, c.ojt_hours,
    te.total AS completed_hours
FROM users u
INNER JOIN student_classrooms sc ON sc.student_id = u.id
INNER JOIN classrooms c ON c.id = sc.classroom_id
LEFT JOIN (
    SELECT student_id, classroom_id, SUM(hours) AS total
    FROM time_entries
    GROUP BY student_id, classroom_id
) te ON te.student_id = u.id AND te.classroom_id = c.id
WHERE c.professor_id = $1
ORDER BY u.id, sc.created_at ASC, c.id ASC`
	if err := repo.db.SelectContext(ctx, &rows, q, professorID); err != nil {
		return nil, errors.Wrap(err, "querying professor overview")
	}

	out := make([]progress.Row, 0, len(rows))
	for _, row := range rows {
		r := progress.Row{
			ClassroomID:   row.ClassroomID,
			ClassroomName: row.ClassroomName,
			OJTHours:      row.OJTHours,
		}
		r.Student.ID = row.StudentID
		r.Student.FirstName = null.NewString(row.FirstName.String, row.FirstName.Valid)
		r.Student.LastName = null.NewString(row.LastName.String, row.LastName.Valid)
		r.Student.Username = row.Username
		r.Student.Email = row.Email
		if row.CompletedHours.Valid {
			r.CompletedHours = null.Float64From(row.CompletedHours.Float64)
		}
		out = append(out, r)
	}
	return out, nil
}
