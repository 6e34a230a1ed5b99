package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/report"
)

// reportColumns selects a report row joined with its submitting student,
// aliased for nested struct scanning.
const reportColumns = `
r.id, r.classroom_id, r.student_id, r.title, r.description, r.type, r.status,
r.submission_url, r.feedback, r.due_date, r.created_at, r.updated_at,
u.id AS "student.id", u.first_name AS "student.first_name", u.last_name AS "student.last_name",
u.username AS "student.username", u.email AS "student.email", u.role AS "student.role",
u.is_active AS "student.is_active", u.password_hash AS "student.password_hash",
u.created_at AS "student.created_at", u.updated_at AS "student.updated_at", u.last_login AS "student.last_login"`

// orderableReportFields guards user-supplied ordering against column injection.
var orderableReportFields = map[string]string{
	"created_at": "r.created_at",
	"updated_at": "r.updated_at",
	"due_date":   "r.due_date",
	"title":      "r.title",
	"type":       "r.type",
	"status":     "r.status",
}

type reportRepository struct {
	db *sqlx.DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *sql.DB) *reportRepository {
	return &reportRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *reportRepository) CreateReport(ctx context.Context, r report.Report) (report.Report, error) {
	q := `
INSERT INTO reports (classroom_id, student_id, title, description, type, status, submission_url, feedback, due_date, created_at, updated_at)
VALUES (:classroom_id, :student_id, :title, :description, :type, :status, :submission_url, :feedback, :due_date, :created_at, :updated_at)
RETURNING id`
	rows, err := repo.db.NamedQueryContext(ctx, q, r)
	if err != nil {
		return report.Report{}, errors.Wrap(err, "creating report")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(&r.ID); err != nil {
			return report.Report{}, errors.Wrap(err, "creating report")
		}
	}
	return r, errors.Wrap(rows.Err(), "creating report")
}

func (repo *reportRepository) GetReport(ctx context.Context, id int) (report.Report, error) {
	var r report.Report
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM reports WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return report.Report{}, report.ErrNotFound
		}
		return report.Report{}, errors.Wrap(err, "getting report")
	}
	return r, nil
}

func (repo *reportRepository) QueryClassroomReports(ctx context.Context, classroomID int, ordering []core.DBOrdering) ([]report.Row, error) {
	rows := make([]report.Row, 0)
	q := `SELECT ` + reportColumns + `
FROM reports r
INNER JOIN users u ON u.id = r.student_id
WHERE r.classroom_id = $1
` + orderBy(ordering)
	if err := repo.db.SelectContext(ctx, &rows, q, classroomID); err != nil {
		return nil, errors.Wrap(err, "querying classroom reports")
	}
	return rows, nil
}

func (repo *reportRepository) QueryProfessorReports(ctx context.Context, professorID int, ordering []core.DBOrdering) ([]report.Row, error) {
	rows := make([]report.Row, 0)
	q := `SELECT ` + reportColumns + `
FROM reports r
INNER JOIN users u ON u.id = r.student_id
INNER JOIN classrooms c ON c.id = r.classroom_id
WHERE c.professor_id = $1
` + orderBy(ordering)
	if err := repo.db.SelectContext(ctx, &rows, q, professorID); err != nil {
		return nil, errors.Wrap(err, "querying professor reports")
	}
	return rows, nil
}

func (repo *reportRepository) QueryStudentReports(ctx context.Context, studentID int) ([]report.Report, error) {
	reports := make([]report.Report, 0)
	q := `SELECT * FROM reports WHERE student_id = $1 ORDER BY created_at DESC, id DESC`
	if err := repo.db.SelectContext(ctx, &reports, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying student reports")
	}
	return reports, nil
}

func (repo *reportRepository) UpdateReportReview(ctx context.Context, id int, status string, feedback null.String, updatedAt time.Time) (report.Report, error) {
	var r report.Report
	q := `
UPDATE reports
SET status = $1, feedback = $2, updated_at = $3
WHERE id = $4
RETURNING *`
	if err := repo.db.GetContext(ctx, &r, q, status, feedback, updatedAt, id); err != nil {
		if err == sql.ErrNoRows {
			return report.Report{}, report.ErrNotFound
		}
		return report.Report{}, errors.Wrap(err, "updating report review")
	}
	return r, nil
}

func orderBy(ordering []core.DBOrdering) string {
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := orderableReportFields[ord.Field]
		if !ok {
			continue
		}
		clauses = append(clauses, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(clauses) == 0 {
		return `ORDER BY r.created_at DESC, r.id DESC`
	}
	return `ORDER BY ` + strings.Join(clauses, ", ")
}
