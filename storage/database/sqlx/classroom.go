package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mafunzo/core/classroom"
	"github.com/trezcool/mafunzo/core/user"
)

type classroomRepository struct {
	db *sqlx.DB
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *sql.DB) *classroomRepository {
	return &classroomRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *classroomRepository) CreateClassroom(ctx context.Context, c classroom.Classroom) (classroom.Classroom, error) {
	q := `
INSERT INTO classrooms (name, description, professor_id, ojt_hours, start_date, end_date, is_active, created_at, updated_at)
VALUES (:name, :description, :professor_id, :ojt_hours, :start_date, :end_date, :is_active, :created_at, :updated_at)
RETURNING id`
	rows, err := repo.db.NamedQueryContext(ctx, q, c)
	if err != nil {
		return classroom.Classroom{}, errors.Wrap(err, "creating classroom")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(&c.ID); err != nil {
			return classroom.Classroom{}, errors.Wrap(err, "creating classroom")
		}
	}
	return c, errors.Wrap(rows.Err(), "creating classroom")
}

func (repo *classroomRepository) QueryOwnedClassrooms(ctx context.Context, professorID int) ([]classroom.Classroom, error) {
	cls := make([]classroom.Classroom, 0)
	q := `SELECT * FROM classrooms WHERE professor_id = $1 ORDER BY created_at DESC, id DESC`
	if err := repo.db.SelectContext(ctx, &cls, q, professorID); err != nil {
		return nil, errors.Wrap(err, "querying owned classrooms")
	}
	return cls, nil
}

func (repo *classroomRepository) GetClassroom(ctx context.Context, id int) (classroom.Classroom, error) {
	var c classroom.Classroom
	if err := repo.db.GetContext(ctx, &c, `SELECT * FROM classrooms WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return classroom.Classroom{}, classroom.ErrNotFound
		}
		return classroom.Classroom{}, errors.Wrap(err, "getting classroom")
	}
	return c, nil
}

func (repo *classroomRepository) GetOwnedClassroom(ctx context.Context, professorID, id int) (classroom.Classroom, error) {
	var c classroom.Classroom
	q := `SELECT * FROM classrooms WHERE id = $1 AND professor_id = $2`
	if err := repo.db.GetContext(ctx, &c, q, id, professorID); err != nil {
		if err == sql.ErrNoRows {
			return classroom.Classroom{}, classroom.ErrNotFound
		}
		return classroom.Classroom{}, errors.Wrap(err, "getting owned classroom")
	}
	return c, nil
}

func (repo *classroomRepository) UpdateClassroom(ctx context.Context, c classroom.Classroom) (classroom.Classroom, error) {
	q := `
UPDATE classrooms
SET name = :name,
    description = :description,
    ojt_hours = :ojt_hours,
    start_date = :start_date,
    end_date = :end_date,
    is_active = :is_active,
    updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, c)
	if err != nil {
		return classroom.Classroom{}, errors.Wrap(err, "updating classroom")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	return c, nil
}

// DeleteClassroomCascade removes all dependent rows and the classroom itself
// in one transaction so a failure midway leaves nothing half-deleted.
func (repo *classroomRepository) DeleteClassroomCascade(ctx context.Context, id int) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning cascade delete")
	}

	steps := []struct {
		desc string
		q    string
	}{
		{"deleting enrollments", `DELETE FROM student_classrooms WHERE classroom_id = $1`},
		{"deleting time entries", `DELETE FROM time_entries WHERE classroom_id = $1`},
		{"deleting reports", `DELETE FROM reports WHERE classroom_id = $1`},
		{"deleting tasks", `DELETE FROM tasks WHERE classroom_id = $1`},
		{"deleting meetings", `DELETE FROM meetings WHERE classroom_id = $1`},
	}
	for _, step := range steps {
		if _, err = tx.ExecContext(ctx, step.q, id); err != nil {
			_ = tx.Rollback()
			return errors.Wrap(err, step.desc)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM classrooms WHERE id = $1`, id)
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "deleting classroom")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		_ = tx.Rollback()
		return classroom.ErrNotFound
	}
	return errors.Wrap(tx.Commit(), "committing cascade delete")
}

func (repo *classroomRepository) QueryEnrolledStudents(ctx context.Context, classroomID int) ([]classroom.EnrolledStudent, error) {
	var rows []struct {
		ID        int            `db:"id"`
		FirstName sql.NullString `db:"first_name"`
		LastName  sql.NullString `db:"last_name"`
		Email     string         `db:"email"`
		Progress  int            `db:"progress"`
	}
	q := `
SELECT u.id, u.first_name, u.last_name, u.email, sc.status AS progress
FROM users u
INNER JOIN student_classrooms sc ON sc.student_id = u.id
WHERE sc.classroom_id = $1
ORDER BY sc.created_at ASC, u.id ASC`
	if err := repo.db.SelectContext(ctx, &rows, q, classroomID); err != nil {
		return nil, errors.Wrap(err, "querying enrolled students")
	}

	students := make([]classroom.EnrolledStudent, 0, len(rows))
	for _, row := range rows {
		students = append(students, classroom.EnrolledStudent{
			ID:       row.ID,
			Name:     displayName(row.ID, row.FirstName.String, row.LastName.String, row.Email),
			Email:    row.Email,
			Progress: row.Progress,
		})
	}
	return students, nil
}

func (repo *classroomRepository) CreateEnrollment(ctx context.Context, e classroom.Enrollment) (classroom.Enrollment, error) {
	q := `
INSERT INTO student_classrooms (student_id, classroom_id, status, created_at)
VALUES (:student_id, :classroom_id, :status, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, e); err != nil {
		return classroom.Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return e, nil
}

func (repo *classroomRepository) GetEnrollment(ctx context.Context, studentID, classroomID int) (classroom.Enrollment, error) {
	var e classroom.Enrollment
	q := `SELECT * FROM student_classrooms WHERE student_id = $1 AND classroom_id = $2`
	if err := repo.db.GetContext(ctx, &e, q, studentID, classroomID); err != nil {
		if err == sql.ErrNoRows {
			return classroom.Enrollment{}, classroom.ErrNotEnrolled
		}
		return classroom.Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	return e, nil
}

func (repo *classroomRepository) UpdateEnrollmentStatus(ctx context.Context, studentID, classroomID, status int) error {
	q := `UPDATE student_classrooms SET status = $1 WHERE student_id = $2 AND classroom_id = $3`
	res, err := repo.db.ExecContext(ctx, q, status, studentID, classroomID)
	if err != nil {
		return errors.Wrap(err, "updating enrollment status")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return classroom.ErrNotEnrolled
	}
	return nil
}

func (repo *classroomRepository) QueryStudentClassrooms(ctx context.Context, studentID int) ([]classroom.Classroom, error) {
	cls := make([]classroom.Classroom, 0)
	q := `
SELECT c.*
FROM classrooms c
INNER JOIN student_classrooms sc ON sc.classroom_id = c.id
WHERE sc.student_id = $1
ORDER BY sc.created_at ASC, c.id ASC`
	if err := repo.db.SelectContext(ctx, &cls, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying student classrooms")
	}
	return cls, nil
}

func (repo *classroomRepository) CreateTask(ctx context.Context, t classroom.Task) (classroom.Task, error) {
	q := `
INSERT INTO tasks (classroom_id, title, description, due_date, created_at)
VALUES (:classroom_id, :title, :description, :due_date, :created_at)
RETURNING id`
	rows, err := repo.db.NamedQueryContext(ctx, q, t)
	if err != nil {
		return classroom.Task{}, errors.Wrap(err, "creating task")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(&t.ID); err != nil {
			return classroom.Task{}, errors.Wrap(err, "creating task")
		}
	}
	return t, errors.Wrap(rows.Err(), "creating task")
}

func (repo *classroomRepository) QueryClassroomTasks(ctx context.Context, classroomID int) ([]classroom.Task, error) {
	tasks := make([]classroom.Task, 0)
	q := `SELECT * FROM tasks WHERE classroom_id = $1 ORDER BY created_at DESC, id DESC`
	if err := repo.db.SelectContext(ctx, &tasks, q, classroomID); err != nil {
		return nil, errors.Wrap(err, "querying classroom tasks")
	}
	return tasks, nil
}

func (repo *classroomRepository) CreateMeeting(ctx context.Context, m classroom.Meeting) (classroom.Meeting, error) {
	q := `
INSERT INTO meetings (classroom_id, title, scheduled_at, location, created_at)
VALUES (:classroom_id, :title, :scheduled_at, :location, :created_at)
RETURNING id`
	rows, err := repo.db.NamedQueryContext(ctx, q, m)
	if err != nil {
		return classroom.Meeting{}, errors.Wrap(err, "creating meeting")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(&m.ID); err != nil {
			return classroom.Meeting{}, errors.Wrap(err, "creating meeting")
		}
	}
	return m, errors.Wrap(rows.Err(), "creating meeting")
}

func (repo *classroomRepository) QueryClassroomMeetings(ctx context.Context, classroomID int) ([]classroom.Meeting, error) {
	meetings := make([]classroom.Meeting, 0)
	q := `SELECT * FROM meetings WHERE classroom_id = $1 ORDER BY scheduled_at ASC, id ASC`
	if err := repo.db.SelectContext(ctx, &meetings, q, classroomID); err != nil {
		return nil, errors.Wrap(err, "querying classroom meetings")
	}
	return meetings, nil
}

// displayName derives a presentable name for user rows fetched outside the
// users repository.
func displayName(id int, firstName, lastName, email string) string {
	usr := user.User{
		ID:        id,
		FirstName: null.NewString(firstName, firstName != ""),
		LastName:  null.NewString(lastName, lastName != ""),
		Email:     email,
	}
	return usr.DisplayName()
}
