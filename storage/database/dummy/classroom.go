package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/mafunzo/core/classroom"
)

var (
	classroomPKCount int
	taskPKCount      int
	meetingPKCount   int
)

type classroomRepository struct {
	db *DB
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *DB) *classroomRepository {
	return &classroomRepository{db: db}
}

func (repo *classroomRepository) CreateClassroom(ctx context.Context, c classroom.Classroom) (classroom.Classroom, error) {
	repo.db.classroom.Lock()
	defer repo.db.classroom.Unlock()

	classroomPKCount++
	c.ID = classroomPKCount
	repo.db.classroom.table[c.ID] = &c
	return c, nil
}

func (repo *classroomRepository) QueryOwnedClassrooms(ctx context.Context, professorID int) ([]classroom.Classroom, error) {
	repo.db.classroom.RLock()
	defer repo.db.classroom.RUnlock()

	cls := make([]classroom.Classroom, 0)
	for _, c := range repo.db.classroom.table {
		if c.ProfessorID == professorID {
			cls = append(cls, *c)
		}
	}
	sort.Slice(cls, func(i, j int) bool {
		if cls[i].CreatedAt.Equal(cls[j].CreatedAt) {
			return cls[i].ID > cls[j].ID
		}
		return cls[i].CreatedAt.After(cls[j].CreatedAt)
	})
	return cls, nil
}

func (repo *classroomRepository) GetClassroom(ctx context.Context, id int) (classroom.Classroom, error) {
	repo.db.classroom.RLock()
	defer repo.db.classroom.RUnlock()

	if c, ok := repo.db.classroom.table[id]; ok {
		return *c, nil
	}
	return classroom.Classroom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) GetOwnedClassroom(ctx context.Context, professorID, id int) (classroom.Classroom, error) {
	repo.db.classroom.RLock()
	defer repo.db.classroom.RUnlock()

	if c, ok := repo.db.classroom.table[id]; ok && c.ProfessorID == professorID {
		return *c, nil
	}
	return classroom.Classroom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) UpdateClassroom(ctx context.Context, c classroom.Classroom) (classroom.Classroom, error) {
	repo.db.classroom.Lock()
	defer repo.db.classroom.Unlock()

	if _, ok := repo.db.classroom.table[c.ID]; !ok {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	repo.db.classroom.table[c.ID] = &c
	return c, nil
}

func (repo *classroomRepository) DeleteClassroomCascade(ctx context.Context, id int) error {
	repo.db.classroom.Lock()
	defer repo.db.classroom.Unlock()
	repo.db.progress.Lock()
	defer repo.db.progress.Unlock()
	repo.db.report.Lock()
	defer repo.db.report.Unlock()

	if _, ok := repo.db.classroom.table[id]; !ok {
		return classroom.ErrNotFound
	}

	kept := repo.db.classroom.enrolled[:0]
	for _, e := range repo.db.classroom.enrolled {
		if e.ClassroomID != id {
			kept = append(kept, e)
		}
	}
	repo.db.classroom.enrolled = kept

	for teID, te := range repo.db.progress.table {
		if te.ClassroomID == id {
			delete(repo.db.progress.table, teID)
		}
	}
	for rID, r := range repo.db.report.table {
		if r.ClassroomID == id {
			delete(repo.db.report.table, rID)
		}
	}
	for tID, t := range repo.db.classroom.tasks {
		if t.ClassroomID == id {
			delete(repo.db.classroom.tasks, tID)
		}
	}
	for mID, m := range repo.db.classroom.meetings {
		if m.ClassroomID == id {
			delete(repo.db.classroom.meetings, mID)
		}
	}

	delete(repo.db.classroom.table, id)
	return nil
}

func (repo *classroomRepository) QueryEnrolledStudents(ctx context.Context, classroomID int) ([]classroom.EnrolledStudent, error) {
	repo.db.classroom.RLock()
	enrollments := make([]classroom.Enrollment, 0)
	for _, e := range repo.db.classroom.enrolled {
		if e.ClassroomID == classroomID {
			enrollments = append(enrollments, *e)
		}
	}
	repo.db.classroom.RUnlock()

	sort.Slice(enrollments, func(i, j int) bool {
		if enrollments[i].CreatedAt.Equal(enrollments[j].CreatedAt) {
			return enrollments[i].StudentID < enrollments[j].StudentID
		}
		return enrollments[i].CreatedAt.Before(enrollments[j].CreatedAt)
	})

	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	students := make([]classroom.EnrolledStudent, 0, len(enrollments))
	for _, e := range enrollments {
		usr, ok := repo.db.user.table[e.StudentID]
		if !ok {
			continue
		}
		students = append(students, classroom.EnrolledStudent{
			ID:       usr.ID,
			Name:     usr.DisplayName(),
			Email:    usr.Email,
			Progress: e.Status,
		})
	}
	return students, nil
}

func (repo *classroomRepository) CreateEnrollment(ctx context.Context, e classroom.Enrollment) (classroom.Enrollment, error) {
	repo.db.classroom.Lock()
	defer repo.db.classroom.Unlock()

	repo.db.classroom.enrolled = append(repo.db.classroom.enrolled, &e)
	return e, nil
}

func (repo *classroomRepository) GetEnrollment(ctx context.Context, studentID, classroomID int) (classroom.Enrollment, error) {
	repo.db.classroom.RLock()
	defer repo.db.classroom.RUnlock()

	for _, e := range repo.db.classroom.enrolled {
		if e.StudentID == studentID && e.ClassroomID == classroomID {
			return *e, nil
		}
	}
	return classroom.Enrollment{}, classroom.ErrNotEnrolled
}

func (repo *classroomRepository) UpdateEnrollmentStatus(ctx context.Context, studentID, classroomID, status int) error {
	repo.db.classroom.Lock()
	defer repo.db.classroom.Unlock()

	for _, e := range repo.db.classroom.enrolled {
		if e.StudentID == studentID && e.ClassroomID == classroomID {
			e.Status = status
			return nil
		}
	}
	return classroom.ErrNotEnrolled
}

func (repo *classroomRepository) QueryStudentClassrooms(ctx context.Context, studentID int) ([]classroom.Classroom, error) {
	repo.db.classroom.RLock()
	defer repo.db.classroom.RUnlock()

	enrollments := make([]classroom.Enrollment, 0)
	for _, e := range repo.db.classroom.enrolled {
		if e.StudentID == studentID {
			enrollments = append(enrollments, *e)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool {
		if enrollments[i].CreatedAt.Equal(enrollments[j].CreatedAt) {
			return enrollments[i].ClassroomID < enrollments[j].ClassroomID
		}
		return enrollments[i].CreatedAt.Before(enrollments[j].CreatedAt)
	})

	cls := make([]classroom.Classroom, 0, len(enrollments))
	for _, e := range enrollments {
		if c, ok := repo.db.classroom.table[e.ClassroomID]; ok {
			cls = append(cls, *c)
		}
	}
	return cls, nil
}

func (repo *classroomRepository) CreateTask(ctx context.Context, t classroom.Task) (classroom.Task, error) {
	repo.db.classroom.Lock()
	defer repo.db.classroom.Unlock()

	taskPKCount++
	t.ID = taskPKCount
	repo.db.classroom.tasks[t.ID] = &t
	return t, nil
}

func (repo *classroomRepository) QueryClassroomTasks(ctx context.Context, classroomID int) ([]classroom.Task, error) {
	repo.db.classroom.RLock()
	defer repo.db.classroom.RUnlock()

	tasks := make([]classroom.Task, 0)
	for _, t := range repo.db.classroom.tasks {
		if t.ClassroomID == classroomID {
			tasks = append(tasks, *t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID > tasks[j].ID })
	return tasks, nil
}

func (repo *classroomRepository) CreateMeeting(ctx context.Context, m classroom.Meeting) (classroom.Meeting, error) {
	repo.db.classroom.Lock()
	defer repo.db.classroom.Unlock()

	meetingPKCount++
	m.ID = meetingPKCount
	repo.db.classroom.meetings[m.ID] = &m
	return m, nil
}

func (repo *classroomRepository) QueryClassroomMeetings(ctx context.Context, classroomID int) ([]classroom.Meeting, error) {
	repo.db.classroom.RLock()
	defer repo.db.classroom.RUnlock()

	meetings := make([]classroom.Meeting, 0)
	for _, m := range repo.db.classroom.meetings {
		if m.ClassroomID == classroomID {
			meetings = append(meetings, *m)
		}
	}
	sort.Slice(meetings, func(i, j int) bool {
		if meetings[i].ScheduledAt.Equal(meetings[j].ScheduledAt) {
			return meetings[i].ID < meetings[j].ID
		}
		return meetings[i].ScheduledAt.Before(meetings[j].ScheduledAt)
	})
	return meetings, nil
}
