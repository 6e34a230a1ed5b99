package dummydb

import (
	"context"
	"sort"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mafunzo/core/classroom"
	"github.com/trezcool/mafunzo/core/progress"
)

var timeEntryPKCount int

type progressRepository struct {
	db *DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) *progressRepository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) CreateTimeEntry(ctx context.Context, te progress.TimeEntry) (progress.TimeEntry, error) {
	repo.db.progress.Lock()
	defer repo.db.progress.Unlock()

	timeEntryPKCount++
	te.ID = timeEntryPKCount
	repo.db.progress.table[te.ID] = &te
	return te, nil
}

func (repo *progressRepository) QueryStudentTimeEntries(ctx context.Context, studentID int, classroomID *int) ([]progress.TimeEntry, error) {
	repo.db.progress.RLock()
	defer repo.db.progress.RUnlock()

	entries := make([]progress.TimeEntry, 0)
	for _, te := range repo.db.progress.table {
		if te.StudentID != studentID {
			continue
		}
		if classroomID != nil && te.ClassroomID != *classroomID {
			continue
		}
		entries = append(entries, *te)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].EntryDate.Equal(entries[j].EntryDate) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].EntryDate.After(entries[j].EntryDate)
	})
	return entries, nil
}

func (repo *progressRepository) SumStudentHours(ctx context.Context, studentID, classroomID int) (float64, error) {
	repo.db.progress.RLock()
	defer repo.db.progress.RUnlock()

	var total float64
	for _, te := range repo.db.progress.table {
		if te.StudentID == studentID && te.ClassroomID == classroomID {
			total += te.Hours
		}
	}
	return total, nil
}

func (repo *progressRepository) QueryProfessorOverview(ctx context.Context, professorID int) ([]progress.Row, error) {
	repo.db.classroom.RLock()
	owned := make(map[int]*classroom.Classroom)
	for _, c := range repo.db.classroom.table {
		if c.ProfessorID == professorID {
			owned[c.ID] = c
		}
	}

	// earliest enrollment wins; lowest classroom id breaks timestamp ties
	winning := make(map[int]classroom.Enrollment)
	for _, e := range repo.db.classroom.enrolled {
		if _, ok := owned[e.ClassroomID]; !ok {
			continue
		}
		cur, ok := winning[e.StudentID]
		if !ok ||
			e.CreatedAt.Before(cur.CreatedAt) ||
			(e.CreatedAt.Equal(cur.CreatedAt) && e.ClassroomID < cur.ClassroomID) {
			winning[e.StudentID] = *e
		}
	}
	repo.db.classroom.RUnlock()

	studentIDs := make([]int, 0, len(winning))
	for id := range winning {
		studentIDs = append(studentIDs, id)
	}
	sort.Ints(studentIDs)

	repo.db.user.RLock()
	repo.db.progress.RLock()
	defer repo.db.user.RUnlock()
	defer repo.db.progress.RUnlock()

	rows := make([]progress.Row, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		e := winning[studentID]
		usr, ok := repo.db.user.table[studentID]
		if !ok {
			continue
		}
		cls := owned[e.ClassroomID]

		var (
			total      float64
			hasEntries bool
		)
		for _, te := range repo.db.progress.table {
			if te.StudentID == studentID && te.ClassroomID == e.ClassroomID {
				total += te.Hours
				hasEntries = true
			}
		}

		row := progress.Row{
			Student:       *usr,
			ClassroomID:   cls.ID,
			ClassroomName: cls.Name,
			OJTHours:      cls.OJTHours,
		}
		if hasEntries {
			row.CompletedHours = null.Float64From(total)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
