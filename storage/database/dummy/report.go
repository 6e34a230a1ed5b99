package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/report"
)

var reportPKCount int

type reportRepository struct {
	db *DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) *reportRepository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) CreateReport(ctx context.Context, r report.Report) (report.Report, error) {
	repo.db.report.Lock()
	defer repo.db.report.Unlock()

	reportPKCount++
	r.ID = reportPKCount
	repo.db.report.table[r.ID] = &r
	return r, nil
}

func (repo *reportRepository) GetReport(ctx context.Context, id int) (report.Report, error) {
	repo.db.report.RLock()
	defer repo.db.report.RUnlock()

	if r, ok := repo.db.report.table[id]; ok {
		return *r, nil
	}
	return report.Report{}, report.ErrNotFound
}

func (repo *reportRepository) QueryClassroomReports(ctx context.Context, classroomID int, ordering []core.DBOrdering) ([]report.Row, error) {
	repo.db.report.RLock()
	reports := make([]report.Report, 0)
	for _, r := range repo.db.report.table {
		if r.ClassroomID == classroomID {
			reports = append(reports, *r)
		}
	}
	repo.db.report.RUnlock()
	return repo.rows(reports, ordering), nil
}

func (repo *reportRepository) QueryProfessorReports(ctx context.Context, professorID int, ordering []core.DBOrdering) ([]report.Row, error) {
	repo.db.classroom.RLock()
	owned := make(map[int]bool)
	for _, c := range repo.db.classroom.table {
		if c.ProfessorID == professorID {
			owned[c.ID] = true
		}
	}
	repo.db.classroom.RUnlock()

	repo.db.report.RLock()
	reports := make([]report.Report, 0)
	for _, r := range repo.db.report.table {
		if owned[r.ClassroomID] {
			reports = append(reports, *r)
		}
	}
	repo.db.report.RUnlock()
	return repo.rows(reports, ordering), nil
}

func (repo *reportRepository) QueryStudentReports(ctx context.Context, studentID int) ([]report.Report, error) {
	repo.db.report.RLock()
	defer repo.db.report.RUnlock()

	reports := make([]report.Report, 0)
	for _, r := range repo.db.report.table {
		if r.StudentID == studentID {
			reports = append(reports, *r)
		}
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].ID > reports[j].ID })
	return reports, nil
}

func (repo *reportRepository) UpdateReportReview(ctx context.Context, id int, status string, feedback null.String, updatedAt time.Time) (report.Report, error) {
	repo.db.report.Lock()
	defer repo.db.report.Unlock()

	r, ok := repo.db.report.table[id]
	if !ok {
		return report.Report{}, report.ErrNotFound
	}
	r.Status = status
	r.Feedback = feedback
	r.UpdatedAt = updatedAt
	return *r, nil
}

// rows joins reports with their submitting students and applies the ordering.
func (repo *reportRepository) rows(reports []report.Report, ordering []core.DBOrdering) []report.Row {
	sortReports(reports, ordering)

	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	rows := make([]report.Row, 0, len(reports))
	for _, r := range reports {
		row := report.Row{Report: r}
		if usr, ok := repo.db.user.table[r.StudentID]; ok {
			row.Student = *usr
		}
		rows = append(rows, row)
	}
	return rows
}

func sortReports(reports []report.Report, ordering []core.DBOrdering) {
	less := func(a, b report.Report, ord core.DBOrdering) (bool, bool) {
		var cmp int
		switch ord.Field {
		case "created_at":
			cmp = compareTimes(a.CreatedAt, b.CreatedAt)
		case "updated_at":
			cmp = compareTimes(a.UpdatedAt, b.UpdatedAt)
		case "due_date":
			cmp = compareTimes(a.DueDate.Time, b.DueDate.Time)
		case "title":
			cmp = compareStrings(a.Title, b.Title)
		case "type":
			cmp = compareStrings(a.Type, b.Type)
		case "status":
			cmp = compareStrings(a.Status, b.Status)
		default:
			return false, false
		}
		if cmp == 0 {
			return false, false
		}
		if ord.Ascending {
			return cmp < 0, true
		}
		return cmp > 0, true
	}

	sort.Slice(reports, func(i, j int) bool {
		for _, ord := range ordering {
			if isLess, decided := less(reports[i], reports[j], ord); decided {
				return isLess
			}
		}
		// newest first when nothing else decides
		return reports[i].ID > reports[j].ID
	})
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
