package dummydb

import (
	"sync"

	"github.com/trezcool/mafunzo/core/classroom"
	"github.com/trezcool/mafunzo/core/progress"
	"github.com/trezcool/mafunzo/core/report"
	"github.com/trezcool/mafunzo/core/user"
)

type (
	DB struct {
		user      *userTable
		classroom *classroomTable
		report    *reportTable
		progress  *timeEntryTable
	}

	userTable struct {
		sync.RWMutex
		table map[int]*user.User
	}

	classroomTable struct {
		sync.RWMutex
		table    map[int]*classroom.Classroom
		enrolled []*classroom.Enrollment
		tasks    map[int]*classroom.Task
		meetings map[int]*classroom.Meeting
	}

	reportTable struct {
		sync.RWMutex
		table map[int]*report.Report
	}

	timeEntryTable struct {
		sync.RWMutex
		table map[int]*progress.TimeEntry
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[int]*user.User)},
		classroom: &classroomTable{
			table:    make(map[int]*classroom.Classroom),
			tasks:    make(map[int]*classroom.Task),
			meetings: make(map[int]*classroom.Meeting),
		},
		report:   &reportTable{table: make(map[int]*report.Report)},
		progress: &timeEntryTable{table: make(map[int]*progress.TimeEntry)},
	}
	return db, nil
}
