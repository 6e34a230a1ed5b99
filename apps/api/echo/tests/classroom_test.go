package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	. "github.com/trezcool/mafunzo/apps/api/echo"
	"github.com/trezcool/mafunzo/core/classroom"
)

func TestClassroomApi(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	prof := createProfessor(t, "profnet", "net.prof@test.cd")
	otherProf := createProfessor(t, "profother", "other.prof@test.cd")
	stud := createStudent(t, "studnet", "net.stud@test.cd")

	profToken := getToken(t, prof)
	otherProfToken := getToken(t, otherProf)
	studToken := getToken(t, stud)

	path := "/api/prof/classrooms"

	t.Run("requires token", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, path)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("requires professor role", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, studToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	var created classroom.Classroom

	t.Run("create ok", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{
			"name":        "Networks 101",
			"description": "hands-on OJT",
			"ojt_hours":   400,
		})
		req, rec := newAuthRequest(http.MethodPost, path, profToken, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if created.ID == 0 {
			t.Error("failed! classroom ID not set")
		}
		if created.ProfessorID != prof.ID {
			t.Errorf("failed! professorID = %v; want %v", created.ProfessorID, prof.ID)
		}
		if created.OJTHours != 400 {
			t.Errorf("failed! ojtHours = %v; want 400", created.OJTHours)
		}
		if !created.IsActive {
			t.Error("failed! classroom not active")
		}
	})

	t.Run("create defaults required hours", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"name": "Defaults"})
		req, rec := newAuthRequest(http.MethodPost, path, profToken, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var cls classroom.Classroom
		if err := json.Unmarshal(rec.Body.Bytes(), &cls); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if cls.OJTHours != classroom.DefaultOJTHours {
			t.Errorf("failed! ojtHours = %v; want %v", cls.OJTHours, classroom.DefaultOJTHours)
		}
	})

	t.Run("create requires name", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, profToken, marchallObj(t, map[string]interface{}{}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		}, rec)
	})

	t.Run("query owned only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, otherProfToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte("[]")}, rec)

		req, rec = newAuthRequest(http.MethodGet, path, profToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var cls []classroom.Classroom
		if err := json.Unmarshal(rec.Body.Bytes(), &cls); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(cls) != 2 {
			t.Errorf("failed! len = %v; want 2", len(cls))
		}
	})

	t.Run("retrieve detail with enrolled students", func(t *testing.T) {
		cls := createClassroom(t, prof.ID, "Sem A", 500)
		enroll(t, stud.ID, cls.ID, time.Now())

		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("%s/%d", path, cls.ID), profToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, classroom.Detail{
				Classroom: cls,
				Students: []classroom.EnrolledStudent{
					{ID: stud.ID, Name: "net.stud", Email: stud.Email, Progress: 0},
				},
			}),
		}, rec)
	})

	t.Run("retrieve rejects bad id", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+"/abc", profToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Message: "Invalid classroom ID"}),
		}, rec)
	})

	t.Run("retrieve hides other professors' classrooms", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("%s/%d", path, created.ID), otherProfToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})

	t.Run("update ok", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"name": "Networks 102"})
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("%s/%d", path, created.ID), profToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, MessageResponse{Message: "Classroom updated successfully"}),
		}, rec)

		// unset optional fields fall back to defaults
		fresh, err := clsRepo.GetClassroom(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetClassroom(): %v", err)
		}
		if fresh.Name != "Networks 102" {
			t.Errorf("failed! name = %v; want Networks 102", fresh.Name)
		}
		if fresh.OJTHours != classroom.DefaultOJTHours {
			t.Errorf("failed! ojtHours = %v; want %v", fresh.OJTHours, classroom.DefaultOJTHours)
		}
	})

	t.Run("update rejects non-owner", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"name": "Hijack"})
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("%s/%d", path, created.ID), otherProfToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})

	t.Run("tasks", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"title": "Read chapter 3"})
		req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("%s/%d/tasks", path, created.ID), profToken, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var task classroom.Task
		if err := json.Unmarshal(rec.Body.Bytes(), &task); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}

		req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("%s/%d/tasks", path, created.ID), profToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallList(t, task),
		}, rec)

		// non-owner
		req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("%s/%d/tasks", path, created.ID), otherProfToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})

	t.Run("meetings", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("%s/%d/meetings", path, created.ID), profToken,
			marchallObj(t, map[string]interface{}{"title": "Kickoff"}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"scheduled_at": "this field is required"}),
		}, rec)

		body := marchallObj(t, map[string]interface{}{
			"title":        "Kickoff",
			"scheduled_at": "2026-09-01T10:00:00Z",
			"location":     "Lab 2",
		})
		req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("%s/%d/meetings", path, created.ID), profToken, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var meeting classroom.Meeting
		if err := json.Unmarshal(rec.Body.Bytes(), &meeting); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}

		req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("%s/%d/meetings", path, created.ID), profToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallList(t, meeting),
		}, rec)
	})

	t.Run("delete cascades", func(t *testing.T) {
		cls := createClassroom(t, prof.ID, "Doomed", 300)
		enroll(t, stud.ID, cls.ID, time.Now())
		logHours(t, stud.ID, cls.ID, 8)
		createReport(t, cls.ID, stud.ID, "Doomed report")
		if _, err := clsRepo.CreateTask(ctx, classroom.Task{ClassroomID: cls.ID, Title: "Doomed task", CreatedAt: time.Now().UTC()}); err != nil {
			t.Fatalf("CreateTask(): %v", err)
		}
		if _, err := clsRepo.CreateMeeting(ctx, classroom.Meeting{ClassroomID: cls.ID, Title: "Doomed meeting", ScheduledAt: time.Now().UTC(), CreatedAt: time.Now().UTC()}); err != nil {
			t.Fatalf("CreateMeeting(): %v", err)
		}

		req, rec := newAuthRequest(http.MethodDelete, fmt.Sprintf("%s/%d", path, cls.ID), profToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, MessageResponse{Message: "Classroom deleted successfully"}),
		}, rec)

		if _, err := clsRepo.GetClassroom(ctx, cls.ID); err != classroom.ErrNotFound {
			t.Errorf("failed! classroom err = %v; want %v", err, classroom.ErrNotFound)
		}
		if _, err := clsRepo.GetEnrollment(ctx, stud.ID, cls.ID); err != classroom.ErrNotEnrolled {
			t.Errorf("failed! enrollment err = %v; want %v", err, classroom.ErrNotEnrolled)
		}
		entries, err := prgRepo.QueryStudentTimeEntries(ctx, stud.ID, &cls.ID)
		if err != nil {
			t.Fatalf("QueryStudentTimeEntries(): %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("failed! time entries left = %v; want 0", len(entries))
		}
		reports, err := rptRepo.QueryStudentReports(ctx, stud.ID)
		if err != nil {
			t.Fatalf("QueryStudentReports(): %v", err)
		}
		for _, r := range reports {
			if r.ClassroomID == cls.ID {
				t.Errorf("failed! report %v survived the cascade", r.ID)
			}
		}
		tasks, _ := clsRepo.QueryClassroomTasks(ctx, cls.ID)
		if len(tasks) != 0 {
			t.Errorf("failed! tasks left = %v; want 0", len(tasks))
		}
		meetings, _ := clsRepo.QueryClassroomMeetings(ctx, cls.ID)
		if len(meetings) != 0 {
			t.Errorf("failed! meetings left = %v; want 0", len(meetings))
		}
	})

	t.Run("delete rejects unknown classroom", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, path+"/999999", profToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})
}
