package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	. "github.com/trezcool/mafunzo/apps/api/echo"
	"github.com/trezcool/mafunzo/core/report"
	emailsvc "github.com/trezcool/mafunzo/services/email"
)

func TestReportApi(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	prof := createProfessor(t, "profrep", "rep.prof@test.cd")
	lonelyProf := createProfessor(t, "proflonely", "lonely.prof@test.cd") // owns no classroom
	stud := createStudent(t, "studrep", "rep.stud@test.cd")
	outsider := createStudent(t, "studout", "out.stud@test.cd") // not enrolled

	cls := createClassroom(t, prof.ID, "Reporting 101", 600)
	enroll(t, stud.ID, cls.ID, time.Now())

	profToken := getToken(t, prof)
	lonelyProfToken := getToken(t, lonelyProf)
	studToken := getToken(t, stud)
	outsiderToken := getToken(t, outsider)

	studentPath := "/api/student/reports"
	profPath := "/api/prof/reports"

	var submitted report.Report

	t.Run("submit ok", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{
			"classroom_id": cls.ID,
			"title":        "Day 1 on the racks",
			"description":  "cabled the east aisle",
		})
		req, rec := newAuthRequest(http.MethodPost, studentPath, studToken, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &submitted); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if submitted.Type != report.TypeDaily {
			t.Errorf("failed! type = %v; want %v", submitted.Type, report.TypeDaily)
		}
		if submitted.Status != report.StatusPending {
			t.Errorf("failed! status = %v; want %v", submitted.Status, report.StatusPending)
		}
		if submitted.StudentID != stud.ID {
			t.Errorf("failed! studentID = %v; want %v", submitted.StudentID, stud.ID)
		}
	})

	submitTests := []httpTest{
		{
			name:     "submit requires enrollment",
			token:    outsiderToken,
			body:     marchallObj(t, map[string]interface{}{"classroom_id": cls.ID, "title": "Sneaky"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"classroom_id": "student is not enrolled in this classroom"}),
		},
		{
			name:     "submit requires title",
			token:    studToken,
			body:     marchallObj(t, map[string]interface{}{"classroom_id": cls.ID}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"title": "this field is required"}),
		},
		{
			name:     "submit rejects unknown type",
			token:    studToken,
			body:     marchallObj(t, map[string]interface{}{"classroom_id": cls.ID, "title": "T", "type": "monthly"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"type": "must be one of: daily weekly"}),
		},
		{
			name:     "submit rejects bad submission url",
			token:    studToken,
			body:     marchallObj(t, map[string]interface{}{"classroom_id": cls.ID, "title": "T", "submission_url": "not a url"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"submission_url": "must be a valid URL"}),
		},
	}
	for _, tt := range submitTests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, studentPath, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("student list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, studentPath, studToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, submitted)}, rec)

		req, rec = newAuthRequest(http.MethodGet, studentPath, outsiderToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte("[]")}, rec)
	})

	t.Run("professor list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, profPath, profToken)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var dtos []report.DTO
		if err := json.Unmarshal(rec.Body.Bytes(), &dtos); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(dtos) != 1 {
			t.Fatalf("failed! len = %v; want 1", len(dtos))
		}
		dto := dtos[0]
		if dto.ID != submitted.ID {
			t.Errorf("failed! id = %v; want %v", dto.ID, submitted.ID)
		}
		if dto.SubmittedBy != "rep.stud" {
			t.Errorf("failed! submittedBy = %v; want rep.stud", dto.SubmittedBy)
		}
		if dto.Student == nil || dto.Student.Email != stud.Email {
			t.Errorf("failed! student block = %+v; want email %v", dto.Student, stud.Email)
		}
	})

	t.Run("professor list filtered by classroom", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("%s?classroom_id=%d", profPath, cls.ID), profToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		// a classroom the professor does not own
		req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("%s?classroom_id=%d", profPath, cls.ID), lonelyProfToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)

		req, rec = newAuthRequest(http.MethodGet, profPath+"?classroom_id=abc", profToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Message: "Invalid classroom ID"}),
		}, rec)
	})

	t.Run("professor list with no classrooms is empty", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, profPath, lonelyProfToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte("[]")}, rec)
	})

	t.Run("professor list honors ordering", func(t *testing.T) {
		createReport(t, cls.ID, stud.ID, "Alpha entry")
		createReport(t, cls.ID, stud.ID, "Zulu entry")

		req, rec := newAuthRequest(http.MethodGet, profPath+"?ordering=title", profToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var dtos []report.DTO
		if err := json.Unmarshal(rec.Body.Bytes(), &dtos); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(dtos) != 3 {
			t.Fatalf("failed! len = %v; want 3", len(dtos))
		}
		if dtos[0].Title != "Alpha entry" || dtos[2].Title != "Zulu entry" {
			t.Errorf("failed! order = [%v ... %v]; want [Alpha entry ... Zulu entry]", dtos[0].Title, dtos[2].Title)
		}
	})

	t.Run("review ok and notifies student", func(t *testing.T) {
		sentBefore := len(emailsvc.SentMessages)

		body := marchallObj(t, map[string]interface{}{
			"reportId": submitted.ID,
			"status":   "approved",
			"feedback": "Solid work",
		})
		req, rec := newAuthRequest(http.MethodPost, profPath+"/review", profToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, MessageResponse{Message: "Report approved successfully"}),
		}, rec)

		fresh, err := rptRepo.GetReport(ctx, submitted.ID)
		if err != nil {
			t.Fatalf("GetReport(): %v", err)
		}
		if fresh.Status != report.StatusApproved {
			t.Errorf("failed! status = %v; want %v", fresh.Status, report.StatusApproved)
		}
		if fresh.Feedback.String != "Solid work" {
			t.Errorf("failed! feedback = %v; want Solid work", fresh.Feedback.String)
		}

		if len(emailsvc.SentMessages) != sentBefore+1 {
			t.Fatalf("failed! sent = %v; want %v", len(emailsvc.SentMessages), sentBefore+1)
		}
		msg := emailsvc.SentMessages[len(emailsvc.SentMessages)-1]
		if msg.Subject != "Report approved" {
			t.Errorf("failed! subject = %v; want Report approved", msg.Subject)
		}
		if len(msg.To) != 1 || msg.To[0].Address != stud.Email {
			t.Errorf("failed! recipient = %+v; want %v", msg.To, stud.Email)
		}
	})

	t.Run("review is idempotent", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"reportId": submitted.ID, "status": "rejected"})
		req, rec := newAuthRequest(http.MethodPost, profPath+"/review", profToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, MessageResponse{Message: "Report rejected successfully"}),
		}, rec)

		fresh, err := rptRepo.GetReport(ctx, submitted.ID)
		if err != nil {
			t.Fatalf("GetReport(): %v", err)
		}
		if fresh.Status != report.StatusRejected {
			t.Errorf("failed! status = %v; want %v", fresh.Status, report.StatusRejected)
		}
	})

	reviewTests := []httpTest{
		{
			name:     "review rejects unknown status",
			token:    profToken,
			body:     marchallObj(t, map[string]interface{}{"reportId": 1, "status": "maybe"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"status": "must be one of: approved rejected"}),
		},
		{
			name:     "review rejects unknown report",
			token:    profToken,
			body:     marchallObj(t, map[string]interface{}{"reportId": 999999, "status": "approved"}),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range reviewTests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, profPath+"/review", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("review rejects non-owner", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"reportId": submitted.ID, "status": "approved"})
		req, rec := newAuthRequest(http.MethodPost, profPath+"/review", lonelyProfToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Message: report.ErrNotOwner.Error()}),
		}, rec)
	})
}
