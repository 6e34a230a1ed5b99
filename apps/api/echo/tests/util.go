package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/volatiletech/null/v8"

	. "github.com/trezcool/mafunzo/apps/api/echo"
	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/classroom"
	"github.com/trezcool/mafunzo/core/progress"
	"github.com/trezcool/mafunzo/core/report"
	"github.com/trezcool/mafunzo/core/user"
	emailsvc "github.com/trezcool/mafunzo/services/email"
	dummydb "github.com/trezcool/mafunzo/storage/database/dummy"
)

var (
	usrRepo user.Repository
	clsRepo classroom.Repository
	rptRepo report.Repository
	prgRepo progress.Repository

	errMissingToken = httpErr{Message: "missing or malformed jwt"}
	errForbidden    = httpErr{Message: "permission denied"}
	errNotFound     = httpErr{Message: "not found"}
)

func setup(t *testing.T) *Server {
	core.Conf.TestMode = true

	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)
	clsRepo = dummydb.NewClassroomRepository(db)
	rptRepo = dummydb.NewReportRepository(db)
	prgRepo = dummydb.NewProgressRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc := user.NewService(usrRepo)
	clsSvc := classroom.NewService(clsRepo)
	rptSvc := report.NewService(rptRepo, clsRepo, usrRepo, mailSvc)
	prgSvc := progress.NewService(prgRepo, clsRepo)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	report.InitValidators(validate, translator)

	// set up server
	return NewServer(
		ServerDeps{
			Logger:       testLogger{log.New(os.Stdout, "TEST : ", log.LstdFlags)},
			UserSvc:      usrSvc,
			ClassroomSvc: clsSvc,
			ReportSvc:    rptSvc,
			ProgressSvc:  prgSvc,
			Validate:     validate,
			Translator:   translator,
		},
	)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type testLogger struct {
	std *log.Logger
}

func (l testLogger) Enable(bool)                           {}
func (l testLogger) Debug(msg string, args ...interface{}) { l.std.Println(msg, args) }
func (l testLogger) Info(msg string, args ...interface{})  { l.std.Println(msg, args) }
func (l testLogger) Warn(msg string, args ...interface{})  { l.std.Println(msg, args) }
func (l testLogger) Error(msg string, args ...interface{}) { l.std.Println(msg, args) }
func (l testLogger) Fatal(msg string, args ...interface{}) { l.std.Println(msg, args) }

type httpErr struct {
	Message string `json:"message"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(tt.wantData)),
			B:        difflib.SplitLines(rec.Body.String()),
			FromFile: "want",
			ToFile:   "got",
			Context:  2,
		})
		t.Errorf("failed! data = %v; wantData %v\ndiff:\n%v", rec.Body.String(), string(tt.wantData), diff)
	}
}

// seed helpers

func createUser(t *testing.T, uname, email, role string, isActive bool) user.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	usr := user.User{
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword("V3ryS3cr3t!"); err != nil {
		t.Fatalf("SetPassword(): %v", err)
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func createProfessor(t *testing.T, uname, email string) user.User {
	return createUser(t, uname, email, user.RoleProfessor, true)
}

func createStudent(t *testing.T, uname, email string) user.User {
	return createUser(t, uname, email, user.RoleStudent, true)
}

func createClassroom(t *testing.T, professorID int, name string, ojtHours int) classroom.Classroom {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	cls, err := clsRepo.CreateClassroom(context.Background(), classroom.Classroom{
		Name:        name,
		ProfessorID: professorID,
		OJTHours:    ojtHours,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateClassroom(): %v", err)
	}
	return cls
}

func enroll(t *testing.T, studentID, classroomID int, createdAt time.Time) classroom.Enrollment {
	t.Helper()
	e, err := clsRepo.CreateEnrollment(context.Background(), classroom.Enrollment{
		StudentID:   studentID,
		ClassroomID: classroomID,
		CreatedAt:   createdAt.UTC(),
	})
	if err != nil {
		t.Fatalf("CreateEnrollment(): %v", err)
	}
	return e
}

func createReport(t *testing.T, classroomID, studentID int, title string) report.Report {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	r, err := rptRepo.CreateReport(context.Background(), report.Report{
		ClassroomID: classroomID,
		StudentID:   studentID,
		Title:       title,
		Type:        report.TypeDaily,
		Status:      report.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateReport(): %v", err)
	}
	return r
}

func logHours(t *testing.T, studentID, classroomID int, hours float64) progress.TimeEntry {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	te, err := prgRepo.CreateTimeEntry(context.Background(), progress.TimeEntry{
		StudentID:   studentID,
		ClassroomID: classroomID,
		Hours:       hours,
		Description: null.String{},
		EntryDate:   now,
		CreatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateTimeEntry(): %v", err)
	}
	return te
}
