package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mafunzo/core/classroom"
	"github.com/trezcool/mafunzo/core/progress"
	"github.com/trezcool/mafunzo/core/report"
	"github.com/trezcool/mafunzo/core/user"
)

var errInvalidStudentID = echo.NewHTTPError(http.StatusBadRequest, "Invalid student ID")

type studentApi struct {
	clsSvc      *classroom.Service
	reportSvc   *report.Service
	progressSvc *progress.Service
	usrSvc      *user.Service
	validate    *validator.Validate
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := studentApi{
		clsSvc:      deps.ClassroomSvc,
		reportSvc:   deps.ReportSvc,
		progressSvc: deps.ProgressSvc,
		usrSvc:      deps.UserSvc,
		validate:    deps.Validate,
	}

	sg := g.Group("/student", jwt, studentMiddleware(deps.UserSvc))
	sg.GET("/classrooms", api.queryClassrooms)
	sg.POST("/classrooms/join", api.joinClassroom)
	sg.GET("/reports", api.queryReports)
	sg.POST("/reports", api.submitReport)
	sg.GET("/time-entries", api.queryTimeEntries)
	sg.POST("/time-entries", api.logTime)

	// professors may read snapshots of students in classrooms they own
	g.GET("/student/progress", api.progress, jwt)
}

// Handlers

func (api *studentApi) queryClassrooms(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	cls, err := api.clsSvc.QueryEnrolled(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrolled classrooms")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *studentApi) joinClassroom(ctx echo.Context) error {
	var data JoinRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	enrollment, err := api.clsSvc.Join(ctx.Request().Context(), usr.ID, data.ClassroomID)
	if err != nil {
		return classroomError(err, "joining classroom")
	}
	return ctx.JSON(http.StatusCreated, enrollment)
}

func (api *studentApi) queryReports(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	reports, err := api.reportSvc.QueryForStudent(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying reports")
	}
	return ctx.JSON(http.StatusOK, reports)
}

func (api *studentApi) submitReport(ctx echo.Context) error {
	var data report.NewReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReport")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	r, err := api.reportSvc.Submit(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *studentApi) queryTimeEntries(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var classroomID *int
	if raw := ctx.QueryParam("classroom_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return errInvalidClassroomID
		}
		classroomID = &id
	}

	entries, err := api.progressSvc.QueryEntries(ctx.Request().Context(), usr.ID, classroomID)
	if err != nil {
		return errors.Wrap(err, "querying time entries")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *studentApi) logTime(ctx echo.Context) error {
	var data progress.NewTimeEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTimeEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	entry, err := api.progressSvc.LogTime(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, entry)
}

// progress returns a derived progress snapshot. Students read their own;
// professors read any student of a classroom they own.
func (api *studentApi) progress(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	classroomID, err := strconv.Atoi(ctx.QueryParam("classroom_id"))
	if err != nil {
		return errInvalidClassroomID
	}

	studentID := usr.ID
	switch {
	case usr.IsStudent():
	case usr.IsProfessor():
		if studentID, err = strconv.Atoi(ctx.QueryParam("student_id")); err != nil {
			return errInvalidStudentID
		}
		if _, err = api.clsSvc.GetOwned(ctx.Request().Context(), usr.ID, classroomID); err != nil {
			return classroomError(err, "checking classroom ownership")
		}
	default:
		return errHttpForbidden
	}

	snap, err := api.progressSvc.Snapshot(ctx.Request().Context(), studentID, classroomID)
	if err != nil {
		if errors.Cause(err) == classroom.ErrNotEnrolled {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deriving progress snapshot")
	}
	return ctx.JSON(http.StatusOK, snap)
}

type JoinRequest struct {
	ClassroomID int `json:"classroom_id" validate:"required,gt=0"`
}

func (jr *JoinRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(jr)
}
