package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mafunzo/core/classroom"
	"github.com/trezcool/mafunzo/core/progress"
	"github.com/trezcool/mafunzo/core/user"
)

var errInvalidClassroomID = echo.NewHTTPError(http.StatusBadRequest, "Invalid classroom ID")

type classroomApi struct {
	svc         *classroom.Service
	progressSvc *progress.Service
	usrSvc      *user.Service
	validate    *validator.Validate
}

func registerProfessorAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := classroomApi{
		svc:         deps.ClassroomSvc,
		progressSvc: deps.ProgressSvc,
		usrSvc:      deps.UserSvc,
		validate:    deps.Validate,
	}

	pg := g.Group("/prof", jwt, professorMiddleware(deps.UserSvc))

	cg := pg.Group("/classrooms")
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.DELETE("/:id", api.destroy)
	cg.GET("/:id/tasks", api.queryTasks)
	cg.POST("/:id/tasks", api.createTask)
	cg.GET("/:id/meetings", api.queryMeetings)
	cg.POST("/:id/meetings", api.createMeeting)

	pg.GET("/students", api.studentsOverview)

	registerProfReportAPI(pg, deps)
}

// Handlers

func (api *classroomApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	cls, err := api.svc.QueryOwned(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying classrooms")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classroomApi) create(ctx echo.Context) error {
	var data classroom.NewClassroom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassroom")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	cls, err := api.svc.Create(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating classroom")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classroomApi) retrieve(ctx echo.Context) error {
	id, err := classroomIDParam(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	detail, err := api.svc.GetDetail(ctx.Request().Context(), usr.ID, id)
	if err != nil {
		return classroomError(err, "getting classroom detail")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *classroomApi) update(ctx echo.Context) error {
	id, err := classroomIDParam(ctx)
	if err != nil {
		return err
	}
	var data classroom.UpdateClassroom
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClassroom")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if _, err = api.svc.Update(ctx.Request().Context(), usr.ID, id, data); err != nil {
		return classroomError(err, "updating classroom")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Classroom updated successfully"})
}

func (api *classroomApi) destroy(ctx echo.Context) error {
	id, err := classroomIDParam(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.Delete(ctx.Request().Context(), usr.ID, id); err != nil {
		return classroomError(err, "deleting classroom")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Classroom deleted successfully"})
}

func (api *classroomApi) createTask(ctx echo.Context) error {
	id, err := classroomIDParam(ctx)
	if err != nil {
		return err
	}
	var data classroom.NewTask
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	task, err := api.svc.AddTask(ctx.Request().Context(), usr.ID, id, data)
	if err != nil {
		return classroomError(err, "creating task")
	}
	return ctx.JSON(http.StatusCreated, task)
}

func (api *classroomApi) queryTasks(ctx echo.Context) error {
	id, err := classroomIDParam(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	tasks, err := api.svc.QueryTasks(ctx.Request().Context(), usr.ID, id)
	if err != nil {
		return classroomError(err, "querying tasks")
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *classroomApi) createMeeting(ctx echo.Context) error {
	id, err := classroomIDParam(ctx)
	if err != nil {
		return err
	}
	var data classroom.NewMeeting
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMeeting")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	meeting, err := api.svc.AddMeeting(ctx.Request().Context(), usr.ID, id, data)
	if err != nil {
		return classroomError(err, "creating meeting")
	}
	return ctx.JSON(http.StatusCreated, meeting)
}

func (api *classroomApi) queryMeetings(ctx echo.Context) error {
	id, err := classroomIDParam(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	meetings, err := api.svc.QueryMeetings(ctx.Request().Context(), usr.ID, id)
	if err != nil {
		return classroomError(err, "querying meetings")
	}
	return ctx.JSON(http.StatusOK, meetings)
}

// studentsOverview aggregates distinct students across the professor's
// classrooms, zero-substituting students whose hours cannot be derived.
func (api *classroomApi) studentsOverview(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	overview, err := api.progressSvc.Overview(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "building students overview")
	}
	return ctx.JSON(http.StatusOK, overview)
}

func classroomIDParam(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, errInvalidClassroomID
	}
	return id, nil
}

func classroomError(err error, msg string) error {
	if errors.Cause(err) == classroom.ErrNotFound {
		return errHttpNotFound
	}
	return errors.Wrap(err, msg)
}
