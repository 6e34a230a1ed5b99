package echoapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mafunzo/core/classroom"
	"github.com/trezcool/mafunzo/core/report"
	"github.com/trezcool/mafunzo/core/user"
)

type reportApi struct {
	svc      *report.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerProfReportAPI(pg *echo.Group, deps ServerDeps) {
	api := reportApi{
		svc:      deps.ReportSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}

	rg := pg.Group("/reports")
	rg.GET("", api.query)
	rg.POST("/review", api.review)
}

// Handlers

func (api *reportApi) query(ctx echo.Context) error {
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
	ordering := new(Ordering)
	ordering.Bind(ctx)

	reports, err := api.svc.QueryForProfessor(ctx.Request().Context(), usr.ID, classroomID, ordering.Orderings)
	if err != nil {
		return reportError(err, "querying reports")
	}
	return ctx.JSON(http.StatusOK, reports)
}

func (api *reportApi) review(ctx echo.Context) error {
	var data report.Review
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Review")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	reviewed, err := api.svc.Review(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return reportError(err, "reviewing report")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Report %s successfully", reviewed.Status),
	})
}

func reportError(err error, msg string) error {
	switch errors.Cause(err) {
	case report.ErrNotFound, classroom.ErrNotFound:
		return errHttpNotFound
	case report.ErrNotOwner:
		return echo.NewHTTPError(http.StatusForbidden, report.ErrNotOwner.Error())
	}
	return errors.Wrap(err, msg)
}
