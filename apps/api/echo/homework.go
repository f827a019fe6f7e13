package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/riyaaz/core/classroom"
	"github.com/trezcool/riyaaz/core/homework"
)

type homeworkAPI struct {
	auth     authenticator
	validate *validator.Validate
	clsSvc   classroom.Service
	svc      homework.Service
}

func registerHomeworkAPI(
	g *echo.Group,
	cg *echo.Group,
	jwt echo.MiddlewareFunc,
	auth authenticator,
	validate *validator.Validate,
	clsSvc classroom.Service,
	svc homework.Service,
) {
	api := homeworkAPI{auth: auth, validate: validate, clsSvc: clsSvc, svc: svc}

	cg.POST("/:id/homework", api.create, ownerMiddleware(auth, clsSvc))
	cg.GET("/:id/homework", api.query, memberMiddleware(auth, clsSvc))

	hg := g.Group("/homework", jwt)
	hg.POST("/:assignmentId/submissions", api.submit, studentMiddleware(auth))
	hg.GET("/:assignmentId/submissions", api.querySubmissions, teacherMiddleware(auth))
}

// Handlers

func (api *homeworkAPI) create(ctx echo.Context) error {
	var data homework.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	asgmt, err := api.svc.Create(ctx.Request().Context(), contextClassroom(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, asgmt)
}

// query lists the classroom assignments; students also get their own submission status.
func (api *homeworkAPI) query(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	cls := contextClassroom(ctx)
	var asgmts []homework.Assignment
	if cls.TeacherID == usr.ID {
		asgmts, err = api.svc.QueryAssignments(ctx.Request().Context(), cls.ID)
	} else {
		asgmts, err = api.svc.QueryStudentAssignments(ctx.Request().Context(), cls.ID, usr.ID)
	}
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if asgmts == nil {
		asgmts = []homework.Assignment{}
	}
	return ctx.JSON(http.StatusOK, asgmts)
}

func (api *homeworkAPI) submit(ctx echo.Context) error {
	var data homework.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	sub, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("assignmentId"), usr, data)
	if err != nil {
		return errors.Wrap(err, "submitting homework")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *homeworkAPI) querySubmissions(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	asgmt, err := api.svc.GetAssignment(reqCtx, ctx.Param("assignmentId"))
	if err != nil {
		return errors.Wrap(err, "finding assignment")
	}
	if _, err = api.clsSvc.GetOwned(reqCtx, asgmt.ClassroomID, usr.ID); err != nil {
		if err == classroom.ErrNotFound {
			return homework.ErrNotFound
		}
		return errors.Wrap(err, "finding classroom")
	}

	subs, err := api.svc.QuerySubmissions(reqCtx, asgmt.ID)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []homework.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}
