package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/riyaaz/core/classroom"
)

type classroomAPI struct {
	auth     authenticator
	validate *validator.Validate
	svc      classroom.Service
}

// registerClassroomAPI registers the classroom routes on cg, the `/classrooms` group.
func registerClassroomAPI(
	cg *echo.Group,
	auth authenticator,
	validate *validator.Validate,
	svc classroom.Service,
) {
	api := classroomAPI{auth: auth, validate: validate, svc: svc}
	teacher := teacherMiddleware(auth)
	student := studentMiddleware(auth)

	cg.POST("", api.create, teacher)
	cg.GET("", api.queryOwned, teacher)
	cg.GET("/student", api.queryJoined, student)
	cg.POST("/join", api.join, student)

	// detail endpoints
	member := memberMiddleware(auth, svc)
	owner := ownerMiddleware(auth, svc)
	cg.GET("/:id", api.retrieve, member)
	cg.GET("/:id/students", api.queryStudents, owner)
	cg.DELETE("/:id/students/:studentId", api.removeStudent, owner)
	cg.GET("/:id/notes", api.queryNotes, member)
	cg.POST("/:id/notes", api.createNote, owner)
}

// Handlers

func (api *classroomAPI) create(ctx echo.Context) error {
	var data classroom.NewClassroom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassroom")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	cls, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating classroom")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classroomAPI) queryOwned(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	classes, err := api.svc.QueryTeacherClassrooms(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying teacher classrooms")
	}
	if classes == nil {
		classes = []classroom.Classroom{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classroomAPI) queryJoined(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	classes, err := api.svc.QueryStudentClassrooms(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying student classrooms")
	}
	if classes == nil {
		classes = []classroom.StudentClassroom{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classroomAPI) join(ctx echo.Context) error {
	var data classroom.JoinRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	enr, err := api.svc.Join(ctx.Request().Context(), usr, data.JoinCode)
	if err != nil {
		return errors.Wrap(err, "joining classroom")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *classroomAPI) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, contextClassroom(ctx))
}

func (api *classroomAPI) queryStudents(ctx echo.Context) error {
	roster, err := api.svc.QueryStudents(ctx.Request().Context(), contextClassroom(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if roster == nil {
		roster = []classroom.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, roster)
}

func (api *classroomAPI) removeStudent(ctx echo.Context) error {
	err := api.svc.RemoveStudent(ctx.Request().Context(), contextClassroom(ctx).ID, ctx.Param("studentId"))
	if err != nil {
		if err == classroom.ErrNotEnrolled {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "removing student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classroomAPI) queryNotes(ctx echo.Context) error {
	notes, err := api.svc.QueryNotes(ctx.Request().Context(), contextClassroom(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "querying notes")
	}
	if notes == nil {
		notes = []classroom.Note{}
	}
	return ctx.JSON(http.StatusOK, notes)
}

func (api *classroomAPI) createNote(ctx echo.Context) error {
	var data classroom.NewNote
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNote")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	note, err := api.svc.CreateNote(ctx.Request().Context(), contextClassroom(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "creating note")
	}
	return ctx.JSON(http.StatusCreated, note)
}
