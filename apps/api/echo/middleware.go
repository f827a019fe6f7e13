package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/riyaaz/core/classroom"
	"github.com/trezcool/riyaaz/core/user"
)

const contextClassroomKey = "classroom"

// roleMiddleware lets through users the check accepts.
func roleMiddleware(auth authenticator, check func(user.User) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := auth.contextUser(ctx)
			if err != nil {
				return err
			}
			if !check(usr) {
				return errHTTPForbidden
			}
			return next(ctx)
		}
	}
}

func teacherMiddleware(auth authenticator) echo.MiddlewareFunc {
	return roleMiddleware(auth, func(usr user.User) bool { return usr.IsTeacher() })
}

func studentMiddleware(auth authenticator) echo.MiddlewareFunc {
	return roleMiddleware(auth, func(usr user.User) bool { return usr.IsStudent() })
}

// ownerMiddleware loads the `:id` classroom if the context user teaches it.
func ownerMiddleware(auth authenticator, svc classroom.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := auth.contextUser(ctx)
			if err != nil {
				return err
			}
			cls, err := svc.GetOwned(ctx.Request().Context(), ctx.Param("id"), usr.ID)
			if err != nil {
				return err
			}
			ctx.Set(contextClassroomKey, cls)
			return next(ctx)
		}
	}
}

// memberMiddleware loads the `:id` classroom if the context user teaches or attends it.
func memberMiddleware(auth authenticator, svc classroom.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := auth.contextUser(ctx)
			if err != nil {
				return err
			}
			cls, err := svc.GetForMember(ctx.Request().Context(), ctx.Param("id"), usr)
			if err != nil {
				return err
			}
			ctx.Set(contextClassroomKey, cls)
			return next(ctx)
		}
	}
}

func contextClassroom(ctx echo.Context) classroom.Classroom {
	cls, _ := ctx.Get(contextClassroomKey).(classroom.Classroom)
	return cls
}
