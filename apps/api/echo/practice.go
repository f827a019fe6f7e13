package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/riyaaz/core"
	"github.com/trezcool/riyaaz/core/classroom"
	"github.com/trezcool/riyaaz/core/practice"
)

type practiceAPI struct {
	auth     authenticator
	validate *validator.Validate
	svc      practice.Service
}

func registerPracticeAPI(
	cg *echo.Group,
	auth authenticator,
	validate *validator.Validate,
	clsSvc classroom.Service,
	svc practice.Service,
) {
	api := practiceAPI{auth: auth, validate: validate, svc: svc}
	student := studentMiddleware(auth)

	cg.POST("/:id/riyaaz", api.log, student)
	cg.GET("/:id/riyaaz", api.query, student)
	cg.GET("/:id/stats", api.stats, student)
	cg.POST("/:id/mend-streak", api.mendStreak, student)
	cg.GET("/:id/leaderboard", api.leaderboard, memberMiddleware(auth, clsSvc))
	cg.GET("/:id/activity", api.activity, ownerMiddleware(auth, clsSvc))
}

// Handlers

func (api *practiceAPI) log(ctx echo.Context) error {
	var data practice.NewEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	entry, err := api.svc.LogPractice(ctx.Request().Context(), ctx.Param("id"), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "logging practice")
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *practiceAPI) query(ctx echo.Context) error {
	ordering, err := bindOrdering(ctx, practice.OrderingFields)
	if err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	entries, err := api.svc.QueryEntries(ctx.Request().Context(), ctx.Param("id"), usr.ID, ordering)
	if err != nil {
		return errors.Wrap(err, "querying practice entries")
	}
	if entries == nil {
		entries = []practice.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *practiceAPI) stats(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	stats, err := api.svc.Stats(ctx.Request().Context(), ctx.Param("id"), usr.ID)
	if err != nil {
		return errors.Wrap(err, "computing stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *practiceAPI) mendStreak(ctx echo.Context) error {
	var data practice.MendRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MendRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	missed, err := practice.ParseDay(data.MissedDate)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "missed_date", Error: err.Error()})
	}

	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.MendStreak(ctx.Request().Context(), ctx.Param("id"), usr.ID, missed)
	if err != nil {
		return errors.Wrap(err, "mending streak")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *practiceAPI) leaderboard(ctx echo.Context) error {
	board, err := api.svc.Leaderboard(ctx.Request().Context(), contextClassroom(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "computing leaderboard")
	}
	if board == nil {
		board = []practice.LeaderboardEntry{}
	}
	return ctx.JSON(http.StatusOK, board)
}

func (api *practiceAPI) activity(ctx echo.Context) error {
	items, err := api.svc.RecentActivity(ctx.Request().Context(), contextClassroom(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "querying recent activity")
	}
	if items == nil {
		items = []practice.Activity{}
	}
	return ctx.JSON(http.StatusOK, items)
}
