package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/schedule"
	"github.com/trezcool/roster/core/timetable"
)

type freeTimeApi struct {
	svc       schedule.Service
	termStart time.Time
}

func registerFreeTimeAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc schedule.Service, conf *core.Config) {
	api := freeTimeApi{svc: svc, termStart: conf.Schedule.TermStart}

	fg := g.Group("/freetime", jwt)
	fg.GET("", api.classFreeTime)
	fg.GET("/theory", api.theoryFreeTime)
	fg.GET("/training", api.trainingFreeTime)

	g.GET("/weeks/current", api.currentWeek, jwt)
}

// classFreeTime defaults to today & the current week of term; `week=0` ignores weeks.
func (api *freeTimeApi) classFreeTime(ctx echo.Context) error {
	now := NowFunc()

	weekday, err := queryInt(ctx, "weekday", timetable.Weekday(now))
	if err != nil {
		return err
	}
	week, err := queryInt(ctx, "week", timetable.WeekOfTerm(api.termStart, now))
	if err != nil {
		return err
	}
	class := core.CleanString(ctx.QueryParam("class"))

	free, err := api.svc.FreeTime(ctx.Request().Context(), class, weekday, week)
	if err != nil {
		return errors.Wrap(err, "computing free time")
	}
	return ctx.JSON(http.StatusOK, ClassFreeTimeResponse{Class: class, Weekday: weekday, Week: week, Free: free})
}

func (api *freeTimeApi) theoryFreeTime(ctx echo.Context) error {
	periods, err := queryInts(ctx, "period")
	if err != nil {
		return err
	}
	busy, err := timetable.TheoryBusy(periods)
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "period", Error: err.Error()})
	}
	return ctx.JSON(http.StatusOK, newFreeTimeResponse(busy))
}

func (api *freeTimeApi) trainingFreeTime(ctx echo.Context) error {
	busy, err := timetable.TrainingBusy(queryStrings(ctx, "block"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "block", Error: err.Error()})
	}
	return ctx.JSON(http.StatusOK, newFreeTimeResponse(busy))
}

func (api *freeTimeApi) currentWeek(ctx echo.Context) error {
	now := NowFunc()
	resp := CurrentWeekResponse{
		Date:    now.Format("2006-01-02"),
		Weekday: timetable.Weekday(now),
		Week:    timetable.WeekOfTerm(api.termStart, now),
	}
	if !api.termStart.IsZero() {
		resp.TermStart = api.termStart.Format("2006-01-02")
	}
	return ctx.JSON(http.StatusOK, resp)
}

type (
	ClassFreeTimeResponse struct {
		Class   string               `json:"class"`
		Weekday int                  `json:"weekday"`
		Week    int                  `json:"week"`
		Free    []timetable.Interval `json:"free"`
	}

	FreeTimeResponse struct {
		Busy []timetable.Interval `json:"busy"`
		Free []timetable.Interval `json:"free"`
	}

	CurrentWeekResponse struct {
		Date      string `json:"date"`
		TermStart string `json:"term_start,omitempty"`
		Weekday   int    `json:"weekday"`
		Week      int    `json:"week"`
	}
)

func newFreeTimeResponse(busy []timetable.Interval) FreeTimeResponse {
	if busy == nil {
		busy = []timetable.Interval{}
	}
	return FreeTimeResponse{Busy: busy, Free: timetable.FreeTime(busy)}
}
