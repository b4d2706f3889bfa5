package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/roster"
	"github.com/trezcool/roster/core/schedule"
)

const (
	importModeReplace = "replace"
	importModeAppend  = "append"

	xlsxMIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var errEntryNotFoundInCtx = errors.New("schedule entry not found in echo.Context")

type scheduleApi struct {
	svc           schedule.Service
	importer      *roster.Importer
	validate      *validator.Validate
	maxUploadSize int64
}

func registerScheduleAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc schedule.Service,
	importer *roster.Importer,
	validate *validator.Validate,
	conf *core.Config,
) {
	api := scheduleApi{
		svc:           svc,
		importer:      importer,
		validate:      validate,
		maxUploadSize: conf.Server.MaxUploadSize,
	}

	sg := g.Group("/schedules", jwt)
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.DELETE("", api.destroyMultiple)
	sg.GET("/classes", api.queryClasses)
	sg.POST("/import", api.importRoster)
	sg.GET("/export", api.exportRoster)
	sg.POST("/undo", api.undo)
	sg.POST("/redo", api.redo)
	sg.GET("/history", api.history)

	// detail endpoints
	dg := sg.Group("/:id", entryMiddleware(svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

// Handlers

func (api *scheduleApi) query(ctx echo.Context) error {
	filter := new(schedule.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []schedule.Entry{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	entries, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying schedule")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *scheduleApi) queryClasses(ctx echo.Context) error {
	classes, err := api.svc.Classes(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *scheduleApi) create(ctx echo.Context) error {
	var data schedule.NewEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	entry, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating schedule entry")
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	entry, ok := ctx.Get(contextObjectKey).(schedule.Entry)
	if !ok {
		return errors.Wrap(errEntryNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *scheduleApi) update(ctx echo.Context) error {
	entry, ok := ctx.Get(contextObjectKey).(schedule.Entry)
	if !ok {
		return errors.Wrap(errEntryNotFoundInCtx, "retrieving object from context")
	}

	var data schedule.UpdateEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEntry")
	}
	if err := data.Validate(entry, api.validate); err != nil {
		return err
	}

	entry, err := api.svc.Update(ctx.Request().Context(), entry.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating schedule entry")
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *scheduleApi) destroy(ctx echo.Context) error {
	entry, ok := ctx.Get(contextObjectKey).(schedule.Entry)
	if !ok {
		return errors.Wrap(errEntryNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), entry.ID); err != nil {
		return errors.Wrap(err, "deleting schedule entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *scheduleApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting schedule entries")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *scheduleApi) importRoster(ctx echo.Context) error {
	mode := core.CleanString(ctx.QueryParam("mode"), true /* lower */)
	if mode == "" {
		mode = importModeReplace
	}
	if mode != importModeReplace && mode != importModeAppend {
		return core.NewValidationError(nil, core.FieldError{Field: "mode", Error: "mode must be one of: replace, append"})
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "this field is required"})
	}
	if api.maxUploadSize > 0 && fh.Size > api.maxUploadSize {
		return errFileTooLarge
	}
	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	nes, err := api.importer.Import(file)
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	var entries []schedule.Entry
	if mode == importModeAppend {
		entries, err = api.svc.Append(reqCtx, nes)
	} else {
		entries, err = api.svc.Replace(reqCtx, nes)
	}
	if err != nil {
		return errors.Wrapf(err, "importing roster (%s)", mode)
	}
	ctx.Logger().Infof("roster imported from %q: %d rows (%s)", fh.Filename, len(nes), mode)

	return ctx.JSON(http.StatusOK, ImportResponse{Mode: mode, Imported: len(nes), Total: len(entries)})
}

func (api *scheduleApi) exportRoster(ctx echo.Context) error {
	filter := new(schedule.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return core.NewValidationError(errors.Wrap(err, "invalid filter"))
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	entries, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying schedule")
	}

	var buf bytes.Buffer
	if err = roster.Export(&buf, entries); err != nil {
		return errors.Wrap(err, "exporting roster")
	}
	filename := fmt.Sprintf("roster-%s.xlsx", NowFunc().Format("20060102"))
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, xlsxMIMEType, buf.Bytes())
}

func (api *scheduleApi) undo(ctx echo.Context) error {
	entries, err := api.svc.Undo(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "undoing")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *scheduleApi) redo(ctx echo.Context) error {
	entries, err := api.svc.Redo(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "redoing")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *scheduleApi) history(ctx echo.Context) error {
	info, err := api.svc.History(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting history")
	}
	return ctx.JSON(http.StatusOK, info)
}

type (
	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}

	ImportResponse struct {
		Mode     string `json:"mode"`
		Imported int    `json:"imported"`
		Total    int    `json:"total"`
	}
)
