package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/roster/core/schedule"
)

type backupApi struct {
	svc schedule.Service
}

func registerBackupAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc schedule.Service) {
	api := backupApi{svc: svc}

	bg := g.Group("/backup", jwt)
	bg.POST("", api.backup)
	bg.GET("", api.info)
	bg.GET("/diff", api.diff)
	bg.POST("/restore", api.restore)
}

func (api *backupApi) backup(ctx echo.Context) error {
	info, err := api.svc.Backup(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "backing up roster")
	}
	return ctx.JSON(http.StatusCreated, info)
}

func (api *backupApi) info(ctx echo.Context) error {
	info, err := api.svc.BackupInfo(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting backup info")
	}
	return ctx.JSON(http.StatusOK, info)
}

// diff previews a restore as a unified diff, one entry per line.
func (api *backupApi) diff(ctx echo.Context) error {
	diff, err := api.svc.BackupDiff(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "diffing backup")
	}
	return ctx.String(http.StatusOK, diff)
}

func (api *backupApi) restore(ctx echo.Context) error {
	entries, err := api.svc.Restore(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "restoring backup")
	}
	return ctx.JSON(http.StatusOK, entries)
}
