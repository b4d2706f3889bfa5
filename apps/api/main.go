package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	dig_container "github.com/trezcool/roster/apps/api/di/dig"
	echoapi "github.com/trezcool/roster/apps/api/echo"
	"github.com/trezcool/roster/core"
)

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		apiLogger core.Logger,
		kvLoggerParam dig_container.KVLoggerParam,
		store core.KVStore,
		server *echoapi.Server,
	) {
		// =========================================================================
		// Initialize App

		apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build), map[string]interface{}{"env": conf.Env, "kv": conf.KV.Engine})

		defer func() {
			if err := store.Close(); err != nil {
				kvLoggerParam.Logger.Error("Failed to close", err)
			}
			_ = kvLoggerParam.Logger.Sync()
		}()
		defer func() {
			apiLogger.Info("Application stopped")
			_ = apiLogger.Sync()
		}()

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.

		// Expose important info under /debug/vars.
		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)

		debugServer := &http.Server{Addr: conf.Server.DebugHost, Handler: http.DefaultServeMux}

		var g errgroup.Group
		g.Go(func() error {
			if err := debugServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				apiLogger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
			return nil
		})

		// =========================================================================
		// Start API Service

		g.Go(func() error {
			server.Start()
			return nil
		})

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			apiLogger.Error(fmt.Sprintf("server error: %v", err), err)

		case sig := <-server.ShutdownSignal():
			apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		}

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listeners to shut down and shed load
		if err := server.Shutdown(ctx); err != nil {
			apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				apiLogger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
		if err := debugServer.Shutdown(ctx); err != nil {
			apiLogger.Error(fmt.Sprintf("could not stop debug server: %v", err), err)
		}
		_ = g.Wait()
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "starting api").Error())
	}
}
