package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/auth"
	"github.com/trezcool/roster/core/roster"
	"github.com/trezcool/roster/core/schedule"
)

type ServerDeps struct {
	Conf        *core.Config
	Logger      core.Logger
	KV          core.KVStore
	ScheduleSvc schedule.Service
	Auth        *auth.Authenticator
	Importer    *roster.Importer
	Validate    *validator.Validate
	Translator  ut.Translator
}

type Server struct {
	deps     ServerDeps
	app      *echo.Echo
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if conf.Debug {
		s.app.Logger.SetLevel(log.DEBUG)
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.GET("/health", s.health)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))

	registerAuthAPI(v1, jwt, s.deps.Auth, s.deps.Validate, conf)
	registerScheduleAPI(v1, jwt, s.deps.ScheduleSvc, s.deps.Importer, s.deps.Validate, conf)
	registerBackupAPI(v1, jwt, s.deps.ScheduleSvc)
	registerFreeTimeAPI(v1, jwt, s.deps.ScheduleSvc, conf)
}

// Start blocks until the server stops; failures other than a regular shutdown are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

func (s *Server) health(ctx echo.Context) error {
	if err := s.deps.KV.Ping(ctx.Request().Context()); err != nil {
		s.deps.Logger.Error("health check failed", err)
		return ctx.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Build: s.deps.Conf.Build})
	}
	return ctx.JSON(http.StatusOK, HealthResponse{Status: "ok", Build: s.deps.Conf.Build})
}

type HealthResponse struct {
	Status string `json:"status"`
	Build  string `json:"build"`
}
