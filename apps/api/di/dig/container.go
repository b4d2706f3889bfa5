package dig_container

import (
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/roster/apps/api/echo"
	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/auth"
	"github.com/trezcool/roster/core/roster"
	"github.com/trezcool/roster/core/schedule"
	logsvc "github.com/trezcool/roster/services/logger"
	"github.com/trezcool/roster/storage/kv"
)

type KVLoggerParam struct {
	dig.In
	Logger core.Logger `name:"kvLogger"`
}

type serverParams struct {
	dig.In

	Conf        *core.Config
	Logger      core.Logger
	KV          core.KVStore
	ScheduleSvc schedule.Service
	Auth        *auth.Authenticator
	Importer    *roster.Importer
	Validate    *validator.Validate
	Translator  ut.Translator
}

func newRollbarLogger(name string, conf *core.Config) (core.Logger, error) {
	std, err := logsvc.NewZapLogger(name, conf.Debug)
	if err != nil {
		return nil, err
	}
	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug)
	return logger, nil
}

func newLogger(conf *core.Config) (core.Logger, error) {
	return newRollbarLogger("api", conf)
}

func newKVLogger(conf *core.Config) (core.Logger, error) {
	return newRollbarLogger("kv", conf)
}

func newKVStore(conf *core.Config, loggerParam KVLoggerParam) core.KVStore {
	store, err := kv.Open(conf)
	if err != nil {
		loggerParam.Logger.Fatal("setting up kv store: "+err.Error(), err, map[string]interface{}{"engine": conf.KV.Engine})
	}
	return store
}

func newValidation() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)
	return validate, translator
}

func newAuthenticator(conf *core.Config) (*auth.Authenticator, error) {
	authenticator, err := auth.NewAuthenticator(conf.TOTP.Secret)
	if err != nil {
		return nil, errors.Wrap(err, "totp.secret (generate one with `admin totp-secret`)")
	}
	return authenticator, nil
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:        p.Conf,
		Logger:      p.Logger,
		KV:          p.KV,
		ScheduleSvc: p.ScheduleSvc,
		Auth:        p.Auth,
		Importer:    p.Importer,
		Validate:    p.Validate,
		Translator:  p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newKVLogger, dig.Name("kvLogger")))
	must(c.Provide(newKVStore))
	must(c.Provide(newValidation))
	must(c.Provide(newAuthenticator))
	must(c.Provide(roster.NewImporter))
	must(c.Provide(schedule.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
