package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/roster"
	"github.com/trezcool/roster/core/schedule"
	logsvc "github.com/trezcool/roster/services/logger"
	"github.com/trezcool/roster/storage/kv"
)

func main() {
	conf := core.NewConfig()

	std, err := logsvc.NewZapLogger("admin", conf.Debug)
	errAndDie(err)
	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug)

	// set up KV store
	store, err := kv.Open(conf)
	if err != nil {
		logger.Fatal("setting up kv store: "+err.Error(), err, map[string]interface{}{"engine": conf.KV.Engine})
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		conf:     conf,
		svc:      schedule.NewService(store, logger, conf),
		importer: roster.NewImporter(validate, translator),
		out:      os.Stdout,
	}
	err = cli.run(os.Args)
	if err != nil {
		cli.printf("\nerror: %s\n", err)
	}

	if cErr := store.Close(); cErr != nil {
		logger.Error("closing kv store", cErr)
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
