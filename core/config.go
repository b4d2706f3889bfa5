package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName      string
		Env          string // DEV (local; default), TEST, QA, PROD
		Build        string
		Debug        bool
		TestMode     bool
		SecretKey    string
		RollbarToken string
		WorkDir      string

		Server   ServerConfig
		KV       KVConfig
		TOTP     TOTPConfig
		Schedule ScheduleConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		MaxUploadSize             int64
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	KVConfig struct {
		Engine     string // memory | redis | sqlite
		Prefix     string
		RedisURL   string
		SQLitePath string
	}

	TOTPConfig struct {
		Secret  string
		Issuer  string
		Account string
	}

	ScheduleConfig struct {
		HistoryDepth int
		TermStart    time.Time
	}
)

// NewConfig loads the Config from the environment.
// Env variables are prefixed with the current env, eg. `PROD_SECRETKEY`, `DEV_KV_ENGINE`.
func NewConfig() *Config {
	conf := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("appName", "Roster")
	conf.SetDefault("build", "develop")
	conf.SetDefault("debug", env == "DEV")
	conf.SetDefault("testMode", env == "TEST")
	conf.SetDefault("secretKey", "x8#r-tq2v)kn4$+w7=bz&ueyh2(h!p)#*c9(#lm4h^$dasn3fq")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.address", ":8000")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.maxUploadSize", int64(10<<20))
	conf.SetDefault("server.jwtExpirationDelta", 12*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("kv.engine", "memory")
	conf.SetDefault("kv.prefix", "roster:")
	conf.SetDefault("kv.redisURL", "redis://localhost:6379/0")
	conf.SetDefault("kv.sqlitePath", "roster.db")
	conf.SetDefault("totp.secret", "")
	conf.SetDefault("totp.issuer", "Roster")
	conf.SetDefault("totp.account", "admin")
	conf.SetDefault("schedule.historyDepth", 20)
	conf.SetDefault("schedule.termStart", "")

	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	var termStart time.Time
	if ts := conf.GetString("schedule.termStart"); ts != "" {
		t, err := time.ParseInLocation("2006-01-02", ts, time.Local)
		if err != nil {
			log.Fatalf("config.schedule.termStart(%s): %v", ts, err)
		}
		termStart = t
	}

	return &Config{
		AppName:      conf.GetString("appName"),
		Env:          env,
		Build:        conf.GetString("build"),
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		SecretKey:    conf.GetString("secretKey"),
		RollbarToken: conf.GetString("rollbarToken"),
		WorkDir:      wd,
		Server: ServerConfig{
			Host:                      conf.GetString("server.host"),
			Address:                   conf.GetString("server.address"),
			DebugHost:                 conf.GetString("server.debugHost"),
			ShutdownTimeout:           conf.GetDuration("server.shutdownTimeout"),
			MaxUploadSize:             conf.GetInt64("server.maxUploadSize"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		KV: KVConfig{
			Engine:     strings.ToLower(conf.GetString("kv.engine")),
			Prefix:     conf.GetString("kv.prefix"),
			RedisURL:   conf.GetString("kv.redisURL"),
			SQLitePath: conf.GetString("kv.sqlitePath"),
		},
		TOTP: TOTPConfig{
			Secret:  conf.GetString("totp.secret"),
			Issuer:  conf.GetString("totp.issuer"),
			Account: conf.GetString("totp.account"),
		},
		Schedule: ScheduleConfig{
			HistoryDepth: conf.GetInt("schedule.historyDepth"),
			TermStart:    termStart,
		},
	}
}
