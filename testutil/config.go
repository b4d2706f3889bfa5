package testutil

import (
	"time"

	"github.com/trezcool/roster/core"
)

// TOTPSecret is the base32 secret of the test account.
const TOTPSecret = "JBSWY3DPEHPK3PXP"

// NewConfig returns a TEST Config that does not depend on the environment.
func NewConfig() *core.Config {
	return &core.Config{
		AppName:   "Roster",
		Env:       "TEST",
		Build:     "test",
		TestMode:  true,
		SecretKey: "secret",
		Server: core.ServerConfig{
			Host:                      "localhost",
			ShutdownTimeout:           time.Second,
			MaxUploadSize:             1 << 20,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		KV: core.KVConfig{
			Engine: "memory",
			Prefix: "test:",
		},
		TOTP: core.TOTPConfig{
			Secret:  TOTPSecret,
			Issuer:  "Roster",
			Account: "admin",
		},
		Schedule: core.ScheduleConfig{
			HistoryDepth: 3,
			TermStart:    time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC),
		},
	}
}
