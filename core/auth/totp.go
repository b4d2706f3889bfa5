// Package auth implements the TOTP login gate of the admin.
package auth

import (
	"crypto/subtle"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	Period = 30 // seconds
	Skew   = 1  // steps accepted before & after the current one
)

var (
	ErrInvalidSecret = errors.New("invalid TOTP secret")
	ErrInvalidCode   = errors.New("invalid code")
	ErrReplayedCode  = errors.New("code already used")

	validateOpts = totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
)

// Authenticator checks one-time codes against a single base32 secret.
// A code is only accepted once: its time step must be newer than the last accepted one.
type Authenticator struct {
	secret string

	mu       sync.Mutex
	lastStep int64
}

func NewAuthenticator(secret string) (*Authenticator, error) {
	secret = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
	if secret == "" {
		return nil, ErrInvalidSecret
	}
	if _, err := totp.GenerateCodeCustom(secret, time.Now(), validateOpts); err != nil {
		return nil, errors.Wrap(ErrInvalidSecret, err.Error())
	}
	return &Authenticator{secret: secret}, nil
}

// Verify accepts a 6 digit code valid at `now`, give or take one step.
func (a *Authenticator) Verify(code string, now time.Time) error {
	code = strings.ReplaceAll(strings.TrimSpace(code), " ", "")
	if len(code) != int(otp.DigitsSix) {
		return ErrInvalidCode
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	current := now.Unix() / Period
	for step := current - Skew; step <= current+Skew; step++ {
		want, err := totp.GenerateCodeCustom(a.secret, time.Unix(step*Period, 0).UTC(), validateOpts)
		if err != nil {
			return errors.Wrap(err, "generating code")
		}
		if subtle.ConstantTimeCompare([]byte(want), []byte(code)) != 1 {
			continue
		}
		if step <= a.lastStep {
			return ErrReplayedCode
		}
		a.lastStep = step
		return nil
	}
	return ErrInvalidCode
}

// GenerateSecret creates a new random secret & the otpauth:// URI to enroll it in an authenticator app.
func GenerateSecret(issuer, account string) (secret, uri string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      Period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", errors.Wrap(err, "generating TOTP secret")
	}
	return key.Secret(), key.URL(), nil
}

// Code returns the code for `t`; used to confirm a freshly generated secret.
func Code(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t, validateOpts)
}
