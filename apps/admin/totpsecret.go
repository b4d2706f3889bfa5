package main

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/roster/core/auth"
)

var (
	errCodeMismatch = errors.New("the code does not match, try again")

	nowFunc = time.Now // mockable
)

func (cli *commandLine) totpSecretCmd() *cobra.Command {
	var issuer, account string
	var noConfirm bool

	cmd := &cobra.Command{
		Use:   "totp-secret",
		Short: "Generate the TOTP secret that guards the admin login",
		Long: `Generate a new TOTP secret and print the otpauth:// URI to enroll it in an authenticator app.
Unless --no-confirm is given, a code from the app is asked for to make sure the enrollment worked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, uri, err := auth.GenerateSecret(issuer, account)
			if err != nil {
				return err
			}
			cli.printf("secret : %s\nuri    : %s\n", secret, uri)

			if !noConfirm {
				if err := cli.confirmSecret(secret); err != nil {
					return err
				}
			}
			cli.printf("\nset TOTP_SECRET=%s in the environment (prefixed with the env, eg. PROD_TOTP_SECRET)\n", secret)
			return nil
		},
	}
	cmd.Flags().StringVar(&issuer, "issuer", cli.conf.TOTP.Issuer, "issuer shown by the authenticator app")
	cmd.Flags().StringVar(&account, "account", cli.conf.TOTP.Account, "account shown by the authenticator app")
	cmd.Flags().BoolVar(&noConfirm, "no-confirm", false, "skip asking for a code")
	return cmd
}

func (cli *commandLine) confirmSecret(secret string) error {
	code, err := cli.prompt("\nEnter the code shown by the app: ")
	if err != nil {
		return err
	}
	authenticator, err := auth.NewAuthenticator(secret)
	if err != nil {
		return err
	}
	if err := authenticator.Verify(code, nowFunc()); err != nil {
		return errCodeMismatch
	}
	cli.printf("code confirmed\n")
	return nil
}
