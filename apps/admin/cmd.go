package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/roster"
	"github.com/trezcool/roster/core/schedule"
)

var readPasswordFunc = term.ReadPassword // mockable

type commandLine struct {
	conf     *core.Config
	svc      schedule.Service
	importer *roster.Importer
	out      io.Writer
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         cli.conf.AppName + " admin tools",
		Long:          "Manage the class schedule roster from the command line: TOTP secret, Excel import & export, backups and history.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	root.AddCommand(
		cli.totpSecretCmd(),
		cli.importCmd(),
		cli.exportCmd(),
		cli.backupCmd(),
		cli.restoreCmd(),
		cli.diffCmd(),
		cli.undoCmd(),
		cli.redoCmd(),
	)
	return root
}

// run executes the command line; args include the program name.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func (cli *commandLine) printf(format string, a ...interface{}) {
	_, _ = fmt.Fprintf(cli.out, format, a...)
}

// prompt reads a line without echoing it.
func (cli *commandLine) prompt(label string) (string, error) {
	cli.printf("%s", label)
	b, err := readPasswordFunc(int(os.Stdin.Fd()))
	cli.printf("\n")
	if err != nil {
		return "", err
	}
	return core.CleanString(string(b)), nil
}
