package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/roster"
)

func (cli *commandLine) importCmd() *cobra.Command {
	var appendRows bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import the roster from an Excel file",
		Long:  "Import the roster from an Excel (.xlsx) file. The current roster is replaced unless --append is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			nes, err := cli.importer.Import(f)
			if err != nil {
				var vErr *core.ValidationError
				if errors.As(err, &vErr) && len(vErr.Fields) > 0 {
					for _, fe := range vErr.Fields {
						cli.printf("  %s: %s\n", fe.Field, fe.Error)
					}
					return errors.New("invalid roster file")
				}
				return err
			}

			ctx := cmd.Context()
			mode := "replace"
			if appendRows {
				mode = "append"
				_, err = cli.svc.Append(ctx, nes)
			} else {
				_, err = cli.svc.Replace(ctx, nes)
			}
			if err != nil {
				return err
			}
			cli.printf("%s: imported %d entries\n", mode, len(nes))
			return nil
		},
	}
	cmd.Flags().BoolVar(&appendRows, "append", false, "append to the current roster instead of replacing it")
	return cmd
}

func (cli *commandLine) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE",
		Short: "Export the roster to an Excel file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := cli.svc.Query(cmd.Context(), nil, nil)
			if err != nil {
				return err
			}

			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err = roster.Export(f, entries); err != nil {
				_ = f.Close()
				return err
			}
			if err = f.Close(); err != nil {
				return err
			}
			cli.printf("exported %d entries to %s\n", len(entries), args[0])
			return nil
		},
	}
}
