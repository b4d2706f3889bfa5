package main

import (
	"time"

	"github.com/spf13/cobra"
)

func (cli *commandLine) backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Copy the current roster to the backup slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := cli.svc.Backup(cmd.Context())
			if err != nil {
				return err
			}
			cli.printf("backed up %d entries at %s\n", info.Count, info.SavedAt.Format(time.RFC3339))
			return nil
		},
	}
}

func (cli *commandLine) restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Replace the current roster with the backup (undoable)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := cli.svc.Restore(cmd.Context())
			if err != nil {
				return err
			}
			cli.printf("restored %d entries\n", len(entries))
			return nil
		},
	}
}

func (cli *commandLine) diffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Show what a restore would change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			diff, err := cli.svc.BackupDiff(cmd.Context())
			if err != nil {
				return err
			}
			if diff == "" {
				cli.printf("nothing to restore: the roster matches the backup\n")
				return nil
			}
			cli.printf("%s", diff)
			return nil
		},
	}
}

func (cli *commandLine) undoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Undo the last change to the roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := cli.svc.Undo(cmd.Context())
			if err != nil {
				return err
			}
			cli.printf("undone: %d entries\n", len(entries))
			return nil
		},
	}
}

func (cli *commandLine) redoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redo",
		Short: "Redo the last undone change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := cli.svc.Redo(cmd.Context())
			if err != nil {
				return err
			}
			cli.printf("redone: %d entries\n", len(entries))
			return nil
		},
	}
}
