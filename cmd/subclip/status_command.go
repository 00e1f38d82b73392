package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type statusView struct {
	Running      bool   `json:"running"`
	PID          int    `json:"pid"`
	DatabasePath string `json:"database_path"`
	LockFilePath string `json:"lock_file_path"`
	RunningTasks int    `json:"running_tasks"`
	Dependencies []struct {
		Name      string `json:"name"`
		Command   string `json:"command"`
		Optional  bool   `json:"optional"`
		Available bool   `json:"available"`
		Detail    string `json:"detail"`
	} `json:"dependencies"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and tool availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var status statusView
			if err := ctx.client().get(cmd.Context(), "/status", &status); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Daemon running: %s (pid %d)\n", yesNo(status.Running), status.PID)
			fmt.Fprintf(cmd.OutOrStdout(), "Database: %s\n", status.DatabasePath)
			fmt.Fprintf(cmd.OutOrStdout(), "Lock file: %s\n", status.LockFilePath)
			fmt.Fprintf(cmd.OutOrStdout(), "Running tasks: %d\n\n", status.RunningTasks)

			rows := make([][]string, 0, len(status.Dependencies))
			for _, dep := range status.Dependencies {
				detail := dep.Detail
				if detail == "" && dep.Available {
					detail = "ok"
				}
				rows = append(rows, []string{
					dep.Name, dep.Command, yesNo(!dep.Optional), yesNo(dep.Available), detail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(),
				renderTable([]string{"Tool", "Command", "Required", "Available", "Detail"}, rows))
			return nil
		},
	}
}
