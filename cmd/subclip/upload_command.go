package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var title string
	var description string
	var tags string
	var wait bool

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a video and start subtitle preparation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()
			var resp struct {
				Video  videoView `json:"video"`
				TaskID string    `json:"task_id"`
			}
			if err := client.upload(cmd.Context(), args[0], title, description, tags, &resp); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s as %s\n", args[0], resp.Video.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Preparation task: %s\n", resp.TaskID)
			if !wait {
				return nil
			}

			task, err := client.pollTask(cmd.Context(), resp.TaskID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Preparation %s: %s\n", task.Status, task.Detail)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Video title (defaults to the filename)")
	cmd.Flags().StringVar(&description, "description", "", "Video description")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated tags")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for subtitle preparation to finish")
	return cmd
}
