package main

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newPrepareCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var model string
	var language string
	var wait bool
	var all bool

	cmd := &cobra.Command{
		Use:   "prepare [video-id]",
		Short: "Prepare subtitles for a video (or all unprepared videos with --all)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()

			if all {
				if len(args) > 0 {
					return errors.New("--all does not take a video id")
				}
				var resp struct {
					TaskIDs []string `json:"task_ids"`
					Count   int      `json:"count"`
				}
				if err := client.post(cmd.Context(), "/prepare/batch", nil, &resp); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Started preparation for %d video(s)\n", resp.Count)
				for _, taskID := range resp.TaskIDs {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", taskID)
				}
				return nil
			}

			if len(args) != 1 {
				return errors.New("a video id is required unless --all is given")
			}
			payload := map[string]any{
				"force_regenerate":   force,
				"asr_model":          model,
				"preferred_language": language,
			}
			var resp struct {
				TaskID  string `json:"task_id"`
				Started bool   `json:"started"`
				Message string `json:"message"`
			}
			path := "/videos/" + url.PathEscape(args[0]) + "/prepare"
			if err := client.post(cmd.Context(), path, payload, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (task %s)\n", resp.Message, resp.TaskID)
			if !wait {
				return nil
			}

			task, err := client.pollTask(cmd.Context(), resp.TaskID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Preparation %s: %s\n", task.Status, task.Detail)
			if task.Status == "failed" {
				return errors.New("subtitle preparation failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Regenerate even when a subtitle already exists")
	cmd.Flags().StringVar(&model, "model", "", "ASR model override")
	cmd.Flags().StringVar(&language, "language", "", "Preferred subtitle language")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the task to finish")
	cmd.Flags().BoolVar(&all, "all", false, "Prepare every video without a subtitle")
	return cmd
}

func newTaskCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "task <task-id>",
		Short: "Show the status of a background task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var task taskView
			if err := ctx.client().get(cmd.Context(), "/tasks/"+url.PathEscape(args[0]), &task); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s: %s\n", task.ID, task.Status)
			if task.Detail != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", task.Detail)
			}
			return nil
		},
	}
}
