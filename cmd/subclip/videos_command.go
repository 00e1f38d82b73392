package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newVideosCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "videos",
		Short: "List uploaded videos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp videoListResponse
			if err := ctx.client().get(cmd.Context(), "/videos", &resp); err != nil {
				return err
			}
			if resp.Total == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No videos uploaded yet.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), videoTable(resp.Videos))
			return nil
		},
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <video-id>",
		Short: "Show one video's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var video videoView
			if err := ctx.client().get(cmd.Context(), "/videos/"+url.PathEscape(args[0]), &video); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), videoDetails(video))
			return nil
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <video-id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a video and its artifacts",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.client().delete(cmd.Context(), "/videos/"+url.PathEscape(args[0]), nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search videos by title, description, filename, or tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp searchResponse
			if err := ctx.client().get(cmd.Context(), "/search?q="+url.QueryEscape(args[0]), &resp); err != nil {
				return err
			}
			if resp.Total == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No videos match %q.\n", args[0])
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), videoTable(resp.Results))
			return nil
		},
	}
}
