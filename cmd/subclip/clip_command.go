package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

type clipOutcome struct {
	Keyword      string `json:"keyword"`
	SubtitlePath string `json:"subtitle_path"`
	ClipsCreated int    `json:"clips_created"`
	Matches      []struct {
		Index       int    `json:"index"`
		Start       string `json:"start"`
		End         string `json:"end"`
		Highlighted string `json:"highlighted"`
		ClipPath    string `json:"clip_path"`
		Error       string `json:"error"`
	} `json:"matches"`
}

func newClipCommand(ctx *commandContext) *cobra.Command {
	var srtPath string
	var outputDir string
	var padding float64
	var caseSensitive bool

	cmd := &cobra.Command{
		Use:   "clip <video-id> <keyword>",
		Short: "Cut a clip for every subtitle cue containing the keyword",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{"keyword": args[1]}
			if srtPath != "" {
				payload["srt_path"] = srtPath
			}
			if outputDir != "" {
				payload["output_dir"] = outputDir
			}
			if cmd.Flags().Changed("padding") {
				payload["padding_seconds"] = padding
			}
			if caseSensitive {
				payload["case_sensitive"] = true
			}
			var outcome clipOutcome
			path := "/videos/" + url.PathEscape(args[0]) + "/clips"
			if err := ctx.client().post(cmd.Context(), path, payload, &outcome); err != nil {
				return err
			}

			if len(outcome.Matches) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No subtitle cues contain %q.\n", outcome.Keyword)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d match(es), %d clip(s) created from %s\n\n",
				len(outcome.Matches), outcome.ClipsCreated, outcome.SubtitlePath)
			for _, match := range outcome.Matches {
				fmt.Fprintf(cmd.OutOrStdout(), "%4d  %s --> %s\n      %s\n", match.Index, match.Start, match.End, match.Highlighted)
				if match.Error != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "      clip failed: %s\n", match.Error)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "      clip: %s\n", match.ClipPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&srtPath, "srt", "", "Subtitle file to search instead of the prepared transcript")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for the produced clips")
	cmd.Flags().Float64Var(&padding, "padding", 0, "Seconds of padding around each matched cue")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "Match the keyword exactly")
	return cmd
}
