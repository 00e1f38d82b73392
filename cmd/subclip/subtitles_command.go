package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

type subtitlesResponse struct {
	VideoID      string `json:"video_id"`
	SubtitlePath string `json:"subtitle_path"`
	Source       string `json:"source"`
	Language     string `json:"language"`
	Encoding     string `json:"encoding"`
	Count        int    `json:"count"`
	Cues         []struct {
		Index int    `json:"index"`
		Start string `json:"start"`
		End   string `json:"end"`
		Text  string `json:"text"`
	} `json:"cues"`
}

func newSubtitlesCommand(ctx *commandContext) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "subtitles <video-id>",
		Short: "Show a video's prepared subtitle transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp subtitlesResponse
			path := "/videos/" + url.PathEscape(args[0]) + "/subtitles"
			if err := ctx.client().get(cmd.Context(), path, &resp); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Subtitle: %s (source %s, language %s, encoding %s)\n",
				resp.SubtitlePath, resp.Source, resp.Language, resp.Encoding)
			fmt.Fprintf(cmd.OutOrStdout(), "Cues: %d\n\n", resp.Count)

			cues := resp.Cues
			const preview = 10
			if !full && len(cues) > preview {
				cues = cues[:preview]
			}
			for _, cue := range cues {
				fmt.Fprintf(cmd.OutOrStdout(), "%4d  %s --> %s\n      %s\n", cue.Index, cue.Start, cue.End, cue.Text)
			}
			if !full && resp.Count > preview {
				fmt.Fprintf(cmd.OutOrStdout(), "... %d more (use --full)\n", resp.Count-preview)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Print every cue")
	return cmd
}
