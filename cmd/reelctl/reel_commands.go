package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/maheshrc27/reelflow/internal/lifecycle"
	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/maheshrc27/reelflow/internal/transfer"
	"github.com/spf13/cobra"
)

func newReelCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newListCommand(ctx),
		newShowCommand(ctx),
		newGenerateCommand(ctx),
		newTransitionCommand(ctx, "approve", "Approve a pending reel and schedule it", "approve"),
		newTransitionCommand(ctx, "reject", "Reject a reel and drop its schedule", "reject"),
		newTransitionCommand(ctx, "schedule", "Book the next free slot for an approved reel", "schedule"),
		newTransitionCommand(ctx, "unschedule", "Remove the scheduled post of a reel", "unschedule"),
		newTransitionCommand(ctx, "publish", "Publish a reel whose scheduled post is due", "publish"),
		newTransitionCommand(ctx, "publish-now", "Publish an approved reel immediately", "publish-now"),
		newRescheduleCommand(ctx),
	}
}

func parseReelID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid reel id %q", arg)
	}
	return id, nil
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reels",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/reels?limit=%d", limit)
			if status != "" {
				path += "&status=" + status
			}

			var reels []models.ReelDetail
			if err := ctx.call(cmd.Context(), http.MethodGet, path, nil, &reels, false); err != nil {
				return err
			}
			if len(reels) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No reels")
				return nil
			}

			rows := make([][]string, 0, len(reels))
			for _, r := range reels {
				scheduled := "-"
				if r.Scheduled != nil {
					scheduled = r.Scheduled.ScheduledTime.Local().Format("2006-01-02 15:04")
				}
				rows = append(rows, []string{
					strconv.FormatInt(r.Reel.ID, 10),
					r.Reel.Status,
					r.Reel.Theme,
					fmt.Sprintf("%.2f", r.Reel.QualityScore),
					scheduled,
					truncate(r.QuoteText, 48),
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Status", "Theme", "Quality", "Scheduled", "Quote"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (pending, approved, rejected, published)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of reels")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <reel-id>",
		Short: "Show a reel with its assets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReelID(args[0])
			if err != nil {
				return err
			}

			var r models.ReelDetail
			if err := ctx.call(cmd.Context(), http.MethodGet, fmt.Sprintf("/api/reels/%d", id), nil, &r, false); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Reel #%d (%s)\n", r.Reel.ID, r.Reel.Status)
			fmt.Fprintf(out, "Theme:    %s\n", r.Reel.Theme)
			fmt.Fprintf(out, "Quality:  %.2f\n", r.Reel.QualityScore)
			fmt.Fprintf(out, "Video:    %s\n", r.VideoFilename)
			fmt.Fprintf(out, "Music:    %s\n", r.MusicFilename)
			fmt.Fprintf(out, "Quote:    %s - %s\n", r.QuoteText, r.QuoteAuthor)
			fmt.Fprintf(out, "Output:   %s\n", r.Reel.OutputPath)
			if r.Scheduled != nil {
				fmt.Fprintf(out, "Schedule: %s (%s, %d retries)\n", r.Scheduled.ScheduledTime.Local().Format("2006-01-02 15:04"), r.Scheduled.Status, r.Scheduled.RetryCount)
			}
			fmt.Fprintf(out, "\n%s\n", r.Reel.Caption)
			return nil
		},
	}
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var count int
	var theme string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render new reels for review",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp transfer.GenerateResponse
			req := transfer.GenerateRequest{Count: count, Theme: theme}
			if err := ctx.call(cmd.Context(), http.MethodPost, "/api/reels/generate", req, &resp, false); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Generated %d of %d reels", resp.Generated, resp.Requested)
			if len(resp.ReelIDs) > 0 {
				ids := make([]string, 0, len(resp.ReelIDs))
				for _, id := range resp.ReelIDs {
					ids = append(ids, "#"+strconv.FormatInt(id, 10))
				}
				fmt.Fprintf(cmd.OutOrStdout(), ": %s", strings.Join(ids, ", "))
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of reels to render")
	cmd.Flags().StringVarP(&theme, "theme", "t", "", "Theme to render")
	return cmd
}

func newTransitionCommand(ctx *commandContext, use, short, action string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <reel-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReelID(args[0])
			if err != nil {
				return err
			}

			var result lifecycle.Result
			path := fmt.Sprintf("/api/reels/%d/%s", id, action)
			if err := ctx.call(cmd.Context(), http.MethodPost, path, nil, &result, true); err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}
}

func newRescheduleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reschedule <reel-id> <YYYY-MM-DD HH:MM>",
		Short: "Move a reel to a specific time in the schedule timezone",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReelID(args[0])
			if err != nil {
				return err
			}

			var result lifecycle.Result
			req := transfer.RescheduleRequest{At: strings.Join(args[1:], " ")}
			path := fmt.Sprintf("/api/reels/%d/reschedule", id)
			if err := ctx.call(cmd.Context(), http.MethodPost, path, req, &result, true); err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}
}

func printResult(cmd *cobra.Command, result lifecycle.Result) error {
	msg := result.Message
	if msg == "" && result.Reel != nil {
		msg = fmt.Sprintf("reel %d is %s", result.Reel.ID, result.Reel.Status)
	}
	if result.Scheduled != nil {
		msg += fmt.Sprintf(" [post %s at %s]", result.Scheduled.Status, result.Scheduled.ScheduledTime.Local().Format("2006-01-02 15:04"))
	}

	if !result.OK() {
		return fmt.Errorf("%s: %s", result.Outcome, msg)
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
