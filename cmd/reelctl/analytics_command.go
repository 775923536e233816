package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/spf13/cobra"
)

func newAnalyticsCommand(ctx *commandContext) *cobra.Command {
	var days, top int

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show engagement of recently published reels",
		RunE: func(cmd *cobra.Command, args []string) error {
			var report models.AnalyticsReport
			path := fmt.Sprintf("/api/analytics?days=%d&top=%d", days, top)
			if err := ctx.call(cmd.Context(), http.MethodGet, path, nil, &report, false); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Posts: %d (%d measured) in the last %d days\n", report.Posts, report.Measured, days)
			if report.Measured == 0 {
				fmt.Fprintln(out, "No metrics collected yet")
				return nil
			}
			fmt.Fprintf(out, "Likes: %d  Comments: %d  Shares: %d  Saves: %d  Reach: %d\n",
				report.Likes, report.Comments, report.Shares, report.Saves, report.Reach)
			fmt.Fprintf(out, "Average engagement: %.2f%%\n", report.AvgEngagement*100)
			if report.BestTheme != "" {
				fmt.Fprintf(out, "Best theme: %s\n", report.BestTheme)
			}

			var rows [][]string
			for _, p := range report.Top {
				rows = append(rows, []string{
					"#" + strconv.FormatInt(p.ReelID, 10),
					p.PublishedAt.Local().Format("2006-01-02"),
					p.Theme,
					strconv.Itoa(p.Metrics.Likes),
					strconv.Itoa(p.Metrics.Reach),
					fmt.Sprintf("%.2f%%", p.Metrics.EngagementRate*100),
					truncate(p.Caption, 40),
				})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Reel", "Published", "Theme", "Likes", "Reach", "Engagement", "Caption"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 30, "Days to look back")
	cmd.Flags().IntVar(&top, "top", 5, "Number of top posts to list")
	return cmd
}
