package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/maheshrc27/reelflow/internal/scheduling"
	"github.com/maheshrc27/reelflow/internal/transfer"
	"github.com/spf13/cobra"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show review queue counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status models.QueueStatus
			if err := ctx.call(cmd.Context(), http.MethodGet, "/api/queue", nil, &status, false); err != nil {
				return err
			}

			rows := [][]string{
				{"Pending", strconv.Itoa(status.Pending)},
				{"Approved", strconv.Itoa(status.Approved)},
				{"Rejected", strconv.Itoa(status.Rejected)},
				{"Published", strconv.Itoa(status.Published)},
				{"Scheduled posts", strconv.Itoa(status.ScheduledPosts)},
				{"Queue target", strconv.Itoa(status.Target)},
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func newCalendarCommand(ctx *commandContext) *cobra.Command {
	var days int

	calendarCmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show upcoming scheduled posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var calendar []models.CalendarDay
			if err := ctx.call(cmd.Context(), http.MethodGet, fmt.Sprintf("/api/calendar?days=%d", days), nil, &calendar, false); err != nil {
				return err
			}
			if len(calendar) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Nothing scheduled in the next %d days\n", days)
				return nil
			}

			var rows [][]string
			for _, day := range calendar {
				for _, item := range day.Items {
					rows = append(rows, []string{
						day.Date,
						item.ScheduledTime.Local().Format("15:04"),
						"#" + strconv.FormatInt(item.ReelID, 10),
						item.Status,
						item.Theme,
						truncate(item.QuoteText, 40),
					})
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"Date", "Time", "Reel", "Status", "Theme", "Quote"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	calendarCmd.Flags().IntVarP(&days, "days", "d", 7, "Days to look ahead")

	calendarCmd.AddCommand(newCalendarPlanCommand(ctx))
	calendarCmd.AddCommand(newCalendarEntriesCommand(ctx))
	calendarCmd.AddCommand(newCalendarAttachCommand(ctx))
	return calendarCmd
}

func newCalendarPlanCommand(ctx *commandContext) *cobra.Command {
	var theme string

	cmd := &cobra.Command{
		Use:   "plan <YYYY-MM-DD> <HH:MM>",
		Short: "Plan a calendar entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var entry models.CalendarEntry
			req := transfer.CalendarEntryCreation{Date: args[0], TimeSlot: args[1], Theme: theme}
			if err := ctx.call(cmd.Context(), http.MethodPost, "/api/calendar/entries", req, &entry, false); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Planned entry %d for %s %s\n", entry.ID, args[0], entry.TimeSlot)
			return nil
		},
	}
	cmd.Flags().StringVarP(&theme, "theme", "t", "", "Theme of the planned reel")
	return cmd
}

func newCalendarEntriesCommand(ctx *commandContext) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List planned calendar entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/calendar/entries"
			var params []string
			if from != "" {
				params = append(params, "from="+from)
			}
			if to != "" {
				params = append(params, "to="+to)
			}
			if len(params) > 0 {
				path += "?" + strings.Join(params, "&")
			}

			var entries []models.CalendarEntry
			if err := ctx.call(cmd.Context(), http.MethodGet, path, nil, &entries, false); err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No calendar entries")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				reel := "-"
				if e.ReelID != nil {
					reel = "#" + strconv.FormatInt(*e.ReelID, 10)
				}
				rows = append(rows, []string{
					strconv.FormatInt(e.ID, 10),
					e.EntryDate.Local().Format("2006-01-02 15:04"),
					e.Theme,
					reel,
					e.Status,
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "When", "Theme", "Reel", "Status"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last date (YYYY-MM-DD)")
	return cmd
}

func newCalendarAttachCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <entry-id> <reel-id>",
		Short: "Attach a reel to a calendar entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entryID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entry id %q", args[0])
			}
			reelID, err := parseReelID(args[1])
			if err != nil {
				return err
			}

			var entry models.CalendarEntry
			path := fmt.Sprintf("/api/calendar/entries/%d/attach", entryID)
			if err := ctx.call(cmd.Context(), http.MethodPost, path, transfer.CalendarAttach{ReelID: reelID}, &entry, false); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Entry %d now holds reel #%d (%s)\n", entry.ID, reelID, entry.Status)
			return nil
		},
	}
}

func newSlotsCommand(ctx *commandContext) *cobra.Command {
	slotsCmd := &cobra.Command{
		Use:   "slots",
		Short: "Show the weekly posting slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			var view scheduleView
			if err := ctx.call(cmd.Context(), http.MethodGet, "/api/schedule", nil, &view, false); err != nil {
				return err
			}
			printSlots(cmd, view)
			return nil
		},
	}
	slotsCmd.AddCommand(newSlotsSetCommand(ctx))
	return slotsCmd
}

type scheduleView struct {
	Timezone string   `json:"timezone"`
	Labels   []string `json:"labels"`
}

func printSlots(cmd *cobra.Command, view scheduleView) {
	if len(view.Labels) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No posting slots configured (%s)\n", view.Timezone)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Posting slots (%s):\n", view.Timezone)
	for _, label := range view.Labels {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", label)
	}
}

func newSlotsSetCommand(ctx *commandContext) *cobra.Command {
	var timezone string

	cmd := &cobra.Command{
		Use:   "set <day@HH:MM>...",
		Short: "Replace the weekly posting slots, e.g. tue@18:00 fri@20:30",
		RunE: func(cmd *cobra.Command, args []string) error {
			update := transfer.ScheduleUpdate{Timezone: timezone, PostTimes: []transfer.PostTime{}}
			for _, arg := range args {
				day, clock, ok := strings.Cut(arg, "@")
				if !ok {
					return fmt.Errorf("invalid slot %q, expected day@HH:MM", arg)
				}
				if _, err := scheduling.ParseSlot(day, clock); err != nil {
					return err
				}
				update.PostTimes = append(update.PostTimes, transfer.PostTime{Day: day, Time: clock})
			}

			if update.Timezone == "" {
				var current scheduleView
				if err := ctx.call(cmd.Context(), http.MethodGet, "/api/schedule", nil, &current, false); err != nil {
					return err
				}
				update.Timezone = current.Timezone
			}

			var view scheduleView
			if err := ctx.call(cmd.Context(), http.MethodPut, "/api/schedule", update, &view, false); err != nil {
				return err
			}
			printSlots(cmd, view)
			return nil
		},
	}
	cmd.Flags().StringVar(&timezone, "tz", "", "IANA timezone of the slots (default: keep current)")
	return cmd
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "Show recurring jobs and their next run",
		RunE: func(cmd *cobra.Command, args []string) error {
			var jobs []scheduling.JobInfo
			if err := ctx.call(cmd.Context(), http.MethodGet, "/api/jobs", nil, &jobs, false); err != nil {
				return err
			}

			rows := make([][]string, 0, len(jobs))
			for _, j := range jobs {
				rows = append(rows, []string{j.Name, formatTime(j.Next), formatTime(j.Prev)})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Job", "Next run", "Last run"}, rows, nil))
			return nil
		},
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
