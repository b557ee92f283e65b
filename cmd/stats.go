package cmd

import (
	"fmt"

	"github.com/marcus/sutra/internal/output"
	"github.com/marcus/sutra/internal/progress"
	"github.com/marcus/sutra/internal/stats"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show journey progress and your practice streak",
	GroupID: "insight",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		st := s.journey.State()
		sum := stats.Compute(st)
		streak := stats.Streak(st.DayRecords, s.today())

		if jsonOutput(cmd) {
			return output.JSON(struct {
				stats.Summary
				Streak stats.StreakInfo `json:"streak"`
			}{sum, streak})
		}
		for _, line := range output.FormatSummary(sum, streak) {
			fmt.Println(line)
		}
		if s.client != nil {
			fmt.Println()
			fmt.Println("Sync       " + output.FormatSyncStatus(s.journey.Status()))
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:     "history",
	Short:   "List the most recent days you recorded",
	GroupID: "insight",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		limit, _ := cmd.Flags().GetInt("limit")
		items := stats.RecentHistory(s.journey.State().DayRecords, limit)
		if jsonOutput(cmd) {
			if items == nil {
				items = []stats.HistoryItem{}
			}
			return output.JSON(items)
		}
		if len(items) == 0 {
			fmt.Println("Nothing recorded yet. Try 'sutra day done'.")
			return nil
		}
		week := 0
		for _, item := range items {
			if w := progress.WeekForDay(item.DayNumber); w != week {
				week = w
				fmt.Print(output.SectionHeader(fmt.Sprintf("Week %d", w)))
			}
			fmt.Println("  " + output.FormatHistoryItem(item))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", stats.DefaultHistoryCount, "Number of days to show")
	rootCmd.AddCommand(statsCmd, historyCmd)
}
