package cmd

import (
	"fmt"

	"github.com/marcus/sutra/internal/output"
	"github.com/marcus/sutra/internal/stats"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:     "journal",
	Short:   "Read your notes and weekly reflections",
	GroupID: "insight",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		st := s.journey.State()
		days := stats.JournalDays(st)
		weeks := stats.JournalWeeks(st)

		if jsonOutput(cmd) {
			if days == nil {
				days = []stats.DayEntry{}
			}
			if weeks == nil {
				weeks = []stats.WeekEntry{}
			}
			return output.JSON(struct {
				Days  []stats.DayEntry  `json:"days"`
				Weeks []stats.WeekEntry `json:"weeks"`
			}{days, weeks})
		}

		md := output.JournalMarkdown(days, weeks, s.locale)
		if raw, _ := cmd.Flags().GetBool("raw"); raw {
			fmt.Print(md)
			return nil
		}
		width, _ := cmd.Flags().GetInt("width")
		rendered, err := output.RenderJournal(md, width)
		if err != nil {
			// fall back to the plain markdown
			fmt.Print(md)
			return nil
		}
		fmt.Print(rendered)
		return nil
	},
}

func init() {
	journalCmd.Flags().Bool("raw", false, "Print markdown without rendering")
	journalCmd.Flags().Int("width", 0, "Wrap width (default: terminal width)")
	rootCmd.AddCommand(journalCmd)
}
