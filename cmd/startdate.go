package cmd

import (
	"fmt"
	"time"

	"github.com/marcus/sutra/internal/datefmt"
	"github.com/marcus/sutra/internal/dateparse"
	"github.com/marcus/sutra/internal/output"
	"github.com/marcus/sutra/internal/progress"
	"github.com/spf13/cobra"
)

var startDateCmd = &cobra.Command{
	Use:   "start-date [date]",
	Short: "Show or set the day your journey began",
	Long: `Show or set the day your journey began. Day 1 falls on the start date.

Accepted dates:
  2025-01-06             an exact date
  today, yesterday       keywords
  -10d, +1w              days or weeks from today
  monday, last-monday    the next or previous weekday
  day:12                 make today day 12 of the journey`,
	GroupID: "journey",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		st := s.journey.State()
		clear, _ := cmd.Flags().GetBool("clear")
		if len(args) == 1 || clear {
			var date string
			if !clear {
				date, err = dateparse.ParseStartDate(args[0])
				if err != nil {
					return invalidInput("%v", err)
				}
			}
			st, err = s.dispatch(cmd.Context(), progress.SetStartDate{Date: date})
			if err != nil {
				return err
			}
		}

		if jsonOutput(cmd) {
			return output.JSON(st.Settings)
		}
		if st.Settings.StartDate == "" {
			fmt.Println("No start date set. Days are not tied to the calendar.")
			return nil
		}
		start, _ := progress.ParseStartDate(st.Settings.StartDate)
		fmt.Printf("Journey started %s\n", datefmt.Format(start, s.locale, datefmt.Long))
		if day, ok := progress.CurrentDay(st.Settings, time.Now()); ok {
			fmt.Printf("Today is day %d, week %d\n", day, progress.WeekForDay(day))
		}
		return nil
	},
}

func init() {
	startDateCmd.Flags().Bool("clear", false, "Remove the start date")
	rootCmd.AddCommand(startDateCmd)
}
