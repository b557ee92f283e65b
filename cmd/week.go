package cmd

import (
	"fmt"
	"strings"

	"github.com/marcus/sutra/internal/output"
	"github.com/marcus/sutra/internal/progress"
	"github.com/spf13/cobra"
)

var weekCmd = &cobra.Command{
	Use:     "week",
	Aliases: []string{"w"},
	Short:   "Reflect on a week of the journey",
	GroupID: "journey",
}

// weekView is the --json shape of one week
type weekView struct {
	progress.WeekRecord
	Days []dayView `json:"days"`
}

func weekArg(s *session, args []string) (int, error) {
	if len(args) == 0 {
		return progress.WeekForDay(s.today()), nil
	}
	return parseWeek(args[0])
}

func printWeek(cmd *cobra.Command, s *session, st progress.State, week int) error {
	first := progress.FirstDayOfWeek(week)
	v := weekView{WeekRecord: st.Week(week)}
	for d := first; d < first+progress.DaysPerWeek; d++ {
		v.Days = append(v.Days, newDayView(st, d))
	}
	if jsonOutput(cmd) {
		return output.JSON(v)
	}

	fmt.Println(output.FormatWeekLine(v.WeekRecord))
	fmt.Println()
	for _, d := range v.Days {
		fmt.Println("  " + output.FormatDayLine(d.DayRecord, d.Date, s.locale))
	}
	if r := strings.TrimSpace(v.ReflectionNote); r != "" {
		fmt.Print(output.SectionHeader("Reflection"))
		fmt.Println(output.IndentString(r, 2))
	}
	return nil
}

var weekShowCmd = &cobra.Command{
	Use:   "show [week]",
	Short: "Show a week (default this week)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		week, err := weekArg(s, args)
		if err != nil {
			return err
		}
		return printWeek(cmd, s, s.journey.State(), week)
	},
}

// newWeekToggleCmd builds one of the week flag toggles
func newWeekToggleCmd(use, short, done string, action func(week int) progress.Action) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [week]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			week, err := weekArg(s, args)
			if err != nil {
				return err
			}
			st, err := s.dispatch(cmd.Context(), action(week))
			if err != nil {
				return err
			}
			if !jsonOutput(cmd) {
				output.Success("Week %d %s", week, done)
			}
			return printWeek(cmd, s, st, week)
		},
	}
}

var weekReflectCmd = &cobra.Command{
	Use:   "reflect [text...]",
	Short: "Write the reflection for a week",
	Long: `Write the reflection for a week. --week picks the week, otherwise this week.

Every argument is reflection text. The text may also come from stdin when it
is "-", or from an editor prompt. --clear removes it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		week := progress.WeekForDay(s.today())
		if cmd.Flags().Changed("week") {
			v, _ := cmd.Flags().GetString("week")
			if week, err = parseWeek(v); err != nil {
				return err
			}
		}

		var text string
		if clear, _ := cmd.Flags().GetBool("clear"); !clear {
			text, err = readText(fmt.Sprintf("Week %d reflection", week), s.journey.State().Week(week).ReflectionNote, args)
			if err != nil {
				return err
			}
		}

		st, err := s.dispatch(cmd.Context(), progress.UpdateWeekReflection{Week: week, Note: text})
		if err != nil {
			return err
		}
		if !jsonOutput(cmd) {
			output.Success("Saved reflection for week %d", week)
		}
		return printWeek(cmd, s, st, week)
	},
}

func init() {
	weekReflectCmd.Flags().Bool("clear", false, "Remove the reflection")
	weekReflectCmd.Flags().StringP("week", "w", "", "Week to reflect on (default this week)")

	weekCmd.AddCommand(
		weekShowCmd,
		newWeekToggleCmd("complete", "Toggle a week as completed", "completion toggled",
			func(w int) progress.Action { return progress.ToggleWeekCompleted{Week: w} }),
		newWeekToggleCmd("enjoy", "Toggle a week as enjoyed (also bookmarks it)", "enjoyment toggled",
			func(w int) progress.Action { return progress.ToggleWeekEnjoyed{Week: w} }),
		newWeekToggleCmd("bookmark", "Toggle a week's bookmark", "bookmark toggled",
			func(w int) progress.Action { return progress.ToggleWeekBookmarked{Week: w} }),
		weekReflectCmd,
	)
	rootCmd.AddCommand(weekCmd)
}
