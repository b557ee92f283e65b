package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/marcus/sutra/internal/output"
	"github.com/marcus/sutra/internal/progress"
	"github.com/spf13/cobra"
)

var dayCmd = &cobra.Command{
	Use:     "day",
	Aliases: []string{"d"},
	Short:   "Check in on a day of the journey",
	GroupID: "journey",
}

// dayView is the --json shape of one day
type dayView struct {
	progress.DayRecord
	Week     int        `json:"week"`
	DayIndex int        `json:"dayIndex"`
	Date     *time.Time `json:"date,omitempty"`
}

func newDayView(st progress.State, day int) dayView {
	v := dayView{
		DayRecord: st.Day(day),
		Week:      progress.WeekForDay(day),
		DayIndex:  progress.DayIndexInWeek(day),
	}
	if d, ok := progress.DateForDay(st.Settings, day); ok {
		v.Date = &d
	}
	return v
}

// dayArg resolves the optional day argument, defaulting to today
func dayArg(s *session, args []string) (int, error) {
	if len(args) == 0 {
		return s.today(), nil
	}
	return parseDay(args[0])
}

func printDay(cmd *cobra.Command, s *session, st progress.State, day int) error {
	v := newDayView(st, day)
	if jsonOutput(cmd) {
		return output.JSON(v)
	}
	fmt.Println(output.FormatDayLine(v.DayRecord, v.Date, s.locale))
	if note := strings.TrimSpace(v.Note); note != "" {
		fmt.Println()
		fmt.Println(output.IndentString(note, 2))
	}
	return nil
}

var dayShowCmd = &cobra.Command{
	Use:   "show [day]",
	Short: "Show a day (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		day, err := dayArg(s, args)
		if err != nil {
			return err
		}
		return printDay(cmd, s, s.journey.State(), day)
	},
}

var dayDoneCmd = &cobra.Command{
	Use:   "done [day]",
	Short: "Mark a day as practiced (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		day, err := dayArg(s, args)
		if err != nil {
			return err
		}
		undo, _ := cmd.Flags().GetBool("undo")

		st := s.journey.State()
		if st.Day(day).DidPractice == !undo {
			return printDay(cmd, s, st, day)
		}
		st, err = s.dispatch(cmd.Context(), progress.TogglePractice{Day: day})
		if err != nil {
			return err
		}
		if !jsonOutput(cmd) {
			if undo {
				output.Success("Day %d unmarked", day)
			} else {
				output.Success("Day %d practiced", day)
			}
		}
		return printDay(cmd, s, st, day)
	},
}

var dayNoteCmd = &cobra.Command{
	Use:   "note [text...]",
	Short: "Write the note for a day",
	Long: `Write the note for a day. --day picks the day, otherwise today.

Every argument is note text, so "sutra day note 5 minutes sitting" saves
"5 minutes sitting" for today. The text may also come from stdin when it is
"-", or from an editor prompt. --clear removes the note.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		day := s.today()
		if cmd.Flags().Changed("day") {
			v, _ := cmd.Flags().GetString("day")
			if day, err = parseDay(v); err != nil {
				return err
			}
		}

		var note string
		if clear, _ := cmd.Flags().GetBool("clear"); !clear {
			note, err = readText(fmt.Sprintf("Day %d note", day), s.journey.State().Day(day).Note, args)
			if err != nil {
				return err
			}
		}

		st, err := s.dispatch(cmd.Context(), progress.UpdateDayNote{Day: day, Note: note})
		if err != nil {
			return err
		}
		if !jsonOutput(cmd) {
			output.Success("Saved note for day %d", day)
		}
		return printDay(cmd, s, st, day)
	},
}

func init() {
	dayDoneCmd.Flags().Bool("undo", false, "Mark the day as not practiced")
	dayNoteCmd.Flags().Bool("clear", false, "Remove the note")
	dayNoteCmd.Flags().StringP("day", "d", "", "Day to write the note for (default today)")

	dayCmd.AddCommand(dayShowCmd, dayDoneCmd, dayNoteCmd)
	rootCmd.AddCommand(dayCmd)
}
