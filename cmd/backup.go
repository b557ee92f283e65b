package cmd

import (
	"fmt"
	"os"

	"github.com/marcus/sutra/internal/output"
	"github.com/marcus/sutra/internal/progress"
	"github.com/marcus/sutra/internal/stats"
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:     "reset",
	Short:   "Erase all progress, notes and settings",
	GroupID: "journey",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		ok, err := confirm("Erase your whole journey?",
			"Every check-in, note, reflection and the start date will be removed. Export first if you want a backup.", yes)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Nothing changed.")
			return nil
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		if _, err := s.dispatch(cmd.Context(), progress.ResetAll{}); err != nil {
			return err
		}
		output.Success("Journey reset")
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:     "export [file]",
	Short:   "Write a backup of your journey (stdout by default)",
	GroupID: "journey",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		data, err := progress.Export(s.journey.State())
		if err != nil {
			return err
		}
		if len(args) == 0 || args[0] == "-" {
			_, err = os.Stdout.Write(append(data, '\n'))
			return err
		}
		if err := os.WriteFile(args[0], append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("write backup: %w", err)
		}
		output.Success("Exported journey to %s", args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace your journey with a backup",
	Long: `Replace your journey with a backup written by 'sutra export'.

The file is checked in full before anything changes. Importing replaces
every check-in, note, reflection and the start date.`,
	GroupID: "journey",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read backup: %w", err)
		}
		imported, err := progress.Import(data)
		if err != nil {
			return err
		}

		sum := stats.Compute(imported)
		yes, _ := cmd.Flags().GetBool("yes")
		ok, err := confirm("Replace your journey with this backup?",
			fmt.Sprintf("The backup has %d practiced days, %d days with notes and %d completed weeks. Your current journey will be overwritten.",
				sum.DaysPracticed, sum.DaysWithAnyData, sum.CompletedWeeks), yes)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Nothing changed.")
			return nil
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		if _, err := s.dispatch(cmd.Context(), progress.Hydrate{State: imported}); err != nil {
			return err
		}
		output.Success("Imported %s", args[0])
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	importCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(resetCmd, exportCmd, importCmd)
}
