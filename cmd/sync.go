package cmd

import (
	"fmt"

	"github.com/marcus/sutra/internal/output"
	"github.com/marcus/sutra/internal/stats"
	"github.com/marcus/sutra/internal/syncclient"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror your journey with the server",
	Long: `Mirror your journey with the server.

By default the server copy wins and replaces the journey on this machine.
--push uploads the journey on this machine instead, replacing the server copy.`,
	GroupID: "account",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireClient(cmd); err != nil {
			return err
		}
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()
		if s.client == nil {
			return fmt.Errorf("%w: run 'sutra auth login' again", syncclient.ErrUnauthorized)
		}

		if push, _ := cmd.Flags().GetBool("push"); push {
			if _, err := s.client.PutJourney(cmd.Context(), syncclient.FullPatch(s.journey.State())); err != nil {
				return fmt.Errorf("push journey: %w", err)
			}
		} else if err := s.journey.Refresh(cmd.Context()); err != nil {
			return fmt.Errorf("pull journey: %w", err)
		}

		status := s.journey.Status()
		sum := stats.Compute(s.journey.State())
		if jsonOutput(cmd) {
			return output.JSON(struct {
				Online       bool   `json:"online"`
				LastError    string `json:"lastError,omitempty"`
				DaysRecorded int    `json:"daysRecorded"`
			}{status.Online, status.LastError, sum.DaysWithAnyData})
		}
		output.Success("Journey in sync (%d days recorded)", sum.DaysWithAnyData)
		fmt.Println(output.FormatSubscription(s.gate.View(), s.locale))
		return nil
	},
}

func init() {
	syncCmd.Flags().Bool("push", false, "Replace the server copy with the journey on this machine")
	rootCmd.AddCommand(syncCmd)
}
