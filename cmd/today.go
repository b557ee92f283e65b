package cmd

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/sutra/internal/tui/today"
	"github.com/spf13/cobra"
)

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Open the interactive day view",
	Long: `Open the interactive day view on today's entry.

Key bindings:
  ←/→ h/l        Previous / next day
  [ ]            Previous / next week
  t              Back to today
  space          Toggle practice
  n              Edit the day's note (ctrl+s saves, esc cancels)
  c e b          Toggle week completed / enjoyed / bookmarked
  r              Refresh
  ?              Toggle help
  q              Quit

While logged in, changes made on other devices and subscription upgrades
appear without restarting.`,
	GroupID: "journey",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		if s.client != nil {
			stop := s.startWatches(ctx)
			defer stop()
		}

		interval, _ := cmd.Flags().GetDuration("interval")
		if interval < 500*time.Millisecond {
			interval = today.DefaultRefreshInterval
		}

		var gate today.Gate
		if s.gate != nil {
			gate = s.gate
		}
		model := today.NewModel(s.journey, gate, s.locale)
		model.RefreshInterval = interval

		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running day view: %w", err)
		}
		return nil
	},
}

// startWatches mirrors server pushes of the journey and the subscription
// into the session until ctx ends. The returned func stops both watches.
func (s *session) startWatches(ctx context.Context) func() {
	var stops []func()

	if w, err := s.client.WatchJourney(ctx); err != nil {
		s.log.Warn("watch journey", "err", err)
	} else {
		stops = append(stops, w.Cancel)
		go func() {
			for snap := range w.Snapshots() {
				if !snap.Exists {
					continue
				}
				doc := snap.Data
				if err := s.journey.Apply(&doc); err != nil {
					s.log.Warn("apply pushed journey", "err", err)
				}
			}
			if err := w.Err(); err != nil {
				s.log.Warn("journey watch ended", "err", err)
			}
		}()
	}

	if w, err := s.client.WatchSubscription(ctx); err != nil {
		s.log.Warn("watch subscription", "err", err)
	} else {
		stops = append(stops, w.Cancel)
		go func() {
			for snap := range w.Snapshots() {
				if !snap.Exists {
					continue
				}
				resp := snap.Data
				if err := s.gate.Apply(&resp); err != nil {
					s.log.Warn("apply pushed subscription", "err", err)
				}
			}
		}()
	}

	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}

func init() {
	todayCmd.Flags().Duration("interval", today.DefaultRefreshInterval, "How often the view re-reads sync status")
	rootCmd.AddCommand(todayCmd)
}
