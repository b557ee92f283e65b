package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/marcus/sutra/internal/journey"
	"github.com/marcus/sutra/internal/localstore"
	"github.com/marcus/sutra/internal/output"
	"github.com/marcus/sutra/internal/subscription"
	"github.com/marcus/sutra/internal/syncconfig"
	"github.com/spf13/cobra"
)

var subscriptionCmd = &cobra.Command{
	Use:     "subscription",
	Aliases: []string{"sub"},
	Short:   "Check your trial and unlock lifetime access",
	GroupID: "account",
}

var subscriptionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show your subscription status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := requireClient(cmd)
		if err != nil {
			return err
		}
		dir, err := syncconfig.DataDir()
		if err != nil {
			return err
		}
		local, err := localstore.Open(dir)
		if err != nil {
			return err
		}

		gate := journey.NewGate(local, client, newLogger(cmd))
		view, err := gate.Refresh(cmd.Context())
		if err != nil {
			return err
		}
		return printSubscription(cmd, view, gate.Offline())
	},
}

func printSubscription(cmd *cobra.Command, view subscription.View, offline bool) error {
	if jsonOutput(cmd) {
		return output.JSON(struct {
			subscription.View
			Offline bool `json:"offline,omitempty"`
		}{view, offline})
	}
	fmt.Println(output.FormatSubscription(view, syncconfig.GetLocale()))
	if offline {
		output.Warning("server unreachable, showing the last known status")
	}
	if !view.CanEditJourney {
		fmt.Println("Run 'sutra subscription upgrade' to keep editing your journey.")
	}
	return nil
}

var subscriptionUpgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Start checkout for lifetime access",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := requireClient(cmd)
		if err != nil {
			return err
		}
		me, err := client.Me(cmd.Context())
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}
		url, err := client.CreateCheckoutSession(cmd.Context(), me.UserID, me.Email)
		if err != nil {
			return fmt.Errorf("start checkout: %w", err)
		}

		if jsonOutput(cmd) {
			return output.JSON(map[string]string{"url": url})
		}
		fmt.Println("Open this link to complete checkout:")
		fmt.Println()
		fmt.Println("  " + url)
		fmt.Println()
		fmt.Println("Your access unlocks as soon as payment completes. Run 'sutra subscription watch' to follow along.")
		return nil
	},
}

var subscriptionVerifyCmd = &cobra.Command{
	Use:   "verify <session-id>",
	Short: "Check a completed checkout session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := requireClient(cmd)
		if err != nil {
			return err
		}
		resp, err := client.VerifyCheckoutSession(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("verify checkout: %w", err)
		}
		if jsonOutput(cmd) {
			return output.JSON(resp)
		}
		output.Success("Payment %s", resp.PaymentStatus)
		fmt.Println("Lifetime access is granted once the payment provider confirms it, usually within seconds.")
		return nil
	},
}

var subscriptionWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow subscription changes live",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := requireClient(cmd)
		if err != nil {
			return err
		}
		untilActive, _ := cmd.Flags().GetBool("until-active")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		w, err := client.WatchSubscription(ctx)
		if err != nil {
			return fmt.Errorf("watch subscription: %w", err)
		}
		defer w.Cancel()

		for snap := range w.Snapshots() {
			if !snap.Exists {
				continue
			}
			view := snap.Data.View
			if err := printSubscription(cmd, view, false); err != nil {
				return err
			}
			if untilActive && view.IsActivePaid {
				return nil
			}
		}
		if ctx.Err() != nil {
			// interrupted
			return nil
		}
		return w.Err()
	},
}

func init() {
	subscriptionWatchCmd.Flags().Bool("until-active", false, "Exit once lifetime access is active")

	subscriptionCmd.AddCommand(subscriptionStatusCmd, subscriptionUpgradeCmd, subscriptionVerifyCmd, subscriptionWatchCmd)
	rootCmd.AddCommand(subscriptionCmd)
}
