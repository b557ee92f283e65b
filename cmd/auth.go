package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/marcus/sutra/internal/output"
	"github.com/marcus/sutra/internal/syncclient"
	"github.com/marcus/sutra/internal/syncconfig"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:     "auth",
	Short:   "Manage your journey account",
	GroupID: "account",
}

// credentials collects email and password from flags, SUTRA_PASSWORD or a
// prompt.
func credentials(cmd *cobra.Command, confirmPassword bool) (string, string, error) {
	email, _ := cmd.Flags().GetString("email")
	password := os.Getenv("SUTRA_PASSWORD")

	if email == "" || password == "" {
		if !isTerminal() {
			return "", "", invalidInput("pass --email and set SUTRA_PASSWORD when not on a terminal")
		}
		var again string
		fields := []huh.Field{
			huh.NewInput().Title("Email").Value(&email).Validate(func(s string) error {
				if !strings.Contains(s, "@") {
					return fmt.Errorf("enter an email address")
				}
				return nil
			}),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&password),
		}
		if confirmPassword {
			fields = append(fields, huh.NewInput().Title("Confirm password").EchoMode(huh.EchoModePassword).Value(&again).
				Validate(func(s string) error {
					if s != password {
						return fmt.Errorf("passwords do not match")
					}
					return nil
				}))
		}
		if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
			return "", "", err
		}
	}
	return strings.TrimSpace(email), password, nil
}

func saveLogin(serverURL string, resp *syncclient.AuthResponse) error {
	return syncconfig.SaveAuth(&syncconfig.AuthCredentials{
		APIKey:    resp.APIKey,
		UserID:    resp.UserID,
		Email:     resp.Email,
		ServerURL: serverURL,
		ExpiresAt: resp.ExpiresAt,
	})
}

var authSignupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and start your free trial",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, password, err := credentials(cmd, true)
		if err != nil {
			return err
		}
		serverURL := syncconfig.GetServerURL()
		client := syncclient.New(serverURL, "", syncconfig.GetRequestTimeout())

		resp, err := client.Signup(cmd.Context(), email, password)
		if err != nil {
			return fmt.Errorf("signup: %w", err)
		}
		if err := saveLogin(serverURL, resp); err != nil {
			return fmt.Errorf("save credentials: %w", err)
		}
		output.Success("Signed up as %s", resp.Email)
		fmt.Println("Run 'sutra sync' to upload the journey on this machine.")
		return nil
	},
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the journey server",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, password, err := credentials(cmd, false)
		if err != nil {
			return err
		}
		serverURL := syncconfig.GetServerURL()
		client := syncclient.New(serverURL, "", syncconfig.GetRequestTimeout())

		resp, err := client.Login(cmd.Context(), email, password)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		if err := saveLogin(serverURL, resp); err != nil {
			return fmt.Errorf("save credentials: %w", err)
		}
		output.Success("Logged in as %s", resp.Email)
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget the stored key",
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncconfig.IsAuthenticated() {
			client := syncclient.New(syncconfig.GetServerURL(), syncconfig.GetAPIKey(), syncconfig.GetRequestTimeout())
			if err := client.Logout(cmd.Context()); err != nil {
				output.Warning("server logout failed: %v", err)
			}
		}
		if err := syncconfig.ClearAuth(); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
		fmt.Println("Logged out. Your journey stays on this machine.")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := syncconfig.LoadAuth()
		if err != nil {
			return fmt.Errorf("load auth: %w", err)
		}

		if jsonOutput(cmd) {
			if creds == nil {
				return output.JSON(map[string]any{"authenticated": false})
			}
			return output.JSON(map[string]any{
				"authenticated": creds.APIKey != "",
				"email":         creds.Email,
				"userId":        creds.UserID,
				"server":        creds.ServerURL,
				"expiresAt":     creds.ExpiresAt,
			})
		}

		if creds == nil || creds.APIKey == "" {
			fmt.Println("Not logged in. Your journey is kept on this machine only.")
			return nil
		}

		keyPrefix := creds.APIKey
		if len(keyPrefix) > 12 {
			keyPrefix = keyPrefix[:12] + "..."
		}

		fmt.Printf("Email:   %s\n", creds.Email)
		fmt.Printf("Server:  %s\n", creds.ServerURL)
		fmt.Printf("Key:     %s\n", keyPrefix)
		if creds.ExpiresAt != "" {
			fmt.Printf("Expires: %s\n", creds.ExpiresAt)
		}
		return nil
	},
}

func init() {
	authSignupCmd.Flags().String("email", "", "Account email (password is read from SUTRA_PASSWORD or prompted)")
	authLoginCmd.Flags().String("email", "", "Account email (password is read from SUTRA_PASSWORD or prompted)")

	authCmd.AddCommand(authSignupCmd, authLoginCmd, authLogoutCmd, authStatusCmd)
	rootCmd.AddCommand(authCmd)
}
