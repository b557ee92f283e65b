package cmd

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/marcus/sutra/internal/datefmt"
	"github.com/marcus/sutra/internal/output"
	"github.com/marcus/sutra/internal/suggest"
	"github.com/marcus/sutra/internal/syncconfig"
	"github.com/spf13/cobra"
)

// validConfigKeys lists the supported config keys for set/get.
var validConfigKeys = []string{
	"sync.url",
	"sync.enabled",
	"sync.timeout",
	"display.locale",
}

func parseBool(val string) (bool, error) {
	switch strings.ToLower(val) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, invalidInput("invalid bool value %q (use true/false/1/0)", val)
	}
}

func unknownKey(key string) error {
	if hint := suggest.Hint(key, validConfigKeys); hint != "" {
		return invalidInput("unknown config key %q (%s)", key, hint)
	}
	return invalidInput("unknown config key %q (valid keys: %s)", key, strings.Join(validConfigKeys, ", "))
}

// setConfigValue validates val and stores it under key in cfg.
func setConfigValue(cfg *syncconfig.Config, key, val string) error {
	switch key {
	case "sync.url":
		if !strings.HasPrefix(val, "http://") && !strings.HasPrefix(val, "https://") {
			return invalidInput("sync.url must start with http:// or https://")
		}
		cfg.Sync.URL = strings.TrimRight(val, "/")
	case "sync.enabled":
		b, err := parseBool(val)
		if err != nil {
			return err
		}
		cfg.Sync.Enabled = &b
	case "sync.timeout":
		d, err := time.ParseDuration(val)
		if err != nil || d <= 0 {
			return invalidInput("invalid duration %q (e.g. 10s)", val)
		}
		cfg.Sync.Timeout = val
	case "display.locale":
		cfg.Display.Locale = datefmt.Normalize(val)
	default:
		return unknownKey(key)
	}
	return nil
}

// configValue returns the stored value for key, or the default it falls
// back to.
func configValue(cfg *syncconfig.Config, key string) (string, error) {
	switch key {
	case "sync.url":
		if cfg.Sync.URL == "" {
			return syncconfig.GetServerURL() + " (default)", nil
		}
		return cfg.Sync.URL, nil
	case "sync.enabled":
		if cfg.Sync.Enabled == nil {
			return "true (default)", nil
		}
		return strconv.FormatBool(*cfg.Sync.Enabled), nil
	case "sync.timeout":
		if cfg.Sync.Timeout == "" {
			return "10s (default)", nil
		}
		return cfg.Sync.Timeout, nil
	case "display.locale":
		if cfg.Display.Locale == "" {
			return datefmt.DetectRuntime() + " (detected)", nil
		}
		return cfg.Display.Locale, nil
	}
	return "", unknownKey(key)
}

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Manage sutra configuration",
	GroupID: "system",
}

var configSetCmd = &cobra.Command{
	Use:       "set <key> <value>",
	Short:     "Set a config value",
	Args:      cobra.ExactArgs(2),
	ValidArgs: validConfigKeys,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]

		cfg, err := syncconfig.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := setConfigValue(cfg, key, val); err != nil {
			return err
		}
		if err := syncconfig.SaveConfig(cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		output.Success("set %s = %s", key, val)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a config value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := syncconfig.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		val, err := configValue(cfg, args[0])
		if err != nil {
			return err
		}
		fmt.Println(val)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all config values",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := syncconfig.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if jsonOutput(cmd) {
			return output.JSON(cfg)
		}
		keys := slices.Clone(validConfigKeys)
		slices.Sort(keys)
		for _, key := range keys {
			val, _ := configValue(cfg, key)
			fmt.Printf("%-15s %s\n", key, val)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetCmd, configGetCmd, configListCmd)
	rootCmd.AddCommand(configCmd)
}
