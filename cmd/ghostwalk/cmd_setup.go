package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/ghostwalk/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("Ghostwalk Setup Wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		// 1. Mixpanel export endpoint
		cfg.Mixpanel.BaseURL = prompt(scanner, "Mixpanel base URL", cfg.Mixpanel.BaseURL)

		// 2. Mixpanel project
		cfg.Mixpanel.ProjectID = prompt(scanner, "Mixpanel project ID", cfg.Mixpanel.ProjectID)

		// 3. Service account credentials
		cfg.Mixpanel.Username = prompt(scanner, "Mixpanel service account username", cfg.Mixpanel.Username)
		cfg.Mixpanel.Secret = prompt(scanner, "Mixpanel service account secret", cfg.Mixpanel.Secret)

		// 4. Replay pacing
		delayStr := prompt(scanner, "Fixed delay between events in seconds (0 for recorded timing)",
			strconv.FormatFloat(cfg.Replay.FixedDelaySeconds, 'f', -1, 64))
		if f, err := strconv.ParseFloat(delayStr, 64); err == nil {
			cfg.Replay.FixedDelaySeconds = f
		}

		// 5. Telegram notifications (optional)
		cfg.Telegram.Token = prompt(scanner, "Telegram bot token (optional)", cfg.Telegram.Token)
		if cfg.Telegram.Token != "" {
			chatStr := prompt(scanner, "Telegram chat ID", strconv.FormatInt(cfg.Telegram.ChatID, 10))
			if n, err := strconv.ParseInt(chatStr, 10, 64); err == nil {
				cfg.Telegram.ChatID = n
			}
		}

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}
