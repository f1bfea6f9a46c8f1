package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/devicelink/devicelink/internal/config"
)

var configureCmd = &cobra.Command{
	Use:     "configure",
	Aliases: []string{"config"},
	Short:   "Configure the bridge",
	Long: `Configure the bridge interactively.

This allows you to modify:
  - Companion host name
  - Companion command (skips the host manifest lookup)
  - Extra trusted origins
  - Whether the daemon shows a tray icon

Press Enter to keep the current value for any setting. A running daemon
picks up trust changes immediately; the rest apply on reconnect or restart.`,
	RunE: runConfigure,
}

func runConfigure(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)
	changed := false

	// Companion host
	fmt.Printf("Companion host name [%s]: ", settings.Companion.Host)
	host, _ := reader.ReadString('\n')
	host = strings.TrimSpace(host)
	if host != "" {
		if !config.ValidHostName(host) {
			return fmt.Errorf("invalid host name: %s (expected lowercase words joined by dots)", host)
		}
		if host != settings.Companion.Host {
			settings.Companion.Host = host
			changed = true
		}
	}

	// Companion command
	current := settings.Companion.Command
	if current == "" {
		current = "from manifest"
	}
	fmt.Printf("Companion command [%s] (\"-\" to clear): ", current)
	command, _ := reader.ReadString('\n')
	command = strings.TrimSpace(command)
	switch {
	case command == "-":
		if settings.Companion.Command != "" {
			settings.Companion.Command = ""
			changed = true
		}
	case command != "" && command != settings.Companion.Command:
		settings.Companion.Command = command
		changed = true
	}

	// Trusted origins
	fmt.Print("Add trusted origin (glob, Enter to skip): ")
	origin, _ := reader.ReadString('\n')
	origin = strings.TrimSpace(origin)
	if origin != "" {
		if _, err := glob.Compile(origin); err != nil {
			return fmt.Errorf("invalid origin pattern %q: %w", origin, err)
		}
	}
	if added, ok := addOrigin(settings.UI.TrustedOrigins, origin); ok {
		settings.UI.TrustedOrigins = added
		changed = true
	}

	fmt.Println()
	newTray := promptYesNoWithCurrent(reader, "Show tray icon?", settings.UI.Tray)
	if newTray != settings.UI.Tray {
		settings.UI.Tray = newTray
		changed = true
	}

	if !changed {
		fmt.Println("\nNo changes made.")
		return nil
	}

	if err := config.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	fmt.Println("\nSettings updated.")
	return nil
}

// addOrigin appends origin unless it is empty or already listed.
func addOrigin(origins []string, origin string) ([]string, bool) {
	if origin == "" {
		return origins, false
	}
	for _, o := range origins {
		if o == origin {
			return origins, false
		}
	}
	return append(origins, origin), true
}

// promptYesNoWithCurrent prompts for a yes/no value showing the current value.
func promptYesNoWithCurrent(reader *bufio.Reader, prompt string, current bool) bool {
	currentStr := "no"
	if current {
		currentStr = "yes"
	}

	fmt.Printf("  %s [%s]: ", prompt, currentStr)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))

	if response == "" {
		return current
	}
	return response == "y" || response == "yes"
}
