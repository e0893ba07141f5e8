package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/services"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage application settings",
	Long: `View and change docchat settings.

Settings live in config.toml inside the config directory (default ~/.docchat).`,
	Annotations: map[string]string{annotationSettingsOnly: "true"},
	RunE:        runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Long: `Change one setting. Secrets (server.token, redis.password) are prompted
for without echo when the value is omitted.

Examples:
  docchat config set server.url https://index.example.com
  docchat config set storage.backend redis
  docchat config set kafka.brokers broker1:9092,broker2:9092
  docchat config set server.token`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSet,
}

// secretKeys are masked on display and may be prompted for.
var secretKeys = map[string]bool{
	services.KeyServerToken:   true,
	services.KeyRedisPassword: true,
}

// listKeys hold string lists.
var listKeys = map[string]bool{
	services.KeyKafkaBrokers: true,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	s := settingsService.Get()

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  URL: %s\n", s.Server.BaseURL)
	if s.Server.Token != "" {
		cmd.Printf("  Token: %s\n", maskAPIKey(s.Server.Token))
	} else {
		cmd.Printf("  Token: (not set)\n")
	}
	cmd.Printf("  User ID: %s\n", s.Server.UserID)
	cmd.Printf("  Timeout: %s\n", s.Server.Timeout)
	cmd.Printf("  Rate limit: %.1f req/s (burst %d)\n", s.Server.RateLimit, s.Server.Burst)
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", s.Storage.Backend.Description())
	switch s.Storage.Backend {
	case domain.StorageSQLite:
		dir := s.Storage.DataDir
		if dir == "" {
			dir = "~/.docchat/data"
		}
		cmd.Printf("  Data dir: %s\n", dir)
	case domain.StorageRedis:
		cmd.Printf("  Address: %s (db %d, prefix %s)\n", s.Storage.RedisAddr, s.Storage.RedisDB, s.Storage.RedisPrefix)
	}
	cmd.Println()

	cmd.Println("[Notifications]")
	cmd.Printf("  Transport: %s\n", s.Notifications.Transport)
	if s.Notifications.Transport == domain.NotifyKafka {
		cmd.Printf("  Brokers: %s\n", strings.Join(s.Notifications.KafkaBrokers, ","))
		cmd.Printf("  Topic: %s (group %s)\n", s.Notifications.KafkaTopic, s.Notifications.KafkaGroupID)
	} else {
		cmd.Printf("  Listen address: %s\n", s.Notifications.ListenAddr)
	}
	cmd.Println()

	cmd.Println("[Retention]")
	cmd.Printf("  Keep: %d days\n", s.Retention.Days)
	cmd.Printf("  Sweep at most every: %s\n", s.Retention.MinInterval)
	cmd.Printf("  Staging lifetime: %s\n", s.StagingMaxAge)
	cmd.Printf("  Scheduler: %t\n", s.SchedulerEnabled)
	cmd.Println()

	if !s.Server.IsConfigured() {
		cmd.Println("Warning: server.url is not set.")
		cmd.Println("Run 'docchat config set server.url <url>' to configure.")
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	key := args[0]
	var raw string
	if len(args) == 2 {
		raw = args[1]
	} else {
		if !secretKeys[key] {
			return fmt.Errorf("a value is required for %s", key)
		}
		cmd.Printf("Enter %s: ", key)
		raw = readPassword(cmd)
		cmd.Println()
		if raw == "" {
			return errors.New("empty value")
		}
	}

	if err := settingsService.Set(key, parseValue(key, raw)); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	shown := raw
	if secretKeys[key] {
		shown = maskAPIKey(raw)
	}
	cmd.Printf("Set %s = %s\n", key, shown)
	return nil
}

// parseValue converts a command line value to the type stored in TOML.
func parseValue(key, raw string) any {
	if listKeys[key] {
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	if secretKeys[key] {
		return raw
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if i, err := strconv.Atoi(raw); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword(cmd *cobra.Command) string {
	// Try to read password without echo
	if stdinIsTerminal() {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	return readLine(bufio.NewReader(cmd.InOrStdin()))
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
