// Package cli provides the docchat command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

// annotationSettingsOnly marks commands that need settings but no storage.
const annotationSettingsOnly = "docchat/settings-only"

// DirectoryWatcher uploads files that appear in a directory.
type DirectoryWatcher interface {
	Run(ctx context.Context) error
	Close() error
}

// WatcherFactory creates a watcher for dir, uploading into workspaceID.
type WatcherFactory func(dir, workspaceID string) DirectoryWatcher

// Services are the driving ports the commands use. Nil entries disable
// the commands that need them.
type Services struct {
	Attachments     driving.AttachmentService
	Conversations   driving.ConversationService
	Retention       driving.RetentionService
	Scheduler       driving.Scheduler
	SummaryListener driving.SummaryListener
	Settings        driving.SettingsService
	NewWatcher      WatcherFactory
}

// Options are the global flags handed to the bootstrap function.
type Options struct {
	ConfigDir string
	Verbose   bool

	// Storage overrides the configured storage backend when set.
	Storage string

	// SettingsOnly asks for the settings service alone.
	SettingsOnly bool
}

// BootstrapFunc wires the services. The returned cleanup func releases them.
type BootstrapFunc func(ctx context.Context, opts Options) (*Services, func(), error)

// Service instances, set by SetServices.
var (
	attachmentService   driving.AttachmentService
	conversationService driving.ConversationService
	retentionService    driving.RetentionService
	schedulerService    driving.Scheduler
	summaryListener     driving.SummaryListener
	settingsService     driving.SettingsService
	newWatcher          WatcherFactory
)

var (
	bootstrap BootstrapFunc
	cleanup   func()
)

// Global flags.
var (
	configDir       string
	verbose         bool
	storageOverride string
)

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Chat with your documents",
	Long: `docchat attaches local files, URLs and web pages to a remote indexing
service and lets you ask questions about them, one file at a time or across
a workspace of files.`,
	SilenceUsage:      true,
	PersistentPreRunE: runBootstrap,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.docchat)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&storageOverride, "storage", "", "storage backend override: sqlite, redis or memory")
}

// SetServices injects the services used by the commands.
func SetServices(s *Services) {
	attachmentService = s.Attachments
	conversationService = s.Conversations
	retentionService = s.Retention
	schedulerService = s.Scheduler
	summaryListener = s.SummaryListener
	settingsService = s.Settings
	newWatcher = s.NewWatcher
}

// Execute runs the root command. boot is called once the flags are parsed,
// unless the selected command needs no services.
func Execute(ctx context.Context, boot BootstrapFunc) error {
	bootstrap = boot
	defer runCleanup()
	return rootCmd.ExecuteContext(ctx)
}

func runBootstrap(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if bootstrap == nil || cmd == versionCmd {
		return nil
	}

	opts := Options{
		ConfigDir:    configDir,
		Verbose:      verbose,
		Storage:      storageOverride,
		SettingsOnly: isSettingsOnly(cmd),
	}
	svcs, release, err := bootstrap(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	SetServices(svcs)
	cleanup = release
	return nil
}

func runCleanup() {
	if cleanup != nil {
		cleanup()
		cleanup = nil
	}
}

func isSettingsOnly(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationSettingsOnly] == "true" {
			return true
		}
	}
	return false
}

// errNotConfigured is returned by commands whose service is missing.
func errNotConfigured(name string) error {
	return errors.New(name + " service not configured")
}
