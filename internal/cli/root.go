// Package cli provides the command-line interface for mdxmanager.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/blogdesk/mdxmanager/internal/config"
	"github.com/blogdesk/mdxmanager/internal/constants"
	"github.com/blogdesk/mdxmanager/internal/logging"
	"github.com/blogdesk/mdxmanager/internal/version"
)

var (
	// Global flags
	cfgFile      string
	secretsFile  string
	providerFlag string
	bucketFlag   string
	verbose      bool
	debug        bool
	assumeYes    bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command for CLI mode.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   constants.AppName,
		Short: constants.AppDisplayName + " - browse and edit Markdown/MDX files in object storage",
		Long: constants.AppDisplayName + ` ` + version.Version + ` - Built: ` + version.BuildTime + `
Manage the Markdown and MDX documents of a storage bucket as a folder tree.

CLI Mode (default with arguments):
  tree, ls, upload, download, cat, info, edit, rm, mv, mkdir, url

GUI Mode (no arguments, or the gui command):
  Folder tree, document editor and file actions in a desktop window.

Configuration:
  settings.ini  storage provider, bucket, proxy and logging
  secrets.json  supabase_url and supabase_key (or provider credentials)`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultCLILogger()
			if verbose || debug || os.Getenv(constants.DebugEnvVar) != "" {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Settings file path (default "+config.DefaultSettingsPath()+")")
	rootCmd.PersistentFlags().StringVar(&secretsFile, "secrets", "", "Secrets file path (default config/secrets.json or the config directory)")
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "Storage provider: supabase, s3, azure or memory (overrides settings)")
	rootCmd.PersistentFlags().StringVar(&bucketFlag, "bucket", "", "Bucket or container name (overrides settings)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to every confirmation")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	rootCmd.AddCommand(newCompletionCmd(rootCmd))
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

func newCompletionCmd(rootCmd *cobra.Command) *cobra.Command {
	name := constants.AppName
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for ` + name + `.

QUICK START:

  bash:       source <(` + name + ` completion bash)
  zsh:        ` + name + ` completion zsh > "${fpath[1]}/_` + name + `"
  fish:       ` + name + ` completion fish | source
  PowerShell: ` + name + ` completion powershell | Out-String | Invoke-Expression`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(out)
			case "zsh":
				return rootCmd.GenZshCompletion(out)
			case "fish":
				return rootCmd.GenFishCompletion(out, true)
			default:
				return rootCmd.GenPowerShellCompletion(out)
			}
		},
	}
}

// Execute runs the CLI.
func Execute() error {
	return execute(os.Args[1:])
}

// ExecuteGUI runs the gui command with the global flags found in args.
func ExecuteGUI(args []string) error {
	return execute(append([]string{"gui"}, args...))
}

func execute(args []string) error {
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\n\n🛑 Received signal %v, cancelling operations...\n\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newTreeCmd())
	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newCatCmd())
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newEditCmd())
	rootCmd.AddCommand(newRmCmd())
	rootCmd.AddCommand(newMvCmd())
	rootCmd.AddCommand(newMkdirCmd())
	rootCmd.AddCommand(newURLCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newGUICmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}
