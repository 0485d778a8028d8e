package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blogdesk/mdxmanager/internal/cloud/storage"
	"github.com/blogdesk/mdxmanager/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage mdxmanager configuration",
		Long: `Configuration management commands for mdxmanager.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Test the storage connection
  path  - Show configuration file paths`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

func settingsPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultSettingsPath()
}

func secretsPath() string {
	if secretsFile != "" {
		return secretsFile
	}
	return config.DefaultSecretsPath()
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for mdxmanager.

Settings are saved to settings.ini and credentials to secrets.json, both
readable by the owner only. Use --force to overwrite existing files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := GetLogger()
			out := cmd.OutOrStdout()
			sPath, secPath := settingsPath(), secretsPath()

			if !force {
				if _, err := os.Stat(sPath); err == nil {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", sPath)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			fmt.Fprintln(out, "MDX File Manager Configuration Setup")
			fmt.Fprintln(out, "====================================")
			fmt.Fprintln(out)

			reader := bufio.NewReader(cmd.InOrStdin())
			settings, secrets, err := runConfigWizard(reader, out, isInteractive(cmd.InOrStdin()))
			if err != nil {
				return err
			}
			if err := settings.Validate(); err != nil {
				return fmt.Errorf("invalid settings: %w", err)
			}
			if err := secrets.ValidateFor(settings); err != nil {
				return fmt.Errorf("incomplete credentials: %w", err)
			}

			if err := config.SaveSettings(settings, sPath); err != nil {
				return err
			}
			log.Info().Str("path", sPath).Msg("Settings saved")
			if settings.Storage.Provider != config.ProviderMemory {
				if err := config.SaveSecrets(secrets, secPath); err != nil {
					return err
				}
				log.Info().Str("path", secPath).Msg("Secrets saved")
			}

			fmt.Fprintln(out)
			fmt.Fprintf(out, "✓ Settings saved to: %s\n", sPath)
			if settings.Storage.Provider != config.ProviderMemory {
				fmt.Fprintf(out, "✓ Secrets saved to:  %s\n", secPath)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Test your configuration with: mdxmanager config test")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")
	return cmd
}

// runConfigWizard asks for every setting the chosen provider needs.
func runConfigWizard(reader *bufio.Reader, out io.Writer, interactive bool) (*config.Settings, *config.Secrets, error) {
	settings := config.NewSettings()
	secrets := &config.Secrets{}

	secret := func(label string) (string, error) {
		if interactive {
			return readPassword(out, label+": ")
		}
		return promptString(reader, out, label, ""), nil
	}

	settings.Storage.Provider = strings.ToLower(promptString(reader, out, "Storage provider (supabase, s3, azure, memory)", settings.Storage.Provider))
	settings.Storage.Bucket = promptString(reader, out, "Bucket", settings.Storage.Bucket)

	var err error
	switch settings.Storage.Provider {
	case config.ProviderSupabase:
		secrets.SupabaseURL = strings.TrimRight(promptString(reader, out, "Supabase URL (https://<ref>.supabase.co)", ""), "/")
		if secrets.SupabaseURL != "" && !config.IsSupabaseURL(secrets.SupabaseURL) {
			fmt.Fprintln(out, "  Warning: this does not look like a hosted Supabase URL")
		}
		if secrets.SupabaseKey, err = secret("Supabase key"); err != nil {
			return nil, nil, err
		}
	case config.ProviderS3:
		settings.Storage.Endpoint = promptString(reader, out, "S3 endpoint (empty for AWS)", "")
		settings.Storage.Region = promptString(reader, out, "Region", settings.Storage.Region)
		secrets.S3AccessKeyID = promptString(reader, out, "Access key ID", "")
		if secrets.S3SecretAccessKey, err = secret("Secret access key"); err != nil {
			return nil, nil, err
		}
	case config.ProviderAzure:
		settings.Storage.Endpoint = promptString(reader, out, "Account URL (https://<account>.blob.core.windows.net)", "")
		if secrets.AzureSASToken, err = secret("SAS token"); err != nil {
			return nil, nil, err
		}
	}
	settings.Storage.PublicBaseURL = promptString(reader, out, "Public base URL (empty for the provider default)", "")

	fmt.Fprintln(out)
	answer := strings.ToLower(promptString(reader, out, "Configure proxy? [y/N]", ""))
	if answer == "y" || answer == "yes" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Proxy Configuration")
		fmt.Fprintln(out, "-------------------")
		fmt.Fprintln(out, "Proxy modes: no-proxy, system, basic, ntlm")
		settings.Proxy.Mode = strings.ToLower(promptString(reader, out, "Proxy mode", config.ProxyModeSystem))
		if settings.Proxy.Mode == config.ProxyModeBasic || settings.Proxy.Mode == config.ProxyModeNTLM {
			settings.Proxy.Host = promptString(reader, out, "Proxy host", "")
			if v, err := strconv.Atoi(promptString(reader, out, "Proxy port", "8080")); err == nil && v > 0 {
				settings.Proxy.Port = v
			}
			settings.Proxy.User = promptString(reader, out, "Proxy user (empty for none)", "")
			settings.Proxy.NoProxy = promptString(reader, out, "Bypass list (comma separated)", "")
		}
	}
	return settings, secrets, nil
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration: settings.ini merged with the
--provider and --bucket flags, and the credentials found in secrets.json
(shortened).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadSettings(cfgFile)
			if err != nil {
				return err
			}
			if providerFlag != "" {
				settings.Storage.Provider = providerFlag
			}
			if bucketFlag != "" {
				settings.Storage.Bucket = bucketFlag
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Current Configuration")
			fmt.Fprintln(out, "=====================")
			fmt.Fprintln(out)

			st := settings.Storage
			fmt.Fprintln(out, "Storage:")
			fmt.Fprintf(out, "  Provider:        %s\n", st.Provider)
			fmt.Fprintf(out, "  Bucket:          %s\n", st.Bucket)
			fmt.Fprintf(out, "  Endpoint:        %s\n", orNone(st.Endpoint))
			fmt.Fprintf(out, "  Region:          %s\n", st.Region)
			fmt.Fprintf(out, "  Public base URL: %s\n", orNone(st.PublicBaseURL))
			fmt.Fprintf(out, "  Max retries:     %d\n", st.MaxRetries)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Proxy:")
			fmt.Fprintf(out, "  Mode: %s\n", settings.Proxy.Mode)
			if settings.Proxy.Host != "" {
				fmt.Fprintf(out, "  Host: %s:%d\n", settings.Proxy.Host, settings.Proxy.Port)
			}
			if settings.Proxy.User != "" {
				fmt.Fprintf(out, "  User: %s\n", settings.Proxy.User)
			}
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Logging:")
			fmt.Fprintf(out, "  Level: %s\n", settings.Logging.Level)
			fmt.Fprintf(out, "  File:  %t\n", settings.Logging.File)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Credentials:")
			secrets, err := config.LoadSecrets(secretsFile)
			if err != nil {
				fmt.Fprintf(out, "  %v\n", err)
			} else {
				fmt.Fprintf(out, "  supabase_url:         %s\n", orNone(secrets.SupabaseURL))
				fmt.Fprintf(out, "  supabase_key:         %s\n", orNone(config.Redact(secrets.APIKey())))
				fmt.Fprintf(out, "  s3_access_key_id:     %s\n", orNone(config.Redact(secrets.S3AccessKeyID)))
				fmt.Fprintf(out, "  s3_secret_access_key: %s\n", orNone(config.Redact(secrets.S3SecretAccessKey)))
				fmt.Fprintf(out, "  azure_sas_token:      %s\n", orNone(config.Redact(secrets.AzureSASToken)))
			}
			fmt.Fprintln(out)

			fmt.Fprintf(out, "Settings file: %s\n", settingsPath())
			if _, err := os.Stat(settingsPath()); os.IsNotExist(err) {
				fmt.Fprintln(out, "  (file does not exist - using defaults)")
			}
			fmt.Fprintf(out, "Secrets file:  %s\n", secretsPath())
			return nil
		},
	}
	return cmd
}

func orNone(s string) string {
	if s == "" {
		return "<not set>"
	}
	return s
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test the storage connection",
		Long: `Test the storage connection with the current configuration.

Use this to verify your credentials, bucket name and network settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := GetLogger()
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Testing Storage Connection")
			fmt.Fprintln(out, "==========================")
			fmt.Fprintln(out)

			ctx, cancel := context.WithTimeout(GetContext(), 30*time.Second)
			defer cancel()

			settings, _, backend, err := connect(ctx, log)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Provider: %s\n", backend.Name())
			fmt.Fprintf(out, "Bucket:   %s\n", settings.Storage.Bucket)
			fmt.Fprintln(out, "Testing connection...")
			fmt.Fprintln(out)

			start := time.Now()
			if pinger, ok := backend.(storage.Pinger); ok {
				err = pinger.Ping(ctx)
			} else {
				_, err = backend.List(ctx)
			}
			if err != nil {
				log.Error().Err(err).Msg("Connection test failed")
				fmt.Fprintln(out, "✗ Connection FAILED")
				fmt.Fprintf(out, "  Error: %v\n", err)
				return fmt.Errorf("connection test failed")
			}

			log.Info().Msg("Connection test successful")
			fmt.Fprintf(out, "✓ Connection SUCCESSFUL (%s)\n", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	return cmd
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, f := range []struct{ label, path string }{
				{"Settings", settingsPath()},
				{"Secrets", secretsPath()},
				{"Logs", config.LogDirectory()},
			} {
				status := "missing"
				if info, err := os.Stat(f.path); err == nil {
					status = "exists, modified " + info.ModTime().Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(out, "%-9s %s (%s)\n", f.label+":", f.path, status)
			}
			return nil
		},
	}
	return cmd
}
