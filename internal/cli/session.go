package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blogdesk/mdxmanager/internal/app"
	"github.com/blogdesk/mdxmanager/internal/cloud/providers"
	"github.com/blogdesk/mdxmanager/internal/cloud/storage"
	"github.com/blogdesk/mdxmanager/internal/config"
	"github.com/blogdesk/mdxmanager/internal/constants"
	"github.com/blogdesk/mdxmanager/internal/events"
	"github.com/blogdesk/mdxmanager/internal/logging"
)

// openBackend builds the storage backend. Tests replace it.
var openBackend = func(ctx context.Context, settings *config.Settings, secrets *config.Secrets, logger *logging.Logger) (storage.Backend, error) {
	return providers.NewFactory(logger).New(ctx, settings, secrets)
}

// session is one command's view of the bucket: configuration, backend
// and a controller driven synchronously with RunUntilIdle.
type session struct {
	settings *config.Settings
	secrets  *config.Secrets
	backend  storage.Backend
	bus      *events.EventBus
	notifier *cliNotifier
	ctrl     *app.Controller
	logger   *logging.Logger
}

// loadSettings reads the settings file and applies the global flags.
func loadSettings() (*config.Settings, error) {
	settings, err := config.LoadSettings(cfgFile)
	if err != nil {
		return nil, err
	}
	if providerFlag != "" {
		settings.Storage.Provider = providerFlag
	}
	if bucketFlag != "" {
		settings.Storage.Bucket = bucketFlag
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}

// loadSecrets reads the secrets file. The memory provider runs without one.
func loadSecrets(settings *config.Settings) (*config.Secrets, error) {
	secrets, err := config.LoadSecrets(secretsFile)
	if err != nil {
		if settings.Storage.Provider == config.ProviderMemory && errors.Is(err, config.ErrSecretsNotFound) {
			return &config.Secrets{}, nil
		}
		return nil, err
	}
	return secrets, nil
}

// applyLogging configures the logger from the [logging] section. The
// --verbose flag wins over the configured level.
func applyLogging(log *logging.Logger, settings *config.Settings) {
	if !verbose && !debug && os.Getenv(constants.DebugEnvVar) == "" {
		logging.SetGlobalLevel(logging.ParseLevel(settings.Logging.Level))
	}
	if settings.Logging.File {
		if err := log.EnableFileLogging(config.LogDirectory()); err != nil {
			log.Warn().Err(err).Msg("file logging disabled")
		}
	}
}

// connect loads the configuration and creates the backend.
func connect(ctx context.Context, log *logging.Logger) (*config.Settings, *config.Secrets, storage.Backend, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, nil, nil, err
	}
	applyLogging(log, settings)

	secrets, err := loadSecrets(settings)
	if err != nil {
		return nil, nil, nil, err
	}
	if settings.Storage.Provider == config.ProviderSupabase && !config.IsSupabaseURL(secrets.SupabaseURL) {
		log.Warn().Str("url", secrets.SupabaseURL).Msg("supabase_url does not look like a hosted Supabase project URL")
	}
	if settings.Proxy.NeedsPassword() {
		password, err := readPassword(os.Stderr, fmt.Sprintf("Proxy password for %s: ", settings.Proxy.User))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to read proxy password: %w", err)
		}
		settings.Proxy.Password = password
	}

	backend, err := openBackend(ctx, settings, secrets, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	log.Debug().Str("provider", backend.Name()).Str("bucket", settings.Storage.Bucket).Msg("storage backend ready")
	return settings, secrets, backend, nil
}

// openSession connects and creates a controller whose notifier writes to
// the command's output streams.
func openSession(cmd *cobra.Command) (*session, error) {
	log := GetLogger()
	ctx := GetContext()
	settings, secrets, backend, err := connect(ctx, log)
	if err != nil {
		return nil, err
	}

	bus := events.NewEventBus(constants.EventBusDefaultBuffer)
	notifier := newCLINotifier(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), assumeYes, log)
	ctrl, err := app.New(app.Options{
		Backend:  backend,
		Notifier: notifier,
		Bus:      bus,
		Logger:   log,
		Context:  ctx,
	})
	if err != nil {
		bus.Close()
		return nil, err
	}
	return &session{
		settings: settings,
		secrets:  secrets,
		backend:  backend,
		bus:      bus,
		notifier: notifier,
		ctrl:     ctrl,
		logger:   log,
	}, nil
}

// wait applies results until every started action is done and returns
// an error when any of them failed.
func (s *session) wait() error {
	if err := s.ctrl.RunUntilIdle(GetContext()); err != nil {
		return err
	}
	return s.notifier.err()
}

// refresh loads the bucket listing.
func (s *session) refresh() error {
	s.ctrl.Refresh()
	return s.wait()
}

func (s *session) close() {
	if n := s.bus.ResetDroppedEventCount(); n > 0 {
		s.logger.Debug().Int64("dropped", n).Msg("event subscribers fell behind")
	}
	s.bus.Close()
}
