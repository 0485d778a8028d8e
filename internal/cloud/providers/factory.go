// Package providers contains the storage backend implementations and the
// factory that picks one from the settings.
package providers

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"

	"github.com/blogdesk/mdxmanager/internal/cloud"
	"github.com/blogdesk/mdxmanager/internal/cloud/providers/azure"
	"github.com/blogdesk/mdxmanager/internal/cloud/providers/memory"
	"github.com/blogdesk/mdxmanager/internal/cloud/providers/s3"
	"github.com/blogdesk/mdxmanager/internal/cloud/providers/supabase"
	"github.com/blogdesk/mdxmanager/internal/cloud/storage"
	"github.com/blogdesk/mdxmanager/internal/config"
	"github.com/blogdesk/mdxmanager/internal/http"
	"github.com/blogdesk/mdxmanager/internal/logging"
)

// Factory creates backends from settings and secrets.
type Factory struct {
	// HTTPClient overrides the proxy-aware client built from the settings.
	HTTPClient *nethttp.Client
	Logger     *logging.Logger

	// TimingOutput receives [TIMING] lines when MDXMANAGER_TIMING=1.
	// nil means stderr.
	TimingOutput io.Writer
}

// NewFactory creates a new provider factory.
func NewFactory(logger *logging.Logger) *Factory {
	return &Factory{Logger: logging.OrNop(logger)}
}

// New validates the configuration and returns the selected backend.
// No storage request is made, but the proxy may be warmed up.
func (f *Factory) New(ctx context.Context, settings *config.Settings, secrets *config.Secrets) (storage.Backend, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if secrets == nil {
		secrets = &config.Secrets{}
	}
	if err := secrets.ValidateFor(settings); err != nil {
		return nil, err
	}
	logger := logging.OrNop(f.Logger)
	st := settings.Storage

	if st.Provider == config.ProviderMemory {
		return cloud.Timed(memory.New(st.Bucket), f.TimingOutput), nil
	}

	httpClient := f.HTTPClient
	if httpClient == nil {
		var err error
		httpClient, err = http.NewClient(settings.Proxy, WarmupURL(settings, secrets), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
		}
	}

	var (
		backend storage.Backend
		err     error
	)
	switch st.Provider {
	case config.ProviderSupabase:
		backend, err = supabase.New(supabase.Config{
			URL:           secrets.SupabaseURL,
			Key:           secrets.APIKey(),
			Bucket:        st.Bucket,
			PublicBaseURL: st.PublicBaseURL,
			HTTPClient:    httpClient,
			MaxRetries:    st.MaxRetries,
			Logger:        logger,
		})
	case config.ProviderS3:
		backend, err = s3.New(ctx, s3.Config{
			Bucket:          st.Bucket,
			Region:          st.Region,
			Endpoint:        st.Endpoint,
			AccessKeyID:     secrets.S3AccessKeyID,
			SecretAccessKey: secrets.S3SecretAccessKey,
			PublicBaseURL:   st.PublicBaseURL,
			HTTPClient:      httpClient,
			MaxRetries:      st.MaxRetries,
			Logger:          logger,
		})
	case config.ProviderAzure:
		backend, err = azure.New(azure.Config{
			AccountURL:    st.Endpoint,
			SASToken:      secrets.AzureSASToken,
			Container:     st.Bucket,
			PublicBaseURL: st.PublicBaseURL,
			HTTPClient:    httpClient,
			MaxRetries:    st.MaxRetries,
			Logger:        logger,
		})
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", st.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("backend", backend.Name()).Int("max_retries", st.MaxRetries).Msg("storage backend ready")
	return cloud.Timed(backend, f.TimingOutput), nil
}

// WarmupURL is the URL probed through the proxy before first use.
func WarmupURL(settings *config.Settings, secrets *config.Secrets) string {
	switch settings.Storage.Provider {
	case config.ProviderSupabase:
		return strings.TrimRight(secrets.SupabaseURL, "/")
	case config.ProviderS3:
		if settings.Storage.Endpoint != "" {
			return settings.Storage.Endpoint
		}
		return fmt.Sprintf("https://s3.%s.amazonaws.com", settings.Storage.Region)
	case config.ProviderAzure:
		ep := settings.Storage.Endpoint
		if i := strings.IndexByte(ep, '?'); i >= 0 {
			ep = ep[:i]
		}
		return ep
	}
	return ""
}
