package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/blogdesk/mdxmanager/internal/constants"
)

// Providers understood by the storage factory.
const (
	ProviderSupabase = "supabase"
	ProviderS3       = "s3"
	ProviderAzure    = "azure"
	ProviderMemory   = "memory"
)

// Proxy modes understood by the HTTP layer.
const (
	ProxyModeNone   = "no-proxy"
	ProxyModeSystem = "system"
	ProxyModeBasic  = "basic"
	ProxyModeNTLM   = "ntlm"
)

// Settings is the non-secret configuration stored in settings.ini.
//
// INI format:
//
//	[storage]
//	provider = supabase
//	bucket = mdx-files
//	endpoint =
//	region = us-east-1
//	public_base_url =
//	max_retries = 0
//
//	[proxy]
//	mode = no-proxy
//	host =
//	port = 8080
//	user =
//	no_proxy =
//	warmup = false
//
//	[logging]
//	level = info
//	file = false
type Settings struct {
	Storage StorageSettings
	Proxy   ProxyConfig
	Logging LoggingSettings
}

// StorageSettings selects and tunes the storage backend.
type StorageSettings struct {
	// Provider is one of supabase, s3, azure or memory.
	Provider string

	// Bucket is the bucket (container for azure). Default: mdx-files.
	Bucket string

	// Endpoint overrides the service endpoint. For s3 this is the
	// S3-compatible endpoint (e.g. https://<ref>.supabase.co/storage/v1/s3),
	// for azure the account URL. Supabase uses supabase_url from secrets.
	Endpoint string

	// Region is used by the s3 provider.
	Region string

	// PublicBaseURL, when set, replaces the provider's public URL prefix.
	PublicBaseURL string

	// MaxRetries is the transport-level retry count. 0 disables retries.
	MaxRetries int
}

// ProxyConfig holds HTTP proxy settings shared by every provider.
type ProxyConfig struct {
	Mode    string
	Host    string
	Port    int
	User    string
	NoProxy string
	Warmup  bool

	// Password is never written to disk; the CLI prompts for it.
	Password string
}

// LoggingSettings controls log level and file output.
type LoggingSettings struct {
	Level string
	File  bool
}

// Validation errors
var (
	ErrUnknownProvider   = errors.New("storage provider must be one of supabase, s3, azure, memory")
	ErrMissingBucket     = errors.New("storage bucket is required")
	ErrInvalidMaxRetries = fmt.Errorf("max_retries must be between 0 and %d", constants.MaxAllowedRetries)
	ErrUnknownProxyMode  = errors.New("proxy mode must be one of no-proxy, system, basic, ntlm")
	ErrMissingProxyHost  = errors.New("proxy host is required for basic and ntlm modes")
)

// NewSettings returns settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Storage: StorageSettings{
			Provider:   ProviderSupabase,
			Bucket:     constants.DefaultBucket,
			Region:     "us-east-1",
			MaxRetries: constants.DefaultMaxRetries,
		},
		Proxy: ProxyConfig{
			Mode: ProxyModeNone,
			Port: 8080,
		},
		Logging: LoggingSettings{
			Level: "info",
		},
	}
}

// LoadSettings loads settings from an INI file.
// If the file doesn't exist, returns defaults and no error.
// If the file exists but is invalid, returns an error.
func LoadSettings(path string) (*Settings, error) {
	cfg := NewSettings()
	if path == "" {
		path = DefaultSettingsPath()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	storage := iniFile.Section("storage")
	cfg.Storage.Provider = strings.ToLower(storage.Key("provider").MustString(cfg.Storage.Provider))
	cfg.Storage.Bucket = storage.Key("bucket").MustString(cfg.Storage.Bucket)
	cfg.Storage.Endpoint = storage.Key("endpoint").String()
	cfg.Storage.Region = storage.Key("region").MustString(cfg.Storage.Region)
	cfg.Storage.PublicBaseURL = storage.Key("public_base_url").String()
	cfg.Storage.MaxRetries = storage.Key("max_retries").MustInt(cfg.Storage.MaxRetries)

	proxy := iniFile.Section("proxy")
	cfg.Proxy.Mode = strings.ToLower(proxy.Key("mode").MustString(cfg.Proxy.Mode))
	cfg.Proxy.Host = proxy.Key("host").String()
	cfg.Proxy.Port = proxy.Key("port").MustInt(cfg.Proxy.Port)
	cfg.Proxy.User = proxy.Key("user").String()
	cfg.Proxy.NoProxy = proxy.Key("no_proxy").String()
	cfg.Proxy.Warmup = proxy.Key("warmup").MustBool(false)

	logging := iniFile.Section("logging")
	cfg.Logging.Level = logging.Key("level").MustString(cfg.Logging.Level)
	cfg.Logging.File = logging.Key("file").MustBool(false)

	return cfg, nil
}

// SaveSettings writes settings to an INI file atomically with owner-only
// permissions. The proxy password is never saved.
func SaveSettings(cfg *Settings, path string) error {
	if path == "" {
		path = DefaultSettingsPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	storage, err := iniFile.NewSection("storage")
	if err != nil {
		return fmt.Errorf("failed to create storage section: %w", err)
	}
	storage.Key("provider").SetValue(cfg.Storage.Provider)
	storage.Key("bucket").SetValue(cfg.Storage.Bucket)
	storage.Key("endpoint").SetValue(cfg.Storage.Endpoint)
	storage.Key("region").SetValue(cfg.Storage.Region)
	storage.Key("public_base_url").SetValue(cfg.Storage.PublicBaseURL)
	storage.Key("max_retries").SetValue(fmt.Sprintf("%d", cfg.Storage.MaxRetries))

	proxy, err := iniFile.NewSection("proxy")
	if err != nil {
		return fmt.Errorf("failed to create proxy section: %w", err)
	}
	proxy.Key("mode").SetValue(cfg.Proxy.Mode)
	proxy.Key("host").SetValue(cfg.Proxy.Host)
	proxy.Key("port").SetValue(fmt.Sprintf("%d", cfg.Proxy.Port))
	proxy.Key("user").SetValue(cfg.Proxy.User)
	proxy.Key("no_proxy").SetValue(cfg.Proxy.NoProxy)
	proxy.Key("warmup").SetValue(fmt.Sprintf("%t", cfg.Proxy.Warmup))

	logging, err := iniFile.NewSection("logging")
	if err != nil {
		return fmt.Errorf("failed to create logging section: %w", err)
	}
	logging.Key("level").SetValue(cfg.Logging.Level)
	logging.Key("file").SetValue(fmt.Sprintf("%t", cfg.Logging.File))

	// Temporary file + rename for atomicity.
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set settings permissions: %w", err)
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Validate checks the settings for values the application cannot use.
func (cfg *Settings) Validate() error {
	switch cfg.Storage.Provider {
	case ProviderSupabase, ProviderS3, ProviderAzure, ProviderMemory:
	default:
		return fmt.Errorf("%w (got %q)", ErrUnknownProvider, cfg.Storage.Provider)
	}
	if strings.TrimSpace(cfg.Storage.Bucket) == "" {
		return ErrMissingBucket
	}
	if cfg.Storage.MaxRetries < 0 || cfg.Storage.MaxRetries > constants.MaxAllowedRetries {
		return ErrInvalidMaxRetries
	}
	return cfg.Proxy.Validate()
}

// Validate checks the proxy section.
func (p ProxyConfig) Validate() error {
	switch p.Mode {
	case "", ProxyModeNone, ProxyModeSystem:
		return nil
	case ProxyModeBasic, ProxyModeNTLM:
		if strings.TrimSpace(p.Host) == "" {
			return ErrMissingProxyHost
		}
		return nil
	default:
		return fmt.Errorf("%w (got %q)", ErrUnknownProxyMode, p.Mode)
	}
}

// NeedsPassword reports whether an authenticating proxy has a user but no
// password yet, so the CLI has to prompt for it.
func (p ProxyConfig) NeedsPassword() bool {
	mode := strings.ToLower(p.Mode)
	if mode != ProxyModeBasic && mode != ProxyModeNTLM {
		return false
	}
	return p.User != "" && p.Password == ""
}
