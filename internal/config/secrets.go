package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Secrets holds the credentials read from secrets.json.
//
//	{
//	  "supabase_url": "https://<ref>.supabase.co",
//	  "supabase_key": "<service role or anon key>",
//	  "s3_access_key_id": "...",
//	  "s3_secret_access_key": "...",
//	  "azure_sas_token": "..."
//	}
//
// Older files name the key "firestore_key"; it is accepted as an alias.
type Secrets struct {
	SupabaseURL       string `json:"supabase_url"`
	SupabaseKey       string `json:"supabase_key,omitempty"`
	LegacyKey         string `json:"firestore_key,omitempty"`
	S3AccessKeyID     string `json:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `json:"s3_secret_access_key,omitempty"`
	AzureSASToken     string `json:"azure_sas_token,omitempty"`
}

// Secrets validation errors
var (
	ErrSecretsNotFound     = errors.New("secrets file not found")
	ErrMissingSupabaseURL  = errors.New("supabase_url is required")
	ErrMissingSupabaseKey  = errors.New("supabase_key (or firestore_key) is required")
	ErrMissingS3Keys       = errors.New("s3_access_key_id and s3_secret_access_key are required")
	ErrMissingAzureAccount = errors.New("azure needs the account endpoint in settings")
)

// LoadSecrets reads and parses the secrets file. A missing or malformed
// file is an error; the caller treats it as fatal.
func LoadSecrets(path string) (*Secrets, error) {
	if path == "" {
		path = DefaultSecretsPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSecretsNotFound, path)
		}
		return nil, fmt.Errorf("failed to read secrets: %w", err)
	}
	var s Secrets
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse secrets %s: %w", path, err)
	}
	s.SupabaseURL = strings.TrimRight(strings.TrimSpace(s.SupabaseURL), "/")
	return &s, nil
}

// SaveSecrets writes the secrets file with owner-only permissions.
func SaveSecrets(s *Secrets, path string) error {
	if path == "" {
		path = DefaultSecretsPath()
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode secrets: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write secrets: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save secrets: %w", err)
	}
	return nil
}

// APIKey returns the Supabase key, falling back to the legacy field name.
func (s *Secrets) APIKey() string {
	if s.SupabaseKey != "" {
		return s.SupabaseKey
	}
	return s.LegacyKey
}

// ValidateFor checks that the secrets carry what the provider needs.
func (s *Secrets) ValidateFor(settings *Settings) error {
	switch settings.Storage.Provider {
	case ProviderSupabase:
		if s.SupabaseURL == "" {
			return ErrMissingSupabaseURL
		}
		if s.APIKey() == "" {
			return ErrMissingSupabaseKey
		}
	case ProviderS3:
		if s.S3AccessKeyID == "" || s.S3SecretAccessKey == "" {
			return ErrMissingS3Keys
		}
	case ProviderAzure:
		if settings.Storage.Endpoint == "" {
			return ErrMissingAzureAccount
		}
	}
	return nil
}

// IsSupabaseURL reports whether url looks like a hosted Supabase project
// URL (https and a supabase.co host). Self-hosted deployments fail this
// check; callers only warn on it.
func IsSupabaseURL(url string) bool {
	return strings.HasPrefix(url, "https://") && strings.Contains(url, "supabase.co")
}

// Redact shortens a credential for display.
func Redact(secret string) string {
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", 8) + secret[len(secret)-4:]
}
