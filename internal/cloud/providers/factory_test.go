package providers

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blogdesk/mdxmanager/internal/cloud/providers/memory"
	"github.com/blogdesk/mdxmanager/internal/config"
	"github.com/blogdesk/mdxmanager/internal/constants"
)

func TestFactory_SelectsProvider(t *testing.T) {
	t.Setenv(constants.TimingEnvVar, "")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials"))
	t.Setenv("AWS_PROFILE", "")
	ctx := context.Background()
	f := NewFactory(nil)

	tests := []struct {
		name     string
		mutate   func(*config.Settings)
		secrets  config.Secrets
		wantName string
	}{
		{
			name:     "supabase",
			mutate:   func(s *config.Settings) {},
			secrets:  config.Secrets{SupabaseURL: "https://abc.supabase.co", SupabaseKey: "k"},
			wantName: "supabase:mdx-files",
		},
		{
			name:     "supabase legacy key",
			mutate:   func(s *config.Settings) { s.Storage.Bucket = "blog" },
			secrets:  config.Secrets{SupabaseURL: "https://abc.supabase.co", LegacyKey: "k"},
			wantName: "supabase:blog",
		},
		{
			name: "s3",
			mutate: func(s *config.Settings) {
				s.Storage.Provider = config.ProviderS3
				s.Storage.Endpoint = "http://localhost:9000"
			},
			secrets:  config.Secrets{S3AccessKeyID: "id", S3SecretAccessKey: "secret"},
			wantName: "s3:mdx-files",
		},
		{
			name: "azure",
			mutate: func(s *config.Settings) {
				s.Storage.Provider = config.ProviderAzure
				s.Storage.Endpoint = "https://acct.blob.core.windows.net"
			},
			secrets:  config.Secrets{AzureSASToken: "sv=1&sig=x"},
			wantName: "azure:mdx-files",
		},
		{
			name:     "memory",
			mutate:   func(s *config.Settings) { s.Storage.Provider = config.ProviderMemory },
			wantName: "memory:mdx-files",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := config.NewSettings()
			tt.mutate(s)
			secrets := tt.secrets
			b, err := f.New(ctx, s, &secrets)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if b.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", b.Name(), tt.wantName)
			}
		})
	}
}

func TestFactory_ValidationErrors(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	s := config.NewSettings()
	if _, err := f.New(ctx, s, &config.Secrets{}); !errors.Is(err, config.ErrMissingSupabaseURL) {
		t.Errorf("missing url: got %v", err)
	}

	s.Storage.Provider = "ftp"
	if _, err := f.New(ctx, s, &config.Secrets{}); !errors.Is(err, config.ErrUnknownProvider) {
		t.Errorf("unknown provider: got %v", err)
	}

	if _, err := f.New(ctx, nil, nil); err == nil {
		t.Error("nil settings should fail")
	}
}

func TestFactory_TimingWrapsBackend(t *testing.T) {
	t.Setenv(constants.TimingEnvVar, "1")
	var out strings.Builder
	f := &Factory{TimingOutput: &out}

	s := config.NewSettings()
	s.Storage.Provider = config.ProviderMemory
	b, err := f.New(context.Background(), s, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.(*memory.Backend); ok {
		t.Fatal("expected a timed wrapper")
	}
	if _, err := b.List(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "[TIMING] memory:mdx-files list:") {
		t.Errorf("timing output = %q", out.String())
	}
}

func TestWarmupURL(t *testing.T) {
	s := config.NewSettings()
	secrets := &config.Secrets{SupabaseURL: "https://abc.supabase.co/"}
	if got := WarmupURL(s, secrets); got != "https://abc.supabase.co" {
		t.Errorf("supabase warmup = %q", got)
	}

	s.Storage.Provider = config.ProviderS3
	s.Storage.Region = "eu-west-1"
	if got := WarmupURL(s, secrets); got != "https://s3.eu-west-1.amazonaws.com" {
		t.Errorf("s3 warmup = %q", got)
	}

	s.Storage.Provider = config.ProviderAzure
	s.Storage.Endpoint = "https://acct.blob.core.windows.net/?sig=x"
	if got := WarmupURL(s, secrets); got != "https://acct.blob.core.windows.net/" {
		t.Errorf("azure warmup = %q", got)
	}
}
