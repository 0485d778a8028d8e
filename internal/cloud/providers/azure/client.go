// Package azure implements storage.Backend on an Azure Blob Storage
// container authorized with a SAS token.
package azure

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/blogdesk/mdxmanager/internal/cloud/storage"
	"github.com/blogdesk/mdxmanager/internal/constants"
	"github.com/blogdesk/mdxmanager/internal/logging"
)

// Config configures a Client.
type Config struct {
	// AccountURL is the blob service URL, e.g. https://acct.blob.core.windows.net.
	// It may already carry the SAS token as its query.
	AccountURL string
	SASToken   string
	Container  string

	// PublicBaseURL replaces {AccountURL}/{Container}.
	PublicBaseURL string

	HTTPClient *nethttp.Client
	MaxRetries int
	Logger     *logging.Logger
}

// Client wraps an azblob.Client bound to one container.
type Client struct {
	client     *azblob.Client
	container  string
	publicBase string
	logger     *logging.Logger
}

// New builds the SAS service URL and the azblob client. No request is made.
func New(cfg Config) (*Client, error) {
	if cfg.Container == "" {
		cfg.Container = constants.DefaultBucket
	}
	serviceURL, err := buildSASURL(cfg.AccountURL, cfg.SASToken)
	if err != nil {
		return nil, err
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &nethttp.Client{}
	}

	// azcore treats 0 as "use the default of 3"; negative means no retries.
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = -1
	}

	client, err := azblob.NewClientWithNoCredential(serviceURL, &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: httpClient,
			Retry: policy.RetryOptions{
				MaxRetries:    int32(retries),
				RetryDelay:    constants.RetryInitialDelay,
				MaxRetryDelay: constants.RetryMaxDelay,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}

	publicBase := strings.TrimRight(cfg.PublicBaseURL, "/")
	if publicBase == "" {
		publicBase = stripQuery(serviceURL) + "/" + url.PathEscape(cfg.Container)
	}

	return &Client{
		client:     client,
		container:  cfg.Container,
		publicBase: publicBase,
		logger:     logging.OrNop(cfg.Logger),
	}, nil
}

// buildSASURL appends token to accountURL unless the URL already has a query.
func buildSASURL(accountURL, token string) (string, error) {
	accountURL = strings.TrimSpace(accountURL)
	if accountURL == "" {
		return "", fmt.Errorf("azure account URL is required")
	}
	u, err := url.Parse(accountURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid azure account URL %q", accountURL)
	}
	if u.RawQuery != "" {
		return accountURL, nil
	}
	token = strings.TrimPrefix(strings.TrimSpace(token), "?")
	if token == "" {
		return "", fmt.Errorf("azure SAS token is required")
	}
	u.RawQuery = token
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	return u.String(), nil
}

func stripQuery(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimRight(raw, "/")
}

// Name implements storage.Backend.
func (c *Client) Name() string {
	return "azure:" + c.container
}

// List implements storage.Backend. Blob storage has no folders, so only
// files and sentinel blobs are returned.
func (c *Client) List(ctx context.Context) ([]storage.Object, error) {
	var out []storage.Object
	pager := c.client.NewListBlobsFlatPager(c.container, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list container %s: %w", c.container, mapError(err))
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			out = append(out, objectFromBlob(item))
		}
	}
	return out, nil
}

func objectFromBlob(item *container.BlobItem) storage.Object {
	var o storage.Object
	if item.Name != nil {
		o.Key = *item.Name
		o.ID = *item.Name
	}
	if p := item.Properties; p != nil {
		if p.ContentLength != nil {
			o.Size = *p.ContentLength
		}
		if p.ContentType != nil {
			o.ContentType = *p.ContentType
		}
		if p.ETag != nil {
			o.ID = string(*p.ETag)
		}
		if p.LastModified != nil {
			o.UpdatedAt = p.LastModified.UTC().Format(time.RFC3339)
		}
	}
	return o
}

// Upload implements storage.Backend. The write is conditional on the blob
// not existing yet.
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	return c.put(ctx, key, data, contentType, true)
}

// Update implements storage.Backend.
func (c *Client) Update(ctx context.Context, key string, data []byte, contentType string) error {
	return c.put(ctx, key, data, contentType, false)
}

func (c *Client) put(ctx context.Context, key string, data []byte, contentType string, create bool) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if contentType == "" {
		contentType = storage.ContentTypeFor(key)
	}
	opts := &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr(contentType)},
	}
	if create {
		opts.AccessConditions = &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: to.Ptr(azcore.ETagAny)},
		}
	}
	if _, err := c.client.UploadBuffer(ctx, c.container, key, data, opts); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, mapError(err))
	}
	return nil
}

// Download implements storage.Backend.
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	resp, err := c.client.DownloadStream(ctx, c.container, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, mapError(err))
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Remove implements storage.Backend. Blobs that are already gone are not
// an error.
func (c *Client) Remove(ctx context.Context, keys []string) error {
	for _, key := range keys {
		_, err := c.client.DeleteBlob(ctx, c.container, key, nil)
		if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
			return fmt.Errorf("failed to remove %s: %w", key, mapError(err))
		}
	}
	return nil
}

// PublicURL implements storage.Backend. The SAS token is never included.
func (c *Client) PublicURL(key string) (string, error) {
	if err := storage.ValidateKey(key); err != nil {
		return "", err
	}
	segs := strings.Split(strings.Trim(key, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return c.publicBase + "/" + strings.Join(segs, "/"), nil
}

// Ping fetches a single page of at most one blob.
func (c *Client) Ping(ctx context.Context) error {
	pager := c.client.NewListBlobsFlatPager(c.container, &azblob.ListBlobsFlatOptions{MaxResults: to.Ptr(int32(1))})
	if _, err := pager.NextPage(ctx); err != nil {
		return fmt.Errorf("failed to reach container %s: %w", c.container, mapError(err))
	}
	return nil
}

func mapError(err error) error {
	switch {
	case bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet):
		return fmt.Errorf("%w: %v", storage.ErrAlreadyExists, err)
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		return fmt.Errorf("%w: %v", storage.ErrNotFound, err)
	}
	return err
}

// Compile-time interface verification
var (
	_ storage.Backend = (*Client)(nil)
	_ storage.Pinger  = (*Client)(nil)
)
