// Package supabase implements storage.Backend on the Supabase Storage
// REST API.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/blogdesk/mdxmanager/internal/cloud/storage"
	"github.com/blogdesk/mdxmanager/internal/constants"
	"github.com/blogdesk/mdxmanager/internal/http"
	"github.com/blogdesk/mdxmanager/internal/logging"
)

// Config configures a Client.
type Config struct {
	// URL is the project URL, e.g. https://<ref>.supabase.co.
	URL string
	// Key is the service-role or anon key sent as bearer token and apikey.
	Key    string
	Bucket string

	// PublicBaseURL replaces {URL}/storage/v1/object/public/{bucket}.
	PublicBaseURL string

	// HTTPClient is the proxy-aware base client. nil uses a default client.
	HTTPClient *nethttp.Client
	MaxRetries int
	Logger     *logging.Logger
}

// Client talks to one bucket.
type Client struct {
	baseURL    string
	key        string
	bucket     string
	publicBase string
	http       *retryablehttp.Client
	logger     *logging.Logger
}

// New validates cfg and returns a Client. No request is made.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.URL, "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid supabase url %q", cfg.URL)
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("supabase key is required")
	}
	if cfg.Bucket == "" {
		cfg.Bucket = constants.DefaultBucket
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &nethttp.Client{}
	}
	logger := logging.OrNop(cfg.Logger)

	publicBase := strings.TrimRight(cfg.PublicBaseURL, "/")
	if publicBase == "" {
		publicBase = base + "/storage/v1/object/public/" + url.PathEscape(cfg.Bucket)
	}

	return &Client{
		baseURL:    base,
		key:        cfg.Key,
		bucket:     cfg.Bucket,
		publicBase: publicBase,
		http:       http.NewRetryClient(httpClient, cfg.MaxRetries, logger),
		logger:     logger,
	}, nil
}

// Name implements storage.Backend.
func (c *Client) Name() string {
	return "supabase:" + c.bucket
}

// listRequest is the body of the list endpoint.
type listRequest struct {
	Prefix string     `json:"prefix"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
	SortBy listSortBy `json:"sortBy"`
}

type listSortBy struct {
	Column string `json:"column"`
	Order  string `json:"order"`
}

// listEntry is one item of a list response. Folders come back with a null
// id and no metadata.
type listEntry struct {
	Name      string  `json:"name"`
	ID        *string `json:"id"`
	UpdatedAt string  `json:"updated_at"`
	Metadata  *struct {
		Size     int64  `json:"size"`
		Mimetype string `json:"mimetype"`
	} `json:"metadata"`
}

// List implements storage.Backend. The endpoint lists one level at a time,
// so folders are walked depth-first; each folder is also returned as a
// placeholder object.
func (c *Client) List(ctx context.Context) ([]storage.Object, error) {
	var out []storage.Object
	if err := c.listPrefix(ctx, "", 0, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) listPrefix(ctx context.Context, prefix string, depth int, out *[]storage.Object) error {
	if depth > constants.MaxListDepth {
		return fmt.Errorf("list %s: folder nesting deeper than %d", prefix, constants.MaxListDepth)
	}
	for offset := 0; ; offset += constants.SupabaseListPageSize {
		entries, err := c.listPage(ctx, prefix, offset)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Name == "" {
				continue
			}
			key := storage.Join(prefix, e.Name)
			if e.ID == nil {
				*out = append(*out, storage.Object{Key: key})
				if err := c.listPrefix(ctx, key, depth+1, out); err != nil {
					return err
				}
				continue
			}
			obj := storage.Object{Key: key, ID: *e.ID, UpdatedAt: e.UpdatedAt}
			if e.Metadata != nil {
				obj.Size = e.Metadata.Size
				obj.ContentType = e.Metadata.Mimetype
			}
			*out = append(*out, obj)
		}
		if len(entries) < constants.SupabaseListPageSize {
			return nil
		}
	}
}

func (c *Client) listPage(ctx context.Context, prefix string, offset int) ([]listEntry, error) {
	body, err := json.Marshal(listRequest{
		Prefix: prefix,
		Limit:  constants.SupabaseListPageSize,
		Offset: offset,
		SortBy: listSortBy{Column: "name", Order: "asc"},
	})
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, nethttp.MethodPost, c.baseURL+"/storage/v1/object/list/"+url.PathEscape(c.bucket), body, "application/json", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", prefix, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, "list", prefix); err != nil {
		return nil, err
	}
	var entries []listEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}
	return entries, nil
}

// Upload implements storage.Backend.
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	return c.write(ctx, nethttp.MethodPost, "upload", key, data, contentType, false)
}

// Update implements storage.Backend.
func (c *Client) Update(ctx context.Context, key string, data []byte, contentType string) error {
	return c.write(ctx, nethttp.MethodPut, "update", key, data, contentType, true)
}

func (c *Client) write(ctx context.Context, method, op, key string, data []byte, contentType string, upsert bool) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if contentType == "" {
		contentType = storage.ContentTypeFor(key)
	}
	headers := map[string]string{
		"x-upsert":      fmt.Sprintf("%t", upsert),
		"Cache-Control": "max-age=3600",
	}
	resp, err := c.do(ctx, method, c.objectURL(key), data, contentType, headers)
	if err != nil {
		return fmt.Errorf("failed to %s %s: %w", op, key, err)
	}
	defer resp.Body.Close()
	return checkStatus(resp, op, key)
}

// Download implements storage.Backend.
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, nethttp.MethodGet, c.objectURL(key), nil, "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, "download", key); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Remove implements storage.Backend.
func (c *Client) Remove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	body, err := json.Marshal(map[string][]string{"prefixes": keys})
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, nethttp.MethodDelete, c.baseURL+"/storage/v1/object/"+url.PathEscape(c.bucket), body, "application/json", nil)
	if err != nil {
		return fmt.Errorf("failed to remove %d object(s): %w", len(keys), err)
	}
	defer resp.Body.Close()
	return checkStatus(resp, "remove", strings.Join(keys, ", "))
}

// PublicURL implements storage.Backend.
func (c *Client) PublicURL(key string) (string, error) {
	if err := storage.ValidateKey(key); err != nil {
		return "", err
	}
	return c.publicBase + "/" + escapeKey(key), nil
}

// Ping lists a single entry of the bucket root.
func (c *Client) Ping(ctx context.Context) error {
	body, _ := json.Marshal(listRequest{Limit: 1, SortBy: listSortBy{Column: "name", Order: "asc"}})
	resp, err := c.do(ctx, nethttp.MethodPost, c.baseURL+"/storage/v1/object/list/"+url.PathEscape(c.bucket), body, "application/json", nil)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	return checkStatus(resp, "ping", "")
}

func (c *Client) objectURL(key string) string {
	return c.baseURL + "/storage/v1/object/" + url.PathEscape(c.bucket) + "/" + escapeKey(key)
}

func (c *Client) do(ctx context.Context, method, u string, body []byte, contentType string, headers map[string]string) (*nethttp.Response, error) {
	var reqBody interface{}
	if body != nil {
		reqBody = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("apikey", c.key)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.logger.Debug().Str("method", method).Str("url", u).Msg("supabase request")
	return c.http.Do(req)
}

// escapeKey escapes each segment of key, keeping the slashes.
func escapeKey(key string) string {
	segs := strings.Split(strings.Trim(key, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// errorBody is the JSON error shape of the storage API.
type errorBody struct {
	StatusCode string `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

func checkStatus(resp *nethttp.Response, op, key string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(raw))
	code := resp.StatusCode

	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil && (eb.Error != "" || eb.Message != "") {
		msg = strings.TrimSpace(eb.Error + ": " + eb.Message)
		// The API reports some conditions as 400 with the real code in the body.
		var bodyCode int
		if _, err := fmt.Sscanf(eb.StatusCode, "%d", &bodyCode); err == nil && bodyCode >= 400 {
			code = bodyCode
		}
	}
	if msg == "" {
		msg = nethttp.StatusText(resp.StatusCode)
	}
	return &storage.StatusError{Op: op, Key: key, StatusCode: code, Message: msg}
}

// Compile-time interface verification
var (
	_ storage.Backend = (*Client)(nil)
	_ storage.Pinger  = (*Client)(nil)
)
