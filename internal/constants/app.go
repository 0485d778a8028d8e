// Package constants holds application-wide names, limits and timeouts.
package constants

import "time"

// Application identity
const (
	// AppName is the binary and window title.
	AppName = "mdxmanager"

	// AppDisplayName is shown in the GUI title bar and about text.
	AppDisplayName = "MDX File Manager"

	// ConfigDirName is the directory under the user config dir.
	ConfigDirName = "mdxmanager"

	// DebugEnvVar enables debug logging when set to a non-empty value.
	DebugEnvVar = "MDXMANAGER_DEBUG"

	// TimingEnvVar prints per-call storage timings to stderr when set to "1".
	TimingEnvVar = "MDXMANAGER_TIMING"
)

// Storage layout
const (
	// DefaultBucket is the bucket (or container) holding every document.
	DefaultBucket = "mdx-files"

	// EmptyFolderSentinel is the file name uploaded to keep an empty folder
	// alive. Objects whose key ends with it are never shown as files.
	EmptyFolderSentinel = ".emptyFolderPlaceholder"

	// DefaultRemoteFolder is where uploads land when no folder is chosen.
	DefaultRemoteFolder = "posts"

	// MarkdownContentType is sent for .md and .mdx uploads.
	MarkdownContentType = "text/markdown"

	// SupabaseListPageSize is the page size for the storage list endpoint.
	SupabaseListPageSize = 1000

	// MaxListDepth bounds recursive listing so a misbehaving server
	// cannot make the walk run forever.
	MaxListDepth = 64
)

// Tree rendering limits.
const (
	// TreeRebuildSoftLimit is the bucket size up to which rebuilding the
	// tree synchronously on the UI thread stays unnoticeable. Above it a
	// warning is logged once per refresh.
	TreeRebuildSoftLimit = 2000
)

// Event bus
const (
	// EventBusDefaultBuffer is the default buffer size for event channels.
	EventBusDefaultBuffer = 256

	// EventBusMaxBuffer caps the buffer size requested by callers.
	EventBusMaxBuffer = 4096

	// ResultQueueBuffer is the capacity of the worker result queue.
	ResultQueueBuffer = 64
)

// Retry configuration for the HTTP transport.
const (
	// RetryInitialDelay is the initial delay before the first retry.
	RetryInitialDelay = 200 * time.Millisecond

	// RetryMaxDelay is the maximum delay between retries.
	RetryMaxDelay = 15 * time.Second

	// DefaultMaxRetries is zero: operations fail on the first error and
	// the user retries by hand.
	DefaultMaxRetries = 0

	// MaxAllowedRetries caps max_retries from the settings file.
	MaxAllowedRetries = 10
)

// HTTP client timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open.
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake.
	HTTPTLSHandshakeTimeout = 30 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response.
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing a connection.
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for the dialer.
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPResponseHeaderTimeout bounds the wait for response headers.
	HTTPResponseHeaderTimeout = 60 * time.Second

	// HTTPMaxIdleConnsPerHost - idle connections kept per host.
	HTTPMaxIdleConnsPerHost = 8

	// ProxyWarmupTimeout bounds the optional proxy warmup request.
	ProxyWarmupTimeout = 10 * time.Second
)

// Logging
const (
	// LogFileName is the rotating log file inside the log directory.
	LogFileName = "mdxmanager.log"

	// LogMaxSizeMB is the size at which the log file rotates.
	LogMaxSizeMB = 10

	// LogMaxBackups is the number of rotated files kept.
	LogMaxBackups = 5

	// LogMaxAgeDays is the age after which rotated files are removed.
	LogMaxAgeDays = 30
)
