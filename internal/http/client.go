package http

import (
	"crypto/tls"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/blogdesk/mdxmanager/internal/config"
	"github.com/blogdesk/mdxmanager/internal/logging"
)

// NewClient returns the base HTTP client for storage providers: proxy
// aware, HTTP/2 enabled when talking directly, HTTP/1.1 through proxies.
//
// No overall client timeout is set; documents are small and operations are
// bounded by the transport's dial, TLS and response-header timeouts.
func NewClient(cfg config.ProxyConfig, warmupURL string, logger *logging.Logger) (*nethttp.Client, error) {
	client, err := ConfigureHTTPClient(cfg, warmupURL, logger)
	if err != nil {
		return nil, err
	}

	tr, ok := client.Transport.(*nethttp.Transport)
	if !ok {
		// NTLM wraps the transport in a negotiator; leave it as is.
		return client, nil
	}

	tr.ForceAttemptHTTP2 = true
	_ = http2.ConfigureTransport(tr)

	if proxyActive(cfg) && os.Getenv("FORCE_HTTP2") != "true" {
		// Proxies often break HTTP/2 multiplexing mid-stream.
		disableHTTP2(tr)
	}
	if os.Getenv("DISABLE_HTTP2") == "true" {
		disableHTTP2(tr)
	}

	client.Transport = tr
	return client, nil
}

func disableHTTP2(tr *nethttp.Transport) {
	tr.ForceAttemptHTTP2 = false
	tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
}

func proxyActive(cfg config.ProxyConfig) bool {
	switch cfg.Mode {
	case config.ProxyModeNone, "":
		return false
	case config.ProxyModeSystem:
		return os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
			os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
	default:
		return cfg.Host != ""
	}
}
