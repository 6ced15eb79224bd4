package utils

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

type HTTPClientConfig struct {
	Timeout       time.Duration
	KATimeout     time.Duration
	ProxyURL      string
	ProxyUsername string
	ProxyPassword string
	UserAgent     string
	Headers       map[string]string
}

// HTTPDoer is what sources and fetchers need from a client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type RomHTTPClient struct {
	client *http.Client
	config HTTPClientConfig
}

func NewRomHTTPClient(cfg HTTPClientConfig) *RomHTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	if cfg.KATimeout == 0 {
		cfg.KATimeout = 60 * time.Second
	}
	if cfg.Headers == nil {
		cfg.Headers = make(map[string]string)
	}
	return &RomHTTPClient{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: newTransport(cfg),
		},
		config: cfg,
	}
}

// NewOAuthHTTPClient wraps the configured transport so every request carries a
// token from ts.
func NewOAuthHTTPClient(cfg HTTPClientConfig, ts oauth2.TokenSource) *RomHTTPClient {
	c := NewRomHTTPClient(cfg)
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{
		Timeout:   c.config.Timeout,
		Transport: newTransport(c.config),
	})
	c.client = oauth2.NewClient(ctx, ts)
	c.client.Timeout = c.config.Timeout
	return c
}

func newTransport(cfg HTTPClientConfig) *http.Transport {
	transport := &http.Transport{
		IdleConnTimeout:     cfg.KATimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 16,
	}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err == nil {
			if cfg.ProxyUsername != "" {
				if cfg.ProxyPassword != "" {
					proxyURL.User = url.UserPassword(cfg.ProxyUsername, cfg.ProxyPassword)
				} else {
					proxyURL.User = url.User(cfg.ProxyUsername)
				}
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	return transport
}

// WithTimeout returns a copy of the client using a different overall timeout.
// Download transfers use 0 (no limit) while sources keep the short default.
func (d *RomHTTPClient) WithTimeout(timeout time.Duration) *RomHTTPClient {
	cp := *d
	inner := *d.client
	inner.Timeout = timeout
	cp.client = &inner
	return &cp
}

func (d *RomHTTPClient) Config() HTTPClientConfig {
	return d.config
}

func (d *RomHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if d.config.UserAgent != "" {
		req.Header.Set("User-Agent", d.config.UserAgent)
	} else {
		req.Header.Set("User-Agent", ToolUserAgent)
	}
	for k, v := range d.config.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return d.client.Do(req)
}
