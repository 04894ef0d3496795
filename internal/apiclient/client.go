// Package apiclient is the authenticated request pipeline every API call goes
// through: bearer credentials, one refresh-and-retry on 401, offline queueing of
// mutations, and JSON decoding.
package apiclient

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"fuelcoach-go/internal/config"
	"fuelcoach-go/internal/constants"
	"fuelcoach-go/internal/credential"
	"fuelcoach-go/internal/events"
	"fuelcoach-go/internal/offline"
	"fuelcoach-go/internal/session"
	"fuelcoach-go/internal/upload"
)

// refreshKey is the coordinator key shared by every refresh of this client.
const refreshKey = "refresh"

type Client struct {
	baseURL     string
	refreshPath string
	userAgent   string
	cli         *http.Client
	store       credential.Store
	queue       *offline.Queue
	notifier    *session.Notifier
	events      events.Publisher
	coordinator credential.RefreshCoordinator
	uploads     *upload.Adapter
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(cli *http.Client) Option {
	return func(c *Client) {
		if cli != nil {
			c.cli = cli
		}
	}
}

// WithQueue enables offline queueing of mutating requests.
func WithQueue(q *offline.Queue) Option {
	return func(c *Client) { c.queue = q }
}

// WithNotifier sets who hears about invalidated sessions.
func WithNotifier(n *session.Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

func WithEventPublisher(p events.Publisher) Option {
	return func(c *Client) { c.events = p }
}

// WithRefreshCoalescing makes concurrent 401s share one refresh call.
func WithRefreshCoalescing(coord credential.RefreshCoordinator) Option {
	return func(c *Client) {
		if coord == nil {
			coord = credential.NewSingleflightCoordinator()
		}
		c.coordinator = coord
	}
}

func WithUploadAdapter(a *upload.Adapter) Option {
	return func(c *Client) {
		if a != nil {
			c.uploads = a
		}
	}
}

func WithRefreshPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.refreshPath = path
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, store credential.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		refreshPath: constants.RefreshPath,
		userAgent:   constants.DefaultUserAgent,
		cli:         newHTTPClient(""),
		store:       store,
		uploads:     upload.NewAdapter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig resolves the base URL and transport settings from cfg.
func NewFromConfig(cfg *config.Config, store credential.Store, opts ...Option) (*Client, error) {
	base, err := cfg.ResolveBaseURL()
	if err != nil {
		return nil, fmt.Errorf("resolve api base url: %w", err)
	}
	defaults := []Option{
		WithHTTPClient(newHTTPClient(cfg.API.ProxyURL)),
		WithRefreshPath(cfg.API.RefreshPath),
		WithUserAgent(cfg.API.UserAgent),
	}
	if cfg.API.CoalesceRefresh {
		defaults = append(defaults, WithRefreshCoalescing(nil))
	}
	return New(base, store, append(defaults, opts...)...), nil
}

// BaseURL returns the API root requests are issued against.
func (c *Client) BaseURL() string { return c.baseURL }

// Store returns the credential store the client reads and rotates.
func (c *Client) Store() credential.Store { return c.store }

// Queue returns the offline queue, or nil when queueing is disabled.
func (c *Client) Queue() *offline.Queue { return c.queue }

// newHTTPClient has no overall timeout: requests run until the context or the
// transport gives up.
func newHTTPClient(proxyURL string) *http.Client {
	tr := &http.Transport{
		Proxy: getProxyFunc(proxyURL),
		DialContext: (&net.Dialer{
			Timeout:   constants.DefaultDialTimeout,
			KeepAlive: constants.DefaultKeepAlive,
		}).DialContext,
		TLSHandshakeTimeout: constants.DefaultTLSHandshakeTimeout,
		MaxIdleConns:        constants.DefaultMaxIdleConns,
		IdleConnTimeout:     constants.DefaultIdleConnTimeout,
	}
	return &http.Client{Transport: tr}
}

// getProxyFunc returns appropriate proxy function based on configuration
func getProxyFunc(proxyURL string) func(*http.Request) (*url.URL, error) {
	if proxyURL != "" {
		if parsedURL, err := url.Parse(proxyURL); err == nil {
			return http.ProxyURL(parsedURL)
		}
	}
	return http.ProxyFromEnvironment
}
