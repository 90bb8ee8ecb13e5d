package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds the proxy handshake check.
const checkProxyTimeout = 2 * time.Second

// maxRedirects limits how many redirects a client follows.
const maxRedirects = 5

// SOCKS5 protocol constants.
const (
	socks5Version       = 0x05
	socks5AuthNone      = 0x00
	socks5CmdConnect    = 0x01
	socks5AddrTypeDomID = 0x03
)

// DefaultProbeHost is the host used in the CONNECT request of CheckConnection.
const DefaultProbeHost = "api.github.com"

// Client builds HTTP clients for outbound lookups, optionally routed
// through a SOCKS5 proxy.
type Client struct {
	// proxyAddress is empty for direct connections.
	proxyAddress string

	dialer    proxy.Dialer
	timeout   time.Duration
	userAgent string
	headers   map[string]string
	probeHost string
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent sets the User-Agent injected into requests that do not
// carry one.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHeaders sets extra headers injected into every request, whatever the
// host. Credential headers are dropped; a checker that needs one sets it on
// its own request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = make(map[string]string, len(headers))
		for key, value := range headers {
			if IsCredentialHeader(key) {
				continue
			}
			c.headers[key] = value
		}
	}
}

// IsCredentialHeader reports whether key names a header that carries
// credentials.
func IsCredentialHeader(key string) bool {
	switch http.CanonicalHeaderKey(strings.TrimSpace(key)) {
	case "Authorization", "Proxy-Authorization", "Cookie":
		return true
	}
	return false
}

// WithProbeHost sets the host used to verify the proxy.
func WithProbeHost(host string) Option {
	return func(c *Client) {
		if host != "" {
			c.probeHost = host
		}
	}
}

// NewClient creates a Client. An empty proxyAddress means direct
// connections; otherwise it must be "host:port" of a SOCKS5 proxy.
//
// The proxy is not contacted here. Call CheckConnection to verify it.
func NewClient(proxyAddress string, timeout time.Duration, opts ...Option) (*Client, error) {
	c := &Client{
		proxyAddress: proxyAddress,
		dialer:       proxy.Direct,
		timeout:      timeout,
		probeHost:    DefaultProbeHost,
	}

	if proxyAddress != "" {
		if !isValidProxyAddress(proxyAddress) {
			return nil, ErrInvalidProxyAddress
		}
		dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		c.dialer = dialer
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// isValidProxyAddress reports whether address is host:port with a port
// in 1-65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// ProxyAddress returns the configured proxy address, or "" for direct.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// CheckConnection verifies that the proxy speaks SOCKS5 without
// authentication and answers a CONNECT request. Any SOCKS5 reply to the
// CONNECT counts as success; the probe host does not need to be reachable.
// Direct clients always report ProxyStatusOK.
func (c *Client) CheckConnection(ctx context.Context) ProxyStatus {
	if c.proxyAddress == "" {
		return ProxyStatusOK
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	authResp := make([]byte, 2)
	if _, err := io.ReadFull(conn, authResp); err != nil {
		if isTimeout(err) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}
	if authResp[0] != socks5Version || authResp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}

	if _, err := conn.Write(connectRequest(c.probeHost, 443)); err != nil {
		return ProxyStatusCannotConnect
	}

	connectResp := make([]byte, 4)
	if _, err := io.ReadFull(conn, connectResp); err != nil {
		if isTimeout(err) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}
	if connectResp[0] != socks5Version {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

// connectRequest builds a SOCKS5 CONNECT request for a domain name.
func connectRequest(host string, port uint16) []byte {
	req := []byte{socks5Version, socks5CmdConnect, 0x00, socks5AddrTypeDomID, byte(len(host))}
	req = append(req, host...)
	return append(req, byte(port>>8), byte(port&0xFF))
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// HTTPClient returns a new *http.Client routed through the configured
// dialer, injecting the User-Agent and extra headers.
func (c *Client) HTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext:         c.dialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &http.Client{
		Transport: &headerInjectingTransport{
			base:      transport,
			userAgent: c.userAgent,
			headers:   c.headers,
		},
		Timeout: c.timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

func (c *Client) dialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if cd, ok := c.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}
	return c.dialer.Dial(network, address)
}

// headerInjectingTransport adds the User-Agent and extra headers to every
// request, including redirects. Headers already on the request win.
type headerInjectingTransport struct {
	base      http.RoundTripper
	userAgent string
	headers   map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.userAgent != "" && clone.Header.Get("User-Agent") == "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}
	for key, value := range t.headers {
		if clone.Header.Get(key) == "" {
			clone.Header.Set(key, value)
		}
	}

	return t.base.RoundTrip(clone)
}
