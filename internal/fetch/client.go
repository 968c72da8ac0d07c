package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds the SOCKS5 handshake done by CheckConnection.
const checkProxyTimeout = 2 * time.Second

// maxRedirects is the number of redirects a client follows before it returns
// the last response as is.
const maxRedirects = 10

// SOCKS5 handshake bytes.
const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5AuthNoAccept = 0xFF
)

// Client creates HTTP clients that share one dialer.
type Client struct {
	// proxyAddress is the SOCKS5 proxy in "host:port" form, or empty for
	// direct connections.
	proxyAddress string

	// dialer opens the underlying TCP connections.
	dialer proxy.Dialer

	// timeout is the overall request timeout of created HTTP clients.
	timeout time.Duration
}

// NewClient creates a client. An empty proxyAddress connects directly;
// otherwise every connection goes through the SOCKS5 proxy at proxyAddress.
//
// The proxy is not contacted here. Call CheckConnection to verify it.
func NewClient(proxyAddress string, timeout time.Duration) (*Client, error) {
	if proxyAddress == "" {
		return &Client{dialer: proxy.Direct, timeout: timeout}, nil
	}
	if !isValidProxyAddress(proxyAddress) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, proxyAddress)
	}

	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	return &Client{
		proxyAddress: proxyAddress,
		dialer:       dialer,
		timeout:      timeout,
	}, nil
}

func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// ProxyAddress returns the configured proxy, or an empty string for direct
// connections.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// UsesProxy reports whether connections go through a proxy.
func (c *Client) UsesProxy() bool {
	return c.proxyAddress != ""
}

// DialContext opens a connection to address through the client's dialer.
func (c *Client) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if cd, ok := c.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}

	type dialResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)
	go func() {
		conn, err := c.dialer.Dial(network, address)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case result := <-resultCh:
		return result.conn, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CheckConnection performs a SOCKS5 greeting with the proxy and reports
// whether it answered as a SOCKS5 proxy that needs no authentication.
// It returns nil immediately for direct clients.
func (c *Client) CheckConnection(ctx context.Context) error {
	if !c.UsesProxy() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrProxyTimeout, c.proxyAddress)
		}
		return fmt.Errorf("%w: %s: %v", ErrProxyCannotConnect, c.proxyAddress, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProxyCannotConnect, c.proxyAddress, err)
	}
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProxyCannotConnect, c.proxyAddress, err)
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("%w: %s", ErrProxyTimeout, c.proxyAddress)
		}
		return fmt.Errorf("%w: %s", ErrProxyNotSOCKS5, c.proxyAddress)
	}
	if resp[0] != socks5Version || resp[1] == socks5AuthNoAccept || resp[1] != socks5AuthNone {
		return fmt.Errorf("%w: %s", ErrProxyNotSOCKS5, c.proxyAddress)
	}
	return nil
}

// NewHTTPClient creates an HTTP client whose connections go through the
// client's dialer. It keeps cookies across requests and stops after
// maxRedirects redirects.
func (c *Client) NewHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext:         c.DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}
	if !c.UsesProxy() {
		transport.Proxy = http.ProxyFromEnvironment
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// HTTPClientWithConfig creates an HTTP client that adds cookie and headers to
// every request, including the ones issued for redirects.
// cookie is a raw Cookie header value such as "session_id=abc123".
func (c *Client) HTTPClientWithConfig(cookie string, headers map[string]string) *http.Client {
	client := c.NewHTTPClient()
	if cookie == "" && len(headers) == 0 {
		return client
	}
	client.Transport = &headerInjectingTransport{
		base:    client.Transport,
		cookie:  cookie,
		headers: headers,
	}
	return client
}

// headerInjectingTransport adds a fixed cookie and headers to each request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
