package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/weather-epd/internal/log"
)

// maxBody bounds a provider response.
const maxBody = 8 << 20

// Client performs provider requests with bounded connect and read timeouts.
type Client struct {
	http *http.Client
}

// NewClient returns a client whose connect and read phases are each
// bounded by timeout.
func NewClient(timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		DisableKeepAlives:     true,
	}
	return &Client{http: &http.Client{Transport: transport, Timeout: 2 * timeout}}
}

// NewClientWith wraps an existing http.Client.
func NewClientWith(c *http.Client) *Client {
	return &Client{http: c}
}

// getJSON fetches rawURL and decodes the body into v. logURL is what gets
// logged, with secrets removed.
func (c *Client) getJSON(ctx context.Context, rawURL, logURL string, v any) error {
	logger := log.WithComponent("fetch")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &Error{Status: SendHeaderFailed, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	logger.Debug().Str("url", logURL).Msg("http request")

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Status: transportStatus(err), Err: redact(err, rawURL, logURL)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return &Error{Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &Error{Status: transportStatus(err), Err: fmt.Errorf("read body: %w", err)}
	}

	if err := json.Unmarshal(body, v); err != nil {
		return &Error{Status: ParseStatus(parseCode(body, err)), Err: err}
	}
	return nil
}

func transportStatus(err error) int {
	var netErr net.Error
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReadTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return ReadTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		return ConnectionRefused
	case errors.As(err, &dnsErr):
		return NoHTTPServer
	case errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.EHOSTUNREACH):
		return NotConnected
	default:
		return ConnectionLost
	}
}

func parseCode(body []byte, err error) int {
	if len(bytes.TrimSpace(body)) == 0 {
		return ParseEmptyInput
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) && syntaxErr.Offset >= int64(len(body)) {
		return ParseIncompleteInput
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return ParseIncompleteInput
	}
	return ParseInvalidInput
}

// redact replaces the secret-bearing URL in err's text with logURL.
func redact(err error, rawURL, logURL string) error {
	if rawURL == logURL {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), rawURL, logURL))
}

// invalid reports a decoded body that lacks required data.
func invalid(format string, args ...any) error {
	return &Error{Status: ParseStatus(ParseInvalidInput), Err: fmt.Errorf(format, args...)}
}
