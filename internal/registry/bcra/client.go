// Package bcra talks to the BCRA Central de Deudores REST API.
package bcra

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"veraz/internal/core"
	"veraz/internal/log"
	"veraz/internal/registry"
)

const (
	historyPath  = "/CentralDeDeudores/v1.0/Deudas/Historicas/"
	maxBodyBytes = 8 << 20
)

type Options struct {
	BaseURL string
	// HostHeader overrides the Host sent upstream, for when BaseURL points
	// at an address instead of api.bcra.gob.ar.
	HostHeader         string
	InsecureSkipVerify bool
	Timeout            time.Duration
	// HTTPClient replaces the pooled client built from the fields above.
	HTTPClient *http.Client
	Logger     *log.Logger
}

type Client struct {
	baseURL *url.URL
	host    string
	http    *http.Client
	logger  *log.Logger
}

var _ registry.Fetcher = (*Client)(nil)

func New(opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid registry base url %q", opts.BaseURL)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient(opts.Timeout, opts.InsecureSkipVerify, opts.HostHeader)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		baseURL: u,
		host:    opts.HostHeader,
		http:    httpClient,
		logger:  logger.WithComponent(log.ComponentRegistry),
	}, nil
}

// newHTTPClient builds a pooled client. When the API is reached by address
// the certificate is still checked against the real host name unless
// verification is turned off.
func newHTTPClient(timeout time.Duration, insecure bool, serverName string) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			ServerName:         serverName,
			InsecureSkipVerify: insecure, //nolint:gosec // opt-in, upstream is reached by IP in some deployments
		},
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// FetchHistory returns the historical debts of cuit.
func (c *Client) FetchHistory(ctx context.Context, cuit string) (core.Report, error) {
	if err := core.ValidateCUIT(cuit); err != nil {
		return core.Report{}, err
	}
	endpoint := c.baseURL.JoinPath(historyPath, cuit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return core.Report{}, fmt.Errorf("build registry request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.host != "" {
		req.Host = c.host
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Registry request failed", log.FieldCUIT, cuit, log.FieldError, err.Error())
		return core.Report{}, fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxBodyBytes)
	c.logger.DebugContext(ctx, "Registry responded",
		log.FieldCUIT, cuit,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return core.Report{}, statusError(resp.StatusCode, body)
	}
	return registry.DecodeReport(cuit, body)
}

// statusError prefers the error payload of the API and falls back to the
// HTTP status when the body is not one.
func statusError(status int, body io.Reader) error {
	_, err := registry.DecodeReport("", body)
	var regErr *registry.Error
	if errors.As(err, &regErr) {
		if regErr.Status == 0 {
			regErr.Status = status
		}
		return regErr
	}
	return &registry.Error{Status: status}
}
