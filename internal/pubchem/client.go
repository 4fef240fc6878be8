// Package pubchem provides a minimal client for the PubChem PUG REST API.
package pubchem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the public PUG REST root.
	DefaultBaseURL = "https://pubchem.ncbi.nlm.nih.gov/rest/pug"
	// DefaultUserAgent identifies this server to PubChem.
	DefaultUserAgent = "pubchem-mcp/0.1.0"

	maxBodyBytes = 16 << 20
)

// Client is a minimal HTTP client for PUG REST lookups.
type Client struct {
	BaseURL   string
	UserAgent string
	HTTP      *http.Client
}

// New returns a new client. If httpClient is nil, a default with 10s timeout is used.
func New(baseURL, userAgent string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), UserAgent: userAgent, HTTP: httpClient}
}

// Get performs a single GET against base+path and returns the raw response body.
// Non-2xx responses come back as *StatusError, network failures as *TransportError.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqURL, err := c.buildURL(path, query)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &TransportError{URL: reqURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{URL: reqURL, Err: fmt.Errorf("read body: %w", err)}
	}
	log.Debug().
		Str("url", reqURL).
		Int("status", resp.StatusCode).
		Str("size", humanize.Bytes(uint64(len(body)))).
		Dur("duration", time.Since(start)).
		Msg("pubchem response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(resp.StatusCode, body)
	}
	return body, nil
}

// buildURL joins the base URL with an already-escaped path and encodes the query.
func (c *Client) buildURL(path string, query url.Values) (string, error) {
	u, err := url.Parse(c.BaseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}
