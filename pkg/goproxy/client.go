package goproxy

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"
)

const (
	defaultProxy      = "https://proxy.golang.org,direct"
	httpClientTimeout = 30 * time.Second
	defaultUserAgent  = "breakcheck/0.1.0"
)

// Client talks to the Go module proxy chain.
type Client struct {
	httpClient *http.Client
	userAgent  string
	proxies    []string
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithProxies replaces the proxy chain taken from GOPROXY.
func WithProxies(proxies ...string) Option {
	return func(c *Client) { c.proxies = proxies }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used to report skipped proxies.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a Client whose proxy chain comes from the GOPROXY
// environment variable, defaulting to "https://proxy.golang.org,direct".
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: httpClientTimeout},
		userAgent:  defaultUserAgent,
		proxies:    parseGOPROXY(os.Getenv("GOPROXY")),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// parseGOPROXY splits a comma- or pipe-separated GOPROXY value.
func parseGOPROXY(value string) []string {
	if strings.TrimSpace(value) == "" {
		value = defaultProxy
	}
	var proxies []string
	for _, p := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '|' }) {
		if p = strings.TrimSpace(p); p != "" {
			proxies = append(proxies, strings.TrimRight(p, "/"))
		}
	}
	return proxies
}

// DownloadZip fetches the zip archive for the given module and version.
func (c *Client) DownloadZip(ctx context.Context, mod, version string) ([]byte, error) {
	escapedVersion, err := module.EscapeVersion(version)
	if err != nil {
		return nil, fmt.Errorf("escaping version %q: %w", version, err)
	}
	data, err := c.get(ctx, mod, "@v/"+escapedVersion+".zip")
	if err != nil {
		return nil, fmt.Errorf("downloading %s@%s: %w", mod, version, err)
	}
	return data, nil
}

// ListVersions returns the published release versions of mod in ascending
// semver order.
func (c *Client) ListVersions(ctx context.Context, mod string) ([]string, error) {
	data, err := c.get(ctx, mod, "@v/list")
	if err != nil {
		return nil, fmt.Errorf("listing versions of %s: %w", mod, err)
	}

	var versions []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		v := strings.TrimSpace(sc.Text())
		if semver.IsValid(v) && semver.Prerelease(v) == "" {
			versions = append(versions, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading version list of %s: %w", mod, err)
	}
	semver.Sort(versions)
	return slices.Compact(versions), nil
}

// PreviousVersion returns the highest release of mod below current, or the
// highest release when current is empty.
func (c *Client) PreviousVersion(ctx context.Context, mod, current string) (string, error) {
	versions, err := c.ListVersions(ctx, mod)
	if err != nil {
		return "", err
	}
	if current != "" && !strings.HasPrefix(current, "v") {
		current = "v" + current
	}
	if current != "" && !semver.IsValid(current) {
		return "", fmt.Errorf("current version %q of %s is not a semantic version", current, mod)
	}
	for i := len(versions) - 1; i >= 0; i-- {
		if current == "" || semver.Compare(versions[i], current) < 0 {
			return versions[i], nil
		}
	}
	if current == "" {
		return "", fmt.Errorf("module %s has no published releases", mod)
	}
	return "", fmt.Errorf("module %s has no release before %s", mod, current)
}

// get requests path relative to the module's proxy root, walking the proxy
// chain while proxies report the module missing.
func (c *Client) get(ctx context.Context, mod, path string) ([]byte, error) {
	escapedMod, err := module.EscapePath(mod)
	if err != nil {
		return nil, fmt.Errorf("escaping module path %q: %w", mod, err)
	}

	var lastErr error
	for _, proxy := range c.proxies {
		switch proxy {
		case "direct":
			c.logger.Debug("goproxy: direct mode not supported, skipping")
			continue
		case "off":
			c.logger.Debug("goproxy: proxy chain contains 'off', stopping")
			return nil, fmt.Errorf("module lookup disabled by GOPROXY=off")
		}

		data, tryNext, fetchErr := c.fetch(ctx, proxy+"/"+escapedMod+"/"+path)
		if fetchErr == nil {
			return data, nil
		}
		if !tryNext {
			return nil, fetchErr
		}
		lastErr = fetchErr
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("no usable proxy in chain")
}

// fetch performs a single HTTP GET for the given URL.
// tryNext signals that the caller should attempt the next proxy in the chain.
func (c *Client) fetch(ctx context.Context, url string) (data []byte, tryNext bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return nil, true, fmt.Errorf("proxy returned %d for %s", resp.StatusCode, url)
	default:
		return nil, false, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("reading response body from %s: %w", url, err)
	}
	return data, false, nil
}
