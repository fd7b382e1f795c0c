// Copyright (c) 2025 BVK Chaitanya

package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client talks to the Steam Web API and the Steam Community web endpoints
// on behalf of a single bot account. Web session cookies are kept in the
// client's cookie jar.
type Client struct {
	lifeCtx    context.Context
	lifeCancel context.CancelCauseFunc

	opts Options

	apiURL       *url.URL
	communityURL *url.URL

	jar    *cookiejar.Jar
	client *http.Client

	limiter *rate.Limiter
}

// New returns a client instance.
func New(opts *Options) (*Client, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	apiURL, err := url.Parse(opts.APIURL)
	if err != nil {
		return nil, err
	}
	communityURL, err := url.Parse(opts.CommunityURL)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil /* options */)
	if err != nil {
		slog.Error("could not create cookiejar", "err", err)
		return nil, fmt.Errorf("could not create cookiejar: %w", err)
	}

	lifeCtx, lifeCancel := context.WithCancelCause(context.Background())
	c := &Client{
		lifeCtx:      lifeCtx,
		lifeCancel:   lifeCancel,
		opts:         *opts,
		apiURL:       apiURL,
		communityURL: communityURL,
		jar:          jar,
		client: &http.Client{
			Jar:     jar,
			Timeout: opts.HttpClientTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.RequestBurst),
	}
	return c, nil
}

// Close releases resources and destroys the client instance.
func (c *Client) Close() error {
	c.lifeCancel(os.ErrClosed)
	return nil
}

func (c *Client) apiEndpoint(iface, method string) *url.URL {
	return &url.URL{
		Scheme: c.apiURL.Scheme,
		Host:   c.apiURL.Host,
		Path:   path.Join("/", c.apiURL.Path, iface, method, "v1") + "/",
	}
}

func (c *Client) communityEndpoint(subpath string, values url.Values) *url.URL {
	u := &url.URL{
		Scheme: c.communityURL.Scheme,
		Host:   c.communityURL.Host,
		Path:   path.Join("/", c.communityURL.Path, subpath),
	}
	if values != nil {
		u.RawQuery = values.Encode()
	}
	return u
}

// classifyError maps transport failures into the error taxonomy.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var te interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &te) && te.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrTransientNetwork, err)
}

// do performs an http request after waiting on the rate limiter.
func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := context.Cause(c.lifeCtx); err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: rate limiter: %w", ErrTimeout, err)
	}

	s := time.Now()
	resp, err := c.client.Do(req)
	if d := time.Since(s); d > c.opts.HttpClientTimeout {
		slog.Warn(fmt.Sprintf("%s request took %s which is more than the http client timeout %s", req.Method, d, c.opts.HttpClientTimeout))
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("could not perform http request", "method", req.Method, "url", req.URL.Redacted(), "err", err)
		}
		return nil, classifyError(err)
	}
	return resp, nil
}

// statusError converts unsuccessful http status codes into the error
// taxonomy.
func statusError(op string, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: http status %d: %w", op, resp.StatusCode, ErrTransientNetwork)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s: http status %d: %w", op, resp.StatusCode, ErrTransientNetwork)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: http status %d: %w", op, resp.StatusCode, ErrSessionExpired)
	}
	return fmt.Errorf("%s: http status %d: %w", op, resp.StatusCode, ErrRemoteRejected)
}

// apiCall invokes a Web API method and decodes the response envelope. Result
// code in the X-eresult header is classified with the authentication rules.
func apiCall[T any](ctx context.Context, c *Client, method, iface, fn string, values url.Values) (*T, error) {
	op := iface + "." + fn
	addrURL := c.apiEndpoint(iface, fn)

	var body io.Reader
	if method == http.MethodGet {
		addrURL.RawQuery = values.Encode()
	} else {
		body = strings.NewReader(values.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, addrURL.String(), body)
	if err != nil {
		slog.Error("could not create http request object with context", "method", method, "op", op, "err", err)
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if data, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
			slog.Warn("web api call returned unsuccessful status code", "op", op, "status-code", resp.StatusCode, "body", string(data))
		}
		return nil, statusError(op, resp)
	}

	if v := resp.Header.Get("X-eresult"); len(v) != 0 {
		if code := parseEResult(v); code != EResultOK {
			return nil, newAuthError(op, code, resp.Header.Get("X-error_message"))
		}
	}

	envelope := new(apiResponse[T])
	if err := json.NewDecoder(resp.Body).Decode(envelope); err != nil {
		slog.Error("could not decode web api response to json", "op", op, "err", err)
		return nil, fmt.Errorf("%s: could not decode response: %w", op, ErrTransientNetwork)
	}
	if envelope.Response == nil {
		envelope.Response = new(T)
	}
	return envelope.Response, nil
}

// communityGetJSON performs an authenticated GET request on a community
// endpoint.
func communityGetJSON[PT *T, T any](ctx context.Context, c *Client, op string, addrURL *url.URL, responsePtr PT) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addrURL.String(), nil)
	if err != nil {
		slog.Error("could not create http get request with context", "op", op, "err", err)
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if data, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
			slog.Warn("community get returned unsuccessful status code", "op", op, "status-code", resp.StatusCode, "body", string(data))
		}
		return statusError(op, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(responsePtr); err != nil {
		slog.Error("could not decode community response to json", "op", op, "err", err)
		return fmt.Errorf("%s: could not decode response: %w", op, ErrSessionExpired)
	}
	return nil
}
