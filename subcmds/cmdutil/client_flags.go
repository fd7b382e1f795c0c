// Copyright (c) 2023 BVK Chaitanya

package cmdutil

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/bvk/steambot/api"
)

// PortEnvKey names the environment variable with the default api port.
const PortEnvKey = "STEAMBOT_SERVER_PORT"

type ClientFlags struct {
	port        int
	Host        string
	APIPath     string
	HTTPTimeout time.Duration
}

func (cf *ClientFlags) SetFlags(fset *flag.FlagSet) {
	fset.IntVar(&cf.port, "connect-port", 0, "TCP port number for the api endpoint (default=10000 or "+PortEnvKey+" value)")
	fset.StringVar(&cf.Host, "connect-host", "127.0.0.1", "Hostname or IP address for the api endpoint")
	fset.StringVar(&cf.APIPath, "api-path", "/", "base path to the api handler")
	fset.DurationVar(&cf.HTTPTimeout, "http-timeout", 2*time.Minute, "http client timeout")
}

func (cf *ClientFlags) Port() int {
	if cf.port != 0 {
		return cf.port
	}
	if v := os.Getenv(PortEnvKey); len(v) != 0 {
		if port, err := strconv.ParseInt(v, 10, 32); err == nil && port > 0 && port < 65536 {
			return int(port)
		}
	}
	return 10000
}

func (cf *ClientFlags) AddressURL() *url.URL {
	return &url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(cf.Host, fmt.Sprintf("%d", cf.Port())),
		Path:   cf.APIPath,
	}
}

// WebsocketURL returns the websocket url for the subpath.
func (cf *ClientFlags) WebsocketURL(subpath string) *url.URL {
	u := cf.AddressURL()
	u.Scheme = "ws"
	u.Path = path.Join(u.Path, subpath)
	return u
}

func (cf *ClientFlags) HttpClient() *http.Client {
	return &http.Client{
		Timeout: cf.HTTPTimeout,
	}
}

// decodeResponse decodes successful responses into RESP and failure
// responses into an error with the server's message.
func decodeResponse[RESP any](resp *http.Response) (*RESP, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			api.ErrorResponse
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &e); err == nil {
			msg := e.Error
			if len(msg) == 0 {
				msg = e.Message
			}
			if len(e.RemoteCode) != 0 {
				return nil, fmt.Errorf("http status code %d: %s (code %s, remote code %s)", resp.StatusCode, msg, e.Code, e.RemoteCode)
			}
			if len(msg) != 0 {
				return nil, fmt.Errorf("http status code %d: %s (code %s)", resp.StatusCode, msg, e.Code)
			}
		}
		return nil, fmt.Errorf("http status code %d: %s", resp.StatusCode, data)
	}
	response := new(RESP)
	if err := json.Unmarshal(data, response); err != nil {
		return nil, err
	}
	return response, nil
}

func Post[RESP, REQ any](ctx context.Context, cf *ClientFlags, subpath string, req *REQ) (*RESP, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	addrURL := cf.AddressURL()
	addrURL.Path = path.Join(addrURL.Path, subpath)
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, addrURL.String(), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	r.Header.Set("content-type", "application/json")

	client := cf.HttpClient()
	resp, err := client.Do(r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeResponse[RESP](resp)
}

func Get[RESP any](ctx context.Context, cf *ClientFlags, subpath string) (*RESP, error) {
	addrURL := cf.AddressURL()
	addrURL.Path = path.Join(addrURL.Path, subpath)
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, addrURL.String(), nil)
	if err != nil {
		return nil, err
	}

	client := cf.HttpClient()
	resp, err := client.Do(r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeResponse[RESP](resp)
}
