// Copyright (c) 2025 BVK Chaitanya

package steam

import (
	"fmt"
	"net/url"
	"os"
	"time"
)

var (
	APIURL = url.URL{
		Scheme: "https",
		Host:   "api.steampowered.com",
	}

	CommunityURL = url.URL{
		Scheme: "https",
		Host:   "steamcommunity.com",
	}
)

type Options struct {
	// URLs for the Web API and Steam Community endpoints.
	APIURL       string
	CommunityURL string

	// HttpClientTimeout is the timeout for a single http request.
	HttpClientTimeout time.Duration

	// RequestsPerSecond and RequestBurst limit the request rate to Steam
	// endpoints.
	RequestsPerSecond float64
	RequestBurst      int

	// DeviceFriendlyName is reported to Steam when a new login session is
	// created.
	DeviceFriendlyName string

	// PollInterval and PollTimeout control waiting for the authentication
	// session to issue tokens.
	PollInterval time.Duration
	PollTimeout  time.Duration
}

func (v *Options) setDefaults() {
	if v.APIURL == "" {
		v.APIURL = APIURL.String()
	}
	if v.CommunityURL == "" {
		v.CommunityURL = CommunityURL.String()
	}
	if v.HttpClientTimeout == 0 {
		v.HttpClientTimeout = 30 * time.Second
	}
	if v.RequestsPerSecond == 0 {
		v.RequestsPerSecond = 2
	}
	if v.RequestBurst == 0 {
		v.RequestBurst = 5
	}
	if v.DeviceFriendlyName == "" {
		v.DeviceFriendlyName = "steambot"
	}
	if v.PollInterval == 0 {
		v.PollInterval = time.Second
	}
	if v.PollTimeout == 0 {
		v.PollTimeout = 20 * time.Second
	}
}

// Check validates the options.
func (v *Options) Check() error {
	for _, s := range []string{v.APIURL, v.CommunityURL} {
		u, err := url.Parse(s)
		if err != nil {
			return fmt.Errorf("could not parse url %q: %w", s, err)
		}
		if u.Scheme != "https" && u.Scheme != "http" {
			return fmt.Errorf("url %q must use http or https scheme: %w", s, os.ErrInvalid)
		}
	}
	if v.RequestsPerSecond < 0 || v.RequestBurst < 0 {
		return fmt.Errorf("request rate limits cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}
