// Copyright (c) 2023 BVK Chaitanya

package httputil

import (
	"fmt"
	"os"
	"time"
)

type Options struct {
	// ServerCheckTimeout holds the http client timeout when checking for the
	// http server initialization.
	ServerCheckTimeout time.Duration

	// ServerCheckRetryInterval holds the amount of time to wait to check for
	// the http server readiness.
	ServerCheckRetryInterval time.Duration

	// ReadHeaderTimeout limits the time to read request headers.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout is the graceful shutdown limit used by Stop.
	ShutdownTimeout time.Duration
}

func (v *Options) setDefaults() {
	if v.ServerCheckTimeout == 0 {
		v.ServerCheckTimeout = 10 * time.Second
	}
	if v.ServerCheckRetryInterval == 0 {
		v.ServerCheckRetryInterval = time.Second
	}
	if v.ReadHeaderTimeout == 0 {
		v.ReadHeaderTimeout = 10 * time.Second
	}
	if v.ShutdownTimeout == 0 {
		v.ShutdownTimeout = 5 * time.Second
	}
}

func (v *Options) Check() error {
	if v.ServerCheckRetryInterval > v.ServerCheckTimeout {
		return fmt.Errorf("server check retry interval cannot be larger than the timeout: %w", os.ErrInvalid)
	}
	return nil
}
