// Copyright (c) 2023 BVK Chaitanya

package server

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bvk/steambot/bot"
	"github.com/bvk/steambot/steam"
	"github.com/bvk/steambot/trade"
)

type Options struct {
	// DataDir is the absolute path to the directory that holds the saved
	// session.
	DataDir string

	// NotifyTimeout is the time budget for delivering an operator alert.
	NotifyTimeout time.Duration

	// PushoverURL overrides the Pushover messages endpoint.
	PushoverURL string

	// NoTelegram disables the Telegram bot even when it is configured.
	NoTelegram bool

	Steam steam.Options
	Bot   bot.Options

	// Trade options are used as given; zero MaxRetries disables retries.
	Trade trade.Options
}

func (v *Options) setDefaults() {
	if v.NotifyTimeout == 0 {
		v.NotifyTimeout = 30 * time.Second
	}
}

func (v *Options) Check() error {
	if !filepath.IsAbs(v.DataDir) {
		return fmt.Errorf("data directory %q must be an absolute path: %w", v.DataDir, os.ErrInvalid)
	}
	if v.NotifyTimeout <= 0 {
		return fmt.Errorf("notify timeout must be positive: %w", os.ErrInvalid)
	}
	return nil
}
