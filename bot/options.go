// Copyright (c) 2025 BVK Chaitanya

package bot

import (
	"fmt"
	"os"
	"time"
)

type Options struct {
	// LoginCooldown is the minimum duration between two login attempts that
	// reach the remote service.
	LoginCooldown time.Duration

	// RenewInterval is the web session renewal period while logged in.
	RenewInterval time.Duration

	// RenewRetryInterval is the wait before retrying a failed renewal.
	RenewRetryInterval time.Duration

	// HeartbeatInterval is the liveness check period while logged in or
	// reconnecting.
	HeartbeatInterval time.Duration

	// ReconnectCeiling is the maximum time spent in reconnecting state before
	// giving up and logging out.
	ReconnectCeiling time.Duration

	// CallTimeout is the time budget for a single remote call.
	CallTimeout time.Duration

	// ConfirmationInterval is the polling period for pending mobile
	// confirmations of the offers sent by this process.
	ConfirmationInterval time.Duration

	// PendingOfferTimeout is how long a sent offer is waiting for its
	// confirmation before it is forgotten.
	PendingOfferTimeout time.Duration
}

func (v *Options) setDefaults() {
	if v.LoginCooldown == 0 {
		v.LoginCooldown = 30 * time.Second
	}
	if v.RenewInterval == 0 {
		v.RenewInterval = 20 * time.Minute
	}
	if v.RenewRetryInterval == 0 {
		v.RenewRetryInterval = time.Minute
	}
	if v.HeartbeatInterval == 0 {
		v.HeartbeatInterval = time.Minute
	}
	if v.ReconnectCeiling == 0 {
		v.ReconnectCeiling = 15 * time.Minute
	}
	if v.CallTimeout == 0 {
		v.CallTimeout = 30 * time.Second
	}
	if v.ConfirmationInterval == 0 {
		v.ConfirmationInterval = 30 * time.Second
	}
	if v.PendingOfferTimeout == 0 {
		v.PendingOfferTimeout = time.Hour
	}
}

func (v *Options) Check() error {
	if v.LoginCooldown < 0 {
		return fmt.Errorf("login cooldown cannot be negative: %w", os.ErrInvalid)
	}
	if v.RenewInterval <= 0 || v.RenewRetryInterval <= 0 {
		return fmt.Errorf("renewal intervals must be positive: %w", os.ErrInvalid)
	}
	if v.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive: %w", os.ErrInvalid)
	}
	if v.ReconnectCeiling < v.HeartbeatInterval {
		return fmt.Errorf("reconnect ceiling %s cannot be smaller than the heartbeat interval %s: %w", v.ReconnectCeiling, v.HeartbeatInterval, os.ErrInvalid)
	}
	if v.CallTimeout <= 0 {
		return fmt.Errorf("call timeout must be positive: %w", os.ErrInvalid)
	}
	if v.ConfirmationInterval <= 0 || v.PendingOfferTimeout <= 0 {
		return fmt.Errorf("confirmation intervals must be positive: %w", os.ErrInvalid)
	}
	return nil
}
