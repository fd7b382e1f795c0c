// Copyright (c) 2025 BVK Chaitanya

package bot

import (
	"errors"
	"fmt"
	"time"

	"github.com/bvk/steambot/steam"
)

var (
	// ErrCooldown is matched by *CooldownError values.
	ErrCooldown = errors.New("login cooldown is active")

	ErrNotAuthenticated = errors.New("bot is not logged in")

	ErrAlreadyInProgress = errors.New("another login attempt is in progress")

	// ErrCodeRequired is returned when there is no saved session and no
	// one-time code to perform an interactive login.
	ErrCodeRequired = fmt.Errorf("one-time code is required: %w", steam.ErrInvalidCredentials)

	// ErrInterrupted is returned by a login that completed after a logout.
	ErrInterrupted = errors.New("login was interrupted by logout")
)

// CooldownError is returned for login attempts made inside the cooldown
// window.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("login cooldown is active; retry after %s", e.Remaining.Round(time.Millisecond))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldown
}
