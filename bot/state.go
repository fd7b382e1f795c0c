// Copyright (c) 2025 BVK Chaitanya

package bot

import (
	"time"
)

type State int

const (
	StateLoggedOut State = iota
	StateAuthenticating
	StateLoggedIn
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "logged-out"
	case StateAuthenticating:
		return "authenticating"
	case StateLoggedIn:
		return "logged-in"
	case StateReconnecting:
		return "reconnecting"
	}
	return "unknown"
}

// Status is a point-in-time snapshot of the connection manager.
type Status struct {
	State State

	CooldownRemaining time.Duration

	// SessionAge is the time since the current web session was established.
	// Zero when there is no session.
	SessionAge time.Duration

	SteamID     uint64
	AccountName string
	PersonaName string

	LastLoginAttempt  time.Time
	ReconnectingSince time.Time

	LastError string
}

func (s *Status) IsLoggedIn() bool {
	return s.State == StateLoggedIn
}

// Event is published on every state change and for operator alerts.
type Event struct {
	At     time.Time
	Status *Status

	// Alert is a non-empty message when the event needs operator attention.
	Alert string
}
