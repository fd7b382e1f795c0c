// Copyright (c) 2025 BVK Chaitanya

package api

import (
	"time"
)

const (
	AuthenticatePath = "/bot/authenticate"
	StatusPath       = "/bot/status"
	LogoutPath       = "/bot/logout"
	EventsPath       = "/bot/events"
	HealthPath       = "/bot/health"
	TradePath        = "/trade"
)

type AuthenticateRequest struct {
	OneTimeCode   string `json:"oneTimeCode"`
	AdminPassword string `json:"adminPassword"`
}

type AuthenticateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`

	CooldownRemainingMs int64 `json:"cooldownRemainingMs,omitempty"`
}

type StatusResponse struct {
	IsLoggedIn          bool   `json:"isLoggedIn"`
	CooldownRemainingMs int64  `json:"cooldownRemainingMs"`
	SessionActive       bool   `json:"sessionActive"`
	SteamIdentity       string `json:"steamIdentity,omitempty"`
	PersonaName         string `json:"personaName,omitempty"`

	State             string `json:"state"`
	SessionAgeSeconds int64  `json:"sessionAgeSeconds"`
	AccountName       string `json:"accountName,omitempty"`

	LastLoginAttempt  *time.Time `json:"lastLoginAttempt,omitempty"`
	ReconnectingSince *time.Time `json:"reconnectingSince,omitempty"`

	LastError string `json:"lastError,omitempty"`
}

type LogoutRequest struct {
	AdminPassword string `json:"adminPassword"`
}

type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// EventMessage is sent over the events websocket for every bot state change.
type EventMessage struct {
	At     time.Time       `json:"at"`
	Status *StatusResponse `json:"status"`
	Alert  string          `json:"alert,omitempty"`
}

// TradeItem is an inventory item as reported by the inventory endpoints.
type TradeItem struct {
	AssetID   FlexString `json:"assetid"`
	AppID     int        `json:"appid,omitempty"`
	ContextID FlexString `json:"contextid,omitempty"`
	Amount    FlexString `json:"amount,omitempty"`

	// Type is the item type label used to infer the app id when it is not
	// given.
	Type string `json:"type,omitempty"`
	Name string `json:"name,omitempty"`
}

type TradeRequest struct {
	Items             []*TradeItem `json:"items"`
	RecipientTradeURL string       `json:"recipientTradeUrl"`
	Message           string       `json:"message,omitempty"`

	// Older clients use these names.
	LegacyItems    []*TradeItem `json:"item,omitempty"`
	LegacyTradeURL string       `json:"userTradeUrl,omitempty"`
}

type TradeResponse struct {
	Success           bool   `json:"success"`
	TradeOfferID      string `json:"tradeOfferId"`
	ItemCount         int    `json:"itemCount"`
	Status            string `json:"status"`
	NeedsConfirmation bool   `json:"needsConfirmation"`

	NeedsEmailConfirmation bool `json:"needsEmailConfirmation,omitempty"`
}

// ErrorResponse is the body for all unsuccessful responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`

	// RemoteCode is the remote service's failure subcode, like
	// "trade_hold".
	RemoteCode string `json:"remoteCode,omitempty"`
	EResult    int    `json:"eresult,omitempty"`

	CooldownRemainingMs int64 `json:"cooldownRemainingMs,omitempty"`
}

// Error codes in the ErrorResponse.
const (
	CodeUnauthorized       = "Unauthorized"
	CodeCooldown           = "Cooldown"
	CodeAlreadyInProgress  = "AlreadyInProgress"
	CodeInvalidCredentials = "InvalidCredentials"
	CodeNotAuthenticated   = "NotAuthenticated"
	CodeInvalidTradeURL    = "InvalidTradeUrl"
	CodeEmptyOffer         = "EmptyOffer"
	CodeInvalidRequest     = "InvalidRequest"
	CodeRemoteRejected     = "RemoteRejected"
	CodeTransientNetwork   = "TransientNetwork"
	CodeTimeout            = "Timeout"
	CodeSessionExpired     = "SessionExpired"
	CodeStoreUnavailable   = "StoreUnavailable"
	CodeInternal           = "Internal"
)

type HealthResponse struct {
	PID           int32   `json:"pid"`
	UptimeSeconds int64   `json:"uptimeSeconds"`
	RSSBytes      uint64  `json:"rssBytes"`
	CPUPercent    float64 `json:"cpuPercent"`
	NumGoroutines int     `json:"numGoroutines"`

	Bot *StatusResponse `json:"bot"`
}
