// Copyright (c) 2025 BVK Chaitanya

package steam

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Credentials hold the bot account's login secrets.
type Credentials struct {
	AccountName string `json:"account_name"`
	Password    string `json:"password"`

	// SharedSecret is the base64 encoded mobile authenticator secret used to
	// generate Steam Guard codes. Optional.
	SharedSecret string `json:"shared_secret,omitempty"`

	// IdentitySecret is the base64 encoded mobile authenticator secret used
	// to sign trade confirmations. Optional.
	IdentitySecret string `json:"identity_secret,omitempty"`
}

func (v *Credentials) Check() error {
	if len(v.AccountName) == 0 {
		return fmt.Errorf("account name cannot be empty: %w", os.ErrInvalid)
	}
	if len(v.Password) == 0 {
		return fmt.Errorf("password cannot be empty: %w", os.ErrInvalid)
	}
	return nil
}

// Session is an authenticated Steam web session.
type Session struct {
	SteamID     uint64
	AccountName string

	// RefreshToken is the long-lived credential that can create new access
	// tokens without the password or one-time code.
	RefreshToken string

	// AccessToken authenticates the web session cookies.
	AccessToken string

	// CommunitySessionID is the CSRF token sent with community form posts.
	CommunitySessionID string

	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Clone returns a copy of the session.
func (s *Session) Clone() *Session {
	v := *s
	return &v
}

// Asset is an item included in a trade offer.
type Asset struct {
	AppID     int    `json:"appid"`
	ContextID string `json:"contextid"`
	Amount    int    `json:"amount"`
	AssetID   string `json:"assetid"`
}

// TradeOffer is a request to send items to a partner.
type TradeOffer struct {
	PartnerSteamID uint64
	AccessToken    string
	Message        string

	Items []*Asset
}

// TradeOfferResult is the remote response to an accepted trade offer.
type TradeOfferResult struct {
	OfferID string

	NeedsMobileConfirmation bool
	NeedsEmailConfirmation  bool
}

// Confirmation is a pending mobile confirmation.
type Confirmation struct {
	ID        string
	Nonce     string
	CreatorID string
	Type      int
	TypeName  string
	Headline  string
}

// ConfirmationTypeTrade is the confirmation type for trade offers.
const ConfirmationTypeTrade = 2

// apiResponse is the envelope for the Web API JSON responses.
type apiResponse[T any] struct {
	Response *T `json:"response"`
}

type rsaKeyResponse struct {
	PublicKeyMod string `json:"publickey_mod"`
	PublicKeyExp string `json:"publickey_exp"`
	Timestamp    string `json:"timestamp"`
}

type allowedConfirmation struct {
	ConfirmationType  int    `json:"confirmation_type"`
	AssociatedMessage string `json:"associated_message"`
}

type beginAuthResponse struct {
	ClientID             string                 `json:"client_id"`
	RequestID            string                 `json:"request_id"`
	Interval             float64                `json:"interval"`
	SteamID              string                 `json:"steamid"`
	AllowedConfirmations []*allowedConfirmation `json:"allowed_confirmations"`
}

type pollAuthResponse struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token"`
	AccountName  string `json:"account_name"`
}

type generateAccessTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type clientJSTokenResponse struct {
	LoggedIn    bool   `json:"logged_in"`
	SteamID     string `json:"steamid"`
	AccountName string `json:"account_name"`
}

type sendOfferResponse struct {
	TradeOfferID            string `json:"tradeofferid"`
	NeedsMobileConfirmation bool   `json:"needs_mobile_confirmation"`
	NeedsEmailConfirmation  bool   `json:"needs_email_confirmation"`
	EmailDomain             string `json:"email_domain"`
	StrError                string `json:"strError"`
}

type jsonTradeOfferSide struct {
	Assets   []*Asset `json:"assets"`
	Currency []any    `json:"currency"`
	Ready    bool     `json:"ready"`
}

type jsonTradeOffer struct {
	NewVersion bool               `json:"newversion"`
	Version    int                `json:"version"`
	Me         jsonTradeOfferSide `json:"me"`
	Them       jsonTradeOfferSide `json:"them"`
}

type confirmationListResponse struct {
	Success  bool    `json:"success"`
	NeedAuth bool    `json:"needauth"`
	Message  string  `json:"message"`
	Conf     []*conf `json:"conf"`
}

type conf struct {
	Type      int         `json:"type"`
	TypeName  string      `json:"type_name"`
	ID        json.Number `json:"id"`
	CreatorID json.Number `json:"creator_id"`
	Nonce     json.Number `json:"nonce"`
	Headline  string      `json:"headline"`
}

type confirmationOpResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
