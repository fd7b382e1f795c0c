// Copyright (c) 2025 BVK Chaitanya

package steam

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"
)

const authService = "IAuthenticationService"

// Guard types from EAuthSessionGuardType.
const (
	guardTypeNone       = 1
	guardTypeEmailCode  = 2
	guardTypeDeviceCode = 3
)

// Platform and persistence values for new authentication sessions.
const (
	platformTypeMobileApp = 3
	persistencePersistent = 1
)

// Login creates a new web session with the account password and a one-time
// Steam Guard code.
func (c *Client) Login(ctx context.Context, creds *Credentials, code string) (*Session, error) {
	if err := creds.Check(); err != nil {
		return nil, err
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("one-time code is required: %w", ErrInvalidCredentials)
	}

	pub, timestamp, err := c.getPasswordKey(ctx, creds.AccountName)
	if err != nil {
		return nil, fmt.Errorf("could not get password encryption key: %w", err)
	}
	encrypted, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(creds.Password))
	if err != nil {
		return nil, fmt.Errorf("could not encrypt password: %w", err)
	}

	values := make(url.Values)
	values.Set("account_name", creds.AccountName)
	values.Set("encrypted_password", base64.StdEncoding.EncodeToString(encrypted))
	values.Set("encryption_timestamp", timestamp)
	values.Set("remember_login", "true")
	values.Set("platform_type", strconv.Itoa(platformTypeMobileApp))
	values.Set("persistence", strconv.Itoa(persistencePersistent))
	values.Set("device_friendly_name", c.opts.DeviceFriendlyName)
	begin, err := apiCall[beginAuthResponse](ctx, c, http.MethodPost, authService, "BeginAuthSessionViaCredentials", values)
	if err != nil {
		return nil, fmt.Errorf("could not begin auth session: %w", err)
	}
	if len(begin.ClientID) == 0 || len(begin.RequestID) == 0 {
		return nil, fmt.Errorf("auth session response has no client or request id: %w", ErrInvalidCredentials)
	}

	var guardTypes []int
	for _, v := range begin.AllowedConfirmations {
		guardTypes = append(guardTypes, v.ConfirmationType)
	}
	codeType := 0
	switch {
	case slices.Contains(guardTypes, guardTypeDeviceCode):
		codeType = guardTypeDeviceCode
	case slices.Contains(guardTypes, guardTypeEmailCode):
		codeType = guardTypeEmailCode
	case len(guardTypes) == 0 || slices.Contains(guardTypes, guardTypeNone):
		codeType = 0
	default:
		return nil, fmt.Errorf("account requires unsupported guard types %v: %w", guardTypes, ErrRemoteRejected)
	}

	if codeType != 0 {
		values := make(url.Values)
		values.Set("client_id", begin.ClientID)
		values.Set("steamid", begin.SteamID)
		values.Set("code", code)
		values.Set("code_type", strconv.Itoa(codeType))
		if _, err := apiCall[struct{}](ctx, c, http.MethodPost, authService, "UpdateAuthSessionWithSteamGuardCode", values); err != nil {
			return nil, fmt.Errorf("could not submit steam guard code: %w", err)
		}
	}

	tokens, err := c.pollAuthSession(ctx, begin)
	if err != nil {
		return nil, err
	}
	accountName := tokens.AccountName
	if len(accountName) == 0 {
		accountName = creds.AccountName
	}
	s, err := c.newSession(accountName, tokens.RefreshToken, tokens.AccessToken)
	if err != nil {
		return nil, err
	}
	slog.Info("created new steam web session", "account", s.AccountName, "steamid", s.SteamID)
	return s, nil
}

func (c *Client) getPasswordKey(ctx context.Context, accountName string) (*rsa.PublicKey, string, error) {
	values := make(url.Values)
	values.Set("account_name", accountName)
	resp, err := apiCall[rsaKeyResponse](ctx, c, http.MethodGet, authService, "GetPasswordRSAPublicKey", values)
	if err != nil {
		return nil, "", err
	}
	mod, ok := new(big.Int).SetString(resp.PublicKeyMod, 16)
	if !ok {
		return nil, "", fmt.Errorf("could not parse rsa key modulus: %w", ErrTransientNetwork)
	}
	exp, err := strconv.ParseInt(resp.PublicKeyExp, 16, 32)
	if err != nil {
		return nil, "", fmt.Errorf("could not parse rsa key exponent: %w", ErrTransientNetwork)
	}
	pub := &rsa.PublicKey{N: mod, E: int(exp)}
	return pub, resp.Timestamp, nil
}

func (c *Client) pollAuthSession(ctx context.Context, begin *beginAuthResponse) (*pollAuthResponse, error) {
	interval := c.opts.PollInterval
	if begin.Interval > 0 {
		if d := time.Duration(begin.Interval * float64(time.Second)); d < interval {
			interval = d
		}
	}

	pctx, pcancel := context.WithTimeout(ctx, c.opts.PollTimeout)
	defer pcancel()

	values := make(url.Values)
	values.Set("client_id", begin.ClientID)
	values.Set("request_id", begin.RequestID)
	for {
		resp, err := apiCall[pollAuthResponse](pctx, c, http.MethodPost, authService, "PollAuthSessionStatus", values)
		if err != nil {
			return nil, fmt.Errorf("could not poll auth session status: %w", err)
		}
		if len(resp.RefreshToken) != 0 {
			return resp, nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-pctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("auth session was not approved in time: %w", classifyError(context.Cause(pctx)))
		case <-timer.C:
		}
	}
}

// Resume creates a new web session from a saved refresh token.
func (c *Client) Resume(ctx context.Context, accountName, refreshToken string) (*Session, error) {
	return c.refresh(ctx, accountName, refreshToken, false /* allowRenewal */)
}

// Renew refreshes the access token of a session. Returned session may carry a
// new refresh token when the remote service decides to rotate it.
func (c *Client) Renew(ctx context.Context, s *Session) (*Session, error) {
	return c.refresh(ctx, s.AccountName, s.RefreshToken, true /* allowRenewal */)
}

func (c *Client) refresh(ctx context.Context, accountName, refreshToken string, allowRenewal bool) (*Session, error) {
	claims, err := ParseToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("saved refresh token is unusable: %w: %w", ErrInvalidCredentials, err)
	}
	if claims.Expired(time.Now()) {
		return nil, fmt.Errorf("saved refresh token expired at %s: %w", claims.ExpiresAt, ErrInvalidCredentials)
	}

	values := make(url.Values)
	values.Set("refresh_token", refreshToken)
	values.Set("steamid", strconv.FormatUint(claims.SteamID, 10))
	if allowRenewal {
		values.Set("renewal_type", "1")
	} else {
		values.Set("renewal_type", "0")
	}
	resp, err := apiCall[generateAccessTokenResponse](ctx, c, http.MethodPost, authService, "GenerateAccessTokenForApp", values)
	if err != nil {
		return nil, fmt.Errorf("could not generate access token: %w", err)
	}
	if len(resp.AccessToken) == 0 {
		return nil, fmt.Errorf("refresh token was not accepted: %w", ErrInvalidCredentials)
	}
	if len(resp.RefreshToken) != 0 {
		refreshToken = resp.RefreshToken
	}
	return c.newSession(accountName, refreshToken, resp.AccessToken)
}

// newSession builds a session from the tokens and installs the community web
// cookies into the client's cookie jar.
func (c *Client) newSession(accountName, refreshToken, accessToken string) (*Session, error) {
	claims, err := ParseToken(accessToken)
	if err != nil {
		return nil, fmt.Errorf("access token is unusable: %w: %w", ErrInvalidCredentials, err)
	}

	var nonce [12]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("could not generate community session id: %w", err)
	}

	s := &Session{
		SteamID:            claims.SteamID,
		AccountName:        accountName,
		RefreshToken:       refreshToken,
		AccessToken:        accessToken,
		CommunitySessionID: hex.EncodeToString(nonce[:]),
		IssuedAt:           claims.IssuedAt,
		ExpiresAt:          claims.ExpiresAt,
	}
	if s.IssuedAt.IsZero() {
		s.IssuedAt = time.Now()
	}
	c.setWebCookies(s)
	return s, nil
}

func (c *Client) setWebCookies(s *Session) {
	loginSecure := strconv.FormatUint(s.SteamID, 10) + "||" + s.AccessToken
	cookies := []*http.Cookie{
		{
			Name:  "steamLoginSecure",
			Value: url.QueryEscape(loginSecure),
			Path:  "/",
		},
		{
			Name:  "sessionid",
			Value: s.CommunitySessionID,
			Path:  "/",
		},
	}
	c.jar.SetCookies(c.communityEndpoint("/", nil), cookies)
}

// Logout drops the web session cookies from the cookie jar.
func (c *Client) Logout(ctx context.Context) error {
	expired := []*http.Cookie{
		{Name: "steamLoginSecure", Path: "/", MaxAge: -1},
		{Name: "sessionid", Path: "/", MaxAge: -1},
	}
	c.jar.SetCookies(c.communityEndpoint("/", nil), expired)
	return nil
}
