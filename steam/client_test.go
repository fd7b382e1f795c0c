// Copyright (c) 2025 BVK Chaitanya

package steam

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	jose "gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

const (
	testSteamID  uint64 = 76561197960287930
	testPartner  uint32 = 22202
	testAccount         = "bot-account"
	testPassword        = "hunter2"
	testCode            = "ABCDE"
)

func makeToken(t *testing.T, steamID uint64, expiry time.Time) string {
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: []byte("0123456789abcdef0123456789abcdef")},
		(&jose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		t.Fatal(err)
	}
	claims := jwt.Claims{
		Subject:  strconv.FormatUint(steamID, 10),
		IssuedAt: jwt.NewNumericDate(time.Now()),
		Expiry:   jwt.NewNumericDate(expiry),
	}
	raw, err := jwt.Signed(signer).Claims(claims).CompactSerialize()
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

// fakeSteam emulates the subset of Steam endpoints used by the client.
type fakeSteam struct {
	t *testing.T

	key *rsa.PrivateKey

	mu sync.Mutex

	refreshToken string
	accessToken  string
	rotatedToken string

	loggedIn bool

	// sendResults holds the status code and body for successive send calls.
	sendResults []fakeResponse
	sendCount   int
	lastSend    url.Values
	lastReferer string

	confs    []map[string]any
	accepted []string
}

type fakeResponse struct {
	status int
	body   string
}

func newFakeSteam(t *testing.T) (*fakeSteam, *httptest.Server) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatal(err)
	}
	f := &fakeSteam{
		t:            t,
		key:          key,
		refreshToken: makeToken(t, testSteamID, time.Now().Add(24*time.Hour)),
		accessToken:  makeToken(t, testSteamID, time.Now().Add(time.Hour)),
		rotatedToken: makeToken(t, testSteamID, time.Now().Add(48*time.Hour)),
	}
	s := httptest.NewServer(f)
	t.Cleanup(s.Close)
	return f, s
}

func (f *fakeSteam) api(w http.ResponseWriter, eresult EResult, response any) {
	w.Header().Set("X-eresult", strconv.Itoa(int(eresult)))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"response": response})
}

func (f *fakeSteam) checkCookie(r *http.Request) bool {
	c, err := r.Cookie("steamLoginSecure")
	if err != nil {
		return false
	}
	v, err := url.QueryUnescape(c.Value)
	if err != nil {
		return false
	}
	return v == fmt.Sprintf("%d||%s", testSteamID, f.accessToken)
}

func (f *fakeSteam) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r.ParseForm()
	switch r.URL.Path {
	case "/IAuthenticationService/GetPasswordRSAPublicKey/v1/":
		f.api(w, EResultOK, map[string]any{
			"publickey_mod": f.key.N.Text(16),
			"publickey_exp": strconv.FormatInt(int64(f.key.E), 16),
			"timestamp":     "12345",
		})

	case "/IAuthenticationService/BeginAuthSessionViaCredentials/v1/":
		encrypted, _ := base64.StdEncoding.DecodeString(r.PostForm.Get("encrypted_password"))
		password, err := rsa.DecryptPKCS1v15(nil, f.key, encrypted)
		if err != nil || string(password) != testPassword || r.PostForm.Get("encryption_timestamp") != "12345" {
			f.api(w, EResultInvalidPassword, map[string]any{})
			return
		}
		f.api(w, EResultOK, map[string]any{
			"client_id":             "111",
			"request_id":            "cmVxdWVzdA==",
			"interval":              0.01,
			"steamid":               strconv.FormatUint(testSteamID, 10),
			"allowed_confirmations": []map[string]any{{"confirmation_type": guardTypeDeviceCode}},
		})

	case "/IAuthenticationService/UpdateAuthSessionWithSteamGuardCode/v1/":
		if r.PostForm.Get("code") != testCode || r.PostForm.Get("code_type") != "3" {
			f.api(w, EResultTwoFactorCodeMismatch, map[string]any{})
			return
		}
		f.loggedIn = true
		f.api(w, EResultOK, map[string]any{})

	case "/IAuthenticationService/PollAuthSessionStatus/v1/":
		if !f.loggedIn {
			f.api(w, EResultOK, map[string]any{})
			return
		}
		f.api(w, EResultOK, map[string]any{
			"refresh_token": f.refreshToken,
			"access_token":  f.accessToken,
			"account_name":  testAccount,
		})

	case "/IAuthenticationService/GenerateAccessTokenForApp/v1/":
		token := r.PostForm.Get("refresh_token")
		if token != f.refreshToken && token != f.rotatedToken {
			f.api(w, EResultAccessDenied, map[string]any{})
			return
		}
		f.loggedIn = true
		resp := map[string]any{"access_token": f.accessToken}
		if r.PostForm.Get("renewal_type") == "1" {
			resp["refresh_token"] = f.rotatedToken
		}
		f.api(w, EResultOK, resp)

	case "/chat/clientjstoken":
		json.NewEncoder(w).Encode(map[string]any{
			"logged_in": f.loggedIn && f.checkCookie(r),
			"steamid":   strconv.FormatUint(testSteamID, 10),
		})

	case "/profiles/" + strconv.FormatUint(testSteamID, 10):
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><profile><steamID64>%d</steamID64><steamID><![CDATA[Bot Persona]]></steamID></profile>`, testSteamID)

	case "/tradeoffer/new/send":
		if !f.checkCookie(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if c, err := r.Cookie("sessionid"); err != nil || c.Value != r.PostForm.Get("sessionid") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		f.lastSend = r.PostForm
		f.lastReferer = r.Header.Get("Referer")
		resp := fakeResponse{status: http.StatusOK, body: `{"tradeofferid":"5555","needs_mobile_confirmation":true}`}
		if f.sendCount < len(f.sendResults) {
			resp = f.sendResults[f.sendCount]
		}
		f.sendCount++
		w.WriteHeader(resp.status)
		fmt.Fprint(w, resp.body)

	case "/mobileconf/getlist":
		want, _ := Sign(testSecret, mustInt(r.Form.Get("t")), "conf")
		if r.Form.Get("k") != want || r.Form.Get("p") != DeviceID(testSteamID) || !f.checkCookie(r) {
			json.NewEncoder(w).Encode(map[string]any{"success": false, "needauth": true})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "conf": f.confs})

	case "/mobileconf/ajaxop":
		want, _ := Sign(testSecret, mustInt(r.Form.Get("t")), "allow")
		if r.Form.Get("k") != want || r.Form.Get("op") != "allow" {
			json.NewEncoder(w).Encode(map[string]any{"success": false})
			return
		}
		f.accepted = append(f.accepted, r.Form.Get("cid")+"/"+r.Form.Get("ck"))
		json.NewEncoder(w).Encode(map[string]any{"success": true})

	default:
		http.NotFound(w, r)
	}
}

func mustInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func newTestClient(t *testing.T, s *httptest.Server) *Client {
	opts := &Options{
		APIURL:            s.URL,
		CommunityURL:      s.URL,
		RequestsPerSecond: 1000,
		PollInterval:      10 * time.Millisecond,
		PollTimeout:       time.Second,
	}
	c, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func testLogin(t *testing.T, c *Client) *Session {
	creds := &Credentials{AccountName: testAccount, Password: testPassword}
	s, err := c.Login(context.Background(), creds, testCode)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f, server := newFakeSteam(t)
	c := newTestClient(t, server)

	creds := &Credentials{AccountName: testAccount, Password: testPassword}
	if _, err := c.Login(ctx, creds, ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials without a code, got %v", err)
	}
	if _, err := c.Login(ctx, creds, "WRONG"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials for a wrong code, got %v", err)
	}
	bad := &Credentials{AccountName: testAccount, Password: "wrong"}
	if _, err := c.Login(ctx, bad, testCode); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials for a wrong password, got %v", err)
	} else {
		var rerr *RemoteError
		if !errors.As(err, &rerr) || rerr.EResult != EResultInvalidPassword {
			t.Fatalf("want RemoteError with InvalidPassword result, got %v", err)
		}
	}

	s := testLogin(t, c)
	if s.SteamID != testSteamID || s.AccountName != testAccount {
		t.Fatalf("unexpected session identity %d/%s", s.SteamID, s.AccountName)
	}
	if s.RefreshToken != f.refreshToken || s.AccessToken != f.accessToken {
		t.Fatalf("session tokens do not match the issued tokens")
	}
	if len(s.CommunitySessionID) != 24 {
		t.Fatalf("unexpected community session id %q", s.CommunitySessionID)
	}

	if err := c.Heartbeat(ctx, s); err != nil {
		t.Fatal(err)
	}
	name, err := c.PersonaName(ctx, s.SteamID)
	if err != nil {
		t.Fatal(err)
	}
	if name != "Bot Persona" {
		t.Fatalf("want persona name %q, got %q", "Bot Persona", name)
	}

	if err := c.Logout(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Heartbeat(ctx, s); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("want ErrSessionExpired after dropping cookies, got %v", err)
	}
}

func TestResumeRenew(t *testing.T) {
	ctx := context.Background()
	f, server := newFakeSteam(t)
	c := newTestClient(t, server)

	s, err := c.Resume(ctx, testAccount, f.refreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if s.RefreshToken != f.refreshToken {
		t.Fatalf("resume must keep the refresh token")
	}
	if err := c.Heartbeat(ctx, s); err != nil {
		t.Fatal(err)
	}

	renewed, err := c.Renew(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if renewed.RefreshToken != f.rotatedToken {
		t.Fatalf("renew must pick up the rotated refresh token")
	}

	if _, err := c.Resume(ctx, testAccount, "garbage"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials for a garbage token, got %v", err)
	}
	revoked := makeToken(t, testSteamID, time.Now().Add(time.Hour))
	if _, err := c.Resume(ctx, testAccount, revoked); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials for a revoked token, got %v", err)
	}
	expired := makeToken(t, testSteamID, time.Now().Add(-time.Hour))
	if _, err := c.Resume(ctx, testAccount, expired); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials for an expired token, got %v", err)
	}
}

func TestSendOffer(t *testing.T) {
	ctx := context.Background()
	f, server := newFakeSteam(t)
	c := newTestClient(t, server)
	s := testLogin(t, c)

	offer := &TradeOffer{
		PartnerSteamID: SteamID64(testPartner),
		AccessToken:    "tok_EN-1",
		Message:        "enjoy",
		Items: []*Asset{
			{AppID: 730, ContextID: "2", Amount: 1, AssetID: "1001"},
			{AppID: 570, ContextID: "2", Amount: 1, AssetID: "1002"},
		},
	}
	result, err := c.SendOffer(ctx, s, offer)
	if err != nil {
		t.Fatal(err)
	}
	if result.OfferID != "5555" || !result.NeedsMobileConfirmation {
		t.Fatalf("unexpected result %#v", result)
	}

	if v := f.lastSend.Get("partner"); v != strconv.FormatUint(SteamID64(testPartner), 10) {
		t.Fatalf("unexpected partner %q", v)
	}
	var params map[string]string
	if err := json.Unmarshal([]byte(f.lastSend.Get("trade_offer_create_params")), &params); err != nil {
		t.Fatal(err)
	}
	if params["trade_offer_access_token"] != "tok_EN-1" {
		t.Fatalf("access token is not passed in create params: %v", params)
	}
	var jsOffer jsonTradeOffer
	if err := json.Unmarshal([]byte(f.lastSend.Get("json_tradeoffer")), &jsOffer); err != nil {
		t.Fatal(err)
	}
	if len(jsOffer.Me.Assets) != 2 || len(jsOffer.Them.Assets) != 0 || jsOffer.Me.Assets[1].AppID != 570 {
		t.Fatalf("unexpected offer json %#v", jsOffer)
	}
	if !strings.Contains(f.lastReferer, "partner=22202") || !strings.Contains(f.lastReferer, "token=tok_EN-1") {
		t.Fatalf("unexpected referer %q", f.lastReferer)
	}
}

func TestSendOfferErrors(t *testing.T) {
	ctx := context.Background()
	f, server := newFakeSteam(t)
	c := newTestClient(t, server)
	s := testLogin(t, c)

	f.sendResults = []fakeResponse{
		{http.StatusInternalServerError, `{"strError":"There was an error sending your trade offer.  Please try again later. (16)"}`},
		{http.StatusInternalServerError, `{"strError":"You cannot trade with Partner because they have a trade hold on their account. (15)"}`},
		{http.StatusInternalServerError, `{"strError":"There was an error sending your trade offer.  Please try again later. (25)"}`},
		{http.StatusBadGateway, `<html>bad gateway</html>`},
	}

	offer := &TradeOffer{
		PartnerSteamID: SteamID64(testPartner),
		Items:          []*Asset{{AppID: 730, ContextID: "2", Amount: 1, AssetID: "1001"}},
	}

	_, err := c.SendOffer(ctx, s, offer)
	if !IsTransient(err) {
		t.Fatalf("want a transient error for eresult 16, got %v", err)
	}

	_, err = c.SendOffer(ctx, s, offer)
	var rerr *RemoteError
	if !errors.As(err, &rerr) || !errors.Is(err, ErrRemoteRejected) || IsTransient(err) {
		t.Fatalf("want terminal remote rejection, got %v", err)
	}
	if rerr.Subcode() != SubcodeTradeHold || rerr.EResult != EResultAccessDenied {
		t.Fatalf("want trade hold subcode with eresult 15, got %s/%d", rerr.Subcode(), rerr.EResult)
	}

	_, err = c.SendOffer(ctx, s, offer)
	if !errors.As(err, &rerr) || rerr.Subcode() != SubcodeOfferLimitExceeded {
		t.Fatalf("want offer limit subcode, got %v", err)
	}

	if _, err := c.SendOffer(ctx, s, offer); !IsTransient(err) {
		t.Fatalf("want a transient error for bad gateway, got %v", err)
	}
}

func TestConfirmations(t *testing.T) {
	ctx := context.Background()
	f, server := newFakeSteam(t)
	c := newTestClient(t, server)
	s := testLogin(t, c)

	f.confs = []map[string]any{
		{"type": 2, "type_name": "Trade Offer", "id": "77", "nonce": "88", "creator_id": "5555", "headline": "Partner"},
		{"type": 3, "type_name": "Market Listing", "id": "78", "nonce": "89", "creator_id": "1"},
	}

	keyf := func(tag string) (int64, string, error) {
		now := time.Now().Unix()
		key, err := Sign(testSecret, now, tag)
		return now, key, err
	}
	confs, err := c.Confirmations(ctx, s, keyf)
	if err != nil {
		t.Fatal(err)
	}
	if len(confs) != 2 || confs[0].CreatorID != "5555" || confs[0].Type != ConfirmationTypeTrade {
		t.Fatalf("unexpected confirmations %#v", confs)
	}
	if err := c.AcceptConfirmation(ctx, s, keyf, confs[0]); err != nil {
		t.Fatal(err)
	}
	if len(f.accepted) != 1 || f.accepted[0] != "77/88" {
		t.Fatalf("unexpected accepted confirmations %v", f.accepted)
	}

	missing := func(tag string) (int64, string, error) {
		_, err := Sign("", 0, tag)
		return 0, "", err
	}
	if _, err := c.Confirmations(ctx, s, missing); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("want ErrMissingSecret, got %v", err)
	}
}

func TestParseToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	claims, err := ParseToken(makeToken(t, testSteamID, exp))
	if err != nil {
		t.Fatal(err)
	}
	if claims.SteamID != testSteamID || !claims.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected claims %#v", claims)
	}
	if claims.Expired(time.Now()) || !claims.Expired(exp) {
		t.Fatalf("unexpected expiry check result")
	}
	if _, err := ParseToken("a.b.c"); err == nil {
		t.Fatalf("want error for an invalid token")
	}
}
