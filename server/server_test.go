// Copyright (c) 2023 BVK Chaitanya

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bvk/steambot/api"
	"github.com/bvk/steambot/bot"
	"github.com/bvk/steambot/session"
	"github.com/bvk/steambot/steam"
	"github.com/bvk/steambot/trade"
	"github.com/gorilla/websocket"
)

const testTradeURL = "https://steamcommunity.com/tradeoffer/new/?partner=12345&token=AbC-12_x"

type fakeRemote struct {
	mu sync.Mutex

	logins  int
	loginFn func(code string) (*steam.Session, error)
}

func (f *fakeRemote) Login(ctx context.Context, creds *steam.Credentials, code string) (*steam.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.logins++
	if f.loginFn != nil {
		return f.loginFn(code)
	}
	return &steam.Session{
		SteamID:      76561197960278073,
		AccountName:  creds.AccountName,
		RefreshToken: "refresh-" + code,
		AccessToken:  "access",
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeRemote) Resume(ctx context.Context, accountName, refreshToken string) (*steam.Session, error) {
	return nil, fmt.Errorf("resume is not expected: %w", steam.ErrInvalidCredentials)
}

func (f *fakeRemote) Renew(ctx context.Context, s *steam.Session) (*steam.Session, error) {
	return s, nil
}

func (f *fakeRemote) Logout(ctx context.Context) error { return nil }

func (f *fakeRemote) Heartbeat(ctx context.Context, s *steam.Session) error { return nil }

func (f *fakeRemote) PersonaName(ctx context.Context, steamID uint64) (string, error) {
	return "tradebot-persona", nil
}

func (f *fakeRemote) Confirmations(ctx context.Context, s *steam.Session, keyf steam.KeyFunc) ([]*steam.Confirmation, error) {
	return nil, nil
}

func (f *fakeRemote) AcceptConfirmation(ctx context.Context, s *steam.Session, keyf steam.KeyFunc, conf *steam.Confirmation) error {
	return nil
}

type fakeSender struct {
	mu     sync.Mutex
	offers []*steam.TradeOffer
	err    error
}

func (f *fakeSender) SendOffer(ctx context.Context, s *steam.Session, offer *steam.TradeOffer) (*steam.TradeOfferResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.offers = append(f.offers, offer)
	if f.err != nil {
		return nil, f.err
	}
	return &steam.TradeOfferResult{OfferID: fmt.Sprintf("%d", 1000+len(f.offers))}, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) SendMessage(ctx context.Context, at time.Time, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.messages = append(f.messages, text)
	return nil
}

type testEnv struct {
	remote   *fakeRemote
	sender   *fakeSender
	notifier *fakeNotifier
	server   *Server
	http     *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	dir := t.TempDir()
	store, err := session.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	remote := new(fakeRemote)
	creds := &steam.Credentials{AccountName: "tradebot", Password: "hunter2"}
	bopts := &bot.Options{
		RenewInterval:        time.Hour,
		HeartbeatInterval:    time.Hour,
		ReconnectCeiling:     2 * time.Hour,
		ConfirmationInterval: time.Hour,
	}
	manager, err := bot.New(remote, store, creds, bopts)
	if err != nil {
		t.Fatal(err)
	}

	sender := new(fakeSender)
	dispatcher, err := trade.New(manager, sender, &trade.Options{RetryDelay: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	secrets := &Secrets{Steam: creds, AdminPassword: "admin"}
	notifier := new(fakeNotifier)
	s, err := newServer(secrets, manager, dispatcher, &Options{DataDir: dir, NotifyTimeout: time.Second}, notifier)
	if err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	for k, v := range s.HandlerMap() {
		mux.Handle(k, v)
	}
	hs := httptest.NewServer(mux)
	t.Cleanup(func() {
		hs.Close()
		s.Close()
	})
	return &testEnv{remote: remote, sender: sender, notifier: notifier, server: s, http: hs}
}

func post[RESP any](t *testing.T, e *testEnv, path string, req any) (int, *RESP) {
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(e.http.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	v := new(RESP)
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("could not decode response for %s: %v", path, err)
	}
	return resp.StatusCode, v
}

func get[RESP any](t *testing.T, e *testEnv, path string) *RESP {
	resp, err := http.Get(e.http.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("%s: want http status 200, got %d", path, resp.StatusCode)
	}
	v := new(RESP)
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
	return v
}

func (e *testEnv) login(t *testing.T) {
	status, resp := post[api.AuthenticateResponse](t, e, api.AuthenticatePath, &api.AuthenticateRequest{OneTimeCode: "ABCDE", AdminPassword: "admin"})
	if status != http.StatusOK || !resp.Success {
		t.Fatalf("want successful login, got %d %#v", status, resp)
	}
}

func TestStatus(t *testing.T) {
	e := newTestEnv(t)

	st := get[api.StatusResponse](t, e, api.StatusPath)
	if st.IsLoggedIn || st.SessionActive || st.State != "logged-out" || st.CooldownRemainingMs != 0 {
		t.Fatalf("unexpected status before login: %#v", st)
	}

	resp, err := http.Post(e.http.URL+api.StatusPath, "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("want 405 for post on status, got %d", resp.StatusCode)
	}
}

func TestAuthenticate(t *testing.T) {
	e := newTestEnv(t)

	status, resp := post[api.AuthenticateResponse](t, e, api.AuthenticatePath, &api.AuthenticateRequest{OneTimeCode: "ABCDE", AdminPassword: "wrong"})
	if status != http.StatusForbidden || resp.Success || resp.Code != api.CodeUnauthorized {
		t.Fatalf("want 403 for wrong password, got %d %#v", status, resp)
	}

	status, resp = post[api.AuthenticateResponse](t, e, api.AuthenticatePath, &api.AuthenticateRequest{AdminPassword: "admin"})
	if status != http.StatusBadRequest || resp.Code != api.CodeInvalidCredentials {
		t.Fatalf("want 400 without a code and saved session, got %d %#v", status, resp)
	}
	if e.remote.logins != 0 {
		t.Fatalf("remote service must not be contacted, got %d logins", e.remote.logins)
	}

	e.login(t)

	st := get[api.StatusResponse](t, e, api.StatusPath)
	if !st.IsLoggedIn || !st.SessionActive || st.SteamIdentity != "76561197960278073" || st.AccountName != "tradebot" {
		t.Fatalf("unexpected status after login: %#v", st)
	}
	if st.CooldownRemainingMs <= 0 || st.LastLoginAttempt == nil {
		t.Fatalf("login attempt must start the cooldown: %#v", st)
	}

	status, resp = post[api.AuthenticateResponse](t, e, api.AuthenticatePath, &api.AuthenticateRequest{OneTimeCode: "FGHIJ", AdminPassword: "admin"})
	if status != http.StatusTooManyRequests || resp.Code != api.CodeCooldown || resp.CooldownRemainingMs <= 0 {
		t.Fatalf("want 429 inside the cooldown, got %d %#v", status, resp)
	}
	if e.remote.logins != 1 {
		t.Fatalf("want one remote login, got %d", e.remote.logins)
	}
}

func TestAuthenticateRejected(t *testing.T) {
	e := newTestEnv(t)
	e.remote.loginFn = func(code string) (*steam.Session, error) {
		return nil, fmt.Errorf("two factor code mismatch: %w", steam.ErrInvalidCredentials)
	}

	status, resp := post[api.AuthenticateResponse](t, e, api.AuthenticatePath, &api.AuthenticateRequest{OneTimeCode: "ABCDE", AdminPassword: "admin"})
	if status != http.StatusBadRequest || resp.Success || resp.Code != api.CodeInvalidCredentials {
		t.Fatalf("want 400 invalid credentials, got %d %#v", status, resp)
	}
	if st := get[api.StatusResponse](t, e, api.StatusPath); st.State != "logged-out" || len(st.LastError) == 0 {
		t.Fatalf("unexpected status after rejected login: %#v", st)
	}
}

func TestLogout(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	status, resp := post[api.LogoutResponse](t, e, api.LogoutPath, &api.LogoutRequest{AdminPassword: "bad"})
	if status != http.StatusForbidden || resp.Success {
		t.Fatalf("want 403 for wrong password, got %d %#v", status, resp)
	}
	if st := get[api.StatusResponse](t, e, api.StatusPath); !st.IsLoggedIn {
		t.Fatalf("unauthorized logout must not change the state")
	}

	for i := 0; i < 2; i++ {
		status, resp := post[api.LogoutResponse](t, e, api.LogoutPath, &api.LogoutRequest{AdminPassword: "admin"})
		if status != http.StatusOK || !resp.Success {
			t.Fatalf("%d: want successful logout, got %d %#v", i, status, resp)
		}
	}
	if st := get[api.StatusResponse](t, e, api.StatusPath); st.IsLoggedIn || st.State != "logged-out" {
		t.Fatalf("unexpected status after logout: %#v", st)
	}
}

func TestTrade(t *testing.T) {
	e := newTestEnv(t)

	items := []*api.TradeItem{{AssetID: "111", Type: "Immortal Dota 2 Courier"}}

	status, eresp := post[api.ErrorResponse](t, e, api.TradePath, &api.TradeRequest{RecipientTradeURL: testTradeURL})
	if status != http.StatusBadRequest || eresp.Code != api.CodeEmptyOffer {
		t.Fatalf("want 400 empty offer, got %d %#v", status, eresp)
	}
	status, eresp = post[api.ErrorResponse](t, e, api.TradePath, &api.TradeRequest{Items: items, RecipientTradeURL: "https://example.com"})
	if status != http.StatusBadRequest || eresp.Code != api.CodeInvalidTradeURL {
		t.Fatalf("want 400 invalid trade url, got %d %#v", status, eresp)
	}
	status, eresp = post[api.ErrorResponse](t, e, api.TradePath, &api.TradeRequest{Items: items, RecipientTradeURL: testTradeURL})
	if status != http.StatusServiceUnavailable || eresp.Code != api.CodeNotAuthenticated {
		t.Fatalf("want 503 before login, got %d %#v", status, eresp)
	}
	if len(e.sender.offers) != 0 {
		t.Fatalf("no offers must be sent before login")
	}

	e.login(t)

	status, tresp := post[api.TradeResponse](t, e, api.TradePath, &api.TradeRequest{Items: items, RecipientTradeURL: testTradeURL, Message: "thanks"})
	if status != http.StatusOK || !tresp.Success || tresp.TradeOfferID != "1001" || tresp.ItemCount != 1 {
		t.Fatalf("want successful trade, got %d %#v", status, tresp)
	}
	offer := e.sender.offers[0]
	if offer.PartnerSteamID != 76561197960278073 || offer.AccessToken != "AbC-12_x" || offer.Items[0].AppID != trade.AppIDDota2 {
		t.Fatalf("unexpected offer %#v", offer)
	}

	// Older clients send numeric ids with the legacy field names.
	legacy := `{"item":[{"assetid":222,"contextid":2,"amount":1,"type":"Classified Rifle"}],"userTradeUrl":"` + testTradeURL + `"}`
	resp, err := http.Post(e.http.URL+api.TradePath, "application/json", strings.NewReader(legacy))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200 for legacy request, got %d", resp.StatusCode)
	}
	if v := e.sender.offers[1].Items[0]; v.AssetID != "222" || v.AppID != trade.AppIDCS || v.ContextID != "2" {
		t.Fatalf("unexpected legacy offer item %#v", v)
	}

	e.sender.err = &steam.RemoteError{Op: "SendOffer", EResult: 15, Message: "The user is unable to trade because of a trade hold"}
	status, eresp = post[api.ErrorResponse](t, e, api.TradePath, &api.TradeRequest{Items: items, RecipientTradeURL: testTradeURL})
	if status != http.StatusInternalServerError || eresp.Code != api.CodeRemoteRejected || eresp.RemoteCode != steam.SubcodeTradeHold || eresp.EResult != 15 {
		t.Fatalf("want 500 trade hold, got %d %#v", status, eresp)
	}
	if len(e.sender.offers) != 3 {
		t.Fatalf("trade hold must not be retried, got %d offers", len(e.sender.offers))
	}
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)

	h := get[api.HealthResponse](t, e, api.HealthPath)
	if int(h.PID) != os.Getpid() || h.NumGoroutines == 0 || h.Bot == nil || h.Bot.State != "logged-out" {
		t.Fatalf("unexpected health response %#v", h)
	}
}

func TestEvents(t *testing.T) {
	e := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(e.http.URL, "http") + api.EventsPath
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	first := new(api.EventMessage)
	if err := conn.ReadJSON(first); err != nil {
		t.Fatal(err)
	}
	if first.Status == nil || first.Status.IsLoggedIn {
		t.Fatalf("first event must carry the current status, got %#v", first)
	}

	e.login(t)

	for {
		msg := new(api.EventMessage)
		if err := conn.ReadJSON(msg); err != nil {
			t.Fatal(err)
		}
		if msg.Status.IsLoggedIn {
			break
		}
	}
}

func TestEventsAfterClose(t *testing.T) {
	e := newTestEnv(t)
	e.server.Close()

	resp, err := http.Get(e.http.URL + api.EventsPath)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("want 503 for events on a closed server, got %d", resp.StatusCode)
	}
}

func TestNotifyEvent(t *testing.T) {
	e := newTestEnv(t)

	ctx := context.Background()
	st := &bot.Status{State: bot.StateLoggedOut}
	e.server.notifyEvent(ctx, &bot.Event{At: time.Now(), Status: st})
	e.server.notifyEvent(ctx, &bot.Event{At: time.Now(), Status: st, Alert: "session lost"})

	e.notifier.mu.Lock()
	defer e.notifier.mu.Unlock()
	if len(e.notifier.messages) != 1 || e.notifier.messages[0] != "session lost" {
		t.Fatalf("want one alert message, got %v", e.notifier.messages)
	}
}
