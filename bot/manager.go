// Copyright (c) 2025 BVK Chaitanya

// Package bot implements the connection manager that owns the single Steam
// web session of the bot account.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bvk/steambot/ctxutil"
	"github.com/bvk/steambot/session"
	"github.com/bvk/steambot/steam"
	"github.com/visvasity/topic"
)

// Remote is the set of Steam operations used by the manager. It is
// implemented by *steam.Client.
type Remote interface {
	Login(ctx context.Context, creds *steam.Credentials, code string) (*steam.Session, error)
	Resume(ctx context.Context, accountName, refreshToken string) (*steam.Session, error)
	Renew(ctx context.Context, s *steam.Session) (*steam.Session, error)
	Logout(ctx context.Context) error

	Heartbeat(ctx context.Context, s *steam.Session) error
	PersonaName(ctx context.Context, steamID uint64) (string, error)

	Confirmations(ctx context.Context, s *steam.Session, keyf steam.KeyFunc) ([]*steam.Confirmation, error)
	AcceptConfirmation(ctx context.Context, s *steam.Session, keyf steam.KeyFunc, conf *steam.Confirmation) error
}

// Store persists the session record. It is implemented by
// *session.FileStore.
type Store interface {
	Save(ctx context.Context, r *session.Record) error
	Load(ctx context.Context) (*session.Record, error)
	Clear(ctx context.Context) error
}

// Manager owns the connection state machine. All background activity of the
// logged-in session runs in a scope that is canceled as a whole when the
// state leaves LoggedIn or Reconnecting.
type Manager struct {
	lifeCtx    context.Context
	lifeCancel context.CancelCauseFunc

	opts Options

	creds  *steam.Credentials
	remote Remote
	store  Store

	now func() time.Time

	events *topic.Topic[*Event]

	confirmCh chan struct{}

	// storeMu serializes session store updates against logouts.
	storeMu sync.Mutex

	mu sync.Mutex

	state    State
	inflight bool

	// epoch is incremented on every logout so that results of operations
	// started before the logout are discarded.
	epoch int64

	lastAttempt   time.Time
	cooldownUntil time.Time

	sess           *steam.Session
	personaName    string
	loggedInAt     time.Time
	reconnectSince time.Time
	lastErr        error

	scope *ctxutil.CloseGroup

	// pendingOffers holds offer ids sent by this process that may need a
	// mobile confirmation.
	pendingOffers map[string]time.Time

	missingSecretAlerted bool
}

// New creates a connection manager in the LoggedOut state.
func New(remote Remote, store Store, creds *steam.Credentials, opts *Options) (*Manager, error) {
	if remote == nil || store == nil {
		return nil, fmt.Errorf("remote and store cannot be nil: %w", os.ErrInvalid)
	}
	if creds == nil {
		creds = new(steam.Credentials)
	}
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	lifeCtx, lifeCancel := context.WithCancelCause(context.Background())
	m := &Manager{
		lifeCtx:       lifeCtx,
		lifeCancel:    lifeCancel,
		opts:          *opts,
		creds:         creds,
		remote:        remote,
		store:         store,
		now:           time.Now,
		events:        topic.New[*Event](),
		confirmCh:     make(chan struct{}, 1),
		pendingOffers: make(map[string]time.Time),
	}
	m.publishLocked("")
	return m, nil
}

// Close stops all background activity. Saved session is left intact so that
// the next process can login silently.
func (m *Manager) Close() error {
	m.lifeCancel(os.ErrClosed)

	m.mu.Lock()
	scope := m.scope
	m.scope = nil
	m.mu.Unlock()

	if scope != nil {
		scope.Close()
	}
	return nil
}

// Subscribe returns a receiver for state change events.
func (m *Manager) Subscribe() (*topic.Receiver[*Event], error) {
	return topic.Subscribe(m.events, 0, true /* includeRecent */)
}

// Status returns a snapshot of the current state. It is safe to call at any
// time.
func (m *Manager) Status() *Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.statusLocked()
}

func (m *Manager) statusLocked() *Status {
	now := m.now()
	s := &Status{
		State:             m.state,
		LastLoginAttempt:  m.lastAttempt,
		ReconnectingSince: m.reconnectSince,
		PersonaName:       m.personaName,
	}
	if now.Before(m.cooldownUntil) {
		s.CooldownRemaining = m.cooldownUntil.Sub(now)
	}
	if m.sess != nil {
		s.SteamID = m.sess.SteamID
		s.AccountName = m.sess.AccountName
		s.SessionAge = now.Sub(m.loggedInAt)
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	return s
}

// Session returns a copy of the active web session. Returns
// ErrNotAuthenticated unless the state is LoggedIn.
func (m *Manager) Session() (*steam.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateLoggedIn || m.sess == nil {
		return nil, ErrNotAuthenticated
	}
	return m.sess.Clone(), nil
}

// Login establishes the web session. Without a one-time code, saved session
// is used for a silent login. Attempts that reach the remote service are
// spaced by at least the login cooldown.
func (m *Manager) Login(ctx context.Context, code string) error {
	m.mu.Lock()
	if m.inflight {
		m.mu.Unlock()
		return ErrAlreadyInProgress
	}
	now := m.now()
	if now.Before(m.cooldownUntil) {
		remaining := m.cooldownUntil.Sub(now)
		m.mu.Unlock()
		return &CooldownError{Remaining: remaining}
	}
	if m.state == StateLoggedIn {
		m.mu.Unlock()
		return nil
	}
	m.inflight = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inflight = false
		m.mu.Unlock()
	}()

	var rec *session.Record
	if len(code) == 0 {
		if rec = m.loadRecord(ctx); rec == nil {
			if len(m.creds.SharedSecret) == 0 {
				return ErrCodeRequired
			}
			generated, err := steam.AuthCode(m.creds.SharedSecret, now)
			if err != nil {
				return fmt.Errorf("could not generate one-time code from the shared secret: %w", err)
			}
			slog.Info("using one-time code generated from the shared secret")
			code = generated
		}
	}
	if rec == nil {
		if err := m.creds.Check(); err != nil {
			return fmt.Errorf("interactive login needs account credentials: %w", err)
		}
	}

	m.mu.Lock()
	m.lastAttempt = now
	m.cooldownUntil = now.Add(m.opts.LoginCooldown)
	epoch := m.epoch
	m.setStateLocked(StateAuthenticating, "")
	m.mu.Unlock()

	cctx, ccancel := context.WithTimeout(ctx, m.opts.CallTimeout)
	defer ccancel()

	var s *steam.Session
	var err error
	if rec != nil {
		slog.Info("attempting silent login with the saved session", "account", rec.AccountName, "captured-at", rec.CapturedAt)
		s, err = m.remote.Resume(cctx, rec.AccountName, rec.SessionBlob)
	} else {
		slog.Info("attempting interactive login", "account", m.creds.AccountName)
		s, err = m.remote.Login(cctx, m.creds, code)
	}
	return m.finishLogin(epoch, s, err)
}

func (m *Manager) finishLogin(epoch int64, s *steam.Session, err error) error {
	m.mu.Lock()
	if epoch != m.epoch {
		m.mu.Unlock()
		slog.Warn("discarding login result because of a logout", "err", err)
		return ErrInterrupted
	}
	if err != nil {
		m.lastErr = err
		m.enterLoggedOutLocked("")
		m.mu.Unlock()

		slog.Error("could not login", "err", err)
		if errors.Is(err, steam.ErrInvalidCredentials) {
			m.clearRecord(epoch)
		}
		return err
	}
	m.sess = s
	m.loggedInAt = m.now()
	m.reconnectSince = time.Time{}
	m.lastErr = nil
	m.enterLoggedInLocked()
	m.mu.Unlock()

	slog.Info("logged in", "account", s.AccountName, "steamid", s.SteamID)
	m.saveRecord(epoch, s)
	return nil
}

// Logout cancels all background activity, clears the saved session and moves
// to the LoggedOut state. It is idempotent.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.epoch++
	m.lastErr = nil
	clear(m.pendingOffers)
	retired := m.enterLoggedOutLocked("")
	m.mu.Unlock()

	if retired != nil {
		retired.Wait()
	}
	if err := m.remote.Logout(ctx); err != nil {
		slog.Warn("could not drop web session cookies", "err", err)
	}

	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("could not clear saved session: %w", err)
	}
	return nil
}

// RequestConfirmation registers a sent offer for mobile confirmation and
// wakes up the confirmation loop. It doesn't block.
func (m *Manager) RequestConfirmation(offerID string) {
	m.mu.Lock()
	m.pendingOffers[offerID] = m.now()
	m.mu.Unlock()

	select {
	case m.confirmCh <- struct{}{}:
	default:
	}
}

// ConfirmationKey signs a confirmation request tag with the identity secret.
// It is the only place where confirmation signatures are produced.
func (m *Manager) ConfirmationKey(tag string) (int64, string, error) {
	timestamp := m.now().Unix()
	key, err := steam.Sign(m.creds.IdentitySecret, timestamp, tag)
	if err != nil {
		return 0, "", err
	}
	return timestamp, key, nil
}

// setStateLocked moves the state machine. Leaving LoggedIn/Reconnecting
// cancels the background scope, which is returned to the caller for an
// optional wait outside the lock.
func (m *Manager) setStateLocked(next State, alert string) *ctxutil.CloseGroup {
	prev := m.state
	m.state = next

	var retired *ctxutil.CloseGroup
	if next != StateLoggedIn && next != StateReconnecting && m.scope != nil {
		retired = m.scope
		m.scope = nil
		retired.Cancel(fmt.Errorf("state changed to %s: %w", next, os.ErrClosed))
	}

	if prev != next {
		slog.Info("connection state changed", "from", prev, "to", next)
	}
	if prev != next || len(alert) != 0 {
		m.publishLocked(alert)
	}
	return retired
}

// enterLoggedOutLocked drops the web session and its details before moving
// to the LoggedOut state, so that status never reports a stale session.
func (m *Manager) enterLoggedOutLocked(alert string) *ctxutil.CloseGroup {
	m.sess = nil
	m.personaName = ""
	m.loggedInAt = time.Time{}
	m.reconnectSince = time.Time{}
	return m.setStateLocked(StateLoggedOut, alert)
}

func (m *Manager) publishLocked(alert string) {
	m.events.Send(&Event{At: m.now(), Status: m.statusLocked(), Alert: alert})
}

func (m *Manager) enterLoggedInLocked() {
	m.setStateLocked(StateLoggedIn, "")
	if m.scope != nil {
		return
	}
	if m.lifeCtx.Err() != nil {
		return
	}

	scope := new(ctxutil.CloseGroup)
	m.scope = scope

	scope.Go(func(ctx context.Context) { m.fetchPersonaName(ctx, scope) })
	scope.Go(func(ctx context.Context) { m.renewLoop(ctx, scope) })
	scope.Go(func(ctx context.Context) { m.confirmLoop(ctx, scope) })
	scope.Ticker(m.opts.HeartbeatInterval, func(ctx context.Context) { m.heartbeatOnce(ctx, scope) })
}

func (m *Manager) loadRecord(ctx context.Context) *session.Record {
	rec, err := m.store.Load(ctx)
	if err != nil {
		slog.Warn("could not load saved session; interactive login may be required", "err", err)
		return nil
	}
	if rec == nil {
		return nil
	}
	if len(m.creds.AccountName) != 0 && rec.AccountName != m.creds.AccountName {
		slog.Warn("ignoring saved session of a different account", "saved", rec.AccountName, "configured", m.creds.AccountName)
		return nil
	}
	return rec
}

func (m *Manager) isStale(epoch int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return epoch != m.epoch
}

func (m *Manager) saveRecord(epoch int64, s *steam.Session) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	if m.isStale(epoch) {
		return
	}
	rec := &session.Record{
		AccountName: s.AccountName,
		SessionBlob: s.RefreshToken,
		CapturedAt:  m.now(),
	}
	if err := m.store.Save(m.lifeCtx, rec); err != nil {
		slog.Error("could not save session; next restart needs interactive login", "err", err)
	}
}

func (m *Manager) clearRecord(epoch int64) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	if m.isStale(epoch) {
		return
	}
	if err := m.store.Clear(m.lifeCtx); err != nil {
		slog.Error("could not clear rejected session", "err", err)
	}
}
