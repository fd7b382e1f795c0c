// Copyright (c) 2025 BVK Chaitanya

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bvk/steambot/ctxutil"
	"github.com/bvk/steambot/session"
	"github.com/bvk/steambot/steam"
)

func (m *Manager) fetchPersonaName(ctx context.Context, scope *ctxutil.CloseGroup) {
	m.mu.Lock()
	if m.scope != scope || m.sess == nil {
		m.mu.Unlock()
		return
	}
	steamID := m.sess.SteamID
	m.mu.Unlock()

	cctx, ccancel := context.WithTimeout(ctx, m.opts.CallTimeout)
	defer ccancel()

	name, err := m.remote.PersonaName(cctx, steamID)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("could not fetch persona name", "steamid", steamID, "err", err)
		}
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.scope == scope {
		m.personaName = name
		m.publishLocked("")
	}
}

func (m *Manager) renewLoop(ctx context.Context, scope *ctxutil.CloseGroup) {
	wait := m.opts.RenewInterval
	for {
		if err := ctxutil.Sleep(ctx, wait); err != nil {
			return
		}
		wait = m.opts.RenewInterval
		if err := m.renewOnce(ctx, scope); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("could not renew web session (will retry)", "retry-after", m.opts.RenewRetryInterval, "err", err)
			wait = m.opts.RenewRetryInterval
		}
	}
}

// renewOnce refreshes the web session access token. Saved session is updated
// when the remote service rotates the refresh token.
func (m *Manager) renewOnce(ctx context.Context, scope *ctxutil.CloseGroup) error {
	m.mu.Lock()
	if m.scope != scope || m.state != StateLoggedIn {
		m.mu.Unlock()
		return nil
	}
	s, epoch := m.sess, m.epoch
	m.mu.Unlock()

	cctx, ccancel := context.WithTimeout(ctx, m.opts.CallTimeout)
	defer ccancel()

	renewed, err := m.remote.Renew(cctx, s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.scope != scope || m.state != StateLoggedIn || epoch != m.epoch {
		m.mu.Unlock()
		return nil
	}
	m.sess = renewed
	m.mu.Unlock()

	slog.Info("renewed web session", "expires-at", renewed.ExpiresAt)
	if renewed.RefreshToken != s.RefreshToken {
		m.saveRecord(epoch, renewed)
	}
	return nil
}

// heartbeatOnce checks the web session liveness when logged in and attempts a
// reconnect when the session is lost.
func (m *Manager) heartbeatOnce(ctx context.Context, scope *ctxutil.CloseGroup) {
	m.mu.Lock()
	if m.scope != scope {
		m.mu.Unlock()
		return
	}
	state, s := m.state, m.sess
	m.mu.Unlock()

	if state == StateLoggedIn {
		hctx, hcancel := context.WithTimeout(ctx, m.opts.CallTimeout)
		err := m.remote.Heartbeat(hctx, s)
		hcancel()

		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		slog.Warn("heartbeat failed; reconnecting", "err", err)

		m.mu.Lock()
		if m.scope != scope || m.state != StateLoggedIn {
			m.mu.Unlock()
			return
		}
		m.lastErr = err
		m.reconnectSince = m.now()
		m.setStateLocked(StateReconnecting, "")
		m.mu.Unlock()
	}

	m.reconnectOnce(ctx, scope)
}

// reconnectOnce makes one silent login attempt. Failures other than
// credential rejection keep the Reconnecting state till the reconnect ceiling
// is reached.
func (m *Manager) reconnectOnce(ctx context.Context, scope *ctxutil.CloseGroup) {
	m.mu.Lock()
	if m.scope != scope || m.state != StateReconnecting {
		m.mu.Unlock()
		return
	}
	now := m.now()
	if elapsed := now.Sub(m.reconnectSince); elapsed >= m.opts.ReconnectCeiling {
		m.lastErr = fmt.Errorf("could not reconnect in %s: %w", elapsed.Round(time.Second), m.lastErr)
		alert := fmt.Sprintf("Steam session was lost and could not be restored in %s; login is required.", elapsed.Round(time.Second))
		m.enterLoggedOutLocked(alert)
		m.mu.Unlock()
		slog.Error("giving up on reconnect", "elapsed", elapsed, "ceiling", m.opts.ReconnectCeiling)
		return
	}
	if m.inflight || now.Before(m.cooldownUntil) {
		m.mu.Unlock()
		return
	}
	m.inflight = true
	m.lastAttempt = now
	m.cooldownUntil = now.Add(m.opts.LoginCooldown)
	epoch, last := m.epoch, m.sess
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inflight = false
		m.mu.Unlock()
	}()

	rec := m.loadRecord(ctx)
	if rec == nil && last != nil {
		rec = &session.Record{AccountName: last.AccountName, SessionBlob: last.RefreshToken}
	}

	var s *steam.Session
	var err error
	if rec == nil {
		err = fmt.Errorf("no saved session to reconnect with: %w", steam.ErrInvalidCredentials)
	} else {
		cctx, ccancel := context.WithTimeout(ctx, m.opts.CallTimeout)
		s, err = m.remote.Resume(cctx, rec.AccountName, rec.SessionBlob)
		ccancel()
	}

	m.mu.Lock()
	if m.scope != scope || m.state != StateReconnecting || epoch != m.epoch {
		m.mu.Unlock()
		return
	}
	if err != nil {
		m.lastErr = err
		if errors.Is(err, steam.ErrInvalidCredentials) {
			m.enterLoggedOutLocked("Saved Steam session was rejected; interactive login is required.")
			m.mu.Unlock()

			slog.Error("saved session was rejected while reconnecting", "err", err)
			m.clearRecord(epoch)
			return
		}
		m.mu.Unlock()
		if ctx.Err() == nil {
			slog.Warn("could not reconnect (will retry)", "err", err)
		}
		return
	}
	m.sess = s
	m.loggedInAt = m.now()
	m.reconnectSince = time.Time{}
	m.lastErr = nil
	m.setStateLocked(StateLoggedIn, "")
	m.mu.Unlock()

	slog.Info("reconnected with the saved session", "account", s.AccountName)
	m.saveRecord(epoch, s)
}

func (m *Manager) confirmLoop(ctx context.Context, scope *ctxutil.CloseGroup) {
	ticker := time.NewTicker(m.opts.ConfirmationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-m.confirmCh:
		}
		if err := m.confirmOnce(ctx, scope); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("could not process trade confirmations", "err", err)
		}
	}
}

// confirmOnce accepts pending trade confirmations for the offers sent by this
// process.
func (m *Manager) confirmOnce(ctx context.Context, scope *ctxutil.CloseGroup) error {
	m.mu.Lock()
	if m.scope != scope || m.state != StateLoggedIn {
		m.mu.Unlock()
		return nil
	}
	now := m.now()
	for id, at := range m.pendingOffers {
		if now.Sub(at) > m.opts.PendingOfferTimeout {
			slog.Warn("forgetting trade offer that was never confirmed", "offer", id, "sent-at", at)
			delete(m.pendingOffers, id)
		}
	}
	if len(m.pendingOffers) == 0 {
		m.mu.Unlock()
		return nil
	}
	if len(m.creds.IdentitySecret) == 0 {
		if !m.missingSecretAlerted {
			m.missingSecretAlerted = true
			m.publishLocked("Trade offers need mobile confirmation but identity secret is not configured.")
		}
		m.mu.Unlock()
		return fmt.Errorf("cannot confirm trade offers: %w", steam.ErrMissingSecret)
	}
	s := m.sess
	m.mu.Unlock()

	cctx, ccancel := context.WithTimeout(ctx, m.opts.CallTimeout)
	defer ccancel()

	confs, err := m.remote.Confirmations(cctx, s, m.ConfirmationKey)
	if err != nil {
		return err
	}
	for _, conf := range confs {
		if conf.Type != steam.ConfirmationTypeTrade {
			continue
		}
		m.mu.Lock()
		_, ok := m.pendingOffers[conf.CreatorID]
		m.mu.Unlock()
		if !ok {
			continue
		}
		if err := m.remote.AcceptConfirmation(cctx, s, m.ConfirmationKey, conf); err != nil {
			slog.Warn("could not accept trade offer confirmation", "offer", conf.CreatorID, "err", err)
			continue
		}
		slog.Info("accepted trade offer confirmation", "offer", conf.CreatorID, "headline", conf.Headline)

		m.mu.Lock()
		delete(m.pendingOffers, conf.CreatorID)
		m.mu.Unlock()
	}
	return nil
}
