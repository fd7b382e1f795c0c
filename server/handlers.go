// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/bvk/steambot/api"
	"github.com/bvk/steambot/bot"
	"github.com/bvk/steambot/session"
	"github.com/bvk/steambot/steam"
	"github.com/bvk/steambot/trade"
)

var errUnauthorized = errors.New("admin password is incorrect")

func statusResponse(st *bot.Status) *api.StatusResponse {
	resp := &api.StatusResponse{
		IsLoggedIn:          st.IsLoggedIn(),
		CooldownRemainingMs: st.CooldownRemaining.Milliseconds(),
		SessionActive:       st.SteamID != 0,
		PersonaName:         st.PersonaName,
		State:               st.State.String(),
		SessionAgeSeconds:   int64(st.SessionAge / time.Second),
		AccountName:         st.AccountName,
		LastError:           st.LastError,
	}
	if st.SteamID != 0 {
		resp.SteamIdentity = strconv.FormatUint(st.SteamID, 10)
	}
	if !st.LastLoginAttempt.IsZero() {
		at := st.LastLoginAttempt
		resp.LastLoginAttempt = &at
	}
	if !st.ReconnectingSince.IsZero() {
		at := st.ReconnectingSince
		resp.ReconnectingSince = &at
	}
	return resp
}

func (s *Server) doStatus(ctx context.Context) (*api.StatusResponse, error) {
	return statusResponse(s.manager.Status()), nil
}

func (s *Server) doHealth(ctx context.Context) (*api.HealthResponse, error) {
	resp := &api.HealthResponse{
		PID:           s.proc.Pid,
		UptimeSeconds: int64(time.Since(s.startTime) / time.Second),
		NumGoroutines: runtime.NumGoroutine(),
		Bot:           statusResponse(s.manager.Status()),
	}
	if mem, err := s.proc.MemoryInfoWithContext(ctx); err != nil {
		slog.Warn("could not get process memory info", "err", err)
	} else {
		resp.RSSBytes = mem.RSS
	}
	if cpu, err := s.proc.CPUPercentWithContext(ctx); err != nil {
		slog.Warn("could not get process cpu usage", "err", err)
	} else {
		resp.CPUPercent = cpu
	}
	return resp, nil
}

func authFailure(status int, code string, err error) *statusError {
	return &statusError{
		status: status,
		err:    err,
		body: &api.AuthenticateResponse{
			Message: err.Error(),
			Code:    code,
		},
	}
}

func (s *Server) doAuthenticate(ctx context.Context, req *api.AuthenticateRequest) (*api.AuthenticateResponse, error) {
	if !s.checkPassword(req.AdminPassword) {
		return nil, authFailure(http.StatusForbidden, api.CodeUnauthorized, errUnauthorized)
	}

	// Login is not abandoned when the operator page goes away.
	ctx = context.WithoutCancel(ctx)
	code := strings.TrimSpace(req.OneTimeCode)
	if err := s.manager.Login(ctx, code); err != nil {
		var cerr *bot.CooldownError
		if errors.As(err, &cerr) {
			e := authFailure(http.StatusTooManyRequests, api.CodeCooldown, err)
			e.body.(*api.AuthenticateResponse).CooldownRemainingMs = cerr.Remaining.Milliseconds()
			return nil, e
		}
		if errors.Is(err, bot.ErrAlreadyInProgress) {
			return nil, authFailure(http.StatusConflict, api.CodeAlreadyInProgress, err)
		}
		return nil, authFailure(http.StatusBadRequest, errorCode(err), err)
	}

	st := s.manager.Status()
	resp := &api.AuthenticateResponse{
		Success: true,
		Message: fmt.Sprintf("Logged in as %s", st.AccountName),
	}
	return resp, nil
}

func (s *Server) doLogout(ctx context.Context, req *api.LogoutRequest) (*api.LogoutResponse, error) {
	if !s.checkPassword(req.AdminPassword) {
		return nil, &statusError{
			status: http.StatusForbidden,
			err:    errUnauthorized,
			body: &api.LogoutResponse{
				Message: errUnauthorized.Error(),
				Code:    api.CodeUnauthorized,
			},
		}
	}
	if err := s.manager.Logout(context.WithoutCancel(ctx)); err != nil {
		return nil, &statusError{
			status: http.StatusInternalServerError,
			err:    err,
			body: &api.LogoutResponse{
				Message: err.Error(),
				Code:    errorCode(err),
			},
		}
	}
	return &api.LogoutResponse{Success: true, Message: "Logged out"}, nil
}

// errorCode maps an error to its api error code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, bot.ErrCooldown):
		return api.CodeCooldown
	case errors.Is(err, bot.ErrAlreadyInProgress):
		return api.CodeAlreadyInProgress
	case errors.Is(err, bot.ErrNotAuthenticated):
		return api.CodeNotAuthenticated
	case errors.Is(err, trade.ErrEmptyOffer):
		return api.CodeEmptyOffer
	case errors.Is(err, trade.ErrInvalidTradeURL):
		return api.CodeInvalidTradeURL
	case errors.Is(err, trade.ErrInvalidItem), errors.Is(err, os.ErrInvalid):
		return api.CodeInvalidRequest
	case errors.Is(err, steam.ErrInvalidCredentials):
		return api.CodeInvalidCredentials
	case errors.Is(err, steam.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return api.CodeTimeout
	case errors.Is(err, steam.ErrTransientNetwork):
		return api.CodeTransientNetwork
	case errors.Is(err, steam.ErrSessionExpired):
		return api.CodeSessionExpired
	case errors.Is(err, session.ErrStoreUnavailable):
		return api.CodeStoreUnavailable
	}
	var rerr *steam.RemoteError
	if errors.As(err, &rerr) {
		return api.CodeRemoteRejected
	}
	if errors.Is(err, steam.ErrRemoteRejected) {
		return api.CodeRemoteRejected
	}
	return api.CodeInternal
}

func tradeItems(items []*api.TradeItem) ([]*trade.Item, error) {
	result := make([]*trade.Item, 0, len(items))
	for i, item := range items {
		if item == nil {
			return nil, fmt.Errorf("item %d is null: %w", i, os.ErrInvalid)
		}
		v := &trade.Item{
			AssetID:   string(item.AssetID),
			AppID:     item.AppID,
			ContextID: string(item.ContextID),
			Type:      item.Type,
		}
		if len(item.Amount) != 0 {
			amount, err := strconv.Atoi(string(item.Amount))
			if err != nil || amount < 0 {
				return nil, fmt.Errorf("item %d has invalid amount %q: %w", i, item.Amount, os.ErrInvalid)
			}
			v.Amount = amount
		}
		result = append(result, v)
	}
	return result, nil
}

func (s *Server) doTrade(ctx context.Context, req *api.TradeRequest) (*api.TradeResponse, error) {
	req.Normalize()
	if len(req.Items) == 0 {
		return nil, newStatusError(http.StatusBadRequest, api.CodeEmptyOffer, trade.ErrEmptyOffer)
	}
	if err := req.CheckTradeURL(); err != nil {
		return nil, newStatusError(http.StatusBadRequest, api.CodeInvalidTradeURL, fmt.Errorf("%w: %v", trade.ErrInvalidTradeURL, err))
	}
	items, err := tradeItems(req.Items)
	if err != nil {
		return nil, newStatusError(http.StatusBadRequest, api.CodeInvalidRequest, err)
	}

	treq := &trade.Request{
		TradeURL: req.RecipientTradeURL,
		Items:    items,
		Message:  req.Message,
	}
	result, err := s.dispatcher.SendOffer(context.WithoutCancel(ctx), treq)
	if err != nil {
		return nil, tradeFailure(err)
	}

	resp := &api.TradeResponse{
		Success:           true,
		TradeOfferID:      result.OfferID,
		ItemCount:         result.ItemCount,
		Status:            result.Status,
		NeedsConfirmation: result.NeedsConfirmation,

		NeedsEmailConfirmation: result.NeedsEmailConfirmation,
	}
	return resp, nil
}

func tradeFailure(err error) *statusError {
	code := errorCode(err)
	status := http.StatusInternalServerError
	switch code {
	case api.CodeEmptyOffer, api.CodeInvalidTradeURL, api.CodeInvalidRequest:
		status = http.StatusBadRequest
	case api.CodeNotAuthenticated:
		status = http.StatusServiceUnavailable
	}

	e := newStatusError(status, code, err)
	var rerr *steam.RemoteError
	if errors.As(err, &rerr) {
		body := e.body.(*api.ErrorResponse)
		body.RemoteCode = rerr.Subcode()
		body.EResult = int(rerr.EResult)
	}
	return e
}
