// Copyright (c) 2023 BVK Chaitanya

// Package server wires the Steam client, the connection manager and the trade
// dispatcher together and exposes them over http and Telegram.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bvk/steambot/api"
	"github.com/bvk/steambot/bot"
	"github.com/bvk/steambot/ctxutil"
	"github.com/bvk/steambot/pushover"
	"github.com/bvk/steambot/session"
	"github.com/bvk/steambot/steam"
	"github.com/bvk/steambot/telegram"
	"github.com/bvk/steambot/trade"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/visvasity/topic"
)

// notifier delivers operator alerts. It is implemented by *telegram.Client
// and *pushover.Client.
type notifier interface {
	SendMessage(ctx context.Context, at time.Time, text string) error
}

type Server struct {
	lifeCtx    context.Context
	lifeCancel context.CancelCauseFunc

	cg ctxutil.CloseGroup

	opts Options

	secrets *Secrets

	startTime time.Time

	client     *steam.Client
	manager    *bot.Manager
	dispatcher *trade.Dispatcher

	telegramClient *telegram.Client

	notifiers []notifier

	proc *process.Process
}

// New creates the Steam client, the session store, the connection manager
// and the trade dispatcher. Telegram and Pushover clients are created when
// they are configured in the secrets.
func New(ctx context.Context, secrets *Secrets, opts *Options) (_ *Server, status error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	if err := secrets.Check(); err != nil {
		return nil, err
	}

	client, err := steam.New(&opts.Steam)
	if err != nil {
		return nil, fmt.Errorf("could not create steam client: %w", err)
	}
	defer func() {
		if status != nil {
			client.Close()
		}
	}()

	store, err := session.NewFileStore(filepath.Join(opts.DataDir, "sessions"))
	if err != nil {
		return nil, fmt.Errorf("could not create session store: %w", err)
	}

	manager, err := bot.New(client, store, secrets.Steam, &opts.Bot)
	if err != nil {
		return nil, fmt.Errorf("could not create connection manager: %w", err)
	}
	defer func() {
		if status != nil {
			manager.Close()
		}
	}()

	dispatcher, err := trade.New(manager, client, &opts.Trade)
	if err != nil {
		return nil, fmt.Errorf("could not create trade dispatcher: %w", err)
	}

	var notifiers []notifier
	if secrets.Pushover != nil {
		pclient, err := pushover.New(secrets.Pushover, opts.PushoverURL)
		if err != nil {
			return nil, fmt.Errorf("could not create pushover client: %w", err)
		}
		notifiers = append(notifiers, pclient)
	}

	var tclient *telegram.Client
	if secrets.Telegram != nil && !opts.NoTelegram {
		// Chat ids are learned again after every restart when users message
		// the bot.
		v, err := telegram.New(ctx, kvmemdb.New(), secrets.Telegram)
		if err != nil {
			return nil, fmt.Errorf("could not create telegram client: %w", err)
		}
		tclient = v
		notifiers = append(notifiers, tclient)
	}
	defer func() {
		if status != nil && tclient != nil {
			tclient.Close()
		}
	}()

	s, err := newServer(secrets, manager, dispatcher, opts, notifiers...)
	if err != nil {
		return nil, err
	}
	s.client = client
	s.telegramClient = tclient

	if tclient != nil {
		if err := s.addTelegramCommands(ctx); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

func newServer(secrets *Secrets, manager *bot.Manager, dispatcher *trade.Dispatcher, opts *Options, notifiers ...notifier) (*Server, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("could not get process handle: %w", err)
	}

	lifeCtx, lifeCancel := context.WithCancelCause(context.Background())
	s := &Server{
		lifeCtx:    lifeCtx,
		lifeCancel: lifeCancel,
		opts:       *opts,
		secrets:    secrets,
		startTime:  time.Now(),
		manager:    manager,
		dispatcher: dispatcher,
		notifiers:  notifiers,
		proc:       proc,
	}

	receiver, err := manager.Subscribe()
	if err != nil {
		lifeCancel(err)
		return nil, fmt.Errorf("could not subscribe to bot events: %w", err)
	}
	s.cg.Go(func(ctx context.Context) {
		defer receiver.Close()
		s.watchAlerts(ctx, receiver)
	})
	return s, nil
}

// Close stops the background activity and releases all clients. Saved
// session is kept for a silent login by the next instance.
func (s *Server) Close() error {
	s.lifeCancel(os.ErrClosed)
	s.cg.Close()

	if s.telegramClient != nil {
		s.telegramClient.Close()
	}
	s.manager.Close()
	if s.client != nil {
		s.client.Close()
	}
	return nil
}

// Login attempts a silent login with the saved session. It is used at
// startup so that a restarted daemon resumes without operator action.
func (s *Server) Login(ctx context.Context) error {
	return s.manager.Login(ctx, "" /* code */)
}

// HandlerMap returns the http handlers keyed by their url paths.
func (s *Server) HandlerMap() map[string]http.Handler {
	return map[string]http.Handler{
		api.AuthenticatePath: httpPostJSONHandler(s.doAuthenticate),
		api.LogoutPath:       httpPostJSONHandler(s.doLogout),
		api.TradePath:        httpPostJSONHandler(s.doTrade),
		api.StatusPath:       httpGetJSONHandler(s.doStatus),
		api.HealthPath:       httpGetJSONHandler(s.doHealth),
		api.EventsPath:       http.HandlerFunc(s.serveEvents),
	}
}

func (s *Server) watchAlerts(ctx context.Context, receiver *topic.Receiver[*bot.Event]) {
	ch, err := topic.ReceiveCh(receiver)
	if err != nil {
		slog.Error("could not receive bot events", "err", err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			s.notifyEvent(ctx, e)
		}
	}
}

func (s *Server) notifyEvent(ctx context.Context, e *bot.Event) {
	if e == nil || len(e.Alert) == 0 {
		return
	}
	slog.Warn("operator alert", "alert", e.Alert, "state", e.Status.State)
	s.SendMessage(ctx, e.At, "%s", e.Alert)
}

// SendMessage delivers an alert to all configured notifiers. Delivery
// failures are logged and ignored.
func (s *Server) SendMessage(ctx context.Context, at time.Time, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	for _, n := range s.notifiers {
		nctx, ncancel := context.WithTimeout(ctx, s.opts.NotifyTimeout)
		if err := n.SendMessage(nctx, at, msg); err != nil {
			slog.Error("could not send alert (ignored)", "err", err)
		}
		ncancel()
	}
}
