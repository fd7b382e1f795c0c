// Copyright (c) 2025 BVK Chaitanya

// Package trade sends trade offers through the bot's active web session.
package trade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bvk/steambot/ctxutil"
	"github.com/bvk/steambot/steam"
	"github.com/google/uuid"
)

const (
	AppIDDota2 = 570
	AppIDCS    = 730

	DefaultContextID = "2"
)

// Offer statuses reported in the Result.
const (
	StatusSent                     = "sent"
	StatusPendingConfirmation      = "pending-confirmation"
	StatusPendingEmailConfirmation = "pending-email-confirmation"
)

// SessionSource provides the active web session. It is implemented by
// *bot.Manager.
type SessionSource interface {
	Session() (*steam.Session, error)

	// RequestConfirmation asks for a mobile confirmation of the offer in the
	// background.
	RequestConfirmation(offerID string)
}

// Sender submits trade offers. It is implemented by *steam.Client.
type Sender interface {
	SendOffer(ctx context.Context, s *steam.Session, offer *steam.TradeOffer) (*steam.TradeOfferResult, error)
}

// Defaults for the Options used when New is given nil options.
const (
	DefaultMaxRetries = 2
	DefaultRetryDelay = 2 * time.Second
)

type Options struct {
	// MaxRetries is the number of retries after the first attempt for
	// transient failures. Zero disables retries.
	MaxRetries int

	// RetryDelay is the fixed wait between two attempts.
	RetryDelay time.Duration

	// AttemptTimeout is the time budget for a single attempt.
	AttemptTimeout time.Duration
}

func (v *Options) setDefaults() {
	if v.AttemptTimeout == 0 {
		v.AttemptTimeout = 30 * time.Second
	}
}

func (v *Options) Check() error {
	if v.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative: %w", os.ErrInvalid)
	}
	if v.RetryDelay < 0 || v.AttemptTimeout <= 0 {
		return fmt.Errorf("retry delay and attempt timeout must be positive: %w", os.ErrInvalid)
	}
	return nil
}

// Item is an inventory item to include in the offer.
type Item struct {
	AssetID string

	// AppID is inferred from the Type when zero.
	AppID int

	// ContextID defaults to DefaultContextID.
	ContextID string

	// Amount defaults to one.
	Amount int

	// Type is the item's type label, like "Dota 2 Immortal" or "Classified
	// Rifle".
	Type string
}

type Request struct {
	TradeURL string
	Items    []*Item
	Message  string
}

type Result struct {
	RequestID string
	OfferID   string
	Status    string
	ItemCount int

	NeedsConfirmation bool

	// NeedsEmailConfirmation is set when the account has no mobile
	// authenticator and the offer must be confirmed from the email link.
	NeedsEmailConfirmation bool
}

// Dispatcher sends trade offers one at a time.
type Dispatcher struct {
	opts Options

	source SessionSource
	sender Sender

	sleep func(context.Context, time.Duration) error

	mu sync.Mutex
}

func New(source SessionSource, sender Sender, opts *Options) (*Dispatcher, error) {
	if source == nil || sender == nil {
		return nil, fmt.Errorf("session source and sender cannot be nil: %w", os.ErrInvalid)
	}
	if opts == nil {
		opts = &Options{
			MaxRetries: DefaultMaxRetries,
			RetryDelay: DefaultRetryDelay,
		}
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	d := &Dispatcher{
		opts:   *opts,
		source: source,
		sender: sender,
		sleep:  ctxutil.Sleep,
	}
	return d, nil
}

// ResolveAppID returns the explicit app id of the item or infers it from the
// item's type label.
func ResolveAppID(item *Item) int {
	if item.AppID != 0 {
		return item.AppID
	}
	if strings.Contains(item.Type, "Dota") {
		return AppIDDota2
	}
	return AppIDCS
}

func buildAssets(items []*Item) ([]*steam.Asset, error) {
	assets := make([]*steam.Asset, 0, len(items))
	for i, item := range items {
		if item == nil || len(strings.TrimSpace(item.AssetID)) == 0 {
			return nil, fmt.Errorf("item %d has no asset id: %w", i, ErrInvalidItem)
		}
		if item.Amount < 0 {
			return nil, fmt.Errorf("item %d has negative amount: %w", i, ErrInvalidItem)
		}
		asset := &steam.Asset{
			AppID:     ResolveAppID(item),
			ContextID: item.ContextID,
			Amount:    item.Amount,
			AssetID:   item.AssetID,
		}
		if len(asset.ContextID) == 0 {
			asset.ContextID = DefaultContextID
		}
		if asset.Amount == 0 {
			asset.Amount = 1
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// SendOffer validates the request and submits the offer. Transient failures
// are retried up to MaxRetries times with a fixed delay. Success means the
// offer is accepted by the remote queue; a required mobile confirmation is
// handled in the background by the session source.
func (d *Dispatcher) SendOffer(ctx context.Context, req *Request) (*Result, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOffer
	}
	turl, err := ParseTradeURL(req.TradeURL)
	if err != nil {
		return nil, err
	}
	assets, err := buildAssets(req.Items)
	if err != nil {
		return nil, err
	}
	sess, err := d.source.Session()
	if err != nil {
		return nil, err
	}

	reqID := uuid.New().String()
	if len(turl.Token) == 0 {
		slog.Warn("trade url has no access token; offer is only accepted if the partner is a friend", "request", reqID, "trade-url", turl.String())
	}

	offer := &steam.TradeOffer{
		PartnerSteamID: turl.SteamID(),
		AccessToken:    turl.Token,
		Message:        req.Message,
		Items:          assets,
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var lastErr error
	attempts := 0
	for attempts <= d.opts.MaxRetries {
		if attempts > 0 {
			if err := d.sleep(ctx, d.opts.RetryDelay); err != nil {
				return nil, err
			}
			// Session may be replaced by a renewal or reconnect in between.
			if sess, err = d.source.Session(); err != nil {
				return nil, err
			}
		}
		attempts++

		actx, acancel := context.WithTimeout(ctx, d.opts.AttemptTimeout)
		result, err := d.sender.SendOffer(actx, sess, offer)
		acancel()

		if err == nil {
			r := &Result{
				RequestID:         reqID,
				OfferID:           result.OfferID,
				Status:            StatusSent,
				ItemCount:         len(assets),
				NeedsConfirmation: result.NeedsMobileConfirmation,

				NeedsEmailConfirmation: result.NeedsEmailConfirmation,
			}
			if result.NeedsMobileConfirmation {
				r.Status = StatusPendingConfirmation
				d.source.RequestConfirmation(result.OfferID)
			} else if result.NeedsEmailConfirmation {
				r.Status = StatusPendingEmailConfirmation
				slog.Warn("trade offer needs email confirmation by the account owner", "request", reqID, "offer", r.OfferID)
			}
			slog.Info("sent trade offer", "request", reqID, "offer", r.OfferID, "partner", turl.Partner, "items", r.ItemCount, "status", r.Status, "attempts", attempts)
			return r, nil
		}

		if ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		if !steam.IsTransient(err) {
			break
		}
		slog.Warn("could not send trade offer", "request", reqID, "attempt", attempts, "err", err)
	}

	slog.Error("giving up on trade offer", "request", reqID, "attempts", attempts, "err", lastErr)
	var rerr *steam.RemoteError
	if errors.As(lastErr, &rerr) {
		return nil, fmt.Errorf("could not send trade offer in %d attempt(s) (eresult %d): %w", attempts, rerr.EResult, lastErr)
	}
	return nil, fmt.Errorf("could not send trade offer in %d attempt(s): %w", attempts, lastErr)
}
