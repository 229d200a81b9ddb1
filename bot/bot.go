// Package bot runs user handlers: it polls trade offers, drives live trade
// sessions and answers mobile confirmations for what the handlers accepted.
package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zergu1ar/steambot/handler"
	"github.com/zergu1ar/steambot/policy"
	"github.com/zergu1ar/steambot/steam"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPollInterval         = 30 * time.Second
	defaultConfirmationInterval = 10 * time.Second

	// confirmations older than an offer's lifetime will never show up
	confirmationTTL = 14 * 24 * time.Hour
)

// OfferAPI is the part of *steam.Client the bot needs.
type OfferAPI interface {
	GetTradeOffers(ctx context.Context, filter uint32, timeCutOff time.Time) (*steam.TradeOfferResponse, error)
	AcceptTradeOffer(ctx context.Context, id uint64) (*steam.AcceptResult, error)
	DeclineTradeOffer(ctx context.Context, id uint64) error
	CounterTradeOffer(ctx context.Context, offer *steam.TradeOffer) error
	SendTradeOffer(ctx context.Context, offer *steam.TradeOffer, sid steam.SteamID, token string) error
	GetPlayerItems(ctx context.Context, sid steam.SteamID) (*steam.Inventory, error)
	GetConfirmations(ctx context.Context) ([]*steam.Confirmation, error)
	AnswerConfirmation(ctx context.Context, confirmation *steam.Confirmation, answer string) error
}

// HandlerFactory builds the handler for one partner.
type HandlerFactory func(env handler.Env) handler.UserHandler

func SimpleHandlers(p *policy.BasicPolicy) HandlerFactory {
	return func(env handler.Env) handler.UserHandler {
		return handler.NewSimpleHandler(env, p)
	}
}

func TradeOfferHandlers(p *policy.TradeOfferPolicy) HandlerFactory {
	return func(env handler.Env) handler.UserHandler {
		return handler.NewTradeOfferHandler(env, p)
	}
}

type Options struct {
	Self                 steam.SteamID
	Admins               []steam.SteamID
	PollInterval         time.Duration
	ConfirmationInterval time.Duration
	ChatResponse         string

	// TradeTokens holds partners' trade offer tokens for offers the bot starts.
	TradeTokens map[steam.SteamID]string

	Chat    handler.Chat
	Schema  policy.Schema
	Log     *zap.Logger
	Metrics *Metrics
}

type Bot struct {
	api      OfferAPI
	opts     Options
	factory  HandlerFactory
	resolver *InventoryResolver
	log      *zap.Logger
	metrics  *Metrics
	admins   map[steam.SteamID]bool
	now      func() time.Time

	mu       sync.Mutex
	handlers map[steam.SteamID]handler.UserHandler
	seen     map[uint64]bool
	confirm  map[uint64]time.Time
}

func New(api OfferAPI, factory HandlerFactory, opts Options) *Bot {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.ConfirmationInterval <= 0 {
		opts.ConfirmationInterval = defaultConfirmationInterval
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	admins := make(map[steam.SteamID]bool, len(opts.Admins))
	for _, sid := range opts.Admins {
		admins[sid] = true
	}

	return &Bot{
		api:      api,
		opts:     opts,
		factory:  factory,
		resolver: NewInventoryResolver(api, opts.Schema),
		log:      opts.Log,
		metrics:  opts.Metrics,
		admins:   admins,
		now:      time.Now,
		handlers: make(map[steam.SteamID]handler.UserHandler),
		seen:     make(map[uint64]bool),
		confirm:  make(map[uint64]time.Time),
	}
}

func (b *Bot) IsAdmin(sid steam.SteamID) bool {
	return b.admins[sid]
}

// HandlerFor returns the partner's handler, creating it on first use.
func (b *Bot) HandlerFor(partner steam.SteamID) handler.UserHandler {
	b.mu.Lock()
	defer b.mu.Unlock()

	if h, ok := b.handlers[partner]; ok {
		return h
	}

	env := handler.Env{
		Bot:          b.opts.Self,
		Partner:      partner,
		Admin:        b.IsAdmin(partner),
		Chat:         b.opts.Chat,
		Offers:       offers{bot: b},
		Resolver:     b.resolver,
		Log:          b.log,
		ChatResponse: b.opts.ChatResponse,
		TradeToken:   b.opts.TradeTokens[partner],
	}
	if b.metrics != nil {
		env.Observer = b.metrics
	}

	h := b.factory(env)
	b.handlers[partner] = h
	return h
}

// FriendRequest asks the partner's handler whether to accept a friend request.
func (b *Bot) FriendRequest(partner steam.SteamID) bool {
	return b.HandlerFor(partner).OnFriendAdd()
}

func (b *Bot) FriendRemoved(partner steam.SteamID) {
	b.HandlerFor(partner).OnFriendRemove()

	b.mu.Lock()
	delete(b.handlers, partner)
	b.mu.Unlock()
}

func (b *Bot) Message(ctx context.Context, partner steam.SteamID, text string) {
	b.HandlerFor(partner).OnMessage(ctx, text)
}

// PollOffers hands every new active received offer to its partner's handler.
// Offers a handler fails on are retried on the next poll.
func (b *Bot) PollOffers(ctx context.Context) error {
	resp, err := b.api.GetTradeOffers(ctx, steam.TradeFilterRecvOffers|steam.TradeFilterActiveOnly, time.Now())
	if err != nil {
		return err
	}

	b.resolver.Reset()
	b.log.Debug("fetched trade offers", zap.Int("received", len(resp.ReceivedOffers)))

	b.forgetInactive(resp.ReceivedOffers)

	for _, o := range resp.ReceivedOffers {
		if o.State != steam.TradeStateActive || o.IsOurOffer || b.wasSeen(o.ID) {
			continue
		}

		partner := o.PartnerSteamID()
		log := b.log.With(
			zap.Uint64("offer_id", o.ID),
			zap.Uint64("partner_steamid64", uint64(partner)),
			zap.Uint8("state", o.State),
		)
		log.Info("checking offer")
		if b.metrics != nil {
			b.metrics.OffersSeen.Inc()
		}

		if err := b.HandlerFor(partner).OnNewTradeOffer(ctx, &offer{bot: b, offer: o}); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("offer not handled", zap.Error(err))
			if b.metrics != nil {
				b.metrics.OfferErrors.Inc()
			}
			continue
		}
		b.markSeen(o.ID)
	}

	return nil
}

func (b *Bot) wasSeen(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seen[id]
}

func (b *Bot) markSeen(id uint64) {
	b.mu.Lock()
	b.seen[id] = true
	b.mu.Unlock()
}

// forgetInactive drops handled offers that are no longer active.
func (b *Bot) forgetInactive(active []*steam.TradeOffer) {
	ids := make(map[uint64]bool, len(active))
	for _, o := range active {
		if o.State == steam.TradeStateActive {
			ids[o.ID] = true
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for id := range b.seen {
		if !ids[id] {
			delete(b.seen, id)
		}
	}
}

func (b *Bot) awaitConfirmation(offerID uint64) {
	b.mu.Lock()
	b.confirm[offerID] = b.now()
	b.mu.Unlock()
}

// expireConfirmations drops offers whose confirmation can no longer appear,
// e.g. confirmed by hand or canceled.
func (b *Bot) expireConfirmations() {
	cutoff := b.now().Add(-confirmationTTL)

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, since := range b.confirm {
		if since.Before(cutoff) {
			b.log.Info("confirmation never appeared", zap.Uint64("offer_id", id))
			delete(b.confirm, id)
		}
	}
}

// PendingConfirmations lists offer ids still waiting for a mobile confirmation.
func (b *Bot) PendingConfirmations() []uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]uint64, 0, len(b.confirm))
	for id := range b.confirm {
		out = append(out, id)
	}
	return out
}

// ConfirmPending allows the mobile confirmations of offers the bot agreed to.
func (b *Bot) ConfirmPending(ctx context.Context) error {
	b.expireConfirmations()
	if len(b.PendingConfirmations()) == 0 {
		return nil
	}

	confirmations, err := b.api.GetConfirmations(ctx)
	if err != nil {
		return err
	}

	for _, c := range confirmations {
		b.mu.Lock()
		_, wanted := b.confirm[c.OfferID]
		b.mu.Unlock()
		if !wanted {
			continue
		}

		log := b.log.With(zap.Uint64("offer_id", c.OfferID), zap.Uint64("confirmation_id", c.ID))
		if err := b.api.AnswerConfirmation(ctx, c, steam.AnswerAllow); err != nil {
			log.Warn("confirmation failed", zap.Error(err))
			b.countConfirmation("failed")
			continue
		}

		b.mu.Lock()
		delete(b.confirm, c.OfferID)
		b.mu.Unlock()
		b.countConfirmation("allowed")
		log.Info("confirmed offer")
	}

	return nil
}

func (b *Bot) countConfirmation(result string) {
	if b.metrics != nil {
		b.metrics.Confirmations.WithLabelValues(result).Inc()
	}
}

// Run polls offers and confirmations until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.every(ctx, b.opts.PollInterval, "poll offers", b.PollOffers)
	})
	g.Go(func() error {
		return b.every(ctx, b.opts.ConfirmationInterval, "confirm offers", b.ConfirmPending)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (b *Bot) every(ctx context.Context, interval time.Duration, name string, fn func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := fn(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.log.Error(name, zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
