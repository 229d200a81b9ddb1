// Package handler holds the per-partner user handlers the bot runtime calls on
// friend, chat, live trade and trade offer events.
package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/zergu1ar/steambot/policy"
	"github.com/zergu1ar/steambot/steam"
	"go.uber.org/zap"
)

var (
	// ErrAmbiguousAccept means accepting a live trade failed in a way that does
	// not tell whether the trade went through.
	ErrAmbiguousAccept = errors.New("the trade might have failed, but we can't be sure")
	ErrNotAccepted     = errors.New("trade was not accepted")
	ErrSessionTimeout  = errors.New("trade session timed out")
)

// Chat relays messages to a Steam friend. Delivery is not confirmed.
type Chat interface {
	SendChatMessage(to steam.SteamID, text string) error
}

// Trade is a live trade session with the partner.
type Trade interface {
	SetReady(ready bool) error
	// AcceptTrade may fail on trades with many items even when the trade went through.
	AcceptTrade() (bool, error)
	OtherOfferedItems() []uint64
	OtherItem(assetID uint64) (policy.Item, bool)
	SendMessage(text string) error
}

// Offer is a trade offer, received or composed by the bot.
type Offer interface {
	ID() uint64
	Partner() steam.SteamID
	Items() *steam.OfferItems
	Accept(ctx context.Context) (tradeID uint64, err error)
	Decline(ctx context.Context) error
	Counter(ctx context.Context, message string) (newOfferID uint64, err error)
	Send(ctx context.Context, message string) (offerID uint64, err error)
}

// Offers creates outgoing offers and reads inventories.
type Offers interface {
	// NewOffer starts an offer to partner; token is the partner's trade
	// offer token and may be empty for friends.
	NewOffer(partner steam.SteamID, token string) Offer
	Inventory(ctx context.Context, owner steam.SteamID) (*steam.Inventory, error)
}

// ItemResolver turns an offer asset owned by owner into a policy item.
type ItemResolver interface {
	Resolve(ctx context.Context, owner steam.SteamID, item *steam.EconItem) (policy.Item, error)
}

// Observer is told about decisions, for metrics.
type Observer interface {
	Decided(policyName string, kind policy.Kind)
	AmbiguousAccept()
}

type nopObserver struct{}

func (nopObserver) Decided(string, policy.Kind) {}
func (nopObserver) AmbiguousAccept()            {}

// Env is what a handler knows about the bot and its partner.
type Env struct {
	Bot      steam.SteamID
	Partner  steam.SteamID
	Admin    bool
	Chat     Chat
	Offers   Offers
	Resolver ItemResolver
	Observer Observer
	Log      *zap.Logger
	// ChatResponse is sent back to any friend message when set.
	ChatResponse string
	// TradeToken lets offers reach a partner who is not a friend.
	TradeToken string
}

type UserHandler interface {
	OnFriendAdd() bool
	OnFriendRemove()
	OnGroupAdd() bool
	OnLoginCompleted()
	OnMessage(ctx context.Context, text string)
	OnChatRoomMessage(chatID, sender steam.SteamID, senderName, text string)

	OnTradeRequest() bool
	OnTradeInit(trade Trade)
	OnTradeAddItem(item policy.Item)
	OnTradeRemoveItem(item policy.Item)
	OnTradeMessage(text string)
	OnTradeReady(ready bool)
	// OnTradeAccept returns nil once the trade is accepted.
	OnTradeAccept() error
	OnTradeSuccess()
	OnTradeTimeout()
	OnTradeError(err string)

	// OnNewTradeOffer returns an error when the offer could not be evaluated
	// and should be looked at again later.
	OnNewTradeOffer(ctx context.Context, offer Offer) error
}

type base struct {
	env    Env
	policy policy.Policy
	trade  Trade
	log    *zap.Logger
}

func newBase(env Env, p policy.Policy) base {
	if env.Log == nil {
		env.Log = zap.NewNop()
	}
	if env.Observer == nil {
		env.Observer = nopObserver{}
	}
	return base{
		env:    env,
		policy: p,
		log:    env.Log.With(zap.Uint64("partner_steamid64", uint64(env.Partner))),
	}
}

func (b *base) sendChatMessage(format string, args ...interface{}) {
	if b.env.Chat == nil {
		return
	}
	if err := b.env.Chat.SendChatMessage(b.env.Partner, fmt.Sprintf(format, args...)); err != nil {
		b.log.Debug("chat message not sent", zap.Error(err))
	}
}

func (b *base) sendTradeMessage(format string, args ...interface{}) {
	if b.trade == nil {
		return
	}
	if err := b.trade.SendMessage(fmt.Sprintf(format, args...)); err != nil {
		b.log.Debug("trade message not sent", zap.Error(err))
	}
}

// tradeProposal snapshots the live trade's offered items.
func (b *base) tradeProposal() *policy.Proposal {
	p := &policy.Proposal{
		RequesterID: uint64(b.env.Partner),
		Privileged:  b.env.Admin,
	}
	if b.trade == nil {
		return p
	}
	for _, assetID := range b.trade.OtherOfferedItems() {
		item, ok := b.trade.OtherItem(assetID)
		if !ok {
			item = unknownAsset(assetID)
		}
		p.Receives = append(p.Receives, item)
	}
	return p
}

// offerProposal snapshots a trade offer's item sets. Privileged requesters
// are accepted whatever the offer holds, so nothing is looked up for them.
// When the bot is asked to give items the offer is never accepted on value,
// and assets that cannot be resolved count as unrecognized instead of
// failing the offer.
func (b *base) offerProposal(ctx context.Context, offer Offer, counterable bool) (*policy.Proposal, error) {
	p := &policy.Proposal{
		RequesterID: uint64(offer.Partner()),
		Privileged:  b.env.Admin,
		Counterable: counterable,
	}
	if p.Privileged {
		return p, nil
	}

	items := offer.Items()
	lenient := len(items.MyItems()) > 0
	for _, econ := range items.MyItems() {
		item, err := b.resolve(ctx, b.env.Bot, econ, lenient)
		if err != nil {
			return nil, fmt.Errorf("resolve my item %d: %w", econ.AssetID, err)
		}
		p.Gives = append(p.Gives, item)
	}
	for _, econ := range items.TheirItems() {
		item, err := b.resolve(ctx, offer.Partner(), econ, lenient)
		if err != nil {
			return nil, fmt.Errorf("resolve their item %d: %w", econ.AssetID, err)
		}
		p.Receives = append(p.Receives, item)
	}

	return p, nil
}

func (b *base) resolve(ctx context.Context, owner steam.SteamID, econ *steam.EconItem, lenient bool) (policy.Item, error) {
	item, err := b.env.Resolver.Resolve(ctx, owner, econ)
	if err == nil {
		return item, nil
	}
	if !lenient || ctx.Err() != nil {
		return policy.Item{}, err
	}

	b.log.Debug("asset not resolved", zap.Uint64("asset_id", econ.AssetID), zap.Error(err))
	return unknownAsset(econ.AssetID), nil
}

func unknownAsset(assetID uint64) policy.Item {
	return policy.Item{Defindex: -1, Name: fmt.Sprintf("Asset #%d", assetID), AssetID: assetID}
}

func (b *base) decide(p *policy.Proposal) policy.Decision {
	d := b.policy.DecideOnOffer(p)
	b.env.Observer.Decided(b.policy.Name(), d.Kind)
	return d
}

// acceptTrade runs the accept gate of a live trade.
func (b *base) acceptTrade() error {
	if b.trade == nil {
		return ErrNotAccepted
	}

	ok, err := b.trade.AcceptTrade()
	if err != nil {
		b.env.Observer.AmbiguousAccept()
		b.log.Warn("The trade might have failed, but we can't be sure.", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrAmbiguousAccept, err)
	}
	if !ok {
		return ErrNotAccepted
	}

	b.log.Info("Trade Accepted!")
	return nil
}

func (b *base) acceptOffer(ctx context.Context, offer Offer, log *zap.Logger) error {
	tradeID, err := offer.Accept(ctx)
	if err != nil {
		return fmt.Errorf("accept offer %d: %w", offer.ID(), err)
	}
	log.Info("accepted trade offer", zap.Uint64("trade_id", tradeID))
	return nil
}

func (b *base) declineOffer(ctx context.Context, offer Offer, log *zap.Logger) error {
	if err := offer.Decline(ctx); err != nil {
		return fmt.Errorf("decline offer %d: %w", offer.ID(), err)
	}
	log.Info("declined trade offer")
	return nil
}

func offerLogger(log *zap.Logger, offer Offer) *zap.Logger {
	items := offer.Items()
	return log.With(
		zap.Uint64("offer_id", offer.ID()),
		zap.Int("my_items", len(items.MyItems())),
		zap.Int("their_items", len(items.TheirItems())),
	)
}

func (b *base) OnFriendRemove() {}

func (b *base) OnLoginCompleted() {}

func (b *base) OnGroupAdd() bool { return false }

func (b *base) OnTradeRemoveItem(policy.Item) {}

func (b *base) OnChatRoomMessage(_, _ steam.SteamID, senderName, text string) {
	b.log.Info(senderName + ": " + text)
}
