package handler

import (
	"context"
	"strings"

	"github.com/zergu1ar/steambot/policy"
	"github.com/zergu1ar/steambot/steam"
	"go.uber.org/zap"
)

const withdrawCommand = "withdraw"

// TradeOfferHandler works with trade offers only. Offers it cannot accept are
// countered when its policy proposes different item sets.
type TradeOfferHandler struct {
	base
}

func NewTradeOfferHandler(env Env, p *policy.TradeOfferPolicy) *TradeOfferHandler {
	return &TradeOfferHandler{base: newBase(env, p)}
}

func (h *TradeOfferHandler) OnFriendAdd() bool { return h.env.Admin }

func (h *TradeOfferHandler) OnTradeRequest() bool { return false }

func (h *TradeOfferHandler) OnTradeInit(Trade) {}

func (h *TradeOfferHandler) OnTradeAddItem(policy.Item) {}

func (h *TradeOfferHandler) OnTradeReady(bool) {}

func (h *TradeOfferHandler) OnTradeAccept() error { return ErrNotAccepted }

func (h *TradeOfferHandler) OnTradeSuccess() {}

func (h *TradeOfferHandler) OnTradeTimeout() {}

func (h *TradeOfferHandler) OnTradeError(string) {}

func (h *TradeOfferHandler) OnTradeMessage(string) {}

// OnMessage lets an admin withdraw every tradable item the bot holds.
func (h *TradeOfferHandler) OnMessage(ctx context.Context, text string) {
	if !h.env.Admin || !strings.EqualFold(strings.TrimSpace(text), withdrawCommand) {
		return
	}

	inv, err := h.env.Offers.Inventory(ctx, h.env.Bot)
	if err != nil {
		h.log.Error("load bot inventory", zap.Error(err))
		return
	}

	offer := h.env.Offers.NewOffer(h.env.Partner, h.env.TradeToken)
	for _, item := range inv.Filter(steam.IsTradable(true)) {
		offer.Items().AddMyItem(steam.AppIDTF2, steam.ContextIDTF2, item.ID)
	}

	if !offer.Items().NewVersion() {
		h.sendChatMessage("Nothing to withdraw.")
		return
	}

	id, err := offer.Send(ctx, "")
	if err != nil {
		h.log.Error("send withdraw offer", zap.Error(err))
		return
	}
	h.log.Info("Trade offer sent", zap.Uint64("offer_id", id), zap.Int("items", len(offer.Items().MyItems())))
}

func (h *TradeOfferHandler) OnNewTradeOffer(ctx context.Context, offer Offer) error {
	log := offerLogger(h.log, offer)

	p, err := h.offerProposal(ctx, offer, true)
	if err != nil {
		return err
	}

	d := h.decide(p)
	log = log.With(zap.Stringer("decision", d.Kind), zap.Stringer("value", d.Valuation.Total))

	switch d.Kind {
	case policy.Accept:
		return h.acceptOffer(ctx, offer, log)
	case policy.Counter:
		applyCounter(offer.Items(), d.Counter)
		if offer.Items().NewVersion() {
			newID, err := offer.Counter(ctx, d.Rationale)
			if err != nil {
				return err
			}
			log.Info("Counter offered successfully", zap.Uint64("new_offer_id", newID))
			return nil
		}
	}

	return h.declineOffer(ctx, offer, log)
}

// applyCounter reshapes the offer's item sets into the counter's.
func applyCounter(items *steam.OfferItems, counter *policy.CounterOffer) {
	reshape(items.MyItems(), counter.Gives, items.RemoveMyItem, items.AddMyItem)
	reshape(items.TheirItems(), counter.Receives, items.RemoveTheirItem, items.AddTheirItem)
}

func reshape(
	current []*steam.EconItem,
	want []policy.Item,
	remove func(appID uint32, contextID, assetID uint64) bool,
	add func(appID uint32, contextID, assetID uint64) bool,
) {
	keep := make(map[uint64]bool, len(want))
	for _, item := range want {
		keep[item.AssetID] = true
	}

	have := make(map[uint64]bool, len(current))
	for _, item := range append([]*steam.EconItem(nil), current...) {
		have[item.AssetID] = true
		if !keep[item.AssetID] {
			remove(item.AppID, item.ContextID, item.AssetID)
		}
	}

	for _, item := range want {
		if item.AssetID != 0 && !have[item.AssetID] {
			add(steam.AppIDTF2, steam.ContextIDTF2, item.AssetID)
		}
	}
}
