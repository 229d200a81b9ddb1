package handler

import (
	"context"

	"github.com/zergu1ar/steambot/policy"
	"go.uber.org/zap"
)

// SimpleHandler trades live with anyone for metal and keys, and accepts
// offers that only give the bot currency.
type SimpleHandler struct {
	base
}

func NewSimpleHandler(env Env, p *policy.BasicPolicy) *SimpleHandler {
	return &SimpleHandler{base: newBase(env, p)}
}

func (h *SimpleHandler) OnFriendAdd() bool { return true }

func (h *SimpleHandler) OnMessage(_ context.Context, text string) {
	h.log.Debug("message", zap.String("text", text))
	if h.env.ChatResponse != "" {
		h.sendChatMessage("%s", h.env.ChatResponse)
	}
}

func (h *SimpleHandler) OnTradeRequest() bool { return true }

func (h *SimpleHandler) OnTradeError(err string) {
	h.sendChatMessage("There was an error: %s.", err)
	h.log.Warn(err)
	h.trade = nil
}

func (h *SimpleHandler) OnTradeTimeout() {
	h.sendChatMessage("Sorry, but you were AFK and the trade was canceled.")
	h.log.Info("User was kicked because they were AFK.")
	h.trade = nil
}

func (h *SimpleHandler) OnTradeInit(trade Trade) {
	h.trade = trade
	h.sendTradeMessage("Success. Please put up your items.")
}

func (h *SimpleHandler) OnTradeAddItem(policy.Item) {
	if h.validate() {
		h.setReady(true)
	}
}

func (h *SimpleHandler) OnTradeMessage(text string) {
	h.log.Info("New TradeMessage: " + text)
}

func (h *SimpleHandler) OnTradeReady(ready bool) {
	if !ready {
		h.setReady(false)
		return
	}
	if h.validate() {
		h.setReady(true)
	}
}

func (h *SimpleHandler) OnTradeAccept() error {
	if !h.validate() && !h.env.Admin {
		return ErrNotAccepted
	}
	return h.acceptTrade()
}

func (h *SimpleHandler) OnTradeSuccess() {
	h.log.Info("Trade Complete.")
	h.trade = nil
}

// validate values the live trade and relays every problem as a trade message.
func (h *SimpleHandler) validate() bool {
	res := h.policy.Validate(h.tradeProposal())
	if res.OK() {
		h.log.Debug("trade valid", zap.Stringer("value", res.Total))
		return true
	}

	h.sendTradeMessage("There were errors in your trade: ")
	for _, msg := range res.Errors {
		h.sendTradeMessage("%s", msg)
	}
	return false
}

func (h *SimpleHandler) setReady(ready bool) {
	if h.trade == nil {
		return
	}
	if err := h.trade.SetReady(ready); err != nil {
		h.log.Warn("set ready failed", zap.Bool("ready", ready), zap.Error(err))
	}
}

func (h *SimpleHandler) OnNewTradeOffer(ctx context.Context, offer Offer) error {
	log := offerLogger(h.log, offer)

	p, err := h.offerProposal(ctx, offer, false)
	if err != nil {
		return err
	}

	d := h.decide(p)
	log = log.With(zap.Stringer("decision", d.Kind), zap.Stringer("value", d.Valuation.Total))

	if d.Kind == policy.Accept {
		return h.acceptOffer(ctx, offer, log)
	}

	if err := h.declineOffer(ctx, offer, log); err != nil {
		return err
	}
	h.sendChatMessage("%s", d.Rationale)
	return nil
}
