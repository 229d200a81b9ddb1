package bot

import (
	"context"

	"github.com/zergu1ar/steambot/handler"
	"github.com/zergu1ar/steambot/steam"
)

// offer binds a steam trade offer to the api that acts on it.
type offer struct {
	bot   *Bot
	offer *steam.TradeOffer
	token string
}

func (o *offer) ID() uint64 { return o.offer.ID }

func (o *offer) Partner() steam.SteamID { return o.offer.PartnerSteamID() }

func (o *offer) Items() *steam.OfferItems { return o.offer.Items() }

func (o *offer) Accept(ctx context.Context) (uint64, error) {
	res, err := o.bot.api.AcceptTradeOffer(ctx, o.offer.ID)
	if err != nil {
		return 0, err
	}
	if res.MobileConfirmationRequired {
		o.bot.awaitConfirmation(o.offer.ID)
	}
	return res.TradeID, nil
}

func (o *offer) Decline(ctx context.Context) error {
	return o.bot.api.DeclineTradeOffer(ctx, o.offer.ID)
}

func (o *offer) Counter(ctx context.Context, message string) (uint64, error) {
	o.offer.Message = message
	if err := o.bot.api.CounterTradeOffer(ctx, o.offer); err != nil {
		return 0, err
	}
	o.confirmIfNeeded()
	return o.offer.ID, nil
}

func (o *offer) Send(ctx context.Context, message string) (uint64, error) {
	o.offer.Message = message
	if err := o.bot.api.SendTradeOffer(ctx, o.offer, o.Partner(), o.token); err != nil {
		return 0, err
	}
	o.confirmIfNeeded()
	return o.offer.ID, nil
}

func (o *offer) confirmIfNeeded() {
	if o.offer.State == steam.TradeStateCreatedNeedsConfirmation {
		o.bot.awaitConfirmation(o.offer.ID)
	}
}

// offers gives handlers a way to compose offers and read backpacks.
type offers struct {
	bot *Bot
}

func (o offers) NewOffer(partner steam.SteamID, token string) handler.Offer {
	return &offer{bot: o.bot, offer: steam.NewTradeOffer(partner), token: token}
}

func (o offers) Inventory(ctx context.Context, owner steam.SteamID) (*steam.Inventory, error) {
	return o.bot.api.GetPlayerItems(ctx, owner)
}
