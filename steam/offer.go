package steam

import "context"

type EconItem struct {
	AssetID    uint64 `json:"assetid,string,omitempty"`
	InstanceID uint64 `json:"instanceid,string,omitempty"`
	ClassID    uint64 `json:"classid,string,omitempty"`
	AppID      uint32 `json:"appid"`
	ContextID  uint64 `json:"contextid,string"`
	Amount     uint16 `json:"amount,string"`
	Missing    bool   `json:"missing,omitempty"`
}

func (item *EconItem) is(appID uint32, contextID, assetID uint64) bool {
	return item.AppID == appID && item.ContextID == contextID && item.AssetID == assetID
}

type TradeOffer struct {
	ID                 uint64      `json:"tradeofferid,string"`
	Partner            uint32      `json:"accountid_other"`
	ReceiptID          uint64      `json:"tradeid,string"`
	RecvItems          []*EconItem `json:"items_to_receive"`
	SendItems          []*EconItem `json:"items_to_give"`
	Message            string      `json:"message"`
	State              uint8       `json:"trade_offer_state"`
	ConfirmationMethod uint8       `json:"confirmation_method"`
	Created            int64       `json:"time_created"`
	Updated            int64       `json:"time_updated"`
	Expires            int64       `json:"expiration_time"`
	EscrowEndDate      int64       `json:"escrow_end_date"`
	RealTime           bool        `json:"from_real_time_trade"`
	IsOurOffer         bool        `json:"is_our_offer"`

	items *OfferItems
}

// NewTradeOffer starts an empty outgoing offer to the partner.
func NewTradeOffer(partner SteamID) *TradeOffer {
	return &TradeOffer{Partner: partner.GetAccountID(), IsOurOffer: true}
}

func (offer *TradeOffer) PartnerSteamID() SteamID {
	var sid SteamID
	sid.ParseDefaults(offer.Partner)
	return sid
}

// Items gives access to the offer's item sets. Changes made through it mark
// the offer as having a new version that must be sent or countered.
func (offer *TradeOffer) Items() *OfferItems {
	if offer.items == nil {
		offer.items = &OfferItems{offer: offer, version: 1}
	}
	return offer.items
}

func (offer *TradeOffer) Send(ctx context.Context, c *Client, sid SteamID, token string) error {
	return c.SendTradeOffer(ctx, offer, sid, token)
}

func (offer *TradeOffer) Accept(ctx context.Context, c *Client) (*AcceptResult, error) {
	return c.AcceptTradeOffer(ctx, offer.ID)
}

func (offer *TradeOffer) Counter(ctx context.Context, c *Client) error {
	return c.CounterTradeOffer(ctx, offer)
}

func (offer *TradeOffer) Cancel(ctx context.Context, c *Client) error {
	if offer.IsOurOffer {
		return c.CancelTradeOffer(ctx, offer.ID)
	}

	return c.DeclineTradeOffer(ctx, offer.ID)
}

type OfferItems struct {
	offer      *TradeOffer
	version    int
	newVersion bool
}

func (o *OfferItems) MyItems() []*EconItem {
	return o.offer.SendItems
}

func (o *OfferItems) TheirItems() []*EconItem {
	return o.offer.RecvItems
}

// NewVersion reports whether the item sets changed since the offer was loaded or sent.
func (o *OfferItems) NewVersion() bool {
	return o.newVersion
}

func (o *OfferItems) Version() int {
	return o.version
}

func (o *OfferItems) AddMyItem(appID uint32, contextID, assetID uint64) bool {
	return o.add(&o.offer.SendItems, appID, contextID, assetID)
}

func (o *OfferItems) AddTheirItem(appID uint32, contextID, assetID uint64) bool {
	return o.add(&o.offer.RecvItems, appID, contextID, assetID)
}

func (o *OfferItems) RemoveMyItem(appID uint32, contextID, assetID uint64) bool {
	return o.remove(&o.offer.SendItems, appID, contextID, assetID)
}

func (o *OfferItems) RemoveTheirItem(appID uint32, contextID, assetID uint64) bool {
	return o.remove(&o.offer.RecvItems, appID, contextID, assetID)
}

func (o *OfferItems) add(set *[]*EconItem, appID uint32, contextID, assetID uint64) bool {
	for _, item := range *set {
		if item.is(appID, contextID, assetID) {
			return false
		}
	}

	*set = append(*set, &EconItem{AppID: appID, ContextID: contextID, AssetID: assetID, Amount: 1})
	o.changed()
	return true
}

func (o *OfferItems) remove(set *[]*EconItem, appID uint32, contextID, assetID uint64) bool {
	for i, item := range *set {
		if item.is(appID, contextID, assetID) {
			*set = append((*set)[:i:i], (*set)[i+1:]...)
			o.changed()
			return true
		}
	}
	return false
}

func (o *OfferItems) changed() {
	o.version++
	o.newVersion = true
}

func (o *OfferItems) commit() {
	o.newVersion = false
}
