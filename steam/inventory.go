package steam

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

const (
	AppIDTF2          = 440
	ContextIDTF2      = 2
	inventoryStatusOK = 1
)

var (
	BackpackPrivateError  = errors.New("backpack is private")
	InvalidSteamIDError   = errors.New("invalid steam id")
	inventoryStatusErrors = map[int]error{
		8:  InvalidSteamIDError,
		15: BackpackPrivateError,
	}
)

// PlayerItem is a TF2 backpack entry as reported by IEconItems_440.
type PlayerItem struct {
	ID              uint64 `json:"id"`
	OriginalID      uint64 `json:"original_id"`
	Defindex        int    `json:"defindex"`
	Level           int    `json:"level"`
	Quality         int    `json:"quality"`
	Quantity        int    `json:"quantity"`
	FlagCannotTrade bool   `json:"flag_cannot_trade"`
	FlagCannotCraft bool   `json:"flag_cannot_craft"`
}

type Inventory struct {
	Owner SteamID
	Items []*PlayerItem

	byID map[uint64]*PlayerItem
}

func newInventory(owner SteamID, items []*PlayerItem) *Inventory {
	inv := &Inventory{Owner: owner, Items: items}
	inv.index()
	return inv
}

func (inv *Inventory) index() {
	inv.byID = make(map[uint64]*PlayerItem, len(inv.Items))
	for _, item := range inv.Items {
		inv.byID[item.ID] = item
	}
}

// GetItem looks an asset up by its id.
func (inv *Inventory) GetItem(assetID uint64) (*PlayerItem, bool) {
	if inv.byID == nil {
		inv.index()
	}
	item, ok := inv.byID[assetID]
	return item, ok
}

// Filter returns the items matching every filter, in backpack order.
func (inv *Inventory) Filter(filters ...Filter) []*PlayerItem {
	out := make([]*PlayerItem, 0, len(inv.Items))
next:
	for _, item := range inv.Items {
		for _, f := range filters {
			if !f(item) {
				continue next
			}
		}
		out = append(out, item)
	}
	return out
}

func (c *Client) GetPlayerItems(ctx context.Context, sid SteamID) (*Inventory, error) {
	var response struct {
		Result struct {
			Status int           `json:"status"`
			Items  []*PlayerItem `json:"items"`
		} `json:"result"`
	}

	err := c.getJSON(ctx, c.apiURL+"/IEconItems_440/GetPlayerItems/v0001/?"+url.Values{
		"key":     {c.apiKey},
		"steamid": {sid.ToString()},
	}.Encode(), &response)
	if err != nil {
		return nil, fmt.Errorf("get player items of %d: %w", uint64(sid), err)
	}

	if status := response.Result.Status; status != inventoryStatusOK {
		if err, ok := inventoryStatusErrors[status]; ok {
			return nil, err
		}
		return nil, fmt.Errorf("get player items of %d: status %d", uint64(sid), status)
	}

	return newInventory(sid, response.Result.Items), nil
}
