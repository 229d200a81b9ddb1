package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zergu1ar/steambot/policy"
	"github.com/zergu1ar/steambot/steam"
)

var ErrAssetNotFound = errors.New("asset not in owner's backpack")

type inventoryLoader interface {
	GetPlayerItems(ctx context.Context, sid steam.SteamID) (*steam.Inventory, error)
}

// InventoryResolver resolves offer assets through the owner's TF2 backpack.
// Backpacks are cached until Reset.
type InventoryResolver struct {
	loader inventoryLoader
	schema policy.Schema

	mu    sync.Mutex
	cache map[steam.SteamID]*steam.Inventory
}

func NewInventoryResolver(loader inventoryLoader, schema policy.Schema) *InventoryResolver {
	return &InventoryResolver{
		loader: loader,
		schema: schema,
		cache:  make(map[steam.SteamID]*steam.Inventory),
	}
}

func (r *InventoryResolver) Reset() {
	r.mu.Lock()
	r.cache = make(map[steam.SteamID]*steam.Inventory)
	r.mu.Unlock()
}

func (r *InventoryResolver) inventory(ctx context.Context, owner steam.SteamID) (*steam.Inventory, error) {
	r.mu.Lock()
	inv, ok := r.cache[owner]
	r.mu.Unlock()
	if ok {
		return inv, nil
	}

	inv, err := r.loader.GetPlayerItems(ctx, owner)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[owner] = inv
	r.mu.Unlock()
	return inv, nil
}

func (r *InventoryResolver) Resolve(ctx context.Context, owner steam.SteamID, econ *steam.EconItem) (policy.Item, error) {
	if econ.AppID != steam.AppIDTF2 {
		return policy.Item{
			Defindex: -1,
			Name:     fmt.Sprintf("Asset #%d of app %d", econ.AssetID, econ.AppID),
			AssetID:  econ.AssetID,
		}, nil
	}

	inv, err := r.inventory(ctx, owner)
	if err != nil {
		return policy.Item{}, err
	}

	item, ok := inv.GetItem(econ.AssetID)
	if !ok {
		return policy.Item{}, fmt.Errorf("%w: %d", ErrAssetNotFound, econ.AssetID)
	}

	resolved := policy.Item{Defindex: item.Defindex, AssetID: econ.AssetID}
	if r.schema != nil {
		resolved.Name, _ = r.schema.ItemName(item.Defindex)
	}
	return resolved, nil
}
