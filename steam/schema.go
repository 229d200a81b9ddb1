package steam

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
)

type SchemaItem struct {
	Defindex int    `json:"defindex"`
	Name     string `json:"name"`
	ItemName string `json:"item_name"`
}

// Schema maps TF2 defindexes to display names.
type Schema struct {
	mu    sync.RWMutex
	items map[int]*SchemaItem
}

func NewSchema(items ...*SchemaItem) *Schema {
	s := &Schema{items: make(map[int]*SchemaItem, len(items))}
	s.add(items)
	return s
}

func (s *Schema) add(items []*SchemaItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.items[item.Defindex] = item
	}
}

func (s *Schema) GetItem(defindex int) (*SchemaItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[defindex]
	return item, ok
}

func (s *Schema) ItemName(defindex int) (string, bool) {
	item, ok := s.GetItem(defindex)
	if !ok {
		return "", false
	}
	if item.ItemName != "" {
		return item.ItemName, true
	}
	return item.Name, true
}

func (s *Schema) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// GetSchema downloads every page of the TF2 item schema.
func (c *Client) GetSchema(ctx context.Context) (*Schema, error) {
	schema := NewSchema()

	start := -1
	for {
		params := url.Values{
			"key":      {c.apiKey},
			"language": {c.language},
		}
		if start >= 0 {
			params.Set("start", strconv.Itoa(start))
		}

		var response struct {
			Result struct {
				Status int           `json:"status"`
				Items  []*SchemaItem `json:"items"`
				Next   *int          `json:"next"`
			} `json:"result"`
		}
		if err := c.getJSON(ctx, c.apiURL+"/IEconItems_440/GetSchemaItems/v0001/?"+params.Encode(), &response); err != nil {
			return nil, fmt.Errorf("get schema items: %w", err)
		}
		if response.Result.Status != inventoryStatusOK {
			return nil, fmt.Errorf("get schema items: status %d", response.Result.Status)
		}

		schema.add(response.Result.Items)
		if response.Result.Next == nil || *response.Result.Next <= start {
			break
		}
		start = *response.Result.Next
	}

	return schema, nil
}
