// Package policy decides what the bot does with a proposed exchange of items.
//
// A Policy values the items the bot would receive against a currency table and
// answers with Accept, Decline or Counter. Policies hold no state between calls:
// offers can be amended mid negotiation, so every call recomputes from scratch.
package policy

import (
	"errors"
	"fmt"
	"strings"
)

const (
	MsgAccepted   = "Trade accepted."
	MsgNoGiveaway = "I don't give items away."
	MsgEmptyOffer = "You must put up metal/keys."
)

var (
	ErrUnrecognizedItem = errors.New("item is not a metal or key")
	ErrEmptyOffer       = errors.New("no metal or keys offered")
)

// Item is one side's entry in an exchange. Name may be empty and is then
// resolved through the Schema. AssetID ties the item to an offer asset.
type Item struct {
	Defindex int
	Name     string
	AssetID  uint64
}

// Proposal is a snapshot of an offer or live trade.
type Proposal struct {
	RequesterID uint64
	Privileged  bool
	Gives       []Item
	Receives    []Item
	// Counterable is set when the underlying offer can be answered with a counter offer.
	Counterable bool
}

// Schema resolves display names for item codes.
type Schema interface {
	ItemName(defindex int) (string, bool)
}

type issue struct {
	kind error
	msg  string
}

type ValuationResult struct {
	Total  Value
	Errors []string

	issues []issue
}

func (r ValuationResult) OK() bool {
	return len(r.Errors) == 0
}

// Err wraps every problem found, so callers can test for ErrUnrecognizedItem
// or ErrEmptyOffer with errors.Is.
func (r ValuationResult) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, 0, len(r.issues))
	for _, is := range r.issues {
		errs = append(errs, fmt.Errorf("%w: %s", is.kind, is.msg))
	}
	return errors.Join(errs...)
}

func (r *ValuationResult) add(kind error, msg string) {
	r.Errors = append(r.Errors, msg)
	r.issues = append(r.issues, issue{kind: kind, msg: msg})
}

type Kind int

const (
	Decline Kind = iota
	Accept
	Counter
)

func (k Kind) String() string {
	switch k {
	case Accept:
		return "accept"
	case Counter:
		return "counter"
	default:
		return "decline"
	}
}

// CounterOffer holds the item sets the bot proposes instead.
type CounterOffer struct {
	Gives    []Item
	Receives []Item
}

type Decision struct {
	Kind      Kind
	Rationale string
	Valuation ValuationResult
	// Counter is set only when Kind is Counter.
	Counter *CounterOffer
}

type Policy interface {
	Name() string
	Validate(p *Proposal) ValuationResult
	DecideOnOffer(p *Proposal) Decision
}

// valuer is the shared valuation step behind both policies.
type valuer struct {
	currencies CurrencyTable
	schema     Schema
}

func newValuer(currencies CurrencyTable, schema Schema) valuer {
	if currencies == nil {
		currencies = DefaultCurrencies()
	}
	return valuer{currencies: currencies, schema: schema}
}

func (v valuer) name(item Item) string {
	if item.Name != "" {
		return item.Name
	}
	if v.schema != nil {
		if name, ok := v.schema.ItemName(item.Defindex); ok && name != "" {
			return name
		}
	}
	return fmt.Sprintf("Item #%d", item.Defindex)
}

func (v valuer) Validate(p *Proposal) ValuationResult {
	var res ValuationResult
	for _, item := range p.Receives {
		if worth, ok := v.currencies.Lookup(item.Defindex); ok {
			res.Total += worth
			continue
		}
		res.add(ErrUnrecognizedItem, v.name(item)+" is not a metal or key.")
	}

	// only when no other error explains the zero total
	if res.Total == 0 && len(res.Errors) == 0 {
		res.add(ErrEmptyOffer, MsgEmptyOffer)
	}

	return res
}

func (v valuer) allRecognized(items []Item) bool {
	for _, item := range items {
		if _, ok := v.currencies.Lookup(item.Defindex); !ok {
			return false
		}
	}
	return true
}

func accept(res ValuationResult) Decision {
	return Decision{Kind: Accept, Rationale: MsgAccepted, Valuation: res}
}

func decline(res ValuationResult, lead ...string) Decision {
	return Decision{Kind: Decline, Rationale: rationale(res, lead...), Valuation: res}
}

func rationale(res ValuationResult, lead ...string) string {
	parts := append(append([]string{}, lead...), res.Errors...)
	return strings.Join(parts, " ")
}

// decideReceiveOnly handles offers where the bot gives nothing.
func (v valuer) decideReceiveOnly(res ValuationResult) Decision {
	if res.OK() && res.Total > 0 {
		return accept(res)
	}
	return decline(res)
}

// BasicPolicy never gives items away unless the requester is privileged.
type BasicPolicy struct {
	valuer
}

func NewBasicPolicy(currencies CurrencyTable, schema Schema) *BasicPolicy {
	return &BasicPolicy{valuer: newValuer(currencies, schema)}
}

func (*BasicPolicy) Name() string { return "basic" }

func (b *BasicPolicy) DecideOnOffer(p *Proposal) Decision {
	res := b.Validate(p)
	if p.Privileged {
		return accept(res)
	}
	if len(p.Gives) > 0 {
		return decline(res, MsgNoGiveaway)
	}
	return b.decideReceiveOnly(res)
}

// TradeOfferPolicy answers offers containing unrecognized items with a
// counter offer built by its strategy instead of declining them outright.
type TradeOfferPolicy struct {
	valuer
	strategy CounterStrategy
}

func NewTradeOfferPolicy(currencies CurrencyTable, schema Schema, strategy CounterStrategy) *TradeOfferPolicy {
	if strategy == nil {
		strategy = EmptyCounter
	}
	return &TradeOfferPolicy{valuer: newValuer(currencies, schema), strategy: strategy}
}

func (*TradeOfferPolicy) Name() string { return "tradeoffer" }

func (t *TradeOfferPolicy) DecideOnOffer(p *Proposal) Decision {
	res := t.Validate(p)
	if p.Privileged {
		return accept(res)
	}
	if len(p.Gives) == 0 {
		return t.decideReceiveOnly(res)
	}

	if p.Counterable && !t.allRecognized(p.Receives) {
		counter := t.strategy(p, res)
		if counter.differsFrom(p) {
			return Decision{
				Kind:      Counter,
				Rationale: rationale(res, MsgNoGiveaway),
				Valuation: res,
				Counter:   &counter,
			}
		}
	}

	return decline(res, MsgNoGiveaway)
}
