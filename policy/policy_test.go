package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapSchema map[int]string

func (m mapSchema) ItemName(defindex int) (string, bool) {
	name, ok := m[defindex]
	return name, ok
}

var (
	scrap = Item{Defindex: DefindexScrap, Name: "Scrap Metal"}
	rec   = Item{Defindex: DefindexReclaimed, Name: "Reclaimed Metal"}
	ref   = Item{Defindex: DefindexRefined, Name: "Refined Metal"}
	key   = Item{Defindex: DefindexKey, Name: "Mann Co. Supply Crate Key"}
	hat   = Item{Defindex: 126, Name: "Bill's Hat"}
)

func policies() []Policy {
	return []Policy{
		NewBasicPolicy(nil, nil),
		NewTradeOfferPolicy(nil, nil, nil),
	}
}

func TestValidateRecognizedItems(t *testing.T) {
	for _, p := range policies() {
		t.Run(p.Name(), func(t *testing.T) {
			res := p.Validate(&Proposal{Receives: []Item{scrap, rec, ref, key}})
			assert.Empty(t, res.Errors)
			assert.True(t, res.OK())
			assert.NoError(t, res.Err())
			assert.Equal(t, Scrap+Reclaimed+Refined+Key, res.Total)
		})
	}
}

func TestValidateEmpty(t *testing.T) {
	for _, p := range policies() {
		t.Run(p.Name(), func(t *testing.T) {
			res := p.Validate(&Proposal{})
			assert.Equal(t, []string{MsgEmptyOffer}, res.Errors)
			assert.Equal(t, Value(0), res.Total)
			assert.True(t, errors.Is(res.Err(), ErrEmptyOffer))
		})
	}
}

func TestValidateOneUnrecognized(t *testing.T) {
	p := NewBasicPolicy(nil, nil)
	res := p.Validate(&Proposal{Receives: []Item{scrap, hat, ref, ref}})

	assert.Equal(t, []string{"Bill's Hat is not a metal or key."}, res.Errors)
	assert.Equal(t, Scrap+2*Refined, res.Total)
	assert.True(t, errors.Is(res.Err(), ErrUnrecognizedItem))
	assert.False(t, errors.Is(res.Err(), ErrEmptyOffer))
}

func TestValidateErrorsKeepOrder(t *testing.T) {
	p := NewBasicPolicy(nil, mapSchema{9000: "Team Captain"})
	res := p.Validate(&Proposal{Receives: []Item{
		{Defindex: 9000},
		scrap,
		{Defindex: 42},
		hat,
	}})

	assert.Equal(t, []string{
		"Team Captain is not a metal or key.",
		"Item #42 is not a metal or key.",
		"Bill's Hat is not a metal or key.",
	}, res.Errors)
	assert.Equal(t, Scrap, res.Total)
}

func TestValidateIsIdempotent(t *testing.T) {
	p := NewTradeOfferPolicy(nil, nil, nil)
	prop := &Proposal{Receives: []Item{scrap, hat, key}}

	first := p.Validate(prop)
	second := p.Validate(prop)
	assert.Equal(t, first, second)
}

func TestValidateRecomputesAfterAmend(t *testing.T) {
	p := NewBasicPolicy(nil, nil)
	prop := &Proposal{Receives: []Item{scrap}}
	before := p.Validate(prop)

	prop.Receives = append(prop.Receives, rec)
	after := p.Validate(prop)

	assert.Equal(t, Scrap, before.Total)
	assert.Equal(t, Scrap+Reclaimed, after.Total)
	assert.GreaterOrEqual(t, after.Total, before.Total)
}

func TestWidgetScenario(t *testing.T) {
	for _, p := range policies() {
		t.Run(p.Name(), func(t *testing.T) {
			prop := &Proposal{Receives: []Item{{Defindex: 9999, Name: "widget"}}}
			res := p.Validate(prop)
			assert.Equal(t, []string{"widget is not a metal or key."}, res.Errors)

			d := p.DecideOnOffer(prop)
			assert.Equal(t, Decline, d.Kind)
			assert.Equal(t, "widget is not a metal or key.", d.Rationale)
		})
	}
}

func TestDecideScrapAndKey(t *testing.T) {
	for _, p := range policies() {
		t.Run(p.Name(), func(t *testing.T) {
			d := p.DecideOnOffer(&Proposal{Receives: []Item{scrap, scrap, key}})
			require.Equal(t, Accept, d.Kind)
			assert.Equal(t, 2*Scrap+Key, d.Valuation.Total)
			assert.Empty(t, d.Valuation.Errors)
			assert.Equal(t, MsgAccepted, d.Rationale)
		})
	}
}

func TestDecidePrivilegedBypass(t *testing.T) {
	cases := map[string]*Proposal{
		"gives hat for nothing": {Privileged: true, Gives: []Item{hat}},
		"empty":                 {Privileged: true},
		"invalid items":         {Privileged: true, Receives: []Item{hat}, Gives: []Item{key}, Counterable: true},
	}
	for _, p := range policies() {
		for name, prop := range cases {
			t.Run(p.Name()+"/"+name, func(t *testing.T) {
				assert.Equal(t, Accept, p.DecideOnOffer(prop).Kind)
			})
		}
	}
}

func TestBasicDeclinesGiveaway(t *testing.T) {
	p := NewBasicPolicy(nil, nil)
	d := p.DecideOnOffer(&Proposal{Gives: []Item{hat}, Receives: []Item{key, key}, Counterable: true})

	assert.Equal(t, Decline, d.Kind)
	assert.Nil(t, d.Counter)
	assert.Equal(t, MsgNoGiveaway, d.Rationale)
}

func TestTradeOfferCountersUnrecognized(t *testing.T) {
	p := NewTradeOfferPolicy(nil, nil, nil)
	d := p.DecideOnOffer(&Proposal{
		Gives:       []Item{key},
		Receives:    []Item{hat, scrap},
		Counterable: true,
	})

	require.Equal(t, Counter, d.Kind)
	require.NotNil(t, d.Counter)
	assert.Empty(t, d.Counter.Gives)
	assert.Empty(t, d.Counter.Receives)
	assert.Equal(t, "I don't give items away. Bill's Hat is not a metal or key.", d.Rationale)
}

func TestTradeOfferDeclinesWhenNotCounterable(t *testing.T) {
	p := NewTradeOfferPolicy(nil, nil, nil)
	d := p.DecideOnOffer(&Proposal{Gives: []Item{key}, Receives: []Item{hat}})
	assert.Equal(t, Decline, d.Kind)
	assert.Nil(t, d.Counter)
}

func TestTradeOfferDeclinesRecognizedGiveaway(t *testing.T) {
	p := NewTradeOfferPolicy(nil, nil, nil)
	d := p.DecideOnOffer(&Proposal{Gives: []Item{key}, Receives: []Item{ref}, Counterable: true})
	assert.Equal(t, Decline, d.Kind)
}

func TestTradeOfferDeclinesWithoutNewVersion(t *testing.T) {
	same := func(p *Proposal, _ ValuationResult) CounterOffer {
		return CounterOffer{Gives: p.Gives, Receives: p.Receives}
	}
	p := NewTradeOfferPolicy(nil, nil, same)
	d := p.DecideOnOffer(&Proposal{Gives: []Item{key}, Receives: []Item{hat}, Counterable: true})
	assert.Equal(t, Decline, d.Kind)
}

func TestKeepCurrencyStrategy(t *testing.T) {
	p := NewTradeOfferPolicy(nil, nil, KeepCurrency(nil))
	prop := &Proposal{
		Gives:       []Item{{Defindex: DefindexKey, AssetID: 1}},
		Receives:    []Item{{Defindex: DefindexRefined, AssetID: 7}, {Defindex: 126, AssetID: 8}},
		Counterable: true,
	}

	d := p.DecideOnOffer(prop)
	require.Equal(t, Counter, d.Kind)
	assert.Empty(t, d.Counter.Gives)
	assert.Equal(t, []Item{{Defindex: DefindexRefined, AssetID: 7}}, d.Counter.Receives)
}

func TestStrategyByName(t *testing.T) {
	_, ok := StrategyByName("empty", nil)
	assert.True(t, ok)
	_, ok = StrategyByName("keep-currency", nil)
	assert.True(t, ok)
	_, ok = StrategyByName("haggle", nil)
	assert.False(t, ok)
}

func TestAcceptImpliesValidOrPrivileged(t *testing.T) {
	sets := [][]Item{nil, {scrap}, {hat}, {scrap, hat}, {key, key}, {{Defindex: 1}}}
	for _, p := range policies() {
		for _, gives := range sets {
			for _, receives := range sets {
				for _, privileged := range []bool{false, true} {
					prop := &Proposal{Gives: gives, Receives: receives, Privileged: privileged, Counterable: true}
					d := p.DecideOnOffer(prop)
					if d.Kind != Accept {
						continue
					}
					ok := d.Valuation.OK() && d.Valuation.Total > 0
					assert.True(t, ok || privileged, "%s accepted %+v", p.Name(), prop)
				}
			}
		}
	}
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "0.11 ref", Scrap.String())
	assert.Equal(t, "0.33 ref", Reclaimed.String())
	assert.Equal(t, "1.33 ref", (Refined + Reclaimed).String())
	assert.Equal(t, "19.00 ref", Key.String())
}
