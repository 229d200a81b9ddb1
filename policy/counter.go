package policy

// CounterStrategy builds the item sets to propose back to the requester.
type CounterStrategy func(p *Proposal, res ValuationResult) CounterOffer

// EmptyCounter removes every item from both sides.
func EmptyCounter(*Proposal, ValuationResult) CounterOffer {
	return CounterOffer{Gives: []Item{}, Receives: []Item{}}
}

// KeepCurrency drops the bot's side and keeps only the recognized items the
// requester put up, in their original order.
func KeepCurrency(currencies CurrencyTable) CounterStrategy {
	if currencies == nil {
		currencies = DefaultCurrencies()
	}
	return func(p *Proposal, _ ValuationResult) CounterOffer {
		keep := make([]Item, 0, len(p.Receives))
		for _, item := range p.Receives {
			if _, ok := currencies.Lookup(item.Defindex); ok {
				keep = append(keep, item)
			}
		}
		return CounterOffer{Gives: []Item{}, Receives: keep}
	}
}

// Strategies by config name.
func StrategyByName(name string, currencies CurrencyTable) (CounterStrategy, bool) {
	switch name {
	case "", "empty":
		return EmptyCounter, true
	case "keep-currency":
		return KeepCurrency(currencies), true
	}
	return nil, false
}

func (c CounterOffer) differsFrom(p *Proposal) bool {
	return !sameItems(c.Gives, p.Gives) || !sameItems(c.Receives, p.Receives)
}

func sameItems(a, b []Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Defindex != b[i].Defindex || a[i].AssetID != b[i].AssetID {
			return false
		}
	}
	return true
}
