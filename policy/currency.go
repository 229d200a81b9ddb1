package policy

import (
	"github.com/shopspring/decimal"
)

// Value is an amount of metal counted in scrap, the smallest TF2 currency unit.
type Value int64

const (
	Scrap     Value = 1
	Reclaimed       = 3 * Scrap
	Refined         = 3 * Reclaimed
	Key             = 19 * Refined
)

// TF2 defindexes of the currency items.
const (
	DefindexScrap     = 5000
	DefindexReclaimed = 5001
	DefindexRefined   = 5002
	DefindexKey       = 5021
)

var refinedScale = decimal.NewFromInt(int64(Refined))

// Refined converts v to refined metal, truncated to two places the way
// traders quote it (1 scrap is 0.11 ref).
func (v Value) Refined() decimal.Decimal {
	return decimal.NewFromInt(int64(v)).Div(refinedScale).Truncate(2)
}

func (v Value) String() string {
	return v.Refined().StringFixed(2) + " ref"
}

// CurrencyTable maps recognized defindexes to their worth.
type CurrencyTable map[int]Value

// DefaultCurrencies is the metal and key table.
func DefaultCurrencies() CurrencyTable {
	return CurrencyTable{
		DefindexScrap:     Scrap,
		DefindexReclaimed: Reclaimed,
		DefindexRefined:   Refined,
		DefindexKey:       Key,
	}
}

func (t CurrencyTable) Lookup(defindex int) (Value, bool) {
	v, ok := t[defindex]
	return v, ok
}

// Defindexes lists the table's codes, useful for inventory filters.
func (t CurrencyTable) Defindexes() []int {
	out := make([]int, 0, len(t))
	for d := range t {
		out = append(out, d)
	}
	return out
}
