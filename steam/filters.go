package steam

type Filter func(*PlayerItem) bool

func IsTradable(cond bool) Filter {
	return func(item *PlayerItem) bool {
		return !item.FlagCannotTrade == cond
	}
}

func HasDefindex(defindexes ...int) Filter {
	return func(item *PlayerItem) bool {
		for _, d := range defindexes {
			if item.Defindex == d {
				return true
			}
		}
		return false
	}
}
