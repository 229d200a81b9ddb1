package steam

import (
	"fmt"
	"strconv"
	"strings"
)

type SteamID uint64

const (
	AccountInstanceDesktop = 1
	AccountTypeIndividual  = 1
	UniversePublic         = 1
)

func (sid *SteamID) Parse(accountID uint32, instance uint32, accountType uint32, universe uint8) {
	*sid = SteamID(uint64(universe)<<56 | uint64(accountType&0xF)<<52 | uint64(instance&0xFFFFF)<<32 | uint64(accountID))
}

// ParseDefaults builds an individual, public universe id from a 32 bit account id.
func (sid *SteamID) ParseDefaults(accountID uint32) {
	sid.Parse(accountID, AccountInstanceDesktop, AccountTypeIndividual, UniversePublic)
}

func (sid SteamID) GetAccountID() uint32 {
	return uint32(sid & 0xFFFFFFFF)
}

func (sid SteamID) ToString() string {
	return strconv.FormatUint(uint64(sid), 10)
}

// Steam3 renders the id as [U:1:<account id>].
func (sid SteamID) Steam3() string {
	return fmt.Sprintf("[U:%d:%d]", uint64(sid)>>56, sid.GetAccountID())
}

// ParseSteamID accepts a steam id 64 or the [U:1:n] form.
func ParseSteamID(s string) (SteamID, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[U:") && strings.HasSuffix(s, "]") {
		parts := strings.Split(s[3:len(s)-1], ":")
		if len(parts) != 2 {
			return 0, fmt.Errorf("invalid steam3 id %q", s)
		}
		universe, err := strconv.ParseUint(parts[0], 10, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid steam3 id %q: %w", s, err)
		}
		account, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid steam3 id %q: %w", s, err)
		}
		var sid SteamID
		sid.Parse(uint32(account), AccountInstanceDesktop, AccountTypeIndividual, uint8(universe))
		return sid, nil
	}

	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid steam id %q: %w", s, err)
	}
	return SteamID(v), nil
}
