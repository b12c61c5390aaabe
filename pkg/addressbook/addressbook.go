// Package addressbook loads, validates and persists the per-network JSON
// document that maps symbolic names to deployed contract addresses.
package addressbook

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
)

var (
	ErrUnknownToken      = errors.New("no token address for symbol")
	ErrNoTranches        = errors.New("no tranches for selected token")
	ErrNoActiveTranches  = errors.New("no active tranches for selected token")
	ErrNoWrappedPosition = errors.New("no wrapped position found for selected token")
	ErrNoUserProxy       = errors.New("no user proxy recorded")
	ErrUnknownTranche    = errors.New("no tranche with that expiration")
)

// Tranche is one deployed tranche of a wrapped position.
type Tranche struct {
	Address         string `json:"address"`
	Expiration      int64  `json:"expiration"`
	TrancheFactory  string `json:"trancheFactory"`
	DonationAddress string `json:"donationAddress,omitempty"`
}

// ExpiresAt returns the tranche's unlock time.
func (t Tranche) ExpiresAt() time.Time {
	return time.Unix(t.Expiration, 0)
}

// Active reports whether the tranche unlocks after now.
func (t Tranche) Active(now time.Time) bool {
	return t.Expiration > now.Unix()
}

// Vaults holds yield vault addresses by provider and symbol.
type Vaults struct {
	Yearn map[string]string `json:"yearn"`
}

// WrappedPositions holds wrapped position addresses by version, provider and symbol.
type WrappedPositions struct {
	V1 struct {
		Yearn map[string]string `json:"yearn"`
	} `json:"v1"`
}

// Addresses is the address book of one network.
type Addresses struct {
	Tokens               map[string]string    `json:"tokens"`
	InterestTokenFactory string               `json:"interestTokenFactory"`
	DateStringLibrary    string               `json:"dateStringLibrary"`
	TrancheFactory       string               `json:"trancheFactory"`
	Tranches             map[string][]Tranche `json:"tranches"`
	UserProxy            string               `json:"userProxy"`
	Vaults               Vaults               `json:"vaults"`
	WrappedPositions     WrappedPositions     `json:"wrappedPositions"`
}

// New returns an empty address book with initialised maps.
func New() *Addresses {
	a := &Addresses{}
	a.init()
	return a
}

func (a *Addresses) init() {
	if a.Tokens == nil {
		a.Tokens = map[string]string{}
	}
	if a.Tranches == nil {
		a.Tranches = map[string][]Tranche{}
	}
	if a.Vaults.Yearn == nil {
		a.Vaults.Yearn = map[string]string{}
	}
	if a.WrappedPositions.V1.Yearn == nil {
		a.WrappedPositions.V1.Yearn = map[string]string{}
	}
}

// Token returns the token address recorded for symbol.
func (a *Addresses) Token(symbol string) (common.Address, error) {
	addr, ok := a.Tokens[symbol]
	if !ok || !common.IsHexAddress(addr) {
		return common.Address{}, fmt.Errorf("%w %q", ErrUnknownToken, symbol)
	}
	return common.HexToAddress(addr), nil
}

// WrappedPosition returns the v1 yearn wrapped position for symbol.
func (a *Addresses) WrappedPosition(symbol string) (common.Address, error) {
	addr, ok := a.WrappedPositions.V1.Yearn[symbol]
	if !ok || !common.IsHexAddress(addr) {
		return common.Address{}, fmt.Errorf("%w: %s", ErrNoWrappedPosition, symbol)
	}
	return common.HexToAddress(addr), nil
}

// WrappedPositionSymbols returns the symbols with a v1 yearn wrapped position, sorted.
func (a *Addresses) WrappedPositionSymbols() []string {
	symbols := make([]string, 0, len(a.WrappedPositions.V1.Yearn))
	for symbol := range a.WrappedPositions.V1.Yearn {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// UserProxyAddress returns the recorded user proxy.
func (a *Addresses) UserProxyAddress() (common.Address, error) {
	if !common.IsHexAddress(a.UserProxy) {
		return common.Address{}, ErrNoUserProxy
	}
	addr := common.HexToAddress(a.UserProxy)
	if addr == (common.Address{}) {
		return common.Address{}, ErrNoUserProxy
	}
	return addr, nil
}

// ActiveTranches returns symbol's tranches that unlock after now, soonest first.
func (a *Addresses) ActiveTranches(symbol string, now time.Time) ([]Tranche, error) {
	all, ok := a.Tranches[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoTranches, symbol)
	}

	var active []Tranche
	for _, t := range all {
		if t.Active(now) {
			active = append(active, t)
		}
	}
	if len(active) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoActiveTranches, symbol)
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Expiration < active[j].Expiration
	})
	return active, nil
}

// FindTranche returns symbol's tranche with the given expiration.
func (a *Addresses) FindTranche(symbol string, expiration int64) (Tranche, error) {
	for _, t := range a.Tranches[symbol] {
		if t.Expiration == expiration {
			return t, nil
		}
	}
	return Tranche{}, fmt.Errorf("%w: %s %d", ErrUnknownTranche, symbol, expiration)
}

// AddTranche records a tranche under symbol, replacing one with the same address.
func (a *Addresses) AddTranche(symbol string, t Tranche) {
	a.init()
	list := a.Tranches[symbol]
	for i := range list {
		if common.HexToAddress(list[i].Address) == common.HexToAddress(t.Address) {
			list[i] = t
			return
		}
	}
	a.Tranches[symbol] = append(list, t)
}

// Validate checks the semantic rules JSON schema cannot express. All
// violations are reported together.
func (a *Addresses) Validate() error {
	var result *multierror.Error

	checkOptional := func(field, value string) {
		if value != "" && !common.IsHexAddress(value) {
			result = multierror.Append(result, fmt.Errorf("invalid parameter %s is not a valid address (%s)", value, field))
		}
	}

	for symbol, addr := range a.Tokens {
		checkOptional("tokens."+symbol, addr)
	}
	checkOptional("interestTokenFactory", a.InterestTokenFactory)
	checkOptional("dateStringLibrary", a.DateStringLibrary)
	checkOptional("trancheFactory", a.TrancheFactory)
	checkOptional("userProxy", a.UserProxy)
	for symbol, addr := range a.Vaults.Yearn {
		checkOptional("vaults.yearn."+symbol, addr)
	}

	for symbol, addr := range a.WrappedPositions.V1.Yearn {
		checkOptional("wrappedPositions.v1.yearn."+symbol, addr)
		if _, ok := a.Tokens[symbol]; !ok {
			result = multierror.Append(result, fmt.Errorf("wrapped position %s has no token entry", symbol))
		}
	}

	for symbol, tranches := range a.Tranches {
		if _, ok := a.Tokens[symbol]; !ok {
			result = multierror.Append(result, fmt.Errorf("tranches for %s have no token entry", symbol))
		}
		for i, t := range tranches {
			field := fmt.Sprintf("tranches.%s[%d]", symbol, i)
			if !common.IsHexAddress(t.Address) {
				result = multierror.Append(result, fmt.Errorf("invalid parameter %s is not a valid address (%s.address)", t.Address, field))
			}
			if t.Expiration <= 0 {
				result = multierror.Append(result, fmt.Errorf("%s.expiration must be positive", field))
			}
			checkOptional(field+".trancheFactory", t.TrancheFactory)
			checkOptional(field+".donationAddress", t.DonationAddress)
		}
	}

	if result != nil {
		sortErrors(result)
	}
	return result.ErrorOrNil()
}

func sortErrors(result *multierror.Error) {
	sort.SliceStable(result.Errors, func(i, j int) bool {
		return result.Errors[i].Error() < result.Errors[j].Error()
	})
}
