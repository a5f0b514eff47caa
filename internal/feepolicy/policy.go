// Package feepolicy computes the fee owed on a transfer from the configured
// buy/sell schedules and the antibot window. Rates are validated once at
// construction; per-call computation never fails.
package feepolicy

import (
	"fmt"
	"math/big"

	"bridged-token-ledger/internal/domain"
)

// Direction classifies a transfer for schedule selection.
type Direction int

// Transfer directions.
const (
	DirectionSell Direction = iota
	DirectionBuy
)

// DirectionFunc decides the buy/sell direction of a transfer. The heuristic
// is deployment policy, not ledger logic, so it is injected: a deployment
// that routes through a known market venue supplies a predicate recognizing
// that venue's addresses.
type DirectionFunc func(from, to domain.Address) Direction

// StaticDirection returns a predicate that classifies every transfer as d.
func StaticDirection(d Direction) DirectionFunc {
	return func(domain.Address, domain.Address) Direction { return d }
}

// DirectionByCounterparty classifies a transfer from an operator-configured
// venue set: a transfer out of a venue address is a buy, a transfer into one
// is a sell, anything else falls back to fallback.
func DirectionByCounterparty(venues map[domain.Address]struct{}, fallback Direction) DirectionFunc {
	return func(from, to domain.Address) Direction {
		if _, ok := venues[from]; ok {
			return DirectionBuy
		}
		if _, ok := venues[to]; ok {
			return DirectionSell
		}
		return fallback
	}
}

// Schedule holds the buy and sell fee numerators sharing the policy-wide
// denominator.
type Schedule struct {
	BuyNumerator  uint64 // fee numerator for buy-direction transfers
	SellNumerator uint64 // fee numerator for sell-direction transfers
}

// Config assembles a fee policy. All fields are fixed after construction.
type Config struct {
	Standard         Schedule // rates after the antibot window closes
	Antibot          Schedule // elevated rates while the window is open
	Denominator      uint64   // shared rate denominator, must be positive
	MaximumNumerator uint64   // upper bound every numerator must respect
	AntibotEndTime   int64    // window end, unix ms; 0 disables the window
	Direction        DirectionFunc
}

// Policy selects the active schedule for a transfer and computes the fee.
type Policy struct {
	standard    Schedule
	antibot     Schedule
	denominator *big.Int
	antibotEnd  int64
	direction   DirectionFunc
}

// NewPolicy validates the configuration and builds an immutable policy.
// Every numerator must satisfy numerator ≤ MaximumNumerator ≤ Denominator.
func NewPolicy(cfg Config) (*Policy, error) {
	if cfg.Denominator == 0 {
		return nil, fmt.Errorf("%w: fee denominator must be positive", domain.ErrInvalidArgument)
	}
	if cfg.MaximumNumerator > cfg.Denominator {
		return nil, fmt.Errorf("%w: maximum numerator %d above denominator %d",
			domain.ErrInvalidArgument, cfg.MaximumNumerator, cfg.Denominator)
	}
	for _, num := range []uint64{
		cfg.Standard.BuyNumerator, cfg.Standard.SellNumerator,
		cfg.Antibot.BuyNumerator, cfg.Antibot.SellNumerator,
	} {
		if num > cfg.MaximumNumerator {
			return nil, fmt.Errorf("%w: numerator %d above maximum %d",
				domain.ErrInvalidArgument, num, cfg.MaximumNumerator)
		}
	}
	if cfg.Direction == nil {
		return nil, fmt.Errorf("%w: direction predicate is required", domain.ErrInvalidArgument)
	}
	return &Policy{
		standard:    cfg.Standard,
		antibot:     cfg.Antibot,
		denominator: new(big.Int).SetUint64(cfg.Denominator),
		antibotEnd:  cfg.AntibotEndTime,
		direction:   cfg.Direction,
	}, nil
}

// AntibotEndTime returns the antibot window end (unix ms).
func (p *Policy) AntibotEndTime() int64 {
	return p.antibotEnd
}

// ComputeFee returns the fee charged on a transfer of amount at time now
// (unix ms) and the remainder delivered to the recipient. The antibot
// schedule applies strictly before the window end, the standard schedule at
// and after it. The initiator is the account that triggered the call, kept
// distinct from the balance mover; the bundled predicates ignore it but
// custom fee integrations may not.
//
// fee = floor(amount * numerator / denominator).
func (p *Policy) ComputeFee(initiator, from, to domain.Address, amount *big.Int, now int64) (fee, remainder *big.Int) {
	_ = initiator

	if amount == nil || amount.Sign() <= 0 {
		return new(big.Int), new(big.Int)
	}

	schedule := p.standard
	if now < p.antibotEnd {
		schedule = p.antibot
	}

	numerator := schedule.SellNumerator
	if p.direction(from, to) == DirectionBuy {
		numerator = schedule.BuyNumerator
	}

	fee = new(big.Int).Mul(amount, new(big.Int).SetUint64(numerator))
	fee.Quo(fee, p.denominator)
	remainder = new(big.Int).Sub(amount, fee)
	return fee, remainder
}
