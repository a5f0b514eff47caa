package feepolicy

import (
	"errors"
	"math/big"
	"testing"

	"github.com/mr-tron/base58"

	"bridged-token-ledger/internal/domain"
)

const antibotEnd = int64(1_700_000_000_000)

func addr(t *testing.T, fill byte) domain.Address {
	t.Helper()
	buf := make([]byte, domain.AddressLen)
	for i := range buf {
		buf[i] = fill
	}
	a, err := domain.ParseAddress(base58.Encode(buf))
	if err != nil {
		t.Fatalf("build address: %v", err)
	}
	return a
}

// newTestPolicy uses the reference schedule: denominator 100, standard sell
// fee 2, antibot sell fee 25.
func newTestPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := NewPolicy(Config{
		Standard:         Schedule{BuyNumerator: 2, SellNumerator: 2},
		Antibot:          Schedule{BuyNumerator: 25, SellNumerator: 25},
		Denominator:      100,
		MaximumNumerator: 25,
		AntibotEndTime:   antibotEnd,
		Direction:        StaticDirection(DirectionSell),
	})
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	return p
}

func TestComputeFee_AntibotRateBeforeWindowEnd(t *testing.T) {
	// 1000 units strictly before T: fee 250, receive 750
	p := newTestPolicy(t)
	from := addr(t, 1)
	to := addr(t, 2)

	fee, rest := p.ComputeFee(from, from, to, big.NewInt(1000), antibotEnd-1)

	if fee.Int64() != 250 {
		t.Errorf("expected fee 250, got %s", fee)
	}
	if rest.Int64() != 750 {
		t.Errorf("expected remainder 750, got %s", rest)
	}
}

func TestComputeFee_StandardRateAtWindowEnd(t *testing.T) {
	// The window is half-open: at exactly T the standard schedule applies.
	// 1000 units: fee 20, receive 980
	p := newTestPolicy(t)
	from := addr(t, 1)
	to := addr(t, 2)

	fee, rest := p.ComputeFee(from, from, to, big.NewInt(1000), antibotEnd)

	if fee.Int64() != 20 {
		t.Errorf("expected fee 20, got %s", fee)
	}
	if rest.Int64() != 980 {
		t.Errorf("expected remainder 980, got %s", rest)
	}
}

func TestComputeFee_StandardRateAfterWindowEnd(t *testing.T) {
	p := newTestPolicy(t)
	from := addr(t, 1)
	to := addr(t, 2)

	fee, rest := p.ComputeFee(from, from, to, big.NewInt(1000), antibotEnd+60_000)

	if fee.Int64() != 20 {
		t.Errorf("expected fee 20, got %s", fee)
	}
	if rest.Int64() != 980 {
		t.Errorf("expected remainder 980, got %s", rest)
	}
}

func TestComputeFee_FloorsTowardZero(t *testing.T) {
	// 99 * 2 / 100 = 1.98 → fee 1, remainder 98
	p := newTestPolicy(t)
	from := addr(t, 1)
	to := addr(t, 2)

	fee, rest := p.ComputeFee(from, from, to, big.NewInt(99), antibotEnd)

	if fee.Int64() != 1 {
		t.Errorf("expected floored fee 1, got %s", fee)
	}
	if rest.Int64() != 98 {
		t.Errorf("expected remainder 98, got %s", rest)
	}
}

func TestComputeFee_SmallAmountRoundsToZeroFee(t *testing.T) {
	// 49 * 2 / 100 = 0.98 → fee 0, full amount delivered
	p := newTestPolicy(t)
	from := addr(t, 1)
	to := addr(t, 2)

	fee, rest := p.ComputeFee(from, from, to, big.NewInt(49), antibotEnd)

	if fee.Sign() != 0 {
		t.Errorf("expected zero fee, got %s", fee)
	}
	if rest.Int64() != 49 {
		t.Errorf("expected full 49 delivered, got %s", rest)
	}
}

func TestComputeFee_FeePlusRemainderEqualsAmount(t *testing.T) {
	p := newTestPolicy(t)
	from := addr(t, 1)
	to := addr(t, 2)

	for _, raw := range []int64{1, 49, 50, 99, 100, 101, 999, 1000, 12345678} {
		fee, rest := p.ComputeFee(from, from, to, big.NewInt(raw), antibotEnd-1)
		sum := new(big.Int).Add(fee, rest)
		if sum.Int64() != raw {
			t.Errorf("amount %d: fee %s + remainder %s != amount", raw, fee, rest)
		}
	}
}

func TestComputeFee_BuyDirectionUsesBuyNumerator(t *testing.T) {
	venue := addr(t, 9)
	p, err := NewPolicy(Config{
		Standard:         Schedule{BuyNumerator: 1, SellNumerator: 3},
		Antibot:          Schedule{BuyNumerator: 10, SellNumerator: 20},
		Denominator:      100,
		MaximumNumerator: 20,
		AntibotEndTime:   antibotEnd,
		Direction:        DirectionByCounterparty(map[domain.Address]struct{}{venue: {}}, DirectionSell),
	})
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	trader := addr(t, 1)

	// Out of the venue → buy → numerator 1.
	fee, _ := p.ComputeFee(trader, venue, trader, big.NewInt(1000), antibotEnd)
	if fee.Int64() != 10 {
		t.Errorf("expected buy fee 10, got %s", fee)
	}

	// Into the venue → sell → numerator 3.
	fee, _ = p.ComputeFee(trader, trader, venue, big.NewInt(1000), antibotEnd)
	if fee.Int64() != 30 {
		t.Errorf("expected sell fee 30, got %s", fee)
	}

	// Neither side a venue → fallback sell.
	other := addr(t, 2)
	fee, _ = p.ComputeFee(trader, trader, other, big.NewInt(1000), antibotEnd)
	if fee.Int64() != 30 {
		t.Errorf("expected fallback sell fee 30, got %s", fee)
	}
}

func TestComputeFee_ZeroWindowNeverUsesAntibot(t *testing.T) {
	p, err := NewPolicy(Config{
		Standard:         Schedule{BuyNumerator: 2, SellNumerator: 2},
		Antibot:          Schedule{BuyNumerator: 25, SellNumerator: 25},
		Denominator:      100,
		MaximumNumerator: 25,
		AntibotEndTime:   0,
		Direction:        StaticDirection(DirectionSell),
	})
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	from := addr(t, 1)
	to := addr(t, 2)

	fee, _ := p.ComputeFee(from, from, to, big.NewInt(1000), 1)
	if fee.Int64() != 20 {
		t.Errorf("expected standard fee 20 with disabled window, got %s", fee)
	}
}

func TestNewPolicy_RejectsNumeratorAboveMaximum(t *testing.T) {
	_, err := NewPolicy(Config{
		Standard:         Schedule{BuyNumerator: 2, SellNumerator: 26},
		Antibot:          Schedule{BuyNumerator: 25, SellNumerator: 25},
		Denominator:      100,
		MaximumNumerator: 25,
		Direction:        StaticDirection(DirectionSell),
	})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestNewPolicy_RejectsMaximumAboveDenominator(t *testing.T) {
	_, err := NewPolicy(Config{
		Denominator:      100,
		MaximumNumerator: 101,
		Direction:        StaticDirection(DirectionSell),
	})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestNewPolicy_RejectsZeroDenominator(t *testing.T) {
	_, err := NewPolicy(Config{Direction: StaticDirection(DirectionSell)})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestNewPolicy_RequiresDirectionPredicate(t *testing.T) {
	_, err := NewPolicy(Config{Denominator: 100, MaximumNumerator: 25})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
