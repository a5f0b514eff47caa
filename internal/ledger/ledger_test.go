package ledger

import (
	"errors"
	"math/big"
	"testing"

	"github.com/mr-tron/base58"

	"bridged-token-ledger/internal/domain"
)

// addr builds a deterministic valid 32-byte address from a fill byte.
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

func amount(t *testing.T, s string) *big.Int {
	t.Helper()
	v, err := domain.ParseAmount(s)
	if err != nil {
		t.Fatalf("parse amount %q: %v", s, err)
	}
	return v
}

func newLedger(t *testing.T, maxSupply string) *SupplyLedger {
	t.Helper()
	l, err := NewSupplyLedger(amount(t, maxSupply))
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return l
}

func TestMint_GrowsBalanceAndSupply(t *testing.T) {
	l := newLedger(t, "1000000")
	alice := addr(t, 1)

	if err := l.Mint(alice, amount(t, "500")); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if got := l.BalanceOf(alice); got.Cmp(amount(t, "500")) != 0 {
		t.Errorf("expected balance 500, got %s", got)
	}
	if got := l.TotalSupply(); got.Cmp(amount(t, "500")) != 0 {
		t.Errorf("expected supply 500, got %s", got)
	}
}

func TestMint_ExactlyAtCapSucceeds(t *testing.T) {
	l := newLedger(t, "1000000")
	alice := addr(t, 1)

	if err := l.Mint(alice, amount(t, "1000000")); err != nil {
		t.Fatalf("mint to cap: %v", err)
	}
	if got := l.TotalSupply(); got.Cmp(amount(t, "1000000")) != 0 {
		t.Errorf("expected supply at cap, got %s", got)
	}
}

func TestMint_AboveCapFailsWithoutStateChange(t *testing.T) {
	// maxSupply = 1_000_000, mint 1_000_001 → SupplyCapExceeded, nothing moves
	l := newLedger(t, "1000000")
	alice := addr(t, 1)

	err := l.Mint(alice, amount(t, "1000001"))
	if !errors.Is(err, domain.ErrSupplyCapExceeded) {
		t.Fatalf("expected ErrSupplyCapExceeded, got %v", err)
	}
	if got := l.BalanceOf(alice); got.Sign() != 0 {
		t.Errorf("expected zero balance after failed mint, got %s", got)
	}
	if got := l.TotalSupply(); got.Sign() != 0 {
		t.Errorf("expected zero supply after failed mint, got %s", got)
	}
}

func TestMint_NullAccountRejected(t *testing.T) {
	l := newLedger(t, "1000000")

	err := l.Mint(domain.ZeroAddress, amount(t, "100"))
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestMint_NonPositiveAmountRejected(t *testing.T) {
	l := newLedger(t, "1000000")
	alice := addr(t, 1)

	if err := l.Mint(alice, new(big.Int)); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for zero, got %v", err)
	}
	if err := l.Mint(alice, big.NewInt(-5)); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for negative, got %v", err)
	}
}

func TestBurn_ShrinksBalanceAndSupply(t *testing.T) {
	l := newLedger(t, "1000000")
	alice := addr(t, 1)
	if err := l.Mint(alice, amount(t, "500")); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := l.Burn(alice, amount(t, "200")); err != nil {
		t.Fatalf("burn: %v", err)
	}

	if got := l.BalanceOf(alice); got.Cmp(amount(t, "300")) != 0 {
		t.Errorf("expected balance 300, got %s", got)
	}
	if got := l.TotalSupply(); got.Cmp(amount(t, "300")) != 0 {
		t.Errorf("expected supply 300, got %s", got)
	}
}

func TestBurn_InsufficientBalanceFailsWithoutStateChange(t *testing.T) {
	l := newLedger(t, "1000000")
	alice := addr(t, 1)
	if err := l.Mint(alice, amount(t, "100")); err != nil {
		t.Fatalf("mint: %v", err)
	}

	err := l.Burn(alice, amount(t, "101"))
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := l.BalanceOf(alice); got.Cmp(amount(t, "100")) != 0 {
		t.Errorf("expected balance unchanged at 100, got %s", got)
	}
	if got := l.TotalSupply(); got.Cmp(amount(t, "100")) != 0 {
		t.Errorf("expected supply unchanged at 100, got %s", got)
	}
}

func TestMoveValue_PreservesSupply(t *testing.T) {
	l := newLedger(t, "1000000")
	alice := addr(t, 1)
	bob := addr(t, 2)
	if err := l.Mint(alice, amount(t, "1000")); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := l.MoveValue(alice, bob, amount(t, "400")); err != nil {
		t.Fatalf("move: %v", err)
	}

	if got := l.BalanceOf(alice); got.Cmp(amount(t, "600")) != 0 {
		t.Errorf("expected alice 600, got %s", got)
	}
	if got := l.BalanceOf(bob); got.Cmp(amount(t, "400")) != 0 {
		t.Errorf("expected bob 400, got %s", got)
	}
	if got := l.TotalSupply(); got.Cmp(amount(t, "1000")) != 0 {
		t.Errorf("expected supply unchanged at 1000, got %s", got)
	}
}

func TestMoveValue_ZeroAmountIsNoOp(t *testing.T) {
	l := newLedger(t, "1000000")
	alice := addr(t, 1)
	bob := addr(t, 2)

	// Alice holds nothing; a zero move must still succeed.
	if err := l.MoveValue(alice, bob, new(big.Int)); err != nil {
		t.Fatalf("zero move: %v", err)
	}
}

func TestMoveValue_InsufficientBalance(t *testing.T) {
	l := newLedger(t, "1000000")
	alice := addr(t, 1)
	bob := addr(t, 2)

	err := l.MoveValue(alice, bob, amount(t, "1"))
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestCanMove_ReportsWithoutMutation(t *testing.T) {
	l := newLedger(t, "1000000")
	alice := addr(t, 1)
	if err := l.Mint(alice, amount(t, "100")); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if !l.CanMove(alice, amount(t, "100")) {
		t.Error("expected CanMove true at exact balance")
	}
	if l.CanMove(alice, amount(t, "101")) {
		t.Error("expected CanMove false above balance")
	}
	if got := l.BalanceOf(alice); got.Cmp(amount(t, "100")) != 0 {
		t.Errorf("expected balance untouched, got %s", got)
	}
}

func TestBalanceOf_ReturnsCopy(t *testing.T) {
	l := newLedger(t, "1000000")
	alice := addr(t, 1)
	if err := l.Mint(alice, amount(t, "100")); err != nil {
		t.Fatalf("mint: %v", err)
	}

	got := l.BalanceOf(alice)
	got.SetInt64(0)

	if again := l.BalanceOf(alice); again.Cmp(amount(t, "100")) != 0 {
		t.Errorf("mutating the returned balance leaked into the ledger: %s", again)
	}
}

func TestBalances_OmitsZeroBalances(t *testing.T) {
	l := newLedger(t, "1000000")
	alice := addr(t, 1)
	if err := l.Mint(alice, amount(t, "100")); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Burn(alice, amount(t, "100")); err != nil {
		t.Fatalf("burn: %v", err)
	}

	if got := l.Balances(); len(got) != 0 {
		t.Errorf("expected no entries for zeroed accounts, got %v", got)
	}
}

func TestRestore_RoundTrip(t *testing.T) {
	l := newLedger(t, "1000000")
	alice := addr(t, 1)
	bob := addr(t, 2)
	if err := l.Mint(alice, amount(t, "600")); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Mint(bob, amount(t, "400")); err != nil {
		t.Fatalf("mint: %v", err)
	}

	fresh := newLedger(t, "1000000")
	if err := fresh.Restore(l.Balances(), l.TotalSupply().String()); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if got := fresh.BalanceOf(alice); got.Cmp(amount(t, "600")) != 0 {
		t.Errorf("expected alice 600 after restore, got %s", got)
	}
	if got := fresh.TotalSupply(); got.Cmp(amount(t, "1000")) != 0 {
		t.Errorf("expected supply 1000 after restore, got %s", got)
	}
}

func TestRestore_RejectsMismatchedSum(t *testing.T) {
	l := newLedger(t, "1000000")
	alice := addr(t, 1)

	err := l.Restore(map[string]string{alice.String(): "100"}, "200")
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRestore_RejectsSupplyAboveCap(t *testing.T) {
	l := newLedger(t, "100")
	alice := addr(t, 1)

	err := l.Restore(map[string]string{alice.String(): "101"}, "101")
	if !errors.Is(err, domain.ErrSupplyCapExceeded) {
		t.Fatalf("expected ErrSupplyCapExceeded, got %v", err)
	}
}
