package asset_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/equiblock/engine/internal/asset"
	"github.com/equiblock/engine/internal/token"
)

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func newBoundLedger(t *testing.T) *asset.Ledger {
	t.Helper()
	l := asset.NewLedger("eTCS")
	if err := l.BindController("vault"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	return l
}

func TestBindController_OneShot(t *testing.T) {
	l := newBoundLedger(t)
	if got := l.Controller(); got != "vault" {
		t.Errorf("expected controller %q, got %q", "vault", got)
	}
	if err := l.BindController("attacker"); !errors.Is(err, asset.ErrAlreadyBound) {
		t.Errorf("expected ErrAlreadyBound, got %v", err)
	}
	if got := l.Controller(); got != "vault" {
		t.Errorf("failed rebind must not change controller, got %q", got)
	}
}

func TestMint_RequiresController(t *testing.T) {
	l := asset.NewLedger("eTCS")
	if err := l.Mint("vault", "alice", units(1)); !errors.Is(err, asset.ErrNoController) {
		t.Errorf("expected ErrNoController before bind, got %v", err)
	}

	if err := l.BindController("vault"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := l.Mint("attacker", "alice", units(1)); !errors.Is(err, asset.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if l.BalanceOf("alice").Sign() != 0 {
		t.Error("rejected mint must not credit")
	}

	if err := l.Mint("vault", "alice", units(1)); err != nil {
		t.Fatalf("controller mint failed: %v", err)
	}
	if got := l.BalanceOf("alice"); got.Cmp(units(1)) != 0 {
		t.Errorf("expected balance 1e18, got %s", got)
	}
	if got := l.TotalSupply(); got.Cmp(units(1)) != 0 {
		t.Errorf("expected supply 1e18, got %s", got)
	}
}

func TestBurn_RequiresControllerAndBalance(t *testing.T) {
	l := newBoundLedger(t)
	if err := l.Mint("vault", "alice", units(2)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := l.Burn("attacker", "alice", units(1)); !errors.Is(err, asset.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if err := l.Burn("vault", "alice", units(3)); !errors.Is(err, token.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}

	if err := l.Burn("vault", "alice", units(2)); err != nil {
		t.Fatalf("burn failed: %v", err)
	}
	if l.BalanceOf("alice").Sign() != 0 {
		t.Error("expected zero balance after burn")
	}
	if l.TotalSupply().Sign() != 0 {
		t.Error("expected zero supply after burn")
	}
}

func TestTransfer_MovesBalance(t *testing.T) {
	l := newBoundLedger(t)
	if err := l.Mint("vault", "alice", units(5)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := l.Transfer("alice", "bob", units(2)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if got := l.BalanceOf("alice"); got.Cmp(units(3)) != 0 {
		t.Errorf("expected alice 3e18, got %s", got)
	}
	if got := l.BalanceOf("bob"); got.Cmp(units(2)) != 0 {
		t.Errorf("expected bob 2e18, got %s", got)
	}
	if got := l.TotalSupply(); got.Cmp(units(5)) != 0 {
		t.Errorf("transfer must not change supply, got %s", got)
	}

	if err := l.Transfer("alice", "bob", units(10)); !errors.Is(err, token.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestTransferFrom_ConsumesAllowance(t *testing.T) {
	l := newBoundLedger(t)
	if err := l.Mint("vault", "alice", units(5)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := l.TransferFrom("pool", "alice", "pool", units(1)); !errors.Is(err, token.ErrInsufficientAllowance) {
		t.Errorf("expected ErrInsufficientAllowance, got %v", err)
	}

	if err := l.Approve("alice", "pool", units(3)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := l.TransferFrom("pool", "alice", "pool", units(2)); err != nil {
		t.Fatalf("transfer-from failed: %v", err)
	}
	if got := l.Allowance("alice", "pool"); got.Cmp(units(1)) != 0 {
		t.Errorf("expected remaining allowance 1e18, got %s", got)
	}
	if err := l.TransferFrom("pool", "alice", "pool", units(2)); !errors.Is(err, token.ErrInsufficientAllowance) {
		t.Errorf("expected ErrInsufficientAllowance after spend, got %v", err)
	}
}

func TestSetNotify_DeliversChanges(t *testing.T) {
	l := newBoundLedger(t)

	var got []asset.BalanceChange
	l.SetNotify(func(ch asset.BalanceChange) { got = append(got, ch) })

	if err := l.Mint("vault", "alice", units(2)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Transfer("alice", "bob", units(1)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := l.Burn("vault", "bob", units(1)); err != nil {
		t.Fatalf("burn: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(got))
	}
	if got[0].Kind != "mint" || got[0].To != "alice" || got[0].Amount.Cmp(units(2)) != 0 {
		t.Errorf("unexpected mint notification: %+v", got[0])
	}
	if got[1].Kind != "transfer" || got[1].From != "alice" || got[1].To != "bob" {
		t.Errorf("unexpected transfer notification: %+v", got[1])
	}
	if got[2].Kind != "burn" || got[2].From != "bob" || got[2].Amount.Cmp(units(1)) != 0 {
		t.Errorf("unexpected burn notification: %+v", got[2])
	}
}

func TestNotify_RunsOutsideLock(t *testing.T) {
	l := newBoundLedger(t)
	// Reading the ledger from inside the callback would deadlock if the
	// ledger lock were still held.
	l.SetNotify(func(asset.BalanceChange) {
		_ = l.BalanceOf("alice")
		_ = l.TotalSupply()
	})
	if err := l.Mint("vault", "alice", units(1)); err != nil {
		t.Fatalf("mint: %v", err)
	}
}
