package oracle

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/equiblock/engine/internal/token"
)

const testFeed = FeedID("e62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43")

func scaled(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

// --- ManualOracle ---

func TestManualOracle_Uninitialized(t *testing.T) {
	o := NewManualOracle()
	if _, err := o.GetPrice(); !errors.Is(err, ErrUninitialized) {
		t.Errorf("expected ErrUninitialized, got %v", err)
	}
}

func TestManualOracle_SetGet(t *testing.T) {
	o := NewManualOracle()
	if err := o.SetPrice(scaled(100)); err != nil {
		t.Fatalf("set: %v", err)
	}
	p, err := o.GetPrice()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Cmp(scaled(100)) != 0 {
		t.Errorf("expected 100e18, got %s", p)
	}

	// Overwrites without restriction.
	if err := o.SetPrice(scaled(250)); err != nil {
		t.Fatalf("set: %v", err)
	}
	p, _ = o.GetPrice()
	if p.Cmp(scaled(250)) != 0 {
		t.Errorf("expected 250e18, got %s", p)
	}
}

func TestManualOracle_RejectsNonPositive(t *testing.T) {
	o := NewManualOracle()
	if err := o.SetPrice(big.NewInt(0)); !errors.Is(err, ErrNonPositivePrice) {
		t.Errorf("expected ErrNonPositivePrice for zero, got %v", err)
	}
	if err := o.SetPrice(big.NewInt(-5)); !errors.Is(err, ErrNonPositivePrice) {
		t.Errorf("expected ErrNonPositivePrice for negative, got %v", err)
	}
	if err := o.SetPrice(nil); !errors.Is(err, ErrNonPositivePrice) {
		t.Errorf("expected ErrNonPositivePrice for nil, got %v", err)
	}
}

func TestManualOracle_GetReturnsCopy(t *testing.T) {
	o := NewManualOracle()
	if err := o.SetPrice(scaled(100)); err != nil {
		t.Fatalf("set: %v", err)
	}
	p, _ := o.GetPrice()
	p.SetInt64(1)
	again, _ := o.GetPrice()
	if again.Cmp(scaled(100)) != 0 {
		t.Errorf("stored price must not alias the returned value, got %s", again)
	}
}

// --- FeedID ---

func TestParseFeedID(t *testing.T) {
	valid := []string{
		"e62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43",
		"0xe62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43",
		"0xFF62DF6C8B4A85FE1A67DB44DC12DE5DB330F7AC66B72DC658AFEDF0F4A415B4",
	}
	for _, s := range valid {
		if _, err := ParseFeedID(s); err != nil {
			t.Errorf("ParseFeedID(%q) = %v, want nil", s, err)
		}
	}

	invalid := []string{
		"",
		"0x",
		"e62df6c8",
		"0xe62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b4", // 63 chars
		"ze2df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43", // bad hex
	}
	for _, s := range invalid {
		if _, err := ParseFeedID(s); !errors.Is(err, ErrInvalidFeedID) {
			t.Errorf("ParseFeedID(%q) = %v, want ErrInvalidFeedID", s, err)
		}
	}
}

// --- PullOracle ---

// stubVerifier answers with fixed values, recording what it was asked.
type stubVerifier struct {
	fee       *big.Int
	price     *big.Int
	published time.Time
	err       error

	gotFeed   FeedID
	gotUpdate [][]byte
}

func (s *stubVerifier) UpdateFee(_ [][]byte) *big.Int { return s.fee }

func (s *stubVerifier) Verify(feed FeedID, update [][]byte) (Verification, error) {
	s.gotFeed = feed
	s.gotUpdate = update
	if s.err != nil {
		return Verification{}, s.err
	}
	return Verification{Price: s.price, PublishTime: s.published}, nil
}

func newPullFixture(t *testing.T, ver *stubVerifier, maxAge time.Duration) (*PullOracle, *token.Stable) {
	t.Helper()
	pyusd := token.NewStable("PYUSD", 6)
	if err := pyusd.Mint("alice", big.NewInt(1_000_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := pyusd.Approve("alice", "oracle", big.NewInt(1_000_000)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	return NewPullOracle(testFeed, ver, pyusd, "oracle-fees", "oracle", maxAge), pyusd
}

func TestPullOracle_UpdateStoresPriceAndSettlesFee(t *testing.T) {
	ver := &stubVerifier{fee: big.NewInt(10_000), price: scaled(100), published: time.Now()}
	o, pyusd := newPullFixture(t, ver, 0)

	payload := [][]byte{[]byte("blob")}
	p, err := o.UpdateAndGetPrice("alice", payload, big.NewInt(10_000))
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if p.Cmp(scaled(100)) != 0 {
		t.Errorf("expected 100e18, got %s", p)
	}
	if ver.gotFeed != testFeed {
		t.Errorf("verifier asked for feed %q", ver.gotFeed)
	}

	if got := pyusd.BalanceOf("oracle-fees"); got.Cmp(big.NewInt(10_000)) != 0 {
		t.Errorf("fee sink must hold 10000, got %s", got)
	}
	if got := pyusd.BalanceOf("alice"); got.Cmp(big.NewInt(990_000)) != 0 {
		t.Errorf("caller must be charged the fee, balance %s", got)
	}

	p, err = o.GetPrice()
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if p.Cmp(scaled(100)) != 0 {
		t.Errorf("expected stored 100e18, got %s", p)
	}
}

func TestPullOracle_InsufficientFee(t *testing.T) {
	ver := &stubVerifier{fee: big.NewInt(10_000), price: scaled(100), published: time.Now()}
	o, pyusd := newPullFixture(t, ver, 0)

	_, err := o.UpdateAndGetPrice("alice", [][]byte{[]byte("blob")}, big.NewInt(9_999))
	if !errors.Is(err, ErrInsufficientFee) {
		t.Fatalf("expected ErrInsufficientFee, got %v", err)
	}
	if got := pyusd.BalanceOf("alice"); got.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Errorf("rejected update must not charge, balance %s", got)
	}
	if _, err := o.GetPrice(); !errors.Is(err, ErrUninitialized) {
		t.Errorf("price must remain unset, got %v", err)
	}
}

func TestPullOracle_RejectedUpdateKeepsOldPrice(t *testing.T) {
	ver := &stubVerifier{fee: big.NewInt(0), price: scaled(100), published: time.Now()}
	o, pyusd := newPullFixture(t, ver, 0)

	if _, err := o.UpdateAndGetPrice("alice", [][]byte{[]byte("a")}, big.NewInt(0)); err != nil {
		t.Fatalf("first update: %v", err)
	}

	ver.err = errors.New("signature mismatch")
	_, err := o.UpdateAndGetPrice("alice", [][]byte{[]byte("b")}, big.NewInt(0))
	if !errors.Is(err, ErrInvalidUpdate) {
		t.Fatalf("expected ErrInvalidUpdate, got %v", err)
	}

	p, err := o.GetPrice()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Cmp(scaled(100)) != 0 {
		t.Errorf("rejected update must keep the old price, got %s", p)
	}
	if got := pyusd.BalanceOf("oracle-fees"); got.Sign() != 0 {
		t.Errorf("no fee should settle on rejection, sink holds %s", got)
	}
}

func TestPullOracle_FeeTransferFailureKeepsOldPrice(t *testing.T) {
	ver := &stubVerifier{fee: big.NewInt(10_000), price: scaled(100), published: time.Now()}
	pyusd := token.NewStable("PYUSD", 6)
	o := NewPullOracle(testFeed, ver, pyusd, "oracle-fees", "oracle", 0)

	// No balance, no allowance: the fee pull must fail.
	_, err := o.UpdateAndGetPrice("alice", [][]byte{[]byte("blob")}, big.NewInt(10_000))
	if !errors.Is(err, token.ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if _, err := o.GetPrice(); !errors.Is(err, ErrUninitialized) {
		t.Errorf("price must remain unset after failed fee transfer, got %v", err)
	}
}

func TestPullOracle_NonPositiveVerifiedPrice(t *testing.T) {
	ver := &stubVerifier{fee: big.NewInt(0), price: big.NewInt(0), published: time.Now()}
	o, _ := newPullFixture(t, ver, 0)

	_, err := o.UpdateAndGetPrice("alice", [][]byte{[]byte("blob")}, big.NewInt(0))
	if !errors.Is(err, ErrInvalidUpdate) {
		t.Errorf("expected ErrInvalidUpdate for zero price, got %v", err)
	}
}

func TestPullOracle_Staleness(t *testing.T) {
	published := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ver := &stubVerifier{fee: big.NewInt(0), price: scaled(100), published: published}
	o, _ := newPullFixture(t, ver, time.Minute)

	if _, err := o.UpdateAndGetPrice("alice", [][]byte{[]byte("blob")}, big.NewInt(0)); err != nil {
		t.Fatalf("update: %v", err)
	}

	o.now = func() time.Time { return published.Add(59 * time.Second) }
	if _, err := o.GetPrice(); err != nil {
		t.Fatalf("fresh price must read cleanly: %v", err)
	}

	o.now = func() time.Time { return published.Add(61 * time.Second) }
	if _, err := o.GetPrice(); !errors.Is(err, ErrStalePrice) {
		t.Errorf("expected ErrStalePrice, got %v", err)
	}

	// A fresh update clears the staleness.
	ver.published = published.Add(61 * time.Second)
	if _, err := o.UpdateAndGetPrice("alice", [][]byte{[]byte("blob")}, big.NewInt(0)); err != nil {
		t.Fatalf("refresh update: %v", err)
	}
	if _, err := o.GetPrice(); err != nil {
		t.Errorf("refreshed price must read cleanly, got %v", err)
	}
}

func TestPullOracle_ZeroMaxAgeDisablesStaleness(t *testing.T) {
	published := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ver := &stubVerifier{fee: big.NewInt(0), price: scaled(100), published: published}
	o, _ := newPullFixture(t, ver, 0)

	if _, err := o.UpdateAndGetPrice("alice", [][]byte{[]byte("blob")}, big.NewInt(0)); err != nil {
		t.Fatalf("update: %v", err)
	}
	o.now = func() time.Time { return published.Add(365 * 24 * time.Hour) }
	if _, err := o.GetPrice(); err != nil {
		t.Errorf("maxAge 0 must never go stale, got %v", err)
	}
}
