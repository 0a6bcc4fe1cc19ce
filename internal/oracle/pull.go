package oracle

import (
	"fmt"
	"math/big"
	"regexp"
	"sync"
	"time"

	"github.com/equiblock/engine/internal/token"
)

// feedIDRegex matches a 32-byte feed identifier in hex, with or
// without a 0x prefix. Example:
// 0xe62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43
var feedIDRegex = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{64}$`)

// ErrInvalidFeedID is returned for malformed feed identifiers.
var ErrInvalidFeedID = fmt.Errorf("oracle: invalid feed identifier")

// FeedID identifies one price feed at the external publishing service.
type FeedID string

// ParseFeedID validates a feed identifier string.
func ParseFeedID(s string) (FeedID, error) {
	if !feedIDRegex.MatchString(s) {
		return "", fmt.Errorf("%w: %q (expected 32-byte hex)", ErrInvalidFeedID, s)
	}
	return FeedID(s), nil
}

// Verification is the outcome of a successful update verification.
type Verification struct {
	// Price of one synthetic-asset unit in USD, scaled by 10^18.
	Price *big.Int
	// PublishTime is the feed-reported timestamp of the price.
	PublishTime time.Time
}

// FeedVerifier is the external verification boundary. The engine
// forwards update payloads opaquely and never inspects their contents;
// staleness and signature policy belong to the verifier.
type FeedVerifier interface {
	// UpdateFee returns the fee required to process the given payloads.
	UpdateFee(update [][]byte) *big.Int

	// Verify checks the payloads against the feed and returns the
	// verified price.
	Verify(feed FeedID, update [][]byte) (Verification, error)
}

// PullOracle holds the last externally verified price for one feed.
// Updates are paid: the offered fee is settled to the verifier's sink
// account in the same step that stores the price.
type PullOracle struct {
	feed     FeedID
	verifier FeedVerifier
	feeToken token.Token
	feeSink  string
	account  string
	maxAge   time.Duration
	now      func() time.Time

	mu          sync.RWMutex
	price       *big.Int
	publishedAt time.Time
}

// NewPullOracle binds a pull oracle to a feed and its verifier.
// The fee for each update is pulled from the updating caller through
// feeToken (allowance must cover it) and settled to feeSink. maxAge of
// zero disables the freshness check on reads.
func NewPullOracle(feed FeedID, verifier FeedVerifier, feeToken token.Token, feeSink, account string, maxAge time.Duration) *PullOracle {
	return &PullOracle{
		feed:     feed,
		verifier: verifier,
		feeToken: feeToken,
		feeSink:  feeSink,
		account:  account,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Feed returns the bound feed identifier.
func (o *PullOracle) Feed() FeedID { return o.feed }

// UpdateAndGetPrice forwards update to the feed verifier, settles the
// fee, and stores the newly verified price. The fee check, the
// verification, the fee transfer, and the store commit or fail as one
// step: a rejected payload or a failed fee transfer leaves the stored
// price untouched.
func (o *PullOracle) UpdateAndGetPrice(caller string, update [][]byte, fee *big.Int) (*big.Int, error) {
	required := o.verifier.UpdateFee(update)
	if fee == nil || (required != nil && required.Sign() > 0 && fee.Cmp(required) < 0) {
		return nil, ErrInsufficientFee
	}

	v, err := o.verifier.Verify(o.feed, update)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
	}
	if v.Price == nil || v.Price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: non-positive verified price", ErrInvalidUpdate)
	}

	if fee.Sign() > 0 {
		if err := o.feeToken.TransferFrom(o.account, caller, o.feeSink, fee); err != nil {
			return nil, err
		}
	}

	o.mu.Lock()
	o.price = new(big.Int).Set(v.Price)
	o.publishedAt = v.PublishTime
	o.mu.Unlock()

	return new(big.Int).Set(v.Price), nil
}

// GetPrice returns the last verified price, failing if none exists or
// it has aged past the freshness window.
func (o *PullOracle) GetPrice() (*big.Int, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.price == nil {
		return nil, ErrUninitialized
	}
	if o.maxAge > 0 && o.now().Sub(o.publishedAt) > o.maxAge {
		return nil, ErrStalePrice
	}
	return new(big.Int).Set(o.price), nil
}
