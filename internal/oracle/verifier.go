package oracle

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"
)

// HTTPVerifier delegates update verification to the external price
// publishing service over HTTP. Payloads are forwarded opaquely; the
// service answers with the verified price and its publish time.
type HTTPVerifier struct {
	baseURL string
	fee     *big.Int
	client  *http.Client
}

// NewHTTPVerifier creates a verifier client. fee is the flat per-update
// fee the service charges, in collateral-token raw units.
func NewHTTPVerifier(baseURL string, fee *big.Int) *HTTPVerifier {
	return &HTTPVerifier{
		baseURL: baseURL,
		fee:     new(big.Int).Set(fee),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *HTTPVerifier) UpdateFee(_ [][]byte) *big.Int {
	return new(big.Int).Set(v.fee)
}

type verifyRequest struct {
	Feed   string   `json:"feed"`
	Update []string `json:"update"`
}

type verifyResponse struct {
	Price       string    `json:"price"` // raw 10^18-scaled integer
	PublishTime time.Time `json:"publish_time"`
}

func (v *HTTPVerifier) Verify(feed FeedID, update [][]byte) (Verification, error) {
	req := verifyRequest{Feed: string(feed)}
	for _, blob := range update {
		req.Update = append(req.Update, base64.StdEncoding.EncodeToString(blob))
	}
	body, err := json.Marshal(req)
	if err != nil {
		return Verification{}, err
	}

	resp, err := v.client.Post(v.baseURL+"/verify", "application/json", bytes.NewReader(body))
	if err != nil {
		return Verification{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Verification{}, fmt.Errorf("verifier returned status %d", resp.StatusCode)
	}

	var vr verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return Verification{}, err
	}
	price, ok := new(big.Int).SetString(vr.Price, 10)
	if !ok {
		return Verification{}, fmt.Errorf("verifier returned malformed price %q", vr.Price)
	}
	return Verification{Price: price, PublishTime: vr.PublishTime}, nil
}
