// Package api provides the HTTP handlers for the vault, pool, oracle,
// and ledger operations, mapping engine sentinel errors to status
// codes and recording every committed operation in the journal.
//
// All monetary values cross the wire as decimal strings in each
// asset's human units; conversion to raw units happens here.
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/equiblock/engine/internal/asset"
	"github.com/equiblock/engine/internal/journal"
	"github.com/equiblock/engine/internal/metrics"
	"github.com/equiblock/engine/internal/model"
	"github.com/equiblock/engine/internal/oracle"
	"github.com/equiblock/engine/internal/pool"
	"github.com/equiblock/engine/internal/token"
	"github.com/equiblock/engine/internal/vault"
)

// Service handles engine operations over HTTP. A single mutex
// serializes mutating operations across vault, pool, ledger, and
// oracle so each request observes and commits a consistent state
// (single-instance; for horizontal scaling, replace with distributed
// locking).
type Service struct {
	vault      *vault.Vault
	pool       *pool.Pool
	ledger     *asset.Ledger
	collateral *token.Stable
	prices     oracle.PriceOracle
	manual     *oracle.ManualOracle // nil unless the manual variant is wired
	pull       *oracle.PullOracle   // nil unless the pull variant is wired
	journal    journal.Store
	hub        *WSHub // optional

	mu sync.Mutex
}

// NewService creates the HTTP service. Exactly one of manual/pull is
// expected to be non-nil, matching the oracle wired into vault and
// pool. Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(
	v *vault.Vault,
	p *pool.Pool,
	l *asset.Ledger,
	c *token.Stable,
	prices oracle.PriceOracle,
	manual *oracle.ManualOracle,
	pull *oracle.PullOracle,
	store journal.Store,
	hub *WSHub,
) *Service {
	return &Service{
		vault:      v,
		pool:       p,
		ledger:     l,
		collateral: c,
		prices:     prices,
		manual:     manual,
		pull:       pull,
		journal:    store,
		hub:        hub,
	}
}

// Routes mounts all handlers on the given router.
func (s *Service) Routes(r chi.Router) {
	if s.hub != nil {
		r.Get("/ws", s.hub.HandleWS)
	}

	r.Post("/faucet", s.Faucet)

	r.Get("/oracle/price", s.GetOraclePrice)
	r.Post("/oracle/price", s.SetOraclePrice)
	r.Post("/oracle/update", s.UpdateOraclePrice)

	r.Post("/vault/deposit", s.Deposit)
	r.Post("/vault/mint", s.Mint)
	r.Post("/vault/burn", s.Burn)
	r.Get("/vault/positions/{account}", s.GetPosition)

	r.Post("/pool/liquidity", s.AddLiquidity)
	r.Post("/pool/swap", s.Swap)
	r.Get("/pool/reserves", s.GetReserves)

	r.Post("/approve", s.Approve)
	r.Get("/asset/balances/{account}", s.GetAssetBalance)
	r.Get("/collateral/balances/{account}", s.GetCollateralBalance)

	r.Get("/journal/{account}", s.GetJournal)
}

// --- Request/Response types ---

// AmountRequest is the JSON body shared by faucet/deposit/mint/burn.
type AmountRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// PriceRequest is the JSON body for POST /oracle/price.
type PriceRequest struct {
	Price string `json:"price"`
}

// OracleUpdateRequest is the JSON body for POST /oracle/update. The
// update payloads are opaque base64 blobs forwarded to the feed
// verifier; the fee is denominated in the collateral token.
type OracleUpdateRequest struct {
	Account string   `json:"account"`
	Update  []string `json:"update"`
	Fee     string   `json:"fee"`
}

// ApproveRequest is the JSON body for POST /approve. Asset selects
// which ledger the allowance applies to: "collateral" or "asset".
type ApproveRequest struct {
	Account string `json:"account"`
	Spender string `json:"spender"`
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
}

// LiquidityRequest is the JSON body for POST /pool/liquidity.
type LiquidityRequest struct {
	Account          string `json:"account"`
	CollateralAmount string `json:"collateral_amount"`
	AssetAmount      string `json:"asset_amount"`
}

// SwapRequest is the JSON body for POST /pool/swap.
type SwapRequest struct {
	Account   string `json:"account"`
	Direction string `json:"direction"` // "collateral_to_asset" or "asset_to_collateral"
	Amount    string `json:"amount"`
}

// SwapResponse is returned from POST /pool/swap.
type SwapResponse struct {
	Account   string `json:"account"`
	Direction string `json:"direction"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
	Price     string `json:"price"`
}

// BalanceResponse is returned from balance queries.
type BalanceResponse struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

// Swap directions.
const (
	DirCollateralToAsset = "collateral_to_asset"
	DirAssetToCollateral = "asset_to_collateral"
)

// --- HTTP Handlers ---

// Faucet handles POST /api/v1/faucet: mints collateral token to an
// account for local use.
func (s *Service) Faucet(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Account == "" {
		writeError(w, "account is required", http.StatusBadRequest)
		return
	}
	amount, err := model.ParseAmount(req.Amount, s.collateral.Decimals())
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.collateral.Mint(req.Account, amount); err != nil {
		s.reject(w, err)
		return
	}

	s.record(r.Context(), model.KindFaucet, req.Account, s.collateral.Symbol(), amount, s.collateral.Decimals(), nil)
	writeJSON(w, http.StatusOK, BalanceResponse{
		Account: req.Account,
		Asset:   s.collateral.Symbol(),
		Balance: model.FormatAmount(s.collateral.BalanceOf(req.Account), s.collateral.Decimals()),
	})
}

// GetOraclePrice handles GET /api/v1/oracle/price.
func (s *Service) GetOraclePrice(w http.ResponseWriter, r *http.Request) {
	price, err := s.prices.GetPrice()
	if err != nil {
		s.reject(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"price": model.FormatAmount(price, model.AssetDecimals),
	})
}

// SetOraclePrice handles POST /api/v1/oracle/price (manual variant).
func (s *Service) SetOraclePrice(w http.ResponseWriter, r *http.Request) {
	if s.manual == nil {
		writeError(w, "manual oracle not configured", http.StatusNotFound)
		return
	}
	var req PriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	price, err := model.ParseAmount(req.Price, model.AssetDecimals)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.manual.SetPrice(price); err != nil {
		s.reject(w, err)
		return
	}

	s.priceCommitted("manual", price)
	s.record(r.Context(), model.KindPriceUpdate, "", "", nil, 0, price)
	writeJSON(w, http.StatusOK, map[string]string{
		"price": model.FormatAmount(price, model.AssetDecimals),
	})
}

// UpdateOraclePrice handles POST /api/v1/oracle/update (pull variant):
// forwards the opaque payloads to the feed verifier, settling the fee
// from the caller.
func (s *Service) UpdateOraclePrice(w http.ResponseWriter, r *http.Request) {
	if s.pull == nil {
		writeError(w, "pull oracle not configured", http.StatusNotFound)
		return
	}
	var req OracleUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Account == "" {
		writeError(w, "account is required", http.StatusBadRequest)
		return
	}
	update := make([][]byte, 0, len(req.Update))
	for _, blob := range req.Update {
		raw, err := base64.StdEncoding.DecodeString(blob)
		if err != nil {
			writeError(w, "update payloads must be base64", http.StatusBadRequest)
			return
		}
		update = append(update, raw)
	}
	fee, err := model.ParseAmount(req.Fee, s.collateral.Decimals())
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	price, err := s.pull.UpdateAndGetPrice(req.Account, update, fee)
	if err != nil {
		s.reject(w, err)
		return
	}

	s.priceCommitted("pull", price)
	s.record(r.Context(), model.KindPriceUpdate, req.Account, s.collateral.Symbol(), fee, s.collateral.Decimals(), price)
	writeJSON(w, http.StatusOK, map[string]string{
		"price": model.FormatAmount(price, model.AssetDecimals),
	})
}

// Deposit handles POST /api/v1/vault/deposit.
func (s *Service) Deposit(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := s.decodeAmount(w, r, s.collateral.Decimals())
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.vault.DepositCollateral(req.Account, amount); err != nil {
		s.reject(w, err)
		return
	}
	metrics.DepositsTotal.Inc()

	slog.Info("collateral deposited",
		"account", req.Account,
		"amount", model.FormatAmount(amount, s.collateral.Decimals()),
	)

	s.record(r.Context(), model.KindDeposit, req.Account, s.collateral.Symbol(), amount, s.collateral.Decimals(), nil)
	s.writePosition(w, req.Account)
}

// Mint handles POST /api/v1/vault/mint.
func (s *Service) Mint(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := s.decodeAmount(w, r, model.AssetDecimals)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.vault.MintEquiAsset(req.Account, amount); err != nil {
		s.reject(w, err)
		return
	}
	metrics.MintsTotal.Inc()

	slog.Info("synthetic minted",
		"account", req.Account,
		"amount", model.FormatAmount(amount, model.AssetDecimals),
	)

	s.record(r.Context(), model.KindMint, req.Account, s.ledger.Symbol(), amount, model.AssetDecimals, nil)
	s.broadcastOp("mint", req.Account, s.ledger.Symbol(), amount, model.AssetDecimals)
	s.writePosition(w, req.Account)
}

// Burn handles POST /api/v1/vault/burn.
func (s *Service) Burn(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := s.decodeAmount(w, r, model.AssetDecimals)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.vault.BurnEquiAsset(req.Account, amount); err != nil {
		s.reject(w, err)
		return
	}
	metrics.BurnsTotal.Inc()

	slog.Info("synthetic burned",
		"account", req.Account,
		"amount", model.FormatAmount(amount, model.AssetDecimals),
	)

	s.record(r.Context(), model.KindBurn, req.Account, s.ledger.Symbol(), amount, model.AssetDecimals, nil)
	s.broadcastOp("burn", req.Account, s.ledger.Symbol(), amount, model.AssetDecimals)
	s.writePosition(w, req.Account)
}

// GetPosition handles GET /api/v1/vault/positions/{account}.
func (s *Service) GetPosition(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	s.writePosition(w, account)
}

// AddLiquidity handles POST /api/v1/pool/liquidity.
func (s *Service) AddLiquidity(w http.ResponseWriter, r *http.Request) {
	var req LiquidityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Account == "" {
		writeError(w, "account is required", http.StatusBadRequest)
		return
	}
	collateralAmount, err := model.ParseAmount(req.CollateralAmount, s.collateral.Decimals())
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	assetAmount, err := model.ParseAmount(req.AssetAmount, model.AssetDecimals)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.pool.AddLiquidity(req.Account, collateralAmount, assetAmount); err != nil {
		s.reject(w, err)
		return
	}
	metrics.LiquidityAddsTotal.Inc()

	slog.Info("liquidity added",
		"account", req.Account,
		"collateral", model.FormatAmount(collateralAmount, s.collateral.Decimals()),
		"asset", model.FormatAmount(assetAmount, model.AssetDecimals),
	)

	event := &model.Event{
		ID:        uuid.New().String(),
		Kind:      model.KindAddLiquidity,
		Account:   req.Account,
		Asset:     s.collateral.Symbol(),
		Amount:    model.DecimalFromRaw(collateralAmount, s.collateral.Decimals()),
		AssetOut:  s.ledger.Symbol(),
		AmountOut: model.DecimalFromRaw(assetAmount, model.AssetDecimals),
		Timestamp: time.Now().UTC(),
	}
	s.append(r.Context(), event)
	s.writeReserves(w)
}

// Swap handles POST /api/v1/pool/swap.
func (s *Service) Swap(w http.ResponseWriter, r *http.Request) {
	var req SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Account == "" {
		writeError(w, "account is required", http.StatusBadRequest)
		return
	}
	if req.Direction != DirCollateralToAsset && req.Direction != DirAssetToCollateral {
		writeError(w, "direction must be collateral_to_asset or asset_to_collateral", http.StatusBadRequest)
		return
	}

	inDecimals := s.collateral.Decimals()
	if req.Direction == DirAssetToCollateral {
		inDecimals = model.AssetDecimals
	}
	amountIn, err := model.ParseAmount(req.Amount, inDecimals)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		amountOut   *big.Int
		outDecimals int
		kind        string
		assetIn     string
		assetOut    string
	)
	if req.Direction == DirCollateralToAsset {
		amountOut, err = s.pool.SwapCollateralForAsset(req.Account, amountIn)
		outDecimals = model.AssetDecimals
		kind = model.KindSwapIn
		assetIn, assetOut = s.collateral.Symbol(), s.ledger.Symbol()
	} else {
		amountOut, err = s.pool.SwapAssetForCollateral(req.Account, amountIn)
		outDecimals = s.collateral.Decimals()
		kind = model.KindSwapOut
		assetIn, assetOut = s.ledger.Symbol(), s.collateral.Symbol()
	}
	if err != nil {
		s.reject(w, err)
		return
	}
	metrics.SwapsTotal.WithLabelValues(req.Direction).Inc()

	price, _ := s.pool.GetOraclePrice()

	slog.Info("swap executed",
		"account", req.Account,
		"direction", req.Direction,
		"amount_in", model.FormatAmount(amountIn, inDecimals),
		"amount_out", model.FormatAmount(amountOut, outDecimals),
	)

	event := &model.Event{
		ID:        uuid.New().String(),
		Kind:      kind,
		Account:   req.Account,
		Asset:     assetIn,
		Amount:    model.DecimalFromRaw(amountIn, inDecimals),
		AssetOut:  assetOut,
		AmountOut: model.DecimalFromRaw(amountOut, outDecimals),
		Price:     model.DecimalFromRaw(price, model.AssetDecimals),
		Timestamp: time.Now().UTC(),
	}
	s.append(r.Context(), event)

	if s.hub != nil {
		s.hub.Broadcast(WSMessage{
			Type:      "swap_executed",
			Account:   req.Account,
			Asset:     assetIn,
			Amount:    model.FormatAmount(amountIn, inDecimals),
			AssetOut:  assetOut,
			AmountOut: model.FormatAmount(amountOut, outDecimals),
			Price:     model.FormatAmount(price, model.AssetDecimals),
		})
	}

	writeJSON(w, http.StatusOK, SwapResponse{
		Account:   req.Account,
		Direction: req.Direction,
		AmountIn:  model.FormatAmount(amountIn, inDecimals),
		AmountOut: model.FormatAmount(amountOut, outDecimals),
		Price:     model.FormatAmount(price, model.AssetDecimals),
	})
}

// GetReserves handles GET /api/v1/pool/reserves.
func (s *Service) GetReserves(w http.ResponseWriter, r *http.Request) {
	s.writeReserves(w)
}

// Approve handles POST /api/v1/approve: sets an allowance on the
// collateral token or the synthetic ledger on behalf of the account.
func (s *Service) Approve(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Account == "" || req.Spender == "" {
		writeError(w, "account and spender are required", http.StatusBadRequest)
		return
	}

	var t token.Token
	switch req.Asset {
	case "collateral":
		t = s.collateral
	case "asset":
		t = s.ledger
	default:
		writeError(w, "asset must be collateral or asset", http.StatusBadRequest)
		return
	}
	amount, err := model.ParseAmount(req.Amount, t.Decimals())
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := t.Approve(req.Account, req.Spender, amount); err != nil {
		s.reject(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"account":   req.Account,
		"spender":   req.Spender,
		"asset":     t.Symbol(),
		"allowance": model.FormatAmount(t.Allowance(req.Account, req.Spender), t.Decimals()),
	})
}

// GetCollateralBalance handles GET /api/v1/collateral/balances/{account}.
func (s *Service) GetCollateralBalance(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	writeJSON(w, http.StatusOK, BalanceResponse{
		Account: account,
		Asset:   s.collateral.Symbol(),
		Balance: model.FormatAmount(s.collateral.BalanceOf(account), s.collateral.Decimals()),
	})
}

// GetAssetBalance handles GET /api/v1/asset/balances/{account}.
func (s *Service) GetAssetBalance(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	writeJSON(w, http.StatusOK, BalanceResponse{
		Account: account,
		Asset:   s.ledger.Symbol(),
		Balance: model.FormatAmount(s.ledger.BalanceOf(account), model.AssetDecimals),
	})
}

// GetJournal handles GET /api/v1/journal/{account}.
func (s *Service) GetJournal(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	events, err := s.journal.ListByAccount(r.Context(), account)
	if err != nil {
		writeError(w, "failed to load journal", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// --- helpers ---

func (s *Service) decodeAmount(w http.ResponseWriter, r *http.Request, decimals int) (AmountRequest, *big.Int, bool) {
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return req, nil, false
	}
	if req.Account == "" {
		writeError(w, "account is required", http.StatusBadRequest)
		return req, nil, false
	}
	amount, err := model.ParseAmount(req.Amount, decimals)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return req, nil, false
	}
	return req, amount, true
}

func (s *Service) writePosition(w http.ResponseWriter, account string) {
	pos, err := s.vault.GetUserPosition(account)
	if err != nil {
		s.reject(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.PositionView{
		Account:        account,
		Collateral:     model.FormatAmount(pos.Collateral, model.AssetDecimals),
		Debt:           model.FormatAmount(pos.Debt, model.AssetDecimals),
		Ratio:          model.FormatAmount(pos.Ratio, model.AssetDecimals),
		IsLiquidatable: pos.IsLiquidatable,
	})
}

func (s *Service) writeReserves(w http.ResponseWriter) {
	reserveCollateral, reserveAsset, err := s.pool.GetReserves()
	if err != nil {
		s.reject(w, err)
		return
	}
	priceStr := ""
	if price, err := s.pool.GetOraclePrice(); err == nil {
		priceStr = model.FormatAmount(price, model.AssetDecimals)
	}
	writeJSON(w, http.StatusOK, model.ReservesView{
		ReserveCollateral: model.FormatAmount(reserveCollateral, s.collateral.Decimals()),
		ReserveAsset:      model.FormatAmount(reserveAsset, model.AssetDecimals),
		OraclePrice:       priceStr,
	})
}

// record appends a simple single-amount event to the journal.
func (s *Service) record(ctx context.Context, kind, account, assetSymbol string, amount *big.Int, decimals int, price *big.Int) {
	event := &model.Event{
		ID:        uuid.New().String(),
		Kind:      kind,
		Account:   account,
		Asset:     assetSymbol,
		Timestamp: time.Now().UTC(),
	}
	if amount != nil {
		event.Amount = model.DecimalFromRaw(amount, decimals)
	}
	if price != nil {
		event.Price = model.DecimalFromRaw(price, model.AssetDecimals)
	}
	s.append(ctx, event)
}

// append writes the event, logging rather than failing the already
// committed operation if the journal is unavailable.
func (s *Service) append(ctx context.Context, event *model.Event) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Append(ctx, event); err != nil {
		slog.Error("journal append failed", "kind", event.Kind, "err", err)
	}
}

// priceCommitted updates metrics and broadcasts an accepted price.
func (s *Service) priceCommitted(variant string, price *big.Int) {
	metrics.OracleUpdatesTotal.WithLabelValues(variant).Inc()
	f, _ := model.DecimalFromRaw(price, model.AssetDecimals).Float64()
	metrics.LastOraclePrice.Set(f)

	slog.Info("oracle price updated",
		"variant", variant,
		"price", model.FormatAmount(price, model.AssetDecimals),
	)

	if s.hub != nil {
		s.hub.Broadcast(WSMessage{
			Type:  "price_update",
			Price: model.FormatAmount(price, model.AssetDecimals),
		})
	}
}

func (s *Service) broadcastOp(opType, account, assetSymbol string, amount *big.Int, decimals int) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(WSMessage{
		Type:    opType,
		Account: account,
		Asset:   assetSymbol,
		Amount:  model.FormatAmount(amount, decimals),
	})
}

// reject maps engine sentinel errors onto HTTP status codes and counts
// the rejection.
func (s *Service) reject(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, token.ErrNonPositiveAmount),
		errors.Is(err, model.ErrBadAmount),
		errors.Is(err, oracle.ErrNonPositivePrice),
		errors.Is(err, oracle.ErrInvalidUpdate):
		status = http.StatusBadRequest
	case errors.Is(err, vault.ErrInsufficientCollateral),
		errors.Is(err, vault.ErrInsufficientDebt),
		errors.Is(err, pool.ErrInsufficientLiquidity),
		errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientAllowance),
		errors.Is(err, oracle.ErrInsufficientFee),
		errors.Is(err, oracle.ErrUninitialized),
		errors.Is(err, oracle.ErrStalePrice),
		errors.Is(err, vault.ErrReentrantCall),
		errors.Is(err, pool.ErrReentrantCall):
		status = http.StatusConflict
	case errors.Is(err, asset.ErrUnauthorized):
		status = http.StatusForbidden
	}
	metrics.RejectionsTotal.WithLabelValues(reasonLabel(err)).Inc()
	writeError(w, err.Error(), status)
}

func reasonLabel(err error) string {
	switch {
	case errors.Is(err, vault.ErrInsufficientCollateral):
		return "insufficient_collateral"
	case errors.Is(err, vault.ErrInsufficientDebt):
		return "insufficient_debt"
	case errors.Is(err, pool.ErrInsufficientLiquidity):
		return "insufficient_liquidity"
	case errors.Is(err, token.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, token.ErrInsufficientAllowance):
		return "insufficient_allowance"
	case errors.Is(err, oracle.ErrInsufficientFee):
		return "insufficient_fee"
	case errors.Is(err, oracle.ErrInvalidUpdate):
		return "invalid_update"
	case errors.Is(err, oracle.ErrUninitialized), errors.Is(err, oracle.ErrStalePrice):
		return "no_fresh_price"
	case errors.Is(err, asset.ErrUnauthorized):
		return "unauthorized"
	default:
		return "other"
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
