package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/equiblock/engine/internal/api"
	"github.com/equiblock/engine/internal/asset"
	"github.com/equiblock/engine/internal/journal"
	"github.com/equiblock/engine/internal/metrics"
	"github.com/equiblock/engine/internal/model"
	"github.com/equiblock/engine/internal/oracle"
	"github.com/equiblock/engine/internal/pool"
	"github.com/equiblock/engine/internal/token"
	"github.com/equiblock/engine/internal/vault"
)

// Engine component identities at the token/ledger boundary.
const (
	vaultAccount  = "vault"
	poolAccount   = "pool"
	oracleAccount = "oracle"
	feeSink       = "oracle-fees"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// --- Journal store ---
	var store journal.Store
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pgPool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pgPool.Close)
		store = journal.NewPostgresStore(pgPool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			store = journal.NewCachedStore(store, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory journal (data will not persist)")
		store = journal.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Collateral token and synthetic ledger ---
	collateralSymbol := envOr("COLLATERAL_SYMBOL", "PYUSD")
	collateralDecimals := envIntOr("COLLATERAL_DECIMALS", 6)
	collateral := token.NewStable(collateralSymbol, collateralDecimals)

	ledger := asset.NewLedger(envOr("ASSET_SYMBOL", "eTCS"))
	ledger.SetNotify(func(ch asset.BalanceChange) {
		slog.Debug("asset balance change",
			"kind", ch.Kind, "from", ch.From, "to", ch.To,
			"amount", model.FormatAmount(ch.Amount, model.AssetDecimals),
		)
	})

	// --- Oracle ---
	var (
		prices oracle.PriceOracle
		manual *oracle.ManualOracle
		pulled *oracle.PullOracle
	)
	if verifierURL := os.Getenv("VERIFIER_URL"); verifierURL != "" {
		feed, err := oracle.ParseFeedID(os.Getenv("FEED_ID"))
		if err != nil {
			slog.Error("invalid FEED_ID", "err", err)
			os.Exit(1)
		}
		fee, err := model.ParseAmount(envOr("UPDATE_FEE", "0.01"), collateralDecimals)
		if err != nil {
			slog.Error("invalid UPDATE_FEE", "err", err)
			os.Exit(1)
		}
		maxAge, err := time.ParseDuration(envOr("ORACLE_MAX_AGE", "60s"))
		if err != nil {
			slog.Error("invalid ORACLE_MAX_AGE", "err", err)
			os.Exit(1)
		}
		verifier := oracle.NewHTTPVerifier(verifierURL, fee)
		pulled = oracle.NewPullOracle(feed, verifier, collateral, feeSink, oracleAccount, maxAge)
		prices = pulled
		slog.Info("pull oracle configured", "feed", string(feed), "max_age", maxAge.String())
	} else {
		manual = oracle.NewManualOracle()
		if p := os.Getenv("ORACLE_PRICE"); p != "" {
			price, err := model.ParseAmount(p, model.AssetDecimals)
			if err != nil {
				slog.Error("invalid ORACLE_PRICE", "err", err)
				os.Exit(1)
			}
			if err := manual.SetPrice(price); err != nil {
				slog.Error("invalid ORACLE_PRICE", "err", err)
				os.Exit(1)
			}
		}
		prices = manual
		slog.Info("manual oracle configured")
	}

	// --- Vault and pool wiring ---
	v := vault.New(vaultAccount, collateral, prices)
	if err := v.BindSyntheticAsset(ledger); err != nil {
		slog.Error("vault binding failed", "err", err)
		os.Exit(1)
	}
	if err := ledger.BindController(v.Account()); err != nil {
		slog.Error("controller binding failed", "err", err)
		os.Exit(1)
	}
	p := pool.New(poolAccount, collateral, ledger, prices)

	// --- WebSocket hub ---
	wsHub := api.NewWSHub()
	go wsHub.Run()

	// --- HTTP service ---
	svc := api.NewService(v, p, ledger, collateral, prices, manual, pulled, store, wsHub)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"equiblock-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", svc.Routes)

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("equiblock-engine listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down equiblock-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("equiblock-engine stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Error("invalid integer env", "key", key, "value", v)
		os.Exit(1)
	}
	return n
}
