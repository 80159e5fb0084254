package routes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nftmarket/core/ledger"
	"nftmarket/core/state"
	"nftmarket/core/types"
	"nftmarket/gateway/middleware"
	"nftmarket/indexer"
	"nftmarket/native/market"
	"nftmarket/native/metadata"
	"nftmarket/native/token"
)

const defaultBodyLimit = 1 << 20

// Rate limit groups. Submissions and reads are limited separately.
const (
	RateLimitSubmit = "submit"
	RateLimitRead   = "read"
)

// Ledger is the transaction and read surface the API needs.
type Ledger interface {
	Submit(ctx context.Context, tx *types.Transaction) (*ledger.Receipt, error)
	View(fn func(st *state.Manager) error) error
	Sequence() uint64
}

type marketReader interface {
	Marketplace(addr [20]byte) (*market.Marketplace, error)
	TradeState(addr [20]byte) (*market.TradeState, error)
	Custodian() [20]byte
}

type tokenReader interface {
	Mint(addr [20]byte) (*token.Mint, error)
	Account(addr [20]byte) (*token.Account, error)
}

type metadataReader interface {
	Get(mint [20]byte) (*metadata.Metadata, error)
}

// ListingIndex answers listing queries from the off-ledger index.
type ListingIndex interface {
	Listings(ctx context.Context, filter indexer.Filter) ([]indexer.Listing, error)
}

type Config struct {
	Ledger   Ledger
	Market   marketReader
	Tokens   tokenReader
	Metadata metadataReader
	// Index is optional; without it listing queries answer 503.
	Index         ListingIndex
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
	MaxBodyBytes  int64
	Logger        *slog.Logger
}

type api struct {
	cfg    Config
	logger *slog.Logger
}

// New builds the HTTP API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Ledger == nil || cfg.Market == nil || cfg.Tokens == nil {
		return nil, errors.New("routes: ledger, market and token readers are required")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultBodyLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	a := &api{cfg: cfg, logger: cfg.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(cfg.CORS))

	obs := cfg.Observability
	r.Get("/healthz", a.health)
	if obs != nil {
		r.Handle("/metrics", obs.MetricsHandler())
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Group(func(g chi.Router) {
			if cfg.RateLimiter != nil {
				g.Use(cfg.RateLimiter.Middleware(RateLimitSubmit))
			}
			if obs != nil {
				g.Use(obs.Middleware("transactions"))
			}
			g.Post("/transactions", a.submitTransaction)
		})
		v1.Group(func(g chi.Router) {
			if cfg.RateLimiter != nil {
				g.Use(cfg.RateLimiter.Middleware(RateLimitRead))
			}
			if obs != nil {
				g.Use(obs.Middleware("read"))
			}
			g.Get("/marketplaces/{address}", a.getMarketplace)
			g.Get("/listings", a.queryListings)
			g.Get("/listings/{address}", a.getListing)
			g.Get("/accounts/{address}", a.getAccount)
			g.Get("/mints/{address}", a.getMint)
			g.Get("/metadata/{mint}", a.getMetadata)
			g.Get("/derive/{kind}", a.derive)
		})
	})
	return r, nil
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sequence": a.cfg.Ledger.Sequence(),
	})
}
