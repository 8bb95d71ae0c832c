package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/etcmint/mintgate/pkg/apierr"
	"github.com/etcmint/mintgate/pkg/chain"
	"github.com/etcmint/mintgate/pkg/ingress"
	"github.com/etcmint/mintgate/pkg/log"
	"github.com/etcmint/mintgate/pkg/metrics"
	"github.com/etcmint/mintgate/pkg/types"
)

// ChainService is the slice of the chain gateway the HTTP surface needs.
// *chain.Gateway satisfies it; tests substitute a fake.
type ChainService interface {
	CreateFungible(ctx context.Context, p chain.CreateFungibleParams) (chain.DeployResult, error)
	CreateNonFungible(ctx context.Context, p chain.CreateNonFungibleParams) (chain.DeployResult, error)
	TokenInfo(ctx context.Context, tokenID uint64) (types.Token, error)
	ListTokens(ctx context.Context, limit, offset uint64) ([]types.Token, uint64, error)
	OwnerTokens(ctx context.Context, owner string) ([]types.Token, error)
	Mint(ctx context.Context, tokenID uint64, p chain.MintParams) (chain.OpResult, error)
	Burn(ctx context.Context, tokenID uint64, p chain.BurnParams) (chain.OpResult, error)
	Transfer(ctx context.Context, tokenID uint64, p chain.TransferParams) (chain.OpResult, error)
	Pause(ctx context.Context, tokenID uint64, externalID string) (chain.OpResult, error)
	Unpause(ctx context.Context, tokenID uint64, externalID string) (chain.OpResult, error)
	UpdateMetadata(ctx context.Context, tokenID uint64, uri, externalID string) (chain.OpResult, error)
	ListOnDex(ctx context.Context, tokenID uint64, externalID string) (chain.OpResult, error)
	EstimateDeployFee(ctx context.Context, p chain.FeeParams) (types.FeeQuote, error)
	Balance(ctx context.Context, tokenID uint64, address string) (types.Balance, error)
	HealthCheck(ctx context.Context) (types.ChainStatus, error)
}

// Options configures the HTTP server.
type Options struct {
	ListenAddr string
	Version    string
	Keys       *ingress.KeySet
	Limiter    *ingress.RateLimiter
}

// Server is the HTTP surface of the gateway. Handlers are thin
// translators: validate, invoke one ChainService operation, envelope the
// result.
type Server struct {
	chain   ChainService
	version string
	started time.Time
	httpSrv *http.Server
	logger  zerolog.Logger
}

// NewServer builds the router and middleware pipeline. The health and
// metrics endpoints sit outside the pipeline; everything under /v1
// (except health) goes through the full chain.
func NewServer(svc ChainService, opts Options) *Server {
	s := &Server{
		chain:   svc,
		version: opts.Version,
		started: time.Now(),
		logger:  log.WithComponent("api"),
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(s.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.notFound)

	// Health and metrics bypass auth and rate limiting so orchestrators
	// and scrapers never burn a client's budget.
	r.HandleFunc("/v1/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(
		ingress.RequestID,
		ingress.SecurityHeaders,
		ingress.BodyLimit,
		opts.Limiter.Middleware,
		ingress.Authenticate(opts.Keys),
		ingress.Recover,
		ingress.RequestLogger,
	)

	v1.HandleFunc("/tokens", s.wrap(s.createToken)).Methods(http.MethodPost)
	v1.HandleFunc("/tokens", s.wrap(s.listTokens)).Methods(http.MethodGet)
	v1.HandleFunc("/tokens/estimate-fee", s.wrap(s.estimateDeployFee)).Methods(http.MethodPost)
	v1.HandleFunc("/tokens/{id}", s.wrap(s.getToken)).Methods(http.MethodGet)
	v1.HandleFunc("/tokens/{id}", s.wrap(s.updateMetadata)).Methods(http.MethodPatch)
	v1.HandleFunc("/tokens/{id}/balance/{address}", s.wrap(s.getBalance)).Methods(http.MethodGet)
	v1.HandleFunc("/tokens/{id}/estimate-fee", s.wrap(s.estimateTokenFee)).Methods(http.MethodPost)
	v1.HandleFunc("/tokens/{id}/mint", s.wrap(s.mint)).Methods(http.MethodPost)
	v1.HandleFunc("/tokens/{id}/burn", s.wrap(s.burn)).Methods(http.MethodPost)
	v1.HandleFunc("/tokens/{id}/transfer", s.wrap(s.transfer)).Methods(http.MethodPost)
	v1.HandleFunc("/tokens/{id}/pause", s.wrap(s.pause)).Methods(http.MethodPost)
	v1.HandleFunc("/tokens/{id}/unpause", s.wrap(s.unpause)).Methods(http.MethodPost)
	v1.HandleFunc("/tokens/{id}/list-on-dex", s.wrap(s.listOnDex)).Methods(http.MethodPost)

	s.httpSrv = &http.Server{
		Addr:              opts.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start begins serving. The returned channel yields the terminal serve
// error; http.ErrServerClosed is filtered out as the normal shutdown
// signal.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpSrv.Addr).Msg("http server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("http server shutting down")
	return s.httpSrv.Shutdown(ctx)
}

// handlerFunc is a handler that reports failure as an error; wrap renders
// it through the single terminal error step.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			ingress.WriteError(w, r, err)
		}
	}
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	ingress.WriteError(w, r, apierr.NotFound("no route for %s %s", r.Method, r.URL.Path))
}
