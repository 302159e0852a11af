package actions

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flashfaucet/faucet-kit/chain"
	"github.com/flashfaucet/faucet-kit/chain/contract"
	"github.com/flashfaucet/faucet-kit/chain/evm"
	"github.com/flashfaucet/faucet-kit/chain/tron"
	"github.com/flashfaucet/faucet-kit/config"
	"github.com/flashfaucet/faucet-kit/datastore"
	"github.com/flashfaucet/faucet-kit/faucet"
	"github.com/flashfaucet/faucet-kit/pkg/logger"
	"github.com/flashfaucet/faucet-kit/pkg/metrics"
)

const metricsShutdownTimeout = 5 * time.Second

// NewRuntime validates cfg, loads the contract addresses and connects the configured wallet.
//
// The deployment manifest is loaded before the service is returned and, with a refresh interval,
// reloaded in the background until Close. With a metrics listen address the collectors are
// served on /metrics.
func NewRuntime(ctx context.Context, cfg *config.Config, lggr logger.Logger) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	family, err := cfg.Family()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	resolver, err := datastore.NewResolver(
		datastore.WithManifestSource(cfg.Manifest.URL),
		datastore.WithOverrides(cfg.AddressOverrides()),
		datastore.WithLogger(lggr),
		datastore.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}
	// a failed load keeps the defaults and is logged by the resolver
	_ = resolver.Refresh(ctx)

	session, closeSession, err := connect(ctx, cfg, family, lggr)
	if err != nil {
		return nil, err
	}

	factory := contract.NewFactory(resolver,
		contract.WithEVMBackendOpts(cfg.EVMBackendOpts()...),
		contract.WithTronBackendOpts(cfg.TronBackendOpts()...),
		contract.WithFactoryLogger(lggr),
	)
	invoker := contract.NewInvoker(resolver, contract.WithLogger(lggr), contract.WithMetrics(m))

	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	var refreshDone <-chan struct{}
	if cfg.Manifest.URL != "" && cfg.Manifest.RefreshInterval > 0 {
		refreshDone = resolver.Start(bgCtx, cfg.Manifest.RefreshInterval)
	}
	srv := serveMetrics(cfg.Metrics.ListenAddr, m, lggr)

	closeFn := func() {
		cancel()
		if refreshDone != nil {
			<-refreshDone
		}
		if srv != nil {
			shutdownCtx, stop := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer stop()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				lggr.Warnw("Failed to stop metrics server", "err", err)
			}
		}
		closeSession()
	}

	return &Runtime{
		Service: faucet.NewService(resolver, factory, invoker, session, faucet.WithLogger(lggr)),
		Close:   closeFn,
	}, nil
}

func connect(ctx context.Context, cfg *config.Config, family chain.Family, lggr logger.Logger) (contract.Session, func(), error) {
	switch family {
	case chain.FamilyEVM:
		session, err := evm.Dial(ctx, lggr, cfg.Chain.Selector, cfg.EVMRPCURLs(), cfg.EVM.PrivateKey)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {}
		if c, ok := session.Client.(interface{ Close() }); ok {
			closeFn = c.Close
		}

		return session, closeFn, nil
	case chain.FamilyTron:
		wallet, err := tron.NewKeyWallet(cfg.Tron.PrivateKey, cfg.TronNode())
		if err != nil {
			return nil, nil, chain.NewError(chain.KindSessionUnavailable, "invalid Tron signer key", err)
		}

		return &tron.Session{Selector: cfg.Chain.Selector, Wallet: wallet, Timeout: cfg.Tron.Timeout}, func() {}, nil
	default:
		return nil, nil, chain.Errorf(chain.KindSessionUnavailable, "unsupported chain family %s", family)
	}
}

func serveMetrics(addr string, m *metrics.Metrics, lggr logger.Logger) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lggr.Errorw("Metrics server failed", "addr", addr, "err", err)
		}
	}()
	lggr.Infow("Serving metrics", "addr", addr)

	return srv
}
