package datastore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/flashfaucet/faucet-kit/chain"
	"github.com/flashfaucet/faucet-kit/pkg/logger"
	"github.com/flashfaucet/faucet-kit/pkg/metrics"
)

// manifestServer answers every request with the current status and body.
func manifestServer(t *testing.T, status *atomic.Int32, body *atomic.Value) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(body.Load().(string)))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestNewResolver_Defaults(t *testing.T) {
	t.Parallel()

	r, err := NewResolver()
	require.NoError(t, err)

	assert.Equal(t, DefaultAddresses[chain.FamilyEVM], r.Resolve(chain.FamilyEVM))
	assert.Equal(t, DefaultAddresses[chain.FamilyTron], r.Resolve(chain.FamilyTron))
	assert.Equal(t, uint64(1), r.Generation(chain.FamilyEVM, chain.RoleFaucet))

	ref, gen, err := r.Lookup(chain.FamilyTron, chain.RoleToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), gen)
	assert.Equal(t, DefaultAddresses[chain.FamilyTron].Token, ref.Address)

	_, gen, err = r.Lookup(chain.FamilyTron, chain.RoleFaucet)
	require.ErrorIs(t, err, ErrAddressRefNotFound)
	assert.Zero(t, gen)

	// no manifest configured
	require.NoError(t, r.Refresh(t.Context()))
}

func TestNewResolver_Overrides(t *testing.T) {
	t.Parallel()

	r, err := NewResolver(WithOverrides(map[chain.Family]Addresses{
		chain.FamilyEVM:  {Token: evmToken},
		chain.FamilyTron: {Faucet: tronFaucet},
	}))
	require.NoError(t, err)

	assert.Equal(t, Addresses{
		Token:  checksummed(evmToken),
		Faucet: DefaultAddresses[chain.FamilyEVM].Faucet,
	}, r.Resolve(chain.FamilyEVM))
	assert.Equal(t, uint64(2), r.Generation(chain.FamilyEVM, chain.RoleToken))
	assert.Equal(t, tronFaucet, r.Resolve(chain.FamilyTron).Faucet)

	_, err = NewResolver(WithOverrides(map[chain.Family]Addresses{chain.FamilyTron: {Token: "0x1"}}))
	require.ErrorIs(t, err, ErrInvalidAddressRef)
}

func TestResolver_Refresh(t *testing.T) {
	t.Parallel()

	var status atomic.Int32
	status.Store(http.StatusOK)
	var body atomic.Value
	body.Store(`{"network":"localhost","contracts":{"FlashToken":"` + evmToken + `","FlashFaucetSecure":"` + evmFaucet + `"},` +
		`"tron":{"contracts":{"FlashFaucetSecure":"` + tronFaucet + `"}}}`)
	srv := manifestServer(t, &status, &body)

	lggr, logs := logger.TestObserved(t, zapcore.InfoLevel)
	reg := prometheus.NewRegistry()
	r, err := NewResolver(
		WithManifestSource(srv.URL+"/deployment-info.json"),
		WithLogger(lggr),
		WithMetrics(metrics.New(reg)),
	)
	require.NoError(t, err)

	require.NoError(t, r.Refresh(t.Context()))
	assert.Equal(t, Addresses{Token: checksummed(evmToken), Faucet: checksummed(evmFaucet)}, r.Resolve(chain.FamilyEVM))
	assert.Equal(t, tronFaucet, r.Resolve(chain.FamilyTron).Faucet)
	assert.Equal(t, uint64(2), r.Generation(chain.FamilyEVM, chain.RoleToken))
	assert.Equal(t, uint64(1), r.Generation(chain.FamilyTron, chain.RoleFaucet))
	assert.Equal(t, uint64(1), r.Generation(chain.FamilyTron, chain.RoleToken), "tron token untouched")
	assert.Equal(t, 3, logs.FilterMessage("Contract address updated").Len())

	t.Run("unchanged addresses keep their generation", func(t *testing.T) {
		require.NoError(t, r.Refresh(t.Context()))
		assert.Equal(t, uint64(2), r.Generation(chain.FamilyEVM, chain.RoleToken))
	})

	t.Run("fetch failure keeps the current addresses", func(t *testing.T) {
		status.Store(http.StatusInternalServerError)
		t.Cleanup(func() { status.Store(http.StatusOK) })

		require.ErrorContains(t, r.Refresh(t.Context()), "HTTP 500")
		assert.Equal(t, checksummed(evmToken), r.Resolve(chain.FamilyEVM).Token)
		assert.Equal(t, 1, logs.FilterMessage("Failed to load deployment manifest, using current contract addresses").Len())
	})

	t.Run("malformed addresses are skipped", func(t *testing.T) {
		body.Store(`{"contracts":{"FlashToken":"not-an-address","FlashFaucetSecure":"` + evmToken + `"}}`)

		require.NoError(t, r.Refresh(t.Context()))
		assert.Equal(t, Addresses{Token: checksummed(evmToken), Faucet: checksummed(evmToken)}, r.Resolve(chain.FamilyEVM))
		assert.Equal(t, uint64(3), r.Generation(chain.FamilyEVM, chain.RoleFaucet))
		assert.Equal(t, 1, logs.FilterMessage("Skipping malformed manifest addresses").Len())
	})
}

func TestResolver_Refresh_FallsBackToDefaults(t *testing.T) {
	t.Parallel()

	lggr, logs := logger.TestObserved(t, zapcore.WarnLevel)
	r, err := NewResolver(WithManifestSource("http://127.0.0.1:1/deployment-info.json"), WithLogger(lggr))
	require.NoError(t, err)

	require.Error(t, r.Refresh(t.Context()))
	assert.Equal(t, DefaultAddresses[chain.FamilyEVM], r.Resolve(chain.FamilyEVM))
	assert.Equal(t, 1, logs.Len())
}

func TestResolver_Start(t *testing.T) {
	t.Parallel()

	var status atomic.Int32
	status.Store(http.StatusOK)
	var body atomic.Value
	body.Store(`{"contracts":{"FlashToken":"` + evmToken + `"}}`)
	srv := manifestServer(t, &status, &body)

	r, err := NewResolver(WithManifestSource(srv.URL), WithLogger(logger.Test(t)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	done := r.Start(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return r.Resolve(chain.FamilyEVM).Token == checksummed(evmToken)
	}, 5*time.Second, 10*time.Millisecond)

	body.Store(`{"contracts":{"FlashToken":"` + evmFaucet + `"}}`)
	require.Eventually(t, func() bool {
		return r.Resolve(chain.FamilyEVM).Token == checksummed(evmFaucet)
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("refresh loop did not stop")
	}
}
