package contract_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/flashfaucet/faucet-kit/chain"
	"github.com/flashfaucet/faucet-kit/chain/contract"
	"github.com/flashfaucet/faucet-kit/chain/utils/addrconv"
	"github.com/flashfaucet/faucet-kit/datastore"
	"github.com/flashfaucet/faucet-kit/pkg/logger"
	"github.com/flashfaucet/faucet-kit/pkg/metrics"
)

const (
	userTron   = "TXktmJ2n7aY2Tv4mj3Pf5Po2i3r9iKYEhx"
	faucetTron = "TLyqzVGLV1srkB7dToTAEqgDSfPtXRJZYH"
	userEVM    = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Call(ctx context.Context, desc chain.ContractDescriptor, method string, args []any) (any, error) {
	ret := m.Called(ctx, desc, method, args)
	return ret.Get(0), ret.Error(1)
}

func (m *mockBackend) Send(ctx context.Context, desc chain.ContractDescriptor, method string, args []any) (string, error) {
	ret := m.Called(ctx, desc, method, args)
	return ret.String(0), ret.Error(1)
}

func (m *mockBackend) AwaitOutcome(ctx context.Context, txID string) (chain.TransactionOutcome, error) {
	ret := m.Called(ctx, txID)
	return ret.Get(0).(chain.TransactionOutcome), ret.Error(1)
}

// fakeSession is a session whose active account can be switched.
type fakeSession struct {
	family chain.Family

	mu   sync.Mutex
	addr string
}

func (s *fakeSession) Family() chain.Family { return s.family }

func (s *fakeSession) ActiveAddress() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addr
}

func (s *fakeSession) Validate() error {
	if s.ActiveAddress() == "" {
		return chain.Errorf(chain.KindSessionUnavailable, "locked")
	}

	return nil
}

func (s *fakeSession) switchAccount(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addr = addr
}

type fixture struct {
	resolver *datastore.Resolver
	session  *fakeSession
	backend  *mockBackend
	invoker  *contract.Invoker
}

func newFixture(t *testing.T, family chain.Family, opts ...contract.InvokerOpt) *fixture {
	t.Helper()

	resolver, err := datastore.NewResolver(datastore.WithOverrides(map[chain.Family]datastore.Addresses{
		chain.FamilyTron: {Faucet: faucetTron},
	}))
	require.NoError(t, err)

	addr := userEVM
	if family == chain.FamilyTron {
		addr = userTron
	}

	return &fixture{
		resolver: resolver,
		session:  &fakeSession{family: family, addr: addr},
		backend:  &mockBackend{},
		invoker:  contract.NewInvoker(resolver, append([]contract.InvokerOpt{contract.WithLogger(logger.Test(t))}, opts...)...),
	}
}

func (f *fixture) handle(t *testing.T, role chain.Role) *contract.Handle {
	t.Helper()

	ref, gen, err := f.resolver.Lookup(f.session.family, role)
	require.NoError(t, err)
	desc, err := chain.DescriptorFor(f.session.family, role, ref.Address)
	require.NoError(t, err)

	h, err := contract.NewHandle(desc, f.session, f.backend, gen)
	require.NoError(t, err)

	return h
}

func TestInvoker_UnknownMethod(t *testing.T) {
	t.Parallel()

	f := newFixture(t, chain.FamilyTron)
	h := f.handle(t, chain.RoleFaucet)

	_, err := f.invoker.Call(t.Context(), h, "withdrawAll")
	require.ErrorIs(t, err, chain.ErrUnknownMethod)

	_, err = f.invoker.Send(t.Context(), h, "drain", big.NewInt(1))
	require.ErrorIs(t, err, chain.ErrUnknownMethod)

	f.backend.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.backend.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInvoker_SendReadOnlyMethod(t *testing.T) {
	t.Parallel()

	f := newFixture(t, chain.FamilyEVM)

	_, err := f.invoker.Send(t.Context(), f.handle(t, chain.RoleFaucet), "maxRequestAmount")
	require.ErrorIs(t, err, chain.ErrUnknownMethod)
	f.backend.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInvoker_Call_NormalizesOutputs(t *testing.T) {
	t.Parallel()

	wait, claimed, remaining, count := big.NewInt(300), big.NewInt(100_000_000), big.NewInt(900_000_000), big.NewInt(1)

	tests := []struct {
		name   string
		family chain.Family
		method string
		args   []any
		raw    any
		want   contract.Values
	}{
		{
			name:   "keyed result is ordered by declared outputs",
			family: chain.FamilyTron,
			method: "getUserInfo",
			args:   []any{userTron},
			raw: map[string]any{
				"requestCount":         count,
				"remainingCap":         remaining,
				"claimedToday":         claimed,
				"timeUntilNextRequest": wait,
			},
			want: contract.Values{wait, claimed, remaining, count},
		},
		{
			name:   "positional result is kept",
			family: chain.FamilyEVM,
			method: "getUserInfo",
			args:   []any{userEVM},
			raw:    []any{wait, claimed, remaining, count},
			want:   contract.Values{wait, claimed, remaining, count},
		},
		{
			name:   "addresses are rendered in chain format",
			family: chain.FamilyTron,
			method: "token",
			raw:    []any{common.HexToAddress("0xeefe8d4cd65e17a9f5fb5e6e8bb41492b64e5538")},
			want:   contract.Values{userTron},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, tt.family)
			f.backend.On("Call", mock.Anything, mock.Anything, tt.method, mock.Anything).Return(tt.raw, nil).Once()

			got, err := f.invoker.Call(t.Context(), f.handle(t, chain.RoleFaucet), tt.method, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			f.backend.AssertExpectations(t)
		})
	}
}

func TestInvoker_Call_MalformedResult(t *testing.T) {
	t.Parallel()

	f := newFixture(t, chain.FamilyTron)
	f.backend.On("Call", mock.Anything, mock.Anything, "getUserInfo", mock.Anything).
		Return(map[string]any{"claimedToday": big.NewInt(1)}, nil).Once()

	_, err := f.invoker.Call(t.Context(), f.handle(t, chain.RoleFaucet), "getUserInfo", userTron)
	require.ErrorIs(t, err, chain.ErrUnknown)
	assert.ErrorContains(t, err, `no "timeUntilNextRequest" value`)
}

func TestInvoker_EncodesArguments(t *testing.T) {
	t.Parallel()

	f := newFixture(t, chain.FamilyTron)
	h := f.handle(t, chain.RoleToken)

	want, err := addrconv.ToABIAddress(chain.FamilyTron, userTron)
	require.NoError(t, err)

	f.backend.On("Send", mock.Anything, mock.Anything, "transfer", []any{want, big.NewInt(2_500_000)}).Return("tx1", nil).Once()

	pending, err := f.invoker.Send(t.Context(), h, "transfer", userTron, "2500000")
	require.NoError(t, err)
	assert.Equal(t, "tx1", pending.ID)
	assert.Equal(t, "transfer", pending.Method)
	f.backend.AssertExpectations(t)
}

func TestInvoker_RejectsBeforeDispatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		method  string
		args    []any
		wantErr error
	}{
		{name: "malformed address", method: "balanceOf", args: []any{"TXktmJ2n7aY2Tv4mj3Pf5Po2i3r9iKYEhy"}, wantErr: chain.ErrInvalidAddress},
		{name: "evm address on tron", method: "balanceOf", args: []any{userEVM}, wantErr: chain.ErrInvalidAddress},
		{name: "negative amount", method: "transfer", args: []any{userTron, big.NewInt(-1)}, wantErr: chain.ErrInvalidAmount},
		{name: "non numeric amount", method: "transfer", args: []any{userTron, "1.5"}, wantErr: chain.ErrInvalidAmount},
		{name: "float amount", method: "transfer", args: []any{userTron, 1.5}, wantErr: chain.ErrInvalidAmount},
		{name: "wrong argument count", method: "balanceOf", args: nil, wantErr: chain.ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, chain.FamilyTron)
			h := f.handle(t, chain.RoleToken)

			_, err := f.invoker.Call(t.Context(), h, tt.method, tt.args...)
			require.ErrorIs(t, err, tt.wantErr)
			f.backend.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestInvoker_Send_AmountWiderThanWord(t *testing.T) {
	t.Parallel()

	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	wraps := new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(5))

	tests := []struct {
		name   string
		method string
		args   []any
	}{
		{name: "transfer of 2^256+5", method: "transfer", args: []any{userTron, wraps}},
		{name: "transfer as decimal string", method: "transfer", args: []any{userTron, wraps.String()}},
		{name: "request of 2^300", method: "requestFlash", args: []any{new(big.Int).Lsh(big.NewInt(1), 300)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, chain.FamilyTron)
			role := chain.RoleToken
			if tt.method == "requestFlash" {
				role = chain.RoleFaucet
			}

			_, err := f.invoker.Send(t.Context(), f.handle(t, role), tt.method, tt.args...)
			require.ErrorIs(t, err, chain.ErrInvalidAmount)
			assert.ErrorContains(t, err, "overflows uint256")
			f.backend.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("largest word is sent unchanged", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, chain.FamilyTron)
		want, err := addrconv.ToABIAddress(chain.FamilyTron, userTron)
		require.NoError(t, err)
		f.backend.On("Send", mock.Anything, mock.Anything, "transfer", []any{want, maxUint256}).Return("tx1", nil).Once()

		_, err = f.invoker.Send(t.Context(), f.handle(t, chain.RoleToken), "transfer", userTron, maxUint256)
		require.NoError(t, err)
		f.backend.AssertExpectations(t)
	})
}

func TestInvoker_ClassifiesDispatchFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t, chain.FamilyEVM)
	h := f.handle(t, chain.RoleFaucet)

	f.backend.On("Send", mock.Anything, mock.Anything, "requestFlash", mock.Anything).
		Return("", errors.New("execution reverted: exceeds daily cap")).Once()

	_, err := f.invoker.Send(t.Context(), h, "requestFlash", big.NewInt(100_000_000))
	require.ErrorIs(t, err, chain.ErrReverted)

	var cerr *chain.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, chain.ReasonExceedsDailyCap, cerr.Reason)
}

func TestInvoker_StaleHandle(t *testing.T) {
	t.Parallel()

	t.Run("address refreshed", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, chain.FamilyTron)
		h := f.handle(t, chain.RoleFaucet)

		changed, err := f.resolver.Set(datastore.AddressRef{Family: chain.FamilyTron, Role: chain.RoleFaucet, Address: "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"})
		require.NoError(t, err)
		require.True(t, changed)

		_, err = f.invoker.Call(t.Context(), h, "maxRequestAmount")
		require.ErrorIs(t, err, chain.ErrStaleHandle)
		f.backend.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

		// a fresh handle targets the new address
		fresh := f.handle(t, chain.RoleFaucet)
		assert.Equal(t, "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", fresh.Address())
		f.backend.On("Call", mock.Anything, mock.Anything, "maxRequestAmount", mock.Anything).Return([]any{big.NewInt(1)}, nil).Once()
		_, err = f.invoker.Call(t.Context(), fresh, "maxRequestAmount")
		require.NoError(t, err)
	})

	t.Run("account switched", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, chain.FamilyEVM)
		h := f.handle(t, chain.RoleToken)
		f.session.switchAccount("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")

		_, err := f.invoker.Send(t.Context(), h, "transfer", userEVM, big.NewInt(1))
		require.ErrorIs(t, err, chain.ErrStaleHandle)
		f.backend.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("session locked", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, chain.FamilyEVM)
		h := f.handle(t, chain.RoleToken)
		f.session.switchAccount("")

		_, err := f.invoker.Call(t.Context(), h, "totalSupply")
		require.ErrorIs(t, err, chain.ErrSessionUnavailable)
	})
}

func TestInvoker_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	f := newFixture(t, chain.FamilyEVM, contract.WithMetrics(metrics.New(reg)))
	h := f.handle(t, chain.RoleFaucet)

	f.backend.On("Call", mock.Anything, mock.Anything, "requestCooldown", mock.Anything).Return([]any{big.NewInt(300)}, nil).Once()
	f.backend.On("Send", mock.Anything, mock.Anything, "requestFlash", mock.Anything).Return("0xabc", nil).Once()
	f.backend.On("AwaitOutcome", mock.Anything, "0xabc").
		Return(chain.TransactionOutcome{Status: chain.StatusSuccess, TransactionID: "0xabc"}, nil).Once()

	_, err := f.invoker.Call(t.Context(), h, "requestCooldown")
	require.NoError(t, err)
	_, err = f.invoker.Call(t.Context(), h, "nope")
	require.Error(t, err)

	pending, err := f.invoker.Send(t.Context(), h, "requestFlash", big.NewInt(1))
	require.NoError(t, err)
	outcome, err := pending.AwaitOutcome(t.Context())
	require.NoError(t, err)
	assert.Equal(t, chain.StatusSuccess, outcome.Status)

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]int{}
	for _, mf := range families {
		counts[mf.GetName()] = len(mf.GetMetric())
	}
	assert.Equal(t, 3, counts["faucet_contract_invocations_total"])
	assert.Equal(t, 1, counts["faucet_tx_outcomes_total"])
	f.backend.AssertExpectations(t)
}
