// Package faucet implements the wallet facing faucet actions on top of the contract invoker.
package faucet

import (
	"context"
	"math/big"
	"time"

	"github.com/flashfaucet/faucet-kit/chain"
	"github.com/flashfaucet/faucet-kit/chain/contract"
	"github.com/flashfaucet/faucet-kit/chain/utils/addrconv"
	"github.com/flashfaucet/faucet-kit/pkg/amount"
	"github.com/flashfaucet/faucet-kit/pkg/logger"
)

const (
	methodBalanceOf     = "balanceOf"
	methodTransfer      = "transfer"
	methodRequest       = "requestFlash"
	methodUserInfo      = "getUserInfo"
	methodCooldown      = "requestCooldown"
	methodMaxRequest    = "maxRequestAmount"
	methodDailyCap      = "dailyCapPerUser"
	methodPaused        = "paused"
	methodIsBlacklisted = "isBlacklisted"
)

// TokenSymbol is the symbol the faucet token is displayed and watched with, whatever the
// deployed contract reports.
const TokenSymbol = "USDT"

// Amount is a token amount in base units together with its display form.
type Amount struct {
	Units   *big.Int
	Display string
}

func (a Amount) String() string { return a.Display }

// UserInfo is the faucet bookkeeping of one account.
type UserInfo struct {
	TimeUntilNextRequest time.Duration
	ClaimedToday         Amount
	RemainingCap         Amount
	RequestCount         uint64
}

// Status reports whether the faucet accepts requests from an account.
type Status struct {
	Paused      bool
	Blacklisted bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger of the service.
func WithLogger(lggr logger.Logger) Option {
	return func(s *Service) {
		s.lggr = lggr
	}
}

// WithCodec sets the amount codec. Defaults to the 6 decimals token codec.
func WithCodec(c amount.Codec) Option {
	return func(s *Service) {
		s.codec = c
	}
}

// WithAssetWatcher sets the wallet asked to track the token. Without one, a session implementing
// AssetWatcher is used.
func WithAssetWatcher(w AssetWatcher) Option {
	return func(s *Service) {
		s.watcher = w
	}
}

// Service runs the faucet actions of one wallet session. A new contract handle is created for
// every action so that address refreshes and account switches are always picked up.
type Service struct {
	addresses contract.AddressSource
	factory   *contract.Factory
	invoker   *contract.Invoker
	session   contract.Session
	watcher   AssetWatcher
	codec     amount.Codec
	lggr      logger.Logger
}

// NewService returns the faucet actions of session.
func NewService(
	addresses contract.AddressSource,
	factory *contract.Factory,
	invoker *contract.Invoker,
	session contract.Session,
	opts ...Option,
) *Service {
	s := &Service{
		addresses: addresses,
		factory:   factory,
		invoker:   invoker,
		session:   session,
		codec:     amount.Default,
		lggr:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lggr = s.lggr.Named("faucet")

	return s
}

// Balance returns the token balance of account, or of the active account when account is empty.
func (s *Service) Balance(ctx context.Context, account string) (Amount, error) {
	account, err := s.account(account)
	if err != nil {
		return Amount{}, err
	}

	out, err := s.call(ctx, chain.RoleToken, methodBalanceOf, account)
	if err != nil {
		return Amount{}, err
	}

	return s.amountAt(out, 0)
}

// MaxRequestAmount returns the largest amount a single request may ask for.
func (s *Service) MaxRequestAmount(ctx context.Context) (Amount, error) {
	out, err := s.call(ctx, chain.RoleFaucet, methodMaxRequest)
	if err != nil {
		return Amount{}, err
	}

	return s.amountAt(out, 0)
}

// DailyCap returns the amount an account may claim per day.
func (s *Service) DailyCap(ctx context.Context) (Amount, error) {
	out, err := s.call(ctx, chain.RoleFaucet, methodDailyCap)
	if err != nil {
		return Amount{}, err
	}

	return s.amountAt(out, 0)
}

// Cooldown returns the minimum time between two requests of an account.
func (s *Service) Cooldown(ctx context.Context) (time.Duration, error) {
	out, err := s.call(ctx, chain.RoleFaucet, methodCooldown)
	if err != nil {
		return 0, err
	}

	return seconds(out, 0)
}

// UserInfo returns the faucet bookkeeping of user, or of the active account when user is empty.
func (s *Service) UserInfo(ctx context.Context, user string) (UserInfo, error) {
	user, err := s.account(user)
	if err != nil {
		return UserInfo{}, err
	}

	out, err := s.call(ctx, chain.RoleFaucet, methodUserInfo, user)
	if err != nil {
		return UserInfo{}, err
	}

	var info UserInfo
	if info.TimeUntilNextRequest, err = seconds(out, 0); err != nil {
		return UserInfo{}, err
	}
	if info.ClaimedToday, err = s.amountAt(out, 1); err != nil {
		return UserInfo{}, err
	}
	if info.RemainingCap, err = s.amountAt(out, 2); err != nil {
		return UserInfo{}, err
	}
	count, err := out.BigInt(3)
	if err != nil {
		return UserInfo{}, malformed(err)
	}
	info.RequestCount = count.Uint64()

	return info, nil
}

// Status reports whether the faucet is paused and whether user, or the active account when user
// is empty, is blacklisted.
func (s *Service) Status(ctx context.Context, user string) (Status, error) {
	user, err := s.account(user)
	if err != nil {
		return Status{}, err
	}

	out, err := s.call(ctx, chain.RoleFaucet, methodPaused)
	if err != nil {
		return Status{}, err
	}
	paused, err := out.Bool(0)
	if err != nil {
		return Status{}, malformed(err)
	}

	out, err = s.call(ctx, chain.RoleFaucet, methodIsBlacklisted, user)
	if err != nil {
		return Status{}, err
	}
	blacklisted, err := out.Bool(0)
	if err != nil {
		return Status{}, malformed(err)
	}

	return Status{Paused: paused, Blacklisted: blacklisted}, nil
}

// RequestTokens asks the faucet for the decimal amount and returns once the request is broadcast.
// Cooldown, request size and daily cap are enforced on chain and surface as KindReverted errors.
func (s *Service) RequestTokens(ctx context.Context, amount string) (*contract.PendingTransaction, error) {
	units, err := s.positive(amount)
	if err != nil {
		return nil, err
	}

	h, err := s.factory.CreateHandle(ctx, chain.RoleFaucet, s.session)
	if err != nil {
		return nil, err
	}
	pending, err := s.invoker.Send(ctx, h, methodRequest, units)
	if err != nil {
		return nil, err
	}
	s.lggr.Infow("Requested tokens", "family", h.Family(), "account", h.Account(), "amount", s.codec.ToDisplayString(units), "txID", pending.ID)

	return pending, nil
}

// TransferTokens sends the decimal amount of tokens from the active account to recipient.
func (s *Service) TransferTokens(ctx context.Context, recipient, amount string) (*contract.PendingTransaction, error) {
	if err := s.validSession(); err != nil {
		return nil, err
	}
	family := s.session.Family()
	if !addrconv.IsWellFormed(family, recipient) {
		return nil, chain.Errorf(chain.KindInvalidAddress, "%q is not a %s address", recipient, family)
	}
	units, err := s.positive(amount)
	if err != nil {
		return nil, err
	}

	h, err := s.factory.CreateHandle(ctx, chain.RoleToken, s.session)
	if err != nil {
		return nil, err
	}
	pending, err := s.invoker.Send(ctx, h, methodTransfer, recipient, units)
	if err != nil {
		return nil, err
	}
	s.lggr.Infow("Transferred tokens", "family", family, "from", h.Account(), "to", recipient, "amount", s.codec.ToDisplayString(units), "txID", pending.ID)

	return pending, nil
}

func (s *Service) call(ctx context.Context, role chain.Role, method string, args ...any) (contract.Values, error) {
	h, err := s.factory.CreateHandle(ctx, role, s.session)
	if err != nil {
		return nil, err
	}

	return s.invoker.Call(ctx, h, method, args...)
}

func (s *Service) validSession() error {
	if s.session == nil {
		return chain.Errorf(chain.KindSessionUnavailable, "no wallet session")
	}

	return s.session.Validate()
}

// account defaults an empty account to the active address and validates it.
func (s *Service) account(account string) (string, error) {
	if err := s.validSession(); err != nil {
		return "", err
	}
	if account == "" {
		return s.session.ActiveAddress(), nil
	}
	if !addrconv.IsWellFormed(s.session.Family(), account) {
		return "", chain.Errorf(chain.KindInvalidAddress, "%q is not a %s address", account, s.session.Family())
	}

	return account, nil
}

func (s *Service) positive(amount string) (*big.Int, error) {
	units, err := s.codec.ToBaseUnits(amount)
	if err != nil {
		return nil, err
	}
	if units.Sign() == 0 {
		return nil, chain.Errorf(chain.KindInvalidAmount, "amount %q must be greater than zero", amount)
	}

	return units, nil
}

func (s *Service) amountAt(out contract.Values, i int) (Amount, error) {
	units, err := out.BigInt(i)
	if err != nil {
		return Amount{}, malformed(err)
	}

	return Amount{Units: units, Display: s.codec.ToDisplayString(units)}, nil
}

func seconds(out contract.Values, i int) (time.Duration, error) {
	n, err := out.BigInt(i)
	if err != nil {
		return 0, malformed(err)
	}
	if !n.IsInt64() || n.Int64() > int64(time.Duration(1<<63-1)/time.Second) {
		return 0, chain.Errorf(chain.KindUnknown, "duration of %s seconds out of range", n)
	}

	return time.Duration(n.Int64()) * time.Second, nil
}

func malformed(err error) error {
	return chain.NewError(chain.KindUnknown, chain.Truncate(err.Error(), chain.MaxReasonLength), err)
}
