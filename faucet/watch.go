package faucet

import (
	"context"

	"github.com/flashfaucet/faucet-kit/chain"
	"github.com/flashfaucet/faucet-kit/pkg/amount"
)

// Token standards of a watched asset.
const (
	AssetERC20 = "ERC20"
	AssetTRC20 = "TRC20"
)

// WatchAssetRequest is the wallet_watchAsset request asking a wallet to track a token.
type WatchAssetRequest struct {
	Type     string `json:"type"`
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// AssetWatcher is implemented by wallets that can track a token.
type AssetWatcher interface {
	// WatchAsset returns whether the user accepted tracking the asset.
	WatchAsset(ctx context.Context, req WatchAssetRequest) (bool, error)
}

// AssetType returns the token standard of family.
func AssetType(family chain.Family) string {
	if family == chain.FamilyTron {
		return AssetTRC20
	}

	return AssetERC20
}

// WatchToken asks the wallet to track the faucet token. A missing or locked session fails with
// KindSessionUnavailable. Otherwise it returns false, without an error, when the wallet cannot
// track assets, no token address is resolved or the wallet request fails.
func (s *Service) WatchToken(ctx context.Context) (bool, error) {
	if err := s.validSession(); err != nil {
		return false, err
	}

	watcher := s.watcher
	if watcher == nil {
		w, ok := s.session.(AssetWatcher)
		if !ok {
			s.lggr.Warn("Wallet cannot watch assets")
			return false, nil
		}
		watcher = w
	}

	family := s.session.Family()
	ref, _, err := s.addresses.Lookup(family, chain.RoleToken)
	if err != nil {
		s.lggr.Warnw("Token contract address not available", "family", family, "err", err)
		return false, nil
	}

	req := WatchAssetRequest{
		Type:     AssetType(family),
		Address:  ref.Address,
		Symbol:   TokenSymbol,
		Decimals: amount.TokenDecimals,
	}
	added, err := watcher.WatchAsset(ctx, req)
	if err != nil {
		s.lggr.Warnw("Watch asset request failed", "family", family, "token", ref.Address, "err", err)
		return false, nil
	}

	return added, nil
}
