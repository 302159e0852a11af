package faucet

import (
	"errors"
	"strings"

	"github.com/flashfaucet/faucet-kit/chain"
)

// Message returns the text shown to a user for a failed faucet action.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var e *chain.Error
	if !errors.As(err, &e) {
		e = chain.Classify(err)
	}

	switch e.Kind {
	case chain.KindInvalidAddress:
		return "Please enter a valid address"
	case chain.KindInvalidAmount:
		return "Please enter a valid amount"
	case chain.KindSessionUnavailable:
		return "Please connect your wallet"
	case chain.KindContractNotDeployed:
		return "Faucet contracts are not deployed on this network"
	case chain.KindUserRejected:
		return "Transaction rejected by user"
	case chain.KindInsufficientFunds:
		return "Insufficient balance"
	case chain.KindConfirmationTimeout:
		return "Transaction was not confirmed in time"
	case chain.KindStaleHandle:
		return "Network or account changed, please retry"
	case chain.KindReverted:
		return revertMessage(e.Reason)
	default:
		if e.Reason != "" {
			return e.Reason
		}

		return "Transaction failed"
	}
}

func revertMessage(reason string) string {
	switch {
	case strings.Contains(reason, chain.ReasonRequestTooSoon):
		return "Please wait for the cooldown period"
	case strings.Contains(reason, chain.ReasonExceedsMax):
		return "Requested amount exceeds the maximum request amount"
	case strings.Contains(reason, chain.ReasonExceedsDailyCap):
		return "You have exceeded your daily limit"
	case strings.Contains(reason, chain.ReasonBlacklisted):
		return "This address is blacklisted"
	case strings.Contains(reason, chain.ReasonPaused):
		return "The faucet is paused"
	case reason != "":
		return reason
	default:
		return "Transaction reverted"
	}
}
