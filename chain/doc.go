/*
Package chain provides the chain family neutral vocabulary of the faucet kit: networks, contract
descriptors, transaction outcomes and the error taxonomy shared by the EVM and Tron transports.

# Overview

A session is bound to one network, identified by its chain selector. The selector determines the
[Family], which selects the address format and the transport used for every contract interaction:

	family, err := chain.Network{Selector: selector}.Family()
	if err != nil {
		return err // not an EVM or Tron selector
	}

# Contract Descriptors

The token and the faucet are described by a [ContractDescriptor]: the family, the role, the
address in the family's own format and the parsed ABI. Descriptors are built from the ABIs in this
package:

	desc, err := chain.DescriptorFor(chain.FamilyTron, chain.RoleFaucet, "TLyqzVGLV1srkB7dToTAEqgDSfPtXRJZYH")
	if err != nil {
		return err
	}
	method, ok := desc.Method("requestFlash")

# Errors

Every failure surfaced to callers is an [*Error] carrying a [Kind] and a human readable reason.
Errors match the sentinel of their kind with errors.Is, and additionally a sentinel with a reason
when both agree:

	if errors.Is(err, chain.ErrUserRejected) {
		// the wallet declined to sign
	}
	if errors.Is(err, &chain.Error{Kind: chain.KindReverted, Reason: chain.ReasonRequestTooSoon}) {
		// cooldown still running
	}

Raw node and wallet errors are mapped onto the taxonomy by [Classify].

# Outcomes

Transaction confirmation ends in a [TransactionOutcome]. Its Err method converts non successful
statuses back into the error taxonomy so callers can treat a reverted transaction like a failed call.
*/
package chain
