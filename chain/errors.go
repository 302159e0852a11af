package chain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind classifies a failure surfaced to callers of the faucet kit.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidAddress
	KindInvalidAmount
	KindSessionUnavailable
	KindUnknownMethod
	KindContractNotDeployed
	KindUserRejected
	KindReverted
	KindInsufficientFunds
	KindConfirmationTimeout
	// KindStaleHandle is returned when a handle outlived the address or session it was bound to.
	KindStaleHandle
)

var kindNames = map[Kind]string{
	KindUnknown:             "Unknown",
	KindInvalidAddress:      "InvalidAddress",
	KindInvalidAmount:       "InvalidAmount",
	KindSessionUnavailable:  "SessionUnavailable",
	KindUnknownMethod:       "UnknownMethod",
	KindContractNotDeployed: "ContractNotDeployed",
	KindUserRejected:        "UserRejected",
	KindReverted:            "Reverted",
	KindInsufficientFunds:   "InsufficientFunds",
	KindConfirmationTimeout: "ConfirmationTimeout",
	KindStaleHandle:         "StaleHandle",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// MaxReasonLength bounds the length of messages passed through for display.
const MaxReasonLength = 200

// Error is the classified error returned by every operation of the faucet kit.
//
// Use errors.Is against the sentinel values (ErrReverted, ...) to match on the kind, and
// errors.As to read the reason.
type Error struct {
	Kind Kind
	// Reason is a human readable detail, such as the revert reason supplied by the chain.
	Reason string
	// Err is the underlying transport error, if any.
	Err error
}

// Sentinel errors, one per kind. They match any *Error of the same kind.
var (
	ErrUnknown             = &Error{Kind: KindUnknown}
	ErrInvalidAddress      = &Error{Kind: KindInvalidAddress}
	ErrInvalidAmount       = &Error{Kind: KindInvalidAmount}
	ErrSessionUnavailable  = &Error{Kind: KindSessionUnavailable}
	ErrUnknownMethod       = &Error{Kind: KindUnknownMethod}
	ErrContractNotDeployed = &Error{Kind: KindContractNotDeployed}
	ErrUserRejected        = &Error{Kind: KindUserRejected}
	ErrReverted            = &Error{Kind: KindReverted}
	ErrInsufficientFunds   = &Error{Kind: KindInsufficientFunds}
	ErrConfirmationTimeout = &Error{Kind: KindConfirmationTimeout}
	ErrStaleHandle         = &Error{Kind: KindStaleHandle}
)

// NewError returns an *Error of the given kind.
func NewError(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// Errorf returns an *Error of the given kind with a formatted reason.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Reason != "":
		return e.Kind.String() + ": " + e.Reason
	case e.Err != nil:
		return e.Kind.String() + ": " + e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind. A target carrying a reason also has
// to match the reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

// KindOf returns the kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}

// Revert reasons known to the faucet and token contracts. Classify reports them verbatim.
const (
	ReasonRequestTooSoon  = "request too soon"
	ReasonExceedsMax      = "exceeds max request amount"
	ReasonExceedsDailyCap = "exceeds daily cap"
	ReasonBlacklisted     = "address is blacklisted"
	ReasonOnlyFaucetMints = "only faucet can mint"
	ReasonPaused          = "EnforcedPause"
	ReasonNotPaused       = "ExpectedPause"
	ReasonInsufficientBal = "insufficient balance"
)

var knownRevertReasons = []string{
	ReasonRequestTooSoon,
	ReasonExceedsMax,
	ReasonExceedsDailyCap,
	ReasonBlacklisted,
	ReasonOnlyFaucetMints,
	ReasonPaused,
	ReasonNotPaused,
}

var (
	userRejectedHints = []string{
		"user rejected", "user denied", "rejected by user", "denied by user",
		"declined by user", "confirmation declined", "cancelled by user", "canceled by user",
		"user canceled", "user cancelled",
	}
	notDeployedHints = []string{
		"no contract code", "no contract or not a valid smart contract",
		"smart contract is not exist", "contract does not exist", "contract not found",
	}
	insufficientHints = []string{
		"insufficient funds", "insufficient balance", "exceeds balance",
		"balance is not sufficient", "erc20insufficientbalance",
	}
	revertHints = []string{"execution reverted", "reverted", "revert"}
)

// Classify maps a raw transport failure to an *Error using substring heuristics. Errors that
// are already classified are returned unchanged. Messages matching no rule become KindUnknown
// with the message truncated to MaxReasonLength.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case containsAny(lower, userRejectedHints):
		return NewError(KindUserRejected, "", err)
	case containsAny(lower, notDeployedHints):
		return NewError(KindContractNotDeployed, "", err)
	case containsAny(lower, insufficientHints):
		return NewError(KindInsufficientFunds, ReasonInsufficientBal, err)
	}

	for _, reason := range knownRevertReasons {
		if strings.Contains(lower, strings.ToLower(reason)) {
			return NewError(KindReverted, reason, err)
		}
	}

	if containsAny(lower, revertHints) {
		return NewError(KindReverted, revertReason(msg), err)
	}

	return NewError(KindUnknown, Truncate(msg, MaxReasonLength), err)
}

// ClassifyReason classifies a bare revert reason reported by a chain, such as a decoded
// Error(string) payload or a receipt message.
func ClassifyReason(reason string) *Error {
	if reason == "" {
		return NewError(KindReverted, "", nil)
	}
	e := Classify(errors.New(reason))
	if e.Kind == KindUnknown {
		return NewError(KindReverted, Truncate(reason, MaxReasonLength), nil)
	}
	e.Err = nil

	return e
}

// revertReason extracts the text following the last "reverted:" marker, if any.
func revertReason(msg string) string {
	lower := strings.ToLower(msg)
	idx := strings.LastIndex(lower, "reverted:")
	if idx < 0 {
		return ""
	}

	return Truncate(strings.TrimSpace(msg[idx+len("reverted:"):]), MaxReasonLength)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 3 {
		return string([]rune(s)[:n])
	}

	return string([]rune(s)[:n-3]) + "..."
}
