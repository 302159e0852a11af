package chain

// Status is the terminal state of a submitted transaction as observed by the client.
type Status string

const (
	StatusSuccess  Status = "SUCCESS"
	StatusReverted Status = "REVERTED"
	StatusTimedOut Status = "TIMED_OUT"
)

// TransactionOutcome is the result of waiting for a submitted transaction.
type TransactionOutcome struct {
	Status        Status
	TransactionID string
	// Reason carries the revert reason when the chain reports one.
	Reason string
	// BlockNumber is the including block, zero when unknown or timed out.
	BlockNumber uint64
}

// Err converts a non successful outcome to a classified error, returning nil on success.
func (o TransactionOutcome) Err() error {
	switch o.Status {
	case StatusSuccess:
		return nil
	case StatusTimedOut:
		return Errorf(KindConfirmationTimeout, "transaction %s not confirmed", o.TransactionID)
	default:
		return ClassifyReason(o.Reason)
	}
}
