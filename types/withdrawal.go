package types

// Tgas is a gas budget in units of 10^12 host-ledger gas.
type Tgas uint64

// SubmitWithdrawalRequest asks the relay to hand a pending transfer to the
// DCR connector. Msg is the raw receiver-message JSON; it is forwarded to
// the connector untouched after validation.
type SubmitWithdrawalRequest struct {
	TransferId TransferId `json:"transfer_id"`
	Msg        string     `json:"msg"`

	// The account submitting the withdrawal. Used for role checks and as the
	// fee recipient when none is given.
	Caller AccountId `json:"caller"`

	// Optional. Defaults to the caller.
	FeeRecipient AccountId `json:"fee_recipient,omitempty"`

	// Optional. When set, it must equal the fee stored in the record.
	Fee *Fee `json:"fee,omitempty"`

	// Gas the caller budgets for the settlement call plus its callback.
	AttachedGas Tgas `json:"attached_gas"`
}

// WithdrawalError is the wire-level error code reported back to the bridge
// host with a finished attempt.
type WithdrawalError int

const (
	WithdrawalErrNil WithdrawalError = iota // no error
	WithdrawalErrGeneric
	WithdrawalErrRejected // connector refused the transfer or used zero tokens
	WithdrawalErrFeePayout
)

// WithdrawalResult is the terminal outcome of one submission attempt. Exactly
// one of the two branches happened: the fee was paid out (Success) or the
// record was reinstated for a retry (Reinstated).
type WithdrawalResult struct {
	AttemptId  string     `json:"attempt_id"`
	TransferId TransferId `json:"transfer_id"`
	Success    bool       `json:"success"`

	// Amount the connector reported as accepted, in token units.
	SettledAmount U128 `json:"settled_amount"`

	Reinstated bool            `json:"reinstated"`
	Err        WithdrawalError `json:"err"`
}
