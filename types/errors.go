package types

import "errors"

// Validation and submission failures. All of these fire before the transfer
// record is touched, so a rejected call leaves the registry unchanged.
var (
	ErrTransferNotFound      = errors.New("transfer record not found")
	ErrInvalidReceiverMsg    = errors.New("invalid dcr receiver message")
	ErrWrongMessageType      = errors.New("invalid dcr message type")
	ErrWrongDestinationChain = errors.New("invalid destination chain for dcr")
	ErrInvalidDcrAddress     = errors.New("invalid dcr address")
	ErrAddressMismatch       = errors.New("incorrect target address")
	ErrInvalidTransferMsg    = errors.New("invalid transfer msg for dcr utxo chain")
	ErrMaxFeeRateMissing     = errors.New("max fee rate is missing")
	ErrMaxFeeRateMismatch    = errors.New("invalid max fee rate")
	ErrFeeMismatch           = errors.New("invalid fee")
	ErrWrongChain            = errors.New("submit transfer can only be used for the configured utxo chain")
	ErrWrongToken            = errors.New("only the native token of this utxo chain can be transferred")
	ErrFeeExceedsAmount      = errors.New("token fee exceeds transfer amount")
	ErrInsufficientGas       = errors.New("attached gas does not cover the settlement call and its callback")
	ErrPaused                = errors.New("withdrawals are paused")
	ErrUnauthorized          = errors.New("caller is not allowed to perform this action")
)
