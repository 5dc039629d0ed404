package core

import (
	"fmt"

	chaincfg "github.com/decred/dcrd/chaincfg/v3"

	"github.com/sisu-network/drelay/dcr"
	"github.com/sisu-network/drelay/registry"
	"github.com/sisu-network/drelay/types"
)

// Validator proves that a withdrawal instruction is the one a stored transfer
// record was created for. Every check is fatal and none of them writes, so a
// rejected submission leaves the registry exactly as it was.
type Validator struct {
	registry registry.Registry
	tokens   TokenStore
	params   *chaincfg.Params
}

func NewValidator(reg registry.Registry, tokens TokenStore, params *chaincfg.Params) *Validator {
	return &Validator{
		registry: reg,
		tokens:   tokens,
		params:   params,
	}
}

// Validate loads the pending record for req.TransferId and checks the
// instruction in req.Msg against it. On success it returns the record and the
// parsed withdraw payload; the record stays pending until the submitter
// claims it.
func (v *Validator) Validate(req *types.SubmitWithdrawalRequest) (*types.TransferRecord, *types.WithdrawRequest, error) {
	record, err := v.registry.GetTransfer(req.TransferId)
	if err != nil {
		return nil, nil, err
	}

	message, err := types.ParseTokenReceiverMessage(req.Msg)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", types.ErrInvalidReceiverMsg, err)
	}

	withdraw := message.Withdraw
	if withdraw == nil {
		return nil, nil, types.ErrWrongMessageType
	}

	if err := dcr.CheckWithdraw(withdraw, v.params); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", types.ErrInvalidReceiverMsg, err)
	}

	dcrAddress, ok := record.Message.Recipient.GetUtxoAddress()
	if !ok {
		return nil, nil, types.ErrWrongDestinationChain
	}

	// The stored recipient itself must be a valid address for our network. A
	// failure here means the record was corrupted upstream.
	if err := dcr.CheckAddress(dcrAddress, v.params); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", types.ErrInvalidDcrAddress, err)
	}

	if dcrAddress != withdraw.TargetDcrAddress {
		return nil, nil, types.ErrAddressMismatch
	}

	// A fee-rate ceiling agreed at transfer creation binds the withdrawal:
	// the caller must assert exactly that rate.
	if record.Message.Msg != "" {
		extra, err := types.ParseUtxoChainMsg(record.Message.Msg)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", types.ErrInvalidTransferMsg, err)
		}

		if withdraw.MaxFeeRate == nil {
			return nil, nil, types.ErrMaxFeeRateMissing
		}
		if !withdraw.MaxFeeRate.EqualUint64(uint64(extra.MaxFeeRate)) {
			return nil, nil, types.ErrMaxFeeRateMismatch
		}
	}

	if req.Fee != nil && !record.Message.Fee.Equal(req.Fee) {
		return nil, nil, types.ErrFeeMismatch
	}

	chainKind, err := record.Message.GetDestinationChain()
	if err != nil || chainKind != types.ChainKindDcr {
		return nil, nil, types.ErrWrongChain
	}

	dcrTokenId, err := v.tokens.GetUtxoChainToken(types.ChainKindDcr)
	if err != nil {
		return nil, nil, err
	}

	tokenId, err := v.tokens.GetTokenId(record.Message.Token)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", types.ErrWrongToken, err)
	}
	if tokenId != dcrTokenId {
		return nil, nil, types.ErrWrongToken
	}

	return record, withdraw, nil
}
