package core

import (
	"context"

	"github.com/golang/groupcache/lru"
	"github.com/sisu-network/lib/log"

	"github.com/sisu-network/drelay/registry"
	"github.com/sisu-network/drelay/token"
	"github.com/sisu-network/drelay/types"
)

// seenAttemptCount bounds the duplicate-outcome guard.
const seenAttemptCount = 1000

// CallbackHandler finishes a settlement attempt. Exactly one of two things
// happens: the connector kept tokens, so the protocol fee is paid out and the
// transfer is terminally settled, or it did not, so the exact record removed
// at submission is reinstated for a retry. Never both, never neither.
type CallbackHandler struct {
	registry    registry.Registry
	tokenClient token.Client

	seenAttempts *lru.Cache
}

func NewCallbackHandler(reg registry.Registry, tokenClient token.Client) *CallbackHandler {
	return &CallbackHandler{
		registry:     reg,
		tokenClient:  tokenClient,
		seenAttempts: lru.New(seenAttemptCount),
	}
}

// Handle runs the settlement callback for one outcome. It returns nil when
// the outcome is a duplicate delivery for an attempt that already finished.
// Handle is not safe for concurrent use; the relay feeds it from a single
// worker.
func (h *CallbackHandler) Handle(outcome *settlementOutcome) *types.WithdrawalResult {
	attempt := outcome.attempt
	if _, ok := h.seenAttempts.Get(attempt.attemptId); ok {
		log.Warnf("Dropping duplicate settlement outcome for attempt %s", attempt.attemptId)
		return nil
	}
	h.seenAttempts.Add(attempt.attemptId, true)

	result := &types.WithdrawalResult{
		AttemptId:  attempt.attemptId,
		TransferId: attempt.transferId,
	}

	if outcome.err == nil && !outcome.used.IsZero() {
		h.finish(attempt, outcome, result)
	} else {
		h.reinstate(attempt, outcome, result)
	}

	return result
}

func (h *CallbackHandler) finish(attempt *settlementAttempt, outcome *settlementOutcome,
	result *types.WithdrawalResult) {
	if err := h.registry.FinishSettlement(attempt.attemptId); err != nil {
		log.Errorf("Cannot clear settlement intent for attempt %s, err = %v", attempt.attemptId, err)
	}

	result.Success = true
	result.SettledAmount = outcome.used

	log.Infof("Transfer %s is settled, attempt = %s, used amount = %s",
		attempt.transferId, attempt.attemptId, outcome.used.String())

	h.payFee(attempt, result)
}

// payFee sends the protocol fee to the fee recipient. By now the settlement
// cannot be undone anymore; a failure here is reported, not compensated.
func (h *CallbackHandler) payFee(attempt *settlementAttempt, result *types.WithdrawalResult) {
	tokenFee := attempt.record.Message.Fee.Fee
	if tokenFee.IsZero() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), TokenCallTimeout)
	defer cancel()

	err := h.tokenClient.FtTransfer(ctx, attempt.tokenId, attempt.feeRecipient, tokenFee,
		attempt.attemptId)
	if err != nil {
		log.Errorf("Cannot pay the %s token fee to %s for attempt %s, err = %v",
			tokenFee.String(), attempt.feeRecipient, attempt.attemptId, err)
		result.Err = types.WithdrawalErrFeePayout
		return
	}

	log.Infof("Paid %s token fee to %s, attempt = %s", tokenFee.String(), attempt.feeRecipient,
		attempt.attemptId)
}

func (h *CallbackHandler) reinstate(attempt *settlementAttempt, outcome *settlementOutcome,
	result *types.WithdrawalResult) {
	if outcome.err != nil {
		log.Warnf("Settlement call for attempt %s failed, err = %v", attempt.attemptId, outcome.err)
	} else {
		log.Warnf("Connector used no tokens for attempt %s", attempt.attemptId)
	}

	if err := h.registry.RestoreTransfer(attempt.attemptId); err != nil {
		// The compensating step itself failed. The intent row still holds the
		// record; the next start picks it up again.
		log.Errorf("Cannot reinstate transfer %s for attempt %s, err = %v",
			attempt.transferId, attempt.attemptId, err)
		result.Err = types.WithdrawalErrGeneric
		return
	}

	log.Infof("Transfer %s is reinstated for retry, attempt = %s", attempt.transferId,
		attempt.attemptId)

	result.Reinstated = true
	result.Err = types.WithdrawalErrRejected
}
