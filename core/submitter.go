package core

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/sisu-network/lib/log"
	"github.com/ybbus/jsonrpc/v3"

	"github.com/sisu-network/drelay/dcr"
	"github.com/sisu-network/drelay/registry"
	"github.com/sisu-network/drelay/token"
	"github.com/sisu-network/drelay/types"
)

const (
	// FtTransferCallGas is the gas share forwarded to the token contract for
	// the settlement call.
	FtTransferCallGas types.Tgas = 125

	// SubmitTransferCallbackGas runs the settlement callback once the token
	// call resolves. A submission must budget for both.
	SubmitTransferCallbackGas types.Tgas = 5

	// TokenCallTimeout bounds one token host round trip on the wire. A timed
	// out settlement call is not assumed dead; its fate is settled by status
	// queries.
	TokenCallTimeout = time.Minute

	// StatusRetryTime is how long to wait between status queries for an
	// attempt whose fate is not known yet.
	StatusRetryTime = 10 * time.Second
)

// errCallNotExecuted marks an attempt whose settlement call never reached the
// token host.
var errCallNotExecuted = errors.New("settlement call never reached the token host")

// PendingWithdrawal is the caller's handle on one submission attempt. The
// terminal result is delivered on Result exactly once, after the settlement
// callback has run.
type PendingWithdrawal struct {
	attemptId  string
	transferId types.TransferId
	resultCh   chan *types.WithdrawalResult
}

func newPendingWithdrawal(attemptId string, transferId types.TransferId) *PendingWithdrawal {
	return &PendingWithdrawal{
		attemptId:  attemptId,
		transferId: transferId,
		resultCh:   make(chan *types.WithdrawalResult, 1),
	}
}

func (p *PendingWithdrawal) AttemptId() string {
	return p.attemptId
}

func (p *PendingWithdrawal) TransferId() types.TransferId {
	return p.transferId
}

func (p *PendingWithdrawal) Result() <-chan *types.WithdrawalResult {
	return p.resultCh
}

func (p *PendingWithdrawal) deliver(result *types.WithdrawalResult) {
	select {
	case p.resultCh <- result:
	default:
	}
}

// settlementAttempt is the closure carried across the asynchronous boundary:
// everything the callback needs to pay the fee or restore the record.
type settlementAttempt struct {
	attemptId    string
	transferId   types.TransferId
	record       *types.TransferRecord
	feeRecipient types.AccountId
	tokenId      types.AccountId
	connector    types.AccountId
	netAmount    types.U128
	rawMsg       string

	// Nil for attempts recovered from the intent log.
	pending *PendingWithdrawal
}

// settlementOutcome is what the token host answered for one attempt.
type settlementOutcome struct {
	attempt *settlementAttempt
	used    types.U128
	err     error
}

// Submitter retires a validated transfer and dispatches the settlement call.
// The pending row is removed before the call goes out, so a second submission
// for the same transfer fails deterministically while settlement is in
// flight.
type Submitter struct {
	registry    registry.Registry
	tokens      TokenStore
	tokenClient token.Client
	outcomeCh   chan<- *settlementOutcome
}

func NewSubmitter(reg registry.Registry, tokens TokenStore, tokenClient token.Client,
	outcomeCh chan<- *settlementOutcome) *Submitter {
	return &Submitter{
		registry:    reg,
		tokens:      tokens,
		tokenClient: tokenClient,
		outcomeCh:   outcomeCh,
	}
}

// Submit claims the record and hands the transfer to the connector. All
// precondition failures happen before the claim, so they leave the registry
// untouched. The returned handle resolves once the settlement callback has
// run.
func (s *Submitter) Submit(req *types.SubmitWithdrawalRequest, record *types.TransferRecord,
	withdraw *types.WithdrawRequest) (*PendingWithdrawal, error) {
	if req.AttachedGas < FtTransferCallGas+SubmitTransferCallbackGas {
		return nil, types.ErrInsufficientGas
	}

	amount := record.Message.Amount.BigInt()
	tokenFee := record.Message.Fee.Fee.BigInt()
	if amount.Cmp(tokenFee) < 0 {
		return nil, types.ErrFeeExceedsAmount
	}

	netAmount, err := types.U128FromBig(new(big.Int).Sub(amount, tokenFee))
	if err != nil {
		return nil, err
	}

	tokenId, err := s.tokens.GetUtxoChainToken(types.ChainKindDcr)
	if err != nil {
		return nil, err
	}

	connector, err := s.tokens.GetUtxoChainConnector(types.ChainKindDcr)
	if err != nil {
		return nil, err
	}

	feeRecipient := req.FeeRecipient
	if feeRecipient == "" {
		feeRecipient = req.Caller
	}

	attemptId := uuid.NewString()

	// The atomicity boundary. After this the pending row is gone and the
	// settlement intent is durable; no other submission can observe this
	// transfer until the callback reinstates it.
	claimed, err := s.registry.RemoveTransferForSettlement(req.TransferId, attemptId, feeRecipient)
	if err != nil {
		return nil, err
	}

	attempt := &settlementAttempt{
		attemptId:    attemptId,
		transferId:   req.TransferId,
		record:       claimed,
		feeRecipient: feeRecipient,
		tokenId:      tokenId,
		connector:    connector,
		netAmount:    netAmount,
		rawMsg:       req.Msg,
		pending:      newPendingWithdrawal(attemptId, req.TransferId),
	}

	log.Infof("Submitting transfer %s to connector %s, attempt = %s, net amount = %s, target = %s, outputs = %s",
		req.TransferId, connector, attemptId, netAmount.String(), withdraw.TargetDcrAddress,
		dcr.TotalOutputValue(withdraw.Output))

	go s.dispatch(attempt)

	return attempt.pending, nil
}

func (s *Submitter) dispatch(attempt *settlementAttempt) {
	ctx, cancel := context.WithTimeout(context.Background(), TokenCallTimeout)
	used, err := s.tokenClient.FtTransferCall(ctx, attempt.tokenId, attempt.connector,
		attempt.netAmount, attempt.attemptId, attempt.rawMsg, FtTransferCallGas)
	cancel()

	if err != nil {
		if _, ok := err.(*jsonrpc.RPCError); !ok {
			// A transport failure says nothing about the call itself; it may
			// still have reached the host. Only the host can tell.
			log.Warnf("Settlement call for attempt %s did not resolve, err = %v", attempt.attemptId, err)
			s.outcomeCh <- s.settleByStatus(attempt)
			return
		}
	}

	s.outcomeCh <- &settlementOutcome{attempt: attempt, used: used, err: err}
}

// settleByStatus asks the token host what happened to an attempt until the
// answer is definite.
func (s *Submitter) settleByStatus(attempt *settlementAttempt) *settlementOutcome {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), TokenCallTimeout)
		status, err := s.tokenClient.FtTransferCallStatus(ctx, attempt.tokenId, attempt.attemptId)
		cancel()

		if err != nil {
			log.Warnf("Cannot query status of attempt %s, err = %v", attempt.attemptId, err)
			time.Sleep(StatusRetryTime)
			continue
		}

		switch status.Status {
		case token.CallStatusExecuted:
			return &settlementOutcome{attempt: attempt, used: status.UsedAmount}
		case token.CallStatusUnknown:
			return &settlementOutcome{attempt: attempt, err: errCallNotExecuted}
		default:
			time.Sleep(StatusRetryTime)
		}
	}
}
