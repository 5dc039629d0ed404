package core

import (
	"github.com/sisu-network/lib/log"
	"go.uber.org/atomic"

	"github.com/sisu-network/drelay/client"
	"github.com/sisu-network/drelay/config"
	"github.com/sisu-network/drelay/dcr"
	"github.com/sisu-network/drelay/registry"
	"github.com/sisu-network/drelay/token"
	"github.com/sisu-network/drelay/types"
)

const outcomeQueueSize = 1000

// Relay owns the withdrawal path for the DCR chain: validate the instruction,
// claim the record, dispatch the settlement call, settle the outcome.
// Outcomes flow through a channel only this package writes to, so the
// settlement callback cannot be invoked from outside.
type Relay struct {
	cfg      *config.Drelay
	registry registry.Registry
	tokens   TokenStore
	bridge   client.Client

	validator *Validator
	submitter *Submitter
	callback  *CallbackHandler

	outcomeCh chan *settlementOutcome
	paused    atomic.Bool
}

func NewRelay(cfg *config.Drelay, reg registry.Registry, tokens TokenStore,
	tokenClient token.Client, bridge client.Client) (*Relay, error) {
	params, err := dcr.NetParams(cfg.DcrNet)
	if err != nil {
		return nil, err
	}

	outcomeCh := make(chan *settlementOutcome, outcomeQueueSize)

	return &Relay{
		cfg:       cfg,
		registry:  reg,
		tokens:    tokens,
		bridge:    bridge,
		validator: NewValidator(reg, tokens, params),
		submitter: NewSubmitter(reg, tokens, tokenClient, outcomeCh),
		callback:  NewCallbackHandler(reg, tokenClient),
		outcomeCh: outcomeCh,
	}, nil
}

// Start launches the callback worker and resolves settlement intents left
// over from an earlier run. It must be called before the relay accepts
// submissions.
func (r *Relay) Start() {
	log.Info("Starting dcr withdrawal relay...")

	go r.listen()

	intents, err := r.registry.LoadSettlementIntents()
	if err != nil {
		panic(err)
	}

	for _, intent := range intents {
		log.Warnf("Found unresolved settlement intent for transfer %s, attempt = %s",
			intent.TransferId, intent.AttemptId)
		go r.recoverIntent(intent)
	}
}

func (r *Relay) listen() {
	for outcome := range r.outcomeCh {
		result := r.callback.Handle(outcome)
		if result == nil {
			continue
		}

		if outcome.attempt.pending != nil {
			outcome.attempt.pending.deliver(result)
		}

		if err := r.bridge.PostWithdrawalResult(result); err != nil {
			log.Errorf("Cannot post withdrawal result for attempt %s, err = %v",
				result.AttemptId, err)
		}
	}
}

// recoverIntent resolves an attempt that was in flight when an earlier run
// stopped. The token host is the only source of truth for what happened to
// it.
func (r *Relay) recoverIntent(intent *registry.SettlementIntent) {
	tokenId, err := r.tokens.GetUtxoChainToken(types.ChainKindDcr)
	if err != nil {
		// Leave the intent in place; the next start retries it.
		log.Errorf("Cannot recover attempt %s, err = %v", intent.AttemptId, err)
		return
	}

	attempt := &settlementAttempt{
		attemptId:    intent.AttemptId,
		transferId:   intent.TransferId,
		record:       intent.Record,
		feeRecipient: intent.FeeRecipient,
		tokenId:      tokenId,
	}

	r.outcomeCh <- r.submitter.settleByStatus(attempt)
}

// SubmitWithdrawal runs the synchronous half of a withdrawal: guards,
// validation and the claim that dispatches settlement. Any error leaves the
// registry untouched. The returned handle resolves once the settlement
// callback has run.
func (r *Relay) SubmitWithdrawal(req *types.SubmitWithdrawalRequest) (*PendingWithdrawal, error) {
	if err := r.checkSubmitAllowed(req.Caller); err != nil {
		return nil, err
	}

	if err := req.Caller.Validate(); err != nil {
		return nil, err
	}
	if req.FeeRecipient != "" {
		if err := req.FeeRecipient.Validate(); err != nil {
			return nil, err
		}
	}

	record, withdraw, err := r.validator.Validate(req)
	if err != nil {
		log.Warnf("Rejecting withdrawal for transfer %s, err = %v", req.TransferId, err)
		return nil, err
	}

	return r.submitter.Submit(req, record, withdraw)
}

// SetPaused stops or resumes submissions. Only DAO accounts may flip it.
func (r *Relay) SetPaused(caller types.AccountId, paused bool) error {
	if !containsAccount(r.cfg.DaoAccounts, caller) {
		return types.ErrUnauthorized
	}

	r.paused.Store(paused)
	log.Infof("Withdrawals paused = %v, set by %s", paused, caller)
	return nil
}

func (r *Relay) IsPaused() bool {
	return r.paused.Load()
}

// checkSubmitAllowed enforces the pause switch. DAO accounts and
// unrestricted relayers may keep submitting while paused.
func (r *Relay) checkSubmitAllowed(caller types.AccountId) error {
	if !r.paused.Load() {
		return nil
	}

	if containsAccount(r.cfg.DaoAccounts, caller) ||
		containsAccount(r.cfg.UnrestrictedRelayers, caller) {
		return nil
	}

	return types.ErrPaused
}

func containsAccount(accounts []string, account types.AccountId) bool {
	for _, a := range accounts {
		if types.AccountId(a) == account {
			return true
		}
	}

	return false
}
