package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ybbus/jsonrpc/v3"

	"github.com/sisu-network/drelay/token"
	"github.com/sisu-network/drelay/types"
)

func TestRelay_WithdrawalSettled(t *testing.T) {
	cfg := testConfig()
	reg := testRegistry(t, cfg)

	type settlementCall struct {
		token    types.AccountId
		receiver types.AccountId
		amount   types.U128
		memo     string
		msg      string
		gas      types.Tgas
	}
	type feePayment struct {
		token    types.AccountId
		receiver types.AccountId
		amount   types.U128
	}

	callCh := make(chan *settlementCall, 1)
	feeCh := make(chan *feePayment, 1)
	tokenClient := &token.MockClient{
		FtTransferCallFunc: func(ctx context.Context, tokenId, receiverId types.AccountId,
			amount types.U128, memo, msg string, gas types.Tgas) (types.U128, error) {
			callCh <- &settlementCall{tokenId, receiverId, amount, memo, msg, gas}
			return amount, nil
		},
		FtTransferFunc: func(ctx context.Context, tokenId, receiverId types.AccountId,
			amount types.U128, memo string) error {
			feeCh <- &feePayment{tokenId, receiverId, amount}
			return nil
		},
	}

	postedCh := make(chan *types.WithdrawalResult, 1)
	bridge := &MockClient{
		PostWithdrawalResultFunc: func(result *types.WithdrawalResult) error {
			postedCh <- result
			return nil
		},
	}

	relay := testRelay(t, cfg, reg, tokenClient, bridge)

	addr := testDcrAddress(t, 1)
	id, record := testTransferRecord(1, 1000, 10, addr)
	require.Nil(t, reg.InsertTransfer(id, record))

	msg := testWithdrawMsg(t, addr, nil)
	pending, err := relay.SubmitWithdrawal(testSubmitRequest(id, msg))
	require.Nil(t, err)

	result := waitResult(t, pending)
	require.True(t, result.Success)
	require.False(t, result.Reinstated)
	require.Equal(t, types.WithdrawalErrNil, result.Err)
	require.True(t, result.SettledAmount.EqualUint64(990))
	require.Equal(t, pending.AttemptId(), result.AttemptId)
	require.Equal(t, id, result.TransferId)

	// The connector got the net amount and the untouched instruction.
	call := <-callCh
	require.Equal(t, types.AccountId(testDcrToken), call.token)
	require.Equal(t, types.AccountId(testDcrConnector), call.receiver)
	require.True(t, call.amount.EqualUint64(990))
	require.Equal(t, pending.AttemptId(), call.memo)
	require.Equal(t, msg, call.msg)
	require.Equal(t, FtTransferCallGas, call.gas)

	// No fee recipient was named, so the caller collects the fee.
	fee := <-feeCh
	require.Equal(t, types.AccountId(testDcrToken), fee.token)
	require.Equal(t, types.AccountId(testCaller), fee.receiver)
	require.True(t, fee.amount.EqualUint64(10))

	// Terminal settlement leaves nothing behind.
	_, err = reg.GetTransfer(id)
	require.ErrorIs(t, err, types.ErrTransferNotFound)
	intents, err := reg.LoadSettlementIntents()
	require.Nil(t, err)
	require.Len(t, intents, 0)

	posted := <-postedCh
	require.Equal(t, result.AttemptId, posted.AttemptId)
	require.True(t, posted.Success)
}

func TestRelay_WithdrawalRejected(t *testing.T) {
	cfg := testConfig()
	reg := testRegistry(t, cfg)

	tokenClient := &token.MockClient{
		FtTransferCallFunc: func(ctx context.Context, tokenId, receiverId types.AccountId,
			amount types.U128, memo, msg string, gas types.Tgas) (types.U128, error) {
			return types.U128{}, &jsonrpc.RPCError{Code: -32000, Message: "transfer refused"}
		},
	}
	relay := testRelay(t, cfg, reg, tokenClient, nil)

	addr := testDcrAddress(t, 1)
	id, record := testTransferRecord(1, 1000, 10, addr)
	require.Nil(t, reg.InsertTransfer(id, record))

	pending, err := relay.SubmitWithdrawal(testSubmitRequest(id, testWithdrawMsg(t, addr, nil)))
	require.Nil(t, err)

	result := waitResult(t, pending)
	require.False(t, result.Success)
	require.True(t, result.Reinstated)
	require.Equal(t, types.WithdrawalErrRejected, result.Err)

	// The exact record is pending again and the intent is gone.
	restored, err := reg.GetTransfer(id)
	require.Nil(t, err)
	requireSameRecord(t, record, restored)

	intents, err := reg.LoadSettlementIntents()
	require.Nil(t, err)
	require.Len(t, intents, 0)
}

func TestRelay_ZeroUsedAmountReinstates(t *testing.T) {
	cfg := testConfig()
	reg := testRegistry(t, cfg)

	// The call executes but the connector keeps nothing.
	tokenClient := &token.MockClient{
		FtTransferCallFunc: func(ctx context.Context, tokenId, receiverId types.AccountId,
			amount types.U128, memo, msg string, gas types.Tgas) (types.U128, error) {
			return types.NewU128(0), nil
		},
	}
	relay := testRelay(t, cfg, reg, tokenClient, nil)

	addr := testDcrAddress(t, 1)
	id, record := testTransferRecord(1, 1000, 10, addr)
	require.Nil(t, reg.InsertTransfer(id, record))

	pending, err := relay.SubmitWithdrawal(testSubmitRequest(id, testWithdrawMsg(t, addr, nil)))
	require.Nil(t, err)

	result := waitResult(t, pending)
	require.True(t, result.Reinstated)
	require.Equal(t, types.WithdrawalErrRejected, result.Err)

	restored, err := reg.GetTransfer(id)
	require.Nil(t, err)
	requireSameRecord(t, record, restored)
}

func TestRelay_ExactlyOnce(t *testing.T) {
	cfg := testConfig()
	reg := testRegistry(t, cfg)

	release := make(chan struct{})
	tokenClient := &token.MockClient{
		FtTransferCallFunc: func(ctx context.Context, tokenId, receiverId types.AccountId,
			amount types.U128, memo, msg string, gas types.Tgas) (types.U128, error) {
			<-release
			return amount, nil
		},
	}
	relay := testRelay(t, cfg, reg, tokenClient, nil)

	addr := testDcrAddress(t, 1)
	id, record := testTransferRecord(1, 1000, 10, addr)
	require.Nil(t, reg.InsertTransfer(id, record))

	msg := testWithdrawMsg(t, addr, nil)
	pending, err := relay.SubmitWithdrawal(testSubmitRequest(id, msg))
	require.Nil(t, err)

	// While settlement is in flight the transfer cannot be claimed again.
	_, err = relay.SubmitWithdrawal(testSubmitRequest(id, msg))
	require.ErrorIs(t, err, types.ErrTransferNotFound)

	close(release)
	result := waitResult(t, pending)
	require.True(t, result.Success)

	// Nor after it settled.
	_, err = relay.SubmitWithdrawal(testSubmitRequest(id, msg))
	require.ErrorIs(t, err, types.ErrTransferNotFound)
}

func TestRelay_TransportFailureResolvedByStatus(t *testing.T) {
	cfg := testConfig()
	reg := testRegistry(t, cfg)

	// The wire dies but the host did execute the call. The status poll finds
	// out and the withdrawal settles instead of being double-dispatched.
	tokenClient := &token.MockClient{
		FtTransferCallFunc: func(ctx context.Context, tokenId, receiverId types.AccountId,
			amount types.U128, memo, msg string, gas types.Tgas) (types.U128, error) {
			return types.U128{}, errors.New("connection reset")
		},
		FtTransferCallStatusFunc: func(ctx context.Context, tokenId types.AccountId,
			memo string) (*token.TransferCallStatus, error) {
			return &token.TransferCallStatus{
				Status:     token.CallStatusExecuted,
				UsedAmount: types.NewU128(990),
			}, nil
		},
	}
	relay := testRelay(t, cfg, reg, tokenClient, nil)

	addr := testDcrAddress(t, 1)
	id, record := testTransferRecord(1, 1000, 10, addr)
	require.Nil(t, reg.InsertTransfer(id, record))

	pending, err := relay.SubmitWithdrawal(testSubmitRequest(id, testWithdrawMsg(t, addr, nil)))
	require.Nil(t, err)

	result := waitResult(t, pending)
	require.True(t, result.Success)
	require.True(t, result.SettledAmount.EqualUint64(990))
}

func TestRelay_TransportFailureCallNeverArrived(t *testing.T) {
	cfg := testConfig()
	reg := testRegistry(t, cfg)

	tokenClient := &token.MockClient{
		FtTransferCallFunc: func(ctx context.Context, tokenId, receiverId types.AccountId,
			amount types.U128, memo, msg string, gas types.Tgas) (types.U128, error) {
			return types.U128{}, errors.New("connection reset")
		},
		// The default status answer is unknown: the host never saw the call.
	}
	relay := testRelay(t, cfg, reg, tokenClient, nil)

	addr := testDcrAddress(t, 1)
	id, record := testTransferRecord(1, 1000, 10, addr)
	require.Nil(t, reg.InsertTransfer(id, record))

	pending, err := relay.SubmitWithdrawal(testSubmitRequest(id, testWithdrawMsg(t, addr, nil)))
	require.Nil(t, err)

	result := waitResult(t, pending)
	require.True(t, result.Reinstated)

	restored, err := reg.GetTransfer(id)
	require.Nil(t, err)
	requireSameRecord(t, record, restored)
}

func TestRelay_InsufficientGas(t *testing.T) {
	cfg := testConfig()
	reg := testRegistry(t, cfg)
	relay := testRelay(t, cfg, reg, &token.MockClient{}, nil)

	addr := testDcrAddress(t, 1)
	id, record := testTransferRecord(1, 1000, 10, addr)
	require.Nil(t, reg.InsertTransfer(id, record))

	req := testSubmitRequest(id, testWithdrawMsg(t, addr, nil))
	req.AttachedGas = FtTransferCallGas + SubmitTransferCallbackGas - 1
	_, err := relay.SubmitWithdrawal(req)
	require.ErrorIs(t, err, types.ErrInsufficientGas)

	// Nothing was claimed.
	_, err = reg.GetTransfer(id)
	require.Nil(t, err)
}

func TestRelay_FeeExceedsAmount(t *testing.T) {
	cfg := testConfig()
	reg := testRegistry(t, cfg)
	relay := testRelay(t, cfg, reg, &token.MockClient{}, nil)

	addr := testDcrAddress(t, 1)

	id, record := testTransferRecord(1, 5, 10, addr)
	require.Nil(t, reg.InsertTransfer(id, record))

	_, err := relay.SubmitWithdrawal(testSubmitRequest(id, testWithdrawMsg(t, addr, nil)))
	require.ErrorIs(t, err, types.ErrFeeExceedsAmount)
	_, err = reg.GetTransfer(id)
	require.Nil(t, err)

	// Fee equal to the amount is fine; the connector just gets zero tokens
	// and the default mock answer reinstates the record.
	id2, record2 := testTransferRecord(2, 10, 10, addr)
	require.Nil(t, reg.InsertTransfer(id2, record2))

	pending, err := relay.SubmitWithdrawal(testSubmitRequest(id2, testWithdrawMsg(t, addr, nil)))
	require.Nil(t, err)
	result := waitResult(t, pending)
	require.True(t, result.Reinstated)
}

func TestRelay_ConnectorLookupFailure(t *testing.T) {
	cfg := testConfig()
	reg := testRegistry(t, cfg)

	tokens := &MockTokenStore{
		GetUtxoChainTokenFunc: func(kind types.ChainKind) (types.AccountId, error) {
			return testDcrToken, nil
		},
		GetUtxoChainConnectorFunc: func(kind types.ChainKind) (types.AccountId, error) {
			return "", errors.New("connector is not configured")
		},
		GetTokenIdFunc: func(token types.OmniAddress) (types.AccountId, error) {
			return testDcrToken, nil
		},
	}

	relay, err := NewRelay(cfg, reg, tokens, &token.MockClient{}, &MockClient{})
	require.Nil(t, err)
	relay.Start()

	addr := testDcrAddress(t, 1)
	id, record := testTransferRecord(1, 1000, 10, addr)
	require.Nil(t, reg.InsertTransfer(id, record))

	_, err = relay.SubmitWithdrawal(testSubmitRequest(id, testWithdrawMsg(t, addr, nil)))
	require.NotNil(t, err)

	// The lookup failed before the claim.
	_, err = reg.GetTransfer(id)
	require.Nil(t, err)
}

func TestRelay_PausedAndRoles(t *testing.T) {
	cfg := testConfig()
	reg := testRegistry(t, cfg)

	tokenClient := &token.MockClient{
		FtTransferCallFunc: func(ctx context.Context, tokenId, receiverId types.AccountId,
			amount types.U128, memo, msg string, gas types.Tgas) (types.U128, error) {
			return amount, nil
		},
	}
	relay := testRelay(t, cfg, reg, tokenClient, nil)

	addr := testDcrAddress(t, 1)
	insert := func(nonce uint64) (types.TransferId, string) {
		id, record := testTransferRecord(nonce, 1000, 10, addr)
		require.Nil(t, reg.InsertTransfer(id, record))
		return id, testWithdrawMsg(t, addr, nil)
	}

	require.ErrorIs(t, relay.SetPaused("stranger.near", true), types.ErrUnauthorized)
	require.False(t, relay.IsPaused())

	require.Nil(t, relay.SetPaused("dao.omni.near", true))
	require.True(t, relay.IsPaused())

	// Regular relayers are refused while paused and nothing is claimed.
	id1, msg1 := insert(1)
	_, err := relay.SubmitWithdrawal(testSubmitRequest(id1, msg1))
	require.ErrorIs(t, err, types.ErrPaused)
	_, err = reg.GetTransfer(id1)
	require.Nil(t, err)

	// Unrestricted relayers and DAO accounts keep working.
	id2, msg2 := insert(2)
	req2 := testSubmitRequest(id2, msg2)
	req2.Caller = "unrestricted.near"
	pending2, err := relay.SubmitWithdrawal(req2)
	require.Nil(t, err)
	require.True(t, waitResult(t, pending2).Success)

	id3, msg3 := insert(3)
	req3 := testSubmitRequest(id3, msg3)
	req3.Caller = "dao.omni.near"
	pending3, err := relay.SubmitWithdrawal(req3)
	require.Nil(t, err)
	require.True(t, waitResult(t, pending3).Success)

	// Unpausing restores everyone.
	require.Nil(t, relay.SetPaused("dao.omni.near", false))
	pending1, err := relay.SubmitWithdrawal(testSubmitRequest(id1, msg1))
	require.Nil(t, err)
	require.True(t, waitResult(t, pending1).Success)
}

func TestRelay_InvalidAccounts(t *testing.T) {
	cfg := testConfig()
	reg := testRegistry(t, cfg)
	relay := testRelay(t, cfg, reg, &token.MockClient{}, nil)

	addr := testDcrAddress(t, 1)
	id, record := testTransferRecord(1, 1000, 10, addr)
	require.Nil(t, reg.InsertTransfer(id, record))
	msg := testWithdrawMsg(t, addr, nil)

	req := testSubmitRequest(id, msg)
	req.Caller = "Invalid"
	_, err := relay.SubmitWithdrawal(req)
	require.NotNil(t, err)

	req = testSubmitRequest(id, msg)
	req.FeeRecipient = "x"
	_, err = relay.SubmitWithdrawal(req)
	require.NotNil(t, err)

	_, err = reg.GetTransfer(id)
	require.Nil(t, err)
}

func TestRelay_ExplicitFeeRecipient(t *testing.T) {
	cfg := testConfig()
	reg := testRegistry(t, cfg)

	feeCh := make(chan types.AccountId, 1)
	tokenClient := &token.MockClient{
		FtTransferCallFunc: func(ctx context.Context, tokenId, receiverId types.AccountId,
			amount types.U128, memo, msg string, gas types.Tgas) (types.U128, error) {
			return amount, nil
		},
		FtTransferFunc: func(ctx context.Context, tokenId, receiverId types.AccountId,
			amount types.U128, memo string) error {
			feeCh <- receiverId
			return nil
		},
	}
	relay := testRelay(t, cfg, reg, tokenClient, nil)

	addr := testDcrAddress(t, 1)
	id, record := testTransferRecord(1, 1000, 10, addr)
	require.Nil(t, reg.InsertTransfer(id, record))

	req := testSubmitRequest(id, testWithdrawMsg(t, addr, nil))
	req.FeeRecipient = "collector.near"
	pending, err := relay.SubmitWithdrawal(req)
	require.Nil(t, err)

	require.True(t, waitResult(t, pending).Success)
	require.Equal(t, types.AccountId("collector.near"), <-feeCh)
}

func TestRelay_ZeroFeeSkipsPayout(t *testing.T) {
	cfg := testConfig()
	reg := testRegistry(t, cfg)

	feeCh := make(chan struct{}, 1)
	tokenClient := &token.MockClient{
		FtTransferCallFunc: func(ctx context.Context, tokenId, receiverId types.AccountId,
			amount types.U128, memo, msg string, gas types.Tgas) (types.U128, error) {
			return amount, nil
		},
		FtTransferFunc: func(ctx context.Context, tokenId, receiverId types.AccountId,
			amount types.U128, memo string) error {
			feeCh <- struct{}{}
			return nil
		},
	}
	relay := testRelay(t, cfg, reg, tokenClient, nil)

	addr := testDcrAddress(t, 1)
	id, record := testTransferRecord(1, 1000, 0, addr)
	require.Nil(t, reg.InsertTransfer(id, record))

	pending, err := relay.SubmitWithdrawal(testSubmitRequest(id, testWithdrawMsg(t, addr, nil)))
	require.Nil(t, err)

	result := waitResult(t, pending)
	require.True(t, result.Success)
	require.True(t, result.SettledAmount.EqualUint64(1000))

	select {
	case <-feeCh:
		t.Fatal("no fee payout should happen for a zero fee")
	default:
	}
}

func TestRelay_RecoversLeftoverIntents(t *testing.T) {
	cfg := testConfig()
	reg := testRegistry(t, cfg)

	addr := testDcrAddress(t, 1)
	id1, record1 := testTransferRecord(1, 1000, 10, addr)
	id2, record2 := testTransferRecord(2, 2000, 10, addr)
	require.Nil(t, reg.InsertTransfer(id1, record1))
	require.Nil(t, reg.InsertTransfer(id2, record2))

	// A previous run claimed both and died before settling them.
	_, err := reg.RemoveTransferForSettlement(id1, "attempt-1", "fee-a.near")
	require.Nil(t, err)
	_, err = reg.RemoveTransferForSettlement(id2, "attempt-2", "fee-b.near")
	require.Nil(t, err)

	feeCh := make(chan types.AccountId, 1)
	tokenClient := &token.MockClient{
		FtTransferCallStatusFunc: func(ctx context.Context, tokenId types.AccountId,
			memo string) (*token.TransferCallStatus, error) {
			if memo == "attempt-1" {
				return &token.TransferCallStatus{
					Status:     token.CallStatusExecuted,
					UsedAmount: types.NewU128(990),
				}, nil
			}
			return &token.TransferCallStatus{Status: token.CallStatusUnknown}, nil
		},
		FtTransferFunc: func(ctx context.Context, tokenId, receiverId types.AccountId,
			amount types.U128, memo string) error {
			feeCh <- receiverId
			return nil
		},
	}

	postedCh := make(chan *types.WithdrawalResult, 2)
	bridge := &MockClient{
		PostWithdrawalResultFunc: func(result *types.WithdrawalResult) error {
			postedCh <- result
			return nil
		},
	}

	testRelay(t, cfg, reg, tokenClient, bridge)

	results := map[string]*types.WithdrawalResult{}
	for i := 0; i < 2; i++ {
		select {
		case result := <-postedCh:
			results[result.AttemptId] = result
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for recovered attempts to resolve")
		}
	}

	// The host executed attempt-1, so it settles and the recorded recipient
	// collects the fee.
	require.True(t, results["attempt-1"].Success)
	require.True(t, results["attempt-1"].SettledAmount.EqualUint64(990))
	require.Equal(t, types.AccountId("fee-a.near"), <-feeCh)
	_, err = reg.GetTransfer(id1)
	require.ErrorIs(t, err, types.ErrTransferNotFound)

	// The host never saw attempt-2, so its record is reinstated untouched.
	require.True(t, results["attempt-2"].Reinstated)
	restored, err := reg.GetTransfer(id2)
	require.Nil(t, err)
	requireSameRecord(t, record2, restored)

	intents, err := reg.LoadSettlementIntents()
	require.Nil(t, err)
	require.Len(t, intents, 0)
}
