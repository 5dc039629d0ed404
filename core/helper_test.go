package core

import (
	"strings"
	"testing"
	"time"

	chaincfg "github.com/decred/dcrd/chaincfg/v3"
	"github.com/decred/dcrd/txscript/v4/stdaddr"
	"github.com/stretchr/testify/require"

	"github.com/sisu-network/drelay/client"
	"github.com/sisu-network/drelay/config"
	"github.com/sisu-network/drelay/dcr"
	"github.com/sisu-network/drelay/registry"
	"github.com/sisu-network/drelay/token"
	"github.com/sisu-network/drelay/types"
)

const (
	testDcrToken     = "wdcr.omni.near"
	testDcrConnector = "dcr-connector.omni.near"
	testCaller       = "relayer.near"
)

func testConfig() *config.Drelay {
	return &config.Drelay{
		InMemory: true,
		DcrNet:   "simnet",

		UtxoChains: map[string]config.UtxoChain{
			"dcr": {
				Chain:     "dcr",
				Token:     testDcrToken,
				Connector: testDcrConnector,
			},
		},
		Tokens: map[string]string{
			"eth:0x82af49447d8a07e3bd95bd0d56f35241523fbab1": "weth.omni.near",
		},

		DaoAccounts:          []string{"dao.omni.near"},
		UnrestrictedRelayers: []string{"unrestricted.near"},
	}
}

func testRegistry(t *testing.T, cfg *config.Drelay) registry.Registry {
	reg := registry.NewRegistry(cfg)
	require.Nil(t, reg.Init())
	t.Cleanup(func() { reg.Close() })

	return reg
}

func testValidator(t *testing.T, cfg *config.Drelay, reg registry.Registry) *Validator {
	params, err := dcr.NetParams(cfg.DcrNet)
	require.Nil(t, err)

	return NewValidator(reg, NewTokenStore(cfg), params)
}

func testRelay(t *testing.T, cfg *config.Drelay, reg registry.Registry,
	tokenClient token.Client, bridge client.Client) *Relay {
	if bridge == nil {
		bridge = &MockClient{}
	}

	relay, err := NewRelay(cfg, reg, NewTokenStore(cfg), tokenClient, bridge)
	require.Nil(t, err)
	relay.Start()

	return relay
}

// testDcrAddress derives a simnet address from the seed. Different seeds give
// different addresses.
func testDcrAddress(t *testing.T, seed byte) string {
	pkHash := make([]byte, 20)
	for i := range pkHash {
		pkHash[i] = seed + byte(i)
	}

	addr, err := stdaddr.NewAddressPubKeyHashEcdsaSecp256k1V0(pkHash, chaincfg.SimNetParams())
	require.Nil(t, err)

	return addr.String()
}

func testTransferRecord(nonce, amount, fee uint64, dcrAddress string) (types.TransferId, *types.TransferRecord) {
	id := types.TransferId{OriginChain: types.ChainKindEth, OriginNonce: nonce}
	record := &types.TransferRecord{
		Message: types.TransferMessage{
			OriginNonce:      nonce,
			Token:            "near:" + testDcrToken,
			Amount:           types.NewU128(amount),
			Recipient:        types.OmniAddress("dcr:" + dcrAddress),
			Fee:              types.Fee{Fee: types.NewU128(fee), NativeFee: types.NewU128(0)},
			Sender:           "near:sender.near",
			DestinationNonce: nonce + 1,
		},
		Owner: "owner.near",
	}

	return id, record
}

func testWithdrawMsg(t *testing.T, target string, maxFeeRate *types.U128) string {
	message := &types.TokenReceiverMessage{
		Withdraw: &types.WithdrawRequest{
			TargetDcrAddress: target,
			Input:            []string{strings.Repeat("ab", 32) + ":0"},
			Output: []types.TxOut{
				{Value: 990, Version: 0, PkScript: "76a914000000000000000000000000000000000000000088ac"},
			},
			MaxFeeRate: maxFeeRate,
		},
	}

	msg, err := message.Encode()
	require.Nil(t, err)

	return msg
}

func testSubmitRequest(id types.TransferId, msg string) *types.SubmitWithdrawalRequest {
	return &types.SubmitWithdrawalRequest{
		TransferId:  id,
		Msg:         msg,
		Caller:      testCaller,
		AttachedGas: FtTransferCallGas + SubmitTransferCallbackGas,
	}
}

func u128Ptr(v uint64) *types.U128 {
	u := types.NewU128(v)
	return &u
}

func waitResult(t *testing.T, pending *PendingWithdrawal) *types.WithdrawalResult {
	select {
	case result := <-pending.Result():
		return result
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the withdrawal result")
		return nil
	}
}

func requireSameRecord(t *testing.T, want, got *types.TransferRecord) {
	require.NotNil(t, got)
	require.True(t, want.Message.Equal(&got.Message))
	require.Equal(t, want.Owner, got.Owner)
}
