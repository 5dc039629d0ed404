package token

import (
	"context"
	"fmt"

	"github.com/sisu-network/lib/log"
	"github.com/ybbus/jsonrpc/v3"

	"github.com/sisu-network/drelay/types"
)

// OneYocto is the deposit attached to every transfer call. NEP-141 requires
// exactly one yocto to prove the caller signed with a full-access key.
const OneYocto = "1"

// CallStatus is the host's answer when asked about an earlier transfer call,
// identified by its memo.
type CallStatus int

const (
	// CallStatusUnknown means the host has no record of the call. It never
	// executed.
	CallStatusUnknown CallStatus = iota

	// CallStatusPending means the call was received but has not been
	// finalized yet.
	CallStatusPending

	// CallStatusExecuted means the call finished. UsedAmount tells how many
	// tokens the receiving contract kept; zero means it refused the transfer.
	CallStatusExecuted
)

func (s CallStatus) String() string {
	switch s {
	case CallStatusUnknown:
		return "unknown"
	case CallStatusPending:
		return "pending"
	case CallStatusExecuted:
		return "executed"
	default:
		return fmt.Sprintf("CallStatus(%d)", int(s))
	}
}

type TransferCallStatus struct {
	Status     CallStatus
	UsedAmount types.U128
	ReceiptId  string
}

// Client talks to the token host that owns the NEP-141 contracts on the
// bridge's home ledger.
type Client interface {
	// FtTransferCall moves amount tokens of token to receiverId and hands msg
	// to the receiver's transfer hook. The returned value is the amount the
	// receiver actually kept.
	FtTransferCall(ctx context.Context, token, receiverId types.AccountId, amount types.U128,
		memo string, msg string, gas types.Tgas) (types.U128, error)

	// FtTransfer moves amount tokens of token to receiverId without invoking
	// any hook on the receiving side.
	FtTransfer(ctx context.Context, token, receiverId types.AccountId, amount types.U128,
		memo string) error

	// FtTransferCallStatus asks the host what happened to an earlier
	// FtTransferCall carrying the given memo.
	FtTransferCallStatus(ctx context.Context, token types.AccountId, memo string) (*TransferCallStatus, error)
}

type DefaultClient struct {
	client jsonrpc.RPCClient
	url    string
}

func NewClient(url string) Client {
	return &DefaultClient{
		url:    url,
		client: jsonrpc.NewClient(url),
	}
}

type ftTransferCallParams struct {
	Token           types.AccountId `json:"token"`
	ReceiverId      types.AccountId `json:"receiver_id"`
	Amount          types.U128      `json:"amount"`
	Memo            string          `json:"memo"`
	Msg             string          `json:"msg"`
	AttachedDeposit string          `json:"attached_deposit"`
	AttachedGas     types.Tgas      `json:"attached_gas"`
}

type ftTransferCallResult struct {
	UsedAmount types.U128 `json:"used_amount"`
	ReceiptId  string     `json:"receipt_id"`
}

func (c *DefaultClient) FtTransferCall(ctx context.Context, token, receiverId types.AccountId,
	amount types.U128, memo string, msg string, gas types.Tgas) (types.U128, error) {
	params := &ftTransferCallParams{
		Token:           token,
		ReceiverId:      receiverId,
		Amount:          amount,
		Memo:            memo,
		Msg:             msg,
		AttachedDeposit: OneYocto,
		AttachedGas:     gas,
	}

	res, err := c.client.Call(ctx, "ft_transfer_call", params)
	if err != nil {
		return types.U128{}, err
	}
	if res.Error != nil {
		return types.U128{}, res.Error
	}

	result := new(ftTransferCallResult)
	if err := res.GetObject(result); err != nil {
		return types.U128{}, err
	}

	if err := CheckReceiptId(result.ReceiptId); err != nil {
		log.Warn("Token host returned a malformed receipt id, err = ", err)
	}

	return result.UsedAmount, nil
}

type ftTransferParams struct {
	Token           types.AccountId `json:"token"`
	ReceiverId      types.AccountId `json:"receiver_id"`
	Amount          types.U128      `json:"amount"`
	Memo            string          `json:"memo"`
	AttachedDeposit string          `json:"attached_deposit"`
}

type ftTransferResult struct {
	ReceiptId string `json:"receipt_id"`
}

func (c *DefaultClient) FtTransfer(ctx context.Context, token, receiverId types.AccountId,
	amount types.U128, memo string) error {
	params := &ftTransferParams{
		Token:           token,
		ReceiverId:      receiverId,
		Amount:          amount,
		Memo:            memo,
		AttachedDeposit: OneYocto,
	}

	res, err := c.client.Call(ctx, "ft_transfer", params)
	if err != nil {
		return err
	}
	if res.Error != nil {
		return res.Error
	}

	result := new(ftTransferResult)
	if err := res.GetObject(result); err != nil {
		return err
	}

	if err := CheckReceiptId(result.ReceiptId); err != nil {
		log.Warn("Token host returned a malformed receipt id, err = ", err)
	}

	return nil
}

type transferCallStatusParams struct {
	Token types.AccountId `json:"token"`
	Memo  string          `json:"memo"`
}

type transferCallStatusResult struct {
	Status     string     `json:"status"`
	UsedAmount types.U128 `json:"used_amount"`
	ReceiptId  string     `json:"receipt_id"`
}

func (c *DefaultClient) FtTransferCallStatus(ctx context.Context, token types.AccountId,
	memo string) (*TransferCallStatus, error) {
	params := &transferCallStatusParams{
		Token: token,
		Memo:  memo,
	}

	res, err := c.client.Call(ctx, "ft_transfer_call_status", params)
	if err != nil {
		return nil, err
	}
	if res.Error != nil {
		return nil, res.Error
	}

	result := new(transferCallStatusResult)
	if err := res.GetObject(result); err != nil {
		return nil, err
	}

	status := &TransferCallStatus{
		UsedAmount: result.UsedAmount,
		ReceiptId:  result.ReceiptId,
	}

	switch result.Status {
	case "unknown":
		status.Status = CallStatusUnknown
	case "pending":
		status.Status = CallStatusPending
	case "executed":
		status.Status = CallStatusExecuted
	default:
		return nil, fmt.Errorf("token host returned unknown call status %q", result.Status)
	}

	return status, nil
}
