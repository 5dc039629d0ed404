package token

import (
	"context"

	"github.com/sisu-network/drelay/types"
)

type MockClient struct {
	FtTransferCallFunc func(ctx context.Context, token, receiverId types.AccountId, amount types.U128,
		memo string, msg string, gas types.Tgas) (types.U128, error)
	FtTransferFunc func(ctx context.Context, token, receiverId types.AccountId, amount types.U128,
		memo string) error
	FtTransferCallStatusFunc func(ctx context.Context, token types.AccountId, memo string) (*TransferCallStatus, error)
}

func (c *MockClient) FtTransferCall(ctx context.Context, token, receiverId types.AccountId,
	amount types.U128, memo string, msg string, gas types.Tgas) (types.U128, error) {
	if c.FtTransferCallFunc != nil {
		return c.FtTransferCallFunc(ctx, token, receiverId, amount, memo, msg, gas)
	}

	return types.U128{}, nil
}

func (c *MockClient) FtTransfer(ctx context.Context, token, receiverId types.AccountId,
	amount types.U128, memo string) error {
	if c.FtTransferFunc != nil {
		return c.FtTransferFunc(ctx, token, receiverId, amount, memo)
	}

	return nil
}

func (c *MockClient) FtTransferCallStatus(ctx context.Context, token types.AccountId,
	memo string) (*TransferCallStatus, error) {
	if c.FtTransferCallStatusFunc != nil {
		return c.FtTransferCallStatusFunc(ctx, token, memo)
	}

	return &TransferCallStatus{Status: CallStatusUnknown}, nil
}
