package registry

import "github.com/sisu-network/drelay/types"

type MockRegistry struct {
	InitFunc                        func() error
	CloseFunc                       func() error
	GetTransferFunc                 func(id types.TransferId) (*types.TransferRecord, error)
	InsertTransferFunc              func(id types.TransferId, record *types.TransferRecord) error
	RemoveTransferForSettlementFunc func(id types.TransferId, attemptId string, feeRecipient types.AccountId) (*types.TransferRecord, error)
	RestoreTransferFunc             func(attemptId string) error
	FinishSettlementFunc            func(attemptId string) error
	LoadSettlementIntentsFunc       func() ([]*SettlementIntent, error)
}

func (mock *MockRegistry) Init() error {
	if mock.InitFunc != nil {
		return mock.InitFunc()
	}

	return nil
}

func (mock *MockRegistry) Close() error {
	if mock.CloseFunc != nil {
		return mock.CloseFunc()
	}

	return nil
}

func (mock *MockRegistry) GetTransfer(id types.TransferId) (*types.TransferRecord, error) {
	if mock.GetTransferFunc != nil {
		return mock.GetTransferFunc(id)
	}

	return nil, types.ErrTransferNotFound
}

func (mock *MockRegistry) InsertTransfer(id types.TransferId, record *types.TransferRecord) error {
	if mock.InsertTransferFunc != nil {
		return mock.InsertTransferFunc(id, record)
	}

	return nil
}

func (mock *MockRegistry) RemoveTransferForSettlement(id types.TransferId, attemptId string,
	feeRecipient types.AccountId) (*types.TransferRecord, error) {
	if mock.RemoveTransferForSettlementFunc != nil {
		return mock.RemoveTransferForSettlementFunc(id, attemptId, feeRecipient)
	}

	return nil, types.ErrTransferNotFound
}

func (mock *MockRegistry) RestoreTransfer(attemptId string) error {
	if mock.RestoreTransferFunc != nil {
		return mock.RestoreTransferFunc(attemptId)
	}

	return nil
}

func (mock *MockRegistry) FinishSettlement(attemptId string) error {
	if mock.FinishSettlementFunc != nil {
		return mock.FinishSettlementFunc(attemptId)
	}

	return nil
}

func (mock *MockRegistry) LoadSettlementIntents() ([]*SettlementIntent, error) {
	if mock.LoadSettlementIntentsFunc != nil {
		return mock.LoadSettlementIntentsFunc()
	}

	return []*SettlementIntent{}, nil
}
