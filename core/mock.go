package core

import "github.com/sisu-network/drelay/types"

type MockClient struct {
	TryDialFunc              func()
	GetVersionFunc           func() (string, error)
	PostWithdrawalResultFunc func(result *types.WithdrawalResult) error
}

func (c *MockClient) TryDial() {
	if c.TryDialFunc != nil {
		c.TryDialFunc()
	}
}

func (c *MockClient) GetVersion() (string, error) {
	if c.GetVersionFunc != nil {
		return c.GetVersionFunc()
	}

	return "", nil
}

func (c *MockClient) PostWithdrawalResult(result *types.WithdrawalResult) error {
	if c.PostWithdrawalResultFunc != nil {
		return c.PostWithdrawalResultFunc(result)
	}

	return nil
}

type MockTokenStore struct {
	GetUtxoChainTokenFunc     func(kind types.ChainKind) (types.AccountId, error)
	GetUtxoChainConnectorFunc func(kind types.ChainKind) (types.AccountId, error)
	GetTokenIdFunc            func(token types.OmniAddress) (types.AccountId, error)
}

func (s *MockTokenStore) GetUtxoChainToken(kind types.ChainKind) (types.AccountId, error) {
	if s.GetUtxoChainTokenFunc != nil {
		return s.GetUtxoChainTokenFunc(kind)
	}

	return "", nil
}

func (s *MockTokenStore) GetUtxoChainConnector(kind types.ChainKind) (types.AccountId, error) {
	if s.GetUtxoChainConnectorFunc != nil {
		return s.GetUtxoChainConnectorFunc(kind)
	}

	return "", nil
}

func (s *MockTokenStore) GetTokenId(token types.OmniAddress) (types.AccountId, error) {
	if s.GetTokenIdFunc != nil {
		return s.GetTokenIdFunc(token)
	}

	return "", nil
}
