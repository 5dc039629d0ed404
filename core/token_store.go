package core

import (
	"fmt"
	"strings"

	"github.com/sisu-network/drelay/config"
	"github.com/sisu-network/drelay/types"
)

// TokenStore resolves the host-ledger accounts this relay talks to: the
// NEP-141 contract wrapping a UTXO chain's coin, the connector that builds
// the native transaction, and the contract behind any token omni address.
type TokenStore interface {
	GetUtxoChainToken(kind types.ChainKind) (types.AccountId, error)
	GetUtxoChainConnector(kind types.ChainKind) (types.AccountId, error)
	GetTokenId(token types.OmniAddress) (types.AccountId, error)
}

type ConfigTokenStore struct {
	cfg *config.Drelay
}

func NewTokenStore(cfg *config.Drelay) TokenStore {
	return &ConfigTokenStore{
		cfg: cfg,
	}
}

func (s *ConfigTokenStore) utxoChain(kind types.ChainKind) (*config.UtxoChain, error) {
	chain, ok := s.cfg.UtxoChains[strings.ToLower(kind.String())]
	if !ok {
		return nil, fmt.Errorf("no utxo chain configured for %s", kind)
	}

	return &chain, nil
}

func (s *ConfigTokenStore) GetUtxoChainToken(kind types.ChainKind) (types.AccountId, error) {
	chain, err := s.utxoChain(kind)
	if err != nil {
		return "", err
	}

	if chain.Token == "" {
		return "", fmt.Errorf("no token account configured for %s", kind)
	}

	return types.AccountId(chain.Token), nil
}

func (s *ConfigTokenStore) GetUtxoChainConnector(kind types.ChainKind) (types.AccountId, error) {
	chain, err := s.utxoChain(kind)
	if err != nil {
		return "", err
	}

	if chain.Connector == "" {
		return "", fmt.Errorf("no connector account configured for %s", kind)
	}

	return types.AccountId(chain.Connector), nil
}

func (s *ConfigTokenStore) GetTokenId(token types.OmniAddress) (types.AccountId, error) {
	if id, ok := s.cfg.Tokens[string(token)]; ok {
		return types.AccountId(id), nil
	}

	// A host-ledger token is its own NEP-141 contract.
	if account, ok := token.GetNearAccount(); ok {
		return account, nil
	}

	return "", fmt.Errorf("token %s is not registered", token)
}
