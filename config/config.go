package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// UtxoChain holds the NEAR-side accounts serving one UTXO chain: the
// bridged token contract and the connector that builds the native tx.
type UtxoChain struct {
	Chain     string `toml:"chain"`
	Token     string `toml:"token"`
	Connector string `toml:"connector"`
}

type Drelay struct {
	DbHost     string `toml:"db_host"`
	DbPort     int    `toml:"db_port"`
	DbUsername string `toml:"db_username"`
	DbPassword string `toml:"db_password"`
	DbSchema   string `toml:"db_schema"`
	InMemory   bool   `toml:"in_memory"`

	ServerPort      int    `toml:"server_port"`
	BridgeServerUrl string `toml:"bridge_server_url"`
	TokenRpcUrl     string `toml:"token_rpc_url"`

	// DcrNet selects the Decred network withdrawal addresses are checked
	// against: mainnet, testnet3, simnet or regnet.
	DcrNet string `toml:"dcr_net"`

	UtxoChains map[string]UtxoChain `toml:"utxo_chains"`

	// Tokens maps a token's omni address to its NEP-141 account id.
	Tokens map[string]string `toml:"tokens"`

	DaoAccounts          []string `toml:"dao_accounts"`
	UnrestrictedRelayers []string `toml:"unrestricted_relayers"`
}

func Load(path string) (*Drelay, error) {
	cfg := new(Drelay)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %v", path, err)
	}

	// The db password is not kept in the config file in production.
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DbPassword = password
	}

	if cfg.DcrNet == "" {
		cfg.DcrNet = "mainnet"
	}

	return cfg, nil
}
