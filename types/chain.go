package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ChainKind identifies the external ledger a transfer targets. The relay only
// serves one kind (Dcr) but records may reference any of them.
type ChainKind uint8

const (
	ChainKindEth ChainKind = iota
	ChainKindNear
	ChainKindSol
	ChainKindArb
	ChainKindBase
	ChainKindBtc
	ChainKindDcr
)

func (c ChainKind) String() string {
	switch c {
	case ChainKindEth:
		return "Eth"
	case ChainKindNear:
		return "Near"
	case ChainKindSol:
		return "Sol"
	case ChainKindArb:
		return "Arb"
	case ChainKindBase:
		return "Base"
	case ChainKindBtc:
		return "Btc"
	case ChainKindDcr:
		return "Dcr"
	default:
		return fmt.Sprintf("ChainKind(%d)", uint8(c))
	}
}

func ChainKindFromString(s string) (ChainKind, error) {
	switch strings.ToLower(s) {
	case "eth":
		return ChainKindEth, nil
	case "near":
		return ChainKindNear, nil
	case "sol":
		return ChainKindSol, nil
	case "arb":
		return ChainKindArb, nil
	case "base":
		return ChainKindBase, nil
	case "btc":
		return ChainKindBtc, nil
	case "dcr":
		return ChainKindDcr, nil
	}

	return 0, fmt.Errorf("unknown chain kind %q", s)
}

// IsUtxoChain reports whether the chain uses the UTXO model. Only transfers
// to these chains carry a plain string address in their recipient.
func (c ChainKind) IsUtxoChain() bool {
	return c == ChainKindBtc || c == ChainKindDcr
}

func (c ChainKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ChainKind) UnmarshalJSON(bz []byte) error {
	var s string
	if err := json.Unmarshal(bz, &s); err != nil {
		return err
	}

	kind, err := ChainKindFromString(s)
	if err != nil {
		return err
	}

	*c = kind
	return nil
}
