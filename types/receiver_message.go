package types

import (
	"encoding/json"
	"fmt"
)

// TxOut describes one output of the DCR transaction the connector will build.
type TxOut struct {
	// Amount in atoms.
	Value uint64 `json:"value"`

	// Script version.
	Version uint16 `json:"version"`

	// Script hex.
	PkScript string `json:"pk_script"`
}

// WithdrawRequest is the Withdraw variant payload of TokenReceiverMessage.
type WithdrawRequest struct {
	TargetDcrAddress string `json:"target_dcr_address"`

	// UTXOs being spent, "txid:vout" (same format as BTC).
	Input []string `json:"input"`

	// Outputs of the DCR tx.
	Output []TxOut `json:"output"`

	// Atoms per kB (DCR fee model). Nil when the caller asserts no ceiling.
	MaxFeeRate *U128 `json:"max_fee_rate"`
}

// TokenReceiverMessage is the instruction the connector receives alongside
// the token transfer. Exactly one variant field is non-nil. The JSON form is
// externally tagged the way the host ledger's serializer does it: the unit
// variant is the bare string "DepositProtocolFee", the Withdraw variant is
// {"Withdraw":{...}}.
type TokenReceiverMessage struct {
	DepositProtocolFee *DepositProtocolFee
	Withdraw           *WithdrawRequest
}

// DepositProtocolFee marks a transfer whose whole amount funds the protocol
// fee pool. It carries no payload.
type DepositProtocolFee struct{}

const depositProtocolFeeTag = "DepositProtocolFee"

func (m TokenReceiverMessage) MarshalJSON() ([]byte, error) {
	switch {
	case m.DepositProtocolFee != nil && m.Withdraw == nil:
		return json.Marshal(depositProtocolFeeTag)
	case m.Withdraw != nil && m.DepositProtocolFee == nil:
		return json.Marshal(map[string]*WithdrawRequest{"Withdraw": m.Withdraw})
	}

	return nil, fmt.Errorf("token receiver message must have exactly one variant set")
}

func (m *TokenReceiverMessage) UnmarshalJSON(bz []byte) error {
	trimmed := trimLeadingSpace(bz)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty token receiver message")
	}

	if trimmed[0] == '"' {
		var tag string
		if err := json.Unmarshal(bz, &tag); err != nil {
			return err
		}
		if tag != depositProtocolFeeTag {
			return fmt.Errorf("unknown token receiver message variant %q", tag)
		}

		*m = TokenReceiverMessage{DepositProtocolFee: &DepositProtocolFee{}}
		return nil
	}

	var variants map[string]json.RawMessage
	if err := json.Unmarshal(bz, &variants); err != nil {
		return err
	}
	if len(variants) != 1 {
		return fmt.Errorf("token receiver message must have exactly one variant, got %d", len(variants))
	}

	for tag, raw := range variants {
		if tag != "Withdraw" {
			return fmt.Errorf("unknown token receiver message variant %q", tag)
		}

		withdraw := &WithdrawRequest{}
		if err := json.Unmarshal(raw, withdraw); err != nil {
			return err
		}
		*m = TokenReceiverMessage{Withdraw: withdraw}
	}

	return nil
}

// ParseTokenReceiverMessage decodes the raw instruction string attached to a
// withdrawal call.
func ParseTokenReceiverMessage(s string) (*TokenReceiverMessage, error) {
	m := &TokenReceiverMessage{}
	if err := json.Unmarshal([]byte(s), m); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *TokenReceiverMessage) Encode() (string, error) {
	bz, err := json.Marshal(m)
	if err != nil {
		return "", err
	}

	return string(bz), nil
}

// UtxoChainMsg is extra metadata embedded inside TransferMessage.msg for UTXO
// chains (specific to DCR). It pre-commits the maximum fee rate agreed when
// the transfer was created; a later withdrawal must assert the same rate.
// JSON form: {"MaxFeeRate":"12345"}.
type UtxoChainMsg struct {
	// Maximum fee rate (atoms per kB).
	MaxFeeRate U64
}

func (m UtxoChainMsg) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]U64{"MaxFeeRate": m.MaxFeeRate})
}

func (m *UtxoChainMsg) UnmarshalJSON(bz []byte) error {
	var variants map[string]json.RawMessage
	if err := json.Unmarshal(bz, &variants); err != nil {
		return err
	}
	if len(variants) != 1 {
		return fmt.Errorf("utxo chain msg must have exactly one variant, got %d", len(variants))
	}

	for tag, raw := range variants {
		if tag != "MaxFeeRate" {
			return fmt.Errorf("unknown utxo chain msg variant %q", tag)
		}
		if err := json.Unmarshal(raw, &m.MaxFeeRate); err != nil {
			return err
		}
	}

	return nil
}

// ParseUtxoChainMsg decodes TransferMessage.msg. Callers must only invoke it
// for non-empty msg values.
func ParseUtxoChainMsg(s string) (*UtxoChainMsg, error) {
	m := &UtxoChainMsg{}
	if err := json.Unmarshal([]byte(s), m); err != nil {
		return nil, err
	}

	return m, nil
}

func trimLeadingSpace(bz []byte) []byte {
	for len(bz) > 0 {
		switch bz[0] {
		case ' ', '\t', '\r', '\n':
			bz = bz[1:]
		default:
			return bz
		}
	}

	return bz
}
