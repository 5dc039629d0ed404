package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// OmniAddress is a chain-tagged address, "<chain>:<payload>". The prefix is
// the lowercase chain kind, e.g. "near:alice.near", "eth:0xabc...",
// "dcr:DsXyz...".
type OmniAddress string

func NewOmniAddress(chain ChainKind, payload string) OmniAddress {
	return OmniAddress(strings.ToLower(chain.String()) + ":" + payload)
}

func (a OmniAddress) split() (string, string, bool) {
	s := string(a)
	idx := strings.Index(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return "", "", false
	}

	return s[:idx], s[idx+1:], true
}

// GetChain returns the chain kind encoded in the address prefix.
func (a OmniAddress) GetChain() (ChainKind, error) {
	prefix, _, ok := a.split()
	if !ok {
		return 0, fmt.Errorf("omni address %q has no chain prefix", a)
	}

	return ChainKindFromString(prefix)
}

// GetUtxoAddress returns the raw chain address when this omni address targets
// a UTXO chain. The second return value is false otherwise.
func (a OmniAddress) GetUtxoAddress() (string, bool) {
	prefix, payload, ok := a.split()
	if !ok {
		return "", false
	}

	kind, err := ChainKindFromString(prefix)
	if err != nil || !kind.IsUtxoChain() {
		return "", false
	}

	return payload, true
}

// GetNearAccount returns the host-ledger account when this address is
// near-tagged. The second return value is false otherwise.
func (a OmniAddress) GetNearAccount() (AccountId, bool) {
	prefix, payload, ok := a.split()
	if !ok {
		return "", false
	}

	kind, err := ChainKindFromString(prefix)
	if err != nil || kind != ChainKindNear {
		return "", false
	}

	return AccountId(payload), true
}

// Validate checks the address syntax for the chains we can check cheaply.
// UTXO payloads are validated against network params by the dcr package.
func (a OmniAddress) Validate() error {
	prefix, payload, ok := a.split()
	if !ok {
		return fmt.Errorf("omni address %q has no chain prefix", a)
	}

	kind, err := ChainKindFromString(prefix)
	if err != nil {
		return err
	}

	switch kind {
	case ChainKindEth, ChainKindArb, ChainKindBase:
		if !common.IsHexAddress(payload) {
			return fmt.Errorf("invalid evm address %q", payload)
		}
	case ChainKindNear:
		if err := AccountId(payload).Validate(); err != nil {
			return err
		}
	default:
		if len(payload) == 0 {
			return fmt.Errorf("empty address payload in %q", a)
		}
	}

	return nil
}

// AccountId is an account on the host ledger.
type AccountId string

// Validate enforces the host ledger account rules: 2-64 characters, parts of
// lowercase alphanumerics separated by single '.', '-' or '_' where '-'/'_'
// may not start or end a part.
func (a AccountId) Validate() error {
	s := string(a)
	if len(s) < 2 || len(s) > 64 {
		return fmt.Errorf("account id %q must be 2-64 characters", a)
	}

	lastWasSeparator := true // leading separators are invalid
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z' || c >= '0' && c <= '9':
			lastWasSeparator = false
		case c == '.' || c == '-' || c == '_':
			if lastWasSeparator {
				return fmt.Errorf("account id %q has a misplaced separator", a)
			}
			lastWasSeparator = true
		default:
			return fmt.Errorf("account id %q contains invalid character %q", a, c)
		}
	}

	if lastWasSeparator {
		return fmt.Errorf("account id %q ends with a separator", a)
	}

	return nil
}

// TransferId globally identifies a pending transfer: the chain the deposit
// originated on plus the nonce assigned there.
type TransferId struct {
	OriginChain ChainKind `json:"origin_chain"`
	OriginNonce uint64    `json:"origin_nonce"`
}

func (id TransferId) String() string {
	return fmt.Sprintf("%s:%d", id.OriginChain, id.OriginNonce)
}

// Fee is the protocol fee attached to a transfer. Fee is denominated in the
// transferred token, NativeFee in the host ledger's native token.
type Fee struct {
	Fee       U128 `json:"fee"`
	NativeFee U128 `json:"native_fee"`
}

func (f *Fee) Equal(o *Fee) bool {
	if f == nil || o == nil {
		return f == o
	}

	return f.Fee.Equal(o.Fee) && f.NativeFee.Equal(o.NativeFee)
}

// TransferMessage is the authoritative record of a pending transfer. It is
// owned by the registry; the relay reads it and, during settlement, removes
// and possibly reinserts it. Field order matters for the borsh encoding.
type TransferMessage struct {
	OriginNonce      uint64      `json:"origin_nonce"`
	Token            OmniAddress `json:"token"`
	Amount           U128        `json:"amount"`
	Recipient        OmniAddress `json:"recipient"`
	Fee              Fee         `json:"fee"`
	Sender           OmniAddress `json:"sender"`
	Msg              string      `json:"msg"`
	DestinationNonce uint64      `json:"destination_nonce"`
}

// GetDestinationChain is the chain kind the recipient address is tagged with.
func (m *TransferMessage) GetDestinationChain() (ChainKind, error) {
	return m.Recipient.GetChain()
}

func (m *TransferMessage) Equal(o *TransferMessage) bool {
	if m == nil || o == nil {
		return m == o
	}

	return m.OriginNonce == o.OriginNonce &&
		m.Token == o.Token &&
		m.Amount.Equal(o.Amount) &&
		m.Recipient == o.Recipient &&
		m.Fee.Equal(&o.Fee) &&
		m.Sender == o.Sender &&
		m.Msg == o.Msg &&
		m.DestinationNonce == o.DestinationNonce
}

// TransferRecord is what the registry stores per transfer id: the message
// plus the account that owns the locked tokens.
type TransferRecord struct {
	Message TransferMessage `json:"message"`
	Owner   AccountId       `json:"owner"`
}
