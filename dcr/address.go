package dcr

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/decred/dcrd/chaincfg/chainhash"
	chaincfg "github.com/decred/dcrd/chaincfg/v3"
	dcrutil "github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrd/txscript/v4/stdaddr"
	"github.com/decred/dcrd/wire"

	"github.com/sisu-network/drelay/types"
)

// NetParams returns the chain parameters for a network name from the config.
func NetParams(name string) (*chaincfg.Params, error) {
	switch strings.ToLower(name) {
	case "mainnet":
		return chaincfg.MainNetParams(), nil
	case "testnet", "testnet3":
		return chaincfg.TestNet3Params(), nil
	case "simnet":
		return chaincfg.SimNetParams(), nil
	case "regnet":
		return chaincfg.RegNetParams(), nil
	}

	return nil, fmt.Errorf("unknown dcr network %q", name)
}

// CheckAddress decodes s for the given network. An address of any other
// chain (or another DCR network) fails the checksum/version check here.
func CheckAddress(s string, params *chaincfg.Params) error {
	if _, err := stdaddr.DecodeAddress(s, params); err != nil {
		return fmt.Errorf("address %q is not valid for %s: %v", s, params.Name, err)
	}

	return nil
}

// ParseOutPoint parses an input reference of the form "txid:vout".
func ParseOutPoint(s string) (*wire.OutPoint, error) {
	idx := strings.LastIndex(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return nil, fmt.Errorf("outpoint %q is not of the form txid:vout", s)
	}

	var h chainhash.Hash
	if err := chainhash.Decode(&h, s[:idx]); err != nil {
		return nil, fmt.Errorf("bad txid in outpoint %q: %v", s, err)
	}

	vout, err := strconv.ParseUint(s[idx+1:], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("bad vout in outpoint %q: %v", s, err)
	}

	return wire.NewOutPoint(&h, uint32(vout), wire.TxTreeRegular), nil
}

// CheckWithdraw structurally validates a withdraw payload for the network:
// the target address must decode, every input must be a well-formed
// outpoint and every output script must be valid hex.
func CheckWithdraw(w *types.WithdrawRequest, params *chaincfg.Params) error {
	if err := CheckAddress(w.TargetDcrAddress, params); err != nil {
		return err
	}

	for _, in := range w.Input {
		if _, err := ParseOutPoint(in); err != nil {
			return err
		}
	}

	for i, out := range w.Output {
		if _, err := hex.DecodeString(out.PkScript); err != nil {
			return fmt.Errorf("output %d has a non-hex pk script: %v", i, err)
		}
	}

	return nil
}

// TotalOutputValue sums the declared output values. Only used for logging;
// the connector is the one that actually accounts for the DCR tx.
func TotalOutputValue(outputs []types.TxOut) dcrutil.Amount {
	var total int64
	for _, out := range outputs {
		total += int64(out.Value)
	}

	return dcrutil.Amount(total)
}
