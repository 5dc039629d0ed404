package types

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
)

// U64 is an unsigned 64-bit integer that is encoded as a decimal string in
// JSON. This matches the json_types encoding used by the host ledger, where
// anything that can overflow a double is carried as a string.
type U64 uint64

func (u U64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(u), 10))
}

func (u *U64) UnmarshalJSON(bz []byte) error {
	v, err := parseUintJSON(bz)
	if err != nil {
		return err
	}

	*u = U64(v)
	return nil
}

// U128 is an unsigned 128-bit integer with the same decimal string JSON
// encoding as U64. Token amounts and fees on the host ledger are u128.
type U128 struct {
	big.Int
}

var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

func NewU128(v uint64) U128 {
	u := U128{}
	u.SetUint64(v)
	return u
}

// U128FromBig copies b into a U128. It fails if b is negative or does not fit
// in 128 bits.
func U128FromBig(b *big.Int) (U128, error) {
	if b.Sign() < 0 || b.Cmp(maxU128) > 0 {
		return U128{}, fmt.Errorf("value %s is out of the u128 range", b.String())
	}

	u := U128{}
	u.Set(b)
	return u, nil
}

func U128FromString(s string) (U128, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return U128{}, fmt.Errorf("invalid u128 string %q", s)
	}

	return U128FromBig(b)
}

// BigInt returns the underlying big.Int. The caller must not mutate it.
func (u *U128) BigInt() *big.Int {
	return &u.Int
}

func (u U128) Equal(o U128) bool {
	return u.Int.Cmp(&o.Int) == 0
}

func (u U128) EqualUint64(v uint64) bool {
	return u.Int.Cmp(new(big.Int).SetUint64(v)) == 0
}

func (u U128) IsZero() bool {
	return u.Int.Sign() == 0
}

func (u U128) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.Int.String())
}

func (u *U128) UnmarshalJSON(bz []byte) error {
	s, err := stringOrNumberJSON(bz)
	if err != nil {
		return err
	}

	v, err := U128FromString(s)
	if err != nil {
		return err
	}

	u.Set(&v.Int)
	return nil
}

// parseUintJSON accepts both the canonical quoted decimal form and a bare
// JSON number, which some callers still emit.
func parseUintJSON(bz []byte) (uint64, error) {
	s, err := stringOrNumberJSON(bz)
	if err != nil {
		return 0, err
	}

	return strconv.ParseUint(s, 10, 64)
}

func stringOrNumberJSON(bz []byte) (string, error) {
	if len(bz) > 0 && bz[0] == '"' {
		var s string
		if err := json.Unmarshal(bz, &s); err != nil {
			return "", err
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(bz, &n); err != nil {
		return "", err
	}

	return n.String(), nil
}
