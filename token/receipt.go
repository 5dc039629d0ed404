package token

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// ReceiptIdLength is the byte length of a host-ledger receipt id. Receipt ids
// are 32-byte hashes carried as base58 strings.
const ReceiptIdLength = 32

// CheckReceiptId verifies that s is a well-formed receipt id.
func CheckReceiptId(s string) error {
	bz, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("receipt id %q is not base58: %v", s, err)
	}

	if len(bz) != ReceiptIdLength {
		return fmt.Errorf("receipt id %q decodes to %d bytes, want %d", s, len(bz), ReceiptIdLength)
	}

	return nil
}
