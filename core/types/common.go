// Package types defines the ledger's transaction envelope types: the outer
// signed Tx, fees and gas limits, and the encrypted WrapperTx that hides an
// inner transaction until its epoch's decryption key is released.
package types

import (
	"crypto/sha256"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	HashLength    = 32
	AddressLength = 20
)

// Hash represents a 32-byte SHA-256 digest.
type Hash [HashLength]byte

// Sha256Hash returns the SHA-256 digest of data.
func Sha256Hash(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

// Hex returns the hex string representation of the hash.
func (h Hash) Hex() string { return fmt.Sprintf("0x%x", h[:]) }

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return hexutil.Bytes(h[:]).MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("Hash", input, h[:])
}
