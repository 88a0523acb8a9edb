package types

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/anonployed/namada/crypto/keys"
	"golang.org/x/crypto/sha3"
)

var ErrInvalidAddress = errors.New("types: invalid address")

// AddressKind distinguishes accounts created on chain from accounts implied
// by a public key.
type AddressKind uint8

const (
	Established AddressKind = iota + 1
	Implicit
)

const (
	establishedPrefix = "est1"
	implicitPrefix    = "imp1"
)

// Address identifies an account or a token.
type Address struct {
	Kind AddressKind
	Hash [AddressLength]byte
}

// ImplicitAddress derives the account implied by a public key: the first 20
// bytes of Keccak-256 over the scheme-tagged key bytes.
func ImplicitAddress(pk keys.PublicKey) Address {
	return Address{Kind: Implicit, Hash: keccak20(pk.Bytes())}
}

// EstablishedAddress derives an established address from a seed, e.g. the
// name of a well-known token.
func EstablishedAddress(seed []byte) Address {
	return Address{Kind: Established, Hash: keccak20(seed)}
}

// NativeToken returns the address of the staking token.
func NativeToken() Address {
	return EstablishedAddress([]byte("xan"))
}

func keccak20(data []byte) (out [AddressLength]byte) {
	d := sha3.NewLegacyKeccak256()
	d.Write(data)
	copy(out[:], d.Sum(nil))
	return out
}

// IsZero returns whether the address is unset.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String renders the address with its kind prefix.
func (a Address) String() string {
	switch a.Kind {
	case Established:
		return establishedPrefix + hex.EncodeToString(a.Hash[:])
	case Implicit:
		return implicitPrefix + hex.EncodeToString(a.Hash[:])
	default:
		return fmt.Sprintf("unknown%d:%x", a.Kind, a.Hash[:])
	}
}

// ParseAddress parses the output of Address.String.
func ParseAddress(s string) (Address, error) {
	var a Address
	switch {
	case strings.HasPrefix(s, establishedPrefix):
		a.Kind = Established
	case strings.HasPrefix(s, implicitPrefix):
		a.Kind = Implicit
	default:
		return Address{}, fmt.Errorf("%w: unknown prefix in %q", ErrInvalidAddress, s)
	}
	raw, err := hex.DecodeString(s[len(establishedPrefix):])
	if err != nil || len(raw) != AddressLength {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	copy(a.Hash[:], raw)
	return a, nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
