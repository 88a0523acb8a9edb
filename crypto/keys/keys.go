// Package keys implements the signature schemes a transaction author can use
// to authenticate a wrapper transaction: ed25519, secp256k1 and BLS12-381.
// Public keys and signatures carry their scheme so that a verifier never has
// to guess how to interpret raw bytes.
package keys

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrUnknownScheme     = errors.New("keys: unknown signature scheme")
	ErrSchemeMismatch    = errors.New("keys: signature scheme does not match public key")
	ErrInvalidPublicKey  = errors.New("keys: invalid public key")
	ErrInvalidPrivateKey = errors.New("keys: invalid private key")
	ErrSignatureInvalid  = errors.New("keys: signature verification failed")
	ErrMalformedSig      = errors.New("keys: malformed signature")
)

// Scheme identifies a signature scheme.
type Scheme uint8

const (
	Ed25519 Scheme = iota + 1
	Secp256k1
	BLS
)

// String returns the lowercase scheme name.
func (s Scheme) String() string {
	switch s {
	case Ed25519:
		return "ed25519"
	case Secp256k1:
		return "secp256k1"
	case BLS:
		return "bls"
	default:
		return fmt.Sprintf("scheme(%d)", uint8(s))
	}
}

// ParseScheme parses a scheme name as produced by String.
func ParseScheme(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ed25519":
		return Ed25519, nil
	case "secp256k1":
		return Secp256k1, nil
	case "bls", "bls12381":
		return BLS, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
}

// PublicKey is a scheme-tagged public key.
type PublicKey struct {
	Scheme Scheme
	Key    []byte
}

// Bytes returns the scheme byte followed by the raw key.
func (pk PublicKey) Bytes() []byte {
	out := make([]byte, 0, 1+len(pk.Key))
	out = append(out, byte(pk.Scheme))
	return append(out, pk.Key...)
}

// PublicKeyFromBytes parses the output of PublicKey.Bytes.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	if len(b) < 1 {
		return PublicKey{}, ErrInvalidPublicKey
	}
	pk := PublicKey{Scheme: Scheme(b[0]), Key: append([]byte(nil), b[1:]...)}
	if err := pk.Validate(); err != nil {
		return PublicKey{}, err
	}
	return pk, nil
}

// Validate checks that the key bytes are a valid key of its scheme.
func (pk PublicKey) Validate() error {
	switch pk.Scheme {
	case Ed25519:
		return validateEd25519(pk.Key)
	case Secp256k1:
		return validateSecp256k1(pk.Key)
	case BLS:
		return validateBLS(pk.Key)
	default:
		return ErrUnknownScheme
	}
}

// Equal reports whether two public keys are identical.
func (pk PublicKey) Equal(other PublicKey) bool {
	return pk.Scheme == other.Scheme && string(pk.Key) == string(other.Key)
}

// String returns the hex encoding of Bytes.
func (pk PublicKey) String() string {
	return hexutil.Encode(pk.Bytes())
}

// MarshalText implements encoding.TextMarshaler.
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (pk *PublicKey) UnmarshalText(text []byte) error {
	raw, err := hexutil.Decode(string(text))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	parsed, err := PublicKeyFromBytes(raw)
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}

// Signature is a scheme-tagged signature.
type Signature struct {
	Scheme Scheme
	Sig    []byte
}

// PrivateKey signs messages under one scheme.
type PrivateKey interface {
	Scheme() Scheme
	PublicKey() PublicKey
	Sign(msg []byte) (Signature, error)
	// Bytes returns the raw secret, parseable by PrivateKeyFromBytes.
	Bytes() []byte
}

// Generate creates a new private key for scheme, drawing entropy from rng.
// A nil rng selects crypto/rand.
func Generate(scheme Scheme, rng io.Reader) (PrivateKey, error) {
	switch scheme {
	case Ed25519:
		return generateEd25519(rng)
	case Secp256k1:
		return generateSecp256k1(rng)
	case BLS:
		return generateBLS(rng)
	default:
		return nil, ErrUnknownScheme
	}
}

// PrivateKeyFromBytes parses a raw secret of the given scheme.
func PrivateKeyFromBytes(scheme Scheme, b []byte) (PrivateKey, error) {
	switch scheme {
	case Ed25519:
		return ed25519FromBytes(b)
	case Secp256k1:
		return secp256k1FromBytes(b)
	case BLS:
		return blsFromBytes(b)
	default:
		return nil, ErrUnknownScheme
	}
}

// Verify checks sig over msg under pk. It returns nil on success and an error
// wrapping ErrSignatureInvalid, ErrSchemeMismatch or ErrInvalidPublicKey
// otherwise.
func Verify(pk PublicKey, msg []byte, sig Signature) error {
	if pk.Scheme != sig.Scheme {
		return fmt.Errorf("%w: key %s, signature %s", ErrSchemeMismatch, pk.Scheme, sig.Scheme)
	}
	switch pk.Scheme {
	case Ed25519:
		return verifyEd25519(pk.Key, msg, sig.Sig)
	case Secp256k1:
		return verifySecp256k1(pk.Key, msg, sig.Sig)
	case BLS:
		return verifyBLS(pk.Key, msg, sig.Sig)
	default:
		return ErrUnknownScheme
	}
}
