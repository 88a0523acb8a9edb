package tpke

import (
	"crypto/rand"
	"fmt"
	"io"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EncryptionKey is the public key payloads are encrypted to (a G1 point).
type EncryptionKey struct {
	point bls12381.G1Affine
}

// DecryptionKey is the secret matching an EncryptionKey (a G2 point). In a
// deployment it is only ever reconstructed by the validator set once the
// epoch it belongs to is over.
type DecryptionKey struct {
	point bls12381.G2Affine
}

// GenerateKeyPair samples a fresh key pair.
func GenerateKeyPair(rng io.Reader) (EncryptionKey, DecryptionKey, error) {
	if rng == nil {
		rng = rand.Reader
	}
	x, err := randomScalar(rng)
	if err != nil {
		return EncryptionKey{}, DecryptionKey{}, err
	}
	var ek EncryptionKey
	var dk DecryptionKey
	ek.point.ScalarMultiplication(&g1Gen, x)
	dk.point.ScalarMultiplication(&g2Gen, x)
	return ek, dk, nil
}

// GeneratorKeyPair returns the trivial key pair whose secret scalar is one.
// It stands in for the network key until epoch keys are provisioned and
// must never protect real traffic.
func GeneratorKeyPair() (EncryptionKey, DecryptionKey) {
	return EncryptionKey{point: g1Gen}, DecryptionKey{point: g2Gen}
}

// Bytes returns the compressed point encoding.
func (k EncryptionKey) Bytes() []byte {
	b := k.point.Bytes()
	return b[:]
}

// Equal reports whether both keys are the same point.
func (k EncryptionKey) Equal(other EncryptionKey) bool {
	return k.point.Equal(&other.point)
}

// String returns the hex encoding of the key.
func (k EncryptionKey) String() string {
	return hexutil.Encode(k.Bytes())
}

// MarshalText implements encoding.TextMarshaler.
func (k EncryptionKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EncryptionKey) UnmarshalText(text []byte) error {
	raw, err := hexutil.Decode(string(text))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEncryptionKey, err)
	}
	parsed, err := EncryptionKeyFromBytes(raw)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// EncryptionKeyFromBytes parses a compressed G1 point.
func EncryptionKeyFromBytes(b []byte) (EncryptionKey, error) {
	var k EncryptionKey
	if len(b) != bls12381.SizeOfG1AffineCompressed {
		return k, ErrInvalidEncryptionKey
	}
	if _, err := k.point.SetBytes(b); err != nil {
		return k, fmt.Errorf("%w: %v", ErrInvalidEncryptionKey, err)
	}
	if k.point.IsInfinity() {
		return k, ErrZeroKey
	}
	return k, nil
}

// Bytes returns the compressed point encoding.
func (k DecryptionKey) Bytes() []byte {
	b := k.point.Bytes()
	return b[:]
}

// Equal reports whether both keys are the same point.
func (k DecryptionKey) Equal(other DecryptionKey) bool {
	return k.point.Equal(&other.point)
}

// MarshalText implements encoding.TextMarshaler.
func (k DecryptionKey) MarshalText() ([]byte, error) {
	return []byte(hexutil.Encode(k.Bytes())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *DecryptionKey) UnmarshalText(text []byte) error {
	raw, err := hexutil.Decode(string(text))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDecryptionKey, err)
	}
	parsed, err := DecryptionKeyFromBytes(raw)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// DecryptionKeyFromBytes parses a compressed G2 point.
func DecryptionKeyFromBytes(b []byte) (DecryptionKey, error) {
	var k DecryptionKey
	if len(b) != bls12381.SizeOfG2AffineCompressed {
		return k, ErrInvalidDecryptionKey
	}
	if _, err := k.point.SetBytes(b); err != nil {
		return k, fmt.Errorf("%w: %v", ErrInvalidDecryptionKey, err)
	}
	if k.point.IsInfinity() {
		return k, ErrZeroKey
	}
	return k, nil
}

// Matches reports whether dk decrypts payloads encrypted to ek, by checking
// e(Y, G2) = e(G1, Z).
func (k DecryptionKey) Matches(ek EncryptionKey) bool {
	var negY bls12381.G1Affine
	negY.Neg(&ek.point)
	ok, err := bls12381.PairingCheck(
		[]bls12381.G1Affine{negY, g1Gen},
		[]bls12381.G2Affine{g2Gen, k.point},
	)
	return err == nil && ok
}
