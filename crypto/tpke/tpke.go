// Package tpke implements the pairing-based public-key encryption used to hide
// wrapper transaction payloads until their epoch's decryption key is released.
//
// The scheme works over BLS12-381. An encryption key is a G1 point Y = x·G1 and
// the matching decryption key is the G2 point Z = x·G2. Encrypting a message
// picks a fresh scalar r and produces:
//
//	U = r·G1                          (nonce)
//	V = ChaCha20_{KDF(e(r·Y, G2), U)}(m) (ciphertext)
//	W = r·H(U ‖ V)                    (authentication tag, H hashes to G2)
//
// Decryption recovers the shared secret as e(U, Z). A ciphertext can be
// checked for well-formedness without any key: e(U, H(U‖V)) · e(−G1, W) = 1.
// The check binds U, V and W together but says nothing about who produced them.
package tpke

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"
)

// tagDST is the hash-to-curve domain separation tag for authentication tags.
var tagDST = []byte("TPKE_BLS12381G2_XMD:SHA-256_SSWU_RO_TAG_")

// kdfInfo labels the HKDF expansion of the pairing secret.
var kdfInfo = []byte("tpke chacha20 key")

// Encoded sizes of the curve points.
const (
	NonceSize = bls12381.SizeOfG1AffineCompressed
	TagSize   = bls12381.SizeOfG2AffineCompressed
)

var (
	ErrInvalidNonce         = errors.New("tpke: invalid nonce point encoding")
	ErrInvalidTag           = errors.New("tpke: invalid authentication tag encoding")
	ErrInvalidEncryptionKey = errors.New("tpke: invalid encryption key encoding")
	ErrInvalidDecryptionKey = errors.New("tpke: invalid decryption key encoding")
	ErrZeroKey              = errors.New("tpke: key is the point at infinity")
)

var (
	g1Gen    bls12381.G1Affine
	g2Gen    bls12381.G2Affine
	g1GenNeg bls12381.G1Affine
)

func init() {
	_, _, g1Gen, g2Gen = bls12381.Generators()
	g1GenNeg.Neg(&g1Gen)
}

// Ciphertext is an encrypted message together with its nonce and tag.
type Ciphertext struct {
	Nonce   bls12381.G1Affine
	Payload []byte
	AuthTag bls12381.G2Affine
}

// Encrypt encrypts msg under pk. Every call draws a fresh scalar from rng, so
// encrypting the same message twice yields unrelated ciphertexts.
func Encrypt(msg []byte, pk EncryptionKey, rng io.Reader) (*Ciphertext, error) {
	if pk.point.IsInfinity() {
		return nil, ErrZeroKey
	}
	if rng == nil {
		rng = rand.Reader
	}
	r, err := randomScalar(rng)
	if err != nil {
		return nil, err
	}

	var ry bls12381.G1Affine
	ry.ScalarMultiplication(&pk.point, r)
	secret, err := bls12381.Pair([]bls12381.G1Affine{ry}, []bls12381.G2Affine{g2Gen})
	if err != nil {
		return nil, fmt.Errorf("tpke: pairing: %w", err)
	}

	ct := new(Ciphertext)
	ct.Nonce.ScalarMultiplication(&g1Gen, r)

	ct.Payload = make([]byte, len(msg))
	if err := applyKeystream(&secret, &ct.Nonce, ct.Payload, msg); err != nil {
		return nil, err
	}

	h, err := tagHash(&ct.Nonce, ct.Payload)
	if err != nil {
		return nil, err
	}
	ct.AuthTag.ScalarMultiplication(&h, r)
	return ct, nil
}

// Decrypt recovers the plaintext with the decryption key matching the
// encryption key used by Encrypt. A wrong key yields garbage, not an error.
func Decrypt(ct *Ciphertext, sk DecryptionKey) ([]byte, error) {
	secret, err := bls12381.Pair([]bls12381.G1Affine{ct.Nonce}, []bls12381.G2Affine{sk.point})
	if err != nil {
		return nil, fmt.Errorf("tpke: pairing: %w", err)
	}
	out := make([]byte, len(ct.Payload))
	if err := applyKeystream(&secret, &ct.Nonce, out, ct.Payload); err != nil {
		return nil, err
	}
	return out, nil
}

// Check reports whether the ciphertext is well formed, i.e. the tag was
// produced with the same scalar as the nonce over this exact payload.
func (ct *Ciphertext) Check() bool {
	if ct.Nonce.IsInfinity() || ct.AuthTag.IsInfinity() {
		return false
	}
	h, err := tagHash(&ct.Nonce, ct.Payload)
	if err != nil {
		return false
	}
	ok, err := bls12381.PairingCheck(
		[]bls12381.G1Affine{ct.Nonce, g1GenNeg},
		[]bls12381.G2Affine{h, ct.AuthTag},
	)
	return err == nil && ok
}

// Equal reports whether two ciphertexts have identical content.
func (ct *Ciphertext) Equal(other *Ciphertext) bool {
	if ct == nil || other == nil {
		return ct == other
	}
	return ct.Nonce.Equal(&other.Nonce) &&
		ct.AuthTag.Equal(&other.AuthTag) &&
		string(ct.Payload) == string(other.Payload)
}

// NonceBytes returns the compressed encoding of the nonce point.
func (ct *Ciphertext) NonceBytes() []byte {
	b := ct.Nonce.Bytes()
	return b[:]
}

// TagBytes returns the compressed encoding of the authentication tag.
func (ct *Ciphertext) TagBytes() []byte {
	b := ct.AuthTag.Bytes()
	return b[:]
}

// NewCiphertext assembles a ciphertext from its encoded parts. Point
// encodings are checked for curve and subgroup membership.
func NewCiphertext(nonce, payload, tag []byte) (*Ciphertext, error) {
	ct := new(Ciphertext)
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonce
	}
	if _, err := ct.Nonce.SetBytes(nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNonce, err)
	}
	if len(tag) != TagSize {
		return nil, ErrInvalidTag
	}
	if _, err := ct.AuthTag.SetBytes(tag); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTag, err)
	}
	ct.Payload = append([]byte(nil), payload...)
	return ct, nil
}

func tagHash(nonce *bls12381.G1Affine, payload []byte) (bls12381.G2Affine, error) {
	nb := nonce.Bytes()
	msg := make([]byte, 0, len(nb)+len(payload))
	msg = append(msg, nb[:]...)
	msg = append(msg, payload...)
	h, err := bls12381.HashToG2(msg, tagDST)
	if err != nil {
		return bls12381.G2Affine{}, fmt.Errorf("tpke: hash to G2: %w", err)
	}
	return h, nil
}

// applyKeystream derives a ChaCha20 key and nonce from the pairing secret,
// salted with the ciphertext nonce, and XORs src into dst.
func applyKeystream(secret *bls12381.GT, nonce *bls12381.G1Affine, dst, src []byte) error {
	sb := secret.Bytes()
	nb := nonce.Bytes()
	kdf := hkdf.New(sha256.New, sb[:], nb[:], kdfInfo)

	var material [chacha20.KeySize + chacha20.NonceSize]byte
	if _, err := io.ReadFull(kdf, material[:]); err != nil {
		return fmt.Errorf("tpke: key derivation: %w", err)
	}
	c, err := chacha20.NewUnauthenticatedCipher(material[:chacha20.KeySize], material[chacha20.KeySize:])
	if err != nil {
		return fmt.Errorf("tpke: cipher: %w", err)
	}
	c.XORKeyStream(dst, src)
	return nil
}

// randomScalar samples a uniformly random non-zero element of Fr.
func randomScalar(rng io.Reader) (*big.Int, error) {
	mod := fr.Modulus()
	for {
		r, err := rand.Int(rng, mod)
		if err != nil {
			return nil, fmt.Errorf("tpke: sampling scalar: %w", err)
		}
		if r.Sign() != 0 {
			return r, nil
		}
	}
}
