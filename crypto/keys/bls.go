package keys

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	blst "github.com/supranational/blst/bindings/go"
)

// blsDST is the domain separation tag for wrapper signatures. The MinPk
// variant is used: public keys in G1, signatures in G2.
var blsDST = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_POP_")

// Key and signature sizes for the MinPk scheme.
const (
	blsPubkeySize = 48 // compressed G1
	blsSigSize    = 96 // compressed G2
	blsSecretSize = 32 // scalar field element
	blsIKMSize    = 32
)

var (
	errBLSKeyGen = errors.New("keys: bls key generation failed")
	errBLSSign   = errors.New("keys: bls signing failed")
)

type blsKey struct {
	sk *blst.SecretKey
}

func generateBLS(rng io.Reader) (PrivateKey, error) {
	if rng == nil {
		rng = rand.Reader
	}
	ikm := make([]byte, blsIKMSize)
	if _, err := io.ReadFull(rng, ikm); err != nil {
		return nil, fmt.Errorf("keys: bls keygen: %w", err)
	}
	sk := blst.KeyGen(ikm)
	if sk == nil {
		return nil, errBLSKeyGen
	}
	return &blsKey{sk: sk}, nil
}

func blsFromBytes(b []byte) (PrivateKey, error) {
	if len(b) != blsSecretSize {
		return nil, ErrInvalidPrivateKey
	}
	sk := new(blst.SecretKey).Deserialize(b)
	if sk == nil {
		return nil, ErrInvalidPrivateKey
	}
	return &blsKey{sk: sk}, nil
}

func (k *blsKey) Scheme() Scheme { return BLS }

func (k *blsKey) PublicKey() PublicKey {
	pk := new(blst.P1Affine).From(k.sk)
	return PublicKey{Scheme: BLS, Key: pk.Compress()}
}

func (k *blsKey) Sign(msg []byte) (Signature, error) {
	sig := new(blst.P2Affine).Sign(k.sk, msg, blsDST)
	if sig == nil {
		return Signature{}, errBLSSign
	}
	return Signature{Scheme: BLS, Sig: sig.Compress()}, nil
}

func (k *blsKey) Bytes() []byte {
	return k.sk.Serialize()
}

func validateBLS(key []byte) error {
	if len(key) != blsPubkeySize {
		return fmt.Errorf("%w: bls key must be %d bytes", ErrInvalidPublicKey, blsPubkeySize)
	}
	pk := new(blst.P1Affine).Uncompress(key)
	if pk == nil || !pk.KeyValidate() {
		return ErrInvalidPublicKey
	}
	return nil
}

func verifyBLS(key, msg, sig []byte) error {
	if err := validateBLS(key); err != nil {
		return err
	}
	if len(sig) != blsSigSize {
		return ErrMalformedSig
	}
	pk := new(blst.P1Affine).Uncompress(key)
	s := new(blst.P2Affine).Uncompress(sig)
	if s == nil {
		return ErrMalformedSig
	}
	if !s.Verify(true, pk, true, msg, blsDST) {
		return ErrSignatureInvalid
	}
	return nil
}
