package keys

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/crypto"
)

// secp256k1 signatures are 65-byte [R || S || V] over the Keccak-256 digest
// of the message, as produced by go-ethereum.
const secp256k1SigSize = 65

type secp256k1Key struct {
	priv *ecdsa.PrivateKey
}

func generateSecp256k1(rng io.Reader) (PrivateKey, error) {
	if rng == nil {
		rng = rand.Reader
	}
	var seed [32]byte
	for {
		if _, err := io.ReadFull(rng, seed[:]); err != nil {
			return nil, fmt.Errorf("keys: secp256k1 keygen: %w", err)
		}
		// ToECDSA rejects zero and out-of-range scalars; draw again.
		if priv, err := crypto.ToECDSA(seed[:]); err == nil {
			return &secp256k1Key{priv: priv}, nil
		}
	}
}

func secp256k1FromBytes(b []byte) (PrivateKey, error) {
	priv, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return &secp256k1Key{priv: priv}, nil
}

func (k *secp256k1Key) Scheme() Scheme { return Secp256k1 }

func (k *secp256k1Key) PublicKey() PublicKey {
	return PublicKey{Scheme: Secp256k1, Key: crypto.CompressPubkey(&k.priv.PublicKey)}
}

func (k *secp256k1Key) Sign(msg []byte) (Signature, error) {
	sig, err := crypto.Sign(crypto.Keccak256(msg), k.priv)
	if err != nil {
		return Signature{}, fmt.Errorf("keys: secp256k1 sign: %w", err)
	}
	return Signature{Scheme: Secp256k1, Sig: sig}, nil
}

func (k *secp256k1Key) Bytes() []byte {
	return crypto.FromECDSA(k.priv)
}

func validateSecp256k1(key []byte) error {
	if _, err := crypto.DecompressPubkey(key); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return nil
}

func verifySecp256k1(key, msg, sig []byte) error {
	if err := validateSecp256k1(key); err != nil {
		return err
	}
	if len(sig) != secp256k1SigSize {
		return ErrMalformedSig
	}
	if !crypto.VerifySignature(key, crypto.Keccak256(msg), sig[:64]) {
		return ErrSignatureInvalid
	}
	return nil
}
