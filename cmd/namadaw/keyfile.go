package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anonployed/namada/core/types"
	"github.com/anonployed/namada/crypto/keys"
	"github.com/anonployed/namada/crypto/tpke"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// senderKeyFile is the on-disk form of a sender key.
type senderKeyFile struct {
	Scheme    string         `json:"scheme"`
	Secret    hexutil.Bytes  `json:"secret"`
	PublicKey keys.PublicKey `json:"public_key"`
	Address   types.Address  `json:"address"`
}

// epochKeyFile is the on-disk form of an encryption key pair. The decryption
// key is omitted from files handed to wrapper authors.
type epochKeyFile struct {
	EncryptionKey tpke.EncryptionKey  `json:"encryption_key"`
	DecryptionKey *tpke.DecryptionKey `json:"decryption_key,omitempty"`
}

func writeJSONFile(path string, v any, perm os.FileMode) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), perm)
}

func readJSONFile(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func newSenderKeyFile(sk keys.PrivateKey) senderKeyFile {
	pk := sk.PublicKey()
	return senderKeyFile{
		Scheme:    sk.Scheme().String(),
		Secret:    sk.Bytes(),
		PublicKey: pk,
		Address:   types.ImplicitAddress(pk),
	}
}

func loadSenderKey(path string) (keys.PrivateKey, error) {
	var f senderKeyFile
	if err := readJSONFile(path, &f); err != nil {
		return nil, err
	}
	scheme, err := keys.ParseScheme(f.Scheme)
	if err != nil {
		return nil, err
	}
	sk, err := keys.PrivateKeyFromBytes(scheme, f.Secret)
	if err != nil {
		return nil, err
	}
	if !sk.PublicKey().Equal(f.PublicKey) {
		return nil, fmt.Errorf("%s: public key does not match secret", path)
	}
	return sk, nil
}

func loadDecryptionKey(path string) (tpke.DecryptionKey, error) {
	var f epochKeyFile
	if err := readJSONFile(path, &f); err != nil {
		return tpke.DecryptionKey{}, err
	}
	if f.DecryptionKey == nil {
		return tpke.DecryptionKey{}, fmt.Errorf("%s: no decryption key", path)
	}
	if !f.DecryptionKey.Matches(f.EncryptionKey) {
		return tpke.DecryptionKey{}, fmt.Errorf("%s: decryption key does not match encryption key", path)
	}
	return *f.DecryptionKey, nil
}

// writeEnvelope stores a signed envelope as a hex line.
func writeEnvelope(path string, tx *types.Tx) error {
	return os.WriteFile(path, []byte(hexutil.Encode(tx.Bytes())+"\n"), 0o644)
}

func readEnvelope(path string) (*types.Tx, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := hexutil.Decode(strings.TrimSpace(string(b)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	tx, err := types.TxFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tx, nil
}
