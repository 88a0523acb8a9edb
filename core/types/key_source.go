package types

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/anonployed/namada/crypto/tpke"
)

var ErrNoEncryptionKey = errors.New("types: no encryption key for epoch")

// EncryptionKeySource resolves the network encryption key of an epoch.
type EncryptionKeySource interface {
	EncryptionKey(epoch Epoch) (tpke.EncryptionKey, error)
}

// StaticKeySource returns the same key for every epoch.
type StaticKeySource struct {
	Key tpke.EncryptionKey
}

// GeneratorKeySource returns a StaticKeySource over the trivial generator
// key. It is a placeholder for networks that have not provisioned epoch keys.
func GeneratorKeySource() StaticKeySource {
	ek, _ := tpke.GeneratorKeyPair()
	return StaticKeySource{Key: ek}
}

// EncryptionKey implements EncryptionKeySource.
func (s StaticKeySource) EncryptionKey(Epoch) (tpke.EncryptionKey, error) {
	return s.Key, nil
}

// EpochKeyRegistry maps epochs to their encryption keys. It is safe for
// concurrent use.
type EpochKeyRegistry struct {
	mu   sync.RWMutex
	keys map[Epoch]tpke.EncryptionKey
}

// NewEpochKeyRegistry creates an empty registry.
func NewEpochKeyRegistry() *EpochKeyRegistry {
	return &EpochKeyRegistry{keys: make(map[Epoch]tpke.EncryptionKey)}
}

// Set records the key for epoch, replacing any previous one.
func (r *EpochKeyRegistry) Set(epoch Epoch, key tpke.EncryptionKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[epoch] = key
}

// Remove forgets the key for epoch.
func (r *EpochKeyRegistry) Remove(epoch Epoch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keys, epoch)
}

// EncryptionKey implements EncryptionKeySource.
func (r *EpochKeyRegistry) EncryptionKey(epoch Epoch) (tpke.EncryptionKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.keys[epoch]
	if !ok {
		return tpke.EncryptionKey{}, fmt.Errorf("%w %d", ErrNoEncryptionKey, epoch)
	}
	return key, nil
}

// Epochs returns the epochs with a known key in ascending order.
func (r *EpochKeyRegistry) Epochs() []Epoch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Epoch, 0, len(r.keys))
	for e := range r.keys {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
