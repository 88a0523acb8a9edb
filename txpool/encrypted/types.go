// Package encrypted implements the wrapper transaction pool. Wrappers are
// admitted while their inner transactions are still encrypted: only the
// envelope signature and the well-formedness of the ciphertext are checked.
// Once the decryption key of an epoch is released, the whole epoch is
// decrypted in one batch and the recovered transactions are ordered for
// inclusion.
package encrypted

import (
	"time"

	"github.com/anonployed/namada/core/types"
)

// Entry is an admitted wrapper awaiting decryption.
type Entry struct {
	Hash    types.Hash // hash of the signed envelope
	Tx      *types.Tx  // the signed envelope
	Wrapper *types.WrapperTx
	Seq     uint64 // arrival order, unique per pool
	Added   time.Time
}

// Decrypted pairs a recovered inner transaction with the entry that carried it.
type Decrypted struct {
	Entry *Entry
	Tx    *types.Tx
}

// Rejected is an entry whose payload did not decrypt to a valid transaction.
type Rejected struct {
	Entry *Entry
	Err   error
}

// DecryptResult is the outcome of decrypting one epoch.
type DecryptResult struct {
	Epoch types.Epoch
	// Decrypted is in the order of the pool's OrderingPolicy.
	Decrypted []Decrypted
	// Rejected is in arrival order.
	Rejected []Rejected
}

// Txs returns the decrypted inner transactions in inclusion order.
func (r *DecryptResult) Txs() []*types.Tx {
	out := make([]*types.Tx, len(r.Decrypted))
	for i, d := range r.Decrypted {
		out[i] = d.Tx
	}
	return out
}
