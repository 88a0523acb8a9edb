package encrypted

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/anonployed/namada/core/types"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var ErrJournalClosed = errors.New("encrypted: journal is closed")

// journalPrefix namespaces wrapper records. Keys are
// prefix || epoch (8 bytes BE) || seq (8 bytes BE) so that iteration yields
// records by epoch, then arrival.
var journalPrefix = []byte("w")

const journalKeyLen = 1 + 8 + 8

// Journal persists admitted wrapper envelopes so that a restarted pool can
// recover the wrappers it had not decrypted yet.
type Journal struct {
	mu     sync.Mutex
	db     *leveldb.DB
	closed bool
}

// OpenJournal opens or creates a journal database in dir.
func OpenJournal(dir string) (*Journal, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, err
	}
	return &Journal{db: db}, nil
}

func journalKey(epoch types.Epoch, seq uint64) []byte {
	key := make([]byte, journalKeyLen)
	copy(key, journalPrefix)
	binary.BigEndian.PutUint64(key[1:], uint64(epoch))
	binary.BigEndian.PutUint64(key[9:], seq)
	return key
}

func epochKey(epoch types.Epoch) []byte {
	return journalKey(epoch, 0)[:9]
}

// Insert records the envelope of e.
func (j *Journal) Insert(e *Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrJournalClosed
	}
	return j.db.Put(journalKey(e.Wrapper.Epoch, e.Seq), e.Tx.Bytes(), nil)
}

// Remove deletes the records of entries.
func (j *Journal) Remove(entries []*Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrJournalClosed
	}
	batch := new(leveldb.Batch)
	for _, e := range entries {
		batch.Delete(journalKey(e.Wrapper.Epoch, e.Seq))
	}
	return j.db.Write(batch, nil)
}

// DropEpochsBefore deletes all records of epochs before the given one and
// returns how many were removed.
func (j *Journal) DropEpochsBefore(before types.Epoch) (int, error) {
	return j.deleteRange(&util.Range{Start: journalPrefix, Limit: epochKey(before)})
}

// JournalRecord is a journaled envelope together with the epoch and arrival
// sequence that key it.
type JournalRecord struct {
	Epoch types.Epoch
	Seq   uint64
	Tx    *types.Tx
}

// Load returns the recorded envelopes by epoch, then arrival. Records that
// no longer decode are skipped.
func (j *Journal) Load() ([]*JournalRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil, ErrJournalClosed
	}
	it := j.db.NewIterator(util.BytesPrefix(journalPrefix), nil)
	defer it.Release()

	var recs []*JournalRecord
	for it.Next() {
		key := it.Key()
		if len(key) != journalKeyLen {
			continue
		}
		tx, err := types.TxFromBytes(append([]byte(nil), it.Value()...))
		if err != nil {
			continue
		}
		recs = append(recs, &JournalRecord{
			Epoch: types.Epoch(binary.BigEndian.Uint64(key[1:9])),
			Seq:   binary.BigEndian.Uint64(key[9:]),
			Tx:    tx,
		})
	}
	return recs, it.Error()
}

// Discard deletes the record rec was loaded from.
func (j *Journal) Discard(rec *JournalRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrJournalClosed
	}
	return j.db.Delete(journalKey(rec.Epoch, rec.Seq), nil)
}

func (j *Journal) deleteRange(r *util.Range) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return 0, ErrJournalClosed
	}
	it := j.db.NewIterator(r, nil)
	batch := new(leveldb.Batch)
	for it.Next() {
		batch.Delete(append([]byte(nil), it.Key()...))
	}
	it.Release()
	if err := it.Error(); err != nil {
		return 0, err
	}
	return batch.Len(), j.db.Write(batch, nil)
}

// Close releases the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}
