package encrypted

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/anonployed/namada/core/types"
	"github.com/anonployed/namada/crypto/tpke"
	"github.com/anonployed/namada/log"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNilTransaction    = errors.New("encrypted: nil transaction")
	ErrInvalidCiphertext = errors.New("encrypted: wrapper ciphertext is malformed")
	ErrAlreadyKnown      = errors.New("encrypted: wrapper already known")
	ErrPoolFull          = errors.New("encrypted: pool is full")
	ErrKeyMismatch       = errors.New("encrypted: decryption key does not match the epoch encryption key")
	ErrInvalidConfig     = errors.New("encrypted: invalid config")
)

// Config configures the wrapper pool.
type Config struct {
	// Workers bounds the goroutines used for batch admission and decryption.
	Workers int
	// MaxPending is the maximum number of wrappers held across all epochs.
	MaxPending int
	// Ordering sorts decrypted transactions. Defaults to FeeBasedOrdering.
	Ordering OrderingPolicy
	// Keys, if set, is used to check that the key passed to DecryptEpoch
	// belongs to the epoch.
	Keys types.EncryptionKeySource
	// Journal, if set, persists pending wrappers. The pool does not close it.
	Journal *Journal
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:    runtime.NumCPU(),
		MaxPending: 4096,
		Ordering:   &FeeBasedOrdering{},
	}
}

// Validate checks the config for obviously wrong values.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.MaxPending < 1 {
		return fmt.Errorf("%w: max pending must be >= 1, got %d", ErrInvalidConfig, c.MaxPending)
	}
	return nil
}

// Pool holds authenticated wrapper transactions, bucketed by epoch, until
// the decryption key of their epoch is available.
type Pool struct {
	cfg     Config
	log     *log.Logger
	metrics *poolMetrics

	mu     sync.RWMutex
	all    map[types.Hash]*Entry
	epochs map[types.Epoch]map[types.Hash]*Entry
	seq    uint64
}

// NewPool creates a pool. A nil logger selects the default logger and a nil
// registerer leaves the pool metrics unregistered.
func NewPool(cfg Config, logger *log.Logger, reg prometheus.Registerer) (*Pool, error) {
	if cfg.Ordering == nil {
		cfg.Ordering = &FeeBasedOrdering{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	m, err := newPoolMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("encrypted: registering metrics: %w", err)
	}
	return &Pool{
		cfg:     cfg,
		log:     logger.Module("wrapper-pool"),
		metrics: m,
		all:     make(map[types.Hash]*Entry),
		epochs:  make(map[types.Epoch]map[types.Hash]*Entry),
	}, nil
}

// Add authenticates a signed wrapper envelope, screens its ciphertext and
// stores it under its epoch. It returns the envelope hash. The inner
// transaction stays encrypted.
func (p *Pool) Add(tx *types.Tx) (types.Hash, error) {
	return p.add(tx, 0)
}

// add admits tx. A zero seq assigns the next arrival number and journals the
// entry before it becomes visible to DecryptEpoch. A non-zero seq restores a
// journaled entry under its existing record.
func (p *Pool) add(tx *types.Tx, seq uint64) (types.Hash, error) {
	if tx == nil {
		return types.Hash{}, ErrNilTransaction
	}
	hash := tx.Hash()

	p.mu.RLock()
	_, known := p.all[hash]
	p.mu.RUnlock()
	if known {
		return hash, p.reject(hash, ErrAlreadyKnown)
	}

	wrapper, err := types.WrapperTxFromTx(tx)
	if err != nil {
		return hash, p.reject(hash, err)
	}
	if !wrapper.ValidateCiphertext() {
		return hash, p.reject(hash, ErrInvalidCiphertext)
	}

	p.mu.Lock()
	if _, ok := p.all[hash]; ok {
		p.mu.Unlock()
		return hash, p.reject(hash, ErrAlreadyKnown)
	}
	if len(p.all) >= p.cfg.MaxPending {
		p.mu.Unlock()
		return hash, p.reject(hash, ErrPoolFull)
	}
	journal := seq == 0
	if journal {
		p.seq++
		seq = p.seq
	} else if seq > p.seq {
		p.seq = seq
	}
	entry := &Entry{Hash: hash, Tx: tx, Wrapper: wrapper, Seq: seq, Added: time.Now()}
	if journal && p.cfg.Journal != nil {
		if err := p.cfg.Journal.Insert(entry); err != nil {
			p.log.Warn("Failed to journal wrapper", "hash", hash, "err", err)
		}
	}
	p.insert(entry)
	p.mu.Unlock()

	p.metrics.admitted.Inc()
	p.log.Debug("Admitted wrapper", "hash", hash, "epoch", wrapper.Epoch, "payer", wrapper.FeePayer())
	return hash, nil
}

// AddBatch admits txs concurrently. The returned slice holds the admission
// error of each tx at the same index. Txs not started before ctx is done
// fail with the context error.
func (p *Pool) AddBatch(ctx context.Context, txs []*types.Tx) []error {
	errs := make([]error, len(txs))
	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for i, tx := range txs {
		i, tx := i, tx
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		g.Go(func() error {
			_, errs[i] = p.Add(tx)
			return nil
		})
	}
	g.Wait()
	return errs
}

// Get returns the pending entry with the given envelope hash.
func (p *Pool) Get(hash types.Hash) (*Entry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.all[hash]
	return e, ok
}

// Pending returns the entries of epoch in arrival order.
func (p *Pool) Pending(epoch types.Epoch) []*Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	bucket := p.epochs[epoch]
	out := make([]*Entry, 0, len(bucket))
	for _, e := range bucket {
		out = append(out, e)
	}
	sortByArrival(out)
	return out
}

// Len returns the number of pending wrappers across all epochs.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.all)
}

// Epochs returns the epochs with pending wrappers in ascending order.
func (p *Pool) Epochs() []types.Epoch {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]types.Epoch, 0, len(p.epochs))
	for e := range p.epochs {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DecryptEpoch removes every wrapper of epoch from the pool and decrypts
// them in parallel with key. Wrappers whose payload does not decrypt to a
// valid transaction are reported in Rejected. If ctx is cancelled before all
// payloads are decrypted, the wrappers are returned to the pool and the
// context error is returned.
func (p *Pool) DecryptEpoch(ctx context.Context, epoch types.Epoch, key tpke.DecryptionKey) (*DecryptResult, error) {
	if p.cfg.Keys != nil {
		ek, err := p.cfg.Keys.EncryptionKey(epoch)
		if err != nil {
			return nil, err
		}
		if !key.Matches(ek) {
			return nil, fmt.Errorf("%w %d", ErrKeyMismatch, epoch)
		}
	}

	entries := p.take(epoch)
	txs := make([]*types.Tx, len(entries))
	errs := make([]error, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			txs[i], errs[i] = e.Wrapper.Decrypt(key)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.restore(entries)
		return nil, err
	}
	p.unjournal(entries)

	res := &DecryptResult{Epoch: epoch}
	decrypted := make([]Decrypted, 0, len(entries))
	for i, e := range entries {
		if errs[i] != nil {
			res.Rejected = append(res.Rejected, Rejected{Entry: e, Err: errs[i]})
			p.metrics.rejected.WithLabelValues(rejectReason(errs[i])).Inc()
			p.log.Warn("Dropped undecryptable wrapper", "hash", e.Hash, "epoch", epoch, "err", errs[i])
			continue
		}
		decrypted = append(decrypted, Decrypted{Entry: e, Tx: txs[i]})
	}
	res.Decrypted = p.cfg.Ordering.Order(decrypted)
	p.metrics.decrypted.Add(float64(len(res.Decrypted)))

	p.log.Info("Decrypted epoch", "epoch", epoch, "txs", len(res.Decrypted),
		"rejected", len(res.Rejected), "ordering", p.cfg.Ordering.Name())
	return res, nil
}

// Prune drops all wrappers of epochs before the given one and returns how
// many were removed.
func (p *Pool) Prune(before types.Epoch) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	removed := 0
	for epoch, bucket := range p.epochs {
		if epoch >= before {
			continue
		}
		for h := range bucket {
			delete(p.all, h)
		}
		removed += len(bucket)
		delete(p.epochs, epoch)
	}
	p.metrics.pending.Set(float64(len(p.all)))
	if p.cfg.Journal != nil {
		if _, err := p.cfg.Journal.DropEpochsBefore(before); err != nil {
			p.log.Warn("Failed to prune journal", "before", before, "err", err)
		}
	}
	if removed > 0 {
		p.log.Info("Pruned stale wrappers", "before", before, "removed", removed)
	}
	return removed
}

// Recover re-admits the wrappers recorded in the journal, in their original
// epoch and arrival order, and returns how many were admitted. Re-admitted
// wrappers keep their records; records that no longer pass admission are
// discarded one by one. Recover must run before the first Add.
func (p *Pool) Recover() (int, error) {
	if p.cfg.Journal == nil {
		return 0, nil
	}
	recs, err := p.cfg.Journal.Load()
	if err != nil {
		return 0, err
	}
	admitted := 0
	for _, rec := range recs {
		hash, err := p.add(rec.Tx, rec.Seq)
		if err != nil {
			p.log.Debug("Dropped journaled wrapper", "hash", hash, "err", err)
			p.discard(rec)
			continue
		}
		admitted++
		// A record filed under another epoch than its wrapper is moved so
		// that unjournaling finds it.
		if e, ok := p.Get(hash); ok && e.Wrapper.Epoch != rec.Epoch {
			if err := p.cfg.Journal.Insert(e); err != nil {
				p.log.Warn("Failed to journal wrapper", "hash", hash, "err", err)
				continue
			}
			p.discard(rec)
		}
	}
	p.log.Info("Recovered journaled wrappers", "admitted", admitted, "dropped", len(recs)-admitted)
	return admitted, nil
}

func (p *Pool) discard(rec *JournalRecord) {
	if err := p.cfg.Journal.Discard(rec); err != nil {
		p.log.Warn("Failed to discard journal record", "epoch", rec.Epoch, "seq", rec.Seq, "err", err)
	}
}

func (p *Pool) unjournal(entries []*Entry) {
	if p.cfg.Journal == nil || len(entries) == 0 {
		return
	}
	if err := p.cfg.Journal.Remove(entries); err != nil {
		p.log.Warn("Failed to remove wrappers from journal", "count", len(entries), "err", err)
	}
}

// take removes the bucket of epoch and returns its entries in arrival order.
func (p *Pool) take(epoch types.Epoch) []*Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	bucket := p.epochs[epoch]
	delete(p.epochs, epoch)
	out := make([]*Entry, 0, len(bucket))
	for h, e := range bucket {
		delete(p.all, h)
		out = append(out, e)
	}
	p.metrics.pending.Set(float64(len(p.all)))
	sortByArrival(out)
	return out
}

func (p *Pool) restore(entries []*Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range entries {
		p.insert(e)
	}
}

// insert stores e. The caller must hold p.mu.
func (p *Pool) insert(e *Entry) {
	p.all[e.Hash] = e
	bucket, ok := p.epochs[e.Wrapper.Epoch]
	if !ok {
		bucket = make(map[types.Hash]*Entry)
		p.epochs[e.Wrapper.Epoch] = bucket
	}
	bucket[e.Hash] = e
	p.metrics.pending.Set(float64(len(p.all)))
}

func (p *Pool) reject(hash types.Hash, err error) error {
	p.metrics.rejected.WithLabelValues(rejectReason(err)).Inc()
	p.log.Debug("Rejected wrapper", "hash", hash, "err", err)
	return err
}
