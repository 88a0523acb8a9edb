package encrypted

import (
	"context"
	"testing"

	"github.com/anonployed/namada/core/types"
	"github.com/anonployed/namada/crypto/keys"
	"github.com/anonployed/namada/crypto/tpke"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signedWrapper builds a signed wrapper envelope paying fee, encrypted to
// the key of epoch in source.
func signedWrapper(t *testing.T, fee uint64, epoch types.Epoch, code string, source types.EncryptionKeySource) *types.Tx {
	t.Helper()
	sk, err := keys.Generate(keys.Ed25519, nil)
	require.NoError(t, err)
	w, err := types.NewWrapperTx(
		types.NewFee(types.NewAmount(fee), types.NativeToken()),
		sk,
		epoch,
		types.GasLimitFromUint64(1_000_000),
		types.NewTx([]byte(code), nil),
		source,
	)
	require.NoError(t, err)
	tx, err := w.Sign(sk)
	require.NoError(t, err)
	return tx
}

func newTestPool(t *testing.T, cfg Config) (*Pool, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	p, err := NewPool(cfg, nil, reg)
	require.NoError(t, err)
	return p, reg
}

func metricValue(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	out := &dto.Metric{}
	require.NoError(t, m.Write(out))
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestPool_Add(t *testing.T) {
	p, _ := newTestPool(t, DefaultConfig())
	src := types.GeneratorKeySource()

	tx := signedWrapper(t, 10, 1, "a", src)
	hash, err := p.Add(tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Hash(), hash)
	assert.Equal(t, 1, p.Len())

	e, ok := p.Get(hash)
	require.True(t, ok)
	assert.Equal(t, types.Epoch(1), e.Wrapper.Epoch)
	assert.Equal(t, uint64(1), e.Seq)

	_, err = p.Add(tx)
	assert.ErrorIs(t, err, ErrAlreadyKnown)

	_, err = p.Add(nil)
	assert.ErrorIs(t, err, ErrNilTransaction)

	assert.Equal(t, 1.0, metricValue(t, p.metrics.admitted))
	assert.Equal(t, 1.0, metricValue(t, p.metrics.pending))
	assert.Equal(t, 1.0, metricValue(t, p.metrics.rejected.WithLabelValues("already_known")))
}

func TestPool_AddRejectsUnauthenticated(t *testing.T) {
	p, _ := newTestPool(t, DefaultConfig())

	_, err := p.Add(types.NewTx(nil, nil))
	assert.ErrorIs(t, err, types.ErrUnsigned)

	// Re-sign the wrapper bytes with a key other than the wrapper's own.
	tx := signedWrapper(t, 10, 1, "a", types.GeneratorKeySource())
	signed, err := types.SignedTxDataFromBytes(tx.Data)
	require.NoError(t, err)
	other, err := keys.Generate(keys.Ed25519, nil)
	require.NoError(t, err)
	forged, err := types.NewTx(nil, signed.Data).Sign(other)
	require.NoError(t, err)

	_, err = p.Add(forged)
	assert.ErrorIs(t, err, types.ErrSigError)
	assert.Zero(t, p.Len())
	assert.Equal(t, 1.0, metricValue(t, p.metrics.rejected.WithLabelValues("unsigned")))
	assert.Equal(t, 1.0, metricValue(t, p.metrics.rejected.WithLabelValues("sig_error")))
}

func TestPool_Full(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPending = 2
	p, _ := newTestPool(t, cfg)
	src := types.GeneratorKeySource()

	for i := 0; i < 2; i++ {
		_, err := p.Add(signedWrapper(t, 1, 0, "tx", src))
		require.NoError(t, err)
	}
	_, err := p.Add(signedWrapper(t, 1, 0, "tx", src))
	assert.ErrorIs(t, err, ErrPoolFull)
	assert.Equal(t, 2, p.Len())
}

func TestPool_AddBatch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 4
	p, _ := newTestPool(t, cfg)
	src := types.GeneratorKeySource()

	txs := make([]*types.Tx, 0, 9)
	for i := 0; i < 8; i++ {
		txs = append(txs, signedWrapper(t, uint64(i), types.Epoch(i%2), "tx", src))
	}
	txs = append(txs, types.NewTx(nil, []byte("junk")))

	errs := p.AddBatch(context.Background(), txs)
	require.Len(t, errs, len(txs))
	for i := 0; i < 8; i++ {
		assert.NoError(t, errs[i])
	}
	assert.ErrorIs(t, errs[8], types.ErrUnsigned)
	assert.Equal(t, 8, p.Len())
	assert.Equal(t, []types.Epoch{0, 1}, p.Epochs())
	assert.Len(t, p.Pending(0), 4)
	assert.Len(t, p.Pending(1), 4)
	assert.Empty(t, p.Pending(7))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	errs = p.AddBatch(ctx, []*types.Tx{signedWrapper(t, 1, 0, "late", src)})
	assert.ErrorIs(t, errs[0], context.Canceled)
	assert.Equal(t, 8, p.Len())
}

func TestPool_DecryptEpoch(t *testing.T) {
	p, _ := newTestPool(t, DefaultConfig())
	ek, dk, err := tpke.GenerateKeyPair(nil)
	require.NoError(t, err)
	good := types.StaticKeySource{Key: ek}

	fees := []uint64{5, 50, 5, 20}
	for i, fee := range fees {
		_, err := p.Add(signedWrapper(t, fee, 3, string(rune('a'+i)), good))
		require.NoError(t, err)
	}
	// Encrypted to a key other than the epoch key.
	_, err = p.Add(signedWrapper(t, 100, 3, "wrong key", types.GeneratorKeySource()))
	require.NoError(t, err)
	_, err = p.Add(signedWrapper(t, 1, 4, "next epoch", good))
	require.NoError(t, err)

	res, err := p.DecryptEpoch(context.Background(), 3, dk)
	require.NoError(t, err)
	assert.Equal(t, types.Epoch(3), res.Epoch)

	var codes []string
	for _, tx := range res.Txs() {
		codes = append(codes, string(tx.Code))
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, codes)

	require.Len(t, res.Rejected, 1)
	assert.ErrorIs(t, res.Rejected[0].Err, types.ErrDecryptedHash)
	assert.Equal(t, uint64(5), res.Rejected[0].Entry.Seq)

	assert.Equal(t, 1, p.Len())
	assert.Equal(t, []types.Epoch{4}, p.Epochs())
	assert.Equal(t, 4.0, metricValue(t, p.metrics.decrypted))
	assert.Equal(t, 1.0, metricValue(t, p.metrics.rejected.WithLabelValues("decrypted_hash")))

	res, err = p.DecryptEpoch(context.Background(), 3, dk)
	require.NoError(t, err)
	assert.Empty(t, res.Decrypted)
	assert.Empty(t, res.Rejected)
}

func TestPool_DecryptEpochArrivalOrdering(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Ordering = &ArrivalOrdering{}
	p, _ := newTestPool(t, cfg)
	_, dk := tpke.GeneratorKeyPair()
	src := types.GeneratorKeySource()

	for i, fee := range []uint64{1, 9, 5} {
		_, err := p.Add(signedWrapper(t, fee, 0, string(rune('a'+i)), src))
		require.NoError(t, err)
	}
	res, err := p.DecryptEpoch(context.Background(), 0, dk)
	require.NoError(t, err)
	require.Len(t, res.Decrypted, 3)
	for i, d := range res.Decrypted {
		assert.Equal(t, string(rune('a'+i)), string(d.Tx.Code))
	}
}

func TestPool_DecryptEpochKeyCheck(t *testing.T) {
	reg := types.NewEpochKeyRegistry()
	ek, dk, err := tpke.GenerateKeyPair(nil)
	require.NoError(t, err)
	reg.Set(2, ek)

	cfg := DefaultConfig()
	cfg.Keys = reg
	p, _ := newTestPool(t, cfg)
	_, err = p.Add(signedWrapper(t, 1, 2, "tx", reg))
	require.NoError(t, err)

	_, wrong := tpke.GeneratorKeyPair()
	_, err = p.DecryptEpoch(context.Background(), 2, wrong)
	assert.ErrorIs(t, err, ErrKeyMismatch)
	assert.Equal(t, 1, p.Len())

	_, err = p.DecryptEpoch(context.Background(), 9, dk)
	assert.ErrorIs(t, err, types.ErrNoEncryptionKey)

	res, err := p.DecryptEpoch(context.Background(), 2, dk)
	require.NoError(t, err)
	assert.Len(t, res.Decrypted, 1)
}

func TestPool_DecryptEpochCancelled(t *testing.T) {
	p, _ := newTestPool(t, DefaultConfig())
	_, dk := tpke.GeneratorKeyPair()
	_, err := p.Add(signedWrapper(t, 1, 0, "tx", types.GeneratorKeySource()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.DecryptEpoch(ctx, 0, dk)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, p.Len())
	assert.Len(t, p.Pending(0), 1)
}

func TestPool_Prune(t *testing.T) {
	p, _ := newTestPool(t, DefaultConfig())
	src := types.GeneratorKeySource()
	for _, epoch := range []types.Epoch{1, 2, 2, 3} {
		_, err := p.Add(signedWrapper(t, 1, epoch, "tx", src))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, p.Prune(3))
	assert.Equal(t, []types.Epoch{3}, p.Epochs())
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, 1.0, metricValue(t, p.metrics.pending))
	assert.Zero(t, p.Prune(3))
}

func TestPool_NewPoolConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 0
	_, err := NewPool(cfg, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.MaxPending = 0
	_, err = NewPool(cfg, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Ordering = nil
	p, err := NewPool(cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "fee", p.cfg.Ordering.Name())

	reg := prometheus.NewRegistry()
	_, err = NewPool(DefaultConfig(), nil, reg)
	require.NoError(t, err)
	_, err = NewPool(DefaultConfig(), nil, reg)
	assert.Error(t, err)
}
