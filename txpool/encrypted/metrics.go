package encrypted

import (
	"errors"

	"github.com/anonployed/namada/core/types"
	"github.com/prometheus/client_golang/prometheus"
)

type poolMetrics struct {
	admitted  prometheus.Counter
	rejected  *prometheus.CounterVec
	decrypted prometheus.Counter
	pending   prometheus.Gauge
}

// newPoolMetrics creates the pool collectors and registers them with reg. A
// nil reg leaves them unregistered.
func newPoolMetrics(reg prometheus.Registerer) (*poolMetrics, error) {
	m := &poolMetrics{
		admitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "namada_wrapper_pool_admitted_total",
			Help: "Total number of wrapper transactions admitted to the pool",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "namada_wrapper_pool_rejected_total",
			Help: "Total number of wrapper transactions rejected, by reason",
		}, []string{"reason"}),
		decrypted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "namada_wrapper_pool_decrypted_total",
			Help: "Total number of inner transactions successfully decrypted",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "namada_wrapper_pool_pending",
			Help: "Current number of wrappers awaiting decryption",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.admitted, m.rejected, m.decrypted, m.pending} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// rejectReason maps an admission or decryption error to a metric label.
func rejectReason(err error) string {
	var derr *types.DecryptionError
	switch {
	case errors.As(err, &derr):
		return derr.Kind.String()
	case errors.Is(err, ErrInvalidCiphertext):
		return "invalid_ciphertext"
	case errors.Is(err, ErrAlreadyKnown):
		return "already_known"
	case errors.Is(err, ErrPoolFull):
		return "pool_full"
	default:
		return "other"
	}
}
