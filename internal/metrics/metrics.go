package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects upload lifecycle counters. A nil *Metrics records nothing.
type Metrics struct {
	uploads       *prometheus.CounterVec
	quotaRejected *prometheus.CounterVec
	compensations *prometheus.CounterVec
	storeErrors   *prometheus.CounterVec
	reservedBytes *prometheus.CounterVec
	releasedBytes *prometheus.CounterVec
	handler       http.Handler
}

// New registers the collectors with reg, or the default registry when nil.
// Collectors that are already registered are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{}
	var err error
	if m.uploads, err = counterVec(reg, "media_uploads_total",
		"Upload lifecycle transitions by outcome and media type.", "outcome", "media_type"); err != nil {
		return nil, err
	}
	if m.quotaRejected, err = counterVec(reg, "media_quota_rejections_total",
		"Initiate requests rejected for insufficient quota.", "quota_class"); err != nil {
		return nil, err
	}
	if m.compensations, err = counterVec(reg, "media_initiate_compensations_total",
		"Compensating steps run after a failed initiate or complete.", "step"); err != nil {
		return nil, err
	}
	if m.storeErrors, err = counterVec(reg, "media_object_store_errors_total",
		"Object store control-plane failures by operation.", "operation"); err != nil {
		return nil, err
	}
	if m.reservedBytes, err = counterVec(reg, "media_quota_reserved_bytes_total",
		"Bytes reserved against tenant quota.", "quota_class"); err != nil {
		return nil, err
	}
	if m.releasedBytes, err = counterVec(reg, "media_quota_released_bytes_total",
		"Bytes released back to tenant quota.", "quota_class"); err != nil {
		return nil, err
	}

	m.handler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	return m, nil
}

func counterVec(reg prometheus.Registerer, name, help string, labels ...string) (*prometheus.CounterVec, error) {
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
	if err := reg.Register(cv); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return cv, nil
}

// Handler serves the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return m.handler
}

func (m *Metrics) Upload(outcome, mediaType string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome, mediaType).Inc()
}

func (m *Metrics) QuotaRejected(class string) {
	if m == nil {
		return
	}
	m.quotaRejected.WithLabelValues(class).Inc()
}

func (m *Metrics) Compensation(step string) {
	if m == nil {
		return
	}
	m.compensations.WithLabelValues(step).Inc()
}

func (m *Metrics) StoreError(operation string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(operation).Inc()
}

func (m *Metrics) Reserved(class string, bytes int64) {
	if m == nil || bytes <= 0 {
		return
	}
	m.reservedBytes.WithLabelValues(class).Add(float64(bytes))
}

func (m *Metrics) Released(class string, bytes int64) {
	if m == nil || bytes <= 0 {
		return
	}
	m.releasedBytes.WithLabelValues(class).Add(float64(bytes))
}
