package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelOp      = "op"
	labelOutcome = "outcome"
	labelStatus  = "status"
)

// Metrics counts catalog operations by outcome and tracks the number of
// books per status.
type Metrics struct {
	Operations *prometheus.CounterVec
	Books      *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bookshelf",
				Name:      "catalog_operations_total",
				Help:      "Catalog operations by outcome",
			},
			[]string{labelOp, labelOutcome},
		),
		Books: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "bookshelf",
				Name:      "catalog_books",
				Help:      "Books in the catalog by status",
			},
			[]string{labelStatus},
		),
	}

	reg.MustRegister(m.Operations, m.Books)
	return m
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, outcomeLabel(err)).Inc()
}

func (m *Metrics) setBooks(books []Record) {
	if m == nil {
		return
	}
	var avail, issued int
	for _, b := range books {
		if b.Status.Is(Issued) {
			issued++
		} else {
			avail++
		}
	}
	m.Books.WithLabelValues(string(Available)).Set(float64(avail))
	m.Books.WithLabelValues(string(Issued)).Set(float64(issued))
}

func outcomeLabel(err error) string {
	return Classify(err).String()
}
