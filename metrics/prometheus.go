// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodial/poolbank/log"
)

const namespace = "poolbank"

var logger = log.WithContext("pkg", "metrics")

// InitializePrometheusMetrics installs the prometheus implementation as
// the process metrics service. Calling it twice is a no-op.
func InitializePrometheusMetrics() {
	if _, ok := service.(*prometheusMetrics); !ok {
		service = newPrometheusMetrics()
	}
}

type prometheusMetrics struct {
	counters    sync.Map
	counterVecs sync.Map
	gauges      sync.Map
}

func newPrometheusMetrics() Metrics {
	return &prometheusMetrics{}
}

func (p *prometheusMetrics) GetOrCreateCountMeter(name string) CountMeter {
	if m, ok := p.counters.Load(name); ok {
		return m.(CountMeter)
	}
	meter := p.newCountMeter(name)
	p.counters.Store(name, meter)
	return meter
}

func (p *prometheusMetrics) GetOrCreateCountVecMeter(name string, labels []string) CountVecMeter {
	if m, ok := p.counterVecs.Load(name); ok {
		return m.(CountVecMeter)
	}
	meter := p.newCountVecMeter(name, labels)
	p.counterVecs.Store(name, meter)
	return meter
}

func (p *prometheusMetrics) GetOrCreateGaugeMeter(name string) GaugeMeter {
	if m, ok := p.gauges.Load(name); ok {
		return m.(GaugeMeter)
	}
	meter := p.newGaugeMeter(name)
	p.gauges.Store(name, meter)
	return meter
}

func (p *prometheusMetrics) GetOrCreateHandler() http.Handler {
	return promhttp.Handler()
}

func (p *prometheusMetrics) newCountMeter(name string) CountMeter {
	meter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
	})
	if err := prometheus.Register(meter); err != nil {
		logger.Warn("unable to register metric", "name", name, "err", err)
	}
	return &promCountMeter{meter}
}

func (p *prometheusMetrics) newCountVecMeter(name string, labels []string) CountVecMeter {
	meter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
	}, labels)
	if err := prometheus.Register(meter); err != nil {
		logger.Warn("unable to register metric", "name", name, "err", err)
	}
	return &promCountVecMeter{meter}
}

func (p *prometheusMetrics) newGaugeMeter(name string) GaugeMeter {
	meter := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
	})
	if err := prometheus.Register(meter); err != nil {
		logger.Warn("unable to register metric", "name", name, "err", err)
	}
	return &promGaugeMeter{meter}
}

type promCountMeter struct {
	counter prometheus.Counter
}

func (c *promCountMeter) Add(v int64) {
	c.counter.Add(float64(v))
}

type promCountVecMeter struct {
	counter *prometheus.CounterVec
}

func (c *promCountVecMeter) AddWithLabel(v int64, labels map[string]string) {
	c.counter.With(labels).Add(float64(v))
}

type promGaugeMeter struct {
	gauge prometheus.Gauge
}

func (g *promGaugeMeter) Add(v int64) {
	g.gauge.Add(float64(v))
}

func (g *promGaugeMeter) Set(v int64) {
	g.gauge.Set(float64(v))
}
