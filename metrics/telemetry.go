// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package metrics is a singleton meter service. It defaults to a no-op
// implementation; the daemon swaps in the prometheus implementation at
// startup so library users pay nothing unless they opt in.
package metrics

import (
	"net/http"
	"sync"
)

var service Metrics = defaultNoopMetrics()

// Metrics defines the interface for metrics service implementations.
type Metrics interface {
	GetOrCreateCountMeter(name string) CountMeter
	GetOrCreateCountVecMeter(name string, labels []string) CountVecMeter
	GetOrCreateGaugeMeter(name string) GaugeMeter
	GetOrCreateHandler() http.Handler
}

// HTTPHandler returns the http handler for scraping metrics.
func HTTPHandler() http.Handler {
	return service.GetOrCreateHandler()
}

// CountMeter is a monotonically increasing counter.
type CountMeter interface {
	Add(int64)
}

func Counter(name string) CountMeter { return service.GetOrCreateCountMeter(name) }

// CountVecMeter is a counter with labels.
type CountVecMeter interface {
	AddWithLabel(int64, map[string]string)
}

func CounterVec(name string, labels []string) CountVecMeter {
	return service.GetOrCreateCountVecMeter(name, labels)
}

// GaugeMeter is a value that can go up and down.
type GaugeMeter interface {
	Add(int64)
	Set(int64)
}

func Gauge(name string) GaugeMeter {
	return service.GetOrCreateGaugeMeter(name)
}

// LazyLoad defers meter instantiation so package-level meters pick up the
// implementation installed at startup rather than the noop default.
func LazyLoad[T any](f func() T) func() T {
	var result T
	var once sync.Once
	return func() T {
		once.Do(func() {
			result = f()
		})
		return result
	}
}

func LazyLoadCounterVec(name string, labels []string) func() CountVecMeter {
	return LazyLoad(func() CountVecMeter {
		return CounterVec(name, labels)
	})
}

func LazyLoadGauge(name string) func() GaugeMeter {
	return LazyLoad(func() GaugeMeter {
		return Gauge(name)
	})
}
