// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import "net/http"

type noopMetrics struct{}

func defaultNoopMetrics() Metrics { return &noopMetrics{} }

func (*noopMetrics) GetOrCreateCountMeter(string) CountMeter { return noopMeter }

func (*noopMetrics) GetOrCreateCountVecMeter(string, []string) CountVecMeter { return noopMeter }

func (*noopMetrics) GetOrCreateGaugeMeter(string) GaugeMeter { return noopMeter }

func (*noopMetrics) GetOrCreateHandler() http.Handler { return nil }

var noopMeter = noopMeters{}

type noopMeters struct{}

func (noopMeters) Add(int64) {}

func (noopMeters) Set(int64) {}

func (noopMeters) AddWithLabel(int64, map[string]string) {}
