// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// swapHandler routes records to an atomically replaceable inner handler.
// Derived handlers created by WithAttrs keep pointing at the shared slot,
// so a Swap reaches every logger created before it.
type swapHandler struct {
	inner *atomic.Pointer[slog.Handler]
	attrs []slog.Attr
}

func newSwapHandler(h slog.Handler) *swapHandler {
	s := &swapHandler{inner: new(atomic.Pointer[slog.Handler])}
	s.Swap(h)
	return s
}

// Swap replaces the inner handler for this slot and all derived handlers.
func (h *swapHandler) Swap(inner slog.Handler) {
	h.inner.Store(&inner)
}

func (h *swapHandler) current() slog.Handler {
	return *h.inner.Load()
}

func (h *swapHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.current().Enabled(ctx, lvl)
}

func (h *swapHandler) Handle(ctx context.Context, r slog.Record) error {
	if len(h.attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(h.attrs...)
	}
	return h.current().Handle(ctx, r)
}

func (h *swapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &swapHandler{inner: h.inner, attrs: merged}
}

func (h *swapHandler) WithGroup(name string) slog.Handler {
	return h.current().WithGroup(name)
}
