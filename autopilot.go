// autopilot.go

// This file contains the position hold controllers.

// Copyright (C) 2018  Steve Merrony

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package mavguide

import (
	"sync"
	"time"
)

// GlobalTarget is a position with altitude relative to home.
type GlobalTarget struct {
	Lat, Lon    float64
	RelativeAlt float64
}

// LocalTarget is a position in the local NED frame.
type LocalTarget struct {
	X, Y, Z float64
}

// Hold is a running position hold. The hold loop re-sends its target every
// interval while it is active and the vehicle stays in GUIDED.
type Hold[T GlobalTarget | LocalTarget] struct {
	mu       sync.Mutex
	active   bool
	skip     bool
	current  T
	override *T

	cancelOnce sync.Once
	cancel     chan struct{}
	ended      chan struct{}
}

// GlobalHold is the hold handed to mission hooks.
type GlobalHold = Hold[GlobalTarget]

func newHold[T GlobalTarget | LocalTarget](t T) *Hold[T] {
	return &Hold[T]{
		active:  true,
		current: t,
		cancel:  make(chan struct{}),
		ended:   make(chan struct{}),
	}
}

// Target returns the position currently being held.
func (h *Hold[T]) Target() T {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Override moves the hold to t on the next tick without stopping it.
// A second Override before that tick replaces the first.
func (h *Hold[T]) Override(t T) {
	h.mu.Lock()
	h.override = &t
	h.mu.Unlock()
}

// OverridePending reports whether an Override has not yet been applied.
func (h *Hold[T]) OverridePending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.override != nil
}

// SetSkip pauses (true) or resumes sending setpoints without ending the hold.
func (h *Hold[T]) SetSkip(skip bool) {
	h.mu.Lock()
	h.skip = skip
	h.mu.Unlock()
}

// Active reports whether the hold has not been cancelled.
func (h *Hold[T]) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// Cancel asks the hold loop to end and returns at once.
func (h *Hold[T]) Cancel() {
	h.mu.Lock()
	h.active = false
	h.mu.Unlock()
	h.cancelOnce.Do(func() { close(h.cancel) })
}

// Ended is closed once the hold loop has returned.
func (h *Hold[T]) Ended() <-chan struct{} { return h.ended }

// Stop cancels the hold and waits up to timeout for its loop to end.
func (h *Hold[T]) Stop(timeout time.Duration) error {
	h.Cancel()
	select {
	case <-h.ended:
		return nil
	case <-time.After(timeout):
		return ErrHoldTimeout
	}
}

// next returns the setpoint for this tick, applying any pending override.
func (h *Hold[T]) next() (t T, skip bool, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active {
		return t, false, false
	}
	if h.override != nil {
		h.current = *h.override
		h.override = nil
	}
	return h.current, h.skip, true
}

func (v *Vehicle) acquireHold() error {
	v.holdMu.Lock()
	defer v.holdMu.Unlock()
	if v.holding {
		return ErrHoldActive
	}
	v.holding = true
	return nil
}

func (v *Vehicle) releaseHold() {
	v.holdMu.Lock()
	v.holding = false
	v.holdMu.Unlock()
}

// HoldGlobalPosition starts holding the current global position, re-sending
// it every interval (Config.HoldInterval if interval is 0). Only one hold
// may run at a time.
func (v *Vehicle) HoldGlobalPosition(interval time.Duration) (*Hold[GlobalTarget], error) {
	if v.FlightMode() != ModeGuided {
		return nil, ErrNotGuided
	}
	fd := v.Telemetry()
	if !fd.HasGlobalPosition() {
		return nil, ErrNoGlobalPosition
	}
	if err := v.acquireHold(); err != nil {
		return nil, err
	}
	h := newHold(GlobalTarget{
		Lat:         fd.GlobalPosition.Lat,
		Lon:         fd.GlobalPosition.Lon,
		RelativeAlt: fd.GlobalPosition.RelativeAlt,
	})
	go runHold(v, h, v.holdInterval(interval), v.sendGlobalTarget)
	return h, nil
}

// HoldLocalPosition is HoldGlobalPosition in the local NED frame.
func (v *Vehicle) HoldLocalPosition(interval time.Duration) (*Hold[LocalTarget], error) {
	if v.FlightMode() != ModeGuided {
		return nil, ErrNotGuided
	}
	fd := v.Telemetry()
	if !fd.HasLocalPosition() {
		return nil, ErrNoLocalPosition
	}
	if err := v.acquireHold(); err != nil {
		return nil, err
	}
	h := newHold(LocalTarget{X: fd.LocalPosition.X, Y: fd.LocalPosition.Y, Z: fd.LocalPosition.Z})
	go runHold(v, h, v.holdInterval(interval), v.sendLocalTarget)
	return h, nil
}

func (v *Vehicle) holdInterval(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	if d = v.cfg.HoldInterval.D(); d > 0 {
		return d
	}
	return 250 * time.Millisecond
}

func runHold[T GlobalTarget | LocalTarget](v *Vehicle, h *Hold[T], interval time.Duration, send func(T) error) {
	defer func() {
		h.mu.Lock()
		h.active = false
		h.mu.Unlock()
		v.releaseHold()
		close(h.ended)
	}()

	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		t, skip, ok := h.next()
		if !ok {
			v.lg.Debug("Hold cancelled")
			return
		}
		if mode := v.FlightMode(); mode != ModeGuided {
			v.lg.Info("Hold ended by mode change", "mode", mode)
			return
		}
		if !skip {
			if err := send(t); err != nil {
				v.lg.Warn("Hold setpoint not sent", "error", err)
			}
		}
		select {
		case <-tick.C:
		case <-h.cancel:
		case <-v.linkDone:
			return
		}
	}
}
