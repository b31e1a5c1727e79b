// hooks.go

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
	"fmt"
	"strings"
)

// Hook is a mission action run after a mission item completes. The vehicle
// is held in place by hold while it runs; the hook may move the hold with
// Override. A hook must return; the engine does not time it out.
type Hook interface {
	Run(v *Vehicle, hold *GlobalHold) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(v *Vehicle, hold *GlobalHold) error

func (f HookFunc) Run(v *Vehicle, hold *GlobalHold) error { return f(v, hold) }

func validHookID(id string) bool {
	return !strings.ContainsAny(id, ",|")
}

// RegisterHook makes h callable from mission items by id, replacing any
// hook already registered under it.
func (m *Mission) RegisterHook(id string, h Hook) error {
	if id == "" || !validHookID(id) {
		return ErrInvalidHookID
	}
	m.mu.Lock()
	m.hooks[id] = h
	m.mu.Unlock()
	return nil
}

// CurrentHook returns the id of the hook being run, or "".
func (m *Mission) CurrentHook() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runningHook
}

// runHook runs the hook registered under id inside a global position hold.
// Unknown ids are skipped.
func (m *Mission) runHook(id string) {
	m.mu.Lock()
	h, ok := m.hooks[id]
	m.mu.Unlock()
	if !ok {
		m.lg.Warn("Mission hook not registered, skipping", "hook", id)
		return
	}

	hold, err := m.v.HoldGlobalPosition(0)
	if err != nil {
		m.lg.Warn("Cannot hold position for hook, skipping", "hook", id, "error", err)
		return
	}
	defer func() {
		if err := hold.Stop(m.v.cfg.HoldStopTimeout.D()); err != nil {
			m.lg.Warn("Hook hold did not stop", "hook", id, "error", err)
		}
	}()

	m.mu.Lock()
	m.runningHook = id
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.runningHook = ""
		m.mu.Unlock()
	}()

	m.lg.Info("Running mission hook", "hook", id)
	if err := callHook(h, m.v, hold); err != nil {
		m.lg.Warn("Mission hook failed", "hook", id, "error", err)
		return
	}
	m.lg.Info("Mission hook done", "hook", id)
}

func callHook(h Hook, v *Vehicle, hold *GlobalHold) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panic: %v", r)
		}
	}()
	return h.Run(v, hold)
}
