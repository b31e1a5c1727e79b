// mailbox.go

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

// mailbox holds at most one value per key. A later put for the same key
// overwrites an unconsumed value, and take removes what it returns.
type mailbox[K comparable, V any] struct {
	mu     sync.Mutex
	items  map[K]V
	notify chan struct{} // closed and replaced on every put
}

func newMailbox[K comparable, V any]() *mailbox[K, V] {
	return &mailbox[K, V]{
		items:  make(map[K]V),
		notify: make(chan struct{}),
	}
}

func (mb *mailbox[K, V]) put(k K, v V) {
	mb.mu.Lock()
	mb.items[k] = v
	close(mb.notify)
	mb.notify = make(chan struct{})
	mb.mu.Unlock()
}

// take waits up to timeout for a value under k. It returns early with
// ok false if closed is closed first.
func (mb *mailbox[K, V]) take(k K, timeout time.Duration, closed <-chan struct{}) (v V, ok bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		mb.mu.Lock()
		if v, ok = mb.items[k]; ok {
			delete(mb.items, k)
			mb.mu.Unlock()
			return v, true
		}
		notify := mb.notify
		mb.mu.Unlock()

		select {
		case <-notify:
		case <-timer.C:
			return v, false
		case <-closed:
			return v, false
		}
	}
}

func (mb *mailbox[K, V]) clear(k K) {
	mb.mu.Lock()
	delete(mb.items, k)
	mb.mu.Unlock()
}
