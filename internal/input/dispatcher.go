/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package input

import (
	"slices"
	"sync"
)

type registration struct {
	h        PointerHandler
	priority int
	seq      int
}

// Dispatcher routes pointer and key events to registered handlers, highest
// priority first (ties go to the most recent registration). A handler that
// consumes a pointer-down captures the rest of the gesture.
// Handlers may register and unregister while an event is delivered.
type Dispatcher struct {
	// deliver serialises events; mu guards the registry.
	deliver sync.Mutex
	mu      sync.Mutex
	regs    []registration
	seq     int
	capture PointerHandler
}

func NewDispatcher() *Dispatcher { return &Dispatcher{} }

// Register adds h at priority. Registering again updates the priority.
func (d *Dispatcher) Register(h PointerHandler, priority int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	if i := d.index(h); i >= 0 {
		d.regs = slices.Delete(d.regs, i, i+1)
	}
	d.regs = append(d.regs, registration{h: h, priority: priority, seq: d.seq})
	slices.SortStableFunc(d.regs, func(a, b registration) int {
		if a.priority != b.priority {
			return b.priority - a.priority
		}
		return b.seq - a.seq
	})
}

// Unregister removes h and releases its capture.
func (d *Dispatcher) Unregister(h PointerHandler) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.capture == h {
		d.capture = nil
	}
	i := d.index(h)
	if i < 0 {
		return false
	}
	d.regs = slices.Delete(d.regs, i, i+1)
	return true
}

// Registered reports whether h is registered.
func (d *Dispatcher) Registered(h PointerHandler) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.index(h) >= 0
}

// Top returns the highest priority handler, or nil.
func (d *Dispatcher) Top() PointerHandler {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.regs) == 0 {
		return nil
	}
	return d.regs[0].h
}

func (d *Dispatcher) index(h PointerHandler) int {
	return slices.IndexFunc(d.regs, func(r registration) bool { return r.h == h })
}

func (d *Dispatcher) snapshot() ([]PointerHandler, PointerHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]PointerHandler, len(d.regs))
	for i, r := range d.regs {
		out[i] = r.h
	}
	return out, d.capture
}

func (d *Dispatcher) setCapture(h PointerHandler) {
	d.mu.Lock()
	d.capture = h
	d.mu.Unlock()
}

// PointerDown offers the event in priority order until one handler
// consumes it. That handler receives the moves and the up of the gesture.
func (d *Dispatcher) PointerDown(px Pixel) bool {
	d.deliver.Lock()
	defer d.deliver.Unlock()
	d.setCapture(nil)
	hs, _ := d.snapshot()
	for _, h := range hs {
		if h.OnPointerDown(px) {
			d.setCapture(h)
			return true
		}
	}
	return false
}

func (d *Dispatcher) PointerMove(px Pixel) bool {
	d.deliver.Lock()
	defer d.deliver.Unlock()
	hs, c := d.snapshot()
	if c != nil {
		return c.OnPointerMove(px)
	}
	for _, h := range hs {
		if h.OnPointerMove(px) {
			return true
		}
	}
	return false
}

func (d *Dispatcher) PointerUp(px Pixel) bool {
	d.deliver.Lock()
	defer d.deliver.Unlock()
	hs, c := d.snapshot()
	if c != nil {
		d.setCapture(nil)
		return c.OnPointerUp(px)
	}
	for _, h := range hs {
		if h.OnPointerUp(px) {
			return true
		}
	}
	return false
}

// KeyDown goes to handlers that also implement KeyHandler.
func (d *Dispatcher) KeyDown(code int) bool {
	d.deliver.Lock()
	defer d.deliver.Unlock()
	hs, _ := d.snapshot()
	for _, h := range hs {
		if kh, ok := h.(KeyHandler); ok && kh.OnKeyDown(code) {
			return true
		}
	}
	return false
}
