/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mapedit/internal/codec"
	"mapedit/internal/feature"
	"mapedit/internal/input"
	applog "mapedit/internal/log"
)

// History records geometry edits published on a layer and replays them.
// Snapshots are WKB encoded.
type History struct {
	layer *feature.Layer
	mgr   *Manager
	log   *slog.Logger
	now   func() time.Time

	mu        sync.Mutex
	base      map[string][]byte
	restoring bool
	// OnRestore is called after a feature's geometry was replaced, e.g. to
	// rebuild edit markers of a controller that has it selected.
	OnRestore func(f *feature.Feature)

	off []func()
}

// NewHistory subscribes to l. Call Close to detach.
func NewHistory(l *feature.Layer, m *Manager) *History {
	h := &History{
		layer: l,
		mgr:   m,
		log:   applog.WithComponent("undo"),
		now:   time.Now,
		base:  map[string][]byte{},
	}
	h.off = append(h.off,
		l.On(feature.EventFeaturesAdded, func(ev *feature.Event) {
			for _, f := range ev.Features {
				h.remember(f)
			}
		}),
		l.On(feature.EventSelectionStarted, func(ev *feature.Event) { h.remember(ev.Feature) }),
		l.On(feature.EventFeatureModified, func(ev *feature.Event) { h.record(ev.Feature) }),
		l.On(feature.EventFeaturesRemoved, func(ev *feature.Event) {
			for _, f := range ev.Features {
				h.mu.Lock()
				delete(h.base, f.ID)
				h.mu.Unlock()
				m.Forget(f.ID)
			}
		}),
	)
	return h
}

// Close removes the layer subscriptions.
func (h *History) Close() {
	for _, off := range h.off {
		off()
	}
	h.off = nil
}

func (h *History) encode(f *feature.Feature) ([]byte, bool) {
	if f == nil || f.Sketch || f.Geometry == nil {
		return nil, false
	}
	b, err := codec.MarshalWKB(f.Geometry)
	if err != nil {
		h.log.Warn("snapshot failed", slog.String("feature", f.ID), slog.Any("err", err))
		return nil, false
	}
	return b, true
}

func (h *History) remember(f *feature.Feature) {
	b, ok := h.encode(f)
	if !ok {
		return
	}
	h.mu.Lock()
	h.base[f.ID] = b
	h.mu.Unlock()
}

func (h *History) record(f *feature.Feature) {
	after, ok := h.encode(f)
	if !ok {
		return
	}
	h.mu.Lock()
	if h.restoring {
		h.mu.Unlock()
		return
	}
	before, known := h.base[f.ID]
	h.base[f.ID] = after
	h.mu.Unlock()
	if !known {
		return
	}
	if h.mgr.Push(Snapshot{FeatureID: f.ID, Before: before, After: after, TS: h.now()}) {
		h.log.Debug("edit recorded", slog.String("feature", f.ID), slog.Int("bytes", len(after)))
	}
}

// Undo reverts the latest edit of f. It reports whether anything changed.
func (h *History) Undo(f *feature.Feature) bool {
	if f == nil {
		return false
	}
	s, ok := h.mgr.Undo(f.ID)
	if !ok {
		return false
	}
	return h.restore(f, s.Before)
}

// Redo reapplies the latest undone edit of f.
func (h *History) Redo(f *feature.Feature) bool {
	if f == nil {
		return false
	}
	s, ok := h.mgr.Redo(f.ID)
	if !ok {
		return false
	}
	return h.restore(f, s.After)
}

func (h *History) restore(f *feature.Feature, blob []byte) bool {
	if f.Geometry == nil {
		return false
	}
	// Edits never change the top level kind, so the live geometry tells a
	// closed line string from a ring.
	g, err := codec.UnmarshalWKBAs(blob, f.Geometry.Kind())
	if err != nil {
		h.log.Error("restore failed", slog.String("feature", f.ID), slog.Any("err", err))
		return false
	}
	f.Geometry = g
	if f.State != feature.StateInsert && f.State != feature.StateDelete {
		f.ToState(feature.StateUpdate)
	}
	h.mu.Lock()
	h.base[f.ID] = blob
	h.restoring = true
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.restoring = false
		h.mu.Unlock()
	}()
	if h.OnRestore != nil {
		h.OnRestore(f)
	}
	h.layer.Redraw(f, f.Intent)
	h.layer.Notify(feature.Event{Type: feature.EventFeatureModified, Feature: f})
	if h.log.Enabled(context.Background(), slog.LevelDebug) {
		undo, redo := h.mgr.CanUndo(f.ID), h.mgr.CanRedo(f.ID)
		h.log.Debug("geometry restored", slog.String("feature", f.ID), slog.Bool("undo", undo), slog.Bool("redo", redo))
	}
	return true
}

// OnKeyDown undoes (Z) or redoes (Y) the edit of the selected feature.
func (h *History) OnKeyDown(code int) bool {
	sel := h.layer.SelectedFeatures()
	if len(sel) == 0 {
		return false
	}
	f := sel[len(sel)-1]
	switch code {
	case input.KeyZ:
		return h.Undo(f)
	case input.KeyY:
		return h.Redo(f)
	}
	return false
}

var (
	_ input.KeyHandler     = (*History)(nil)
	_ input.PointerHandler = (*History)(nil)
)

// History only listens to keys; pointer events pass through.
func (h *History) OnPointerDown(input.Pixel) bool { return false }
func (h *History) OnPointerMove(input.Pixel) bool { return false }
func (h *History) OnPointerUp(input.Pixel) bool   { return false }
