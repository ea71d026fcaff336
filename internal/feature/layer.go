/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package feature

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"sync"

	"mapedit/internal/geometry"
	applog "mapedit/internal/log"
)

// EventType names a layer notification.
type EventType string

const (
	EventBeforeSelect     EventType = "before-select"
	EventSelectionStarted EventType = "selection-started"
	EventVertexModified   EventType = "vertex-modified"
	EventVertexRemoved    EventType = "vertex-removed"
	EventFeatureModified  EventType = "feature-modified"
	EventAfterModified    EventType = "after-modified"
	EventFeaturesAdded    EventType = "features-added"
	EventFeaturesRemoved  EventType = "features-removed"
)

// Event is delivered to layer listeners.
type Event struct {
	Type    EventType
	Feature *Feature
	// Vertex is the affected point for vertex events.
	Vertex *geometry.Point
	// Pixel is the pointer position in screen space when known.
	Pixel geometry.Pt
	// Modified carries the session dirty flag for after-modified.
	Modified bool
	Features []*Feature

	vetoed bool
}

// Veto cancels a cancellable notification (before-select).
func (e *Event) Veto() { e.vetoed = true }

// Listener receives layer events in registration order.
type Listener func(ev *Event)

// Renderer is told when a feature's look changed.
type Renderer interface {
	Redraw(f *Feature)
}

type listenerEntry struct {
	id int
	fn Listener
}

// Layer is an in-memory feature store and notification sink. Feature order
// is drawing order; the last feature is on top.
type Layer struct {
	Name string

	mu        sync.RWMutex
	features  []*Feature
	selected  []*Feature
	listeners map[EventType][]listenerEntry
	nextID    int
	renderer  Renderer
	log       *slog.Logger
}

func NewLayer(name string) *Layer {
	return &Layer{
		Name:      name,
		listeners: make(map[EventType][]listenerEntry),
		log:       applog.WithComponent("layer").With(slog.String("layer", name)),
	}
}

// SetRenderer installs the redraw sink; nil disables it.
func (l *Layer) SetRenderer(r Renderer) {
	l.mu.Lock()
	l.renderer = r
	l.mu.Unlock()
}

// SetLogger replaces the layer logger.
func (l *Layer) SetLogger(lg *slog.Logger) {
	if lg != nil {
		l.log = lg
	}
}

// AddFeatures appends features on top. Features already present are skipped.
func (l *Layer) AddFeatures(fs ...*Feature) {
	var added []*Feature
	l.mu.Lock()
	for _, f := range fs {
		if f == nil || slices.Contains(l.features, f) {
			continue
		}
		f.destroyed = false
		l.features = append(l.features, f)
		if !f.Sketch {
			added = append(added, f)
		}
	}
	r := l.renderer
	l.mu.Unlock()
	if r != nil {
		for _, f := range fs {
			if f != nil {
				r.Redraw(f)
			}
		}
	}
	if len(added) > 0 {
		l.Notify(Event{Type: EventFeaturesAdded, Features: added})
	}
}

// RemoveFeatures detaches features from the layer and its selection.
func (l *Layer) RemoveFeatures(fs ...*Feature) {
	removed := l.remove(fs)
	if len(removed) > 0 {
		l.Notify(Event{Type: EventFeaturesRemoved, Features: removed})
	}
}

// DestroyFeatures removes features and marks them destroyed. Marker
// geometries are not touched: a real-vertex marker shares its point with
// the edited geometry.
func (l *Layer) DestroyFeatures(fs ...*Feature) {
	removed := l.remove(fs)
	for _, f := range fs {
		if f != nil {
			f.destroyed = true
		}
	}
	if len(removed) > 0 {
		l.Notify(Event{Type: EventFeaturesRemoved, Features: removed})
	}
}

func (l *Layer) remove(fs []*Feature) []*Feature {
	var removed []*Feature
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range fs {
		if i := slices.Index(l.features, f); i >= 0 {
			l.features = slices.Delete(l.features, i, i+1)
			if !f.Sketch {
				removed = append(removed, f)
			}
		}
		if i := slices.Index(l.selected, f); i >= 0 {
			l.selected = slices.Delete(l.selected, i, i+1)
		}
	}
	return removed
}

// Features returns a copy of all features including sketch markers.
func (l *Layer) Features() []*Feature {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.features)
}

// Persistent returns the non-sketch features.
func (l *Layer) Persistent() []*Feature {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Feature, 0, len(l.features))
	for _, f := range l.features {
		if !f.Sketch {
			out = append(out, f)
		}
	}
	return out
}

// Sketches returns the transient marker features.
func (l *Layer) Sketches() []*Feature {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*Feature
	for _, f := range l.features {
		if f.Sketch {
			out = append(out, f)
		}
	}
	return out
}

// Get looks a feature up by ID.
func (l *Layer) Get(id string) *Feature {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, f := range l.features {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// Contains reports whether f is on the layer.
func (l *Layer) Contains(f *Feature) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Contains(l.features, f)
}

func (l *Layer) SelectedFeatures() []*Feature {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.selected)
}

func (l *Layer) IsSelected(f *Feature) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Contains(l.selected, f)
}

// Select adds f to the selected set.
func (l *Layer) Select(f *Feature) {
	l.mu.Lock()
	if !slices.Contains(l.selected, f) {
		l.selected = append(l.selected, f)
	}
	l.mu.Unlock()
}

// Deselect removes f from the selected set.
func (l *Layer) Deselect(f *Feature) {
	l.mu.Lock()
	if i := slices.Index(l.selected, f); i >= 0 {
		l.selected = slices.Delete(l.selected, i, i+1)
	}
	l.mu.Unlock()
}

// Redraw restyles f with intent and forwards to the renderer.
func (l *Layer) Redraw(f *Feature, intent Intent) {
	if f == nil {
		return
	}
	if intent != "" {
		f.Intent = intent
	}
	l.mu.RLock()
	r := l.renderer
	l.mu.RUnlock()
	if r != nil {
		r.Redraw(f)
	}
}

// FeatureAt returns the top-most feature within tol of pt. Sketch markers
// are checked first so handles win over the feature body beneath them.
func (l *Layer) FeatureAt(pt geometry.Pt, tol float64) *Feature {
	l.mu.RLock()
	fs := slices.Clone(l.features)
	l.mu.RUnlock()
	var best *Feature
	bestD := math.Inf(1)
	for i := len(fs) - 1; i >= 0; i-- {
		f := fs[i]
		if !f.Sketch || f.Geometry == nil {
			continue
		}
		if d := geometry.Distance(f.Geometry, pt); d <= tol && d < bestD {
			best, bestD = f, d
		}
	}
	if best != nil {
		return best
	}
	for i := len(fs) - 1; i >= 0; i-- {
		f := fs[i]
		if f.Sketch || f.Geometry == nil {
			continue
		}
		if geometry.Distance(f.Geometry, pt) <= tol {
			return f
		}
	}
	return nil
}

// On registers fn for t and returns a function that removes it.
func (l *Layer) On(t EventType, fn Listener) (remove func()) {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.listeners[t] = append(l.listeners[t], listenerEntry{id: id, fn: fn})
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		ls := l.listeners[t]
		for i, e := range ls {
			if e.id == id {
				l.listeners[t] = slices.Delete(ls, i, i+1)
				return
			}
		}
	}
}

// Notify delivers ev to listeners of its type and reports whether nobody
// vetoed it. Listeners run outside the layer lock.
func (l *Layer) Notify(ev Event) bool {
	l.mu.RLock()
	ls := slices.Clone(l.listeners[ev.Type])
	l.mu.RUnlock()
	for _, e := range ls {
		e.fn(&ev)
	}
	if l.log.Enabled(context.Background(), slog.LevelDebug) {
		attrs := []any{slog.String("event", string(ev.Type)), slog.Bool("vetoed", ev.vetoed)}
		if ev.Feature != nil {
			attrs = append(attrs, slog.String("feature", ev.Feature.ID))
		}
		l.log.Debug("notify", attrs...)
	}
	return !ev.vetoed
}
