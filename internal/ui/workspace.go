/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"mapedit/internal/attributes"
	"mapedit/internal/config"
	"mapedit/internal/crash"
	"mapedit/internal/editing"
	"mapedit/internal/feature"
	"mapedit/internal/geometry"
	"mapedit/internal/input"
	applog "mapedit/internal/log"
	"mapedit/internal/measure"
	"mapedit/internal/render"
	"mapedit/internal/shapes"
	"mapedit/internal/spatial"
	"mapedit/internal/storage"
	"mapedit/internal/undo"
)

// Priorities on the workspace dispatcher. The controller sees input first.
const (
	priorityController = 10
	priorityHistory    = 0
)

// Workspace wires one editable layer: the controller and undo history share
// a dispatcher, a canvas renders the layer and a recorder journals edits.
// It backs both the desktop UI and headless replays.
type Workspace struct {
	Layer      *feature.Layer
	Controller *editing.Controller
	History    *undo.History
	Dispatcher *input.Dispatcher
	Canvas     *render.Canvas
	Journal    *storage.Journal
	Attributes *attributes.Editor
	// Measurements holds the latest measurement of the selected feature.
	Measurements *measure.MemorySink

	cfg      config.AppConfig
	ropt     render.Options
	undoMgr  *undo.Manager
	recorder *storage.Recorder
	meter    *measure.Tool
	tracker  *shapes.Tracker
	log      *slog.Logger
}

// Open builds a workspace from cfg and restores the journaled features.
// A zero view is fitted to the restored features once they are loaded.
func Open(ctx context.Context, cfg config.AppConfig, view input.Viewport) (*Workspace, error) {
	opts, err := cfg.Editing.Options()
	if err != nil {
		return nil, err
	}
	ropt, err := cfg.Render.Options()
	if err != nil {
		return nil, err
	}
	var schema []byte
	if cfg.Editing.AttributeSchema != "" {
		if schema, err = os.ReadFile(cfg.Editing.AttributeSchema); err != nil {
			return nil, fmt.Errorf("read attribute schema: %w", err)
		}
	}
	dir, err := cfg.Storage.JournalDir()
	if err != nil {
		return nil, err
	}
	j, err := storage.OpenJournal(ctx, dir)
	if err != nil {
		return nil, err
	}
	restored, err := j.LoadFeatures(ctx)
	if err != nil {
		_ = j.Close()
		return nil, fmt.Errorf("restore journal: %w", err)
	}

	w := &Workspace{Journal: j, cfg: cfg, ropt: ropt, log: applog.WithLayer(applog.WithComponent("workspace"), cfg.Backend.Layer)}
	w.Layer = feature.NewLayer(cfg.Backend.Layer)
	if w.Attributes, err = attributes.NewEditor(w.Layer, schema); err != nil {
		_ = j.Close()
		return nil, err
	}
	if view.Width == 0 || view.Height == 0 {
		view = FitFeatures(restored, 1000, 700)
	}
	w.Canvas = render.NewCanvas(w.Layer, view, ropt)
	w.Layer.AddFeatures(restored...)
	w.recorder = storage.NewRecorder(ctx, j, w.Layer)

	w.Dispatcher = input.NewDispatcher()
	opts.Projection = func(px input.Pixel) geometry.Pt { return w.Canvas.View().ToMap(px) }
	opts.Dispatcher = w.Dispatcher
	opts.Priority = priorityController
	if opts.BySegment {
		opts.SegmentIndex = spatial.NewIndex()
	}
	w.Controller, err = editing.NewController(w.Layer, opts)
	if err != nil {
		w.recorder.Close()
		w.Attributes.Close()
		_ = j.Close()
		return nil, err
	}
	w.tracker = shapes.Track(w.Controller)
	w.Measurements = &measure.MemorySink{}
	w.meter = measure.NewTool(w.Layer, w.Measurements)

	w.undoMgr = cfg.Undo.Manager()
	w.History = undo.NewHistory(w.Layer, w.undoMgr)
	w.History.OnRestore = func(f *feature.Feature) {
		if w.Controller.Selected() == f {
			w.Controller.ResetVertices()
		}
	}
	w.Dispatcher.Register(w.History, priorityHistory)
	w.Controller.Activate()

	w.log.Info("workspace opened",
		slog.String("journal", j.Path()),
		slog.Int("features", len(restored)),
		slog.String("mode", w.Controller.Mode().String()))
	return w, nil
}

// RenderOptions are the configured theme and label settings.
func (w *Workspace) RenderOptions() render.Options { return w.ropt }

// PDFOptions prints with the configured theme under title.
func (w *Workspace) PDFOptions(title string) render.PDFOptions {
	return render.PDFOptions{Title: title, Margin: 36, Theme: w.ropt.Theme, LabelKey: w.ropt.LabelKey, Footer: true}
}

// Import adds features to the layer; the recorder journals them.
func (w *Workspace) Import(fs ...*feature.Feature) { w.Layer.AddFeatures(fs...) }

// Fit points the canvas at the current features.
func (w *Workspace) Fit() {
	v := w.Canvas.View()
	w.Canvas.SetView(FitFeatures(w.Layer.Persistent(), v.Width, v.Height))
}

func (w *Workspace) PointerDown(px input.Pixel) bool { return w.Dispatcher.PointerDown(px) }
func (w *Workspace) PointerMove(px input.Pixel) bool { return w.Dispatcher.PointerMove(px) }
func (w *Workspace) PointerUp(px input.Pixel) bool   { return w.Dispatcher.PointerUp(px) }
func (w *Workspace) KeyDown(code int) bool           { return w.Dispatcher.KeyDown(code) }

// Select starts editing the feature whose ID or name attribute is ref.
func (w *Workspace) Select(ref string) bool {
	f := w.Layer.Get(ref)
	if f == nil {
		for _, c := range w.Layer.Persistent() {
			if name, _ := c.Attributes["name"].(string); name == ref {
				f = c
				break
			}
		}
	}
	return f != nil && w.Controller.SelectFeature(f)
}

// Unselect ends editing of the selected feature.
func (w *Workspace) Unselect() bool {
	f := w.Controller.Selected()
	return f != nil && w.Controller.UnselectFeature(f)
}

// SetMode switches the edit mode, e.g. "reshape|drag".
func (w *Workspace) SetMode(mode string) error {
	m, ok := editing.ParseMode(mode)
	if !ok {
		return fmt.Errorf("unknown edit mode %q", mode)
	}
	w.Controller.SetMode(m)
	return nil
}

// Undo reverts the last edit of the selected feature.
func (w *Workspace) Undo() bool { return w.History.Undo(w.Controller.Selected()) }
func (w *Workspace) Redo() bool { return w.History.Redo(w.Controller.Selected()) }

// UndoStats reports the memory held by the undo history.
func (w *Workspace) UndoStats() (bytes, features, snapshots int) { return w.undoMgr.Stats() }

// Crash returns what crash.Recover should preserve.
func (w *Workspace) Crash() *crash.Session {
	if w == nil {
		return nil
	}
	return &crash.Session{Journal: w.Journal, Layer: w.Layer}
}

// Close stops editing, trims the edit log to the configured depth and
// closes the journal.
func (w *Workspace) Close() error {
	w.Controller.Deactivate()
	w.Dispatcher.Unregister(w.History)
	w.History.Close()
	w.recorder.Close()
	w.meter.Close()
	w.tracker.Close()
	w.Attributes.Close()

	var errs []error
	if keep := w.cfg.Storage.KeepEdits; keep > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		for _, f := range w.Layer.Persistent() {
			if _, err := w.Journal.PruneEdits(ctx, f.ID, keep); err != nil {
				errs = append(errs, err)
				break
			}
		}
		cancel()
	}
	if err := w.Journal.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// FitFeatures returns a w x h viewport showing every feature. An empty set
// gets a unit viewport centred on the origin.
func FitFeatures(fs []*feature.Feature, w, h int) input.Viewport {
	var r geometry.Rect
	seen := false
	for _, f := range fs {
		if f == nil || f.Geometry == nil || f.Sketch {
			continue
		}
		b := f.Geometry.Bounds()
		if !seen {
			r, seen = b, true
			continue
		}
		r = r.Union(b)
	}
	if !seen {
		r = geometry.R(-float64(w)/2, -float64(h)/2, float64(w), float64(h))
	}
	return input.Fit(r, w, h, 20)
}
