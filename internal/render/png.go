/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"

	"mapedit/internal/feature"
	"mapedit/internal/input"
)

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// WritePNG rasterizes fs and writes the image to path, creating parent
// directories.
func WritePNG(path string, fs []*feature.Feature, view input.Viewport, opt Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := EncodePNG(f, Raster(fs, view, opt)); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}

// Canvas is a layer Renderer that re-rasterizes lazily. Redraw only marks
// the image stale; Image renders when needed.
type Canvas struct {
	layer *feature.Layer
	opt   Options

	mu      sync.Mutex
	view    input.Viewport
	img     *image.RGBA
	dirty   bool
	redraws int
	// OnInvalidate, when set, is called after a redraw request, e.g. to
	// refresh a UI widget.
	OnInvalidate func()
}

// NewCanvas binds a canvas to l and installs it as the layer renderer.
func NewCanvas(l *feature.Layer, view input.Viewport, opt Options) *Canvas {
	c := &Canvas{layer: l, opt: opt, view: view, dirty: true}
	l.SetRenderer(c)
	return c
}

// Redraw implements feature.Renderer.
func (c *Canvas) Redraw(*feature.Feature) {
	c.mu.Lock()
	c.dirty = true
	c.redraws++
	cb := c.OnInvalidate
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// SetView changes the viewport and invalidates the image.
func (c *Canvas) SetView(v input.Viewport) {
	c.mu.Lock()
	c.view, c.dirty = v, true
	c.mu.Unlock()
}

func (c *Canvas) View() input.Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Image returns the current rendering.
func (c *Canvas) Image() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirty || c.img == nil {
		c.img = Raster(c.layer.Features(), c.view, c.opt)
		c.dirty = false
	}
	return c.img
}

// Redraws counts redraw requests since creation.
func (c *Canvas) Redraws() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redraws
}

var _ feature.Renderer = (*Canvas)(nil)
