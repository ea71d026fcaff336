//go:build fyne && cgo

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
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"mapedit/internal/codec"
	"mapedit/internal/config"
	"mapedit/internal/crash"
	"mapedit/internal/editing"
	"mapedit/internal/input"
	applog "mapedit/internal/log"
	"mapedit/internal/render"
	"mapedit/internal/version"
)

var modeChoices = []string{"reshape", "resize", "rotate", "drag", "reshape|drag", "resize|rotate|drag"}

// Run opens the journal configured in cfg and starts the desktop editor.
func Run(cfg config.AppConfig) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	ws, err := Open(context.Background(), cfg, input.Viewport{})
	if err != nil {
		return err
	}
	defer func() {
		if err := ws.Close(); err != nil {
			l.Error("workspace close failed", slog.Any("err", err))
		}
	}()
	defer crash.Recover(ws.Crash())

	fyneApp := app.NewWithID("mapedit")
	w := fyneApp.NewWindow(fmt.Sprintf("mapedit: %s", ws.Layer.Name))
	// Restore window size from preferences (with sane minimums)
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1200), 800)
	winH := max(prefs.IntWithFallback("window.height", 800), 600)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	measured := widget.NewLabel("")
	mc := NewMapCanvas(ws)

	// Attribute panel (right)
	var fields []string
	attrList := widget.NewList(
		func() int { return len(fields) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i >= 0 && int(i) < len(fields) {
				o.(*widget.Label).SetText(fields[i])
			} else {
				o.(*widget.Label).SetText("")
			}
		},
	)
	refreshInfo := func() {
		if r, ok := ws.Measurements.Current(); ok {
			measured.SetText(r.String())
		} else {
			measured.SetText("")
		}
		fields = fields[:0]
		for _, f := range ws.Attributes.Fields() {
			fields = append(fields, fmt.Sprintf("%s: %v", f.Name, f.Value))
		}
		attrList.Refresh()
	}
	mc.OnInput = refreshInfo

	attrKey := widget.NewEntry()
	attrKey.SetPlaceHolder("name")
	attrVal := widget.NewEntry()
	attrVal.SetPlaceHolder("value (empty deletes)")
	attrApply := widget.NewButton("Apply", func() {
		key := strings.TrimSpace(attrKey.Text)
		if key == "" {
			return
		}
		var v any
		if attrVal.Text != "" {
			v = attrVal.Text
		}
		if err := ws.Attributes.Apply(map[string]any{key: v}); err != nil {
			dialog.ShowError(err, w)
			return
		}
		status.SetText(fmt.Sprintf("Attribute %q updated.", key))
		refreshInfo()
	})
	right := container.NewBorder(widget.NewLabel("Attributes"), container.NewVBox(attrKey, attrVal, attrApply), nil, nil, attrList)

	// Mode and history controls (top)
	modeSel := widget.NewSelect(modeChoices, func(s string) {
		m, ok := editing.ParseMode(s)
		if !ok {
			return
		}
		ws.Controller.SetMode(m)
		status.SetText("Mode: " + m.String())
		mc.Refresh()
	})
	modeSel.SetSelected(ws.Controller.Mode().String())
	undoLast := func() {
		if ws.Undo() {
			status.SetText("Undone.")
			refreshInfo()
		}
	}
	redoLast := func() {
		if ws.Redo() {
			status.SetText("Redone.")
			refreshInfo()
		}
	}
	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.ContentUndoIcon(), undoLast),
		widget.NewToolbarAction(theme.ContentRedoIcon(), redoLast),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ZoomFitIcon(), func() {
			ws.Fit()
			mc.Refresh()
		}),
	)
	top := container.NewHBox(toolbar, widget.NewLabel("Mode:"), modeSel)
	bottom := container.NewHBox(status, widget.NewSeparator(), measured)

	w.SetContent(container.NewBorder(top, bottom, nil, right, mc))

	// File menu
	importItem := fyne.NewMenuItem("Import GeoJSON…", func() {
		l.Info("menu: import geojson")
		open := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil || rc == nil {
				return
			}
			defer func() { _ = rc.Close() }()
			fs, err := codec.ReadGeoJSON(rc)
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			ws.Import(fs...)
			ws.Fit()
			mc.Refresh()
			status.SetText(fmt.Sprintf("Imported %d features.", len(fs)))
		}, w)
		open.SetFilter(fstorage.NewExtensionFileFilter([]string{".geojson", ".json"}))
		open.Show()
	})
	exportItem := fyne.NewMenuItem("Export GeoJSON…", func() {
		save := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil || wc == nil {
				return
			}
			defer func() { _ = wc.Close() }()
			if err := codec.WriteGeoJSON(wc, ws.Layer.Persistent()); err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText("Exported GeoJSON to " + wc.URI().Path())
		}, w)
		save.SetFileName(ws.Layer.Name + ".geojson")
		save.Show()
	})
	pngItem := fyne.NewMenuItem("Export PNG…", func() {
		save := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil || wc == nil {
				return
			}
			defer func() { _ = wc.Close() }()
			img := render.Raster(ws.Layer.Persistent(), ws.Canvas.View(), ws.RenderOptions())
			if err := render.EncodePNG(wc, img); err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText("Exported PNG to " + wc.URI().Path())
		}, w)
		save.SetFileName(ws.Layer.Name + ".png")
		save.SetFilter(fstorage.NewExtensionFileFilter([]string{".png"}))
		save.Show()
	})
	pdfItem := fyne.NewMenuItem("Print to PDF…", func() {
		save := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil || wc == nil {
				return
			}
			// gofpdf writes by path; release the handle first
			path := wc.URI().Path()
			_ = wc.Close()
			if err := render.PrintPDF(path, ws.Layer.Persistent(), ws.Canvas.View(), ws.PDFOptions(ws.Layer.Name)); err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText("Printed to " + path)
		}, w)
		save.SetFileName(ws.Layer.Name + ".pdf")
		save.SetFilter(fstorage.NewExtensionFileFilter([]string{".pdf"}))
		save.Show()
	})
	fileMenu := fyne.NewMenu("File", importItem, exportItem, fyne.NewMenuItemSeparator(), pngItem, pdfItem)

	undoItem := fyne.NewMenuItem("Undo", undoLast)
	redoItem := fyne.NewMenuItem("Redo", redoLast)
	undoItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault}
	redoItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierShortcutDefault}
	statsItem := fyne.NewMenuItem("Undo Memory…", func() {
		bytes, feats, snaps := ws.UndoStats()
		dialog.ShowInformation("Undo Memory", fmt.Sprintf("%d snapshots for %d features, %d bytes", snaps, feats, bytes), w)
	})
	editMenu := fyne.NewMenu("Edit", undoItem, redoItem, fyne.NewMenuItemSeparator(), statsItem)

	aboutItem := fyne.NewMenuItem("About mapedit", func() {
		l.Info("menu: about")
		exe, _ := os.Executable()
		info := fmt.Sprintf("mapedit\nVersion: %s\nOS: %s\nArch: %s\nGo: %s\nExecutable: %s\nJournal: %s",
			version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version(), exe, ws.Journal.Path())
		dialog.ShowInformation("Installation Environment", info, w)
	})
	w.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, fyne.NewMenu("About", aboutItem)))

	// Persist preferences on close
	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		w.Close()
	})

	w.ShowAndRun()
	return nil
}

// MapCanvas shows the workspace canvas and feeds pointer and key input to
// its dispatcher. Gestures nobody on the dispatcher claims pan the map; the
// wheel zooms about the cursor.
type MapCanvas struct {
	widget.BaseWidget
	ws *Workspace
	// OnInput runs after every pointer or key event.
	OnInput func()

	down    bool
	panning bool
}

func NewMapCanvas(ws *Workspace) *MapCanvas {
	m := &MapCanvas{ws: ws}
	m.ExtendBaseWidget(m)
	ws.Canvas.OnInvalidate = m.Refresh
	return m
}

func (m *MapCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.White)
	img := canvas.NewImageFromImage(m.ws.Canvas.Image())
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScalePixels
	return &mapCanvasRenderer{mc: m, bg: bg, img: img, objects: []fyne.CanvasObject{bg, img}}
}

// PreferredSize sets a decent default size for the widget.
func (m *MapCanvas) PreferredSize() fyne.Size { return fyne.NewSize(800, 600) }

func toPixel(p fyne.Position) input.Pixel { return input.Pixel{X: float64(p.X), Y: float64(p.Y)} }

func (m *MapCanvas) changed() {
	if m.OnInput != nil {
		m.OnInput()
	}
}

// resize keeps the map centre fixed while the widget size changes.
func (m *MapCanvas) resize(size fyne.Size) {
	v := m.ws.Canvas.View()
	w, h := int(size.Width), int(size.Height)
	if w <= 0 || h <= 0 || (v.Width == w && v.Height == h) {
		return
	}
	c := v.ToMap(input.Pixel{X: float64(v.Width) / 2, Y: float64(v.Height) / 2})
	v.Width, v.Height = w, h
	v.Origin.X = c.X - v.Resolution*float64(w)/2
	v.Origin.Y = c.Y + v.Resolution*float64(h)/2
	m.ws.Canvas.SetView(v)
}

func (m *MapCanvas) pan(dx, dy float32) {
	v := m.ws.Canvas.View()
	v.Origin.X -= float64(dx) * v.Resolution
	v.Origin.Y += float64(dy) * v.Resolution
	m.ws.Canvas.SetView(v)
	m.Refresh()
}

// MouseDown starts a gesture and takes keyboard focus.
func (m *MapCanvas) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	if c := fyne.CurrentApp().Driver().CanvasForObject(m); c != nil {
		c.Focus(m)
	}
	m.down = true
	m.panning = !m.ws.Dispatcher.PointerDown(toPixel(e.Position))
	m.changed()
}

func (m *MapCanvas) MouseUp(e *desktop.MouseEvent) {
	if !m.down {
		return
	}
	m.down, m.panning = false, false
	m.ws.Dispatcher.PointerUp(toPixel(e.Position))
	m.changed()
}

func (m *MapCanvas) Dragged(e *fyne.DragEvent) {
	if !m.down {
		return
	}
	if m.panning {
		m.pan(e.Dragged.DX, e.Dragged.DY)
		return
	}
	m.ws.Dispatcher.PointerMove(toPixel(e.Position))
	m.changed()
}

func (m *MapCanvas) DragEnd() {}

func (m *MapCanvas) MouseIn(*desktop.MouseEvent) {}
func (m *MapCanvas) MouseOut()                   {}

// MouseMoved tracks the hover position used by vertex deletion.
func (m *MapCanvas) MouseMoved(e *desktop.MouseEvent) {
	if m.down {
		return
	}
	m.ws.Dispatcher.PointerMove(toPixel(e.Position))
}

// Scrolled zooms about the cursor.
func (m *MapCanvas) Scrolled(e *fyne.ScrollEvent) {
	v := m.ws.Canvas.View()
	px := toPixel(e.Position)
	at := v.ToMap(px)
	if e.Scrolled.DY > 0 {
		v.Resolution /= 1.2
	} else if e.Scrolled.DY < 0 {
		v.Resolution *= 1.2
	}
	v.Origin.X = at.X - px.X*v.Resolution
	v.Origin.Y = at.Y + px.Y*v.Resolution
	m.ws.Canvas.SetView(v)
	m.Refresh()
}

func (m *MapCanvas) FocusGained()   {}
func (m *MapCanvas) FocusLost()     {}
func (m *MapCanvas) TypedRune(rune) {}

func (m *MapCanvas) TypedKey(e *fyne.KeyEvent) {
	if code, ok := keyCode(e.Name); ok && m.ws.Dispatcher.KeyDown(code) {
		m.changed()
	}
}

var keyCodes = map[fyne.KeyName]int{
	fyne.KeyBackspace: input.KeyBackspace,
	fyne.KeyEscape:    input.KeyEscape,
	fyne.KeyDelete:    input.KeyDelete,
	fyne.KeyD:         input.KeyD,
	fyne.KeyY:         input.KeyY,
	fyne.KeyZ:         input.KeyZ,
}

func keyCode(k fyne.KeyName) (int, bool) {
	c, ok := keyCodes[k]
	return c, ok
}

// KeyNames lists the keys forwarded to the dispatcher, for help texts.
func KeyNames() []string {
	out := make([]string, 0, len(keyCodes))
	for k := range keyCodes {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}

type mapCanvasRenderer struct {
	mc      *MapCanvas
	bg      *canvas.Rectangle
	img     *canvas.Image
	objects []fyne.CanvasObject
}

func (r *mapCanvasRenderer) Destroy()                     {}
func (r *mapCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *mapCanvasRenderer) MinSize() fyne.Size           { return fyne.NewSize(200, 150) }

func (r *mapCanvasRenderer) Refresh() {
	r.Layout(r.mc.Size())
	r.img.Refresh()
	canvas.Refresh(r.mc)
}

func (r *mapCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	r.mc.resize(size)
	r.img.Image = r.mc.ws.Canvas.Image()
	r.img.Resize(size)
	r.img.Move(fyne.NewPos(0, 0))
}

var (
	_ desktop.Mouseable = (*MapCanvas)(nil)
	_ desktop.Hoverable = (*MapCanvas)(nil)
	_ fyne.Draggable    = (*MapCanvas)(nil)
	_ fyne.Focusable    = (*MapCanvas)(nil)
	_ fyne.Scrollable   = (*MapCanvas)(nil)
)
