/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"mapedit/internal/backend"
	"mapedit/internal/codec"
	"mapedit/internal/config"
	"mapedit/internal/crash"
	"mapedit/internal/feature"
	"mapedit/internal/input"
	applog "mapedit/internal/log"
	"mapedit/internal/render"
	"mapedit/internal/script"
	"mapedit/internal/ui"
	"mapedit/internal/version"
)

var errUsage = errors.New("usage")

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "mapedit: interactive geometry editing")
	_, _ = fmt.Fprintf(w, "Version: %s\n", version.String())
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  mapedit version|-v|--version             Show version")
	_, _ = fmt.Fprintln(w, "  mapedit info                             Show configuration and journal summary")
	_, _ = fmt.Fprintln(w, "  mapedit import <file.geojson>            Add features to the journal")
	_, _ = fmt.Fprintln(w, "  mapedit export <file.geojson>            Write the journaled features as GeoJSON")
	_, _ = fmt.Fprintln(w, "  mapedit render <out.png> [w h]           Rasterize the features")
	_, _ = fmt.Fprintln(w, "  mapedit print <out.pdf> [title]          Print the features to PDF")
	_, _ = fmt.Fprintln(w, "  mapedit replay <script> [out.png]        Replay a gesture script against the journal")
	_, _ = fmt.Fprintln(w, "  mapedit history <feature-id> [n]         List the last edits of a feature")
	_, _ = fmt.Fprintln(w, "  mapedit pull [limit]                     Load features from the PostGIS backend")
	_, _ = fmt.Fprintln(w, "  mapedit push                             Write pending edits to the PostGIS backend")
	_, _ = fmt.Fprintln(w, "  mapedit ui                               Launch desktop UI (build with -tags fyne for full UI)")
}

func main() {
	cfg, secret, err := config.Load()
	// initialize structured logging from the merged configuration
	applog.Init(applog.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, AddSource: cfg.Logging.Source, File: cfg.Logging.File})
	l := applog.WithComponent("cli")
	if err != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", err))
	}
	l.Debug("start", slog.Int("args", len(os.Args)))

	err = run(os.Args[1:], cfg, secret, os.Stdout)
	switch {
	case errors.Is(err, errUsage):
		usage(os.Stdout)
		os.Exit(2)
	case err != nil:
		l.Error("command failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

// run executes one command. The crash session is filled in once a
// workspace is open so a panic still saves pending edits.
func run(args []string, cfg config.AppConfig, secret string, out io.Writer) error {
	sess := &crash.Session{}
	defer crash.Recover(sess)

	if len(args) == 0 {
		return errUsage
	}
	ctx := context.Background()
	open := func() (*ui.Workspace, error) {
		ws, err := ui.Open(ctx, cfg, input.Viewport{})
		if err != nil {
			return nil, err
		}
		*sess = *ws.Crash()
		return ws, nil
	}
	done := func(ws *ui.Workspace, err error) error {
		*sess = crash.Session{}
		return errors.Join(err, ws.Close())
	}

	switch args[0] {
	case "version", "--version", "-v":
		_, _ = fmt.Fprintln(out, "mapedit")
		_, _ = fmt.Fprintln(out, version.String())
		return nil
	case "ui":
		return ui.Run(cfg)
	case "info":
		ws, err := open()
		if err != nil {
			return err
		}
		return done(ws, info(ctx, ws, cfg, out))
	case "import", "export", "render", "print", "replay", "history":
		if len(args) < 2 {
			_, _ = fmt.Fprintf(out, "%s requires a file argument\n", args[0])
			return errUsage
		}
		ws, err := open()
		if err != nil {
			return err
		}
		var cmdErr error
		switch args[0] {
		case "import":
			cmdErr = importFile(ws, args[1], out)
		case "export":
			cmdErr = exportFile(ws, args[1], out)
		case "render":
			cmdErr = renderPNG(ws, args[1:], out)
		case "print":
			cmdErr = printPDF(ws, args[1:], out)
		case "replay":
			cmdErr = replay(ws, args[1:], out)
		case "history":
			cmdErr = history(ctx, ws, args[1:], out)
		}
		return done(ws, cmdErr)
	case "pull", "push":
		dsn, err := cfg.Backend.ConnString(secret)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(ctx, cfg.Backend.Timeout())
		defer cancel()
		store, err := backend.Open(ctx, dsn, cfg.Backend.Layer)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		ws, err := open()
		if err != nil {
			return err
		}
		if args[0] == "pull" {
			return done(ws, pull(ctx, store, ws, args[1:], out))
		}
		return done(ws, push(ctx, store, ws, out))
	}
	return errUsage
}

func info(ctx context.Context, ws *ui.Workspace, cfg config.AppConfig, out io.Writer) error {
	ver, err := ws.Journal.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	cfgPath, _ := config.ConfigPath()
	counts := map[feature.State]int{}
	for _, f := range ws.Layer.Persistent() {
		counts[f.State]++
	}
	_, _ = fmt.Fprintf(out, "Config:   %s\n", cfgPath)
	_, _ = fmt.Fprintf(out, "Journal:  %s (schema v%d)\n", ws.Journal.Path(), ver)
	_, _ = fmt.Fprintf(out, "Layer:    %s\n", ws.Layer.Name)
	_, _ = fmt.Fprintf(out, "Mode:     %s\n", ws.Controller.Mode())
	_, _ = fmt.Fprintf(out, "Features: %d (insert %d, update %d, delete %d)\n",
		len(ws.Layer.Persistent()), counts[feature.StateInsert], counts[feature.StateUpdate], counts[feature.StateDelete])
	if cfg.Backend.DSN != "" {
		_, _ = fmt.Fprintf(out, "Backend:  %s\n", cfg.Backend.DSN)
	}
	return nil
}

func importFile(ws *ui.Workspace, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	fs, err := codec.ReadGeoJSON(f)
	if err != nil {
		return err
	}
	var fresh []*feature.Feature
	for _, nf := range fs {
		if ws.Layer.Get(nf.ID) != nil {
			continue
		}
		if nf.State == feature.StateUnknown {
			nf.ToState(feature.StateInsert)
		}
		fresh = append(fresh, nf)
	}
	ws.Import(fresh...)
	_, _ = fmt.Fprintf(out, "Imported %d features (%d already present)\n", len(fresh), len(fs)-len(fresh))
	return nil
}

func exportFile(ws *ui.Workspace, path string, out io.Writer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := codec.WriteGeoJSON(f, ws.Layer.Persistent()); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Exported %d features to %s\n", len(ws.Layer.Persistent()), path)
	return nil
}

// size parses optional width and height arguments.
func size(args []string, defW, defH int) (int, int, error) {
	if len(args) < 2 {
		return defW, defH, nil
	}
	w, errW := strconv.Atoi(args[0])
	h, errH := strconv.Atoi(args[1])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("bad size %q x %q", args[0], args[1])
	}
	return w, h, nil
}

func renderPNG(ws *ui.Workspace, args []string, out io.Writer) error {
	w, h, err := size(args[1:], 1024, 768)
	if err != nil {
		return err
	}
	view := ui.FitFeatures(ws.Layer.Persistent(), w, h)
	if err := render.WritePNG(args[0], ws.Layer.Persistent(), view, ws.RenderOptions()); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Rendered %dx%d to %s\n", w, h, args[0])
	return nil
}

func printPDF(ws *ui.Workspace, args []string, out io.Writer) error {
	title := ws.Layer.Name
	if len(args) > 1 {
		title = args[1]
	}
	view := ui.FitFeatures(ws.Layer.Persistent(), 720, 500)
	if err := render.PrintPDF(args[0], ws.Layer.Persistent(), view, ws.PDFOptions(title)); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Printed %d features to %s\n", len(ws.Layer.Persistent()), args[0])
	return nil
}

func replay(ws *ui.Workspace, args []string, out io.Writer) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	s, perrs := script.Parse(string(src))
	if len(perrs) > 0 {
		for _, e := range perrs {
			_, _ = fmt.Fprintf(out, "%s:%d:%d: %s\n", filepath.Base(args[0]), e.Line, e.Column, e.Message)
		}
		return fmt.Errorf("%d errors in %s", len(perrs), args[0])
	}
	// pixels are relative to a 1000x700 view fitted to the features
	ws.Canvas.SetView(ui.FitFeatures(ws.Layer.Persistent(), 1000, 700))
	res, err := script.Play(s, ws)
	handled := 0
	for _, r := range res {
		if r.Handled {
			handled++
		}
	}
	_, _ = fmt.Fprintf(out, "Replayed %d steps, %d handled\n", len(res), handled)
	if err != nil {
		return err
	}
	if len(args) > 1 {
		return render.WritePNG(args[1], ws.Layer.Features(), ws.Canvas.View(), ws.RenderOptions())
	}
	return nil
}

func history(ctx context.Context, ws *ui.Workspace, args []string, out io.Writer) error {
	limit := 20
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad count %q", args[1])
		}
		limit = n
	}
	edits, err := ws.Journal.ListEdits(ctx, args[0], limit)
	if err != nil {
		return err
	}
	for _, e := range edits {
		wkt := "-"
		if g, err := codec.UnmarshalWKB(e.Geometry); err == nil {
			if s, err := codec.MarshalWKT(g); err == nil {
				wkt = s
			}
		}
		_, _ = fmt.Fprintf(out, "%s  %-16s %s\n", e.TS.Format("2006-01-02 15:04:05"), e.Kind, wkt)
	}
	if len(edits) == 0 {
		_, _ = fmt.Fprintln(out, "No edits recorded.")
	}
	return nil
}

func pull(ctx context.Context, store *backend.Store, ws *ui.Workspace, args []string, out io.Writer) error {
	q := backend.Query{}
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad limit %q", args[0])
		}
		q.Limit = n
	}
	fs, err := store.Features(ctx, q)
	if err != nil {
		return err
	}
	var fresh []*feature.Feature
	for _, f := range fs {
		if ws.Layer.Get(f.ID) == nil {
			fresh = append(fresh, f)
		}
	}
	ws.Import(fresh...)
	_, _ = fmt.Fprintf(out, "Pulled %d features (%d already in the journal)\n", len(fresh), len(fs)-len(fresh))
	return nil
}

func push(ctx context.Context, store *backend.Store, ws *ui.Workspace, out io.Writer) error {
	res, err := store.Sync(ctx, ws.Layer.Persistent())
	if err != nil {
		return err
	}
	ws.Layer.DestroyFeatures(res.Removed...)
	for _, f := range ws.Layer.Persistent() {
		if err := ws.Journal.SaveFeature(ctx, f); err != nil {
			return err
		}
	}
	_, _ = fmt.Fprintf(out, "Pushed: %d inserted, %d updated, %d deleted\n", res.Inserted, res.Updated, res.Deleted)
	return nil
}
