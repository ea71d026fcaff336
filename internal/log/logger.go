/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log sets up slog for mapedit: a compact console format for
// interactive editing, JSON for machines and an optional rotated log file.
// Records logged with an edit scope in their context carry the layer and
// feature being edited.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	lj "gopkg.in/natefinch/lumberjack.v2"

	"mapedit/internal/version"
)

// Options controls logger initialization. FromEnv reads them from
//   - MAPEDIT_LOG_LEVEL=debug|info|warn|error
//   - MAPEDIT_LOG_FORMAT=console|json
//   - MAPEDIT_LOG_FILE=<path> (JSON, rotated)
//   - MAPEDIT_LOG_SOURCE=true|false
type Options struct {
	Level     string
	Format    string // "console" or "json"
	AddSource bool
	File      string
	// Console overrides the console destination (stderr when nil).
	Console io.Writer
}

// Attribute keys shared by every package.
const (
	KeyComponent = "component"
	KeyOperation = "op"
	KeyLayer     = "layer"
	KeyFeature   = "feature"
)

var (
	mu     sync.RWMutex
	logger *slog.Logger
)

// L returns the application logger, initialized from the environment on
// first use.
func L() *slog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(FromEnv())
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Init replaces the application logger and slog.Default.
func Init(opts Options) {
	lvl := parseLevel(opts.Level)
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	var hs []slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		hs = append(hs, slog.NewJSONHandler(console, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}))
	} else {
		hs = append(hs, &consoleHandler{w: console, level: lvl, source: opts.AddSource})
	}
	if strings.TrimSpace(opts.File) != "" {
		w := &lj.Logger{Filename: opts.File, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
		hs = append(hs, slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}))
	}
	var h slog.Handler = fanout(hs)
	if len(hs) == 1 {
		h = hs[0]
	}
	l := slog.New(scoped{h}).With(
		slog.String("app", "mapedit"),
		slog.String("ver", version.Version),
	)
	mu.Lock()
	logger = l
	mu.Unlock()
	slog.SetDefault(l)
}

// FromEnv builds Options from MAPEDIT_LOG_* variables.
func FromEnv() Options {
	return Options{
		Level:     getenv("MAPEDIT_LOG_LEVEL", "info"),
		Format:    getenv("MAPEDIT_LOG_FORMAT", "console"),
		AddSource: strings.EqualFold(getenv("MAPEDIT_LOG_SOURCE", "false"), "true"),
		File:      os.Getenv("MAPEDIT_LOG_FILE"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func WithComponent(name string) *slog.Logger { return L().With(slog.String(KeyComponent, name)) }

func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String(KeyOperation, op)) }

// WithLayer tags every record of l with the layer name.
func WithLayer(l *slog.Logger, layer string) *slog.Logger { return l.With(slog.String(KeyLayer, layer)) }

// Feature is the attribute naming an edited feature.
func Feature(id string) slog.Attr { return slog.String(KeyFeature, id) }

// Discard returns a logger that drops every record.
func Discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

type scopeKey struct{}

type editScope struct{ layer, feature string }

// ContextWithFeature marks ctx as working on one feature of a layer.
// Records logged with ctx get layer and feature attributes unless they
// set them already.
func ContextWithFeature(ctx context.Context, layer, featureID string) context.Context {
	return context.WithValue(ctx, scopeKey{}, editScope{layer: layer, feature: featureID})
}

// FeatureFromContext returns what ContextWithFeature stored.
func FeatureFromContext(ctx context.Context) (layer, featureID string, ok bool) {
	if ctx == nil {
		return "", "", false
	}
	s, ok := ctx.Value(scopeKey{}).(editScope)
	return s.layer, s.feature, ok
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// fanout sends each record to every handler that wants it.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// scoped copies the edit scope of the context onto records.
type scoped struct{ next slog.Handler }

func (s scoped) Enabled(ctx context.Context, level slog.Level) bool { return s.next.Enabled(ctx, level) }
func (s scoped) WithAttrs(attrs []slog.Attr) slog.Handler          { return scoped{s.next.WithAttrs(attrs)} }
func (s scoped) WithGroup(name string) slog.Handler                { return scoped{s.next.WithGroup(name)} }

func (s scoped) Handle(ctx context.Context, r slog.Record) error {
	layer, id, ok := FeatureFromContext(ctx)
	if !ok {
		return s.next.Handle(ctx, r)
	}
	var hasLayer, hasFeature bool
	r.Attrs(func(a slog.Attr) bool {
		hasLayer = hasLayer || a.Key == KeyLayer
		hasFeature = hasFeature || a.Key == KeyFeature
		return true
	})
	r = r.Clone()
	if layer != "" && !hasLayer {
		r.AddAttrs(slog.String(KeyLayer, layer))
	}
	if id != "" && !hasFeature {
		r.AddAttrs(Feature(id))
	}
	return s.next.Handle(ctx, r)
}

// consoleHandler writes one line per record:
//
//	15:04:05.000 INF [editing] feature modified layer=parcels feature=1a2b3c4d
//
// The component becomes a bracketed prefix and feature ids are cut to eight
// characters, which is enough to tell the features of one session apart.
type consoleHandler struct {
	w      io.Writer
	level  slog.Level
	source bool
	attrs  []slog.Attr
	prefix string // joined group names with a trailing dot
}

var consoleMu sync.Mutex

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool { return level >= h.level }

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	c.attrs = append(c.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		c.attrs = append(c.attrs, a)
	}
	return &c
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		a.Key = h.prefix + a.Key
		attrs = append(attrs, a)
		return true
	})

	var b strings.Builder
	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}
	b.WriteString(t.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(levelTag(r.Level))
	for _, a := range attrs {
		if a.Key == KeyComponent {
			b.WriteString(" [" + a.Value.String() + "]")
			break
		}
	}
	if r.Message != "" {
		b.WriteByte(' ')
		b.WriteString(r.Message)
	}
	for _, a := range attrs {
		switch a.Key {
		case KeyComponent, "app", "ver":
			continue
		case KeyFeature:
			a.Value = slog.StringValue(shortID(a.Value.String()))
		}
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteByte('=')
		b.WriteString(valueString(a.Value))
	}
	if h.source && r.PC != 0 {
		fr, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if fr.File != "" {
			b.WriteString(" src=" + fr.File + ":" + strconv.Itoa(fr.Line))
		}
	}
	b.WriteByte('\n')
	consoleMu.Lock()
	defer consoleMu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func shortID(id string) string {
	if len(id) == 36 && id[8] == '-' {
		return id[:8]
	}
	return id
}

func levelTag(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DBG"
	case l < slog.LevelWarn:
		return "INF"
	case l < slog.LevelError:
		return "WRN"
	}
	return "ERR"
}

func valueString(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return s
	case slog.KindGroup:
		parts := make([]string, 0, len(v.Group()))
		for _, a := range v.Group() {
			parts = append(parts, a.Key+"="+valueString(a.Value))
		}
		return "{" + strings.Join(parts, " ") + "}"
	}
	return v.String()
}
