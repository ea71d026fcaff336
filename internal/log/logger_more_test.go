/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

func TestFromEnvAndGetenv(t *testing.T) {
	t.Setenv("MAPEDIT_LOG_LEVEL", "warn")
	t.Setenv("MAPEDIT_LOG_FORMAT", "json")
	t.Setenv("MAPEDIT_LOG_SOURCE", "true")
	// MAPEDIT_LOG_FILE intentionally unset

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}

	// Also verify getenv default fallback when var missing
	if err := os.Unsetenv("SOME_UNSET_VAR"); err != nil {
		t.Fatalf("Unsetenv error: %v", err)
	}
	if v := getenv("SOME_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback failed: %q", v)
	}
}

func TestConsoleHandler_Behavior(t *testing.T) {
	var buf bytes.Buffer
	h := &consoleHandler{w: &buf, level: slog.LevelWarn, source: true}

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should not be enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}

	h2 := h.WithAttrs([]slog.Attr{slog.String("k", "v"), slog.String(KeyComponent, "editing")})
	h2 = h2.WithGroup("grp")

	r := slog.Record{Time: time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC), Level: slog.LevelError, Message: "boom"}
	r.AddAttrs(slog.Int("n", 42), slog.Float64("pi", 3.14), slog.Bool("ok", true), slog.String("note", "two words"))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("handle error: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "15:04:05.000 ERR [editing] boom k=v") {
		t.Fatalf("unexpected line start: %q", out)
	}
	if strings.Contains(out, "component=") {
		t.Fatalf("component should only appear as prefix: %q", out)
	}
	for _, want := range []string{"grp.n=42", "grp.pi=3.14", "grp.ok=true", `grp.note="two words"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %q", want, out)
		}
	}
}

func TestConsoleShortensFeatureIDs(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(&consoleHandler{w: &buf, level: slog.LevelDebug})
	l.Info("saved", Feature("1a2b3c4d-0000-4000-8000-000000000000"))
	l.Info("saved", Feature("lot-7"))
	out := buf.String()
	if !strings.Contains(out, "feature=1a2b3c4d\n") {
		t.Fatalf("uuid not shortened: %q", out)
	}
	if !strings.Contains(out, "feature=lot-7") {
		t.Fatalf("plain id changed: %q", out)
	}
}

func TestScopeAddsLayerAndFeatureFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(scoped{&consoleHandler{w: &buf, level: slog.LevelDebug}})
	ctx := ContextWithFeature(context.Background(), "parcels", "lot-7")
	l.InfoContext(ctx, "edited")
	if !strings.Contains(buf.String(), "layer=parcels feature=lot-7") {
		t.Fatalf("expected scope attrs in output: %q", buf.String())
	}
	buf.Reset()
	l.InfoContext(ctx, "edited", Feature("other"))
	if strings.Count(buf.String(), "feature=") != 1 || !strings.Contains(buf.String(), "feature=other") {
		t.Fatalf("explicit feature must win: %q", buf.String())
	}
	if _, _, ok := FeatureFromContext(context.Background()); ok {
		t.Fatalf("empty context has no scope")
	}
}

func TestFanoutWritesEveryHandler(t *testing.T) {
	var a, b bytes.Buffer
	h := fanout{
		&consoleHandler{w: &a, level: slog.LevelDebug},
		&consoleHandler{w: &b, level: slog.LevelError},
	}
	l := slog.New(h).With(slog.String(KeyLayer, "roads"))
	l.Info("loaded")
	l.Error("failed")
	if strings.Count(a.String(), "layer=roads") != 2 || strings.Count(b.String(), "\n") != 1 {
		t.Fatalf("a=%q b=%q", a.String(), b.String())
	}
}

func TestInitWritesToConsoleOverride(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "debug", Format: "json", Console: &buf})
	t.Cleanup(func() { Init(Options{Level: "info", Console: io.Discard}) })
	WithComponent("editing").Debug("hello")
	out := buf.String()
	if !strings.Contains(out, `"component":"editing"`) || !strings.Contains(out, `"app":"mapedit"`) {
		t.Fatalf("unexpected console output: %q", out)
	}
}

func TestDiscardDropsEverything(t *testing.T) {
	l := Discard()
	if l.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("discard logger should not be enabled")
	}
}
