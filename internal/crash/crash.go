/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns panics into a crash report and a last journal save.
package crash

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"mapedit/internal/feature"
	applog "mapedit/internal/log"
	"mapedit/internal/storage"
	"mapedit/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Session is what a crash should try to preserve. Both fields are optional.
type Session struct {
	Journal *storage.Journal
	Layer   *feature.Layer
}

// Recover captures a panic, logs an error with stacktrace, writes an error
// report file, saves the edited features of the layer to the journal and
// closes it.
//
// Usage: defer crash.Recover(s)
func Recover(s *Session) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, _ := writeReport(s, r, stack)
		if n, err := autosave(s); err != nil {
			l.Error("crash autosave failed", slog.Any("err", err))
		} else if n > 0 {
			l.Info("crash autosave written", slog.Int("features", n))
		}
		if s != nil && s.Journal != nil {
			if err := s.Journal.Close(); err != nil {
				l.Error("journal close failed", slog.Any("err", err))
			}
		}

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		// Exit with a non-zero code to indicate failure in CLI context.
		exitFn(2)
	}
}

// autosave stores every feature with pending changes.
func autosave(s *Session) (int, error) {
	if s == nil || s.Journal == nil || s.Layer == nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n := 0
	for _, f := range s.Layer.Persistent() {
		switch f.State {
		case feature.StateInsert, feature.StateUpdate, feature.StateDelete:
			if err := s.Journal.SaveFeature(ctx, f); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func writeReport(s *Session, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if s != nil && s.Journal != nil {
		dir = filepath.Join(filepath.Dir(s.Journal.Path()), "backups")
		_ = os.MkdirAll(dir, 0o755)
	}
	stamp := time.Now().Format("20060102-150405")
	fname := fmt.Sprintf("crash-%s.log", stamp)
	path := filepath.Join(dir, fname)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "mapedit Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if s != nil && s.Journal != nil {
		_, _ = fmt.Fprintf(&buf, "Journal: %s\n", s.Journal.Path())
	}
	if s != nil && s.Layer != nil {
		_, _ = fmt.Fprintf(&buf, "Layer: %s (%d features)\n", s.Layer.Name, len(s.Layer.Persistent()))
		for _, sel := range s.Layer.SelectedFeatures() {
			_, _ = fmt.Fprintf(&buf, "Selected: %s\n", sel.ID)
		}
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()
	return path, nil
}
