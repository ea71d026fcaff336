/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mapedit/internal/feature"
	"mapedit/internal/geometry"
	applog "mapedit/internal/log"
	"mapedit/internal/storage"
)

// TestRecover_SavesEditsAndClosesJournal ensures Recover handles a panic, writes a report,
// saves pending edits, and does not terminate the test process due to injected exitFn.
func TestRecover_SavesEditsAndClosesJournal(t *testing.T) {
	// Capture stderr temporarily to avoid noisy test logs
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r) // drain pipe
	}()

	// Override exitFn to avoid os.Exit during test and to assert it was called
	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	dir := t.TempDir()
	j, err := storage.OpenJournal(context.Background(), dir)
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	l := feature.NewLayer("t")
	l.SetLogger(applog.Discard())
	edited := feature.New(geometry.NewPoint(1, 1), nil)
	edited.ToState(feature.StateUpdate)
	clean := feature.New(geometry.NewPoint(2, 2), nil)
	l.AddFeatures(edited, clean)

	func() {
		defer Recover(&Session{Journal: j, Layer: l})
		panic("boom")
	}()

	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
	var found string
	bdir := filepath.Join(dir, "backups")
	files, _ := os.ReadDir(bdir)
	for _, f := range files {
		if strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".log") {
			found = filepath.Join(bdir, f.Name())
			break
		}
	}
	if found == "" {
		t.Fatalf("expected crash report file under backups dir")
	}
	b, err := os.ReadFile(found)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.Contains(b, []byte("Panic: boom")) {
		t.Fatalf("report does not contain panic: %s", string(b))
	}

	// The journal was closed; reopen it to check the autosave.
	j2, err := storage.OpenJournal(context.Background(), dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j2.Close()
	saved, err := j2.LoadFeatures(context.Background())
	if err != nil {
		t.Fatalf("LoadFeatures: %v", err)
	}
	if len(saved) != 1 || saved[0].ID != edited.ID {
		t.Fatalf("expected only the edited feature to be saved, got %d", len(saved))
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()
	func() {
		defer Recover(nil)
	}()
	if called {
		t.Fatalf("exit called without panic")
	}
}
