/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func snap(id, before, after string, ts time.Time) Snapshot {
	return Snapshot{FeatureID: id, Before: []byte(before), After: []byte(after), TS: ts}
}

func TestUndoRedoBasic(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxPerFeature: 10, MinInterval: 10 * time.Millisecond})
	t0 := time.Now()
	m.Push(snap("f1", "a", "b", t0))
	m.Push(snap("f1", "b", "c", t0.Add(20*time.Millisecond)))
	if _, features, total := m.Stats(); features != 1 || total != 2 {
		t.Fatalf("expected 1 feature and 2 snapshots, got features=%d total=%d", features, total)
	}
	s, ok := m.Undo("f1")
	if !ok || string(s.Before) != "b" {
		t.Fatalf("undo expected before 'b', got ok=%v blob=%q", ok, string(s.Before))
	}
	if !m.CanRedo("f1") {
		t.Fatalf("expected redo to be available")
	}
	s, ok = m.Redo("f1")
	if !ok || string(s.After) != "c" {
		t.Fatalf("redo expected after 'c', got ok=%v blob=%q", ok, string(s.After))
	}
	if m.CanRedo("f1") {
		t.Fatalf("redo stack should be empty")
	}
}

func TestCoalesceKeepsFirstBefore(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxPerFeature: 10, MinInterval: 50 * time.Millisecond})
	t0 := time.Now()
	m.Push(snap("f2", "1", "2", t0))
	m.Push(snap("f2", "2", "3", t0.Add(10*time.Millisecond)))
	if _, _, total := m.Stats(); total != 1 {
		t.Fatalf("expected coalesced to 1 snapshot, got %d", total)
	}
	s, ok := m.Undo("f2")
	if !ok || string(s.Before) != "1" || string(s.After) != "3" {
		t.Fatalf("expected merged step 1->3, got ok=%v %q->%q", ok, s.Before, s.After)
	}
}

func TestNoopEditIgnored(t *testing.T) {
	m := NewManager(Config{})
	if m.Push(snap("f", "x", "x", time.Now())) {
		t.Fatalf("identical before/after must not be recorded")
	}
	if m.CanUndo("f") {
		t.Fatalf("nothing to undo")
	}
}

func TestPushClearsRedo(t *testing.T) {
	m := NewManager(Config{})
	t0 := time.Now()
	m.Push(snap("f", "a", "b", t0))
	m.Undo("f")
	m.Push(snap("f", "a", "z", t0.Add(time.Second)))
	if m.CanRedo("f") {
		t.Fatalf("new edit must invalidate redo")
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxBytes: 40, MaxPerFeature: 2, MinInterval: time.Millisecond})
	t0 := time.Now()
	for i := 0; i < 10; i++ {
		m.Push(snap("f3", "xxxxx", "yyyyy", t0.Add(time.Duration(i)*time.Second)))
	}
	if _, _, total := m.Stats(); total > 2 {
		t.Fatalf("expected MaxPerFeature cap to limit to 2, got %d", total)
	}
}
