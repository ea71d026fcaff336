/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"bytes"
	"sync"
	"time"
)

// Snapshot is one reversible geometry edit of a feature. Before and After are
// opaque encoded geometries; the size estimate is their combined length.
type Snapshot struct {
	FeatureID string
	Before    []byte
	After     []byte
	TS        time.Time
}

func (s Snapshot) size() int { return len(s.Before) + len(s.After) }

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerFeature limits the undo depth per feature (0 means unlimited).
	MaxPerFeature int
	// MinInterval merges edits of the same feature captured within the
	// interval into a single step.
	MinInterval time.Duration
}

// Manager keeps in-memory undo/redo stacks per feature.
// It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex
	// per-feature stacks
	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// accounting
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &Manager{cfg: cfg, undo: make(map[string][]Snapshot), redo: make(map[string][]Snapshot)}
}

// Push records an edit. Edits that do not change anything are ignored. An
// edit within MinInterval of the previous one on the same feature extends
// that step instead of adding a new one. Any push clears the redo stack.
func (m *Manager) Push(s Snapshot) bool {
	if bytes.Equal(s.Before, s.After) {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[s.FeatureID]
	if n := len(stack); n > 0 {
		last := stack[n-1]
		if m.cfg.MinInterval > 0 && s.TS.Sub(last.TS) < m.cfg.MinInterval {
			m.totalBytes -= last.size()
			last.After, last.TS = s.After, s.TS
			m.totalBytes += last.size()
			stack[n-1] = last
			m.dropRedoLocked(s.FeatureID)
			m.enforceCapsLocked(s.FeatureID)
			return true
		}
	}
	m.undo[s.FeatureID] = append(stack, s)
	m.totalBytes += s.size()
	m.dropRedoLocked(s.FeatureID)
	m.enforceCapsLocked(s.FeatureID)
	return true
}

// Undo pops the latest edit of a feature and moves it to the redo stack.
// The caller restores Before.
func (m *Manager) Undo(featureID string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[featureID]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[featureID] = stack[:len(stack)-1]
	m.redo[featureID] = append(m.redo[featureID], s)
	return s, true
}

// Redo moves the latest undone edit back. The caller restores After.
func (m *Manager) Redo(featureID string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[featureID]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[featureID] = r[:len(r)-1]
	m.undo[featureID] = append(m.undo[featureID], s)
	m.enforceCapsLocked(featureID)
	return s, true
}

// CanUndo reports whether the feature has an undoable edit.
func (m *Manager) CanUndo(featureID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[featureID]) > 0
}

// CanRedo reports whether the feature has a redoable edit.
func (m *Manager) CanRedo(featureID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[featureID]) > 0
}

// Forget clears both stacks of a feature, e.g. after it was removed.
func (m *Manager) Forget(featureID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[featureID] {
		m.totalBytes -= s.size()
	}
	m.dropRedoLocked(featureID)
	delete(m.undo, featureID)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics. Bytes count both stacks.
func (m *Manager) Stats() (totalBytes int, features int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.undo {
		if len(v) > 0 {
			features++
		}
		totalSnapshots += len(v)
	}
	return m.totalBytes, features, totalSnapshots
}

func (m *Manager) dropRedoLocked(featureID string) {
	for _, s := range m.redo[featureID] {
		m.totalBytes -= s.size()
	}
	delete(m.redo, featureID)
}

// enforceCapsLocked trims the feature's depth and then prunes the oldest
// undo entries across all features until the byte budget fits.
func (m *Manager) enforceCapsLocked(featureID string) {
	if m.cfg.MaxPerFeature > 0 {
		stack := m.undo[featureID]
		if len(stack) > m.cfg.MaxPerFeature {
			toDrop := len(stack) - m.cfg.MaxPerFeature
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= stack[i].size()
			}
			m.undo[featureID] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldestID := ""
		found := false
		var oldestTS time.Time
		for id, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldestID, oldestTS, found = id, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldestID]
		m.totalBytes -= stack[0].size()
		m.undo[oldestID] = stack[1:]
		if len(m.undo[oldestID]) == 0 {
			delete(m.undo, oldestID)
		}
	}
}
