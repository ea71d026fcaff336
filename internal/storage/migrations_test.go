/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// TestMigrations_UpgradeV1 ensures that an older journal (schema=1) is migrated to schemaVersion and the indexes and kind column exist.
func TestMigrations_UpgradeV1(t *testing.T) {
	dir := t.TempDir()
	path := JournalPath(dir)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(2000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	// Minimal schema representing v1 (no edit indexes)
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`,
		`CREATE TABLE IF NOT EXISTS version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version(id, schema, app, created_at, updated_at) VALUES(1, 1, 'test', '2020-01-01T00:00:00Z', '2020-01-01T00:00:00Z');`,
		`CREATE TABLE IF NOT EXISTS features (id TEXT PRIMARY KEY, state TEXT NOT NULL, geom BLOB NOT NULL, attrs TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`CREATE TABLE IF NOT EXISTS edits (id INTEGER PRIMARY KEY, feature_id TEXT NOT NULL, kind TEXT NOT NULL, ts TEXT NOT NULL, geom BLOB);`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed v1 schema: %v (q=%s)", err, q)
		}
	}
	db.Close()
	j, err := OpenJournal(ctx, dir)
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	defer j.Close()
	schema, err := j.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if schema < 2 {
		t.Fatalf("expected schema >= 2 after migration, got %d", schema)
	}
	var cnt int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name in ('idx_edits_feature_ts','idx_features_state')`).Scan(&cnt); err != nil {
		t.Fatalf("query indexes: %v", err)
	}
	if cnt != 2 {
		t.Fatalf("expected journal indexes after migration, got %d", cnt)
	}
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pragma_table_info('features') WHERE name = 'geom_kind'`).Scan(&cnt); err != nil {
		t.Fatalf("query columns: %v", err)
	}
	if cnt != 1 {
		t.Fatalf("expected geom_kind column after migration, got %d", cnt)
	}
}
