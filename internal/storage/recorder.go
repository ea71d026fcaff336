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
	"log/slog"
	"time"

	"mapedit/internal/codec"
	"mapedit/internal/feature"
	applog "mapedit/internal/log"
)

// Recorder journals the edits published on a layer. Failures are logged
// and never interrupt editing.
type Recorder struct {
	j       *Journal
	layer   string
	ctx     context.Context
	timeout time.Duration
	off     []func()
}

// NewRecorder subscribes to l. Writes use ctx with a per-write timeout.
func NewRecorder(ctx context.Context, j *Journal, l *feature.Layer) *Recorder {
	r := &Recorder{j: j, layer: l.Name, ctx: ctx, timeout: 5 * time.Second}
	r.off = append(r.off,
		l.On(feature.EventFeaturesAdded, func(ev *feature.Event) {
			for _, f := range ev.Features {
				r.save(f)
			}
		}),
		l.On(feature.EventFeatureModified, func(ev *feature.Event) {
			r.append(ev.Feature, string(ev.Type))
			r.save(ev.Feature)
		}),
		l.On(feature.EventVertexRemoved, func(ev *feature.Event) { r.append(ev.Feature, string(ev.Type)) }),
		l.On(feature.EventFeaturesRemoved, func(ev *feature.Event) {
			for _, f := range ev.Features {
				if f.Sketch {
					continue
				}
				r.do("delete", f.ID, func(ctx context.Context) error { return j.DeleteFeature(ctx, f.ID) })
			}
		}),
	)
	return r
}

// Close stops journaling.
func (r *Recorder) Close() {
	for _, off := range r.off {
		off()
	}
	r.off = nil
}

func (r *Recorder) save(f *feature.Feature) {
	if f == nil || f.Sketch {
		return
	}
	r.do("save", f.ID, func(ctx context.Context) error { return r.j.SaveFeature(ctx, f) })
}

func (r *Recorder) append(f *feature.Feature, kind string) {
	if f == nil || f.Sketch {
		return
	}
	blob, err := codec.MarshalWKB(f.Geometry)
	if err != nil {
		r.j.log.Warn("journal encode failed", applog.Feature(f.ID), slog.String(applog.KeyLayer, r.layer), slog.Any("err", err))
		blob = nil
	}
	r.do("append", f.ID, func(ctx context.Context) error {
		return r.j.AppendEdit(ctx, Edit{FeatureID: f.ID, Kind: kind, Geometry: blob})
	})
}

func (r *Recorder) do(op, id string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(applog.ContextWithFeature(r.ctx, r.layer, id), r.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		r.j.log.ErrorContext(ctx, "journal write failed", slog.String(applog.KeyOperation, op), slog.Any("err", err))
	}
}
