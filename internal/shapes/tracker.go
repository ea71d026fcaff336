/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package shapes

import (
	"mapedit/internal/editing"
	"mapedit/internal/geometry"
)

// ChangeSource is implemented by *editing.Controller.
type ChangeSource interface {
	OnGeometryChanged(fn func(editing.Change)) (remove func())
}

// Tracker updates shape parameters from controller changes.
type Tracker struct {
	remove func()
}

// Track subscribes to src until Close.
func Track(src ChangeSource) *Tracker {
	t := &Tracker{}
	t.remove = src.OnGeometryChanged(Apply)
	return t
}

func (t *Tracker) Close() {
	if t.remove != nil {
		t.remove()
		t.remove = nil
	}
}

// Apply folds one change into the parameters of the changed feature.
// A vertex level edit turns the shape into a plain polygon.
func Apply(ch editing.Change) {
	p, ok := ParamsOf(ch.Feature)
	if !ok {
		return
	}
	switch ch.Kind {
	case editing.ChangeTranslate:
		p.Center = p.Center.Add(geometry.Pt{X: ch.DX, Y: ch.DY})
	case editing.ChangeRotate:
		p.Center = geometry.RotateAbout(ch.Angle, ch.Origin).Apply(p.Center)
		p.Angle += ch.Angle
	case editing.ChangeResize:
		ratio := ch.Ratio
		if ratio == 0 {
			ratio = 1
		}
		p.Center = geometry.ResizeAbout(ch.Scale, ch.Origin, ratio).Apply(p.Center)
		p.Radius *= ch.Scale
		p.Width *= ch.Scale * ratio
		p.Height *= ch.Scale
	default:
		ch.Feature.Shape = nil
	}
}
