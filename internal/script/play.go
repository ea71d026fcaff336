/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"
	"log/slog"

	"mapedit/internal/input"
	applog "mapedit/internal/log"
)

// Driver receives replayed steps.
type Driver interface {
	PointerDown(px input.Pixel) bool
	PointerMove(px input.Pixel) bool
	PointerUp(px input.Pixel) bool
	KeyDown(code int) bool
	Select(ref string) bool
	Unselect() bool
	SetMode(mode string) error
	Undo() bool
	Redo() bool
}

// Result records whether a step was handled.
type Result struct {
	Section string
	Step    Step
	Handled bool
}

// Play replays s against d. It stops at the first select that matches no
// feature or mode that does not parse; other unhandled steps are recorded
// and skipped.
func Play(s Script, d Driver) ([]Result, error) {
	l := applog.WithComponent("script")
	var out []Result
	for _, sec := range s.Sections {
		for _, st := range sec.Steps {
			handled, err := apply(d, st)
			if err != nil {
				return out, fmt.Errorf("line %d: %w", st.LineNo, err)
			}
			l.Debug("step", slog.String("action", st.Action.String()), slog.Int("line", st.LineNo), slog.Bool("handled", handled))
			out = append(out, Result{Section: sec.Title, Step: st, Handled: handled})
		}
	}
	return out, nil
}

func apply(d Driver, st Step) (bool, error) {
	px := input.Pixel{X: st.X, Y: st.Y}
	switch st.Action {
	case ActionDown:
		return d.PointerDown(px), nil
	case ActionMove:
		return d.PointerMove(px), nil
	case ActionUp:
		return d.PointerUp(px), nil
	case ActionKey:
		return d.KeyDown(st.Code), nil
	case ActionSelect:
		if !d.Select(st.Arg) {
			return false, fmt.Errorf("no feature matches %q", st.Arg)
		}
		return true, nil
	case ActionUnselect:
		return d.Unselect(), nil
	case ActionMode:
		if err := d.SetMode(st.Arg); err != nil {
			return false, err
		}
		return true, nil
	case ActionUndo:
		return d.Undo(), nil
	case ActionRedo:
		return d.Redo(), nil
	}
	return false, fmt.Errorf("unsupported action %v", st.Action)
}
