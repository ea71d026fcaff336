/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

// Script is a parsed gesture script: titled sections of editing steps that
// replay pointer and key input against a workspace.
type Script struct {
	Sections []Section
}

type Section struct {
	Title string
	Steps []Step
}

// Action is the kind of a step.
// Pointer: down X Y, move X Y, up X Y (pixels)
// Key:     key NAME or key CODE
// Select:  select REF (feature id, or name attribute)
// Other:   unselect, mode MODE, undo, redo
type Action int

const (
	ActionUnknown Action = iota
	ActionDown
	ActionMove
	ActionUp
	ActionKey
	ActionSelect
	ActionUnselect
	ActionMode
	ActionUndo
	ActionRedo
)

var actionNames = map[string]Action{
	"down":     ActionDown,
	"move":     ActionMove,
	"up":       ActionUp,
	"key":      ActionKey,
	"select":   ActionSelect,
	"unselect": ActionUnselect,
	"mode":     ActionMode,
	"undo":     ActionUndo,
	"redo":     ActionRedo,
}

func (a Action) String() string {
	for n, v := range actionNames {
		if v == a {
			return n
		}
	}
	return "unknown"
}

// Step is one line of a script. X and Y are set for pointer steps, Code for
// key steps and Arg for select and mode.
type Step struct {
	Action Action
	X, Y   float64
	Code   int
	Arg    string
	LineNo int // 1-based line number in the source
}

// Error represents a parse error with position context.

type Error struct {
	Line    int
	Column  int
	Message string
}
