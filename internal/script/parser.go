/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mapedit/internal/input"
)

// KeyCodes maps the key names accepted by "key" steps.
var KeyCodes = map[string]int{
	"backspace": input.KeyBackspace,
	"escape":    input.KeyEscape,
	"esc":       input.KeyEscape,
	"delete":    input.KeyDelete,
	"del":       input.KeyDelete,
	"d":         input.KeyD,
	"y":         input.KeyY,
	"z":         input.KeyZ,
}

// Parse parses a gesture script.
// Supported syntax:
// - Section headings: lines starting with "#" introduce a new section. The rest of the line is the title.
// - Steps: one action per line followed by its arguments, separated by blanks.
//   - down|move|up X Y
//   - key NAME|CODE
//   - select REF, mode MODE, unselect, undo, redo
//
// - Notes: lines starting with ';' are ignored.
//
// Bad lines are reported and skipped; parsing goes on.
func Parse(src string) (Script, []Error) {
	s := Script{Sections: []Section{}}
	var errs []Error

	scanner := bufio.NewScanner(strings.NewReader(src))
	lineNo := 0
	current := Section{}

	// Patterns
	reSection := regexp.MustCompile(`^(#+)\s*(.*)$`)
	reStep := regexp.MustCompile(`^([A-Za-z]+)\b\s*(.*)$`)

	flush := func() {
		if strings.TrimSpace(current.Title) != "" || len(current.Steps) > 0 {
			s.Sections = append(s.Sections, current)
		}
	}
	fail := func(col int, format string, args ...any) {
		errs = append(errs, Error{Line: lineNo, Column: col, Message: fmt.Sprintf(format, args...)})
	}

	for scanner.Scan() {
		lineNo++
		trim := strings.TrimSpace(scanner.Text())
		if trim == "" || strings.HasPrefix(trim, ";") {
			continue
		}
		if m := reSection.FindStringSubmatch(trim); m != nil {
			flush()
			current = Section{Title: strings.TrimSpace(m[2])}
			continue
		}
		m := reStep.FindStringSubmatch(trim)
		if m == nil {
			fail(1, "expected an action, got %q", trim)
			continue
		}
		act, ok := actionNames[strings.ToLower(m[1])]
		if !ok {
			fail(1, "unknown action %q", m[1])
			continue
		}
		args := strings.Fields(m[2])
		argCol := len(m[1]) + 2
		step := Step{Action: act, LineNo: lineNo}
		switch act {
		case ActionDown, ActionMove, ActionUp:
			if len(args) != 2 {
				fail(argCol, "%s needs X and Y", m[1])
				continue
			}
			x, errX := strconv.ParseFloat(args[0], 64)
			y, errY := strconv.ParseFloat(args[1], 64)
			if errX != nil || errY != nil {
				fail(argCol, "bad coordinates %q", m[2])
				continue
			}
			step.X, step.Y = x, y
		case ActionKey:
			if len(args) != 1 {
				fail(argCol, "key needs a name or code")
				continue
			}
			code, ok := KeyCodes[strings.ToLower(args[0])]
			if !ok {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					fail(argCol, "unknown key %q", args[0])
					continue
				}
				code = n
			}
			step.Code = code
		case ActionSelect, ActionMode:
			if len(args) == 0 {
				fail(argCol, "%s needs an argument", m[1])
				continue
			}
			step.Arg = strings.Join(args, " ")
		default:
			if len(args) != 0 {
				fail(argCol, "%s takes no arguments", m[1])
				continue
			}
		}
		current.Steps = append(current.Steps, step)
	}
	flush()

	if err := scanner.Err(); err != nil {
		errs = append(errs, Error{Line: lineNo, Column: 1, Message: err.Error()})
	}
	return s, errs
}

// Steps flattens all sections in order.
func (s Script) Steps() []Step {
	var out []Step
	for _, sec := range s.Sections {
		out = append(out, sec.Steps...)
	}
	return out
}
