/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package attributes is the model behind the feature attribute panel:
// it follows the edited feature and validates changes against a JSON
// Schema before applying them.
package attributes

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"mapedit/internal/feature"
	applog "mapedit/internal/log"
)

var ErrNoFeature = errors.New("attributes: no feature is being edited")

// ValidationError lists schema violations.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "attributes: invalid: " + strings.Join(e.Problems, "; ")
}

// Field is one row of the attribute panel.
type Field struct {
	Name  string
	Value any
}

// Editor tracks the feature selected on a layer and edits its attributes.
type Editor struct {
	layer   *feature.Layer
	schema  *gojsonschema.Schema
	current *feature.Feature
	removes []func()
	log     *slog.Logger
}

// NewEditor binds to l. schemaJSON may be empty to accept any attributes.
func NewEditor(l *feature.Layer, schemaJSON []byte) (*Editor, error) {
	e := &Editor{layer: l, log: applog.WithComponent("attributes")}
	if len(schemaJSON) > 0 {
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
		if err != nil {
			return nil, fmt.Errorf("attributes: compile schema: %w", err)
		}
		e.schema = s
	}
	e.removes = append(e.removes,
		l.On(feature.EventSelectionStarted, func(ev *feature.Event) { e.current = ev.Feature }),
		l.On(feature.EventAfterModified, func(ev *feature.Event) {
			if ev.Feature == e.current {
				e.current = nil
			}
		}),
	)
	return e, nil
}

// Close detaches the editor from its layer.
func (e *Editor) Close() {
	for _, r := range e.removes {
		r()
	}
	e.removes = nil
}

// Current is the feature whose attributes are shown.
func (e *Editor) Current() *feature.Feature { return e.current }

// Fields returns the current attributes sorted by name.
func (e *Editor) Fields() []Field {
	if e.current == nil {
		return nil
	}
	names := slices.Sorted(maps.Keys(e.current.Attributes))
	out := make([]Field, 0, len(names))
	for _, n := range names {
		out = append(out, Field{Name: n, Value: e.current.Attributes[n]})
	}
	return out
}

// Validate checks attrs against the schema.
func (e *Editor) Validate(attrs map[string]any) error {
	if e.schema == nil {
		return nil
	}
	res, err := e.schema.Validate(gojsonschema.NewGoLoader(attrs))
	if err != nil {
		return fmt.Errorf("attributes: validate: %w", err)
	}
	if res.Valid() {
		return nil
	}
	ve := &ValidationError{}
	for _, re := range res.Errors() {
		ve.Problems = append(ve.Problems, re.String())
	}
	return ve
}

// Apply merges changes into the current feature's attributes. A nil value
// deletes the attribute. Nothing changes when validation fails.
func (e *Editor) Apply(changes map[string]any) error {
	f := e.current
	if f == nil {
		return ErrNoFeature
	}
	merged := maps.Clone(f.Attributes)
	if merged == nil {
		merged = map[string]any{}
	}
	for k, v := range changes {
		if v == nil {
			delete(merged, k)
		} else {
			merged[k] = v
		}
	}
	if err := e.Validate(merged); err != nil {
		return err
	}
	f.RememberAttributes()
	f.Attributes = merged
	f.ToState(feature.StateUpdate)
	e.log.Debug("attributes applied", slog.String("feature", f.ID), slog.Int("changes", len(changes)))
	e.layer.Redraw(f, "")
	e.layer.Notify(feature.Event{Type: feature.EventFeatureModified, Feature: f})
	return nil
}
