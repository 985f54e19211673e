// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package blocks is the catalogue of page-builder content blocks: display
// metadata, a props schema validated with go-playground/validator and an
// HTML renderer per block key.
package blocks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Categories used by the admin block picker.
const (
	CategoryLayout  = "layout"
	CategoryContent = "content"
	CategoryMedia   = "media"
	CategoryConvert = "conversion"
)

// Definition describes one block type.
type Definition struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`

	// NewProps returns a pointer to a zero props struct. Struct tags carry
	// the JSON names and validator rules.
	NewProps func() any `json:"-"`

	// RenderHTML writes the block for props previously produced by NewProps.
	RenderHTML func(w io.Writer, props any) error `json:"-"`
}

// defaulter is implemented by props structs with default values.
type defaulter interface {
	applyDefaults()
}

// ErrDuplicateKey is returned when a block key is registered twice.
var ErrDuplicateKey = errors.New("block key already registered")

// Registry maps block keys to definitions. Registration happens at startup;
// lookups are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	defs     map[string]Definition
	order    []string
	validate *validator.Validate
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		defs:     make(map[string]Definition),
		validate: NewValidator(),
		logger:   logger,
	}
}

// Register adds a block definition.
func (r *Registry) Register(def Definition) error {
	if def.Key == "" {
		return errors.New("block key is required")
	}
	if def.NewProps == nil || def.RenderHTML == nil {
		return fmt.Errorf("block %q: NewProps and RenderHTML are required", def.Key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, def.Key)
	}
	r.defs[def.Key] = def
	r.order = append(r.order, def.Key)
	return nil
}

// Get returns the definition for key.
func (r *Registry) Get(key string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[key]
	return def, ok
}

// List returns all definitions in registration order.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.order))
	for _, key := range r.order {
		defs = append(defs, r.defs[key])
	}
	return defs
}

// Validate decodes props strictly into the block's schema, applies schema
// defaults and runs the validator. On success it returns the typed props
// (a pointer to the schema struct); otherwise field-keyed errors.
func (r *Registry) Validate(key string, props json.RawMessage) (any, FieldErrors) {
	def, ok := r.Get(key)
	if !ok {
		return nil, FieldErrors{"block_key": fmt.Sprintf("unknown block type %q", key)}
	}

	typed, fe := decodeProps(def, props)
	if fe != nil {
		return nil, fe
	}

	if err := r.validate.Struct(typed); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return nil, fieldErrorsFrom(ve)
		}
		return nil, FieldErrors{"props": err.Error()}
	}
	return typed, nil
}

// Normalize validates props and re-encodes them with defaults applied, so
// stored props are exactly what the renderer sees.
func (r *Registry) Normalize(key string, props json.RawMessage) (json.RawMessage, FieldErrors) {
	typed, fe := r.Validate(key, props)
	if fe != nil {
		return nil, fe
	}
	data, err := json.Marshal(typed)
	if err != nil {
		return nil, FieldErrors{"props": err.Error()}
	}
	return data, nil
}

// Render renders one block. Unknown keys and undecodable props are logged
// and reported as false so the caller can skip the block.
func (r *Registry) Render(key string, props json.RawMessage) (template.HTML, bool) {
	def, ok := r.Get(key)
	if !ok {
		r.logger.Warn("skipping unknown block", "block_key", key, "category", "page")
		return "", false
	}

	typed, fe := decodeProps(def, props)
	if fe != nil {
		r.logger.Warn("skipping block with undecodable props",
			"block_key", key, "errors", fe.Error(), "category", "page")
		return "", false
	}

	var buf bytes.Buffer
	if err := def.RenderHTML(&buf, typed); err != nil {
		r.logger.Warn("block render failed", "block_key", key, "error", err, "category", "page")
		return "", false
	}
	// Output comes from html/template, so it is already escaped.
	return template.HTML(buf.String()), true // #nosec G203
}

func decodeProps(def Definition, props json.RawMessage) (any, FieldErrors) {
	if len(bytes.TrimSpace(props)) == 0 || bytes.Equal(bytes.TrimSpace(props), []byte("null")) {
		props = json.RawMessage("{}")
	}

	typed := def.NewProps()
	dec := json.NewDecoder(bytes.NewReader(props))
	dec.DisallowUnknownFields()
	if err := dec.Decode(typed); err != nil {
		return nil, decodeError(err)
	}
	if dec.More() {
		return nil, FieldErrors{"props": "must be a single JSON object"}
	}

	if d, ok := typed.(defaulter); ok {
		d.applyDefaults()
	}
	return typed, nil
}
