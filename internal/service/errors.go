// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service holds the business rules for tenants, pages, navigation,
// themes and registration requests on top of the store.
package service

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/olegiv/ecdsites/internal/blocks"
)

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write collides with a uniqueness rule.
	ErrConflict = errors.New("conflict")
)

// ValidationError carries field-keyed input errors.
type ValidationError struct {
	Fields blocks.FieldErrors
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Fields.Error()
}

// BlockValidationError reports per-block props errors keyed by the block's
// index in the submitted list.
type BlockValidationError struct {
	Blocks map[int]blocks.FieldErrors
}

func (e *BlockValidationError) Error() string {
	idx := make([]int, 0, len(e.Blocks))
	for i := range e.Blocks {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	parts := make([]string, 0, len(idx))
	for _, i := range idx {
		parts = append(parts, "block "+strconv.Itoa(i)+": "+e.Blocks[i].Error())
	}
	return "block validation failed: " + strings.Join(parts, "; ")
}

func fieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: blocks.FieldErrors{field: message}}
}

// lookupErr maps sql.ErrNoRows to ErrNotFound and wraps anything else.
func lookupErr(what, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("loading %s %s: %w", what, id, err)
}
