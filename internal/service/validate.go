// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"github.com/go-playground/validator/v10"

	"github.com/olegiv/ecdsites/internal/blocks"
	"github.com/olegiv/ecdsites/internal/util"
)

var validate = newInputValidator()

func newInputValidator() *validator.Validate {
	v := blocks.NewValidator()
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return util.IsValidSlug(fl.Field().String())
	})
	_ = v.RegisterValidation("subdomain", func(fl validator.FieldLevel) bool {
		return util.IsValidSubdomainLabel(fl.Field().String())
	})
	return v
}

// validateInput runs struct tag validation and wraps failures in a ValidationError.
func validateInput(in any) error {
	if fe := blocks.FromValidation(validate.Struct(in)); fe != nil {
		return &ValidationError{Fields: fe}
	}
	return nil
}
