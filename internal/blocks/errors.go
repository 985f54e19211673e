// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package blocks

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a JSON field path (e.g. "items[1].title") to a message.
type FieldErrors map[string]string

// Error implements error with a stable, sorted rendering.
func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return strings.Join(parts, "; ")
}

// NewValidator returns a validator that names fields by their JSON tags.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// FromValidation converts a validator error into FieldErrors. It returns nil
// for a nil error.
func FromValidation(err error) FieldErrors {
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return fieldErrorsFrom(ve)
	}
	return FieldErrors{"": err.Error()}
}

// fieldErrorsFrom keys validator errors by JSON path without the root struct name.
func fieldErrorsFrom(ve validator.ValidationErrors) FieldErrors {
	out := make(FieldErrors, len(ve))
	for _, fe := range ve {
		path := fe.Namespace()
		if _, rest, ok := strings.Cut(path, "."); ok {
			path = rest
		}
		if _, exists := out[path]; !exists {
			out[path] = message(fe)
		}
	}
	return out
}

func message(fe validator.FieldError) string {
	isList := fe.Kind() == reflect.Slice || fe.Kind() == reflect.Array

	switch fe.Tag() {
	case "required", "required_with", "required_without", "required_without_all":
		return "is required"
	case "min":
		if isList {
			return fmt.Sprintf("must have at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		if isList {
			return fmt.Sprintf("must have at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "url", "http_url":
		return "must be a valid URL"
	case "email":
		return "must be a valid email address"
	case "hexcolor":
		return "must be a hex colour such as #1d4ed8"
	case "uri":
		return "must be a valid link"
	case "slug":
		return "must contain only lowercase letters, digits and single hyphens"
	case "subdomain":
		return "must be a DNS label of lowercase letters, digits and hyphens (max 63)"
	case "fqdn", "hostname":
		return "must be a valid hostname"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	default:
		return "is invalid"
	}
}

func decodeError(err error) FieldErrors {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError

	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "props"
		}
		return FieldErrors{field: "must be " + jsonKind(typeErr.Type)}
	case errors.As(err, &syntaxErr):
		return FieldErrors{"props": "is not valid JSON"}
	}

	// encoding/json reports unknown fields as `json: unknown field "name"`.
	if name, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return FieldErrors{strings.Trim(name, `"`): "is not a known field"}
	}
	return FieldErrors{"props": "is not a valid JSON object"}
}

func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.Slice, reflect.Array:
		return "a list"
	default:
		return "an object"
	}
}
