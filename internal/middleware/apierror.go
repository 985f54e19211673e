// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for tenant context, admin
// authentication, rate limiting and response hardening.
package middleware

import (
	"encoding/json"
	"net/http"
)

// APIErrorBody is the payload of every JSON error response.
type APIErrorBody struct {
	Code    string                       `json:"code"`
	Message string                       `json:"message"`
	Details map[string]string            `json:"details,omitempty"`
	Blocks  map[string]map[string]string `json:"blocks,omitempty"`
}

// APIError represents a JSON error response for the API.
type APIError struct {
	Error APIErrorBody `json:"error"`
}

// WriteAPIError writes a JSON error response.
func WriteAPIError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteAPIErrorBody(w, statusCode, APIErrorBody{Code: code, Message: message, Details: details})
}

// WriteAPIErrorBody writes a fully populated JSON error response.
func WriteAPIErrorBody(w http.ResponseWriter, statusCode int, body APIErrorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIError{Error: body})
}
