// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ecdsites/internal/auth"
	"github.com/olegiv/ecdsites/internal/testutil"
)

func TestCreateAdmin(t *testing.T) {
	svc := NewAdminService(testDB(t), testutil.TestLoggerSilent())
	ctx := context.Background()

	user, err := svc.CreateAdmin(ctx, CreateAdminInput{
		Email:    " Ops@Example.COM ",
		Name:     "Nomsa",
		Password: "correct horse battery staple",
	})
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", user.Email)

	ok, err := auth.CheckPassword("correct horse battery staple", user.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.CreateAdmin(ctx, CreateAdminInput{Email: "ops@example.com", Name: "Again", Password: "another long password"})
	assert.True(t, errors.Is(err, ErrConflict), "err = %v", err)
}

func TestCreateAdminValidation(t *testing.T) {
	svc := NewAdminService(testDB(t), testutil.TestLoggerSilent())

	tests := []struct {
		name  string
		in    CreateAdminInput
		field string
	}{
		{"bad email", CreateAdminInput{Email: "nope", Name: "A", Password: "correct horse battery"}, "email"},
		{"missing name", CreateAdminInput{Email: "a@example.com", Password: "correct horse battery"}, "name"},
		{"short password", CreateAdminInput{Email: "a@example.com", Name: "A", Password: "short"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateAdmin(context.Background(), tt.in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tt.field)
		})
	}
}
