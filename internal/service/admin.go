// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/ecdsites/internal/auth"
	"github.com/olegiv/ecdsites/internal/store"
)

// CreateAdminInput is the payload for creating an admin user.
type CreateAdminInput struct {
	Email    string `json:"email" yaml:"email" validate:"required,email,max=254"`
	Name     string `json:"name" yaml:"name" validate:"required,max=120"`
	Password string `json:"password" yaml:"password" validate:"required"`
}

// AdminService manages platform admin accounts.
type AdminService struct {
	queries *store.Queries
	logger  *slog.Logger
	now     func() time.Time
}

// NewAdminService creates an AdminService.
func NewAdminService(db *sql.DB, logger *slog.Logger) *AdminService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{queries: store.New(db), logger: logger, now: time.Now}
}

// CreateAdmin stores a new admin with an argon2id password hash. Emails are
// case-insensitive and unique.
func (s *AdminService) CreateAdmin(ctx context.Context, in CreateAdminInput) (store.AdminUser, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)

	if err := validateInput(in); err != nil {
		return store.AdminUser{}, err
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return store.AdminUser{}, fieldError("password", err.Error())
	}

	if _, err := s.queries.GetAdminUserByEmail(ctx, in.Email); err == nil {
		return store.AdminUser{}, fmt.Errorf("admin %s: %w", in.Email, ErrConflict)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return store.AdminUser{}, fmt.Errorf("checking admin email: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return store.AdminUser{}, fmt.Errorf("hashing password: %w", err)
	}

	now := s.now().UTC()
	user, err := s.queries.CreateAdminUser(ctx, store.CreateAdminUserParams{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if store.IsUniqueViolation(err) {
		return store.AdminUser{}, fmt.Errorf("admin %s: %w", in.Email, ErrConflict)
	}
	if err != nil {
		return store.AdminUser{}, fmt.Errorf("creating admin: %w", err)
	}

	s.logger.Info("admin user created", "user_id", user.ID, "email", user.Email, "category", "auth")
	return user, nil
}
