// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/olegiv/ecdsites/internal/blocks"
	"github.com/olegiv/ecdsites/internal/publish"
	"github.com/olegiv/ecdsites/internal/store"
	"github.com/olegiv/ecdsites/internal/util"
)

// Page field limits.
const (
	MaxPageTitleLength       = 200
	MaxMetaDescriptionLength = 300
)

// CreatePageInput is the payload for creating a page.
type CreatePageInput struct {
	TenantID        string `json:"centre_id" validate:"required"`
	Title           string `json:"title" validate:"required,max=200"`
	Slug            string `json:"slug,omitempty" validate:"omitempty,slug"`
	MetaDescription string `json:"meta_description,omitempty" validate:"max=300"`
}

// BlockInput is one block of a page save, in display order. Order is
// optional; when sent it must equal the block's index in the list.
type BlockInput struct {
	BlockKey string          `json:"block_key"`
	Props    json.RawMessage `json:"props"`
	Order    *int64          `json:"order,omitempty"`
}

// SavePageInput patches page metadata field by field. A non-nil Blocks
// replaces the page's blocks wholesale.
type SavePageInput struct {
	Title           *string       `json:"title,omitempty"`
	Slug            *string       `json:"slug,omitempty"`
	MetaDescription *string       `json:"meta_description,omitempty"`
	Blocks          *[]BlockInput `json:"blocks,omitempty"`
}

// PageWithBlocks is a page and its blocks ordered by position.
type PageWithBlocks struct {
	Page   store.Page
	Blocks []store.Block
}

// PageService manages pages and their blocks.
type PageService struct {
	db          *sql.DB
	queries     *store.Queries
	registry    *blocks.Registry
	invalidator publish.Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewPageService creates a PageService. invalidator may be nil.
func NewPageService(db *sql.DB, registry *blocks.Registry, invalidator publish.Invalidator, logger *slog.Logger) *PageService {
	if invalidator == nil {
		invalidator = publish.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PageService{
		db:          db,
		queries:     store.New(db),
		registry:    registry,
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// CreatePage creates an unpublished page without blocks. An empty slug is
// derived from the title.
func (s *PageService) CreatePage(ctx context.Context, in CreatePageInput) (store.Page, error) {
	in.TenantID = strings.TrimSpace(in.TenantID)
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	in.MetaDescription = strings.TrimSpace(in.MetaDescription)

	if err := validateInput(in); err != nil {
		return store.Page{}, err
	}
	if in.Slug == "" {
		in.Slug = util.Slugify(in.Title)
		if in.Slug == "" {
			return store.Page{}, fieldError("slug", "is required")
		}
	}

	if _, err := s.queries.GetTenantByID(ctx, in.TenantID); err != nil {
		return store.Page{}, lookupErr("tenant", in.TenantID, err)
	}

	count, err := s.queries.CountPagesBySlug(ctx, store.CountPagesBySlugParams{
		TenantID: in.TenantID,
		Slug:     in.Slug,
	})
	if err != nil {
		return store.Page{}, fmt.Errorf("checking slug: %w", err)
	}
	if count > 0 {
		return store.Page{}, fmt.Errorf("slug %q: %w", in.Slug, ErrConflict)
	}

	now := s.now().UTC()
	page, err := s.queries.CreatePage(ctx, store.CreatePageParams{
		ID:              uuid.NewString(),
		TenantID:        in.TenantID,
		Title:           in.Title,
		Slug:            in.Slug,
		MetaDescription: util.NullStringFromValue(in.MetaDescription),
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return store.Page{}, fmt.Errorf("slug %q: %w", in.Slug, ErrConflict)
		}
		return store.Page{}, fmt.Errorf("creating page: %w", err)
	}

	s.logger.Info("page created", "page_id", page.ID, "tenant_id", page.TenantID, "slug", page.Slug)
	return page, nil
}

// GetPage returns a page with its blocks.
func (s *PageService) GetPage(ctx context.Context, id string) (PageWithBlocks, error) {
	page, err := s.queries.GetPageByID(ctx, id)
	if err != nil {
		return PageWithBlocks{}, lookupErr("page", id, err)
	}

	blockRows, err := s.queries.ListBlocksByPage(ctx, id)
	if err != nil {
		return PageWithBlocks{}, fmt.Errorf("listing blocks: %w", err)
	}
	if blockRows == nil {
		blockRows = []store.Block{}
	}
	return PageWithBlocks{Page: page, Blocks: blockRows}, nil
}

// ListPages returns a tenant's pages ordered by title.
func (s *PageService) ListPages(ctx context.Context, tenantID string) ([]store.Page, error) {
	pages, err := s.queries.ListPagesByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	if pages == nil {
		pages = []store.Page{}
	}
	return pages, nil
}

// SavePage patches metadata and optionally replaces all blocks. Every block
// is validated before anything is written; one invalid block rejects the
// whole save. The metadata update, block deletion and block inserts run in
// one transaction.
func (s *PageService) SavePage(ctx context.Context, id string, in SavePageInput) (PageWithBlocks, error) {
	page, err := s.queries.GetPageByID(ctx, id)
	if err != nil {
		return PageWithBlocks{}, lookupErr("page", id, err)
	}

	params, err := patchPage(page, in)
	if err != nil {
		return PageWithBlocks{}, err
	}
	params.UpdatedAt = s.now().UTC()

	var newBlocks []store.CreateBlockParams
	if in.Blocks != nil {
		newBlocks, err = s.prepareBlocks(id, *in.Blocks)
		if err != nil {
			return PageWithBlocks{}, err
		}
	}

	if params.Slug != page.Slug {
		count, err := s.queries.CountPagesBySlug(ctx, store.CountPagesBySlugParams{
			TenantID:  page.TenantID,
			Slug:      params.Slug,
			ExcludeID: id,
		})
		if err != nil {
			return PageWithBlocks{}, fmt.Errorf("checking slug: %w", err)
		}
		if count > 0 {
			return PageWithBlocks{}, fmt.Errorf("slug %q: %w", params.Slug, ErrConflict)
		}
	}

	var updated store.Page
	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		var err error
		updated, err = q.UpdatePage(ctx, params)
		if err != nil {
			return fmt.Errorf("updating page: %w", err)
		}
		if newBlocks == nil {
			return nil
		}

		if err := q.DeleteBlocksByPage(ctx, id); err != nil {
			return fmt.Errorf("deleting blocks: %w", err)
		}
		for _, b := range newBlocks {
			if err := q.CreateBlock(ctx, b); err != nil {
				return fmt.Errorf("inserting block %d: %w", b.Position, err)
			}
		}
		return nil
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return PageWithBlocks{}, fmt.Errorf("slug %q: %w", params.Slug, ErrConflict)
		}
		return PageWithBlocks{}, err
	}

	if updated.IsPublished {
		s.invalidate(ctx, updated.TenantID, publish.PathForSlug(page.Slug))
		if updated.Slug != page.Slug {
			s.invalidate(ctx, updated.TenantID, publish.PathForSlug(updated.Slug))
		}
	}

	s.logger.Info("page saved", "page_id", id, "tenant_id", updated.TenantID, "blocks_replaced", newBlocks != nil)
	return s.GetPage(ctx, id)
}

// patchPage applies the non-nil fields of in to page.
func patchPage(page store.Page, in SavePageInput) (store.UpdatePageParams, error) {
	params := store.UpdatePageParams{
		ID:              page.ID,
		Title:           page.Title,
		Slug:            page.Slug,
		MetaDescription: page.MetaDescription,
	}
	fields := blocks.FieldErrors{}

	if in.Title != nil {
		params.Title = strings.TrimSpace(*in.Title)
		switch {
		case params.Title == "":
			fields["title"] = "is required"
		case utf8.RuneCountInString(params.Title) > MaxPageTitleLength:
			fields["title"] = fmt.Sprintf("must be at most %d characters", MaxPageTitleLength)
		}
	}
	if in.Slug != nil {
		params.Slug = strings.TrimSpace(*in.Slug)
		if !util.IsValidSlug(params.Slug) {
			fields["slug"] = "must contain only lowercase letters, digits and single hyphens"
		}
	}
	if in.MetaDescription != nil {
		meta := strings.TrimSpace(*in.MetaDescription)
		if utf8.RuneCountInString(meta) > MaxMetaDescriptionLength {
			fields["meta_description"] = fmt.Sprintf("must be at most %d characters", MaxMetaDescriptionLength)
		}
		params.MetaDescription = util.NullStringFromValue(meta)
	}

	if len(fields) > 0 {
		return params, &ValidationError{Fields: fields}
	}
	return params, nil
}

// prepareBlocks validates and normalises every block, collecting errors by index.
func (s *PageService) prepareBlocks(pageID string, in []BlockInput) ([]store.CreateBlockParams, error) {
	out := make([]store.CreateBlockParams, 0, len(in))
	errs := make(map[int]blocks.FieldErrors)
	now := s.now().UTC()

	for i, b := range in {
		key := strings.TrimSpace(b.BlockKey)
		if key == "" {
			errs[i] = blocks.FieldErrors{"block_key": "is required"}
			continue
		}
		if b.Order != nil && *b.Order != int64(i) {
			errs[i] = blocks.FieldErrors{"order": fmt.Sprintf("must equal the block position %d", i)}
			continue
		}
		props, fe := s.registry.Normalize(key, b.Props)
		if fe != nil {
			errs[i] = fe
			continue
		}
		out = append(out, store.CreateBlockParams{
			ID:        uuid.NewString(),
			PageID:    pageID,
			BlockKey:  key,
			Position:  int64(i),
			Props:     string(props),
			CreatedAt: now,
		})
	}

	if len(errs) > 0 {
		return nil, &BlockValidationError{Blocks: errs}
	}
	return out, nil
}

// DeletePage deletes a page and, through the foreign key, its blocks.
func (s *PageService) DeletePage(ctx context.Context, id string) error {
	page, err := s.queries.GetPageByID(ctx, id)
	if err != nil {
		return lookupErr("page", id, err)
	}

	n, err := s.queries.DeletePage(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting page: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("page %s: %w", id, ErrNotFound)
	}

	if page.IsPublished {
		s.invalidate(ctx, page.TenantID, publish.PathForSlug(page.Slug))
	}
	s.logger.Info("page deleted", "page_id", id, "tenant_id", page.TenantID)
	return nil
}

// SetPublished toggles public visibility and invalidates the cached page.
// published_at records the first publish and survives unpublishing;
// updated_at tracks content edits only.
func (s *PageService) SetPublished(ctx context.Context, id string, published bool) (store.Page, error) {
	if _, err := s.queries.GetPageByID(ctx, id); err != nil {
		return store.Page{}, lookupErr("page", id, err)
	}

	publishedAt := sql.NullTime{}
	if published {
		publishedAt = util.NullTimeFromValue(s.now().UTC())
	}

	updated, err := s.queries.SetPagePublished(ctx, store.SetPagePublishedParams{
		IsPublished: published,
		PublishedAt: publishedAt,
		ID:          id,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Page{}, fmt.Errorf("page %s: %w", id, ErrNotFound)
		}
		return store.Page{}, fmt.Errorf("updating publish state: %w", err)
	}

	s.invalidate(ctx, updated.TenantID, publish.PathForSlug(updated.Slug))
	s.logger.Info("page publish state changed", "page_id", id, "tenant_id", updated.TenantID, "published", published)
	return updated, nil
}

// invalidate drops a cached path. Failures are logged; the cache TTL bounds staleness.
func (s *PageService) invalidate(ctx context.Context, tenantID, path string) {
	if err := s.invalidator.InvalidatePath(ctx, tenantID, path); err != nil {
		s.logger.Warn("cache invalidation failed",
			"tenant_id", tenantID, "path", path, "error", err, "category", "cache")
	}
}
