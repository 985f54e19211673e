// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ecdsites/internal/blocks"
	"github.com/olegiv/ecdsites/internal/store"
	"github.com/olegiv/ecdsites/internal/testutil"
)

func TestCreatePage(t *testing.T) {
	db, svc, _ := newTestPageService(t)
	ctx := context.Background()
	tenant := testutil.CreateTenant(t, db, "sunshine")

	page, err := svc.CreatePage(ctx, CreatePageInput{TenantID: tenant.ID, Title: "About Us"})
	require.NoError(t, err)
	assert.Equal(t, "about-us", page.Slug)
	assert.False(t, page.IsPublished)
	assert.False(t, page.MetaDescription.Valid)

	_, err = svc.CreatePage(ctx, CreatePageInput{TenantID: tenant.ID, Title: "About again", Slug: "about-us"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.CreatePage(ctx, CreatePageInput{TenantID: "missing", Title: "About"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.CreatePage(ctx, CreatePageInput{TenantID: tenant.ID, Title: "Bad", Slug: "Not Valid"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "slug")

	_, err = svc.CreatePage(ctx, CreatePageInput{TenantID: tenant.ID})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "is required", ve.Fields["title"])
}

func TestCreatePageSameSlugDifferentTenants(t *testing.T) {
	db, svc, _ := newTestPageService(t)
	ctx := context.Background()
	a := testutil.CreateTenant(t, db, "alpha")
	b := testutil.CreateTenant(t, db, "beta")

	_, err := svc.CreatePage(ctx, CreatePageInput{TenantID: a.ID, Title: "About", Slug: "about"})
	require.NoError(t, err)
	_, err = svc.CreatePage(ctx, CreatePageInput{TenantID: b.ID, Title: "About", Slug: "about"})
	require.NoError(t, err)

	pagesA, err := svc.ListPages(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, pagesA, 1)
	assert.Equal(t, a.ID, pagesA[0].TenantID)
}

func TestListPagesOrderedByTitle(t *testing.T) {
	db, svc, _ := newTestPageService(t)
	ctx := context.Background()
	tenant := testutil.CreateTenant(t, db, "sunshine")

	for _, title := range []string{"Fees", "About", "Contact"} {
		_, err := svc.CreatePage(ctx, CreatePageInput{TenantID: tenant.ID, Title: title})
		require.NoError(t, err)
	}

	pages, err := svc.ListPages(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, []string{"About", "Contact", "Fees"}, []string{pages[0].Title, pages[1].Title, pages[2].Title})

	empty, err := svc.ListPages(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSavePageReplacesBlocks(t *testing.T) {
	db, svc, _ := newTestPageService(t)
	ctx := context.Background()
	tenant := testutil.CreateTenant(t, db, "sunshine")
	page, err := svc.CreatePage(ctx, CreatePageInput{TenantID: tenant.ID, Title: "Home", Slug: "home"})
	require.NoError(t, err)

	saved, err := svc.SavePage(ctx, page.ID, SavePageInput{
		Title: strPtr("Welcome"),
		Blocks: &[]BlockInput{
			{BlockKey: "hero", Props: json.RawMessage(`{"title":"Hello"}`)},
			{BlockKey: "text", Props: json.RawMessage(`{"body":"We care."}`)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Welcome", saved.Page.Title)
	require.Len(t, saved.Blocks, 2)
	assert.Equal(t, "hero", saved.Blocks[0].BlockKey)
	assert.Equal(t, int64(0), saved.Blocks[0].Position)
	assert.Equal(t, int64(1), saved.Blocks[1].Position)
	assert.JSONEq(t, `{"title":"Hello","alignment":"center"}`, saved.Blocks[0].Props, "defaults are stored")

	saved, err = svc.SavePage(ctx, page.ID, SavePageInput{
		Blocks: &[]BlockInput{{BlockKey: "cta", Props: json.RawMessage(`{"heading":"Join"}`)}},
	})
	require.NoError(t, err)
	require.Len(t, saved.Blocks, 1)
	assert.Equal(t, "cta", saved.Blocks[0].BlockKey)
	assert.Equal(t, "Welcome", saved.Page.Title, "omitted fields are untouched")

	saved, err = svc.SavePage(ctx, page.ID, SavePageInput{MetaDescription: strPtr("Play-based learning")})
	require.NoError(t, err)
	assert.Len(t, saved.Blocks, 1, "blocks untouched when omitted")
	assert.Equal(t, "Play-based learning", saved.Page.MetaDescription.String)

	saved, err = svc.SavePage(ctx, page.ID, SavePageInput{Blocks: &[]BlockInput{}})
	require.NoError(t, err)
	assert.Empty(t, saved.Blocks)
}

func TestSavePageAllOrNothing(t *testing.T) {
	db, svc, _ := newTestPageService(t)
	ctx := context.Background()
	tenant := testutil.CreateTenant(t, db, "sunshine")
	page, err := svc.CreatePage(ctx, CreatePageInput{TenantID: tenant.ID, Title: "Programme"})
	require.NoError(t, err)

	_, err = svc.SavePage(ctx, page.ID, SavePageInput{
		Blocks: &[]BlockInput{{BlockKey: "text", Props: json.RawMessage(`{"body":"Original"}`)}},
	})
	require.NoError(t, err)

	_, err = svc.SavePage(ctx, page.ID, SavePageInput{
		Title: strPtr("Changed"),
		Blocks: &[]BlockInput{
			{BlockKey: "hero", Props: json.RawMessage(`{"title":"Fine"}`)},
			{BlockKey: "features", Props: json.RawMessage(`{"items":[{"title":"Only one"}]}`)},
			{BlockKey: "carousel", Props: json.RawMessage(`{}`)},
		},
	})
	var bve *BlockValidationError
	require.ErrorAs(t, err, &bve)
	require.Len(t, bve.Blocks, 2)
	assert.Equal(t, blocks.FieldErrors{"items": "must have at least 2 items"}, bve.Blocks[1])
	assert.Contains(t, bve.Blocks[2], "block_key")
	assert.NotContains(t, bve.Blocks, 0)

	current, err := svc.GetPage(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "Programme", current.Page.Title, "metadata must not change")
	require.Len(t, current.Blocks, 1)
	assert.Equal(t, "text", current.Blocks[0].BlockKey)
}

func TestSavePageValidation(t *testing.T) {
	db, svc, _ := newTestPageService(t)
	ctx := context.Background()
	tenant := testutil.CreateTenant(t, db, "sunshine")
	page, err := svc.CreatePage(ctx, CreatePageInput{TenantID: tenant.ID, Title: "Fees", Slug: "fees"})
	require.NoError(t, err)
	_, err = svc.CreatePage(ctx, CreatePageInput{TenantID: tenant.ID, Title: "About", Slug: "about"})
	require.NoError(t, err)

	_, err = svc.SavePage(ctx, page.ID, SavePageInput{Title: strPtr("   ")})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "is required", ve.Fields["title"])

	_, err = svc.SavePage(ctx, page.ID, SavePageInput{Slug: strPtr("About Us")})
	require.ErrorAs(t, err, &ve)

	_, err = svc.SavePage(ctx, page.ID, SavePageInput{Slug: strPtr("about")})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.SavePage(ctx, "missing", SavePageInput{Title: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSavePageBlockOrder(t *testing.T) {
	db, svc, _ := newTestPageService(t)
	ctx := context.Background()
	tenant := testutil.CreateTenant(t, db, "sunshine")
	page, err := svc.CreatePage(ctx, CreatePageInput{TenantID: tenant.ID, Title: "Home"})
	require.NoError(t, err)

	saved, err := svc.SavePage(ctx, page.ID, SavePageInput{
		Blocks: &[]BlockInput{
			{BlockKey: "hero", Props: json.RawMessage(`{"title":"Hello"}`), Order: int64Ptr(0)},
			{BlockKey: "text", Props: json.RawMessage(`{"body":"Hi"}`), Order: int64Ptr(1)},
		},
	})
	require.NoError(t, err)
	require.Len(t, saved.Blocks, 2)
	assert.Equal(t, "text", saved.Blocks[1].BlockKey)

	_, err = svc.SavePage(ctx, page.ID, SavePageInput{
		Blocks: &[]BlockInput{
			{BlockKey: "hero", Props: json.RawMessage(`{"title":"Hello"}`), Order: int64Ptr(1)},
			{BlockKey: "text", Props: json.RawMessage(`{"body":"Hi"}`)},
		},
	})
	var bve *BlockValidationError
	require.ErrorAs(t, err, &bve)
	require.Len(t, bve.Blocks, 1)
	assert.Contains(t, bve.Blocks[0], "order")
}

func TestPatchPageLengthsCountCharacters(t *testing.T) {
	tests := []struct {
		name    string
		in      SavePageInput
		wantErr string
	}{
		{"multibyte title at limit", SavePageInput{Title: strPtr(strings.Repeat("é", MaxPageTitleLength))}, ""},
		{"title over limit", SavePageInput{Title: strPtr(strings.Repeat("é", MaxPageTitleLength+1))}, "title"},
		{"multibyte meta at limit", SavePageInput{MetaDescription: strPtr(strings.Repeat("ü", MaxMetaDescriptionLength))}, ""},
		{"meta over limit", SavePageInput{MetaDescription: strPtr(strings.Repeat("a", MaxMetaDescriptionLength+1))}, "meta_description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := patchPage(store.Page{ID: "p", Title: "Home", Slug: "home"}, tt.in)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tt.wantErr)
		})
	}
}

func TestSetPublishedInvalidates(t *testing.T) {
	db, svc, inv := newTestPageService(t)
	ctx := context.Background()
	tenant := testutil.CreateTenant(t, db, "sunshine")
	page, err := svc.CreatePage(ctx, CreatePageInput{TenantID: tenant.ID, Title: "About", Slug: "about"})
	require.NoError(t, err)

	published, err := svc.SetPublished(ctx, page.ID, true)
	require.NoError(t, err)
	assert.True(t, published.IsPublished)
	require.True(t, published.PublishedAt.Valid)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	again, err := svc.SetPublished(ctx, page.ID, true)
	require.NoError(t, err)
	assert.True(t, again.PublishedAt.Time.Equal(published.PublishedAt.Time), "re-publishing keeps the publish time")

	unpublished, err := svc.SetPublished(ctx, page.ID, false)
	require.NoError(t, err)
	assert.False(t, unpublished.IsPublished)
	require.True(t, unpublished.PublishedAt.Valid, "unpublishing keeps the first publish time")
	assert.True(t, unpublished.PublishedAt.Time.Equal(published.PublishedAt.Time))

	republished, err := svc.SetPublished(ctx, page.ID, true)
	require.NoError(t, err)
	assert.True(t, republished.PublishedAt.Time.Equal(published.PublishedAt.Time))
	assert.True(t, republished.UpdatedAt.Equal(published.UpdatedAt), "publish toggles do not count as edits")

	assert.Equal(t, []string{
		tenant.ID + ":/about",
		tenant.ID + ":/about",
		tenant.ID + ":/about",
		tenant.ID + ":/about",
	}, inv.Paths())

	_, err = svc.SetPublished(ctx, "missing", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSavePublishedPageInvalidatesOldAndNewPath(t *testing.T) {
	db, svc, inv := newTestPageService(t)
	ctx := context.Background()
	tenant := testutil.CreateTenant(t, db, "sunshine")
	page, err := svc.CreatePage(ctx, CreatePageInput{TenantID: tenant.ID, Title: "Home", Slug: "home"})
	require.NoError(t, err)

	_, err = svc.SavePage(ctx, page.ID, SavePageInput{Title: strPtr("Draft edit")})
	require.NoError(t, err)
	assert.Empty(t, inv.Paths(), "unpublished pages are not cached")

	_, err = svc.SetPublished(ctx, page.ID, true)
	require.NoError(t, err)
	_, err = svc.SavePage(ctx, page.ID, SavePageInput{Slug: strPtr("welcome")})
	require.NoError(t, err)

	assert.Equal(t, []string{
		tenant.ID + ":/",
		tenant.ID + ":/",
		tenant.ID + ":/welcome",
	}, inv.Paths())
}

func TestDeletePage(t *testing.T) {
	db, svc, inv := newTestPageService(t)
	ctx := context.Background()
	tenant := testutil.CreateTenant(t, db, "sunshine")
	page, err := svc.CreatePage(ctx, CreatePageInput{TenantID: tenant.ID, Title: "About", Slug: "about"})
	require.NoError(t, err)
	_, err = svc.SavePage(ctx, page.ID, SavePageInput{
		Blocks: &[]BlockInput{{BlockKey: "text", Props: json.RawMessage(`{"body":"x"}`)}},
	})
	require.NoError(t, err)
	_, err = svc.SetPublished(ctx, page.ID, true)
	require.NoError(t, err)

	require.NoError(t, svc.DeletePage(ctx, page.ID))
	assert.ErrorIs(t, svc.DeletePage(ctx, page.ID), ErrNotFound)

	_, err = svc.GetPage(ctx, page.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	remaining, err := store.New(db).ListBlocksByPage(ctx, page.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining, "blocks cascade with the page")
	assert.Contains(t, inv.Paths(), tenant.ID+":/about")
}

func TestSavePageRollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	logger := testutil.TestLoggerSilent()
	inv := &recordingInvalidator{}
	svc := NewPageService(db, blocks.NewDefaultRegistry(logger), inv, logger)

	now := time.Now().UTC()
	columns := []string{"id", "tenant_id", "title", "slug", "meta_description", "is_published", "published_at", "created_at", "updated_at"}

	mock.ExpectQuery(`SELECT (.+) FROM pages WHERE id`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("p1", "t1", "About", "about", nil, true, now, now, now))
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE pages SET title`).
		WillReturnRows(sqlmock.NewRows(columns).AddRow("p1", "t1", "About", "about", nil, true, now, now, now))
	mock.ExpectExec(`DELETE FROM blocks WHERE page_id`).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`INSERT INTO blocks`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO blocks`).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err = svc.SavePage(context.Background(), "p1", SavePageInput{
		Blocks: &[]BlockInput{
			{BlockKey: "hero", Props: json.RawMessage(`{"title":"One"}`)},
			{BlockKey: "hero", Props: json.RawMessage(`{"title":"Two"}`)},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inserting block 1")
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, inv.Paths(), "nothing is invalidated when the save fails")
}
