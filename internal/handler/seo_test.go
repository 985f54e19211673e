// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ecdsites/internal/service"
	"github.com/olegiv/ecdsites/internal/testutil"
)

func TestSitemapListsPublishedPages(t *testing.T) {
	s := newSite(t)
	ctx := context.Background()
	centre := testutil.CreateTenant(t, s.db, "sunshine")
	testutil.CreateTenant(t, s.db, "rainbow")

	for _, slug := range []string{"home", "fees", "draft"} {
		page, err := s.pages.CreatePage(ctx, service.CreatePageInput{TenantID: centre.ID, Title: slug, Slug: slug})
		require.NoError(t, err)
		if slug != "draft" {
			_, err = s.pages.SetPublished(ctx, page.ID, true)
			require.NoError(t, err)
		}
	}

	rec := s.get(t, subdomain("sunshine"), "/sitemap.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "<loc>http://sunshine.sites.test/</loc>")
	assert.Contains(t, body, "<loc>http://sunshine.sites.test/fees</loc>")
	assert.NotContains(t, body, "/draft")
	assert.NotContains(t, body, "/home<")

	rec = s.get(t, subdomain("rainbow"), "/sitemap.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<url>")
}

func TestSitemapUnknownHost(t *testing.T) {
	s := newSite(t)

	rec := s.get(t, "nowhere.example.org", "/sitemap.xml")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRobots(t *testing.T) {
	s := newSite(t)
	testutil.CreateTenant(t, s.db, "sunshine")

	rec := s.get(t, subdomain("sunshine"), "/robots.txt")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Disallow: /admin")
	assert.Contains(t, rec.Body.String(), "Sitemap: http://sunshine.sites.test/sitemap.xml")

	rec = s.get(t, "nowhere.example.org", "/robots.txt")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Disallow: /\n")
	assert.NotContains(t, rec.Body.String(), "Sitemap:")
}
