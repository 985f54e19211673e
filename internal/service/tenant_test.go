// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ecdsites/internal/imaging"
	"github.com/olegiv/ecdsites/internal/testutil"
)

type recordingHosts struct {
	mu    sync.Mutex
	hosts []string
}

func (r *recordingHosts) Invalidate(_ context.Context, hosts ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hosts = append(r.hosts, hosts...)
	return nil
}

func (r *recordingHosts) SubdomainHost(slug string) string {
	return slug + ".sites.test"
}

func (r *recordingHosts) Hosts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.hosts...)
}

func newTestTenantService(t *testing.T) (*TenantService, *recordingHosts, *recordingInvalidator) {
	t.Helper()
	db := testDB(t)
	hosts := &recordingHosts{}
	inv := &recordingInvalidator{}
	svc := NewTenantService(db, hosts, inv, imaging.NewProcessor(t.TempDir()), testutil.TestLoggerSilent())
	return svc, hosts, inv
}

func TestCreateTenant(t *testing.T) {
	svc, _, _ := newTestTenantService(t)
	ctx := context.Background()

	tenant, err := svc.CreateTenant(ctx, CreateTenantInput{
		Name:          "Little Acorns Early Learning",
		PrimaryDomain: "WWW.LittleAcorns.example.",
		ContactEmail:  "hello@littleacorns.example",
	})
	require.NoError(t, err)
	assert.Equal(t, "little-acorns-early-learning", tenant.Slug)
	assert.Equal(t, TenantActive, tenant.Status)
	assert.Equal(t, "starter", tenant.Tier)
	assert.Equal(t, "www.littleacorns.example", tenant.PrimaryDomain.String)

	domains, err := svc.ListDomains(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, domains, 1)
	assert.Equal(t, "www.littleacorns.example", domains[0].Hostname)
	assert.True(t, domains[0].IsPrimary)
	assert.False(t, domains[0].VerifiedAt.Valid, "primary domain starts unverified")
	assert.True(t, strings.HasPrefix(domains[0].VerificationToken, "ecd-verify-"))

	_, err = svc.CreateTenant(ctx, CreateTenantInput{Name: "Other", Slug: tenant.Slug})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateTenantValidation(t *testing.T) {
	svc, _, _ := newTestTenantService(t)
	ctx := context.Background()

	_, err := svc.CreateTenant(ctx, CreateTenantInput{
		Slug:         "Bad_Slug",
		PrimaryColor: "blue",
		Tier:         "platinum",
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "name")
	assert.Contains(t, ve.Fields, "slug")
	assert.Contains(t, ve.Fields, "primary_color")
	assert.Equal(t, "must be one of: starter, growth, premium", ve.Fields["tier"])
}

func TestCreateTenantPrimaryDomainTakenIsNotFatal(t *testing.T) {
	svc, _, _ := newTestTenantService(t)
	ctx := context.Background()

	first, err := svc.CreateTenant(ctx, CreateTenantInput{Name: "First", PrimaryDomain: "shared.example"})
	require.NoError(t, err)
	second, err := svc.CreateTenant(ctx, CreateTenantInput{Name: "Second", PrimaryDomain: "shared.example"})
	require.NoError(t, err)

	domains, err := svc.ListDomains(ctx, second.ID)
	require.NoError(t, err)
	assert.Empty(t, domains, "hostname stays with the first centre")

	domains, err = svc.ListDomains(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, domains, 1)
}

func TestUpdateTenant(t *testing.T) {
	svc, hosts, inv := newTestTenantService(t)
	ctx := context.Background()

	tenant, err := svc.CreateTenant(ctx, CreateTenantInput{Name: "Sunshine", Slug: "sunshine"})
	require.NoError(t, err)

	updated, err := svc.UpdateTenant(ctx, tenant.ID, UpdateTenantInput{Name: strPtr("Sunshine ECD")})
	require.NoError(t, err)
	assert.Equal(t, "Sunshine ECD", updated.Name)
	assert.Equal(t, "sunshine", updated.Slug)
	assert.Empty(t, hosts.Hosts(), "name changes keep host resolutions")
	assert.Equal(t, []string{tenant.ID}, inv.Tenants())

	archived, err := svc.ArchiveTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, TenantArchived, archived.Status)
	assert.Contains(t, hosts.Hosts(), "sunshine.sites.test")

	active, err := svc.ListActiveTenants(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	got, err := svc.GetTenant(ctx, tenant.ID)
	require.NoError(t, err, "archived centres stay readable by id")
	assert.Equal(t, TenantArchived, got.Status)

	_, err = svc.UpdateTenant(ctx, tenant.ID, UpdateTenantInput{Status: strPtr("deleted")})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "status")

	_, err = svc.UpdateTenant(ctx, "missing", UpdateTenantInput{Name: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateTenantDomainChange(t *testing.T) {
	svc, hosts, _ := newTestTenantService(t)
	ctx := context.Background()

	tenant, err := svc.CreateTenant(ctx, CreateTenantInput{Name: "Sunshine", Slug: "sunshine", PrimaryDomain: "old.example"})
	require.NoError(t, err)

	updated, err := svc.UpdateTenant(ctx, tenant.ID, UpdateTenantInput{PrimaryDomain: strPtr("new.example")})
	require.NoError(t, err)
	assert.Equal(t, "new.example", updated.PrimaryDomain.String)
	assert.Contains(t, hosts.Hosts(), "old.example")
	assert.Contains(t, hosts.Hosts(), "new.example")

	_, err = svc.UpdateTenant(ctx, tenant.ID, UpdateTenantInput{PrimaryDomain: strPtr("not a host")})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "primary_domain")
}

func TestDomainBindingLifecycle(t *testing.T) {
	svc, hosts, _ := newTestTenantService(t)
	ctx := context.Background()

	a, err := svc.CreateTenant(ctx, CreateTenantInput{Name: "Alpha"})
	require.NoError(t, err)
	b, err := svc.CreateTenant(ctx, CreateTenantInput{Name: "Beta"})
	require.NoError(t, err)

	binding, err := svc.AddDomain(ctx, a.ID, "Alpha.Example", false)
	require.NoError(t, err)
	assert.Equal(t, "alpha.example", binding.Hostname)
	assert.False(t, binding.VerifiedAt.Valid)

	_, err = svc.AddDomain(ctx, b.ID, "alpha.example", false)
	assert.ErrorIs(t, err, ErrConflict, "a hostname maps to at most one centre")

	_, err = svc.AddDomain(ctx, a.ID, "bad host", false)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = svc.AddDomain(ctx, "missing", "x.example", false)
	assert.ErrorIs(t, err, ErrNotFound)

	verified, err := svc.VerifyDomain(ctx, binding.ID)
	require.NoError(t, err)
	assert.True(t, verified.VerifiedAt.Valid)
	assert.Contains(t, hosts.Hosts(), "alpha.example")

	_, err = svc.VerifyDomain(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUploadLogo(t *testing.T) {
	svc, _, inv := newTestTenantService(t)
	ctx := context.Background()

	tenant, err := svc.CreateTenant(ctx, CreateTenantInput{Name: "Sunshine"})
	require.NoError(t, err)

	img := image.NewRGBA(image.Rect(0, 0, 1024, 256))
	for x := 0; x < 1024; x++ {
		img.Set(x, 10, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	updated, err := svc.UploadLogo(ctx, tenant.ID, &buf)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(updated.LogoUrl, "/uploads/logos/"+tenant.ID+"/logo-"))
	assert.Contains(t, inv.Tenants(), tenant.ID)

	_, err = svc.UploadLogo(ctx, tenant.ID, strings.NewReader("not an image"))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "logo")

	_, err = svc.UploadLogo(ctx, "missing", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNotFound)
}
