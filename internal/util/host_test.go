// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import "testing"

func TestNormalizeHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme.Example.COM", "acme.example.com"},
		{"acme.example.com:8443", "acme.example.com"},
		{"acme.example.com.", "acme.example.com"},
		{"ACME.example.com.:80", "acme.example.com"},
		{"[::1]:8080", "::1"},
		{"[::1]", "::1"},
		{"  localhost ", "localhost"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeHost(tt.in); got != tt.want {
				t.Errorf("NormalizeHost(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestHostInList(t *testing.T) {
	hosts := []string{"ecdsites.com", "Admin.ECDSites.com"}

	if !HostInList("admin.ecdsites.com:443", hosts) {
		t.Error("admin.ecdsites.com should match")
	}
	if HostInList("acme.ecdsites.com", hosts) {
		t.Error("acme.ecdsites.com should not match")
	}
	if HostInList("", hosts) {
		t.Error("empty host should not match")
	}
}

func TestSubdomainLabel(t *testing.T) {
	tests := []struct {
		host   string
		suffix string
		want   string
		ok     bool
	}{
		{"acme.sites.example.com", "sites.example.com", "acme", true},
		{"ACME.sites.example.com:8080", "sites.example.com", "acme", true},
		{"a.b.sites.example.com", "sites.example.com", "", false},
		{"sites.example.com", "sites.example.com", "", false},
		{"acme.example.org", "sites.example.com", "", false},
		{"evilsites.example.com", "sites.example.com", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			got, ok := SubdomainLabel(tt.host, tt.suffix)
			if got != tt.want || ok != tt.ok {
				t.Errorf("SubdomainLabel(%q, %q) = (%q, %v), want (%q, %v)",
					tt.host, tt.suffix, got, ok, tt.want, tt.ok)
			}
		})
	}
}
