// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package geoip

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDisabledLookup(t *testing.T) {
	l, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = l.Close() }()

	if l.Enabled() {
		t.Error("Enabled = true, want false without a database")
	}

	tests := []struct {
		ip   string
		want string
	}{
		{"127.0.0.1", CountryLocal},
		{"10.1.2.3", CountryLocal},
		{"192.168.0.10", CountryLocal},
		{"::1", CountryLocal},
		{"8.8.8.8", ""},
		{"not-an-ip", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := l.Country(tt.ip); got != tt.want {
			t.Errorf("Country(%q) = %q, want %q", tt.ip, got, tt.want)
		}
	}

	changed, err := l.Reload()
	if err != nil || changed {
		t.Errorf("Reload() = (%v, %v), want (false, nil)", changed, err)
	}
}

func TestOpenMissingDatabase(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "missing.mmdb"))
	if err == nil {
		t.Fatal("Open should fail for a missing file")
	}
	if l == nil || l.Enabled() {
		t.Error("a failed Open should still return a disabled Lookup")
	}
}

func TestOpenCorruptDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.mmdb")
	if err := os.WriteFile(path, []byte("definitely not maxmind"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("Open should fail for a corrupt database")
	}
}
