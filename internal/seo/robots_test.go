// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seo

import (
	"strings"
	"testing"
)

func TestBuildRobots(t *testing.T) {
	tests := []struct {
		name       string
		cfg        RobotsConfig
		contains   []string
		notContain []string
	}{
		{
			name: "centre site",
			cfg:  RobotsConfig{SiteURL: "https://sunshine.sites.example.com/"},
			contains: []string{
				"User-agent: *",
				"Disallow: /admin\n",
				"Disallow: /register\n",
				"Allow: /\n",
				"Sitemap: https://sunshine.sites.example.com/sitemap.xml",
			},
			notContain: []string{"Disallow: /\n"},
		},
		{
			name:       "disallow all",
			cfg:        RobotsConfig{SiteURL: "https://admin.example.com", DisallowAll: true},
			contains:   []string{"User-agent: *", "Disallow: /\n"},
			notContain: []string{"Allow: /", "Sitemap:"},
		},
		{
			name:       "extra paths without site url",
			cfg:        RobotsConfig{DisallowPaths: []string{"/uploads"}},
			contains:   []string{"Disallow: /uploads\n", "Disallow: /login\n"},
			notContain: []string{"Sitemap:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildRobots(tt.cfg)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("BuildRobots() missing %q in:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.notContain {
				if strings.Contains(got, unwanted) {
					t.Errorf("BuildRobots() should not contain %q in:\n%s", unwanted, got)
				}
			}
		})
	}
}

func TestBuildRobotsDoesNotMutateDefaults(t *testing.T) {
	_ = BuildRobots(RobotsConfig{DisallowPaths: []string{"/private"}})
	for _, p := range defaultDisallow {
		if p == "/private" {
			t.Fatal("defaultDisallow was modified")
		}
	}
}
