// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"net"
	"slices"
	"strings"
)

// NormalizeHost lowercases a Host header value and strips the port and any
// trailing dot. IPv6 literals keep their address without brackets.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}

	return strings.TrimSuffix(strings.ToLower(host), ".")
}

// HostInList reports whether the normalized host matches any entry of hosts.
// Entries are normalized before comparison.
func HostInList(host string, hosts []string) bool {
	host = NormalizeHost(host)
	if host == "" {
		return false
	}
	return slices.ContainsFunc(hosts, func(h string) bool {
		return NormalizeHost(h) == host
	})
}

// SubdomainLabel returns the single label in front of suffix, so
// "acme.sites.example.com" with suffix "sites.example.com" yields "acme".
// Multi-label prefixes and the bare suffix return false.
func SubdomainLabel(host, suffix string) (string, bool) {
	host = NormalizeHost(host)
	suffix = NormalizeHost(suffix)
	if host == "" || suffix == "" {
		return "", false
	}

	label, found := strings.CutSuffix(host, "."+suffix)
	if !found || label == "" || strings.Contains(label, ".") {
		return "", false
	}
	return label, true
}
