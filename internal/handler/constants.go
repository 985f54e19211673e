// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler serves centre websites, public registrations, the admin
// login flow and health checks.
package handler

// Route paths.
const (
	RouteRoot     = "/"
	RouteSlug     = "/{slug}"
	RouteRegister = "/register"
	RouteLogin    = "/login"
	RouteLogout   = "/logout"
	RouteAdmin    = "/admin"
	RouteHealth   = "/health"
	RouteSitemap  = "/sitemap.xml"
	RouteRobots   = "/robots.txt"
)

// flashError styles a flash message as an error.
const flashError = "error"
