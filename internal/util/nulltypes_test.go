// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"database/sql"
	"testing"
	"time"
)

func TestNullStringFromValue(t *testing.T) {
	if ns := NullStringFromValue(""); ns.Valid {
		t.Error("empty string should be invalid")
	}
	if ns := NullStringFromValue("desc"); !ns.Valid || ns.String != "desc" {
		t.Errorf("NullStringFromValue(desc) = %+v", ns)
	}
}

func TestNullStringFromPtr(t *testing.T) {
	if ns := NullStringFromPtr(nil); ns.Valid {
		t.Error("nil pointer should be invalid")
	}
	empty := ""
	if ns := NullStringFromPtr(&empty); !ns.Valid {
		t.Error("pointer to empty string should be valid")
	}
}

func TestPtrRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	if p := TimePtr(NullTimeFromValue(now)); p == nil || !p.Equal(now) {
		t.Errorf("TimePtr(NullTimeFromValue) = %v, want %v", p, now)
	}
	if p := TimePtr(sql.NullTime{}); p != nil {
		t.Errorf("TimePtr(invalid) = %v, want nil", p)
	}
	if p := StringPtr(sql.NullString{String: "x", Valid: true}); p == nil || *p != "x" {
		t.Errorf("StringPtr = %v", p)
	}
	if nt := NullTimeFromPtr(nil); nt.Valid {
		t.Error("NullTimeFromPtr(nil) should be invalid")
	}
}
