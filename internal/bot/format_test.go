package bot

import (
	"strings"
	"testing"
	"time"

	"secop_bot/internal/model"
	"secop_bot/internal/taxcal"
)

func TestShortID(t *testing.T) {
	if got := shortID("1f0a9c2e-77aa-4a43-9c3e-000000000000"); got != "1f0a9c2e" {
		t.Errorf("shortID = %q, want %q", got, "1f0a9c2e")
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID of a short string = %q, want it unchanged", got)
	}
}

func TestHasShortID(t *testing.T) {
	full := "1f0a9c2e-77aa-4a43-9c3e-000000000000"
	tests := []struct {
		prefix string
		want   bool
	}{
		{"1f0a9c2e", true},
		{"1f0a", true},
		{"1f0", false},
		{"9c2e", false},
		{full, true},
	}
	for _, tc := range tests {
		if got := hasShortID(full, tc.prefix); got != tc.want {
			t.Errorf("hasShortID(%q) = %v, want %v", tc.prefix, got, tc.want)
		}
	}
}

func TestFormatFilters(t *testing.T) {
	got := FormatFilters(model.SearchFilters{Keyword: "vías", Department: "Cauca"})
	if got != "keyword: vías, department: Cauca" {
		t.Errorf("FormatFilters = %q", got)
	}
	if got := FormatFilters(model.SearchFilters{}); got != "no filters" {
		t.Errorf("empty filters = %q, want %q", got, "no filters")
	}
}

func TestFormatAlertList(t *testing.T) {
	if got := FormatAlertList(nil); !strings.Contains(got, "no alerts yet") {
		t.Errorf("empty list = %q", got)
	}

	checked := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)
	alerts := []model.Alert{
		{
			ID:               "1f0a9c2e-77aa-4a43-9c3e-000000000000",
			Name:             "Vías Cauca",
			Filters:          model.SearchFilters{Keyword: "carreteras"},
			FrequencyHours:   6,
			IsActive:         true,
			LastCheckAt:      &checked,
			LastResultsCount: 12,
		},
		{
			ID:             "2b1c8d3f-0000-0000-0000-000000000000",
			Name:           "Salud Bogotá",
			Filters:        model.SearchFilters{Keyword: "salud", Municipality: "Bogotá"},
			FrequencyHours: 24,
			IsActive:       false,
		},
	}
	got := FormatAlertList(alerts)
	for _, want := range []string{
		"1f0a9c2e Vías Cauca",
		"[active]",
		"2026-08-20 09:30 UTC, 12 result(s)",
		"2b1c8d3f Salud Bogotá",
		"[paused]",
		"never checked",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("list missing %q:\n%s", want, got)
		}
	}
}

func TestFormatAlertInfo(t *testing.T) {
	a := &model.Alert{
		ID:             "1f0a9c2e-77aa-4a43-9c3e-000000000000",
		Name:           "Vías Cauca",
		Filters:        model.SearchFilters{Keyword: "carreteras"},
		FrequencyHours: 12,
		IsActive:       true,
	}
	got := FormatAlertInfo(a)
	for _, want := range []string{
		"Never checked",
		"/check 1f0a9c2e",
		"Full id: " + a.ID,
		"every 12 h",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("info missing %q:\n%s", want, got)
		}
	}
}

func TestFormatSearchResults(t *testing.T) {
	if got := FormatSearchResults(nil); !strings.Contains(got, "No processes match") {
		t.Errorf("empty results = %q", got)
	}

	items := []model.ProcurementItem{
		{
			ID:           "CO1.REQ.100",
			Name:         "Mantenimiento vial",
			Entity:       "INVIAS",
			Municipality: "Popayán",
			URL:          "https://community.secop.gov.co/x",
		},
	}
	got := FormatSearchResults(items)
	for _, want := range []string{
		"Top 1 result(s)",
		"Mantenimiento vial",
		"INVIAS (Popayán)",
		"id: CO1.REQ.100",
		"https://community.secop.gov.co/x",
		"/fav <id>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("results missing %q:\n%s", want, got)
		}
	}
}

func TestFormatFavorites(t *testing.T) {
	if got := FormatFavorites(nil); !strings.Contains(got, "no saved processes") {
		t.Errorf("empty favorites = %q", got)
	}

	got := FormatFavorites([]model.Favorite{{ProcessID: "CO1.REQ.100", Name: "Mantenimiento vial"}})
	if !strings.Contains(got, "Mantenimiento vial") || !strings.Contains(got, "id: CO1.REQ.100") {
		t.Errorf("favorites = %q", got)
	}
}

func TestFormatTaxList(t *testing.T) {
	if got := FormatTaxList(nil); !strings.Contains(got, "No tax obligations") {
		t.Errorf("empty calendar = %q", got)
	}

	obligations := []taxcal.Obligation{
		{
			Name:      "IVA bimestral (1er bimestre)",
			Authority: "DIAN",
			Due:       time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		},
	}
	got := FormatTaxList(obligations)
	if !strings.Contains(got, "2026-03-10") || !strings.Contains(got, "DIAN") {
		t.Errorf("calendar = %q", got)
	}
}
