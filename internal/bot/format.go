package bot

import (
	"fmt"
	"strings"

	"secop_bot/internal/model"
	"secop_bot/internal/taxcal"
)

const (
	statusActive = "active"
	statusPaused = "paused"
)

// shortID returns the display prefix of an alert id.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// hasShortID reports whether prefix unambiguously refers to full. At
// least four characters are required so a stray word does not match.
func hasShortID(full, prefix string) bool {
	return len(prefix) >= 4 && strings.HasPrefix(full, prefix)
}

// FormatFilters summarizes a filter set on a single line.
func FormatFilters(f model.SearchFilters) string {
	var parts []string
	add := func(label, v string) {
		if v != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", label, v))
		}
	}
	add("keyword", f.Keyword)
	add("department", f.Department)
	add("municipality", f.Municipality)
	add("modality", f.Modality)
	add("type", f.ContractType)
	add("phase", f.Phase)
	if len(parts) == 0 {
		return "no filters"
	}
	return strings.Join(parts, ", ")
}

// FormatAlertList formats a user's alerts for display.
func FormatAlertList(alerts []model.Alert) string {
	if len(alerts) == 0 {
		return "You have no alerts yet. Use /newalert <name> -k <keyword> to create one."
	}
	var b strings.Builder
	b.WriteString("Your alerts:\n")
	for _, a := range alerts {
		status := statusActive
		if !a.IsActive {
			status = statusPaused
		}
		fmt.Fprintf(&b, "\n%s %s  (every %d h) [%s]\n", shortID(a.ID), a.Name, a.FrequencyHours, status)
		fmt.Fprintf(&b, "   %s\n", FormatFilters(a.Filters))
		if a.LastCheckAt != nil {
			fmt.Fprintf(&b, "   last check: %s, %d result(s)\n",
				a.LastCheckAt.Format("2006-01-02 15:04 UTC"), a.LastResultsCount)
		} else {
			b.WriteString("   never checked\n")
		}
	}
	return b.String()
}

// FormatAlertInfo formats detailed information about a single alert.
func FormatAlertInfo(a *model.Alert) string {
	var b strings.Builder
	status := statusActive
	if !a.IsActive {
		status = statusPaused
	}
	fmt.Fprintf(&b, "%s %s [%s]\n", shortID(a.ID), a.Name, status)
	fmt.Fprintf(&b, "Filters: %s\n", FormatFilters(a.Filters))
	fmt.Fprintf(&b, "Interval: every %d h\n", a.FrequencyHours)
	if a.LastCheckAt != nil {
		fmt.Fprintf(&b, "Last check: %s\n", a.LastCheckAt.Format("2006-01-02 15:04 UTC"))
		fmt.Fprintf(&b, "Results at last check: %d (%d tracked id(s))\n",
			a.LastResultsCount, len(a.LastResultsIDs))
	} else {
		b.WriteString("Never checked. Use /check " + shortID(a.ID) + " to take the first snapshot.\n")
	}
	fmt.Fprintf(&b, "Full id: %s", a.ID)
	return b.String()
}

// FormatSearchResults formats a one-off query's result list.
func FormatSearchResults(items []model.ProcurementItem) string {
	if len(items) == 0 {
		return "No processes match that search."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Top %d result(s):\n", len(items))
	for _, item := range items {
		fmt.Fprintf(&b, "\n• %s\n", item.Name)
		if item.Entity != "" {
			fmt.Fprintf(&b, "  %s", item.Entity)
			if item.Municipality != "" {
				fmt.Fprintf(&b, " (%s)", item.Municipality)
			}
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "  id: %s\n", item.ID)
		if item.URL != "" {
			fmt.Fprintf(&b, "  %s\n", item.URL)
		}
	}
	b.WriteString("\nUse /fav <id> to save a process.")
	return b.String()
}

// FormatFavorites formats a user's saved processes.
func FormatFavorites(favs []model.Favorite) string {
	if len(favs) == 0 {
		return "You have no saved processes. Use /fav <process_id> after a /search."
	}
	var b strings.Builder
	b.WriteString("Saved processes:\n")
	for _, f := range favs {
		fmt.Fprintf(&b, "\n• %s\n  id: %s\n", f.Name, f.ProcessID)
		if f.URL != "" {
			fmt.Fprintf(&b, "  %s\n", f.URL)
		}
	}
	return b.String()
}

// FormatTaxList formats upcoming tax obligations.
func FormatTaxList(obligations []taxcal.Obligation) string {
	if len(obligations) == 0 {
		return "No tax obligations due in the next two months."
	}
	var b strings.Builder
	b.WriteString("Upcoming tax obligations:\n")
	for _, ob := range obligations {
		fmt.Fprintf(&b, "\n%s — %s (%s)\n", ob.Due.Format("2006-01-02"), ob.Name, ob.Authority)
	}
	return b.String()
}
