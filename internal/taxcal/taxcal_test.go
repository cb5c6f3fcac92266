package taxcal

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestUpcoming(t *testing.T) {
	// 2026-03-05: IVA bim 1 (Mar 10) and ICA Bogotá (Mar 14) fall in
	// a two-week window.
	now := time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)

	got := Upcoming(now, 14*24*time.Hour)

	var gotIDs []string
	for _, ob := range got {
		gotIDs = append(gotIDs, ob.ID)
	}
	want := []string{"iva-bim1", "ica-bogota"}
	if diff := cmp.Diff(want, gotIDs); diff != "" {
		t.Errorf("upcoming obligations mismatch (-want +got):\n%s", diff)
	}
}

func TestUpcomingOrderedByDueDate(t *testing.T) {
	now := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	got := Upcoming(now, 60*24*time.Hour)
	for i := 1; i < len(got); i++ {
		if got[i].Due.Before(got[i-1].Due) {
			t.Errorf("obligations out of order: %s (%s) before %s (%s)",
				got[i].ID, got[i].Due, got[i-1].ID, got[i-1].Due)
		}
	}
}

func TestUpcomingCrossesYearEnd(t *testing.T) {
	// Late December: the January obligations of the next year are due.
	now := time.Date(2026, time.December, 30, 0, 0, 0, 0, time.UTC)

	got := Upcoming(now, 21*24*time.Hour)

	found := false
	for _, ob := range got {
		if ob.ID == "iva-bim6" {
			found = true
			if ob.Due.Year() != 2027 {
				t.Errorf("expected 2027 occurrence, got %s", ob.Due)
			}
		}
	}
	if !found {
		t.Error("expected iva-bim6 (January 13) in the window crossing year end")
	}
}

func TestUpcomingEmptyWindow(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	if got := Upcoming(now, 24*time.Hour); len(got) != 0 {
		t.Errorf("expected no obligations on June 1 + 1 day, got %v", got)
	}
}

func TestReminderKey(t *testing.T) {
	ob := Obligation{ID: "iva-bim1", Due: time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)}
	if diff := cmp.Diff("reminder:iva-bim1:2026", ReminderKey(ob)); diff != "" {
		t.Errorf("key mismatch (-want +got):\n%s", diff)
	}
}
