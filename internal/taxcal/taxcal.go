// Package taxcal holds a static calendar of recurring Colombian tax
// obligations and answers which ones fall due soon.
//
// Real due dates depend on the taxpayer's NIT; the calendar carries
// the first date of each obligation's filing window, which is enough
// for a heads-up reminder.
package taxcal

import (
	"fmt"
	"sort"
	"time"
)

// Obligation is one concrete due date of a recurring obligation.
type Obligation struct {
	ID        string
	Name      string
	Authority string
	Due       time.Time
}

// entry is a yearly recurring obligation keyed by month and day.
type entry struct {
	id        string
	name      string
	authority string
	month     time.Month
	day       int
}

var calendar = []entry{
	{"renta-pj", "Declaración de renta personas jurídicas (primer vencimiento)", "DIAN", time.April, 10},
	{"renta-pn", "Declaración de renta personas naturales (primer vencimiento)", "DIAN", time.August, 12},
	{"iva-bim1", "IVA bimestral enero-febrero", "DIAN", time.March, 10},
	{"iva-bim2", "IVA bimestral marzo-abril", "DIAN", time.May, 12},
	{"iva-bim3", "IVA bimestral mayo-junio", "DIAN", time.July, 10},
	{"iva-bim4", "IVA bimestral julio-agosto", "DIAN", time.September, 10},
	{"iva-bim5", "IVA bimestral septiembre-octubre", "DIAN", time.November, 12},
	{"iva-bim6", "IVA bimestral noviembre-diciembre", "DIAN", time.January, 13},
	{"retefuente", "Retención en la fuente (mensual, primer vencimiento)", "DIAN", time.February, 10},
	{"ica-bogota", "ICA bimestral Bogotá (primer vencimiento)", "Secretaría de Hacienda de Bogotá", time.March, 14},
	{"exogena", "Información exógena (grandes contribuyentes)", "DIAN", time.April, 25},
}

// Upcoming returns the obligations falling due within the window
// starting at now, ordered by due date. Recurrence is yearly, so an
// obligation near year end whose next occurrence is in January of the
// following year is still reported.
func Upcoming(now time.Time, window time.Duration) []Obligation {
	end := now.Add(window)

	var due []Obligation
	for _, e := range calendar {
		for _, year := range []int{now.Year(), now.Year() + 1} {
			d := time.Date(year, e.month, e.day, 0, 0, 0, 0, now.Location())
			if d.Before(now) || d.After(end) {
				continue
			}
			due = append(due, Obligation{
				ID:        e.id,
				Name:      e.name,
				Authority: e.authority,
				Due:       d,
			})
			break
		}
	}

	sort.Slice(due, func(i, j int) bool { return due[i].Due.Before(due[j].Due) })
	return due
}

// ReminderKey identifies one occurrence of an obligation, so a
// reminder is sent at most once per year per obligation.
func ReminderKey(ob Obligation) string {
	return fmt.Sprintf("reminder:%s:%d", ob.ID, ob.Due.Year())
}
