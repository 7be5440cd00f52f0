package core

import "time"

// MonthlyStat is one bucket of the per-customer monthly aggregation:
// the first day of the month, the number of repairs and their total.
type MonthlyStat struct {
	Month Date
	Count int
	Total Money
}

// CustomerRecency pairs a customer with the derived visit fields used
// by the dashboard boards. LastVisit is nil for a customer with no
// repairs; such customers only ever appear on the overdue board.
type CustomerRecency struct {
	Customer  Customer
	LastVisit *Date
	DaysSince int // undefined when LastVisit is nil
}

// NeverVisited reports whether the customer has no repair history.
func (r CustomerRecency) NeverVisited() bool {
	return r.LastVisit == nil
}

// FillYear left-joins a sparse monthly series against the twelve
// months of year. Missing months become zero buckets, so chart
// consumers never re-query to gap-fill.
func FillYear(stats []MonthlyStat, year int) [12]MonthlyStat {
	var out [12]MonthlyStat
	for i := range out {
		out[i] = MonthlyStat{Month: NewDate(year, i+1, 1)}
	}
	for _, s := range stats {
		if s.Month.Year() == year {
			out[s.Month.Month()-1] = s
		}
	}
	return out
}

// YearsCovered returns the distinct years present in the series,
// ascending. Used to populate a year picker.
func YearsCovered(stats []MonthlyStat) []int {
	var years []int
	for _, s := range stats {
		y := s.Month.Year()
		if len(years) == 0 || years[len(years)-1] != y {
			years = append(years, y)
		}
	}
	return years
}

// DaysSince measures whole days between a visit date and now, both
// truncated to calendar days in UTC.
func DaysSince(visit Date, now time.Time) int {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(day.Sub(visit.Time) / (24 * time.Hour))
}
