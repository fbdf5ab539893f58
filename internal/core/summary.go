package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// FilterByPeriod returns expenses matching the given year and month.
// Zero means no filter on that component. Expenses without a parseable
// date are skipped whenever a filter is active.
func FilterByPeriod(expenses []Expense, year, month int) []Expense {
	if year == 0 && month == 0 {
		return expenses
	}
	var out []Expense
	for _, e := range expenses {
		if e.Date.IsZero() {
			continue
		}
		if year != 0 && e.Date.Year() != year {
			continue
		}
		if month != 0 && e.Date.Month() != month {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Periods reports which years have expenses and which months each year
// covers. Used to populate period filters.
func Periods(expenses []Expense) ([]int, map[int][]int) {
	monthSets := map[int]map[int]struct{}{}
	for _, e := range expenses {
		if e.Date.IsZero() {
			continue
		}
		y, m := e.Date.Year(), e.Date.Month()
		if monthSets[y] == nil {
			monthSets[y] = map[int]struct{}{}
		}
		monthSets[y][m] = struct{}{}
	}
	years := make([]int, 0, len(monthSets))
	for y := range monthSets {
		years = append(years, y)
	}
	sort.Ints(years)
	months := make(map[int][]int, len(years))
	for _, y := range years {
		for m := range monthSets[y] {
			months[y] = append(months[y], m)
		}
		sort.Ints(months[y])
	}
	return years, months
}

// TotalsByCategory aggregates expense amounts per category.
func TotalsByCategory(expenses []Expense) map[string]decimal.Decimal {
	totals := map[string]decimal.Decimal{}
	for _, e := range expenses {
		totals[e.Category] = totals[e.Category].Add(e.Amount)
	}
	return totals
}
