package dashboard

import (
	"sort"

	"ems/internal/domain/employee"
)

// RecentCount is how many newest employees the dashboard lists.
const RecentCount = 5

type Summary struct {
	Total       int                 `json:"total"`
	Active      int                 `json:"active"`
	Departments int                 `json:"departments"`
	Recent      []employee.Employee `json:"recent"`
}

// Summarize counts the list and picks the topN most recently created records.
// Ties on createdAt keep input order.
func Summarize(list []employee.Employee, topN int) Summary {
	out := Summary{Total: len(list), Recent: []employee.Employee{}}
	departments := map[string]struct{}{}
	for _, emp := range list {
		if emp.Status == employee.StatusActive {
			out.Active++
		}
		if emp.Department != "" {
			departments[emp.Department] = struct{}{}
		}
	}
	out.Departments = len(departments)

	if topN <= 0 {
		return out
	}
	sorted := append([]employee.Employee(nil), list...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > topN {
		sorted = sorted[:topN]
	}
	for i := range sorted {
		sorted[i].Salary = nil
	}
	out.Recent = append(out.Recent, sorted...)
	return out
}
