package employee

import "strings"

// PageSize is the number of cards shown per directory page.
const PageSize = 12

// Criteria narrows the directory. Empty fields match everything.
type Criteria struct {
	Search     string
	Department string
	Role       string
	Status     string
}

func (c Criteria) matches(emp Employee) bool {
	if search := strings.ToLower(strings.TrimSpace(c.Search)); search != "" {
		name := strings.ToLower(emp.FirstName + " " + emp.LastName)
		if !strings.Contains(name, search) {
			return false
		}
	}
	if c.Department != "" && emp.Department != c.Department {
		return false
	}
	if c.Role != "" && emp.Role != c.Role {
		return false
	}
	if c.Status != "" && emp.Status != c.Status {
		return false
	}
	return true
}

// Filter keeps the employees matching every non-empty criterion, in input order.
func Filter(list []Employee, c Criteria) []Employee {
	out := make([]Employee, 0, len(list))
	for _, emp := range list {
		if c.matches(emp) {
			out = append(out, emp)
		}
	}
	return out
}

type Page struct {
	Items      []Employee
	Number     int
	TotalPages int
}

// Paginate slices list into 1-based pages of size. Pages below 1 are read as
// page 1; a page past the end is empty rather than an error.
func Paginate(list []Employee, page, size int) Page {
	if size <= 0 {
		size = PageSize
	}
	if page < 1 {
		page = 1
	}
	totalPages := (len(list) + size - 1) / size
	if page > totalPages {
		return Page{Items: []Employee{}, Number: page, TotalPages: totalPages}
	}
	start := (page - 1) * size
	end := start + size
	if end > len(list) {
		end = len(list)
	}
	return Page{Items: list[start:end], Number: page, TotalPages: totalPages}
}
