package employee

import (
	"strings"
	"time"

	"ems/internal/domain/access"
)

const (
	StatusActive     = "Active"
	StatusOnLeave    = "On Leave"
	StatusTerminated = "Terminated"
)

type Employee struct {
	ID           string       `json:"id"`
	FirstName    string       `json:"firstName"`
	LastName     string       `json:"lastName"`
	FullName     string       `json:"fullName"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	Role         string       `json:"role"`
	Department   string       `json:"department"`
	Status       string       `json:"status"`
	Salary       *float64     `json:"salary,omitempty"`
	HireDate     string       `json:"hireDate,omitempty"`
	ProfileImage string       `json:"profileImage,omitempty"`
	CreatedBy    access.Stamp `json:"createdBy"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Input is the create/update payload. CreatedBy and timestamps are never
// taken from the client.
type Input struct {
	FirstName    string   `json:"firstName" validate:"required,max=100"`
	LastName     string   `json:"lastName" validate:"required,max=100"`
	Email        string   `json:"email" validate:"required,email"`
	Phone        string   `json:"phone" validate:"omitempty,max=40"`
	Role         string   `json:"role" validate:"required,max=100"`
	Department   string   `json:"department" validate:"required,max=100"`
	Status       string   `json:"status" validate:"omitempty,oneof=Active 'On Leave' Terminated"`
	Salary       *float64 `json:"salary" validate:"omitempty,gte=0"`
	HireDate     string   `json:"hireDate" validate:"omitempty,datetime=2006-01-02"`
	ProfileImage string   `json:"profileImage" validate:"omitempty,url"`
}

func (in *Input) Normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Role = strings.TrimSpace(in.Role)
	in.Department = strings.TrimSpace(in.Department)
	in.Status = strings.TrimSpace(in.Status)
	in.HireDate = strings.TrimSpace(in.HireDate)
	in.ProfileImage = strings.TrimSpace(in.ProfileImage)
	if in.Status == "" {
		in.Status = StatusActive
	}
}

// FullName joins the name parts the same way on every write.
func FullName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

func (in Input) apply(emp Employee) Employee {
	emp.FirstName = in.FirstName
	emp.LastName = in.LastName
	emp.FullName = FullName(in.FirstName, in.LastName)
	emp.Email = in.Email
	emp.Phone = in.Phone
	emp.Role = in.Role
	emp.Department = in.Department
	emp.Status = in.Status
	emp.Salary = in.Salary
	emp.HireDate = in.HireDate
	emp.ProfileImage = in.ProfileImage
	return emp
}

type ListResult struct {
	Items         []Employee `json:"items"`
	Page          int        `json:"page"`
	PageSize      int        `json:"pageSize"`
	TotalPages    int        `json:"totalPages"`
	TotalMatching int        `json:"totalMatching"`
	Total         int        `json:"total"`
}
