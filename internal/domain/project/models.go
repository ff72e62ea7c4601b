package project

import (
	"strings"
	"time"

	"ems/internal/domain/access"
)

const (
	StatusPlanning   = "Planning"
	StatusInProgress = "In Progress"
	StatusOnHold     = "On Hold"
	StatusCompleted  = "Completed"
)

type Project struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Status      string       `json:"status"`
	StartDate   string       `json:"startDate,omitempty"`
	EndDate     string       `json:"endDate,omitempty"`
	CreatedBy   access.Stamp `json:"createdBy"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type Input struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Status      string `json:"status" validate:"omitempty,oneof=Planning 'In Progress' 'On Hold' Completed"`
	StartDate   string `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate     string `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
}

func (in *Input) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Status = strings.TrimSpace(in.Status)
	in.StartDate = strings.TrimSpace(in.StartDate)
	in.EndDate = strings.TrimSpace(in.EndDate)
	if in.Status == "" {
		in.Status = StatusPlanning
	}
}
