package announcement

import (
	"strings"
	"time"

	"ems/internal/domain/access"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Announcement struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	Priority  string       `json:"priority"`
	Author    access.Stamp `json:"author"`
	ReadBy    []string     `json:"readBy"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// ReadByUser reports whether uid is in ReadBy.
func (a Announcement) ReadByUser(uid string) bool {
	for _, id := range a.ReadBy {
		if id == uid {
			return true
		}
	}
	return false
}

type Input struct {
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"required,max=10000"`
	Priority string `json:"priority" validate:"omitempty,oneof=low medium high"`
}

func (in *Input) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Priority = strings.ToLower(strings.TrimSpace(in.Priority))
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
}
