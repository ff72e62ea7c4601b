// Package access holds the creator stamp and the ownership rule shared by the
// employee directory, announcements and projects.
package access

import (
	"errors"

	"ems/internal/domain/auth"
)

// ErrPermissionDenied is returned when a caller modifies a record they neither
// created nor administer.
var ErrPermissionDenied = errors.New("permission-denied")

// Stamp identifies who created a record. It is written once and never updated.
type Stamp struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func StampFor(user auth.UserContext) Stamp {
	return Stamp{UID: user.UserID, Name: user.DisplayName, Email: user.Email}
}

// CanModify reports whether user may update or delete a record stamped with createdBy.
func CanModify(user auth.UserContext, createdBy Stamp) bool {
	if user.UserID == "" {
		return false
	}
	return user.IsAdmin() || createdBy.UID == user.UserID
}

func Check(user auth.UserContext, createdBy Stamp) error {
	if !CanModify(user, createdBy) {
		return ErrPermissionDenied
	}
	return nil
}
