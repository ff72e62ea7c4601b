package auth

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

const SignInMethodPassword = "password"

// UserContext is the authenticated caller attached to a request.
type UserContext struct {
	UserID      string
	Email       string
	DisplayName string
	Role        string
	SessionID   string
}

func (u UserContext) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type User struct {
	ID           string     `json:"uid"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"displayName"`
	Role         string     `json:"role"`
	Status       string     `json:"-"`
	PasswordHash string     `json:"-"`
	MFAEnabled   bool       `json:"mfaEnabled"`
	MFASecretEnc []byte     `json:"-"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func (u User) Context(sessionID string) UserContext {
	return UserContext{
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		SessionID:   sessionID,
	}
}

// Session is what a successful sign-in or refresh hands back to the client.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type MFASetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}
