package model

// User is an account in the user store. Accounts are seeded at startup and
// never created or removed by the streaming path.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	Role         string `json:"role"`
}

// Identity is what a verified token proves about its bearer.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Identity drops the credential material.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username, Role: u.Role}
}

// Logger provides the minimal logging contract required by the auth domain.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}
