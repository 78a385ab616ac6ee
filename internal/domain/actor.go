package domain

// Role of an authenticated actor.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleEmployee || r == RoleAdmin
}

// Actor is the identity the authenticator resolves a credential to.
type Actor struct {
	ID   int64 `json:"actor_id"`
	Role Role  `json:"role"`
}

// IsReviewer reports whether the actor may perform administrative actions.
func (a Actor) IsReviewer() bool {
	return a.Role == RoleAdmin
}

// User is an account row (users table). Used for notification recipients
// and display names.
type User struct {
	UserID   int64  `db:"user_id"`
	FullName string `db:"full_name"`
	Email    string `db:"email"`
	Role     Role   `db:"role"`
	Active   bool   `db:"active"`
}
