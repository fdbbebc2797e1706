package domain

import "slices"

// Role is the coarse role of a user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
	RoleGuest   Role = "guest"
)

// Capabilities checked by the engine.
const (
	PermissionApprove         = "approve"
	PermissionManageInventory = "manage_inventory"
)

// UserStatus tracks whether an account may act.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User represents a person who can borrow or approve items.
type User struct {
	Document    `bson:",inline"`
	Name        string     `json:"name" bson:"name"`
	Email       string     `json:"email,omitempty" bson:"email,omitempty"`
	Role        Role       `json:"role" bson:"role"`
	Permissions []string   `json:"permissions,omitempty" bson:"permissions,omitempty"`
	Team        string     `json:"team,omitempty" bson:"team,omitempty"`
	Status      UserStatus `json:"status" bson:"status"`
}

// HasPermission reports whether the user holds the capability. Admins hold every capability.
func (u *User) HasPermission(permission string) bool {
	if u == nil {
		return false
	}
	return u.Role == RoleAdmin || slices.Contains(u.Permissions, permission)
}

// Actor is the pre-authenticated caller of an engine operation.
type Actor struct {
	UserID      string
	Role        Role
	Permissions []string
}

// Can reports whether the actor holds the capability.
func (a Actor) Can(permission string) bool {
	return a.Role == RoleAdmin || slices.Contains(a.Permissions, permission)
}
