package entities

import "time"

// Role identifies what a user is allowed to do. Authorization rules key off
// these values; they are stored as plain strings.
type Role string

const (
	RoleTeacher   Role = "teacher"
	RoleClinician Role = "clinician"
	RoleSysadmin  Role = "sysadmin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleTeacher, RoleClinician, RoleSysadmin:
		return true
	}
	return false
}

// CanManageForms reports whether the role may create, update or delete forms
// and their fields.
func (r Role) CanManageForms() bool {
	return r == RoleClinician || r == RoleSysadmin
}

// CanManageUsers reports whether the role may administer user accounts.
func (r Role) CanManageUsers() bool {
	return r == RoleSysadmin
}

// SeesAllEpisodes reports whether the role may list episodes submitted by
// other users. Teachers only see their own.
func (r Role) SeesAllEpisodes() bool {
	return r == RoleClinician || r == RoleSysadmin
}

// User is a login-capable account. One profile item per user is stored.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	FirstName    string    `json:"firstName,omitempty"`
	LastName     string    `json:"lastName,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Locale       string    `json:"locale,omitempty"`
	Timezone     string    `json:"timezone,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewUser carries the attributes accepted when creating a user. ID is
// optional; repositories assign a fresh UUID when it is empty. Accounts are
// always created active; deactivation is a patch.
type NewUser struct {
	ID           string
	Email        string
	Role         Role
	FirstName    string
	LastName     string
	Phone        string
	Locale       string
	Timezone     string
	PasswordHash string
}

// UserPatch is a partial update. Nil fields are left untouched.
type UserPatch struct {
	Email        *string
	Role         *Role
	Active       *bool
	FirstName    *string
	LastName     *string
	Phone        *string
	Locale       *string
	Timezone     *string
	PasswordHash *string
}
