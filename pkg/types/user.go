package types

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleNGO       Role = "ngo"
	RoleDonor     Role = "donor"
	RoleVolunteer Role = "volunteer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleNGO, RoleDonor, RoleVolunteer:
		return true
	}
	return false
}

// Verified reports whether the role has to pass the verification gate
// before it can use its features.
func (r Role) Verified() bool {
	return r == RoleNGO || r == RoleVolunteer
}

func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return role, nil
}

type User struct {
	ID        string    `db:"id"`
	Email     *string   `db:"email"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type Profile struct {
	UserID    string    `db:"user_id" json:"userId"`
	FullName  *string   `db:"full_name" json:"fullName"`
	Phone     *string   `db:"phone" json:"phone"`
	AvatarURL *string   `db:"avatar_url" json:"avatarUrl"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type UserRole struct {
	UserID    string    `db:"user_id"`
	Role      Role      `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Role   Role
}

// Identity is what the identity provider knows about an access token.
type Identity struct {
	UserID   string
	Email    string
	FullName string
	Role     Role
}

type AuthTokens struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresIn    int
}
