package session

import (
	"net/mail"
	"regexp"
	"strings"

	"smartplate/pkg/types"
)

// SignUpInput is decoded straight from the registration form.
type SignUpInput struct {
	Email           string     `form:"email"`
	Password        string     `form:"password"`
	ConfirmPassword string     `form:"confirm_password"`
	FullName        string     `form:"full_name"`
	Phone           string     `form:"phone"`
	Role            types.Role `form:"role"`
}

// SignUpRoles are the roles a user may pick for themselves.
var SignUpRoles = []types.Role{types.RoleNGO, types.RoleDonor, types.RoleVolunteer}

const minPasswordLength = 6

var emailLikeReg = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Normalize trims the free text fields in place.
func (in *SignUpInput) Normalize() {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Role = types.Role(strings.ToLower(strings.TrimSpace(string(in.Role))))
}

// Validate runs before any call to the identity provider.
func (in *SignUpInput) Validate() error {
	errs := map[string]string{}

	if in.FullName == "" {
		errs["full_name"] = "Full name is required."
	}

	if in.Email == "" {
		errs["email"] = "Email is required."
	} else if _, err := mail.ParseAddress(in.Email); err != nil || !emailLikeReg.MatchString(in.Email) {
		errs["email"] = "Enter a valid email address."
	}

	if len(in.Password) < minPasswordLength {
		errs["password"] = "Password must be at least 6 characters."
	}

	if in.Password != in.ConfirmPassword {
		errs["confirm_password"] = "Passwords do not match."
	}

	if !selectableRole(in.Role) {
		errs["role"] = "Choose NGO, donor or volunteer."
	}

	return types.NewValidationError(errs)
}

func selectableRole(role types.Role) bool {
	for _, r := range SignUpRoles {
		if r == role {
			return true
		}
	}
	return false
}
