// Package seed fills a development database with demo accounts, verified
// NGO and volunteer details, and food requests in every status.
package seed

import (
	"context"
	"errors"
	"fmt"

	"smartplate/internal/store"
	"smartplate/internal/utils"
	"smartplate/pkg/types"
)

type demoUser struct {
	ID       string
	Email    string
	FullName string
	Phone    string
	Role     types.Role
}

// The ids stand in for identity provider subjects so local sign in can be
// faked against them.
var demoUsers = []demoUser{
	{ID: "11111111-1111-1111-1111-111111111111", Email: "admin+seed@smartplate.test", FullName: "Asha Admin", Role: types.RoleAdmin},
	{ID: "22222222-2222-2222-2222-222222222222", Email: "ngo+seed@smartplate.test", FullName: "Ravi Kumar", Phone: "+91 98450 00001", Role: types.RoleNGO},
	{ID: "33333333-3333-3333-3333-333333333333", Email: "donor+seed@smartplate.test", FullName: "Meera Iyer", Phone: "+91 98450 00002", Role: types.RoleDonor},
	{ID: "44444444-4444-4444-4444-444444444444", Email: "volunteer+seed@smartplate.test", FullName: "Karan Shah", Phone: "+91 98450 00003", Role: types.RoleVolunteer},
}

func demoUserByRole(role types.Role) demoUser {
	for _, user := range demoUsers {
		if user.Role == role {
			return user
		}
	}
	panic(fmt.Sprintf("no demo user with role %s", role))
}

// SeedUsers upserts the demo accounts. Existing roles are left alone.
func SeedUsers(ctx context.Context, userRepo *store.UserRepository) error {
	seeded := 0
	for _, user := range demoUsers {
		role, err := userRepo.RoleByUser(ctx, user.ID)
		if err != nil && !errors.Is(err, types.ErrRoleNotFound) {
			return fmt.Errorf("failed to fetch role for demo user %s: %w", user.ID, err)
		}
		if err == nil && role != user.Role {
			return fmt.Errorf("demo user %s already has role %s", user.ID, role)
		}

		err = userRepo.CreateAccount(ctx,
			&types.User{ID: user.ID, Email: utils.StringPtr(user.Email)},
			&types.Profile{FullName: utils.StringPtr(user.FullName), Phone: utils.TrimmedStringPtr(user.Phone)},
			user.Role,
		)
		if err != nil {
			return fmt.Errorf("failed to create demo user %s: %w", user.ID, err)
		}
		seeded++
	}

	fmt.Printf("Demo users seeded: %d upserted\n", seeded)
	return nil
}
