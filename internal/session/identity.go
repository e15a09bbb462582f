package session

import (
	"context"

	"smartplate/pkg/types"
)

// Identity is the external identity provider.
type Identity interface {
	SignUp(ctx context.Context, input SignUpInput) (userID string, err error)
	ConfirmSignUp(ctx context.Context, email, code string) error
	SignIn(ctx context.Context, email, password string) (*types.AuthTokens, error)
	// Identify resolves an access token to the user it was issued to.
	Identify(ctx context.Context, accessToken string) (*types.Identity, error)
	// Lookup finds a user by id without a token. Used to reconcile accounts
	// whose role row was never written.
	Lookup(ctx context.Context, userID string) (*types.Identity, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Accounts is the local user, profile and role storage.
type Accounts interface {
	CreateAccount(ctx context.Context, user *types.User, profile *types.Profile, role types.Role) error
	RoleByUser(ctx context.Context, userID string) (types.Role, error)
	Profile(ctx context.Context, userID string) (*types.Profile, error)
	UpdateProfile(ctx context.Context, profile *types.Profile) error
}
