package session

import (
	"context"
	"errors"
	"fmt"

	"smartplate/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

const roleAttribute = "custom:role"

// CognitoAPI is the part of the Cognito client the app calls.
type CognitoAPI interface {
	SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cognitoidentityprovider.ConfirmSignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
	GetUser(ctx context.Context, params *cognitoidentityprovider.GetUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GetUserOutput, error)
	ListUsers(ctx context.Context, params *cognitoidentityprovider.ListUsersInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ListUsersOutput, error)
	GlobalSignOut(ctx context.Context, params *cognitoidentityprovider.GlobalSignOutInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GlobalSignOutOutput, error)
}

type CognitoIdentity struct {
	client     CognitoAPI
	clientID   string
	userPoolID string
}

func NewCognitoIdentity(client CognitoAPI, clientID, userPoolID string) *CognitoIdentity {
	return &CognitoIdentity{
		client:     client,
		clientID:   clientID,
		userPoolID: userPoolID,
	}
}

func (c *CognitoIdentity) SignUp(ctx context.Context, input SignUpInput) (string, error) {
	attributes := []ctypes.AttributeType{
		{Name: aws.String("email"), Value: aws.String(input.Email)},
		{Name: aws.String("name"), Value: aws.String(input.FullName)},
		{Name: aws.String(roleAttribute), Value: aws.String(string(input.Role))},
	}

	out, err := c.client.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId:       aws.String(c.clientID),
		Username:       aws.String(input.Email),
		Password:       aws.String(input.Password),
		UserAttributes: attributes,
	})
	if err != nil {
		return "", mapSignUpError(err)
	}

	userID := aws.ToString(out.UserSub)
	if userID == "" {
		return "", fmt.Errorf("sign up returned no user id")
	}

	return userID, nil
}

func (c *CognitoIdentity) ConfirmSignUp(ctx context.Context, email, code string) error {
	_, err := c.client.ConfirmSignUp(ctx, &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
	})
	if err != nil {
		var codeMismatch *ctypes.CodeMismatchException
		if errors.As(err, &codeMismatch) {
			return types.NewValidationError(map[string]string{
				"code": "Invalid confirmation code. Please check the code and try again.",
			})
		}
		var expired *ctypes.ExpiredCodeException
		if errors.As(err, &expired) {
			return types.NewValidationError(map[string]string{
				"code": "This confirmation code has expired. Request a new one.",
			})
		}
		return fmt.Errorf("failed to confirm sign up: %w", err)
	}
	return nil
}

func (c *CognitoIdentity) SignIn(ctx context.Context, email, password string) (*types.AuthTokens, error) {
	resp, err := c.client.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: ctypes.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		var notConfirmed *ctypes.UserNotConfirmedException
		if errors.As(err, &notConfirmed) {
			return nil, types.ErrAccountNotConfirmed
		}
		var notAuthorized *ctypes.NotAuthorizedException
		var notFound *ctypes.UserNotFoundException
		if errors.As(err, &notAuthorized) || errors.As(err, &notFound) {
			return nil, types.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}

	if resp.AuthenticationResult == nil || resp.AuthenticationResult.AccessToken == nil {
		return nil, types.ErrInvalidCredentials
	}

	result := resp.AuthenticationResult
	return &types.AuthTokens{
		AccessToken:  aws.ToString(result.AccessToken),
		IDToken:      aws.ToString(result.IdToken),
		RefreshToken: aws.ToString(result.RefreshToken),
		ExpiresIn:    int(result.ExpiresIn),
	}, nil
}

func (c *CognitoIdentity) Identify(ctx context.Context, accessToken string) (*types.Identity, error) {
	out, err := c.client.GetUser(ctx, &cognitoidentityprovider.GetUserInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		var notAuthorized *ctypes.NotAuthorizedException
		if errors.As(err, &notAuthorized) {
			return nil, types.ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to fetch identity: %w", err)
	}

	return identityFromAttributes(out.UserAttributes), nil
}

func (c *CognitoIdentity) Lookup(ctx context.Context, userID string) (*types.Identity, error) {
	out, err := c.client.ListUsers(ctx, &cognitoidentityprovider.ListUsersInput{
		UserPoolId: aws.String(c.userPoolID),
		Filter:     aws.String(fmt.Sprintf("sub = %q", userID)),
		Limit:      aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}

	if len(out.Users) == 0 {
		return nil, types.ErrUserNotFound
	}

	return identityFromAttributes(out.Users[0].Attributes), nil
}

func (c *CognitoIdentity) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.client.GlobalSignOut(ctx, &cognitoidentityprovider.GlobalSignOutInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		var notAuthorized *ctypes.NotAuthorizedException
		if errors.As(err, &notAuthorized) {
			// token already revoked or expired
			return nil
		}
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

func identityFromAttributes(attributes []ctypes.AttributeType) *types.Identity {
	ident := new(types.Identity)
	for _, attr := range attributes {
		value := aws.ToString(attr.Value)
		switch aws.ToString(attr.Name) {
		case "sub":
			ident.UserID = value
		case "email":
			ident.Email = value
		case "name":
			ident.FullName = value
		case roleAttribute:
			if role, err := types.ParseRole(value); err == nil {
				ident.Role = role
			}
		}
	}
	return ident
}

func mapSignUpError(err error) error {
	var invalidPw *ctypes.InvalidPasswordException
	if errors.As(err, &invalidPw) {
		return types.NewValidationError(map[string]string{
			"password": "Password does not meet the account password policy.",
		})
	}

	var userExists *ctypes.UsernameExistsException
	if errors.As(err, &userExists) {
		return types.NewValidationError(map[string]string{
			"email": "An account with this email already exists.",
		})
	}

	var invalidParam *ctypes.InvalidParameterException
	if errors.As(err, &invalidParam) {
		return types.NewValidationError(map[string]string{
			"form": "Some details are invalid. Please review and try again.",
		})
	}

	return fmt.Errorf("failed to sign up: %w", err)
}
