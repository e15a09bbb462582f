package session

import (
	"context"
	"net/url"
	"strings"

	"smartplate/internal/utils"
	"smartplate/pkg/types"
)

// ProfileInput is the editable part of a user's profile.
type ProfileInput struct {
	FullName  string `form:"full_name"`
	Phone     string `form:"phone"`
	AvatarURL string `form:"avatar_url"`
}

func (in *ProfileInput) Validate() error {
	errs := map[string]string{}

	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.AvatarURL = strings.TrimSpace(in.AvatarURL)

	if in.FullName == "" {
		errs["full_name"] = "Full name is required."
	}
	if in.AvatarURL != "" {
		if u, err := url.ParseRequestURI(in.AvatarURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs["avatar_url"] = "Enter a valid image URL."
		}
	}

	return types.NewValidationError(errs)
}

func (m *Manager) Profile(ctx context.Context, userID string) (*types.Profile, error) {
	return m.accounts.Profile(ctx, userID)
}

func (m *Manager) UpdateProfile(ctx context.Context, userID string, input ProfileInput) (*types.Profile, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	profile, err := m.accounts.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.FullName = utils.TrimmedStringPtr(input.FullName)
	profile.Phone = utils.TrimmedStringPtr(input.Phone)
	profile.AvatarURL = utils.TrimmedStringPtr(input.AvatarURL)

	if err := m.accounts.UpdateProfile(ctx, profile); err != nil {
		return nil, err
	}

	return profile, nil
}
