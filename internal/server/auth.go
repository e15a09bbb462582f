package server

import (
	"errors"
	"net/http"
	"strings"

	"smartplate/internal/session"
	"smartplate/pkg/types"
)

type loginResponse struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	FullName    string `json:"fullName,omitempty"`
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

type meResponse struct {
	UserID  string         `json:"userId"`
	Email   string         `json:"email,omitempty"`
	Role    types.Role     `json:"role"`
	Profile *types.Profile `json:"profile,omitempty"`
}

func (s *Service) handlePostLogin(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	if email == "" || password == "" {
		s.writeError(w, r, types.ErrInvalidCredentials)
		return
	}

	tokens, ident, err := session.FromContext(ctx).SignIn(ctx, email, password)
	if err != nil {
		s.logger.WithError(err).Info("failed to sign in user")
		s.writeError(w, r, err)
		return
	}

	encryptedToken, err := s.cookie.Encode(COOKIE_ACCESS_TOKEN_NAME, tokens.AccessToken)
	if err != nil {
		s.logger.WithError(err).Error("failed to encrypt access token")
		s.writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     COOKIE_ACCESS_TOKEN_NAME,
		Value:    encryptedToken,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   tokens.ExpiresIn,
		Path:     "/",
	})

	s.writeJSON(w, http.StatusOK, loginResponse{
		UserID:      ident.UserID,
		Email:       ident.Email,
		FullName:    ident.FullName,
		AccessToken: tokens.AccessToken,
		ExpiresIn:   tokens.ExpiresIn,
	})
}

func (s *Service) handlePostLogout(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	actor := actorFromContext(ctx)

	err := session.FromContext(ctx).SignOut(ctx, actor.UserID, accessTokenFromContext(ctx))
	if err != nil {
		// The local cookie is cleared regardless.
		s.logger.WithError(err).Warn("failed to sign out globally")
	}

	s.locations.Forget(actor.UserID)

	http.SetCookie(w, &http.Cookie{
		Name:     COOKIE_ACCESS_TOKEN_NAME,
		Value:    "",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleGetMe(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	actor := actorFromContext(ctx)

	profile, err := session.FromContext(ctx).Profile(ctx, actor.UserID)
	if err != nil && !errors.Is(err, types.ErrProfileNotFound) {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, meResponse{
		UserID:  actor.UserID,
		Email:   emailFromContext(ctx),
		Role:    actor.Role,
		Profile: profile,
	})
}

func (s *Service) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	var input session.ProfileInput
	if err := s.decodeForm(r, &input); err != nil {
		s.badRequest(w, "Unable to read the profile form.")
		return
	}

	profile, err := session.FromContext(ctx).UpdateProfile(ctx, actorFromContext(ctx).UserID, input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Service) handlePostRefreshRole(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	actor := actorFromContext(ctx)

	role, err := session.FromContext(ctx).RefreshRole(ctx, actor.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, meResponse{
		UserID: actor.UserID,
		Email:  emailFromContext(ctx),
		Role:   role,
	})
}
