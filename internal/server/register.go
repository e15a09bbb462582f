package server

import (
	"net/http"
	"strings"

	"smartplate/internal/session"
)

type registerResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	// Confirm is where the emailed code has to be posted.
	Confirm string `json:"confirm"`
}

func (s *Service) handlePostRegister(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	var input session.SignUpInput
	if err := s.decodeForm(r, &input); err != nil {
		s.badRequest(w, "Unable to read the registration form.")
		return
	}

	userID, err := session.FromContext(ctx).SignUp(ctx, input)
	if err != nil {
		s.logger.WithError(err).Info("failed to sign up user")
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, registerResponse{
		UserID:  userID,
		Email:   strings.ToLower(strings.TrimSpace(input.Email)),
		Confirm: "/auth/register/confirm",
	})
}

func (s *Service) handlePostRegisterConfirm(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()

	email := strings.TrimSpace(r.FormValue("email"))
	code := strings.TrimSpace(r.FormValue("code"))

	errs := map[string]string{}
	if email == "" {
		errs["email"] = "Email is required."
	}
	if code == "" {
		errs["code"] = "Enter the confirmation code we emailed you."
	}
	if len(errs) > 0 {
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: messageFixFields, FieldErrors: errs})
		return
	}

	if err := session.FromContext(ctx).ConfirmSignUp(ctx, email, code); err != nil {
		s.logger.WithError(err).Info("failed to confirm user signup")
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
