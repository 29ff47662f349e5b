package api

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/postdesk/internal/client/models"
)

type registerRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type changePasswordRequest struct {
	CurrentPassword         string `json:"current_password"`
	NewPassword             string `json:"new_password"`
	NewPasswordConfirmation string `json:"new_password_confirmation"`
}

// Register creates an account and returns its token and user.
// Validation failures come back as *Error matching ErrValidation.
func (t *Transport) Register(ctx context.Context, name, email, password, confirmation string) (*models.AuthResult, error) {
	var out models.AuthResult
	req := registerRequest{Name: name, Email: email, Password: password, PasswordConfirmation: confirmation}
	if err := t.doJSON(ctx, http.MethodPost, "/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a token. Bad credentials come back as
// *Error with Status 401; no token is attached, so the hook does not fire.
func (t *Transport) Login(ctx context.Context, email, password string) (*models.AuthResult, error) {
	var out models.AuthResult
	if err := t.doJSON(ctx, http.MethodPost, "/auth/login", nil, loginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates the server-side session of the current token.
func (t *Transport) Logout(ctx context.Context) error {
	return t.doJSON(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// Me fetches the user the current token belongs to.
func (t *Transport) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := t.doJSON(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile changes the current user's name and email and returns the
// updated user.
func (t *Transport) UpdateProfile(ctx context.Context, name, email string) (*models.User, error) {
	var out models.User
	if err := t.doJSON(ctx, http.MethodPut, "/auth/profile", nil, profileRequest{Name: name, Email: email}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword changes the current user's password. A wrong current
// password is reported as a field error on current_password.
func (t *Transport) ChangePassword(ctx context.Context, current, next, confirmation string) error {
	req := changePasswordRequest{CurrentPassword: current, NewPassword: next, NewPasswordConfirmation: confirmation}
	return t.doJSON(ctx, http.MethodPut, "/auth/change-password", nil, req, nil)
}

// DeleteAccount removes the current user and all their posts.
func (t *Transport) DeleteAccount(ctx context.Context) error {
	return t.doJSON(ctx, http.MethodDelete, "/auth/delete-account", nil, nil, nil)
}
