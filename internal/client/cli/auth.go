package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/postdesk/internal/common"
)

// getSimpleText, getPassword, getMultiline and confirm are indirections used
// to facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getMultiline  = GetMultiline
	confirm       = Confirm
)

// readSecret reads a password and returns it as a string, wiping the bytes.
func (a *App) readSecret(prompt string) (string, error) {
	pw, err := getPassword(a.reader, prompt, a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

// Register prompts for name, email, password and its confirmation and
// creates an account. On success the new session is active.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := a.readSecret("Enter password")
	if err != nil {
		return err
	}
	confirmation, err := a.readSecret("Confirm password")
	if err != nil {
		return err
	}

	u, err := a.session.Register(ctx, name, email, password, confirmation)
	if err != nil {
		return a.fail("Registration failed. Please try again.", err)
	}
	fmt.Fprintf(a.out, "Welcome, %s!\n", u.Name)
	return nil
}

// Login prompts for credentials and signs in.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := a.readSecret("Enter password")
	if err != nil {
		return err
	}

	u, err := a.session.Login(ctx, email, password)
	if err != nil {
		return a.fail("Login failed. Please try again.", err)
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", u.Name)
	return nil
}

// Logout always signs out locally; only a local storage failure is reported.
func (a *App) Logout(ctx context.Context) error {
	a.closeList()
	if err := a.session.Logout(ctx); err != nil {
		return a.fail("Could not clear the saved session.", err)
	}
	a.println("Logged out")
	return nil
}

// Me prints the signed-in user.
func (a *App) Me(_ context.Context) error {
	u := a.session.User()
	if u == nil {
		a.println("Not logged in")
		return nil
	}
	fmt.Fprintf(a.out, "%s <%s>\n", u.Name, u.Email)
	if !u.CreatedAt.IsZero() {
		fmt.Fprintf(a.out, "Member since %s\n", u.CreatedAt.Local().Format("January 2, 2006"))
	}
	return nil
}

// Profile edits name and email; an empty answer keeps the current value.
func (a *App) Profile(ctx context.Context) error {
	u := a.session.User()
	if u == nil {
		a.println("Not logged in")
		return nil
	}
	name, err := getSimpleText(a.reader, fmt.Sprintf("Name [%s]", u.Name), a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, fmt.Sprintf("Email [%s]", u.Email), a.out)
	if err != nil {
		return err
	}
	if name == "" {
		name = u.Name
	}
	if email == "" {
		email = u.Email
	}

	if _, err := a.session.UpdateProfile(ctx, name, email); err != nil {
		return a.failAuthed("Failed to update profile.", err)
	}
	a.println("Profile updated successfully!")
	return nil
}

// Password changes the account password.
func (a *App) Password(ctx context.Context) error {
	current, err := a.readSecret("Current password")
	if err != nil {
		return err
	}
	next, err := a.readSecret("New password")
	if err != nil {
		return err
	}
	confirmation, err := a.readSecret("Confirm new password")
	if err != nil {
		return err
	}
	if next != confirmation {
		a.println("  new_password: Passwords do not match.")
		return nil
	}

	if err := a.session.ChangePassword(ctx, current, next, confirmation); err != nil {
		return a.failAuthed("Failed to change password.", err)
	}
	a.println("Password changed successfully!")
	return nil
}

// DeleteAccount destroys the account after confirmation.
func (a *App) DeleteAccount(ctx context.Context) error {
	ok, err := confirm(a.reader, "Delete your account and all posts? This cannot be undone.", a.out)
	if err != nil || !ok {
		return err
	}
	if err := a.session.DeleteAccount(ctx); err != nil {
		return a.failAuthed("Failed to delete account.", err)
	}
	a.closeList()
	a.println("Account deleted")
	return nil
}
