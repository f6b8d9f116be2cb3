package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/smileynet/tripdeck/internal/api"
	"github.com/smileynet/tripdeck/internal/session"
)

// LoginCmd signs in with email and password.
type LoginCmd struct {
	Email    string `arg:"" help:"Account email."`
	Password string `help:"Password. Read from stdin when empty." env:"TRIPDECK_PASSWORD"`
}

// Run executes the login command.
func (c *LoginCmd) Run() error {
	return withApp("login", func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdin, os.Stdout, a)
	})
}

func (c *LoginCmd) run(ctx context.Context, in io.Reader, w io.Writer, a *app) error {
	pw, err := readPassword(c.Password, in, w)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	user, err := a.session.Login(ctx, c.Email, pw)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Signed in as %s <%s>\n", user.Name, user.Email)
	printRedirect(w, a)
	return nil
}

// RegisterCmd creates an account and signs in.
type RegisterCmd struct {
	Name     string `arg:"" help:"Display name."`
	Email    string `arg:"" help:"Account email."`
	Password string `help:"Password (at least 8 characters). Read from stdin when empty." env:"TRIPDECK_PASSWORD"`
}

// Run executes the register command.
func (c *RegisterCmd) Run() error {
	return withApp("register", func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdin, os.Stdout, a)
	})
}

func (c *RegisterCmd) run(ctx context.Context, in io.Reader, w io.Writer, a *app) error {
	pw, err := readPassword(c.Password, in, w)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	user, err := a.session.Register(ctx, c.Name, c.Email, pw)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Welcome, %s! Signed in as %s\n", user.Name, user.Email)
	printRedirect(w, a)
	return nil
}

// printRedirect points the user back at the command that sent them to login.
func printRedirect(w io.Writer, a *app) {
	if r, ok := a.popRedirect(); ok {
		_, _ = fmt.Fprintf(w, "Continue with: tripdeck %s\n", r.From)
	}
}

// readPassword returns flag if set, otherwise the first line of in.
func readPassword(flag string, in io.Reader, w io.Writer) (string, error) {
	if flag != "" {
		return flag, nil
	}
	_, _ = fmt.Fprint(w, "Password: ")
	sc := bufio.NewScanner(in)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", errors.New("no password given")
	}
	_, _ = fmt.Fprintln(w)
	pw := strings.TrimRight(sc.Text(), "\r")
	if pw == "" {
		return "", errors.New("no password given")
	}
	return pw, nil
}

// LogoutCmd signs out and clears all local data.
type LogoutCmd struct{}

// Run executes the logout command.
func (c *LogoutCmd) Run() error {
	return withApp("logout", func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdout, a)
	})
}

func (c *LogoutCmd) run(ctx context.Context, w io.Writer, a *app) error {
	if err := a.session.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	_, _ = fmt.Fprintln(w, "Signed out.")
	return nil
}

// RefreshCmd exchanges the stored refresh token for a new token pair.
type RefreshCmd struct{}

// Run executes the refresh command.
func (c *RefreshCmd) Run() error {
	return withApp("refresh", func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdout, a)
	})
}

func (c *RefreshCmd) run(ctx context.Context, w io.Writer, a *app) error {
	err := a.session.RefreshToken(ctx)
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return fmt.Errorf("refresh: %w (not signed in)", errLoginRequired)
	case api.IsUnauthorized(err):
		a.session.Expire()
		return fmt.Errorf("refresh: %w (%s)", errLoginRequired, api.Message(err))
	case err != nil:
		return fmt.Errorf("refresh: %w", err)
	}
	if u := a.session.Snapshot().User; u != nil {
		_, _ = fmt.Fprintf(w, "Session refreshed for %s <%s>\n", u.Name, u.Email)
	} else {
		_, _ = fmt.Fprintln(w, "Session refreshed.")
	}
	printRedirect(w, a)
	return nil
}

// WhoamiCmd prints the signed-in profile.
type WhoamiCmd struct{}

// Run executes the whoami command.
func (c *WhoamiCmd) Run() error {
	return withApp("whoami", func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdout, a)
	})
}

func (c *WhoamiCmd) run(ctx context.Context, w io.Writer, a *app) error {
	if err := a.requireLogin("whoami"); err != nil {
		return err
	}
	user, err := a.session.Me(ctx)
	if err != nil {
		return fmt.Errorf("whoami: %w", err)
	}
	printUser(w, user)
	return nil
}

// ProfileCmd updates profile fields.
type ProfileCmd struct {
	Name     string `help:"New display name."`
	HomeCity string `help:"New home city."`
}

// Run executes the profile command.
func (c *ProfileCmd) Run() error {
	return withApp("profile", func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdout, a)
	})
}

func (c *ProfileCmd) run(ctx context.Context, w io.Writer, a *app) error {
	if c.Name == "" && c.HomeCity == "" {
		return errors.New("profile: nothing to update (use --name or --home-city)")
	}
	if err := a.requireLogin("profile"); err != nil {
		return err
	}
	user, err := a.session.UpdateProfile(ctx, api.ProfileUpdate{Name: c.Name, HomeCity: c.HomeCity})
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	printUser(w, user)
	return nil
}

func printUser(w io.Writer, u api.User) {
	_, _ = fmt.Fprintf(w, "%s <%s>\n", u.Name, u.Email)
	if u.HomeCity != "" {
		_, _ = fmt.Fprintf(w, "Home city: %s\n", u.HomeCity)
	}
}
