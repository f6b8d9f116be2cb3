package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"

	"github.com/smileynet/tripdeck/internal/api"
	"github.com/smileynet/tripdeck/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// CLI is the top-level command structure for tripdeck.
type CLI struct {
	Version   kong.VersionFlag `help:"Show version." short:"V"`
	Init      InitCmd          `cmd:"" help:"Write a starter config."`
	Login     LoginCmd         `cmd:"" help:"Sign in to your account."`
	Register  RegisterCmd      `cmd:"" help:"Create an account and sign in."`
	Logout    LogoutCmd        `cmd:"" help:"Sign out and clear local data."`
	Refresh   RefreshCmd       `cmd:"" help:"Renew the session with the stored refresh token."`
	Whoami    WhoamiCmd        `cmd:"" help:"Show the signed-in profile."`
	Profile   ProfileCmd       `cmd:"" help:"Update your profile."`
	Recommend RecommendCmd     `cmd:"" help:"Get day-by-day recommendations for a destination."`
	Dashboard DashboardCmd     `cmd:"" help:"Browse recommendations and build an itinerary interactively."`
	Pack      PackCmd          `cmd:"" help:"Generate a packing list."`
	Chat      ChatCmd          `cmd:"" help:"Ask the travel assistant."`
	Itinerary ItineraryCmd     `cmd:"" help:"Manage saved itinerary items."`
	Trips     TripsCmd         `cmd:"" help:"Manage trips."`
	Favorites FavoritesCmd     `cmd:"" help:"Manage favorite destinations."`
	Reviews   ReviewsCmd       `cmd:"" help:"Read and write destination reviews."`
	Devserver DevserverCmd     `cmd:"" help:"Run the local development backend."`
}

// loadConfig loads .env, layered config from user and project paths, and
// env overrides, then validates the result.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.LoadLayered(
		os.ExpandEnv("$HOME/.config/tripdeck/config.yaml"),
		".tripdeck/config.yaml",
	)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withApp builds the app, runs fn under an interrupt-aware context, and
// releases the app's storage afterwards.
func withApp(name string, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp()
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer func() { _ = a.close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return runApp(ctx, a, fn)
}

// runApp runs fn and maps backend auth rejections to errLoginRequired.
func runApp(ctx context.Context, a *app, fn func(ctx context.Context, a *app) error) error {
	return a.authError(fn(ctx, a))
}

// Exit codes.
const (
	exitSuccess = 0
	exitBackend = 1
	exitSetup   = 2
)

// exitCode maps an error to the appropriate exit code. Backend and network
// failures exit 1; usage, validation, config, and login errors exit 2.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	if errors.Is(err, errLoginRequired) {
		return exitSetup
	}
	var he *api.HTTPError
	if errors.As(err, &he) {
		return exitBackend
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return exitBackend
	}
	return exitSetup
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("tripdeck"),
		kong.Description("Plan trips from the terminal."),
		kong.Vars{"version": version + " " + commit + " " + date},
	)
	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}
