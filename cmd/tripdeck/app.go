package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/smileynet/tripdeck/internal/api"
	"github.com/smileynet/tripdeck/internal/config"
	"github.com/smileynet/tripdeck/internal/guard"
	"github.com/smileynet/tripdeck/internal/itinerary"
	"github.com/smileynet/tripdeck/internal/packing"
	"github.com/smileynet/tripdeck/internal/recommend"
	"github.com/smileynet/tripdeck/internal/session"
	"github.com/smileynet/tripdeck/internal/storage"
)

// errLoginRequired is returned when a protected command runs without a
// usable access token.
var errLoginRequired = errors.New("login required")

// app holds the wired client-side stores shared by all commands.
type app struct {
	logger  *log.Logger
	persist storage.Store
	client  *api.Client
	tokens  *session.TokenStore
	session *session.Store
	recs    *recommend.Store
	items   *itinerary.Store
	packing *packing.Planner
	guard   *guard.Guard
	close   func() error

	requested string // protected command last passed to requireLogin
}

// newApp loads config and builds the app against the configured backend.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(os.Stderr, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	persist, closeFn, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}
	a, err := buildApp(cfg, logger, persist)
	if err != nil {
		_ = closeFn()
		return nil, err
	}
	a.close = closeFn
	return a, nil
}

// openStorage returns the persistent store for the configured backend.
func openStorage(cfg config.Storage) (storage.Store, func() error, error) {
	switch cfg.Backend {
	case "redis":
		rs, err := storage.NewRedisStore(cfg.RedisAddr, os.Getenv("TRIPDECK_REDIS_PASSWORD"))
		if err != nil {
			return nil, nil, err
		}
		return rs, rs.Close, nil
	default:
		return storage.NewFileStore(cfg.Dir), func() error { return nil }, nil
	}
}

// buildApp wires the stores on top of persist. Extra api options are
// appended after the configured ones.
func buildApp(cfg *config.Config, logger *log.Logger, persist storage.Store, apiOpts ...api.Option) (*app, error) {
	tokens, err := session.NewTokenStore(persist)
	if err != nil {
		return nil, err
	}
	opts := append([]api.Option{
		api.WithTimeout(cfg.API.Timeout),
		api.WithTokenSource(tokens),
		api.WithLogger(logger),
	}, apiOpts...)
	client := api.New(cfg.API.BaseURL, opts...)

	recs := recommend.New(recommendGenerator{client: client},
		recommend.WithStorage(persist),
		recommend.WithLogger(logger),
	)
	items, err := itinerary.New(persist, itinerary.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	planner := packing.NewPlanner(client, storage.NewMemoryStore(), packing.WithLogger(logger))

	sess, err := session.New(client, tokens, persist,
		session.WithRecommendations(recs),
		session.WithDrafts(planner),
		session.WithItinerary(items),
		session.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	return &app{
		logger:  logger,
		persist: persist,
		client:  client,
		tokens:  tokens,
		session: sess,
		recs:    recs,
		items:   items,
		packing: planner,
		guard:   guard.New(tokens, guard.OnExpired(sess.Expire)),
		close:   func() error { return nil },
	}, nil
}

// requireLogin runs the route guard for command. On failure it remembers
// command so login can point back to it.
func (a *app) requireLogin(command string) error {
	a.requested = command
	res := a.guard.Check(command)
	if res.State == guard.Valid {
		return nil
	}
	if res.Redirect != nil {
		a.saveRedirect(*res.Redirect)
	}
	if res.Reason != "" {
		return fmt.Errorf("%s: %w (%s)", command, errLoginRequired, res.Reason)
	}
	return fmt.Errorf("%s: %w", command, errLoginRequired)
}

// authError turns a 401/403 from a protected command into errLoginRequired
// and remembers the command, as a failed guard check would.
func (a *app) authError(err error) error {
	if a.requested == "" || !api.IsUnauthorized(err) {
		return err
	}
	a.saveRedirect(guard.Redirect{To: guard.LoginTarget, From: a.requested})
	return fmt.Errorf("%s: %w (%s)", a.requested, errLoginRequired, api.Message(err))
}

func (a *app) saveRedirect(r guard.Redirect) {
	if err := storage.SaveJSON(a.persist, storage.KeyRedirect, r); err != nil {
		a.logger.Warn("saving redirect", "err", err)
	}
}

// popRedirect returns and forgets the command a guard failure recorded.
func (a *app) popRedirect() (guard.Redirect, bool) {
	var r guard.Redirect
	ok, err := storage.LoadJSON(a.persist, storage.KeyRedirect, &r)
	if err != nil || !ok {
		return guard.Redirect{}, false
	}
	_ = a.persist.Delete(storage.KeyRedirect)
	return r, r.From != ""
}

// recommendGenerator adapts api.Client to recommend.Generator.
type recommendGenerator struct {
	client *api.Client
}

func (g recommendGenerator) Generate(ctx context.Context, p recommend.Params) (json.RawMessage, error) {
	return g.client.GenerateItinerary(ctx, api.ItineraryRequest{
		Destination: p.Destination,
		Duration:    p.Duration,
		Budget:      p.Budget,
		GroupSize:   p.GroupSize,
		Interests:   p.Interests,
	})
}

// newLogger builds the CLI logger writing to w at the given level.
func newLogger(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		Prefix:          "tripdeck",
	}), nil
}
