package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/smileynet/tripdeck/internal/api"
	"github.com/smileynet/tripdeck/internal/itinerary"
)

// --- itinerary ---

// ItineraryCmd groups the local itinerary subcommands.
type ItineraryCmd struct {
	List   ItineraryListCmd   `cmd:"" default:"1" help:"List saved items."`
	Add    ItineraryAddCmd    `cmd:"" help:"Save an item."`
	Remove ItineraryRemoveCmd `cmd:"" help:"Remove a saved item."`
	Clear  ItineraryClearCmd  `cmd:"" help:"Remove every saved item."`
}

// ItineraryListCmd lists saved items, optionally for one trip.
type ItineraryListCmd struct {
	Trip string `help:"Only items for this trip ID."`
}

// Run executes the itinerary list command.
func (c *ItineraryListCmd) Run() error {
	return withApp("itinerary", func(_ context.Context, a *app) error {
		return c.run(os.Stdout, a)
	})
}

func (c *ItineraryListCmd) run(w io.Writer, a *app) error {
	items := a.items.Items()
	if c.Trip != "" {
		items = a.items.ForTrip(c.Trip)
	}
	if len(items) == 0 {
		_, _ = fmt.Fprintln(w, "No saved items.")
		return nil
	}
	for _, it := range items {
		line := it.ID + "  " + it.Name
		if it.Day > 0 {
			line += fmt.Sprintf("  day %d", it.Day)
		}
		if it.Category != "" {
			line += "  [" + it.Category + "]"
		}
		if it.TripID != "" {
			line += "  " + it.TripID
		}
		_, _ = fmt.Fprintln(w, line)
	}
	return nil
}

// ItineraryAddCmd saves a free-form item.
type ItineraryAddCmd struct {
	Name     string `arg:"" help:"Item name."`
	Day      int    `help:"Trip day."`
	Category string `help:"Category, e.g. food."`
	Notes    string `help:"Notes."`
	Trip     string `help:"Trip ID to attach the item to."`
}

// Run executes the itinerary add command.
func (c *ItineraryAddCmd) Run() error {
	return withApp("itinerary", func(_ context.Context, a *app) error {
		return c.run(os.Stdout, a)
	})
}

func (c *ItineraryAddCmd) run(w io.Writer, a *app) error {
	it, err := a.items.Add(itinerary.Item{
		Name:     c.Name,
		Day:      c.Day,
		Category: c.Category,
		Notes:    c.Notes,
		TripID:   c.Trip,
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Saved %s (%s)\n", it.Name, it.ID)
	return nil
}

// ItineraryRemoveCmd removes a saved item by ID.
type ItineraryRemoveCmd struct {
	ID string `arg:"" help:"Item ID."`
}

// Run executes the itinerary remove command.
func (c *ItineraryRemoveCmd) Run() error {
	return withApp("itinerary", func(_ context.Context, a *app) error {
		return c.run(os.Stdout, a)
	})
}

func (c *ItineraryRemoveCmd) run(w io.Writer, a *app) error {
	ok, err := a.items.Remove(c.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("itinerary: no item %q", c.ID)
	}
	_, _ = fmt.Fprintf(w, "Removed %s\n", c.ID)
	return nil
}

// ItineraryClearCmd removes all saved items.
type ItineraryClearCmd struct{}

// Run executes the itinerary clear command.
func (c *ItineraryClearCmd) Run() error {
	return withApp("itinerary", func(_ context.Context, a *app) error {
		if err := a.items.Clear(); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(os.Stdout, "Itinerary cleared.")
		return nil
	})
}

// --- trips ---

// TripsCmd groups the trip subcommands.
type TripsCmd struct {
	List   TripsListCmd   `cmd:"" default:"1" help:"List trips and sync their saved items."`
	Create TripsCreateCmd `cmd:"" help:"Create a trip."`
	Delete TripsDeleteCmd `cmd:"" help:"Delete a trip."`
}

// TripsListCmd lists trips and merges their saved items into the itinerary.
type TripsListCmd struct{}

// Run executes the trips list command.
func (c *TripsListCmd) Run() error {
	return withApp("trips", func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdout, a)
	})
}

func (c *TripsListCmd) run(ctx context.Context, w io.Writer, a *app) error {
	if err := a.requireLogin("trips"); err != nil {
		return err
	}
	merged, err := a.session.FetchTrips(ctx)
	if err != nil {
		return fmt.Errorf("trips: %w", err)
	}
	trips := a.session.Snapshot().Trips
	if len(trips) == 0 {
		_, _ = fmt.Fprintln(w, "No trips yet.")
		return nil
	}
	for _, t := range trips {
		line := fmt.Sprintf("%s  %s  %s", t.ID, t.Destination, t.StartDate)
		if t.EndDate != "" {
			line += " to " + t.EndDate
		}
		if n := len(t.SavedItems); n > 0 {
			line += fmt.Sprintf("  (%d items)", n)
		}
		_, _ = fmt.Fprintln(w, line)
	}
	if merged > 0 {
		_, _ = fmt.Fprintf(w, "Synced %d saved items into your itinerary.\n", merged)
	}
	return nil
}

// TripsCreateCmd creates a trip, optionally carrying local itinerary items.
type TripsCreateCmd struct {
	Destination string `arg:"" help:"Destination."`
	Start       string `help:"Start date (YYYY-MM-DD)." required:""`
	End         string `help:"End date (YYYY-MM-DD)."`
	Budget      int    `help:"Total budget."`
	Group       int    `help:"Group size." default:"1"`
	Attach      bool   `help:"Attach itinerary items not yet assigned to a trip."`
}

// Run executes the trips create command.
func (c *TripsCreateCmd) Run() error {
	return withApp("trips", func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdout, a)
	})
}

func (c *TripsCreateCmd) run(ctx context.Context, w io.Writer, a *app) error {
	if _, err := time.Parse(time.DateOnly, c.Start); err != nil {
		return fmt.Errorf("trips: --start must be YYYY-MM-DD, got %q", c.Start)
	}
	if c.End != "" {
		if _, err := time.Parse(time.DateOnly, c.End); err != nil {
			return fmt.Errorf("trips: --end must be YYYY-MM-DD, got %q", c.End)
		}
		if c.End < c.Start {
			return errors.New("trips: --end is before --start")
		}
	}
	if err := a.requireLogin("trips create " + c.Destination); err != nil {
		return err
	}

	trip := api.Trip{
		Destination: strings.TrimSpace(c.Destination),
		StartDate:   c.Start,
		EndDate:     c.End,
		Budget:      c.Budget,
		GroupSize:   c.Group,
	}
	if c.Attach {
		tripID := itinerary.TripID(trip.Destination, trip.StartDate)
		for _, it := range a.items.Items() {
			if it.TripID != "" && it.TripID != tripID {
				continue
			}
			trip.SavedItems = append(trip.SavedItems, api.SavedItem{
				ID:       it.ID,
				TripID:   tripID,
				Name:     it.Name,
				Day:      it.Day,
				Category: it.Category,
				Notes:    it.Notes,
			})
		}
	}

	created, err := a.session.CreateTrip(ctx, trip)
	if err != nil {
		return fmt.Errorf("trips: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Created trip %s to %s (%d items)\n", created.ID, created.Destination, len(created.SavedItems))
	return nil
}

// TripsDeleteCmd deletes a trip by ID.
type TripsDeleteCmd struct {
	ID string `arg:"" help:"Trip ID."`
}

// Run executes the trips delete command.
func (c *TripsDeleteCmd) Run() error {
	return withApp("trips", func(ctx context.Context, a *app) error {
		if err := a.requireLogin("trips delete " + c.ID); err != nil {
			return err
		}
		if err := a.session.DeleteTrip(ctx, c.ID); err != nil {
			return fmt.Errorf("trips: %w", err)
		}
		_, _ = fmt.Fprintf(os.Stdout, "Deleted trip %s\n", c.ID)
		return nil
	})
}

// --- favorites ---

// FavoritesCmd groups the favorite subcommands.
type FavoritesCmd struct {
	List   FavoritesListCmd   `cmd:"" default:"1" help:"List favorite destinations."`
	Add    FavoritesAddCmd    `cmd:"" help:"Add a favorite destination."`
	Remove FavoritesRemoveCmd `cmd:"" help:"Remove a favorite."`
}

// FavoritesListCmd lists favorites.
type FavoritesListCmd struct{}

// Run executes the favorites list command.
func (c *FavoritesListCmd) Run() error {
	return withApp("favorites", func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdout, a)
	})
}

func (c *FavoritesListCmd) run(ctx context.Context, w io.Writer, a *app) error {
	if err := a.requireLogin("favorites"); err != nil {
		return err
	}
	favs, err := a.session.FetchFavorites(ctx)
	if err != nil {
		return fmt.Errorf("favorites: %w", err)
	}
	if len(favs) == 0 {
		_, _ = fmt.Fprintln(w, "No favorites yet.")
		return nil
	}
	for _, f := range favs {
		line := f.ID + "  " + f.Destination
		if f.Note != "" {
			line += "  " + f.Note
		}
		_, _ = fmt.Fprintln(w, line)
	}
	return nil
}

// FavoritesAddCmd adds a favorite.
type FavoritesAddCmd struct {
	Destination string `arg:"" help:"Destination."`
	Note        string `help:"Optional note."`
}

// Run executes the favorites add command.
func (c *FavoritesAddCmd) Run() error {
	return withApp("favorites", func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdout, a)
	})
}

func (c *FavoritesAddCmd) run(ctx context.Context, w io.Writer, a *app) error {
	if err := a.requireLogin("favorites add " + c.Destination); err != nil {
		return err
	}
	fav, err := a.session.AddFavorite(ctx, c.Destination, c.Note)
	if err != nil {
		return fmt.Errorf("favorites: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Added %s (%s)\n", fav.Destination, fav.ID)
	return nil
}

// FavoritesRemoveCmd removes a favorite by ID.
type FavoritesRemoveCmd struct {
	ID string `arg:"" help:"Favorite ID."`
}

// Run executes the favorites remove command.
func (c *FavoritesRemoveCmd) Run() error {
	return withApp("favorites", func(ctx context.Context, a *app) error {
		if err := a.requireLogin("favorites remove " + c.ID); err != nil {
			return err
		}
		if err := a.session.RemoveFavorite(ctx, c.ID); err != nil {
			return fmt.Errorf("favorites: %w", err)
		}
		_, _ = fmt.Fprintf(os.Stdout, "Removed favorite %s\n", c.ID)
		return nil
	})
}

// --- reviews ---

// ReviewsCmd groups the review subcommands.
type ReviewsCmd struct {
	List   ReviewsListCmd   `cmd:"" default:"1" help:"List reviews."`
	Add    ReviewsAddCmd    `cmd:"" help:"Review a destination."`
	Delete ReviewsDeleteCmd `cmd:"" help:"Delete one of your reviews."`
}

// ReviewsListCmd lists reviews, optionally for one destination.
type ReviewsListCmd struct {
	Destination string `arg:"" optional:"" help:"Only reviews for this destination."`
}

// Run executes the reviews list command.
func (c *ReviewsListCmd) Run() error {
	return withApp("reviews", func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdout, a)
	})
}

func (c *ReviewsListCmd) run(ctx context.Context, w io.Writer, a *app) error {
	if err := a.requireLogin("reviews"); err != nil {
		return err
	}
	reviews, err := a.session.FetchReviews(ctx, c.Destination)
	if err != nil {
		return fmt.Errorf("reviews: %w", err)
	}
	if len(reviews) == 0 {
		_, _ = fmt.Fprintln(w, "No reviews yet.")
		return nil
	}
	for _, r := range reviews {
		stars := strings.Repeat("*", r.Rating) + strings.Repeat(".", max(5-r.Rating, 0))
		line := fmt.Sprintf("%s  %s  %s  %s", r.ID, r.Destination, stars, r.Comment)
		if r.Author != "" {
			line += "  (" + r.Author + ")"
		}
		_, _ = fmt.Fprintln(w, line)
	}
	return nil
}

// ReviewsAddCmd posts a review.
type ReviewsAddCmd struct {
	Destination string `arg:"" help:"Destination."`
	Rating      int    `help:"Rating from 1 to 5." required:""`
	Comment     string `help:"Review text."`
}

// Run executes the reviews add command.
func (c *ReviewsAddCmd) Run() error {
	return withApp("reviews", func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdout, a)
	})
}

func (c *ReviewsAddCmd) run(ctx context.Context, w io.Writer, a *app) error {
	if c.Rating < 1 || c.Rating > 5 {
		return fmt.Errorf("reviews: --rating must be between 1 and 5, got %d", c.Rating)
	}
	if err := a.requireLogin("reviews add " + c.Destination); err != nil {
		return err
	}
	r, err := a.session.CreateReview(ctx, api.Review{
		Destination: c.Destination,
		Rating:      c.Rating,
		Comment:     c.Comment,
	})
	if err != nil {
		return fmt.Errorf("reviews: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Posted review %s for %s\n", r.ID, r.Destination)
	return nil
}

// ReviewsDeleteCmd deletes a review by ID.
type ReviewsDeleteCmd struct {
	ID string `arg:"" help:"Review ID."`
}

// Run executes the reviews delete command.
func (c *ReviewsDeleteCmd) Run() error {
	return withApp("reviews", func(ctx context.Context, a *app) error {
		if err := a.requireLogin("reviews delete " + c.ID); err != nil {
			return err
		}
		if err := a.session.DeleteReview(ctx, c.ID); err != nil {
			return fmt.Errorf("reviews: %w", err)
		}
		_, _ = fmt.Fprintf(os.Stdout, "Deleted review %s\n", c.ID)
		return nil
	})
}
