package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/tripdeck/internal/api"
	"github.com/smileynet/tripdeck/internal/chat"
	"github.com/smileynet/tripdeck/internal/dashboard"
	"github.com/smileynet/tripdeck/internal/packing"
	"github.com/smileynet/tripdeck/internal/planner"
	"github.com/smileynet/tripdeck/internal/recommend"
	"github.com/smileynet/tripdeck/internal/tui"
)

// TripFlags are the trip-planner form fields shared by recommend and dashboard.
type TripFlags struct {
	Destination string `arg:"" help:"Destination, e.g. Kandy."`
	Days        int    `help:"Trip length in days." default:"3"`
	Budget      int    `help:"Total budget (0 for no limit)." default:"0"`
	Group       int    `help:"Group size." default:"1"`
	Interests   string `help:"Comma-separated interests, e.g. culture,food."`
}

// params validates the flags through the planner form.
func (f TripFlags) params() (recommend.Params, error) {
	return planner.Form{
		Destination: f.Destination,
		Duration:    f.Days,
		Budget:      f.Budget,
		GroupSize:   f.Group,
		Interests:   planner.ParseInterests(f.Interests),
	}.Validate()
}

// Request steps shown while fetching recommendations.
const (
	stepSession  = "session"
	stepCache    = "cache"
	stepGenerate = "generate"
)

// RecommendCmd fetches recommendations, serving fresh cached results first.
type RecommendCmd struct {
	TripFlags
	Force bool `help:"Ignore cached results and generate again."`
	NoTUI bool `help:"Force plain text output even if stdout is a TTY." default:"false"`
	JSON  bool `help:"Print the raw recommendations as JSON."`
}

// Run executes the recommend command.
func (c *RecommendCmd) Run() error {
	return withApp("recommend", func(ctx context.Context, a *app) error {
		reqCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		bridge := tui.NewBridge()
		display := tui.NewDisplay(tui.DisplayOptions{
			Writer:     os.Stdout,
			ForcePlain: c.NoTUI || c.JSON,
			Steps:      []string{stepSession, stepCache, stepGenerate},
			CancelFunc: cancel,
		})
		return c.run(reqCtx, os.Stdout, a, display, bridge)
	})
}

// run validates the request and fetches it while display shows progress.
func (c *RecommendCmd) run(ctx context.Context, w io.Writer, a *app, display tui.Display, bridge *tui.Bridge) error {
	p, err := c.params()
	if err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	if err := a.requireLogin("recommend " + p.Destination); err != nil {
		return err
	}

	displayDone := make(chan error, 1)
	go func() {
		displayDone <- display.Run(context.Background(), bridge.Events())
	}()

	raw, summary, fetchErr := c.fetch(ctx, a, p, bridge)
	if fetchErr != nil {
		bridge.Error(fetchErr)
	} else if c.JSON {
		bridge.Done("")
	} else {
		bridge.Done(summary)
	}
	displayErr := <-displayDone

	if fetchErr != nil {
		return fmt.Errorf("recommend: %w", fetchErr)
	}
	if displayErr != nil {
		return fmt.Errorf("recommend: %w", displayErr)
	}
	if c.JSON {
		_, _ = fmt.Fprintln(w, string(raw))
	}
	return nil
}

// fetch reports each step to bridge and returns the raw result and its rendering.
func (c *RecommendCmd) fetch(ctx context.Context, a *app, p recommend.Params, bridge *tui.Bridge) ([]byte, string, error) {
	bridge.Send(tui.StepUpdateMsg{Step: stepSession, Status: tui.StatusDone, Progress: "1/3", Detail: "token valid"})

	cached := false
	if !c.Force {
		if e, ok := a.recs.Cached(p); ok {
			cached = true
			age := time.Since(time.UnixMilli(e.FetchedAt)).Round(time.Minute)
			bridge.Send(tui.StepUpdateMsg{Step: stepCache, Status: tui.StatusCached, Progress: "2/3", Detail: fmt.Sprintf("fetched %s ago", age)})
		}
	}
	if !cached {
		detail := "miss"
		if c.Force {
			detail = "bypassed"
		}
		bridge.Send(tui.StepUpdateMsg{Step: stepCache, Status: tui.StatusDone, Progress: "2/3", Detail: detail})
		bridge.Send(tui.StepUpdateMsg{Step: stepGenerate, Status: tui.StatusRunning, Progress: "3/3", Detail: p.String()})
	}

	start := time.Now()
	raw, err := a.recs.Fetch(ctx, p, recommend.FetchOptions{ForceRefresh: c.Force})
	if err != nil {
		bridge.Send(tui.StepUpdateMsg{Step: stepGenerate, Status: tui.StatusFailed, Progress: "3/3", Detail: api.Message(err)})
		return nil, "", err
	}
	if raw == nil {
		return nil, "", errors.New("request was superseded")
	}
	if cached {
		bridge.Send(tui.StepUpdateMsg{Step: stepGenerate, Status: tui.StatusSkipped, Progress: "3/3", Detail: "served from cache"})
	} else {
		bridge.Send(tui.StepUpdateMsg{Step: stepGenerate, Status: tui.StatusDone, Progress: "3/3", Duration: time.Since(start)})
	}

	plan, err := recommend.DecodePlan(raw)
	if err != nil {
		return nil, "", err
	}
	return raw, formatPlan(plan), nil
}

// formatPlan renders a plan as indented text.
func formatPlan(plan recommend.Plan) string {
	if len(plan.Days) == 0 {
		return fmt.Sprintf("No recommendations for %s.", plan.Destination)
	}
	var b strings.Builder
	if plan.Summary != "" {
		b.WriteString(plan.Summary + "\n")
	}
	for _, d := range plan.Days {
		title := fmt.Sprintf("Day %d", d.Day)
		if d.Title != "" {
			title += ": " + d.Title
		}
		b.WriteString("\n" + title + "\n")
		for _, act := range d.Activities {
			line := "  - " + act.Name
			if act.Category != "" {
				line += " [" + act.Category + "]"
			}
			if act.EstimatedCost > 0 {
				line += fmt.Sprintf(" ~%d", act.EstimatedCost)
			}
			b.WriteString(line + "\n")
		}
	}
	if plan.EstimatedTotal > 0 {
		b.WriteString(fmt.Sprintf("\nEstimated total: %d\n", plan.EstimatedTotal))
	}
	return strings.TrimRight(b.String(), "\n")
}

// DashboardCmd opens the interactive recommendations and itinerary view.
type DashboardCmd struct {
	TripFlags
}

// teaRunner abstracts Bubble Tea program execution for testing.
type teaRunner interface {
	Run() (tea.Model, error)
}

// Run builds real dependencies and launches the dashboard TUI.
func (d *DashboardCmd) Run() error {
	if !tui.IsTTY(os.Stdout) {
		return fmt.Errorf("dashboard: requires a terminal (TTY)")
	}
	return withApp("dashboard", func(ctx context.Context, a *app) error {
		p, err := d.params()
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		if err := a.requireLogin("dashboard " + p.Destination); err != nil {
			return err
		}
		if err := a.session.Hydrate(ctx); err != nil {
			a.logger.Warn("loading account data", "err", err)
		}
		m := dashboard.NewModel(ctx, p, a.recs, a.items)
		prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
		return d.run(true, prog)
	})
}

// run launches the dashboard program, enabling testable wiring.
func (d *DashboardCmd) run(isTTY bool, prog teaRunner) error {
	if !isTTY {
		return fmt.Errorf("dashboard: requires a terminal (TTY)")
	}
	_, err := prog.Run()
	return err
}

// PackCmd generates a packing list for a trip.
type PackCmd struct {
	Destination string   `arg:"" help:"Destination."`
	Days        int      `help:"Trip length in days." default:"3"`
	Season      string   `help:"Season, e.g. monsoon."`
	Activities  string   `help:"Comma-separated planned activities."`
	Group       int      `help:"Group size." default:"1"`
	Check       []string `help:"Mark an item as packed (repeatable)."`
}

// Run executes the pack command.
func (c *PackCmd) Run() error {
	return withApp("pack", func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdout, a)
	})
}

func (c *PackCmd) run(ctx context.Context, w io.Writer, a *app) error {
	if err := a.requireLogin("pack " + c.Destination); err != nil {
		return err
	}
	d, err := a.packing.Generate(ctx, api.PackingRequest{
		Destination: strings.TrimSpace(c.Destination),
		Duration:    c.Days,
		Season:      c.Season,
		Activities:  planner.ParseInterests(c.Activities),
		GroupSize:   c.Group,
	})
	if err != nil {
		return fmt.Errorf("pack: %w", err)
	}
	for _, name := range c.Check {
		if _, err := a.packing.Toggle(d.Destination, name); err != nil {
			return fmt.Errorf("pack: %w", err)
		}
	}
	stored, ok, err := a.packing.Draft(d.Destination)
	if err != nil {
		return fmt.Errorf("pack: %w", err)
	}
	if !ok {
		return fmt.Errorf("pack: draft for %s was not stored", d.Destination)
	}
	printDraft(w, stored)
	return nil
}

// printDraft lists items grouped by category with a progress line.
func printDraft(w io.Writer, d packing.Draft) {
	if len(d.Items) == 0 {
		_, _ = fmt.Fprintf(w, "No packing suggestions for %s.\n", d.Destination)
		return
	}
	byCat := map[string][]packing.Item{}
	var cats []string
	for _, it := range d.Items {
		if _, ok := byCat[it.Category]; !ok {
			cats = append(cats, it.Category)
		}
		byCat[it.Category] = append(byCat[it.Category], it)
	}
	sort.Strings(cats)
	for _, cat := range cats {
		name := cat
		if name == "" {
			name = "other"
		}
		_, _ = fmt.Fprintf(w, "%s\n", name)
		for _, it := range byCat[cat] {
			mark := "[ ]"
			if it.Packed {
				mark = "[x]"
			}
			line := fmt.Sprintf("  %s %s", mark, it.Name)
			if it.Quantity > 1 {
				line += fmt.Sprintf(" x%d", it.Quantity)
			}
			_, _ = fmt.Fprintln(w, line)
		}
	}
	packed, total := d.Progress()
	_, _ = fmt.Fprintf(w, "Packed %d/%d\n", packed, total)
}

// printHistory replays the conversation, ending with the last error if any.
func printHistory(w io.Writer, snap chat.Snapshot) {
	if len(snap.Messages) == 0 {
		_, _ = fmt.Fprintln(w, "No messages yet.")
	}
	for _, m := range snap.Messages {
		_, _ = fmt.Fprintf(w, "%s: %s\n", m.Role, m.Text)
	}
	if snap.Err != nil {
		_, _ = fmt.Fprintf(w, "last error: %s\n", api.Message(snap.Err))
	}
}

// ChatCmd talks to the travel assistant. With a message it asks once;
// otherwise it reads one message per line from stdin.
type ChatCmd struct {
	Message []string `arg:"" optional:"" help:"Message to send."`
}

// Run executes the chat command.
func (c *ChatCmd) Run() error {
	return withApp("chat", func(ctx context.Context, a *app) error {
		return c.run(ctx, os.Stdin, os.Stdout, a)
	})
}

func (c *ChatCmd) run(ctx context.Context, in io.Reader, w io.Writer, a *app) error {
	if err := a.requireLogin("chat"); err != nil {
		return err
	}
	conv := chat.NewConversation(a.client)

	if len(c.Message) > 0 {
		reply, err := conv.Send(ctx, strings.Join(c.Message, " "))
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, reply.Text)
		return nil
	}

	_, _ = fmt.Fprintln(w, "Ask about your trip. /history replays, /clear starts over, /quit exits.")
	sc := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(w, "> ")
		if !sc.Scan() {
			_, _ = fmt.Fprintln(w)
			return sc.Err()
		}
		switch line := strings.TrimSpace(sc.Text()); line {
		case "":
			continue
		case "/quit":
			return nil
		case "/clear":
			conv.Clear()
			_, _ = fmt.Fprintln(w, "Conversation cleared.")
		case "/history":
			printHistory(w, conv.Snapshot())
		default:
			reply, err := conv.Send(ctx, line)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				_, _ = fmt.Fprintf(w, "error: %s\n", api.Message(err))
				continue
			}
			_, _ = fmt.Fprintf(w, "assistant: %s\n", reply.Text)
		}
	}
}
