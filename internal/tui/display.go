// Package tui shows the progress of a long-running backend request, either
// as a spinner UI on a terminal or as plain timestamped lines.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// DisplayEvent is an event sent to a Display via the update channel.
type DisplayEvent interface {
	isDisplayEvent()
}

var (
	_ DisplayEvent = StepUpdateMsg{}
	_ DisplayEvent = DoneMsg{}
	_ DisplayEvent = ErrorMsg{}
)

// Display renders request progress.
type Display interface {
	Run(ctx context.Context, events <-chan DisplayEvent) error
}

// DisplayOptions configures display creation.
type DisplayOptions struct {
	Writer     io.Writer          // Output destination (default: os.Stdout).
	ForcePlain bool               // Force plain text even on a TTY.
	Steps      []string           // Step names shown by the TUI.
	CancelFunc context.CancelFunc // Called by the TUI on abort (ignored by PlainDisplay).
}

// NewDisplay returns a TUI display when the writer is a TTY, or a plain text
// display otherwise. ForcePlain overrides TTY detection.
func NewDisplay(opts DisplayOptions) Display {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	if opts.ForcePlain || !IsTTY(opts.Writer) {
		return &PlainDisplay{w: opts.Writer}
	}
	return &TUIDisplay{steps: opts.Steps, w: opts.Writer, cancelFunc: opts.CancelFunc}
}

// IsTTY reports whether w is connected to a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Bridge is the channel between a running request and a Display.
type Bridge struct {
	ch chan DisplayEvent
}

// NewBridge creates a Bridge with a buffered event channel.
func NewBridge() *Bridge {
	return &Bridge{ch: make(chan DisplayEvent, 16)}
}

// Events returns the channel for Display.Run to consume.
func (b *Bridge) Events() <-chan DisplayEvent {
	return b.ch
}

// Send delivers a step update. It blocks if the buffer is full.
func (b *Bridge) Send(msg StepUpdateMsg) {
	b.ch <- msg
}

// Done signals success and closes the channel.
func (b *Bridge) Done(summary string) {
	b.ch <- DoneMsg{Summary: summary}
	close(b.ch)
}

// Error signals failure and closes the channel.
func (b *Bridge) Error(err error) {
	b.ch <- ErrorMsg{Err: err}
	close(b.ch)
}

// PlainDisplay renders events as timestamped text lines.
type PlainDisplay struct {
	w io.Writer
}

// Run prints each event until the channel closes. It returns the request
// error if the request failed, or the context error if cancelled.
func (d *PlainDisplay) Run(ctx context.Context, events <-chan DisplayEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch msg := ev.(type) {
			case StepUpdateMsg:
				d.renderUpdate(msg)
			case DoneMsg:
				if msg.Summary != "" {
					_, _ = fmt.Fprintln(d.w, msg.Summary)
				}
				return nil
			case ErrorMsg:
				return msg.Err
			}
		}
	}
}

func (d *PlainDisplay) renderUpdate(su StepUpdateMsg) {
	ts := time.Now().Format("15:04:05")
	progress := ""
	if su.Progress != "" {
		progress = "[" + su.Progress + "] "
	}
	line := fmt.Sprintf("[%s] %s%s %s", ts, progress, su.Step, su.Status)
	if su.Detail != "" {
		line += ": " + su.Detail
	}
	if su.Duration > 0 {
		line += fmt.Sprintf(" (%.1fs)", su.Duration.Seconds())
	}
	_, _ = fmt.Fprintln(d.w, line)
}

// TUIDisplay renders events with a Bubble Tea spinner UI. It falls back to
// PlainDisplay if the program fails to start.
type TUIDisplay struct {
	steps      []string
	w          io.Writer
	cancelFunc context.CancelFunc
}

// Run starts the Bubble Tea program and feeds it events from the channel.
func (d *TUIDisplay) Run(ctx context.Context, events <-chan DisplayEvent) error {
	var opts []ModelOption
	if d.cancelFunc != nil {
		opts = append(opts, WithCancelFunc(d.cancelFunc))
	}
	p := tea.NewProgram(NewModel(d.steps, opts...), tea.WithOutput(d.w), tea.WithContext(ctx))

	// Forward through an intermediate channel so the goroutine can stop
	// cleanly before falling back to plain output.
	fwd := make(chan DisplayEvent, 16)
	stop := make(chan struct{})

	go func() {
		defer close(fwd)
		for ev := range events {
			select {
			case fwd <- ev:
			case <-stop:
				return
			}
		}
	}()

	go func() {
		for ev := range fwd {
			p.Send(ev)
		}
	}()

	final, err := p.Run()
	if err != nil {
		close(stop)
		plain := &PlainDisplay{w: d.w}
		return plain.Run(ctx, events)
	}
	if m, ok := final.(Model); ok {
		if m.err != nil {
			return m.err
		}
		if m.aborted {
			return context.Canceled
		}
	}
	return nil
}
