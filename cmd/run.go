package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joescharf/zenclock/internal/models"
	"github.com/joescharf/zenclock/internal/orchestrator"
	"github.com/joescharf/zenclock/internal/output"
)

var (
	runWork     time.Duration
	runBreak    time.Duration
	runSessions int
	runSound    string
)

var runCmd = &cobra.Command{
	Use:   "run [mode]",
	Short: "Run a focus session in the foreground",
	Long: `Run a focus session in the foreground until it completes or you press Ctrl-C.

Without a mode the configured default is used. Pomodoro, flowtime and
timeboxing sessions repeat until interrupted; pass --sessions to stop after
that many work sessions.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: modeArgs(),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := ""
		if len(args) == 1 {
			mode = args[0]
		}
		return runRun(cmd.Context(), mode)
	},
}

func init() {
	runCmd.Flags().DurationVar(&runWork, "work", 0, "Override the work length for this session")
	runCmd.Flags().DurationVar(&runBreak, "break", 0, "Override the break length for this session")
	runCmd.Flags().IntVar(&runSessions, "sessions", 0, "Stop after this many completed work sessions")
	runCmd.Flags().StringVar(&runSound, "sound", "", "Ambient sound to play during the session")
	rootCmd.AddCommand(runCmd)
}

func modeArgs() []string {
	names := make([]string, len(models.Modes))
	for i, m := range models.Modes {
		names[i] = string(m)
	}
	return names
}

func runRun(ctx context.Context, modeArg string) error {
	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	o, _, err := newOrchestrator(ctx, newLogger(slog.LevelWarn))
	if err != nil {
		return err
	}

	cmds, err := sessionCommands(o.Options(), modeArg)
	if err != nil {
		return err
	}

	return drive(ctx, o, cmds, func(s models.Snapshot) string {
		return output.TimerLine(s.Timer)
	}, runDone(runSessions))
}

// runDone ends a run after sessions completed work sessions, or when the
// timer session finishes on its own.
func runDone(sessions int) func(orchestrator.Update) bool {
	ended := sessionEnded(models.SourceTimer, func(s models.Snapshot) bool { return s.Timer.Active })
	return func(u orchestrator.Update) bool {
		if sessions > 0 && u.Snapshot.Timer.CompletedSessions >= sessions {
			return true
		}
		return ended(u)
	}
}

// sessionCommands builds the commands that start a session in modeArg, or
// in the configured mode when modeArg is empty.
func sessionCommands(opts orchestrator.Options, modeArg string) ([]orchestrator.Command, error) {
	mode := opts.Mode
	if modeArg != "" {
		m, err := models.ParseMode(modeArg)
		if err != nil {
			return nil, err
		}
		mode = m
	}

	start := orchestrator.StartSession{}
	if runWork > 0 || runBreak > 0 {
		cfg := opts.Presets[mode]
		cfg.Mode = mode
		if runWork > 0 {
			cfg.Work = runWork
		}
		if runBreak > 0 {
			cfg.Break = runBreak
		}
		start.Config = cfg
	}

	cmds := []orchestrator.Command{orchestrator.SwitchMode{Mode: mode}, start}
	if runSound != "" {
		cmds = append(cmds, orchestrator.PlaySound{Sound: runSound})
	}
	return cmds, nil
}

// completed reports whether u carries the end of source's session.
func completed(u orchestrator.Update, source models.EventSource) bool {
	for _, ev := range u.Events {
		if ev.Source == source && ev.Kind == models.EventSessionCompleted {
			return true
		}
	}
	return false
}

// sessionEnded reports the end of source's session from its completion event
// or, since a subscriber may miss events, from the snapshot going inactive
// after it was seen active.
func sessionEnded(source models.EventSource, active func(models.Snapshot) bool) func(orchestrator.Update) bool {
	started := false
	return func(u orchestrator.Update) bool {
		if completed(u, source) {
			return true
		}
		if active(u.Snapshot) {
			started = true
			return false
		}
		return started
	}
}

// drive runs o in the foreground, submits cmds and redraws a status line on
// every update until done returns true or ctx is cancelled.
func drive(ctx context.Context, o *orchestrator.Orchestrator, cmds []orchestrator.Command,
	line func(models.Snapshot) string, done func(orchestrator.Update) bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates, unsubscribe := o.Subscribe()
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return o.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		for _, c := range cmds {
			if _, err := o.Submit(gctx, c); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
		}
		return render(gctx, updates, line, done)
	})

	err := g.Wait()
	fmt.Fprintln(ui.Out)
	return err
}

func render(ctx context.Context, updates <-chan orchestrator.Update,
	line func(models.Snapshot) string, done func(orchestrator.Update) bool) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			for _, ev := range u.Events {
				fmt.Fprint(ui.Out, clearLine)
				ui.Event(ev)
			}
			fmt.Fprint(ui.Out, clearLine+line(u.Snapshot))
			if done(u) {
				return nil
			}
		}
	}
}

// clearLine returns the cursor to column 0 and erases the line.
const clearLine = "\r\033[K"
