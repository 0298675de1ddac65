package output

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/joescharf/zenclock/internal/models"
)

// UI provides colored output and respects verbose/dry-run modes.
type UI struct {
	Verbose bool
	DryRun  bool
	Out     io.Writer
	ErrOut  io.Writer
}

// New creates a UI with default stdout/stderr writers.
func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("\u2713")
	warningPrefix = color.New(color.FgHiYellow).Sprint("\u26a0")
	errorPrefix   = color.New(color.FgHiRed).Sprint("\u2717")
	verbosePrefix = color.New(color.FgHiBlue).Sprint("  \u2192")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
)

// Cyan returns a cyan-colored string.
func Cyan(s string) string { return cyan(s) }

// Green returns a green-colored string.
func Green(s string) string { return green(s) }

// Yellow returns a yellow-colored string.
func Yellow(s string) string { return yellow(s) }

// Red returns a red-colored string.
func Red(s string) string { return red(s) }

// SessionColor returns the session type colored by whether it is focus time or rest.
func SessionColor(t models.SessionType) string {
	switch {
	case t == models.SessionLongBreak:
		return cyan(string(t))
	case t.IsBreak():
		return green(string(t))
	case t == "":
		return "idle"
	default:
		return yellow(string(t))
	}
}

// KindColor returns the event kind colored by severity.
func KindColor(k models.EventKind) string {
	switch k {
	case models.EventPlaybackFailed:
		return red(string(k))
	case models.EventSessionCompleted:
		return green(string(k))
	default:
		return string(k)
	}
}

// Clock formats seconds as mm:ss, or h:mm:ss past the hour.
func Clock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(math.Ceil(seconds))
	h, m, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// ProgressBar renders ratio in [0,1] as a fixed-width bar.
func ProgressBar(ratio float64, width int) string {
	ratio = math.Max(0, math.Min(1, ratio))
	filled := int(math.Round(ratio * float64(width)))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// TimerLine summarizes the session timer on a single line.
func TimerLine(t models.TimerSnapshot) string {
	if !t.Active {
		return fmt.Sprintf("%s  %s  sessions %d", t.Mode, SessionColor(""), t.CompletedSessions)
	}

	phase := SessionColor(t.SessionType)
	if t.IntervalName != "" {
		phase += " (" + t.IntervalName + ")"
	}

	var clock string
	if t.Mode == models.ModeFlowtime {
		clock = fmt.Sprintf("%s elapsed  break %.1fm", Clock(t.ElapsedSeconds), t.SuggestedBreakMinutes)
	} else {
		clock = fmt.Sprintf("%s %s", Clock(t.RemainingSeconds), ProgressBar(t.ProgressRatio, 20))
	}

	line := fmt.Sprintf("%s  %s  %s  sessions %d", t.Mode, phase, clock, t.CompletedSessions)
	if t.Paused {
		line += "  " + yellow("paused")
	}
	return line
}

// BreathingLine summarizes the breathing controller on a single line.
func BreathingLine(b models.BreathingSnapshot) string {
	if !b.Active {
		return "breathing idle"
	}
	return fmt.Sprintf("%-7s %s  cycle %d/%d  scale %.2f",
		b.Phase, ProgressBar(b.CycleProgress, 20), b.CycleIndex+1, b.TotalCycles, b.Scale)
}

// AudioLine summarizes one audio channel on a single line.
func AudioLine(a models.AudioSnapshot) string {
	sound := "silent"
	if a.Playing {
		sound = a.Sound
	}
	line := fmt.Sprintf("%s: %s  vol %3.0f%%", a.Channel, sound, a.Volume*100)
	if a.Muted {
		line += "  " + red("muted")
	}
	if a.Fading {
		line += "  fading"
	}
	return line
}

// Snapshot prints the full state as three lines.
func (u *UI) Snapshot(s models.Snapshot) {
	fmt.Fprintln(u.Out, TimerLine(s.Timer))
	fmt.Fprintln(u.Out, BreathingLine(s.Breathing))
	fmt.Fprintln(u.Out, AudioLine(s.Audio))
}

// Event prints one engine event.
func (u *UI) Event(ev models.Event) {
	switch ev.Kind {
	case models.EventPlaybackFailed:
		u.Warning("%s %s: %s", ev.Channel, ev.Sound, ev.Error)
	case models.EventSessionCompleted:
		u.Success("%s session complete", ev.Source)
	case models.EventPhaseCompleted:
		u.Info("%s: %s \u2192 %s", ev.Source, ev.From, ev.To)
	default:
		u.VerboseLog("%s %s", ev.Source, ev.Kind)
	}
}

// History renders persisted events as a table.
func (u *UI) History(entries []*models.HistoryEntry) error {
	table := u.Table([]string{"TIME", "SOURCE", "KIND", "MODE", "DETAIL"})
	for _, e := range entries {
		if err := table.Append([]string{
			e.OccurredAt.Local().Format("2006-01-02 15:04:05"),
			string(e.Event.Source),
			KindColor(e.Event.Kind),
			string(e.Event.Mode),
			eventDetail(e.Event),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func eventDetail(ev models.Event) string {
	switch {
	case ev.Error != "":
		return ev.Error
	case ev.Source == models.SourceBreathing && ev.Kind == models.EventSessionCompleted:
		return fmt.Sprintf("%d cycles", ev.Cycle)
	case ev.From != "" || ev.To != "":
		detail := ev.From + " \u2192 " + ev.To
		if ev.CompletedSessions > 0 {
			detail += fmt.Sprintf(" (#%d)", ev.CompletedSessions)
		}
		return detail
	}
	return ""
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		fmt.Fprintf(u.Out, "%s %s\n", verbosePrefix, fmt.Sprintf(format, a...))
	}
}

func (u *UI) DryRunMsg(format string, a ...any) {
	if u.DryRun {
		u.Warning("[DRY-RUN] "+format, a...)
	}
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}
