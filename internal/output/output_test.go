package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/zenclock/internal/models"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestInfo(t *testing.T) {
	u, out, _ := newTestUI()
	u.Info("hello %s", "world")
	assert.Contains(t, out.String(), "hello world")
}

func TestSuccess(t *testing.T) {
	u, out, _ := newTestUI()
	u.Success("done %d", 42)
	assert.Contains(t, out.String(), "done 42")
}

func TestWarning(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Warning("careful %s", "now")
	assert.Contains(t, errOut.String(), "careful now")
}

func TestError(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Error("failed %s", "badly")
	assert.Contains(t, errOut.String(), "failed badly")
}

func TestVerboseLog_Enabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = true
	u.VerboseLog("detail %d", 1)
	assert.Contains(t, out.String(), "detail 1")
}

func TestVerboseLog_Disabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = false
	u.VerboseLog("detail %d", 1)
	assert.Empty(t, out.String())
}

func TestDryRunMsg_Enabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = true
	u.DryRunMsg("would create %s", "file")
	assert.Contains(t, errOut.String(), "[DRY-RUN]")
	assert.Contains(t, errOut.String(), "would create file")
}

func TestDryRunMsg_Disabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = false
	u.DryRunMsg("would create %s", "file")
	assert.Empty(t, errOut.String())
}

func TestColorHelpers(t *testing.T) {
	// Color helpers should return non-empty strings
	assert.NotEmpty(t, Cyan("test"))
	assert.NotEmpty(t, Green("test"))
	assert.NotEmpty(t, Yellow("test"))
	assert.NotEmpty(t, Red("test"))
}

func TestSessionColor(t *testing.T) {
	assert.Contains(t, SessionColor(models.SessionWork), "work")
	assert.Contains(t, SessionColor(models.SessionBreak), "break")
	assert.Contains(t, SessionColor(models.SessionLongBreak), "long_break")
	assert.Equal(t, "idle", SessionColor(""))
}

func TestClock(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00"},
		{-3, "00:00"},
		{59.2, "01:00"},
		{1500, "25:00"},
		{3725, "1:02:05"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Clock(tt.seconds), "seconds=%v", tt.seconds)
	}
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[----]", ProgressBar(0, 4))
	assert.Equal(t, "[##--]", ProgressBar(0.5, 4))
	assert.Equal(t, "[####]", ProgressBar(1.7, 4))
}

func TestTimerLine(t *testing.T) {
	line := TimerLine(models.TimerSnapshot{
		Mode:              models.ModePomodoro,
		Active:            true,
		Paused:            true,
		SessionType:       models.SessionWork,
		RemainingSeconds:  600,
		ProgressRatio:     0.6,
		CompletedSessions: 2,
	})
	assert.Contains(t, line, "pomodoro")
	assert.Contains(t, line, "10:00")
	assert.Contains(t, line, "sessions 2")
	assert.Contains(t, line, "paused")

	flow := TimerLine(models.TimerSnapshot{
		Mode:                  models.ModeFlowtime,
		Active:                true,
		SessionType:           models.SessionFlow,
		ElapsedSeconds:        125,
		SuggestedBreakMinutes: 0.4,
	})
	assert.Contains(t, flow, "02:05 elapsed")
	assert.Contains(t, flow, "break 0.4m")

	assert.Contains(t, TimerLine(models.TimerSnapshot{Mode: models.ModeMeditation}), "idle")
}

func TestBreathingAndAudioLines(t *testing.T) {
	assert.Equal(t, "breathing idle", BreathingLine(models.BreathingSnapshot{}))
	b := BreathingLine(models.BreathingSnapshot{
		Active: true, Phase: models.PhaseHold, CycleProgress: 0.5, CycleIndex: 1, TotalCycles: 4, Scale: 1,
	})
	assert.Contains(t, b, "hold")
	assert.Contains(t, b, "cycle 2/4")

	a := AudioLine(models.AudioSnapshot{Channel: "ambient", Volume: 0.7, Playing: true, Sound: "rain", Muted: true})
	assert.Contains(t, a, "ambient: rain")
	assert.Contains(t, a, "70%")
	assert.Contains(t, a, "muted")
}

func TestUIEvent(t *testing.T) {
	u, out, errOut := newTestUI()
	u.Event(models.Event{Kind: models.EventPhaseCompleted, Source: models.SourceTimer, From: "work", To: "break"})
	u.Event(models.Event{Kind: models.EventPlaybackFailed, Source: models.SourceAudio, Channel: "ambient", Sound: "rain", Error: "busy"})
	u.Event(models.Event{Kind: models.EventFadeCompleted, Source: models.SourceAudio})

	assert.Contains(t, out.String(), "work")
	assert.Contains(t, out.String(), "break")
	assert.NotContains(t, out.String(), "fade_completed", "fades only show in verbose mode")
	assert.Contains(t, errOut.String(), "busy")
}

func TestUIHistory(t *testing.T) {
	u, out, _ := newTestUI()
	err := u.History([]*models.HistoryEntry{
		{
			ID:         "01J0",
			Event:      models.Event{Kind: models.EventPhaseCompleted, Source: models.SourceTimer, Mode: models.ModePomodoro, From: "work", To: "break", CompletedSessions: 3},
			OccurredAt: time.Date(2026, 3, 1, 9, 25, 0, 0, time.UTC),
		},
		{
			ID:         "01J1",
			Event:      models.Event{Kind: models.EventSessionCompleted, Source: models.SourceBreathing, Cycle: 4},
			OccurredAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)

	result := out.String()
	assert.Contains(t, result, "pomodoro")
	assert.Contains(t, result, "(#3)")
	assert.Contains(t, result, "4 cycles")
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"Name", "Status"})
	require.NotNil(t, table)

	require.NoError(t, table.Append([]string{"pomodoro", "work"}))
	require.NoError(t, table.Append([]string{"flowtime", "flow"}))
	err := table.Render()
	require.NoError(t, err)

	result := out.String()
	assert.True(t, strings.Contains(result, "pomodoro"), "table output should contain rows")
	assert.True(t, strings.Contains(result, "flowtime"), "table output should contain rows")
}
