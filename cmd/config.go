package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "zenclock"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage zenclock configuration.

Running bare 'zenclock config' is the same as 'zenclock config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# zenclock configuration
# See: zenclock config show (for effective values and sources)

# State/data directory (default: ~/.config/zenclock)
# state_dir: {{ .StateDir }}

# SQLite database path (default: ~/.config/zenclock/zenclock.db)
# db_path: {{ .DBPath }}

# HTTP port for 'zenclock serve'
port: {{ .Port }}

log:
  # debug, info, warn or error
  level: {{ .LogLevel }}

history:
  # Record phase transitions and completed sessions in the database
  enabled: {{ .HistoryEnabled }}
  # 'zenclock serve' prunes older entries at startup
  retention: {{ .HistoryRetention }}

# Mode selected at startup: pomodoro, flowtime, timeboxing, custom or meditation
mode: {{ .Mode }}

pomodoro:
  work: {{ .PomodoroWork }}
  break: {{ .PomodoroBreak }}
  long_break: {{ .PomodoroLongBreak }}
  sessions_until_long_break: {{ .PomodoroSessions }}

flowtime:
  # Suggested break as a fraction of the work time
  break_ratio: {{ .FlowtimeRatio }}

timeboxing:
  work: {{ .TimeboxWork }}
  break: {{ .TimeboxBreak }}

meditation:
  duration: {{ .MeditationDuration }}

custom:
  # Stop after the last interval instead of cycling back to the first
  stop_after_last: false
  # intervals:
  #   - name: Deep work
  #     duration: 45m
  #     kind: work
  #   - name: Stretch
  #     duration: 10m
  #     kind: break

breathing:
  inhale: {{ .Inhale }}
  hold: {{ .Hold }}
  exhale: {{ .Exhale }}
  cycles: {{ .Cycles }}

audio:
  channel: {{ .Channel }}
  volume: {{ .Volume }}
  # Volume multiplier applied while a break is running
  break_volume: {{ .BreakVolume }}
  fade_in: {{ .FadeIn }}
  fade_out: {{ .FadeOut }}
  # Sound started with each breathing exercise (empty for none)
  breathing_sound: "{{ .BreathingSound }}"
`

type configTemplateData struct {
	StateDir           string
	DBPath             string
	Port               int
	LogLevel           string
	HistoryEnabled     bool
	HistoryRetention   string
	Mode               string
	PomodoroWork       time.Duration
	PomodoroBreak      time.Duration
	PomodoroLongBreak  time.Duration
	PomodoroSessions   int
	FlowtimeRatio      float64
	TimeboxWork        time.Duration
	TimeboxBreak       time.Duration
	MeditationDuration time.Duration
	Inhale             time.Duration
	Hold               time.Duration
	Exhale             time.Duration
	Cycles             int
	Channel            string
	Volume             float64
	BreakVolume        float64
	FadeIn             time.Duration
	FadeOut            time.Duration
	BreathingSound     string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		StateDir:           viper.GetString("state_dir"),
		DBPath:             viper.GetString("db_path"),
		Port:               viper.GetInt("port"),
		LogLevel:           viper.GetString("log.level"),
		HistoryEnabled:     viper.GetBool("history.enabled"),
		HistoryRetention:   viper.GetString("history.retention"),
		Mode:               viper.GetString("mode"),
		PomodoroWork:       viper.GetDuration("pomodoro.work"),
		PomodoroBreak:      viper.GetDuration("pomodoro.break"),
		PomodoroLongBreak:  viper.GetDuration("pomodoro.long_break"),
		PomodoroSessions:   viper.GetInt("pomodoro.sessions_until_long_break"),
		FlowtimeRatio:      viper.GetFloat64("flowtime.break_ratio"),
		TimeboxWork:        viper.GetDuration("timeboxing.work"),
		TimeboxBreak:       viper.GetDuration("timeboxing.break"),
		MeditationDuration: viper.GetDuration("meditation.duration"),
		Inhale:             viper.GetDuration("breathing.inhale"),
		Hold:               viper.GetDuration("breathing.hold"),
		Exhale:             viper.GetDuration("breathing.exhale"),
		Cycles:             viper.GetInt("breathing.cycles"),
		Channel:            viper.GetString("audio.channel"),
		Volume:             viper.GetFloat64("audio.volume"),
		BreakVolume:        viper.GetFloat64("audio.break_volume"),
		FadeIn:             viper.GetDuration("audio.fade_in"),
		FadeOut:            viper.GetDuration("audio.fade_out"),
		BreathingSound:     viper.GetString("audio.breathing_sound"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeys lists the keys shown by 'config show', in display order.
var configKeys = []string{
	"state_dir",
	"db_path",
	"port",
	"log.level",
	"history.enabled",
	"history.retention",
	"mode",
	"tick_interval",
	"pomodoro.work",
	"pomodoro.break",
	"pomodoro.long_break",
	"pomodoro.sessions_until_long_break",
	"flowtime.break_ratio",
	"timeboxing.work",
	"timeboxing.break",
	"meditation.duration",
	"custom.stop_after_last",
	"breathing.inhale",
	"breathing.hold",
	"breathing.exhale",
	"breathing.cycles",
	"breathing.scale_min",
	"breathing.scale_max",
	"audio.channel",
	"audio.volume",
	"audio.break_volume",
	"audio.fade_in",
	"audio.fade_out",
	"audio.volume_fade",
	"audio.steps",
	"audio.breathing_sound",
}

// envVar returns the environment variable viper binds to key.
func envVar(key string) string {
	return "ZEN_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, key := range configKeys {
		source := detectSource(key, envVar(key), fileValues)
		fmt.Fprintf(ui.Out, "  %-36s %v  %s\n", key, viper.Get(key), source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'zenclock config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
