package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/user/lrctype/internal/playback"
)

const (
	BackendXdotool = "xdotool"
	BackendWtype   = "wtype"
	BackendTmux    = "tmux"
	BackendPTY     = "pty"
	BackendCommand = "command"
	BackendDryRun  = "dry-run"
)

var backends = []string{BackendXdotool, BackendWtype, BackendTmux, BackendPTY, BackendCommand, BackendDryRun}

// ErrHelp is returned when -h was passed; usage has already been printed.
var ErrHelp = flag.ErrHelp

type Config struct {
	Port       int
	Host       string
	Listen     bool
	Token      string
	ConfigPath string
	PrintToken bool

	DBPath       string
	SequencesDir string
	Sequence     string

	Backend     string
	TmuxTarget  string
	PTYCommand  string
	TypeCommand string
	KeyCommand  string

	Tick        time.Duration
	MaxFailures int

	Hotkeys  bool
	StartKey string
	StopKey  string
	Watch    bool
	LogLevel string

	History        int
	ImportSequence string
	ImportAs       string

	LRCPath string
}

// Load reads ~/.config/lrctype/config and then the command line.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return LoadFrom(filepath.Join(homeDir, ".config", "lrctype"), os.Args[1:], os.Stderr)
}

// LoadFrom layers defaults, the config file in dir, and args, in that order.
func LoadFrom(dir string, args []string, usage io.Writer) (*Config, error) {
	cfg := defaults(dir)

	if err := cfg.loadFromFile(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	fs := flag.NewFlagSet("lrctype", flag.ContinueOnError)
	fs.SetOutput(usage)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: lrctype [flags] [file.lrc]\n\n")
		fs.PrintDefaults()
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP port (1-65535)")
	fs.StringVar(&cfg.Host, "host", cfg.Host, "HTTP bind address")
	fs.BoolVar(&cfg.Listen, "listen", cfg.Listen, "serve the HTTP API and websocket")
	fs.StringVar(&cfg.Token, "token", cfg.Token, "API token (auto-generated if empty)")
	fs.BoolVar(&cfg.PrintToken, "print-token", false, "print token to stdout")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "run history database path (empty disables history)")
	fs.StringVar(&cfg.SequencesDir, "sequences", cfg.SequencesDir, "directory of sequence YAML files")
	fs.StringVar(&cfg.Sequence, "sequence", cfg.Sequence, "id of the action sequence to run per line")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "input backend: "+strings.Join(backends, "|"))
	fs.StringVar(&cfg.TmuxTarget, "tmux-target", cfg.TmuxTarget, "tmux target pane for -backend tmux")
	fs.StringVar(&cfg.PTYCommand, "pty-command", cfg.PTYCommand, "command to run under a pty for -backend pty")
	fs.StringVar(&cfg.TypeCommand, "type-command", cfg.TypeCommand, "command template with {text} for -backend command")
	fs.StringVar(&cfg.KeyCommand, "key-command", cfg.KeyCommand, "command template with {key} for -backend command")
	fs.DurationVar(&cfg.Tick, "tick", cfg.Tick, "scheduler polling interval")
	fs.IntVar(&cfg.MaxFailures, "max-failures", cfg.MaxFailures, "halt after this many consecutive failing lines (0 never halts)")
	fs.BoolVar(&cfg.Hotkeys, "hotkeys", cfg.Hotkeys, "read start/stop hotkeys from the terminal")
	fs.StringVar(&cfg.StartKey, "start-key", cfg.StartKey, "terminal hotkey that starts playback")
	fs.StringVar(&cfg.StopKey, "stop-key", cfg.StopKey, "terminal hotkey that stops playback")
	fs.BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload the LRC file when it changes")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug|info|warn|error")
	fs.IntVar(&cfg.History, "history", 0, "print the N most recent runs and exit")
	fs.StringVar(&cfg.ImportSequence, "import-sequence", "", "import a legacy JSON action list and exit")
	fs.StringVar(&cfg.ImportAs, "as", "", "sequence id for -import-sequence")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch fs.NArg() {
	case 0:
	case 1:
		cfg.LRCPath = fs.Arg(0)
	default:
		return nil, fmt.Errorf("expected at most one LRC file, got %d arguments", fs.NArg())
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Listen && cfg.Token == "" {
		token, err := generateToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate token: %w", err)
		}
		cfg.Token = token
		if err := cfg.saveToFile(); err != nil {
			return nil, fmt.Errorf("failed to save config file: %w", err)
		}
	}

	return cfg, nil
}

func defaults(dir string) *Config {
	return &Config{
		Port:         8766,
		Host:         "127.0.0.1",
		ConfigPath:   filepath.Join(dir, "config"),
		DBPath:       filepath.Join(dir, "lrctype.db"),
		SequencesDir: filepath.Join(dir, "sequences"),
		Sequence:     "default",
		Backend:      BackendXdotool,
		Tick:         playback.DefaultTick,
		MaxFailures:  playback.DefaultMaxConsecutiveFailures,
		Hotkeys:      true,
		StartKey:     "f6",
		StopKey:      "f7",
		LogLevel:     "info",
	}
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port)
	}
	if c.Tick <= 0 || c.Tick > time.Second {
		return fmt.Errorf("invalid tick %s: must be positive and at most 1s", c.Tick)
	}
	if c.MaxFailures < 0 {
		return fmt.Errorf("invalid max-failures %d: must not be negative", c.MaxFailures)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.Backend {
	case BackendXdotool, BackendWtype, BackendDryRun:
	case BackendTmux:
		if strings.TrimSpace(c.TmuxTarget) == "" {
			return errors.New("-backend tmux requires -tmux-target")
		}
	case BackendPTY:
		if strings.TrimSpace(c.PTYCommand) == "" {
			return errors.New("-backend pty requires -pty-command")
		}
	case BackendCommand:
		if strings.TrimSpace(c.TypeCommand) == "" || strings.TrimSpace(c.KeyCommand) == "" {
			return errors.New("-backend command requires -type-command and -key-command")
		}
	default:
		return fmt.Errorf("invalid backend %q: want one of %s", c.Backend, strings.Join(backends, ", "))
	}
	if c.ImportSequence != "" && strings.TrimSpace(c.ImportAs) == "" {
		return errors.New("-import-sequence requires -as")
	}
	if c.History < 0 {
		return fmt.Errorf("invalid history count %d", c.History)
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}

func (c *Config) loadFromFile() error {
	data, err := os.ReadFile(c.ConfigPath)
	if err != nil {
		return err
	}
	lines := strings.Split(string(data), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if err := c.set(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) set(key, value string) error {
	var err error
	switch key {
	case "Port":
		c.Port, err = strconv.Atoi(value)
	case "Host":
		c.Host = value
	case "Listen":
		c.Listen, err = strconv.ParseBool(value)
	case "Token":
		c.Token = value
	case "DBPath":
		c.DBPath = value
	case "SequencesDir":
		c.SequencesDir = value
	case "Sequence":
		c.Sequence = value
	case "Backend":
		c.Backend = value
	case "TmuxTarget":
		c.TmuxTarget = value
	case "PTYCommand":
		c.PTYCommand = value
	case "TypeCommand":
		c.TypeCommand = value
	case "KeyCommand":
		c.KeyCommand = value
	case "Tick":
		c.Tick, err = time.ParseDuration(value)
	case "MaxFailures":
		c.MaxFailures, err = strconv.Atoi(value)
	case "Hotkeys":
		c.Hotkeys, err = strconv.ParseBool(value)
	case "StartKey":
		c.StartKey = value
	case "StopKey":
		c.StopKey = value
	case "Watch":
		c.Watch, err = strconv.ParseBool(value)
	case "LogLevel":
		c.LogLevel = value
	}
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return nil
}

func (c *Config) saveToFile() error {
	dir := filepath.Dir(c.ConfigPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Port=%d\nHost=%s\nListen=%t\nToken=%s\n", c.Port, c.Host, c.Listen, c.Token)
	fmt.Fprintf(&b, "DBPath=%s\nSequencesDir=%s\nSequence=%s\n", c.DBPath, c.SequencesDir, c.Sequence)
	fmt.Fprintf(&b, "Backend=%s\n", c.Backend)
	for _, kv := range [][2]string{
		{"TmuxTarget", c.TmuxTarget},
		{"PTYCommand", c.PTYCommand},
		{"TypeCommand", c.TypeCommand},
		{"KeyCommand", c.KeyCommand},
	} {
		if kv[1] != "" {
			fmt.Fprintf(&b, "%s=%s\n", kv[0], kv[1])
		}
	}
	fmt.Fprintf(&b, "Tick=%s\nMaxFailures=%d\n", c.Tick, c.MaxFailures)
	fmt.Fprintf(&b, "Hotkeys=%t\nStartKey=%s\nStopKey=%s\nWatch=%t\nLogLevel=%s\n", c.Hotkeys, c.StartKey, c.StopKey, c.Watch, c.LogLevel)
	return os.WriteFile(c.ConfigPath, []byte(b.String()), 0600)
}

func generateToken() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
