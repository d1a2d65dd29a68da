package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

const (
	TerminalPipe = "pipe"
	TerminalPTY  = "pty"
)

type Config struct {
	Port         int
	Token        string
	ConfigPath   string
	SettingsPath string
	LogFile      string
	OpenBrowser  bool
	Terminal     string
	DevMode      bool
	// OutputBatch is how long output is collected before it is pushed to
	// websocket clients. Zero pushes every chunk.
	OutputBatch time.Duration
}

// Default returns the built-in configuration rooted at the user's config dir.
func Default() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	base := filepath.Join(homeDir, ".config", "bokehpreview")

	return &Config{
		Port:         5005,
		ConfigPath:   filepath.Join(base, "config"),
		SettingsPath: filepath.Join(base, "settings.yaml"),
		OpenBrowser:  true,
		Terminal:     TerminalPipe,
		DevMode:      true,
		OutputBatch:  100 * time.Millisecond,
	}, nil
}

// AddFlags registers the flags that can override file configuration.
func AddFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file path (default ~/.config/bokehpreview/config)")
	fs.Int("port", 5005, "control server port (1-65535)")
	fs.String("token", "", "authentication token (auto-generated if empty)")
	fs.String("settings", "", "host settings YAML path (default ~/.config/bokehpreview/settings.yaml)")
	fs.String("log-file", "", "mirror the Bokeh output channel to this file")
	fs.Bool("open-browser", true, "open the preview panel in a browser when it is created")
	fs.String("terminal", TerminalPipe, "how the server process is attached: pipe or pty")
	fs.Bool("dev", true, "pass --dev to bokeh serve")
	fs.Duration("output-batch", 100*time.Millisecond, "collect server output this long before pushing it to pages (0 disables)")
}

// Load resolves configuration: defaults, then the key=value config file,
// then flags that were explicitly set on fs. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if fs != nil && fs.Changed("config") {
		cfg.ConfigPath, _ = fs.GetString("config")
	}

	if err := cfg.loadFromFile(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if fs != nil {
		if err := cfg.applyFlags(fs); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnsureToken generates a token when none is configured and writes it to the
// config file. Values that came from flags are not persisted.
func (c *Config) EnsureToken() error {
	if c.Token != "" {
		return nil
	}
	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	c.Token = token
	if err := c.persistToken(); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

// persistToken rewrites the config file with its own values plus the token.
func (c *Config) persistToken() error {
	stored, err := Default()
	if err != nil {
		return err
	}
	stored.ConfigPath = c.ConfigPath
	if err := stored.loadFromFile(); err != nil && !os.IsNotExist(err) {
		return err
	}
	stored.Token = c.Token
	return stored.saveToFile()
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port)
	}
	if c.Terminal != TerminalPipe && c.Terminal != TerminalPTY {
		return fmt.Errorf("invalid terminal %q: must be %q or %q", c.Terminal, TerminalPipe, TerminalPTY)
	}
	if c.OutputBatch < 0 {
		return fmt.Errorf("invalid output batch %s: must not be negative", c.OutputBatch)
	}
	return nil
}

// BaseURL is where the control server listens.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", c.Port)
}

func (c *Config) applyFlags(fs *pflag.FlagSet) error {
	var err error
	if fs.Changed("port") {
		if c.Port, err = fs.GetInt("port"); err != nil {
			return err
		}
	}
	if fs.Changed("token") {
		if c.Token, err = fs.GetString("token"); err != nil {
			return err
		}
	}
	if fs.Changed("settings") {
		if c.SettingsPath, err = fs.GetString("settings"); err != nil {
			return err
		}
	}
	if fs.Changed("log-file") {
		if c.LogFile, err = fs.GetString("log-file"); err != nil {
			return err
		}
	}
	if fs.Changed("open-browser") {
		if c.OpenBrowser, err = fs.GetBool("open-browser"); err != nil {
			return err
		}
	}
	if fs.Changed("terminal") {
		if c.Terminal, err = fs.GetString("terminal"); err != nil {
			return err
		}
	}
	if fs.Changed("dev") {
		if c.DevMode, err = fs.GetBool("dev"); err != nil {
			return err
		}
	}
	if fs.Changed("output-batch") {
		if c.OutputBatch, err = fs.GetDuration("output-batch"); err != nil {
			return err
		}
	}
	return nil
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
		switch key {
		case "Token":
			c.Token = value
		case "Port":
			port, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid Port value %q: %w", value, err)
			}
			c.Port = port
		case "SettingsPath":
			c.SettingsPath = value
		case "LogFile":
			c.LogFile = value
		case "OpenBrowser":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid OpenBrowser value %q: %w", value, err)
			}
			c.OpenBrowser = b
		case "Terminal":
			c.Terminal = value
		case "DevMode":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid DevMode value %q: %w", value, err)
			}
			c.DevMode = b
		case "OutputBatch":
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid OutputBatch value %q: %w", value, err)
			}
			c.OutputBatch = d
		}
	}
	return nil
}

func (c *Config) saveToFile() error {
	dir := filepath.Dir(c.ConfigPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Port=%d\n", c.Port)
	fmt.Fprintf(&b, "Token=%s\n", c.Token)
	fmt.Fprintf(&b, "SettingsPath=%s\n", c.SettingsPath)
	if c.LogFile != "" {
		fmt.Fprintf(&b, "LogFile=%s\n", c.LogFile)
	}
	fmt.Fprintf(&b, "OpenBrowser=%t\n", c.OpenBrowser)
	fmt.Fprintf(&b, "Terminal=%s\n", c.Terminal)
	fmt.Fprintf(&b, "DevMode=%t\n", c.DevMode)
	fmt.Fprintf(&b, "OutputBatch=%s\n", c.OutputBatch)
	return os.WriteFile(c.ConfigPath, []byte(b.String()), 0600)
}

func generateToken() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
