// Package config handles application configuration and command-line argument parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexflint/go-arg"

	"github.com/joe/device-explorer/internal/explorer"
	"github.com/joe/device-explorer/internal/logging"
	"github.com/joe/device-explorer/pkg/filesystem"
)

// Defaults applied when a flag is not given.
const (
	DefaultDevice        = "mem://demo"
	DefaultMirrorDirName = "DeviceExplorer"
)

// ListCmd lists one remote directory.
type ListCmd struct {
	Path string `arg:"positional" help:"Remote directory to list (default: the device root)"`
}

// PullCmd downloads remote entries.
type PullCmd struct {
	To      string   `arg:"--to" help:"Local directory to download into (default: the device's mirror)"`
	Remotes []string `arg:"positional,required" help:"Remote files or directories"`
}

// PushCmd uploads local entries into a remote directory.
type PushCmd struct {
	To     string   `arg:"--to,required" help:"Remote directory to upload into"`
	Locals []string `arg:"positional,required" help:"Local files or directories"`
}

// RemoveCmd deletes remote entries.
type RemoveCmd struct {
	Remotes []string `arg:"positional,required" help:"Remote files or directories"`
}

// CreateCmd creates one remote entry.
type CreateCmd struct {
	Parent string `arg:"positional,required" help:"Remote parent directory"`
	Name   string `arg:"positional,required" help:"Name of the new entry"`
}

// Config holds the application configuration
type Config struct {
	Device      string   `arg:"-D,--device,env:DEVEXPLORER_DEVICE" help:"Device URL: sftp://user@host[:port][/root] or mem://[name]"`
	MirrorRoot  string   `arg:"--mirror" help:"Local mirror root for downloads (default: ~/DeviceExplorer)"`
	Interactive bool     `arg:"-i,--interactive" help:"Run the interactive explorer"`
	Hidden      []string `arg:"--hide,separate" help:"Glob of entries to leave out of listings (repeatable)"`
	LogLevel    string   `arg:"--log-level,env:DEVEXPLORER_LOG_LEVEL" help:"Log level: trace|debug|info|warn|error"`
	LogFile     string   `arg:"--log-file" help:"Write logs to this file instead of stderr"`
	MetricsAddr string   `arg:"--metrics-addr" help:"Serve Prometheus metrics on this address (e.g. :9090)"`
	KnownHosts  string   `arg:"--known-hosts" help:"known_hosts file for SFTP devices (default: ~/.ssh/known_hosts)"`
	Insecure    bool     `arg:"--insecure" help:"Skip SFTP host key verification"`

	AdminTimeout    time.Duration `arg:"--admin-timeout" help:"Timeout for each delete or create"`
	RepaintInterval time.Duration `arg:"--repaint-interval" help:"How often transferring entries are redrawn"`
	MaxProblems     int           `arg:"--max-problems" help:"Problems listed in a result message"`

	List   *ListCmd   `arg:"subcommand:ls" help:"List a remote directory"`
	Pull   *PullCmd   `arg:"subcommand:pull" help:"Download remote entries"`
	Push   *PushCmd   `arg:"subcommand:push" help:"Upload local entries"`
	Remove *RemoveCmd `arg:"subcommand:rm" help:"Delete remote entries"`
	Mkdir  *CreateCmd `arg:"subcommand:mkdir" help:"Create a remote directory"`
	Touch  *CreateCmd `arg:"subcommand:touch" help:"Create an empty remote file"`

	// DeviceURL is Device, parsed by PostProcessConfig.
	DeviceURL *filesystem.DeviceURL `arg:"-"`
}

// Description returns the program description for go-arg
func (Config) Description() string {
	return "Browse and transfer files on a remote device, interactively or one command at a time"
}

// Version returns the version string for go-arg
func (Config) Version() string {
	return "devexplorer 1.0.0"
}

// Defaults returns a Config holding the flag defaults.
func Defaults() *Config {
	settings := explorer.DefaultSettings()

	return &Config{
		Device:          DefaultDevice,
		LogLevel:        logging.DefaultLevel,
		AdminTimeout:    settings.AdminTimeout,
		RepaintInterval: settings.RepaintInterval,
		MaxProblems:     settings.MaxReportedProblems,
	}
}

// ParseFlags parses command-line flags and returns configuration
func ParseFlags() (*Config, error) {
	cfg := Defaults()

	arg.MustParse(cfg)

	return PostProcessConfig(cfg)
}

// Parse parses args (without the program name). Help and version requests
// come back as arg.ErrHelp and arg.ErrVersion.
func Parse(args []string) (*Config, error) {
	cfg := Defaults()

	parser, err := arg.NewParser(arg.Config{Program: "devexplorer"}, cfg)
	if err != nil {
		return nil, err
	}

	if err := parser.Parse(args); err != nil {
		return nil, err
	}

	return PostProcessConfig(cfg)
}

// PostProcessConfig applies post-processing logic to a parsed config
func PostProcessConfig(cfg *Config) (*Config, error) {
	command := cfg.Command()

	// No subcommand means the interactive explorer
	if command == "" {
		cfg.Interactive = true
	} else if cfg.Interactive {
		return nil, fmt.Errorf("--interactive cannot be combined with %s", command) //nolint:err113 // Input validation with actual value
	}

	if cfg.Device == "" {
		cfg.Device = DefaultDevice
	}

	device, err := filesystem.ParseDeviceURL(cfg.Device)
	if err != nil {
		return nil, err
	}

	cfg.DeviceURL = device

	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	if err := cfg.validateSettings(); err != nil {
		return nil, err
	}

	if cfg.MirrorRoot == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine mirror root: %w", err)
		}

		cfg.MirrorRoot = filepath.Join(home, DefaultMirrorDirName)
	}

	if err := cfg.ValidatePaths(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Command returns the name of the chosen subcommand, or "" for none.
func (cfg *Config) Command() string {
	switch {
	case cfg.List != nil:
		return "ls"
	case cfg.Pull != nil:
		return "pull"
	case cfg.Push != nil:
		return "push"
	case cfg.Remove != nil:
		return "rm"
	case cfg.Mkdir != nil:
		return "mkdir"
	case cfg.Touch != nil:
		return "touch"
	default:
		return ""
	}
}

// Settings returns the explorer settings the flags describe.
func (cfg *Config) Settings() explorer.Settings {
	settings := explorer.DefaultSettings()
	settings.AdminTimeout = cfg.AdminTimeout
	settings.RepaintInterval = cfg.RepaintInterval
	settings.MaxReportedProblems = cfg.MaxProblems

	return settings
}

// ConnectOptions returns how to authenticate to an SFTP device.
func (cfg *Config) ConnectOptions() filesystem.ConnectOptions {
	return filesystem.ConnectOptions{KnownHostsFile: cfg.KnownHosts, Insecure: cfg.Insecure}
}

// ValidatePaths checks that the remote paths a subcommand names are absolute
// and that names are usable. An ls without a path lists the root.
func (cfg *Config) ValidatePaths() error {
	var remotes []string

	switch {
	case cfg.List != nil:
		if cfg.List.Path == "" {
			cfg.List.Path = filesystem.Separator
		}

		remotes = []string{cfg.List.Path}
	case cfg.Pull != nil:
		remotes = cfg.Pull.Remotes
	case cfg.Push != nil:
		remotes = []string{cfg.Push.To}
	case cfg.Remove != nil:
		remotes = cfg.Remove.Remotes
	case cfg.Mkdir != nil:
		return validateCreate(cfg.Mkdir)
	case cfg.Touch != nil:
		return validateCreate(cfg.Touch)
	}

	for _, remote := range remotes {
		if err := validateRemotePath(remote); err != nil {
			return err
		}
	}

	if cfg.Remove != nil {
		for _, remote := range cfg.Remove.Remotes {
			if filesystem.JoinPath(filesystem.Separator, remote) == filesystem.Separator {
				return fmt.Errorf("refusing to delete the device root") //nolint:err113,perfsprint // Input validation error
			}
		}
	}

	return nil
}

func (cfg *Config) validateSettings() error {
	if cfg.AdminTimeout <= 0 {
		return fmt.Errorf("admin timeout must be positive, got %s", cfg.AdminTimeout) //nolint:err113 // Input validation with actual value
	}

	if cfg.RepaintInterval <= 0 {
		return fmt.Errorf("repaint interval must be positive, got %s", cfg.RepaintInterval) //nolint:err113 // Input validation with actual value
	}

	if cfg.MaxProblems < 1 {
		return fmt.Errorf("max problems must be at least 1, got %d", cfg.MaxProblems) //nolint:err113 // Input validation with actual value
	}

	return nil
}

func validateCreate(cmd *CreateCmd) error {
	if err := validateRemotePath(cmd.Parent); err != nil {
		return err
	}

	name := strings.TrimSpace(cmd.Name)
	if name == "" || strings.Contains(name, filesystem.Separator) {
		return fmt.Errorf("invalid name %q: must be non-empty and cannot contain %s", cmd.Name, filesystem.Separator) //nolint:err113 // Input validation with actual value
	}

	return nil
}

func validateRemotePath(p string) error {
	if !strings.HasPrefix(p, filesystem.Separator) {
		return fmt.Errorf("remote path must be absolute: %q", p) //nolint:err113 // Input validation with actual value
	}

	return nil
}
