package posn

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/opd-ai/posn/appfile"
	"github.com/opd-ai/posn/crypto"
	"github.com/opd-ai/posn/failure"
	"github.com/opd-ai/posn/task"
)

// Environment variables read by ApplyEnv.
const (
	EnvDataDir  = "POSN_DATA_DIR"
	EnvLogLevel = "POSN_LOG_LEVEL"
)

// LogFormat selects the logrus formatter.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

var (
	// ErrInvalidLogFormat is returned for a log format other than text or json.
	ErrInvalidLogFormat = errors.New("invalid log format")

	// ErrMissingPassphrase is returned when PassphraseEnv names an unset or
	// empty variable.
	ErrMissingPassphrase = errors.New("passphrase environment variable is empty")
)

// Options contains configuration options for a Client.
type Options struct {
	// DataDir holds the friend list file (and its salt when encrypted).
	DataDir string `yaml:"data_dir" json:"data_dir"`
	// FriendListFile is the file name inside DataDir.
	FriendListFile string `yaml:"friend_list_file" json:"friend_list_file"`
	// PassphraseEnv names the environment variable holding the passphrase
	// that encrypts the friend list at rest. Empty disables encryption.
	PassphraseEnv string `yaml:"passphrase_env" json:"passphrase_env"`
	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogFormat is text or json.
	LogFormat LogFormat `yaml:"log_format" json:"log_format"`

	// KeyIssuer overrides the random key source. Not loaded from files.
	KeyIssuer crypto.KeyIssuer `yaml:"-" json:"-"`
	// Notifier receives start/finish signals of background saves and exports.
	Notifier task.Notifier `yaml:"-" json:"-"`
}

// NewOptions creates a new Options with default values.
func NewOptions() *Options {
	return &Options{
		DataDir:        defaultDataDir(),
		FriendListFile: appfile.DefaultFileName,
		LogLevel:       logrus.InfoLevel.String(),
		LogFormat:      LogFormatText,
		Notifier:       task.LogNotifier{},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".posn"
	}
	return filepath.Join(home, ".posn")
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// LoadOptions reads options from a YAML file, or from JSON with comments when
// the extension is .json or .jsonc. Fields absent from the file keep their
// defaults.
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.IO("load options", err)
	}

	options := NewOptions()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), options); err != nil {
			return nil, failure.Parse("load options", fmt.Errorf("%s: %w", path, err))
		}
	default:
		if err := yaml.Unmarshal(data, options); err != nil {
			return nil, failure.Parse("load options", fmt.Errorf("%s: %w", path, err))
		}
	}

	options.DataDir = expandHome(options.DataDir)
	if err := options.Validate(); err != nil {
		return nil, failure.Parse("load options", fmt.Errorf("%s: %w", path, err))
	}

	logrus.WithFields(logrus.Fields{
		"function": "LoadOptions",
		"path":     path,
		"data_dir": options.DataDir,
	}).Debug("Options loaded")
	return options, nil
}

// ApplyEnv overrides options from POSN_DATA_DIR and POSN_LOG_LEVEL when they
// are set.
func (o *Options) ApplyEnv() {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		o.DataDir = expandHome(dir)
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		o.LogLevel = level
	}
}

// Validate checks option values that cannot be defaulted.
func (o *Options) Validate() error {
	if o.DataDir == "" {
		return appfile.ErrNoDirectory
	}
	if _, err := logrus.ParseLevel(o.LogLevel); err != nil {
		return err
	}
	switch o.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, o.LogFormat)
	}
	return nil
}

// ConfigureLogging applies LogLevel and LogFormat to the standard logrus
// logger.
func (o *Options) ConfigureLogging() error {
	level, err := logrus.ParseLevel(o.LogLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	switch o.LogFormat {
	case LogFormatJSON:
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case LogFormatText, "":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, o.LogFormat)
	}
	return nil
}

// passphrase returns the at-rest passphrase, or nil when encryption is off.
func (o *Options) passphrase() ([]byte, error) {
	if o.PassphraseEnv == "" {
		return nil, nil
	}
	value := os.Getenv(o.PassphraseEnv)
	if value == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingPassphrase, o.PassphraseEnv)
	}
	return []byte(value), nil
}
