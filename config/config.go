package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"
)

const (
	DefaultPath         = "org_config.yml"
	DefaultPollInterval = 120 * time.Second
	MinDuration         = 1
	MaxDuration         = 30
)

var (
	ErrMissingFile = errors.New("config: file not found")
	ErrMissingKey  = errors.New("config: missing required key")
	ErrInvalid     = errors.New("config: invalid value")
)

var requiredKeys = []string{
	"DURATION",
	"DEVHUB",
	"SCRATCH_DEF",
	"USE_NAMESPACE",
	"PACKAGE_IDS",
	"PACKAGE_P_SETS",
	"PRE_DEPLOY",
	"SRC_FOLDERS",
	"P_SETS",
	"TMPLT_NAME",
	"SITE_NAME",
	"BUILD_DATA_CMD",
	"POST_DEPLOY",
}

// Config drives one scratch org build. An empty list or name means the
// matching build stage is skipped.
type Config struct {
	Duration     int        `yaml:"DURATION" json:"DURATION" toml:"DURATION"`
	DevHub       string     `yaml:"DEVHUB" json:"DEVHUB" toml:"DEVHUB"`
	ScratchDef   string     `yaml:"SCRATCH_DEF" json:"SCRATCH_DEF" toml:"SCRATCH_DEF"`
	UseNamespace bool       `yaml:"USE_NAMESPACE" json:"USE_NAMESPACE" toml:"USE_NAMESPACE"`
	Preview      bool       `yaml:"PREVIEW" json:"PREVIEW" toml:"PREVIEW"`
	PackageIDs   StringList `yaml:"PACKAGE_IDS" json:"PACKAGE_IDS" toml:"PACKAGE_IDS"`
	PackagePSets StringList `yaml:"PACKAGE_P_SETS" json:"PACKAGE_P_SETS" toml:"PACKAGE_P_SETS"`
	PreDeploy    StringList `yaml:"PRE_DEPLOY" json:"PRE_DEPLOY" toml:"PRE_DEPLOY"`
	SrcFolders   StringList `yaml:"SRC_FOLDERS" json:"SRC_FOLDERS" toml:"SRC_FOLDERS"`
	PSets        StringList `yaml:"P_SETS" json:"P_SETS" toml:"P_SETS"`
	TemplateName string     `yaml:"TMPLT_NAME" json:"TMPLT_NAME" toml:"TMPLT_NAME"`
	SiteName     string     `yaml:"SITE_NAME" json:"SITE_NAME" toml:"SITE_NAME"`
	BuildDataCmd StringList `yaml:"BUILD_DATA_CMD" json:"BUILD_DATA_CMD" toml:"BUILD_DATA_CMD"`
	PostDeploy   StringList `yaml:"POST_DEPLOY" json:"POST_DEPLOY" toml:"POST_DEPLOY"`

	// Seconds between package install status checks. Zero means the default.
	PollIntervalSec int `yaml:"POLL_INTERVAL" json:"POLL_INTERVAL" toml:"POLL_INTERVAL"`
	// Upper bound on install status checks. Zero polls until a terminal status.
	MaxPolls int `yaml:"MAX_POLLS" json:"MAX_POLLS" toml:"MAX_POLLS"`
}

func (c Config) PollInterval() time.Duration {
	if c.PollIntervalSec <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(c.PollIntervalSec) * time.Second
}

// Overrides are command line values that replace config file values when set.
type Overrides struct {
	Duration int
	DevHub   string
}

// WithOverrides returns a copy of c with the non-zero overrides applied.
func (c Config) WithOverrides(o Overrides) (Config, error) {
	out := c
	if o.Duration != 0 {
		out.Duration = o.Duration
	}
	if o.DevHub != "" {
		out.DevHub = o.DevHub
	}
	if err := out.Validate(); err != nil {
		return Config{}, err
	}
	return out, nil
}

func (c Config) Validate() error {
	if c.Duration < MinDuration || c.Duration > MaxDuration {
		return fmt.Errorf("%w: DURATION must be between %d and %d, got %d", ErrInvalid, MinDuration, MaxDuration, c.Duration)
	}
	if strings.TrimSpace(c.DevHub) == "" {
		return fmt.Errorf("%w: DEVHUB is empty", ErrInvalid)
	}
	if strings.TrimSpace(c.ScratchDef) == "" {
		return fmt.Errorf("%w: SCRATCH_DEF is empty", ErrInvalid)
	}
	if c.PollIntervalSec < 0 || c.MaxPolls < 0 {
		return fmt.Errorf("%w: POLL_INTERVAL and MAX_POLLS must not be negative", ErrInvalid)
	}
	return nil
}

// Load reads a YAML, TOML or JSON config file, chosen by extension.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	return Parse(data, formatOf(path))
}

type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".toml":
		return FormatTOML
	default:
		return FormatYAML
	}
}

func Parse(data []byte, format Format) (Config, error) {
	var (
		cfg  Config
		keys map[string]interface{}
	)

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &keys); err != nil {
			return Config{}, fmt.Errorf("config parse failed (json): %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config parse failed (json): %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &keys); err != nil {
			return Config{}, fmt.Errorf("config parse failed (toml): %w", err)
		}
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("config parse failed (toml): %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &keys); err != nil {
			return Config{}, fmt.Errorf("config parse failed (yaml): %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config parse failed (yaml): %w", err)
		}
	}

	for _, key := range requiredKeys {
		if _, ok := keys[key]; !ok {
			return Config{}, fmt.Errorf("%w: %s", ErrMissingKey, key)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
