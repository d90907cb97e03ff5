// Package config loads the project configuration: which files to process,
// how long the stored checksums are and where region content comes from.
//
// The file is codemask.toml, codemask.yaml or codemask.yml. Values from the
// environment (after loading a .env file next to the config) override the
// file; command line flags override both.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/codemask/core/checksum"
	"github.com/FocuswithJustin/codemask/core/codegen"
	apperrors "github.com/FocuswithJustin/codemask/core/errors"
	"github.com/FocuswithJustin/codemask/core/marker"
	"github.com/FocuswithJustin/codemask/internal/archive"
	"github.com/FocuswithJustin/codemask/internal/logging"
)

// FileNames are the config file names searched for, in order.
var FileNames = []string{"codemask.toml", "codemask.yaml", "codemask.yml"}

// Environment variables that override the file.
const (
	EnvChecksumBytes = "CODEMASK_CHECKSUM_BYTES"
	EnvStrict        = "CODEMASK_STRICT"
	EnvBackup        = "CODEMASK_BACKUP"
)

// Snippet says where the content of one region comes from. At most one of
// Text, File and Command may be set; with none set the region is emptied.
type Snippet struct {
	Text    string   `toml:"text" yaml:"text"`
	File    string   `toml:"file" yaml:"file"`
	Command string   `toml:"command" yaml:"command"`
	Args    []string `toml:"args" yaml:"args"`
	// Dir is the working directory of Command.
	Dir string `toml:"dir" yaml:"dir"`
}

// Config is the project configuration.
type Config struct {
	ChecksumBytes int                `toml:"checksum_bytes" yaml:"checksum_bytes"`
	Files         []string           `toml:"files" yaml:"files"`
	Exclude       []string           `toml:"exclude" yaml:"exclude"`
	Strict        bool               `toml:"strict" yaml:"strict"`
	Backup        string             `toml:"backup" yaml:"backup"`
	Snippets      map[string]Snippet `toml:"snippets" yaml:"snippets"`

	// Path is the file the configuration was loaded from, empty for defaults.
	Path string `toml:"-" yaml:"-"`
	// Dir is the directory relative paths are resolved against.
	Dir string `toml:"-" yaml:"-"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		ChecksumBytes: codegen.DefaultChecksumBytes,
		Dir:           ".",
	}
}

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Find looks for a config file in dir and its parents and returns the first
// one found.
func Find(dir string) (string, bool) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		for _, name := range FileNames {
			path := filepath.Join(abs, name)
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				return path, true
			}
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", false
		}
		abs = parent
	}
}

// Load reads the configuration at path. An empty path searches the current
// directory and its parents; when nothing is found, or path does not exist,
// the defaults apply with relative paths resolved against the directory
// that would have held the file. Environment overrides and validation are
// applied in every case.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""

	if path == "" {
		if found, ok := Find("."); ok {
			path = found
		}
	}

	if path != "" {
		cfg.Dir = filepath.Dir(path)
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := parse(path, data, cfg); err != nil {
				return nil, err
			}
			cfg.Path = path
		case !os.IsNotExist(err):
			return nil, apperrors.NewIO("read", path, err)
		case explicit:
			logging.Warn("config file not found, using defaults", "path", path)
		}
	}

	if err := loadDotEnv(cfg.Dir); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse decodes data into cfg, choosing the format by extension.
func parse(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			perr := &ParseError{Path: path, Message: err.Error(), Err: err}
			var derr *toml.DecodeError
			if errors.As(err, &derr) {
				perr.Line, perr.Column = derr.Position()
			}
			return perr
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return &ParseError{Path: path, Message: err.Error(), Err: err}
		}
	default:
		return apperrors.NewValidation("config", "unsupported config file type: "+path)
	}
	return nil
}

func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return apperrors.NewIO("load", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvChecksumBytes); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &apperrors.ValidationError{Field: EnvChecksumBytes, Message: "not an integer: " + v, Err: err}
		}
		c.ChecksumBytes = n
	}
	if v := os.Getenv(EnvStrict); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &apperrors.ValidationError{Field: EnvStrict, Message: "not a boolean: " + v, Err: err}
		}
		c.Strict = b
	}
	if v := os.Getenv(EnvBackup); v != "" {
		c.Backup = v
	}
	return nil
}

// Validate checks the configuration for values the engine cannot use.
func (c *Config) Validate() error {
	if c.ChecksumBytes < 0 || c.ChecksumBytes > checksum.Size {
		return apperrors.NewValidation("checksum_bytes",
			fmt.Sprintf("must be between 0 and %d, got %d", checksum.Size, c.ChecksumBytes))
	}
	if c.Backup != "" && archive.DetectFormat(c.Backup) == archive.FormatUnknown {
		return apperrors.NewValidation("backup", "must end in .tar.xz, .tar.gz or .tgz: "+c.Backup)
	}
	for id, s := range c.Snippets {
		if !marker.IsIdentifier(id) {
			return apperrors.NewValidation("snippets", fmt.Sprintf("%q is not a valid region identifier", id))
		}
		set := 0
		for _, v := range []string{s.Text, s.File, s.Command} {
			if v != "" {
				set++
			}
		}
		if set > 1 {
			return apperrors.NewValidation("snippets."+id, "only one of text, file and command may be set")
		}
		if len(s.Args) > 0 && s.Command == "" {
			return apperrors.NewValidation("snippets."+id, "args given without command")
		}
	}
	return nil
}

// Engine returns the engine configuration.
func (c *Config) Engine() codegen.Config {
	return codegen.Config{ChecksumBytesToStore: uint8(c.ChecksumBytes)}
}

// Resolve returns path relative to the config directory, leaving absolute
// paths alone.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir, path)
}
