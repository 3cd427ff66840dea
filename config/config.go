package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTemplate  = "template.svg"
	DefaultData      = "data.csv"
	DefaultOutput    = "output_svgs"
	DefaultNameField = "name"
	DefaultConfig    = "svgbatch.conf"
	DefaultExtension = ".svg"
)

// Config holds the batch rendering configuration
type Config struct {
	TemplatePath string
	DataPath     string
	OutputDir    string
	NameField    string
	Extension    string
	Delimiter    string
	Query        string
	Table        string
	ConfigFile   string
	Debug        bool
	Verbose      bool
}

// fileSettings mirrors the keys accepted in a config file
type fileSettings struct {
	Template  *string `yaml:"template"`
	Data      *string `yaml:"data"`
	Output    *string `yaml:"output"`
	NameField *string `yaml:"name_field"`
	Extension *string `yaml:"extension"`
	Delimiter *string `yaml:"delimiter"`
	Query     *string `yaml:"query"`
	Table     *string `yaml:"table"`
}

// Default returns a Config populated with the built-in defaults
func Default() Config {
	return Config{
		TemplatePath: DefaultTemplate,
		DataPath:     DefaultData,
		OutputDir:    DefaultOutput,
		NameField:    DefaultNameField,
		Delimiter:    ",",
		ConfigFile:   DefaultConfig,
	}
}

// LoadConfig reads the configuration file and applies every key it sets to cfg.
// The file is a list of `key: value` lines; lines starting with # are comments.
func LoadConfig(cfg *Config, filename string) error {
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if len(bytes.TrimSpace(content)) == 0 {
		return nil
	}

	var settings fileSettings
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&settings); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid config file %s: %w", filename, err)
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	apply(&cfg.TemplatePath, settings.Template)
	apply(&cfg.DataPath, settings.Data)
	apply(&cfg.OutputDir, settings.Output)
	apply(&cfg.NameField, settings.NameField)
	apply(&cfg.Extension, settings.Extension)
	apply(&cfg.Query, settings.Query)
	apply(&cfg.Table, settings.Table)
	// Delimiters may legitimately be whitespace (tab separated files)
	if settings.Delimiter != nil {
		cfg.Delimiter = *settings.Delimiter
	}

	return nil
}

// LoadOptional loads filename when it exists. A missing file is only an error
// when required is set.
func LoadOptional(cfg *Config, filename string, required bool) error {
	if filename == "" {
		return nil
	}
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) && !required {
		return nil
	}
	return LoadConfig(cfg, filename)
}

// Validate checks the configuration and fills derived values
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TemplatePath) == "" {
		return errors.New("template path must not be empty")
	}
	if strings.TrimSpace(c.DataPath) == "" {
		return errors.New("data location must not be empty")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return errors.New("output directory must not be empty")
	}
	if strings.TrimSpace(c.NameField) == "" {
		return errors.New("name field must not be empty")
	}
	if _, err := c.DelimiterRune(); err != nil {
		return err
	}
	if c.IsSQL() && c.Query == "" && c.Table == "" {
		return fmt.Errorf("database source %s needs a query or a table", c.RedactedDataPath())
	}

	c.Extension = c.OutputExtension()
	return nil
}

// OutputExtension returns the extension output files get, with a leading dot.
// When none is configured it follows the template's own extension.
func (c *Config) OutputExtension() string {
	ext := strings.TrimSpace(c.Extension)
	if ext == "" {
		ext = filepath.Ext(c.TemplatePath)
	}
	if ext == "" || ext == "." {
		return DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// DelimiterRune returns the single field separator for delimited datasets
func (c *Config) DelimiterRune() (rune, error) {
	switch c.Delimiter {
	case "":
		return ',', nil
	case `\t`, "tab":
		return '\t', nil
	}
	runes := []rune(c.Delimiter)
	if len(runes) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}
	switch runes[0] {
	case '"', '\r', '\n':
		return 0, fmt.Errorf("invalid delimiter %q", c.Delimiter)
	}
	return runes[0], nil
}

// IsSQL reports whether the data location is a database URL
func (c *Config) IsSQL() bool {
	for _, scheme := range []string{"mysql://", "postgres://", "postgresql://"} {
		if strings.HasPrefix(c.DataPath, scheme) {
			return true
		}
	}
	return false
}

// RedactedDataPath returns the data location with any password masked
func (c *Config) RedactedDataPath() string {
	if !c.IsSQL() {
		return c.DataPath
	}
	schemeEnd := strings.Index(c.DataPath, "://") + 3
	at := strings.LastIndex(c.DataPath, "@")
	if at < schemeEnd {
		return c.DataPath
	}
	userinfo := c.DataPath[schemeEnd:at]
	if colon := strings.Index(userinfo, ":"); colon >= 0 {
		userinfo = userinfo[:colon] + ":xxxxx"
	}
	return c.DataPath[:schemeEnd] + userinfo + c.DataPath[at:]
}
