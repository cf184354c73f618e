package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// OptionType represents the expected type of a configuration option value.
type OptionType string

const (
	// TypeString is a plain string value (the default for all config values).
	TypeString OptionType = "string"
	// TypeBool is a boolean value (true/false/yes/no/1/0/on/off).
	TypeBool OptionType = "bool"
	// TypeInt is an integer value.
	TypeInt OptionType = "int"
	// TypeDuration is a Go time.Duration value (e.g. "30s", "5m", "1h").
	TypeDuration OptionType = "duration"
	// TypeEnum is a string restricted to ConfigOption.Choices.
	TypeEnum OptionType = "enum"
)

// ConfigOption declares a single configuration option with its type, default,
// documentation, and environment variable override.
type ConfigOption struct {
	// Key is the option name as it appears in the config file (kebab-case).
	Key string
	// Type is the expected value type for validation.
	Type OptionType
	// Choices lists the accepted values of a TypeEnum option.
	Choices []string
	// Default is the default value as a string, or "" for no default.
	Default string
	// Description is a human-readable description of the option.
	Description string
	// Section is "" for global options, or a command/section name.
	Section string
	// EnvVar is the environment variable that overrides this option, or "".
	EnvVar string
}

// ConfigSchema declares the expected configuration options.
type ConfigSchema struct {
	options   []*ConfigOption
	byKey     map[string]*ConfigOption
	bySection map[string]map[string]*ConfigOption
}

// NewSchema creates a new empty ConfigSchema.
func NewSchema() *ConfigSchema {
	return &ConfigSchema{
		byKey:     make(map[string]*ConfigOption),
		bySection: make(map[string]map[string]*ConfigOption),
	}
}

// Register adds a ConfigOption to the schema. Last registration wins.
func (s *ConfigSchema) Register(opt ConfigOption) {
	ref := new(ConfigOption)
	*ref = opt
	s.options = append(s.options, ref)
	if opt.Section == "" {
		s.byKey[opt.Key] = ref
		return
	}
	if s.bySection[opt.Section] == nil {
		s.bySection[opt.Section] = make(map[string]*ConfigOption)
	}
	s.bySection[opt.Section][opt.Key] = ref
}

// RegisterAll adds multiple ConfigOptions to the schema.
func (s *ConfigSchema) RegisterAll(opts []ConfigOption) {
	for _, opt := range opts {
		s.Register(opt)
	}
}

// Lookup returns the ConfigOption for a key in a given section ("" for
// global), or nil.
func (s *ConfigSchema) Lookup(section, key string) *ConfigOption {
	if section == "" {
		return s.byKey[key]
	}
	return s.bySection[section][key]
}

// IsKnown reports whether key is registered in section. Global keys are
// known in every section.
func (s *ConfigSchema) IsKnown(section, key string) bool {
	if section != "" && s.bySection[section][key] != nil {
		return true
	}
	return s.byKey[key] != nil
}

// SectionOptions returns all registered options for a section, in
// registration order.
func (s *ConfigSchema) SectionOptions(section string) []ConfigOption {
	var out []ConfigOption
	for _, o := range s.options {
		if o.Section == section {
			out = append(out, *o)
		}
	}
	return out
}

// Sections returns the sorted non-empty section names.
func (s *ConfigSchema) Sections() []string {
	out := make([]string, 0, len(s.bySection))
	for sec := range s.bySection {
		out = append(out, sec)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the effective value for a global config key by checking,
// in order: (1) the environment variable declared in the schema for this key,
// (2) the config value, (3) the schema default.
func (s *ConfigSchema) Resolve(c *Config, key string) string {
	return s.ResolveIn(c, "", key)
}

// ResolveIn is Resolve for a command section. A section value takes
// precedence over the global one; the environment variable beats both.
func (s *ConfigSchema) ResolveIn(c *Config, section, key string) string {
	opt := s.Lookup(section, key)
	if opt == nil {
		opt = s.Lookup("", key)
	}
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	if c != nil {
		if v, ok := c.GetCommandOption(section, key); ok {
			return v
		}
	}
	if opt != nil {
		return opt.Default
	}
	return ""
}

// ValidateConfig checks a loaded Config against the schema and returns a
// sorted list of human-readable issues.
func ValidateConfig(c *Config, s *ConfigSchema) []string {
	var issues []string

	for key, value := range c.Global {
		opt := s.Lookup("", key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
			continue
		}
		if err := validateValue(opt, value); err != nil {
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
		}
	}

	for section, opts := range c.Commands {
		for key, value := range opts {
			if !s.IsKnown(section, key) {
				issues = append(issues, fmt.Sprintf("unknown option for command %q: %q (value: %q)", section, key, value))
				continue
			}
			opt := s.Lookup(section, key)
			if opt == nil {
				opt = s.Lookup("", key)
			}
			if err := validateValue(opt, value); err != nil {
				issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
			}
		}
	}

	sort.Strings(issues)
	return issues
}

// ValidateValue checks value against the declared type of a global option.
// Unknown keys are an error.
func (s *ConfigSchema) ValidateValue(key, value string) error {
	opt := s.Lookup("", key)
	if opt == nil {
		return fmt.Errorf("unknown option: %s", key)
	}
	return validateValue(opt, value)
}

func validateValue(opt *ConfigOption, value string) error {
	switch opt.Type {
	case TypeString, "":
		return nil
	case TypeBool:
		if _, err := parseBool(value); err != nil {
			return fmt.Errorf("expected bool, got %q", value)
		}
	case TypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("expected int, got %q", value)
		}
	case TypeDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("expected duration, got %q", value)
		}
	case TypeEnum:
		for _, choice := range opt.Choices {
			if strings.EqualFold(choice, value) {
				return nil
			}
		}
		return fmt.Errorf("expected one of %s, got %q", strings.Join(opt.Choices, "|"), value)
	default:
		return fmt.Errorf("unknown option type %q", opt.Type)
	}
	return nil
}

// GetString returns the global option value for key, or "" if not set.
func (c *Config) GetString(key string) string {
	v, _ := c.GetGlobalOption(key)
	return v
}

// GetBool returns the global option value for key parsed as a boolean.
// Returns false if the key is not set or the value cannot be parsed.
func (c *Config) GetBool(key string) bool {
	b, _ := parseBool(c.GetString(key))
	return b
}

// GetInt returns the global option value for key parsed as an integer.
// Returns 0 if the key is not set or the value cannot be parsed.
func (c *Config) GetInt(key string) int {
	i, _ := strconv.Atoi(c.GetString(key))
	return i
}

// GetDuration returns the global option value for key parsed as a
// time.Duration. Returns 0 if the key is not set or the value cannot be parsed.
func (c *Config) GetDuration(key string) time.Duration {
	d, _ := time.ParseDuration(c.GetString(key))
	return d
}

// FormatHelp returns a human-readable reference of all registered options,
// grouped by section.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder

	if globals := s.SectionOptions(""); len(globals) > 0 {
		b.WriteString("Global Options:\n")
		for _, o := range globals {
			writeOptionHelp(&b, o)
		}
	}

	for _, sec := range s.Sections() {
		fmt.Fprintf(&b, "\n[%s] Options:\n", sec)
		for _, o := range s.SectionOptions(sec) {
			writeOptionHelp(&b, o)
		}
	}

	return b.String()
}

func writeOptionHelp(b *strings.Builder, o ConfigOption) {
	fmt.Fprintf(b, "  %-24s %s", o.Key, o.Description)
	parts := make([]string, 0, 3)
	switch o.Type {
	case TypeEnum:
		parts = append(parts, "one of: "+strings.Join(o.Choices, "|"))
	case TypeString, "":
	default:
		parts = append(parts, fmt.Sprintf("type: %s", o.Type))
	}
	if o.Default != "" {
		parts = append(parts, fmt.Sprintf("default: %s", o.Default))
	}
	if o.EnvVar != "" {
		parts = append(parts, fmt.Sprintf("env: %s", o.EnvVar))
	}
	if len(parts) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString("\n")
}

// Option keys read by the commands.
const (
	KeyEnginePath        = "engine.path"
	KeyEngineLoadTimeout = "engine.load-timeout"
	KeyEngineCallTimeout = "engine.call-timeout"
	KeyReferenceFile     = "reference.file"
	KeyLogFile           = "log.file"
	KeyLogLevel          = "log.level"
	KeyLogMaxSizeMB      = "log.max-size-mb"
	KeyLogMaxFiles       = "log.max-files"
	KeyLogBufferSize     = "log.buffer-size"
	KeyUIColor           = "ui.color"
	KeyUIResultHeight    = "ui.result-height"
	KeyExecCategory      = "category"
)

// DefaultSchema returns the schema declaring every known jrbench option.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.RegisterAll([]ConfigOption{
		{Key: KeyEnginePath, Description: "Engine module file; empty selects the built-in engine", EnvVar: "JRBENCH_ENGINE"},
		{Key: KeyEngineLoadTimeout, Type: TypeDuration, Default: "30s", Description: "Maximum time to load the engine module"},
		{Key: KeyEngineCallTimeout, Type: TypeDuration, Default: "0s", Description: "Maximum time to wait for one engine call (0 disables)"},
		{Key: KeyReferenceFile, Description: "File whose contents prefill the reference editor"},

		{Key: KeyLogFile, Description: "Log file path (JSON output)", EnvVar: "JRBENCH_LOG_FILE"},
		{Key: KeyLogLevel, Type: TypeEnum, Choices: []string{"debug", "info", "warn", "error"}, Default: "info", Description: "Log level", EnvVar: "JRBENCH_LOG_LEVEL"},
		{Key: KeyLogMaxSizeMB, Type: TypeInt, Default: "10", Description: "Max log file size in MB before rotation"},
		{Key: KeyLogMaxFiles, Type: TypeInt, Default: "5", Description: "Max number of rotated log backup files"},
		{Key: KeyLogBufferSize, Type: TypeInt, Default: "1000", Description: "In-memory log buffer size (entries)"},

		{Key: KeyUIColor, Type: TypeEnum, Choices: []string{"auto", "always", "never"}, Default: "auto", Description: "Color mode"},
		{Key: KeyUIResultHeight, Type: TypeInt, Default: "12", Description: "Height of the result pane in lines"},

		{Key: KeyExecCategory, Section: "exec", Type: TypeEnum, Choices: []string{"payload", "response", "entity"}, Default: "payload", Description: "Operation category used when -category is omitted"},
	})
	return s
}
