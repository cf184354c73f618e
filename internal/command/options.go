package command

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joeycumines/jrbench/internal/config"
	"github.com/joeycumines/jrbench/internal/engine"
	"github.com/joeycumines/jrbench/internal/logging"
)

// sessionFlags are the flags shared by the commands that open a workbench
// session. Empty values defer to the configuration.
type sessionFlags struct {
	enginePath    string
	referencePath string
	logFile       string
	logLevel      string
}

func (f *sessionFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.enginePath, "engine", "", "Engine module file (default: built-in engine)")
	fs.StringVar(&f.referencePath, "reference", "", "Reference data file")
	fs.StringVar(&f.logFile, "log-file", "", "Write JSON logs to this file")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// resolver reads settings for one command section: flag, then environment,
// then [section], then global config, then the schema default.
type resolver struct {
	cfg     *config.Config
	schema  *config.ConfigSchema
	section string
}

func newResolver(cfg *config.Config, section string) resolver {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return resolver{cfg: cfg, schema: config.DefaultSchema(), section: section}
}

func (r resolver) str(flagValue, key string) string {
	if flagValue != "" {
		return flagValue
	}
	return r.schema.ResolveIn(r.cfg, r.section, key)
}

func (r resolver) integer(key string) (int, error) {
	v := r.str("", key)
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return i, nil
}

func (r resolver) duration(key string) (time.Duration, error) {
	v := r.str("", key)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

// loggingOptions resolves the logger configuration.
func (r resolver) loggingOptions(f sessionFlags) (logging.Options, error) {
	var opts logging.Options

	level, err := logging.ParseLevel(r.str(f.logLevel, config.KeyLogLevel))
	if err != nil {
		return opts, err
	}
	opts.Level = level
	opts.File = r.str(f.logFile, config.KeyLogFile)

	if opts.MaxSizeMB, err = r.integer(config.KeyLogMaxSizeMB); err != nil {
		return opts, err
	}
	if opts.MaxBackups, err = r.integer(config.KeyLogMaxFiles); err != nil {
		return opts, err
	}
	if opts.BufferSize, err = r.integer(config.KeyLogBufferSize); err != nil {
		return opts, err
	}
	return opts, nil
}

// engineOptions resolves the engine configuration.
func (r resolver) engineOptions(f sessionFlags, logger *slog.Logger) (engine.Options, error) {
	opts := engine.Options{
		Path:   r.str(f.enginePath, config.KeyEnginePath),
		Logger: logger,
	}
	var err error
	if opts.LoadTimeout, err = r.duration(config.KeyEngineLoadTimeout); err != nil {
		return opts, err
	}
	if opts.CallTimeout, err = r.duration(config.KeyEngineCallTimeout); err != nil {
		return opts, err
	}
	return opts, nil
}

// reference returns the contents of the reference file, or "" when none is
// configured.
func (r resolver) reference(f sessionFlags) (string, error) {
	path := r.str(f.referencePath, config.KeyReferenceFile)
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read reference file: %w", err)
	}
	return string(data), nil
}
