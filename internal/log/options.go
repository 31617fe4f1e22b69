package log

import (
	"fmt"

	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
)

// Options configures the process logger.
type Options struct {
	Name          string   `json:"name,omitempty" mapstructure:"name"`
	Level         string   `json:"level,omitempty" mapstructure:"level"`
	Format        string   `json:"format,omitempty" mapstructure:"format"`
	EnableColor   bool     `json:"enable-color,omitempty" mapstructure:"enable-color"`
	DisableCaller bool     `json:"disable-caller,omitempty" mapstructure:"disable-caller"`
	OutputPaths   []string `json:"output-paths,omitempty" mapstructure:"output-paths"`
}

func NewOptions() *Options {
	return &Options{
		Name:        "cryovault",
		Level:       "info",
		Format:      "console",
		EnableColor: true,
		OutputPaths: []string{"stdout"},
	}
}

func (o *Options) Validate() []error {
	var errs []error
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(o.Level)); err != nil {
		errs = append(errs, fmt.Errorf("--log.level: %w", err))
	}
	if o.Format != "console" && o.Format != "json" {
		errs = append(errs, fmt.Errorf("--log.format must be 'console' or 'json', got %q", o.Format))
	}
	return errs
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Name, "log.name", o.Name, "Name attached to every log entry.")
	fs.StringVar(&o.Level, "log.level", o.Level, "Minimum log level ('debug', 'info', 'warn', 'error').")
	fs.StringVar(&o.Format, "log.format", o.Format, "Log output format ('json' or 'console').")
	fs.BoolVar(&o.EnableColor, "log.enable-color", o.EnableColor, "Colorize levels in console format.")
	fs.BoolVar(&o.DisableCaller, "log.disable-caller", o.DisableCaller, "Omit the caller file and line from entries.")
	fs.StringSliceVar(&o.OutputPaths, "log.output-paths", o.OutputPaths, "Log destinations (e.g. 'stdout', '/var/log/cryovault.log').")
}
