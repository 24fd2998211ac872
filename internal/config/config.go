// Package config provides configuration types and defaults for gensynth.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/gensynth/internal/flags"
	"github.com/zjrosen/gensynth/internal/highlight"
	"github.com/zjrosen/gensynth/internal/log"
	"github.com/zjrosen/gensynth/internal/render"
)

// Config holds all configuration options for gensynth.
type Config struct {
	// LanguagesDir overlays user rule sets on the built-in ones.
	LanguagesDir string `mapstructure:"languages_dir"`
	// WatchLanguages reloads rule sets from LanguagesDir as they change.
	WatchLanguages bool            `mapstructure:"watch_languages"`
	Engine         EngineConfig    `mapstructure:"engine"`
	Permissions    map[string]bool `mapstructure:"permissions"`
	Output         OutputConfig    `mapstructure:"output"`
	Theme          ThemeConfig     `mapstructure:"theme"`
	Cache          CacheConfig     `mapstructure:"cache"`
	Tracing        TracingConfig   `mapstructure:"tracing"`
}

// EngineConfig tunes the highlighting engine.
type EngineConfig struct {
	UseClasses bool `mapstructure:"use_classes"`
	// MultilineSpan lets spans cross line breaks. Line numbering turns it off.
	MultilineSpan bool   `mapstructure:"multiline_span"`
	KeywordLinks  bool   `mapstructure:"keyword_links"`
	LinkTarget    string `mapstructure:"link_target"`
	LinkStyle     string `mapstructure:"link_style"`
	// MatchTimeout bounds each regular expression match; zero disables it.
	MatchTimeout time.Duration `mapstructure:"match_timeout"`
	// TabWidth overrides the rule set's tab width when positive.
	TabWidth int `mapstructure:"tab_width"`
	// Strict overrides embedded-script detection for "maybe" rule sets:
	// "auto" (default), "on" or "off".
	Strict string `mapstructure:"strict"`
}

// OutputConfig selects the document format.
type OutputConfig struct {
	Format      string `mapstructure:"format"`       // "html" (default), "ansi" or "css"
	Header      string `mapstructure:"header"`       // "pre" (default), "div" or "none"
	LineNumbers string `mapstructure:"line_numbers"` // "none" (default), "normal" or "fancy"
	FancyEvery  int    `mapstructure:"fancy_every"`
	StartLine   int    `mapstructure:"start_line"`

	OverallStyle string `mapstructure:"overall_style"`
	CodeStyle    string `mapstructure:"code_style"`
	LineStyle    string `mapstructure:"line_style"`
	FancyStyle   string `mapstructure:"fancy_style"`
}

// ThemeConfig holds terminal color options.
type ThemeConfig struct {
	// Preset loads a built-in palette as the base.
	// Valid values: "default", "catppuccin-mocha", "catppuccin-latte",
	// "dracula", "nord"
	Preset string `mapstructure:"preset"`

	// Colors overrides individual color tokens, either nested or with
	// quoted dot notation.
	Colors map[string]any `mapstructure:"colors"`
}

// FlattenedColors returns the Colors map flattened to dot-notation keys.
func (t ThemeConfig) FlattenedColors() map[string]string {
	result := make(map[string]string)
	flattenColors("", t.Colors, result)
	return result
}

// flattenColors recursively flattens a nested map into dot-notation keys.
func flattenColors(prefix string, m map[string]any, result map[string]string) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch val := v.(type) {
		case string:
			result[key] = val
		case map[string]any:
			flattenColors(key, val, result)
		case map[any]any:
			// YAML sometimes produces map[any]any instead of map[string]any
			converted := make(map[string]any)
			for mk, mv := range val {
				if strKey, ok := mk.(string); ok {
					converted[strKey] = mv
				}
			}
			flattenColors(key, converted, result)
		}
	}
}

// RenderTheme converts the configuration into render's theme input.
func (t ThemeConfig) RenderTheme() render.ThemeConfig {
	return render.ThemeConfig{Preset: t.Preset, Colors: t.FlattenedColors()}
}

// CacheConfig controls how long decoded rule sets stay in memory.
type CacheConfig struct {
	// TTL of a cached rule set; zero disables caching.
	TTL     time.Duration `mapstructure:"ttl"`
	Cleanup time.Duration `mapstructure:"cleanup"`
}

// TracingConfig holds OpenTelemetry options.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for "file" exporter.
	// Default: ~/.config/gensynth/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// DefaultConfigDir returns ~/.config/gensynth, or "" if the home directory
// is unavailable.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gensynth")
}

// DefaultTracesFilePath returns the default path for trace file export.
func DefaultTracesFilePath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traces", "traces.jsonl")
}

// DefaultLanguagesDir returns the default user rule-set directory.
func DefaultLanguagesDir() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "languages")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		LanguagesDir: DefaultLanguagesDir(),
		Engine: EngineConfig{
			UseClasses:    true,
			MultilineSpan: true,
			KeywordLinks:  true,
			Strict:        "auto",
		},
		Permissions: map[string]bool{},
		Output: OutputConfig{
			Format:      "html",
			Header:      "pre",
			LineNumbers: "none",
			FancyEvery:  render.DefaultFancyEvery,
			StartLine:   1,
		},
		Theme: ThemeConfig{
			Preset: "",
		},
		Cache: CacheConfig{
			TTL:     30 * time.Minute,
			Cleanup: time.Hour,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // Derived from config dir at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// Validate checks every section and joins the problems found. Each wraps
// highlight.ErrConfiguration.
func (c Config) Validate() error {
	return errors.Join(
		ValidateEngine(c.Engine),
		ValidateOutput(c.Output),
		ValidatePermissions(c.Permissions),
		ValidateTheme(c.Theme),
		ValidateCache(c.Cache),
		ValidateTracing(c.Tracing),
	)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", highlight.ErrConfiguration, fmt.Sprintf(format, args...))
}

// ValidateEngine checks engine options.
func ValidateEngine(e EngineConfig) error {
	if e.MatchTimeout < 0 {
		return invalid("engine.match_timeout must not be negative, got %v", e.MatchTimeout)
	}
	if e.TabWidth < 0 {
		return invalid("engine.tab_width must not be negative, got %d", e.TabWidth)
	}
	switch e.Strict {
	case "", "auto", "on", "off":
	default:
		return invalid("engine.strict must be \"auto\", \"on\", or \"off\", got %q", e.Strict)
	}
	return nil
}

// ValidateOutput checks output options.
func ValidateOutput(o OutputConfig) error {
	switch o.Format {
	case "", "html", "ansi", "css":
	default:
		return invalid("output.format must be \"html\", \"ansi\", or \"css\", got %q", o.Format)
	}
	if _, err := render.ParseHeader(o.Header); err != nil {
		return invalid("output.%v", err)
	}
	if _, err := render.ParseLineNumbers(o.LineNumbers); err != nil {
		return invalid("output.%v", err)
	}
	if o.FancyEvery < 0 {
		return invalid("output.fancy_every must not be negative, got %d", o.FancyEvery)
	}
	return nil
}

// ValidatePermissions checks every override name.
func ValidatePermissions(perms map[string]bool) error {
	if err := flags.New(perms).Validate(); err != nil {
		return invalid("permissions: %v", err)
	}
	return nil
}

// ValidateTheme checks the preset and color overrides.
func ValidateTheme(t ThemeConfig) error {
	if _, err := render.NewTheme(t.RenderTheme()); err != nil {
		return invalid("theme: %v", err)
	}
	return nil
}

// ValidateCache checks cache durations.
func ValidateCache(c CacheConfig) error {
	if c.TTL < 0 || c.Cleanup < 0 {
		return invalid("cache durations must not be negative")
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return invalid("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return invalid("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return invalid("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return invalid("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# gensynth configuration

# Directory of user rule sets (<name>.yaml); files override built-ins
# languages_dir: ~/.config/gensynth/languages

# Reload rule sets from languages_dir when they change
watch_languages: false

engine:
  use_classes: true       # CSS classes (true) or inline styles (false)
  multiline_span: true    # Let spans cross line breaks
  keyword_links: true     # Link keywords of groups that declare a URL
  # link_target: _blank
  # match_timeout: 100ms  # Bound every regular expression match
  # tab_width: 4          # Override the language's tab width
  strict: auto            # Embedded code for "maybe" languages: auto, on, off

# Switch lexical categories: all, keywords, comments, multi, patterns,
# escape, brackets, symbols, strings, numbers, methods, script, or a single
# group such as "keywords:3"
permissions:
  # symbols: true

output:
  format: html            # html, ansi, or css
  header: pre             # pre, div, or none
  line_numbers: none      # none, normal, or fancy
  fancy_every: 5
  start_line: 1

# Terminal colors (format: ansi)
theme:
  # preset: catppuccin-mocha   # default, catppuccin-mocha, catppuccin-latte, dracula, nord
  # colors:
  #   keyword: "#CBA6F7"
  #   comment: "#696969"

cache:
  ttl: 30m                # Zero disables rule-set caching
  cleanup: 1h

# tracing:
#   enabled: true
#   exporter: file
#   file_path: ~/.config/gensynth/traces/traces.jsonl
#
# Example: Send traces to Jaeger via OTLP
# tracing:
#   enabled: true
#   exporter: otlp
#   otlp_endpoint: jaeger.internal:4317
#   sample_rate: 0.1  # Sample 10% of traces
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
