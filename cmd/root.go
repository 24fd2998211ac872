// Package cmd implements the gensynth command line.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/gensynth/internal/app"
	"github.com/zjrosen/gensynth/internal/config"
	"github.com/zjrosen/gensynth/internal/log"
)

var (
	version  = "dev"
	cfgFile  string
	langFlag string
	debug    bool
	verbose  bool

	// "::" keeps dotted keys such as theme color names intact.
	settings = newViper()
	closeLog func()
)

var rootCmd = &cobra.Command{
	Use:   "gensynth [file]",
	Short: "Highlight source code as HTML or ANSI",
	Long: `Highlight source code with data-driven language rule sets.

The language is taken from --lang or detected from the file extension.
Without a file argument, or with "-", source is read from standard input.

Examples:
  gensynth main.c > main.html
  cat query.sql | gensynth --lang sql --format ansi
  gensynth --line-numbers fancy --header div script.py`,
	Version:           version,
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if closeLog != nil {
			closeLog()
			closeLog = nil
		}
	},
	RunE: runHighlight,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .gensynth.yaml, then ~/.config/gensynth/config.yaml)")
	pf.BoolVar(&debug, "debug", false, "write debug logs to $GENSYNTH_LOG (default: debug.log)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "write debug logs to stderr")
	pf.String("languages-dir", config.DefaultLanguagesDir(), "directory of user language definitions")

	f := rootCmd.Flags()
	f.StringVarP(&langFlag, "lang", "l", "", "language to highlight (default: detect from file name)")
	f.StringP("format", "f", "html", "output format: html, ansi, or css")
	f.String("header", "pre", "container element: pre, div, or none")
	f.StringP("line-numbers", "n", "none", "line numbering: none, normal, or fancy")
	f.Int("start-line", 1, "number of the first line")
	f.Bool("classes", true, "emit CSS classes instead of inline styles")

	bindFlags()
}

func newViper() *viper.Viper {
	return viper.NewWithOptions(viper.KeyDelimiter("::"))
}

// bindFlags binds the root flags to settings. Bound flags only win over the
// config file when set explicitly.
func bindFlags() {
	pf, f := rootCmd.PersistentFlags(), rootCmd.Flags()
	_ = settings.BindPFlag("languages_dir", pf.Lookup("languages-dir"))
	_ = settings.BindPFlag("output::format", f.Lookup("format"))
	_ = settings.BindPFlag("output::header", f.Lookup("header"))
	_ = settings.BindPFlag("output::line_numbers", f.Lookup("line-numbers"))
	_ = settings.BindPFlag("output::start_line", f.Lookup("start-line"))
	_ = settings.BindPFlag("engine::use_classes", f.Lookup("classes"))
}

// setup initializes logging before any command runs.
func setup(cmd *cobra.Command, _ []string) error {
	switch {
	case verbose:
		log.InitWriter(cmd.ErrOrStderr())
	case debug || os.Getenv("GENSYNTH_DEBUG") != "":
		logPath := os.Getenv("GENSYNTH_LOG")
		if logPath == "" {
			logPath = "debug.log"
		}
		cleanup, err := log.Init(logPath)
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		closeLog = cleanup
	}
	if lvl := os.Getenv("GENSYNTH_LOG_LEVEL"); lvl != "" {
		level, err := log.ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("GENSYNTH_LOG_LEVEL: %w", err)
		}
		log.SetMinLevel(level)
	}
	return nil
}

// loadConfig reads the config file, environment and flags over the defaults.
func loadConfig() (config.Config, error) {
	settings.SetEnvPrefix("GENSYNTH")
	settings.SetEnvKeyReplacer(strings.NewReplacer("::", "_"))
	settings.AutomaticEnv()

	if cfgFile != "" {
		settings.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .gensynth.yaml (current directory)
		// 2. ~/.config/gensynth/config.yaml (user config)
		if _, err := os.Stat(".gensynth.yaml"); err == nil {
			settings.SetConfigFile(".gensynth.yaml")
		} else {
			if dir := config.DefaultConfigDir(); dir != "" {
				settings.AddConfigPath(dir)
			}
			settings.SetConfigName("config")
			settings.SetConfigType("yaml")
		}
	}

	if err := settings.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config.Config{}, fmt.Errorf("reading config: %w", err)
		}
		log.Debug(log.CatConfig, "no config file, using defaults")
	} else {
		log.Debug(log.CatConfig, "loaded config", "path", settings.ConfigFileUsed())
	}

	cfg := config.Defaults()
	if err := settings.Unmarshal(&cfg); err != nil {
		return config.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// configPath is the file "config" subcommands edit.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if used := settings.ConfigFileUsed(); used != "" {
		return used
	}
	if _, err := os.Stat(".gensynth.yaml"); err == nil {
		return ".gensynth.yaml"
	}
	return filepath.Join(config.DefaultConfigDir(), "config.yaml")
}

func newApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg, app.WithWriter(cmd.OutOrStdout()))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return a, nil
}

func runHighlight(cmd *cobra.Command, args []string) (err error) {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(cmd.Context()); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	name := "-"
	if len(args) == 1 {
		name = args[0]
	}
	lang := langFlag
	if lang == "" {
		id, ok := a.Repository().FromFilename(name)
		if !ok {
			return fmt.Errorf("cannot detect the language of %q; use --lang", name)
		}
		lang = id
	}

	src, err := readSource(cmd.InOrStdin(), name)
	if err != nil {
		return err
	}
	out, err := a.Service().Highlight(cmd.Context(), lang, src)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

func readSource(stdin io.Reader, name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name) //nolint:gosec // G304: reading the user's input file is the point
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return string(data), nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
