package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/gensynth/internal/config"
	"github.com/zjrosen/gensynth/internal/presentation"
)

var (
	languagesJSON bool
	forceInit     bool
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the available languages",
	Long: `List every built-in and user language with its file extensions.

User definitions from the languages directory override built-ins of the same
name and are marked with "*".

Examples:
  gensynth languages
  gensynth languages --json | jq '.[].id'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close(cmd.Context()) }()

		formatter := presentation.NewFormatter(cmd.OutOrStdout())
		dtos := presentation.FromLanguages(a.Repository().Languages())
		if languagesJSON {
			return formatter.FormatLanguages(dtos)
		}
		return formatter.FormatLanguageTable(dtos)
	},
}

var cssCmd = &cobra.Command{
	Use:   "css <language>",
	Short: "Print the stylesheet for a language",
	Long: `Print the CSS rules matching the classes gensynth emits for a language.

Rules for categories switched off in the permissions section are omitted.

Examples:
  gensynth css c > c.css
  gensynth css python --line-numbers fancy`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = settings.BindPFlag("output::line_numbers", cmd.Flags().Lookup("line-numbers"))
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close(cmd.Context()) }()

		css, err := a.Service().Stylesheet(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), css)
		return err
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath()
		if _, err := os.Stat(path); err == nil && !forceInit {
			return fmt.Errorf("%s already exists; use --force to overwrite", path)
		}
		if err := config.WriteDefaultConfig(path); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one configuration value",
	Long: `Set one configuration value, keeping comments and other settings.

Keys use dot notation. Values are read as YAML scalars, so true, 42 and 30m
become a boolean, a number and a string.

Examples:
  gensynth config set output.format ansi
  gensynth config set permissions.symbols true
  gensynth config set theme.preset nord`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var value any
		if err := yaml.Unmarshal([]byte(args[1]), &value); err != nil {
			return fmt.Errorf("parsing value: %w", err)
		}
		path := configPath()
		if err := config.SetValue(path, args[0], value); err != nil {
			return err
		}

		cfgFile = path
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("%s was written but is now invalid: %w", path, err)
		}
		return nil
	},
}

func init() {
	languagesCmd.Flags().BoolVar(&languagesJSON, "json", false, "print JSON")
	cssCmd.Flags().StringP("line-numbers", "n", "none", "include line rules: none, normal, or fancy")
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd, configSetCmd)
	rootCmd.AddCommand(languagesCmd, cssCmd, configCmd)
}
