package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/linkmap/configs"
	"github.com/Aman-CERP/linkmap/internal/config"
	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
	"github.com/Aman-CERP/linkmap/internal/ui"
)

func newConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create configuration files",
		Long: `Show or create linkmap configuration.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/linkmap/config.yaml)
  3. Project config (.linkmap.yaml in --config-dir)
  4. Environment variables (LINKMAP_*)`,
	}

	cmd.AddCommand(newConfigShowCmd(g))
	cmd.AddCommand(newConfigInitCmd(g))
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigShowCmd(g *globalOptions) *cobra.Command {
	var defaults bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.NewConfig()
			if !defaults {
				var err error
				if cfg, err = g.loadConfig(); err != nil {
					return err
				}
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return lmerrors.InternalError("failed to encode config", err)
			}
			if !g.jsonOutput {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			// Re-decode so the JSON keys match the YAML keys.
			var generic map[string]any
			if err := yaml.Unmarshal(data, &generic); err != nil {
				return lmerrors.InternalError("failed to encode config", err)
			}
			return ui.WriteJSON(cmd.OutOrStdout(), generic)
		},
	}

	cmd.Flags().BoolVar(&defaults, "defaults", false, "Show the built-in defaults only")

	return cmd
}

func newConfigInitCmd(g *globalOptions) *cobra.Command {
	var (
		force   bool
		project bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented configuration template",
		Long: `Write the user configuration template, or with --project the analysis
template to .linkmap.yaml in --config-dir. Every setting is commented out
at its default. Existing files are kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, template := config.GetUserConfigPath(), configs.UserConfigTemplate
			if project {
				path, template = filepath.Join(g.configDir, ".linkmap.yaml"), configs.ProjectConfigTemplate
			}
			if fileExists(path) && !force {
				return lmerrors.New(lmerrors.ErrCodeConfigInvalid,
					fmt.Sprintf("%s already exists", path), nil).
					WithSuggestion("Use --force to overwrite it.")
			}
			if err := config.WriteTemplate(path, template); err != nil {
				return lmerrors.ConfigError("failed to write config", err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().BoolVar(&project, "project", false, "Write .linkmap.yaml in --config-dir instead of the user config")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the user config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}
