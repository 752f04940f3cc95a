package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/opensdd/osdd-trello/core/config"
	"github.com/opensdd/osdd-trello/core/export"
	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the board's cards as files",
		Long: `Export loads the open cards and writes them under the output directory:
  index.json          all cards
  cards/<card>.json   one file per card`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(out) == "" {
				return fmt.Errorf("--out is required")
			}
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			cards, err := s.LoadCards(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load cards: %w", err)
			}
			res, err := export.MaterializedResult(cards)
			if err != nil {
				return err
			}
			if err := export.Persist(cmd.Context(), out, res); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %d cards to %s\n", color.GreenString("Exported"), len(cards), out)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory")
	return cmd
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a configuration file template",
		Long: `Init writes an empty configuration file to the --config path or the default
location. Files ending in .toml are written as TOML, anything else as YAML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				path = config.DefaultPath()
			}
			if err := config.WriteTemplate(path); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return err
		},
	})
	return cfgCmd
}
