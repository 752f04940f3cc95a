package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/opensdd/osdd-trello/core/config"
	"github.com/opensdd/osdd-trello/core/trello"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

// NewRootCmd builds the osdd-trello command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "osdd-trello",
		Short: "Read Trello boards and their linked Jira issue keys",
		Long: `osdd-trello reads the lists and open cards of a Trello board and links every card
to the Jira issue key stored in a Custom Fields power-up field.

Settings are read from the config file (see "osdd-trello config init") and can be
overridden with TRELLO_API_KEY, TRELLO_API_TOKEN, TRELLO_BOARD_ID and TRELLO_ISSUE_KEY_FIELD.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

			if f, ok := cmd.OutOrStdout().(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
				color.NoColor = true
			}
			return nil
		},
	}

	// main reports the error; usage is only printed for --help.
	root.SilenceUsage = true
	root.SilenceErrors = true

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", fmt.Sprintf("config file (default %s)", config.DefaultPath()))
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newCardsCmd(opts))
	root.AddCommand(newListsCmd(opts))
	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	return root
}

// Execute runs the command tree with the process arguments.
func Execute() error {
	return NewRootCmd().Execute()
}

// openSession loads and validates the config and connects to the board.
func openSession(ctx context.Context, opts *rootOptions) (*trello.Session, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	s, err := trello.NewSession(ctx, cfg.Session())
	if err != nil {
		return nil, fmt.Errorf("failed to open board %s: %w", cfg.BoardID, err)
	}
	return s, nil
}
