package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/opensdd/osdd-trello/core/export"
	"github.com/opensdd/osdd-trello/core/trello"
	"github.com/spf13/cobra"
)

const (
	formatText     = "text"
	formatJSON     = "json"
	formatPrefetch = "prefetch"
)

func newCardsCmd(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "cards",
		Short: "List the open cards of the board with their Jira issue keys",
		Long: `Cards loads every open card of the board, resolves its list and reads the Jira
issue key from the configured Custom Fields field.

Formats:
  text      one line per card (default)
  json      JSON array of cards
  prefetch  osdd prefetch result, usable as a recipe prefetch command`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			cards, err := s.LoadCards(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load cards: %w", err)
			}
			return writeCards(cmd.OutOrStdout(), format, cards)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or prefetch")
	return cmd
}

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatPrefetch:
		return nil
	default:
		return fmt.Errorf("unknown format %q (expected text, json or prefetch)", format)
	}
}

func writeCards(w io.Writer, format string, cards []*trello.Card) error {
	switch format {
	case formatJSON:
		b, err := export.JSON(cards)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case formatPrefetch:
		b, err := export.PrefetchJSON(cards)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}

	if len(cards) == 0 {
		_, err := fmt.Fprintln(w, "No open cards.")
		return err
	}
	keyColor := color.New(color.FgGreen, color.Bold)
	listColor := color.New(color.FgCyan)
	missing := color.New(color.FgYellow)
	for _, c := range cards {
		key := missing.Sprint("-")
		if c.IssueKey != nil {
			key = keyColor.Sprint(*c.IssueKey)
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", key, listColor.Sprint(c.ListName()), c.Name); err != nil {
			return err
		}
	}
	return nil
}

func newListsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lists",
		Short: "List the lists of the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			idColor := color.New(color.Faint)
			for _, l := range s.Lists() {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", idColor.Sprint(l.ID), l.Name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
