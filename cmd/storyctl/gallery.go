package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yangwenmai/storyverse/internal/app"
	"github.com/yangwenmai/storyverse/internal/model"
	"github.com/yangwenmai/storyverse/internal/store"
)

// gallery describes how one collection is shown on the command line.
type gallery[T model.Entry] struct {
	name   string
	noun   string
	pick   func(*app.App) *store.Collection[T]
	header []string
	row    func(T) []string

	// favorites adds the favorite subcommand.
	favorites bool
}

var charactersGallery = gallery[model.SavedCharacter]{
	name:   "characters",
	noun:   "character",
	pick:   func(a *app.App) *store.Collection[model.SavedCharacter] { return a.Characters },
	header: []string{"ID", "NAME", "TYPE", "SETTING", "FAV", "CREATED"},
	row: func(c model.SavedCharacter) []string {
		return []string{c.ID, c.Name, c.Type, truncate(c.Setting, 30), star(c.IsFavorite), c.CreatedAt}
	},
	favorites: true,
}

var storyboardsGallery = gallery[model.SavedStoryboard]{
	name:   "storyboards",
	noun:   "storyboard",
	pick:   func(a *app.App) *store.Collection[model.SavedStoryboard] { return a.Storyboards },
	header: []string{"ID", "TITLE", "STYLE", "SHOTS", "FAV", "CREATED"},
	row: func(s model.SavedStoryboard) []string {
		return []string{s.ID, truncate(s.Title, 40), s.Style, strconv.Itoa(s.Shots), star(s.IsFavorite), s.CreatedAt}
	},
	favorites: true,
}

var historyGallery = gallery[model.SearchHistoryEntry]{
	name:   "history",
	noun:   "search",
	pick:   func(a *app.App) *store.Collection[model.SearchHistoryEntry] { return a.History },
	header: []string{"ID", "QUERY", "TYPE", "RESULTS", "CREATED"},
	row: func(e model.SearchHistoryEntry) []string {
		return []string{e.ID, truncate(e.Query, 40), e.Type, strconv.Itoa(len(e.Results)), e.CreatedAt}
	},
}

func galleryCmd[T model.Entry](opts *rootOptions, g gallery[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   g.name,
		Short: "Manage saved " + g.name,
	}

	var query string
	list := &cobra.Command{
		Use:   "list",
		Short: "List saved " + g.name,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			c := g.pick(e.app)
			items := c.Filter(cmd.Context(), query)
			if err := c.LastLoadError(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: saved %s could not be read and are shown as empty: %v\n", g.name, err)
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), items)
			}
			rows := make([][]string, 0, len(items))
			for _, it := range items {
				rows = append(rows, g.row(it))
			}
			return printTable(cmd.OutOrStdout(), g.header, rows)
		},
	}
	list.Flags().StringVarP(&query, "query", "q", "", "Only show entries containing this text")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one saved " + g.noun + " as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			item, err := g.pick(e.app).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), item)
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one saved " + g.noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			deleted, err := g.pick(e.app).Delete(cmd.Context(), args[0])
			switch {
			case errors.Is(err, model.ErrConfirmationDeclined):
				fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
				return nil
			case err != nil:
				return err
			case !deleted:
				fmt.Fprintf(cmd.OutOrStdout(), "no %s with id %s\n", g.noun, args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", g.noun, args[0])
			return nil
		},
	}

	clearAll := &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved " + g.noun,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			err = g.pick(e.app).ClearAll(cmd.Context())
			if errors.Is(err, model.ErrConfirmationDeclined) {
				fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", g.name)
			return nil
		},
	}

	cmd.AddCommand(list, show, del, clearAll)

	favorite := &cobra.Command{
		Use:   "favorite <id>",
		Short: "Toggle the favorite mark of a saved " + g.noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			item, found, err := g.pick(e.app).ToggleFavorite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%s %q: %w", g.noun, args[0], model.ErrNotFound)
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), item)
			}
			return printTable(cmd.OutOrStdout(), g.header, [][]string{g.row(item)})
		},
	}
	if g.favorites {
		cmd.AddCommand(favorite)
	}
	return cmd
}
