package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yangwenmai/storyverse/internal/app"
	"github.com/yangwenmai/storyverse/internal/backend"
	"github.com/yangwenmai/storyverse/internal/model"
	"github.com/yangwenmai/storyverse/internal/task"
)

func newRecentCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show or extend the recent search queries",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent queries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()
			return printQueries(cmd, opts, e.app.Recent.List(cmd.Context()))
		},
	}

	add := &cobra.Command{
		Use:   "add <query>",
		Short: "Record a query as the most recent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			queries, err := e.app.Recent.Add(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printQueries(cmd, opts, queries)
		},
	}

	cmd.AddCommand(list, add)
	return cmd
}

func printQueries(cmd *cobra.Command, opts *rootOptions, queries []string) error {
	if opts.jsonOut {
		return printJSON(cmd.OutOrStdout(), queries)
	}
	for _, q := range queries {
		fmt.Fprintln(cmd.OutOrStdout(), q)
	}
	return nil
}

// ---------------------------------------------------------------------------
// search
// ---------------------------------------------------------------------------

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var req backend.SearchRequest
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search for background material and record it in the history",
		Long: `Run an enhanced search against the backend. The query and its results are
saved to the search history and the query to the recent searches.
Interrupting the command abandons the search and records nothing.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			req.Query = strings.TrimSpace(strings.Join(args, " "))
			resp, err := runSearch(cmd.Context(), app.Backend(e.cfg, e.log), req, func(s task.State) {
				if s == task.Loading {
					fmt.Fprintf(cmd.ErrOrStderr(), "searching %q...\n", req.Query)
				}
			})
			if err != nil {
				return err
			}

			searchType := req.SearchType
			if searchType == "" {
				searchType = "general"
			}
			entry := model.NewSearchHistoryEntry(model.NewID(), req.Query, searchType, resp.Results)
			if err := e.app.History.Save(cmd.Context(), entry); err != nil {
				e.log.Warn("record search history", zap.Error(err))
			}
			if _, err := e.app.Recent.Add(cmd.Context(), req.Query); err != nil {
				e.log.Warn("record recent search", zap.Error(err))
			}

			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			return printSearch(cmd, resp)
		},
	}
	cmd.Flags().StringVarP(&req.SearchType, "type", "t", "", "Search type (general, character, setting, ...)")
	cmd.Flags().StringVar(&req.Context, "context", "", "Extra context passed to the search")
	cmd.Flags().IntVarP(&req.Limit, "limit", "n", 0, "Maximum number of results")
	return cmd
}

// runSearch runs the search as a task so that cancelling ctx abandons it
// without applying a late result.
func runSearch(ctx context.Context, svc backend.Service, req backend.SearchRequest, onChange func(task.State)) (*backend.SearchResponse, error) {
	done := make(chan struct{})
	t := task.New[*backend.SearchResponse](ctx, func(s task.State) {
		onChange(s)
		if s == task.Success || s == task.Error {
			close(done)
		}
	})
	defer t.Wait()
	defer t.Close()

	if err := t.Start(func(ctx context.Context) (*backend.SearchResponse, error) {
		return svc.EnhancedSearch(ctx, req)
	}); err != nil {
		return nil, err
	}

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	_, resp, err := t.Result()
	return resp, err
}

func printSearch(cmd *cobra.Command, resp *backend.SearchResponse) error {
	out := cmd.OutOrStdout()
	for i, r := range resp.Results {
		fmt.Fprintf(out, "%d. %s\n", i+1, r.Title)
		if r.URL != "" {
			fmt.Fprintf(out, "   %s\n", r.URL)
		}
		if r.Description != "" {
			fmt.Fprintf(out, "   %s\n", truncate(r.Description, 120))
		}
	}
	if resp.Summary != "" {
		fmt.Fprintf(out, "\nSummary: %s\n", resp.Summary)
	}
	if len(resp.RelatedTopics) > 0 {
		fmt.Fprintf(out, "Related: %s\n", strings.Join(resp.RelatedTopics, ", "))
	}
	return nil
}
