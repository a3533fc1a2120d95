package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yangwenmai/storyverse/internal/app"
	"github.com/yangwenmai/storyverse/internal/backend"
	"github.com/yangwenmai/storyverse/internal/model"
)

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var data string
	names := make([]string, 0, len(backend.Endpoints()))
	for _, ep := range backend.Endpoints() {
		names = append(names, string(ep))
	}

	cmd := &cobra.Command{
		Use:   "generate <endpoint>",
		Short: "Call a backend endpoint with a JSON request",
		Long: `Send a JSON request to one backend endpoint and print the JSON reply.
The request is taken from --data, or read from stdin when --data is empty.

Endpoints: ` + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			body := []byte(data)
			if data == "" {
				var err error
				if body, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return fmt.Errorf("read request: %w", err)
				}
			}

			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			resp, err := backend.Call(cmd.Context(), app.Backend(e.cfg, e.log), backend.Endpoint(args[0]), body)
			if err != nil {
				return err
			}
			if ht, ok := resp.(*backend.HotTopicsResponse); ok {
				ht.Topics = backend.SortTopicsByHeat(ht.Topics)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	return cmd
}

// ---------------------------------------------------------------------------
// topics
// ---------------------------------------------------------------------------

func newTopicsCmd(opts *rootOptions) *cobra.Command {
	var req backend.HotTopicsRequest
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "List trending story topics, hottest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			resp, err := app.Backend(e.cfg, e.log).HotTopics(cmd.Context(), req)
			if err != nil {
				return err
			}
			topics := backend.SortTopicsByHeat(resp.Topics)
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), topics)
			}
			rows := make([][]string, 0, len(topics))
			for _, t := range topics {
				rows = append(rows, []string{truncate(t.Title, 40), t.Heat, t.Trend, strings.Join(t.Keywords, ", ")})
			}
			return printTable(cmd.OutOrStdout(), []string{"TITLE", "HEAT", "TREND", "KEYWORDS"}, rows)
		},
	}
	cmd.Flags().StringVar(&req.Category, "category", "", "Topic category")
	cmd.Flags().IntVarP(&req.Limit, "limit", "n", 0, "Maximum number of topics")
	return cmd
}

// ---------------------------------------------------------------------------
// outline
// ---------------------------------------------------------------------------

var outlineSections = []struct {
	title string
	keys  []string
}{
	{"Summary", backend.OutlineSummary},
	{"Characters", backend.OutlineCharacters},
	{"World", backend.OutlineWorld},
	{"Structure", backend.OutlineStructure},
	{"Chapters", backend.OutlineChapters},
	{"Conflicts", backend.OutlineConflicts},
	{"Themes", backend.OutlineThemes},
}

func newOutlineCmd(opts *rootOptions) *cobra.Command {
	var req backend.OutlineRequest
	cmd := &cobra.Command{
		Use:   "outline",
		Short: "Generate a novel outline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			resp, err := app.Backend(e.cfg, e.log).GenerateOutline(cmd.Context(), req)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			out := cmd.OutOrStdout()
			fields := resp.Fields()
			for _, sec := range outlineSections {
				v, ok := backend.OutlineField(fields, sec.keys...)
				if !ok {
					continue
				}
				fmt.Fprintf(out, "## %s\n", sec.title)
				if s, isString := v.(string); isString {
					fmt.Fprintln(out, s)
				} else if err := printJSON(out, v); err != nil {
					return err
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Genre, "genre", "", "Genre (required)")
	cmd.Flags().StringVar(&req.Style, "style", "", "Writing style (required)")
	cmd.Flags().StringSliceVar(&req.Keywords, "keywords", nil, "Comma-separated keywords (required)")
	cmd.Flags().StringVar(&req.TargetLength, "length", "", "Target length: short, medium or long")
	return cmd
}

// ---------------------------------------------------------------------------
// characters generate / storyboards generate
// ---------------------------------------------------------------------------

func newCharacterGenerateCmd(opts *rootOptions) *cobra.Command {
	var (
		req        backend.CharacterRequest
		withImage  bool
		imageStyle string
		save       bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a character sheet, optionally with a portrait",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			svc := app.Backend(e.cfg, e.log)
			resp, err := svc.GenerateCharacter(cmd.Context(), req)
			if err != nil {
				return err
			}

			var imageURL string
			if withImage {
				imgReq, err := backend.CharacterImageRequestFor(resp.Character, req.Name, imageStyle)
				if err != nil {
					return err
				}
				img, err := svc.GenerateCharacterImage(cmd.Context(), imgReq)
				if err != nil {
					return err
				}
				imageURL = img.ImageURL
			}

			c := model.NewSavedCharacter(model.NewID(), resp.Character, imageURL)
			if save {
				if err := e.app.Characters.Save(cmd.Context(), c); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "saved character %s\n", c.ID)
			}
			return printJSON(cmd.OutOrStdout(), c)
		},
	}
	cmd.Flags().StringVar(&req.Type, "type", "", "Character type (required)")
	cmd.Flags().StringVar(&req.Setting, "setting", "", "Story setting (required)")
	cmd.Flags().StringVar(&req.Name, "name", "", "Character name")
	cmd.Flags().StringVar(&req.Age, "age", "", "Age")
	cmd.Flags().StringVar(&req.Gender, "gender", "", "Gender")
	cmd.Flags().StringVar(&req.Personality, "personality", "", "Personality")
	cmd.Flags().StringVar(&req.Description, "description", "", "Free-form description")
	cmd.Flags().BoolVar(&withImage, "image", false, "Also generate a portrait")
	cmd.Flags().StringVar(&imageStyle, "image-style", "", "Portrait style (default anime)")
	cmd.Flags().BoolVar(&save, "save", false, "Save the character to the gallery")
	return cmd
}

func newStoryboardGenerateCmd(opts *rootOptions) *cobra.Command {
	var (
		req   backend.StoryboardRequest
		title string
		save  bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a storyboard from a script read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			script, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}
			req.Script = strings.TrimSpace(string(script))

			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			resp, err := app.Backend(e.cfg, e.log).GenerateStoryboard(cmd.Context(), req)
			if err != nil {
				return err
			}
			sb := model.NewSavedStoryboard(model.NewID(), title, req.Script, req.Style, len(resp.Storyboard), resp.Storyboard)
			if save {
				if err := e.app.Storyboards.Save(cmd.Context(), sb); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "saved storyboard %s\n", sb.ID)
			}
			return printJSON(cmd.OutOrStdout(), sb)
		},
	}
	cmd.Flags().StringVar(&req.Style, "style", "", "Visual style (default cinematic)")
	cmd.Flags().IntVar(&req.Shots, "shots", 0, "Number of shots (default 6)")
	cmd.Flags().StringVar(&req.SceneDescription, "scene", "", "Scene description")
	cmd.Flags().StringVar(&title, "title", "", "Gallery title")
	cmd.Flags().BoolVar(&save, "save", false, "Save the storyboard to the gallery")
	return cmd
}
