package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yangwenmai/storyverse/internal/backend"
	"github.com/yangwenmai/storyverse/internal/model"
	"github.com/yangwenmai/storyverse/internal/task"
)

// setupEnv points storyctl at a fresh SQLite file and the stub backend.
func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(dir, "story.db"))
	t.Setenv("BACKEND_URL", "")
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRecent_AddAndList(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "", "recent", "add", "dragons")
	require.NoError(t, err)
	_, err = execute(t, "", "recent", "add", "sky", "castles")
	require.NoError(t, err)

	out, err := execute(t, "", "recent", "list")
	require.NoError(t, err)
	assert.Equal(t, "sky castles\ndragons\n", out)
}

func TestSearch_RecordsHistory(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "", "search", "dragons", "--type", "setting")
	require.NoError(t, err)
	assert.Contains(t, out, "About dragons")

	out, err = execute(t, "", "history", "list", "--json")
	require.NoError(t, err)
	var history []model.SearchHistoryEntry
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "dragons", history[0].Query)
	assert.Equal(t, "setting", history[0].Type)

	out, err = execute(t, "", "recent", "list")
	require.NoError(t, err)
	assert.Equal(t, "dragons\n", out)
}

func TestCharacters_GenerateSaveAndDelete(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "", "characters", "generate", "--type", "Mage", "--setting", "Fantasy", "--image", "--save")
	require.NoError(t, err)
	var c model.SavedCharacter
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	assert.Equal(t, "Aria", c.Name)
	assert.NotEmpty(t, c.ImageURL)

	out, err = execute(t, "", "characters", "list", "-q", "aria")
	require.NoError(t, err)
	assert.Contains(t, out, c.ID)

	out, err = execute(t, "n\n", "characters", "delete", c.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "cancelled")

	out, err = execute(t, "", "characters", "list", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, c.ID)

	out, err = execute(t, "", "characters", "delete", "--yes", c.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted character")

	out, err = execute(t, "", "characters", "list", "--json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestCharacters_Favorite(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "", "characters", "generate", "--type", "Mage", "--setting", "Fantasy", "--save")
	require.NoError(t, err)
	var c model.SavedCharacter
	require.NoError(t, json.Unmarshal([]byte(out), &c))

	out, err = execute(t, "", "characters", "favorite", c.ID, "--json")
	require.NoError(t, err)
	var fav model.SavedCharacter
	require.NoError(t, json.Unmarshal([]byte(out), &fav))
	assert.True(t, fav.IsFavorite)

	_, err = execute(t, "", "characters", "favorite", "missing")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestHistory_HasNoFavoriteCommand(t *testing.T) {
	cmd, _, err := newRootCmd().Find([]string{"history", "favorite"})
	require.NoError(t, err)
	assert.Equal(t, "history", cmd.Name())

	cmd, _, err = newRootCmd().Find([]string{"storyboards", "favorite"})
	require.NoError(t, err)
	assert.Equal(t, "favorite", cmd.Name())
}

func TestStoryboards_GenerateFromStdin(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "INT. CASTLE - NIGHT", "storyboards", "generate", "--shots", "2", "--title", "Castle", "--save")
	require.NoError(t, err)
	var sb model.SavedStoryboard
	require.NoError(t, json.Unmarshal([]byte(out), &sb))
	assert.Equal(t, 2, sb.Shots)
	assert.Equal(t, "INT. CASTLE - NIGHT", sb.Script)

	out, err = execute(t, "", "storyboards", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Castle")
}

func TestTopics_HottestFirst(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "", "topics", "--json")
	require.NoError(t, err)
	var topics []backend.Topic
	require.NoError(t, json.Unmarshal([]byte(out), &topics))
	require.Len(t, topics, 3)
	assert.Equal(t, "高", topics[0].Heat)
	assert.Equal(t, "低", topics[2].Heat)
}

func TestOutline_PrintsSections(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "", "outline", "--genre", "fantasy", "--style", "epic", "--keywords", "dragons,exile")
	require.NoError(t, err)
	assert.Contains(t, out, "## Summary")
	assert.Contains(t, out, "## Chapters")
	assert.NotContains(t, out, "## Themes")
}

func TestGenerate_FromData(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "", "generate", "script", "--data", `{"content":"They met at dawn."}`)
	require.NoError(t, err)
	assert.Contains(t, out, "They met at dawn.")

	_, err = execute(t, "", "generate", "poem", "--data", `{}`)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

type blockingSearch struct {
	backend.Stub
}

func (blockingSearch) EnhancedSearch(ctx context.Context, _ backend.SearchRequest) (*backend.SearchResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRunSearch_CancelledAbandonsResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var states []task.State
	started := make(chan struct{})

	go func() {
		<-started
		cancel()
	}()
	resp, err := runSearch(ctx, blockingSearch{}, backend.SearchRequest{Query: "x"}, func(s task.State) {
		states = append(states, s)
		if s == task.Loading {
			close(started)
		}
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotEmpty(t, states)
	assert.Equal(t, task.Loading, states[0])
}
