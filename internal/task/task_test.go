package task

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTask_Success(t *testing.T) {
	var mu sync.Mutex
	var states []State
	tk := New[string](context.Background(), func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	require.NoError(t, tk.Start(func(context.Context) (string, error) { return "outline", nil }))
	tk.Wait()

	state, v, err := tk.Result()
	assert.Equal(t, Success, state)
	assert.Equal(t, "outline", v)
	assert.NoError(t, err)
	assert.Equal(t, []State{Loading, Success}, states)
}

func TestTask_Error(t *testing.T) {
	tk := New[int](context.Background(), nil)
	boom := errors.New("backend down")

	require.NoError(t, tk.Start(func(context.Context) (int, error) { return 0, boom }))
	tk.Wait()

	state, _, err := tk.Result()
	assert.Equal(t, Error, state)
	assert.ErrorIs(t, err, boom)
}

func TestTask_CloseDiscardsLateResult(t *testing.T) {
	tk := New[string](context.Background(), nil)
	started := make(chan struct{})
	release := make(chan struct{})

	require.NoError(t, tk.Start(func(ctx context.Context) (string, error) {
		close(started)
		<-release
		return "late", nil
	}))
	<-started
	tk.Close()
	close(release)
	tk.Wait()

	state, v, _ := tk.Result()
	assert.Equal(t, Loading, state)
	assert.Empty(t, v)
	assert.ErrorIs(t, tk.Start(func(context.Context) (string, error) { return "", nil }), ErrClosed)
}

func TestTask_CloseCancelsContext(t *testing.T) {
	tk := New[string](context.Background(), nil)
	started := make(chan struct{})
	var ctxErr error

	require.NoError(t, tk.Start(func(ctx context.Context) (string, error) {
		close(started)
		<-ctx.Done()
		ctxErr = ctx.Err()
		return "", ctx.Err()
	}))
	<-started
	tk.Close()
	tk.Wait()

	assert.ErrorIs(t, ctxErr, context.Canceled)
}

func TestTask_StartSupersedes(t *testing.T) {
	tk := New[string](context.Background(), nil)
	firstStarted := make(chan struct{})
	release := make(chan struct{})

	require.NoError(t, tk.Start(func(ctx context.Context) (string, error) {
		close(firstStarted)
		<-release
		return "stale", nil
	}))
	<-firstStarted
	require.NoError(t, tk.Start(func(context.Context) (string, error) { return "fresh", nil }))
	close(release)
	tk.Wait()

	state, v, _ := tk.Result()
	assert.Equal(t, Success, state)
	assert.Equal(t, "fresh", v)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "error", Error.String())
}
