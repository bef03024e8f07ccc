package progress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndisidore/crosswalk/pkg/logctx"
)

func TestModelApplyEvent(t *testing.T) {
	t.Parallel()

	m := newModel("articles", 3, false)
	m.applyEvent(Event{Ref: "rec-0", Elapsed: 10 * time.Millisecond})
	m.applyEvent(Event{Ref: "rec-1", Err: errors.New("boom"), Elapsed: 5 * time.Millisecond})
	m.applyEvent(Event{Ref: "rec-2"})

	assert.Equal(t, 2, m.mapped)
	assert.Equal(t, 1, m.failed)
	assert.Equal(t, 15*time.Millisecond, m.elapsed)
	require.Len(t, m.failures, 1)
	assert.Equal(t, "rec-1", m.failures[0].ref)
}

func TestModelFailureWindow(t *testing.T) {
	t.Parallel()

	m := newModel("articles", 0, true)
	for i := range _maxFailures + 5 {
		m.applyEvent(Event{Ref: fmt.Sprintf("rec-%d", i), Err: errors.New("boom")})
	}

	require.Len(t, m.failures, _maxFailures)
	assert.Equal(t, "rec-5", m.failures[0].ref)
	assert.Equal(t, fmt.Sprintf("rec-%d", _maxFailures+4), m.failures[_maxFailures-1].ref)
}

func TestModelUpdate(t *testing.T) {
	t.Parallel()

	m := newModel("articles", 2, true)

	next, cmd := m.Update(eventMsg{ev: Event{Ref: "rec-0"}})
	assert.Same(t, m, next)
	assert.Nil(t, cmd)
	assert.Equal(t, 1, m.mapped)

	_, cmd = m.Update(doneMsg{})
	assert.NotNil(t, cmd)
	assert.True(t, m.done)
}

func TestModelView(t *testing.T) {
	t.Parallel()

	m := newModel("articles", 4, true)
	m.applyEvent(Event{Ref: "rec-0"})
	m.applyEvent(Event{Ref: "rec-1", Err: errors.New("decode failed")})

	view := m.View()
	assert.Contains(t, view, "Mapping: articles")
	assert.Contains(t, view, "[ok]")
	assert.Contains(t, view, "1/4 mapped")
	assert.Contains(t, view, "1 failed")
	assert.Contains(t, view, "rec-1: decode failed")
}

var _ tea.Model = (*model)(nil)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	log, err := NewLogger(&buf, "json", slog.LevelInfo)
	require.NoError(t, err)
	log.Info("hello", slog.String("mapping", "articles"))
	assert.Contains(t, buf.String(), `"mapping":"articles"`)

	_, err = NewLogger(&buf, "text", slog.LevelInfo)
	assert.NoError(t, err)
	_, err = NewLogger(&buf, "pretty", slog.LevelInfo)
	assert.NoError(t, err)

	_, err = NewLogger(&buf, "yaml", slog.LevelInfo)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestPrettyHandlerLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, slog.LevelInfo))

	log.Debug("invisible")
	log.Info("shown")
	assert.NotContains(t, buf.String(), "invisible")
	assert.Contains(t, buf.String(), "shown")
}

func TestPrettyHandlerPrefix(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, slog.LevelInfo))

	log.With(slog.String("mapping", "articles")).WithGroup("batch").Info("done")
	assert.Contains(t, buf.String(), "mapping=articles")
	assert.Contains(t, buf.String(), "batch.done")
}

func TestPlainRunLogsEvents(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := NewLogger(&buf, "json", slog.LevelInfo)
	require.NoError(t, err)
	ctx := logctx.With(t.Context(), log)

	ch := make(chan Event, 2)
	ch <- Event{Ref: "rec-0", Elapsed: time.Millisecond}
	ch <- Event{Ref: "rec-1", Err: errors.New("boom")}
	close(ch)

	var d Plain
	require.NoError(t, d.Run(ctx, "articles", ch))

	out := buf.String()
	assert.Contains(t, out, "record.mapped")
	assert.Contains(t, out, "record.error")
	assert.Contains(t, out, "rec-1")
}

func TestQuietRunOnlyLogsFailures(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := NewLogger(&buf, "json", slog.LevelInfo)
	require.NoError(t, err)
	ctx := logctx.With(t.Context(), log)

	ch := make(chan Event, 2)
	ch <- Event{Ref: "rec-0"}
	ch <- Event{Ref: "rec-1", Err: errors.New("boom")}
	close(ch)

	var d Quiet
	require.NoError(t, d.Run(ctx, "articles", ch))

	out := buf.String()
	assert.NotContains(t, out, "rec-0")
	assert.Contains(t, out, "rec-1")
}

func TestDisplayDrainsOnCancel(t *testing.T) {
	t.Parallel()

	for _, d := range []Display{&Plain{}, &Quiet{}} {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		ch := make(chan Event)
		done := make(chan error, 1)
		go func() {
			done <- d.Run(logctx.With(ctx, slog.New(slog.DiscardHandler)), "articles", ch)
		}()

		// The sender must be able to finish and close even after cancel.
		ch <- Event{Ref: "rec-0"}
		close(ch)

		err := <-done
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	}
}
