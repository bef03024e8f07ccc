package progress

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// TUI renders progress using a bubbletea interactive terminal display.
type TUI struct {
	// Total is the expected batch size, 0 when unknown.
	Total int
	// Boring selects ASCII icons instead of emoji.
	Boring bool
}

// Run starts a bubbletea program that displays mapping progress.
func (t *TUI) Run(ctx context.Context, mappingName string, ch <-chan Event) error {
	m := newModel(mappingName, t.Total, t.Boring)

	p := tea.NewProgram(m, tea.WithContext(ctx))

	// Forward events into the bubbletea event loop. Selects on ctx.Done()
	// to avoid leaking the goroutine if ch is never closed.
	go func() {
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					p.Send(doneMsg{})
					return
				}
				p.Send(eventMsg{ev: ev})
			case <-ctx.Done():
				return
			}
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
