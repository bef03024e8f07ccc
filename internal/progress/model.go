package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	tea "github.com/charmbracelet/bubbletea"
)

var _emojiIcons = map[bool]string{
	true:  "✅",
	false: "❌",
}

var _boringIcons = map[bool]string{
	true:  "[ok]  ",
	false: "[FAIL]",
}

// failureLine is one retained failure for the viewport window.
type failureLine struct {
	ref string
	err error
}

// _maxFailures caps the number of retained failure lines per model
// instance. applyEvent enforces a sliding window of this size to bound
// memory and keep the TUI viewport readable.
const _maxFailures = 10

// model is the bubbletea model for rendering batch mapping progress.
// All methods use pointer receivers so counter mutations operate on the
// same instance without copy aliasing.
type model struct {
	mappingName string
	total       int // expected batch size, 0 when unknown
	mapped      int
	failed      int
	elapsed     time.Duration
	failures    []failureLine
	width       int
	boring      bool // use ASCII icons instead of emoji
	done        bool
}

func newModel(mappingName string, total int, boring bool) *model {
	return &model{
		mappingName: mappingName,
		total:       total,
		boring:      boring,
	}
}

// eventMsg carries an Event from the channel to the bubbletea event loop.
type eventMsg struct{ ev Event }

// doneMsg signals the event channel has been closed.
type doneMsg struct{}

// Init implements tea.Model.
func (*model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case eventMsg:
		m.applyEvent(msg.ev)
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *model) applyEvent(ev Event) {
	m.elapsed += ev.Elapsed
	if ev.Err != nil {
		m.failed++
		m.failures = append(m.failures, failureLine{ref: ev.Ref, err: ev.Err})
		if len(m.failures) > _maxFailures {
			m.failures = m.failures[len(m.failures)-_maxFailures:]
		}
		return
	}
	m.mapped++
}

var (
	_headerStyle = lipgloss.NewStyle().Bold(true)
	_failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	_dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// View implements tea.Model.
func (m *model) View() string {
	var b strings.Builder

	_, _ = b.WriteString(_headerStyle.Render(fmt.Sprintf("Mapping: %s", m.mappingName)))
	_ = b.WriteByte('\n')

	icons := _emojiIcons
	if m.boring {
		icons = _boringIcons
	}

	processed := m.mapped + m.failed
	totalStr := "?"
	if m.total > 0 {
		totalStr = fmt.Sprintf("%d", m.total)
	}
	_, _ = fmt.Fprintf(&b, "  %s %d/%s mapped", icons[true], m.mapped, totalStr)
	if m.failed > 0 {
		_, _ = fmt.Fprintf(&b, "   %s %d failed", icons[false], m.failed)
	}
	_ = b.WriteByte('\n')
	_, _ = b.WriteString(_dimStyle.Render(fmt.Sprintf("  %d processed in %s", processed, m.elapsed.Round(time.Millisecond))))
	_ = b.WriteByte('\n')

	if len(m.failures) > 0 {
		_ = b.WriteByte('\n')
		for _, f := range m.failures {
			_, _ = b.WriteString(_failStyle.Render(fmt.Sprintf("    > %s: %v", f.ref, f.err)))
			_ = b.WriteByte('\n')
		}
	}

	return b.String()
}
