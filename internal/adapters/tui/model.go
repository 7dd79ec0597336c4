// Package tui is the terminal front end of the game, built on Bubble Tea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/yamclicker/core/internal/domain/entities"
	"github.com/yamclicker/core/internal/ports"
)

// refreshInterval redraws the counters between engine events.
const refreshInterval = 250 * time.Millisecond

// Styles groups the lipgloss styles of the view.
type Styles struct {
	Title      lipgloss.Style
	Count      lipgloss.Style
	Affordable lipgloss.Style
	Dim        lipgloss.Style
	Hint       lipgloss.Style
	Error      lipgloss.Style
}

// DefaultStyles returns the built-in palette.
func DefaultStyles() Styles {
	return Styles{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		Count:      lipgloss.NewStyle().Bold(true),
		Affordable: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Dim:        lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Hint:       lipgloss.NewStyle().Faint(true),
		Error:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

type eventMsg entities.Event

type closedMsg struct{}

type refreshMsg time.Time

type actionMsg struct {
	status string
	err    error
}

// Model is the Bubble Tea model of the game screen.
type Model struct {
	engine   ports.GameEngine
	events   <-chan entities.Event
	mask     string
	styles   Styles
	state    entities.State
	status   string
	err      error
	quitting bool
}

// New creates a model that redraws whenever events delivers.
func New(engine ports.GameEngine, events <-chan entities.Event, mask string) Model {
	return Model{
		engine: engine,
		events: events,
		mask:   mask,
		styles: DefaultStyles(),
		state:  engine.State(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), refresh())
}

func waitForEvent(events <-chan entities.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case eventMsg:
		m.state = m.engine.State()
		return m, waitForEvent(m.events)

	case refreshMsg:
		m.state = m.engine.State()
		return m, refresh()

	case actionMsg:
		m.status, m.err = msg.status, msg.err
		m.state = m.engine.State()
		return m, nil

	case closedMsg:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case " ", "enter":
		return m, m.click()

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		return m, m.buy(int(key[0] - '1'))
	}
	return m, nil
}

func (m Model) click() tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		_, err := engine.Click(context.Background())
		return actionMsg{err: err}
	}
}

func (m Model) buy(id int) tea.Cmd {
	engine, mask := m.engine, m.mask
	return func() tea.Msg {
		item, err := engine.Buy(context.Background(), id)
		switch {
		case errors.Is(err, entities.ErrItemNotFound):
			return actionMsg{err: fmt.Errorf("there is no item %d", id+1)}
		case errors.Is(err, entities.ErrInsufficientFunds):
			return actionMsg{err: fmt.Errorf("not enough yams for %s", item.DisplayName(mask))}
		case err != nil:
			return actionMsg{err: err}
		}
		return actionMsg{status: fmt.Sprintf("Bought %s (%d owned)", item.Name, item.Amount)}
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Yam Clicker"))
	sb.WriteString("\n\n")
	sb.WriteString(m.styles.Count.Render(FormatCount(m.state.Count) + " yams"))
	sb.WriteString(fmt.Sprintf("  (%s per second)\n\n", FormatRate(m.state.Rate)))
	sb.WriteString(RenderMarket(m.state.Catalog, m.state.Count, m.mask, m.styles))
	sb.WriteString("\n")

	if m.err != nil {
		sb.WriteString(m.styles.Error.Render(m.err.Error()))
		sb.WriteString("\n")
	} else if m.status != "" {
		sb.WriteString(m.status)
		sb.WriteString("\n")
	}
	sb.WriteString(m.styles.Hint.Render("space: click  1-8: buy  q: quit"))
	sb.WriteString("\n")
	return sb.String()
}

// RenderMarket renders the visible items as a table. Locked names are masked.
func RenderMarket(items entities.Catalog, count float64, mask string, styles Styles) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Item", "Cost", "+/s", "Owned").
		StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, item := range items {
		if !item.Visible {
			continue
		}
		name := item.DisplayName(mask)
		switch {
		case item.Unlocked && item.Affordable(count):
			name = styles.Affordable.Render(name)
		case !item.Unlocked:
			name = styles.Dim.Render(name)
		}
		t.Row(
			fmt.Sprintf("%d", item.ID+1),
			name,
			FormatCount(item.Cost),
			FormatRate(item.RateIncrease),
			fmt.Sprintf("%d", item.Amount),
		)
	}
	return t.Render()
}

// FormatCount shows whole yams.
func FormatCount(v float64) string {
	return fmt.Sprintf("%.0f", math.Floor(v))
}

// FormatRate shows a rate with one decimal.
func FormatRate(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
