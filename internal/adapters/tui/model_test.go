package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yamclicker/core/internal/adapters/repository"
	"github.com/yamclicker/core/internal/application/services"
	"github.com/yamclicker/core/internal/domain/entities"
	"github.com/yamclicker/core/internal/infrastructure/clock"
	"github.com/yamclicker/core/internal/infrastructure/logger"
)

func newTestModel(t *testing.T) (Model, *services.GameService) {
	t.Helper()

	game := services.NewGameService(repository.NewMemoryStore(), clock.NewFake(time.Now()), services.GameOptions{}, logger.NewNop())
	require.NoError(t, game.Init(context.Background()))
	t.Cleanup(game.Teardown)

	events, cancel := game.Subscribe(16)
	t.Cleanup(cancel)
	return New(game, events, "???"), game
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds a key and runs the resulting command back through Update.
func press(t *testing.T, m Model, s string) Model {
	t.Helper()
	next, cmd := m.Update(key(s))
	require.NotNil(t, cmd)
	next, _ = next.Update(cmd())
	return next.(Model)
}

func TestSpaceClicks(t *testing.T) {
	m, game := newTestModel(t)

	m = press(t, m, " ")
	m = press(t, m, " ")

	assert.Equal(t, 2.0, game.Count())
	assert.Contains(t, m.View(), "2 yams")
}

func TestDigitBuys(t *testing.T) {
	m, game := newTestModel(t)
	require.NoError(t, game.SetCount(context.Background(), 20))

	m = press(t, m, "1")

	assert.NoError(t, m.err)
	assert.Contains(t, m.status, "Bought seed yam")
	assert.Equal(t, 5.0, game.Count())
	assert.Equal(t, 1, game.Catalog()[0].Amount)
}

func TestBuyErrorsAreShown(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "2")
	require.Error(t, m.err)
	assert.Contains(t, m.View(), "not enough yams for ???")

	m = press(t, m, "9")
	require.Error(t, m.err)
	assert.Contains(t, m.View(), "there is no item 9")
}

func TestViewHidesInvisibleItemsAndMasksLockedNames(t *testing.T) {
	m, _ := newTestModel(t)
	view := m.View()

	assert.Equal(t, 2, strings.Count(view, "???"))
	assert.NotContains(t, view, "seed yam")
	assert.NotContains(t, view, "unpaid intern")
	assert.NotContains(t, view, "barn")
}

func TestEventsRefreshState(t *testing.T) {
	m, game := newTestModel(t)

	_, err := game.Click(context.Background())
	require.NoError(t, err)

	cmd := waitForEvent(m.events)
	next, _ := m.Update(cmd())
	assert.Equal(t, 1.0, next.(Model).state.Count)
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t)

	next, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, next.View())
}

func TestClosedEventStreamQuits(t *testing.T) {
	m, game := newTestModel(t)
	game.Teardown()

	next, cmd := m.Update(waitForEvent(m.events)())
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.True(t, next.(Model).quitting)
}

func TestRenderMarket(t *testing.T) {
	items := entities.DefaultSeedCatalog()
	items[0].Unlocked = true
	items[1].Unlocked = true
	items[2].Visible = true

	out := RenderMarket(items, 150, "???", DefaultStyles())
	assert.Contains(t, out, "unpaid intern")
	assert.Contains(t, out, "1100")
	assert.Equal(t, 1, strings.Count(out, "???"))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "22", FormatCount(22.9))
	assert.Equal(t, "20000000", FormatCount(20000000))
	assert.Equal(t, "2.3", FormatRate(2.3))
}
