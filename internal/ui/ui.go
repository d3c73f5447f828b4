package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/player"
	"github.com/desertthunder/marquee/internal/shared"
	"github.com/desertthunder/marquee/internal/tasks"
)

const (
	tickInterval = time.Second
	volumeStep   = 5
	chromeHeight = 12
)

// Model is the TUI application state.
type Model struct {
	ctx     context.Context
	browser *tasks.Browser
	player  *player.Player
	logger  *log.Logger

	kinds []models.Kind
	kind  int
	query models.Query
	view  tasks.BrowserView

	list      list.Model
	search    textinput.Model
	searching bool
	bar       progress.Model
	help      help.Model
	keys      keyMap

	width   int
	height  int
	ticking bool
	err     error
}

// NewModel creates a model browsing the first of [models.Kinds].
func NewModel(ctx context.Context, browser *tasks.Browser, p *player.Player, logger *log.Logger) *Model {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	if p == nil {
		p = player.New()
	}

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.DisableQuitKeybindings()

	search := textinput.New()
	search.Placeholder = "search the catalog"
	search.Prompt = "/ "
	search.CharLimit = 120

	m := &Model{
		ctx:     ctx,
		browser: browser,
		player:  p,
		logger:  logger,
		kinds:   models.Kinds,
		list:    l,
		search:  search,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		help:    help.New(),
		keys:    newKeyMap(),
	}
	m.query = models.Query{Kind: m.kinds[0], PerPage: models.DefaultPerPage}
	m.list.Title = kindTitle(m.query.Kind)
	return m
}

// Init loads the first page.
func (m *Model) Init() tea.Cmd {
	m.browser.SetQuery(m.query)
	return m.load()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, max(msg.Height-chromeHeight, 4))
		m.bar.Width = max(msg.Width-24, 10)
		m.help.Width = msg.Width
		return m, nil

	case Msg:
		return m.handleMsg(msg)

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKeys(msg)
		}
		return m.handleBrowseKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPageLoaded:
		data := msg.data.(pageLoaded)
		if data.view.Query.Kind != m.query.Kind || data.view.Query.Search != m.query.Search {
			return m, nil
		}
		appended := data.view.Page > m.view.Page && len(data.view.Items) > len(m.view.Items) && m.view.Page > 0
		m.view = data.view
		m.err = data.err
		if data.err != nil {
			m.logger.Error("catalog load failed", "kind", m.query.Kind, "error", data.err)
			return m, nil
		}
		cmd := m.list.SetItems(toListItems(data.view.Items))
		if !appended {
			m.list.Select(0)
		}
		return m, cmd

	case MsgTick:
		if m.player.Status().State != player.Playing {
			m.ticking = false
			return m, nil
		}
		m.player.Tick(tickInterval)
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) handleBrowseKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.play):
		return m, m.playSelected()

	case key.Matches(msg, m.keys.more):
		if m.view.HasMore() && m.view.State != tasks.StateLoading {
			return m, m.loadMore()
		}
		return m, nil

	case key.Matches(msg, m.keys.nextPage):
		if m.view.Page < m.view.LastPage {
			return m, m.goToPage(m.view.Page + 1)
		}
		return m, nil

	case key.Matches(msg, m.keys.prevPage):
		if m.view.Page > 1 {
			return m, m.goToPage(m.view.Page - 1)
		}
		return m, nil

	case key.Matches(msg, m.keys.search):
		m.searching = true
		m.search.SetValue(m.query.Search)
		m.search.CursorEnd()
		return m, m.search.Focus()

	case key.Matches(msg, m.keys.kind):
		m.kind = (m.kind + 1) % len(m.kinds)
		m.query = models.Query{Kind: m.kinds[m.kind], PerPage: m.query.PerPage}
		return m, m.requery()

	case key.Matches(msg, m.keys.reload):
		return m, m.requery()

	case key.Matches(msg, m.keys.toggle):
		if m.player.Toggle() == player.Playing {
			return m, m.startTicking()
		}
		return m, nil

	case key.Matches(msg, m.keys.next):
		m.player.Next()
		return m, nil

	case key.Matches(msg, m.keys.prev):
		m.player.Prev()
		return m, nil

	case key.Matches(msg, m.keys.shuffle):
		m.player.SetShuffle(!m.player.Shuffled())
		return m, nil

	case key.Matches(msg, m.keys.repeat):
		m.player.CycleRepeat()
		return m, nil

	case key.Matches(msg, m.keys.louder):
		m.player.AdjustVolume(volumeStep)
		return m, nil

	case key.Matches(msg, m.keys.quieter):
		m.player.AdjustVolume(-volumeStep)
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return m, nil
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		m.query.Search = strings.TrimSpace(m.search.Value())
		return m, m.requery()
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// playSelected queues the loaded items and starts the selected one.
func (m *Model) playSelected() tea.Cmd {
	if !playable(m.query.Kind) || len(m.view.Items) == 0 {
		return nil
	}
	idx := m.list.Index()
	if err := m.player.Load(m.view.Items, idx); err != nil {
		m.logger.Warn("failed to queue items", "error", err)
		return nil
	}
	if err := m.player.Jump(idx); err != nil {
		m.logger.Warn("failed to start playback", "error", err)
		return nil
	}
	return m.startTicking()
}

func (m *Model) requery() tea.Cmd {
	m.browser.SetQuery(m.query)
	m.view = m.browser.View()
	m.list.Title = kindTitle(m.query.Kind)
	cmd := m.list.SetItems(nil)
	return tea.Batch(cmd, m.load())
}

func (m *Model) load() tea.Cmd {
	return func() tea.Msg {
		return pageLoadedMsg(m.browser.Load(m.ctx))
	}
}

func (m *Model) loadMore() tea.Cmd {
	return func() tea.Msg {
		return pageLoadedMsg(m.browser.LoadMore(m.ctx))
	}
}

func (m *Model) goToPage(n int) tea.Cmd {
	return func() tea.Msg {
		return pageLoadedMsg(m.browser.GoToPage(m.ctx, n))
	}
}

func (m *Model) startTicking() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return m.tick()
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// View renders the tabs, the catalog list, the player pane and help.
func (m *Model) View() string {
	sections := []string{m.renderTabs(), m.renderSearch(), m.renderBody(), m.renderFooter(), m.renderPlayer()}
	sections = append(sections, styles.help.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderTabs() string {
	tabs := make([]string, len(m.kinds))
	for i, k := range m.kinds {
		if i == m.kind {
			tabs[i] = styles.active.Render(kindTitle(k))
		} else {
			tabs[i] = styles.tab.Render(kindTitle(k))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) renderSearch() string {
	if m.searching {
		return m.search.View()
	}
	if m.query.Search != "" {
		return styles.help.Render(fmt.Sprintf("search: %q (/ to change)", m.query.Search))
	}
	return ""
}

func (m *Model) renderBody() string {
	switch m.view.State {
	case tasks.StateIdle, tasks.StateLoading:
		if len(m.view.Items) == 0 {
			return styles.help.Render("Loading " + string(m.query.Kind) + "...")
		}
	case tasks.StateEmpty:
		return styles.warn.Render("No results.")
	case tasks.StateError:
		msg := styles.err.Render(fmt.Sprintf("Error: %v (ctrl+r to retry)", m.err))
		if len(m.view.Items) == 0 {
			return msg
		}
		return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), msg)
	}
	return m.list.View()
}

func (m *Model) renderFooter() string {
	if m.view.Page == 0 {
		return ""
	}
	footer := fmt.Sprintf("Page %d of %d · %s items", m.view.Page, m.view.LastPage, humanize.Comma(int64(m.view.Total)))
	if m.view.HasMore() {
		footer += " · m for more"
	}
	return styles.help.Render(footer)
}

func (m *Model) renderPlayer() string {
	s := m.player.Status()
	if s.Current == nil {
		return styles.pane.Render(styles.help.Render("Nothing playing. Select a sound or clip and press enter."))
	}

	icon := "■"
	switch s.State {
	case player.Playing:
		icon = "▶"
	case player.Paused:
		icon = "❚❚"
	}

	title := styles.ok.Render(fmt.Sprintf("%s %s", icon, s.Current.Title))
	if s.Current.Artist != "" {
		title += styles.help.Render(" · " + s.Current.Artist)
	}

	ratio := 0.0
	if s.Duration > 0 {
		ratio = float64(s.Position) / float64(s.Duration)
	}
	elapsed := fmt.Sprintf(" %s / %s",
		shared.FormatDuration(int(s.Position/time.Second)),
		shared.FormatDuration(int(s.Duration/time.Second)))

	mode := fmt.Sprintf("%d/%d · vol %d · repeat %s", s.Index+1, s.Length, s.Volume, s.Repeat)
	if s.Shuffle {
		mode += " · shuffle"
	}

	return styles.pane.Render(lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.bar.ViewAs(ratio)+elapsed,
		styles.help.Render(mode),
	))
}

func kindTitle(k models.Kind) string {
	return cases.Title(language.English).String(string(k))
}
