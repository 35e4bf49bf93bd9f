package tui

import (
	"context"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/tabskin/internal/app"
	"github.com/lepinkainen/tabskin/internal/settings"
	"github.com/lepinkainen/tabskin/internal/toast"
	"github.com/lepinkainen/tabskin/internal/wallpaper"
)

// Client is the part of the application the page talks to
type Client interface {
	Clock(now time.Time) string
	Message(key string) string
	Settings(ctx context.Context) settings.UserSettings
	SaveSettings(ctx context.Context, s settings.UserSettings) error
	Refresh(ctx context.Context) (wallpaper.Result, error)
	ClearCache(ctx context.Context) error
	Current(ctx context.Context) (wallpaper.Metadata, bool)
	Layers() wallpaper.Layers
	ActiveToasts() []toast.Toast
}

// TickMsg advances the clock
type TickMsg time.Time

// LoaderDismissedMsg is sent once the startup paint is done
type LoaderDismissedMsg struct{}

// ChangedMsg asks the model to re-read the client state
type ChangedMsg struct{}

type actionDoneMsg struct {
	action string
	err    error
}

var (
	clockStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	loaderStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("12"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	creditStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("10")).Padding(0, 1)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9")).Padding(0, 1)
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	footerAction = "r: new image • t: theme • a: auto-switch • f: clock • l: language • c: clear cache • q: quit"
)

// Model is the Bubble Tea model of the new-tab page
type Model struct {
	ctx    context.Context
	client Client
	now    func() time.Time

	loading  bool
	busy     string
	clock    string
	settings settings.UserSettings
	layers   wallpaper.Layers
	image    *wallpaper.Metadata
	toasts   []toast.Toast

	width  int
	height int
}

// NewModel creates a page that shows the loader until LoaderDismissedMsg arrives
func NewModel(ctx context.Context, client Client, now func() time.Time) Model {
	if now == nil {
		now = time.Now
	}
	m := Model{
		ctx:     ctx,
		client:  client,
		now:     now,
		loading: true,
	}
	m.sync()
	return m
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// sync re-reads everything the view shows
func (m *Model) sync() {
	m.clock = m.client.Clock(m.now())
	m.settings = m.client.Settings(m.ctx)
	m.layers = m.client.Layers()
	m.toasts = m.client.ActiveToasts()
	m.image = nil
	if current, ok := m.client.Current(m.ctx); ok {
		m.image = &current
	}
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		m.sync()
		m.clock = m.client.Clock(time.Time(msg))
		return m, tick()

	case LoaderDismissedMsg:
		m.loading = false
		m.sync()
		return m, nil

	case ChangedMsg:
		m.sync()
		return m, nil

	case actionDoneMsg:
		m.busy = ""
		if msg.err != nil {
			slog.Debug("Action failed", "action", msg.action, "error", msg.err)
		}
		m.sync()
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	}

	if m.busy != "" {
		return m, nil
	}

	switch msg.String() {
	case "r":
		return m.run("refresh", func(ctx context.Context) error {
			_, err := m.client.Refresh(ctx)
			return err
		})

	case "c":
		return m.run("clear-cache", m.client.ClearCache)

	case "t":
		return m.run("theme", m.change(func(s *settings.UserSettings) {
			s.Theme = settings.NextTheme(s.Theme)
		}))

	case "a":
		return m.run("auto-switch", m.change(func(s *settings.UserSettings) {
			s.AutoSwitchEnabled = !s.AutoSwitchEnabled
		}))

	case "f":
		return m.run("time-format", m.change(func(s *settings.UserSettings) {
			s.TimeFormat = nextTimeFormat(s.TimeFormat)
		}))

	case "l":
		return m.run("language", m.change(func(s *settings.UserSettings) {
			s.Language = nextLanguage(s.Language)
		}))
	}

	return m, nil
}

// change loads the stored settings, edits them and saves the result
func (m Model) change(edit func(*settings.UserSettings)) func(context.Context) error {
	return func(ctx context.Context) error {
		s := m.client.Settings(ctx)
		edit(&s)
		return m.client.SaveSettings(ctx, s)
	}
}

// run executes fn off the event loop; only one action runs at a time
func (m Model) run(action string, fn func(context.Context) error) (tea.Model, tea.Cmd) {
	m.busy = action
	ctx := m.ctx
	return m, func() tea.Msg {
		return actionDoneMsg{action: action, err: fn(ctx)}
	}
}

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(clockStyle.Render(m.clock))
	b.WriteString("\n\n")

	if m.loading {
		b.WriteString(loaderStyle.Render(m.client.Message("loading")))
		b.WriteString("\n\n")
	}

	t := Translate(m.client.Message)
	b.WriteString(labelStyle.Render("background  "))
	b.WriteString(FormatLayers(m.layers))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("theme       "))
	b.WriteString(FormatTheme(t, m.settings.Theme))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("auto-switch "))
	b.WriteString(FormatAutoSwitch(m.settings))
	b.WriteString("\n\n")

	if m.image != nil {
		b.WriteString(creditStyle.Render(FormatAttribution(t, *m.image)))
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(m.image.PhotoLink))
		b.WriteString("\n\n")
	}

	for _, item := range m.toasts {
		style := infoStyle
		if item.Level == toast.LevelError {
			style = errorStyle
		}
		b.WriteString(style.Render(item.Text))
		b.WriteString("\n")
	}
	if len(m.toasts) > 0 {
		b.WriteString("\n")
	}

	if m.busy != "" {
		b.WriteString(labelStyle.Render(m.busy + "…"))
		b.WriteString("\n")
	}
	b.WriteString(footerStyle.Render(footerAction))

	return b.String()
}

// Run starts the page: the startup sequence runs in the background while the
// clock is already ticking.
func Run(ctx context.Context, a *app.App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(ctx, a, time.Now), tea.WithAltScreen(), tea.WithContext(ctx))

	changed := func() { p.Send(ChangedMsg{}) }
	a.Toasts().OnChange(changed)
	a.Controller().Transition().OnChange(func(wallpaper.Layers) { changed() })
	defer func() {
		a.Toasts().OnChange(nil)
		a.Controller().Transition().OnChange(nil)
	}()

	go func() {
		boot := a.Start(ctx, func() { p.Send(LoaderDismissedMsg{}) })
		<-boot.Done()
		changed()
	}()

	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
